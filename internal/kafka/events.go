package kafka

import "time"

// Events published BY the waitlist engine

type WaitlistStartedEvent struct {
	EventID   string    `json:"event_id"`
	RoomID    string    `json:"room_id"`
	HostID    string    `json:"host_id"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

type WaitlistJoinedEvent struct {
	EventID   string    `json:"event_id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Class     string    `json:"class"`
	Level     int       `json:"level"`
	Position  int       `json:"position"`
	Updated   bool      `json:"updated"`
	Timestamp time.Time `json:"timestamp"`
}

type WaitlistLeftEvent struct {
	EventID   string    `json:"event_id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"` // user_left, pulled, departed_guild, unreachable
	Timestamp time.Time `json:"timestamp"`
}

type MemberPulledEvent struct {
	EventID    string    `json:"event_id"`
	RoomID     string    `json:"room_id"`
	UserID     string    `json:"user_id"`
	PulledByID string    `json:"pulled_by_id"`
	DestRoomID string    `json:"dest_room_id"`
	Timestamp  time.Time `json:"timestamp"`
}

type HostChangedEvent struct {
	EventID   string    `json:"event_id"`
	RoomID    string    `json:"room_id"`
	HostID    string    `json:"host_id"` // empty when cleared to unset
	Failover  bool      `json:"failover"`
	Timestamp time.Time `json:"timestamp"`
}

type WaitlistEndedEvent struct {
	EventID       string    `json:"event_id"`
	RoomID        string    `json:"room_id"`
	QueuedUserIDs []string  `json:"queued_user_ids,omitempty"`
	Reason        string    `json:"reason"` // room_deleted, evicted
	Timestamp     time.Time `json:"timestamp"`
}

// Topic names
const (
	TopicWaitlistStarted = "WAITLIST_STARTED"
	TopicWaitlistJoined  = "WAITLIST_JOINED"
	TopicWaitlistLeft    = "WAITLIST_LEFT"
	TopicMemberPulled    = "MEMBER_PULLED"
	TopicHostChanged     = "HOST_CHANGED"
	TopicWaitlistEnded   = "WAITLIST_ENDED"
)
