package models

import "time"

type UpdateType string

const (
	UpdateTypeMemberJoined UpdateType = "member_joined"
	UpdateTypeMemberLeft   UpdateType = "member_left"
	UpdateTypeMemberPulled UpdateType = "member_pulled"
	UpdateTypeHostChanged  UpdateType = "host_changed"
	UpdateTypeQueueStarted UpdateType = "queue_started"
	UpdateTypeQueueEnded   UpdateType = "queue_ended"
)

// This is published to Redis Pub/Sub when a room's queue state changes
type RoomUpdateEvent struct {
	RoomID          string     `json:"room_id"`
	UpdateType      UpdateType `json:"update_type"`
	AffectedUserIDs []string   `json:"affected_user_ids,omitempty"`
	QueueLength     int        `json:"queue_length"`
	Timestamp       time.Time  `json:"timestamp"`
}
