package models

import "time"

// WaitlistEntry is one user's standing record in a room's waitlist. Join rank
// is implicit: the entry's position in the room's ordered entry list. Rank
// never changes on a re-join; only Class and Level are overwritten.
type WaitlistEntry struct {
	UserID   string    `json:"user_id"`
	Class    string    `json:"class"`
	Level    int       `json:"level"`
	JoinedAt time.Time `json:"joined_at"`
}
