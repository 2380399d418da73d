package models

import "time"

// RoomPhase is the lifecycle of a room's queue. Absence from the registry is
// the NoQueue phase; a tracked room is either provisioned (prompt posted,
// not yet accepted) or active.
type RoomPhase int

const (
	PhaseNoQueue RoomPhase = iota
	PhaseProvisioned
	PhaseActive
)

func (p RoomPhase) String() string {
	switch p {
	case PhaseProvisioned:
		return "provisioned"
	case PhaseActive:
		return "active"
	default:
		return "no_queue"
	}
}

// HostAssignment is a tagged host state: either unset, or a specific user.
type HostAssignment struct {
	UserID string
	Set    bool
}

func HostUnset() HostAssignment {
	return HostAssignment{}
}

func HostOf(userID string) HostAssignment {
	return HostAssignment{UserID: userID, Set: true}
}

// GroupConstraints are the host-editable requirements shown on the queue
// display and on recruitment broadcasts. A zero level bound means unset.
type GroupConstraints struct {
	MinLevel int    `json:"min_level,omitempty"`
	MaxLevel int    `json:"max_level,omitempty"`
	Note     string `json:"note,omitempty"`
}

// RoomSnapshot is a consistent read of one room's queue, taken under the
// room's lock. Safe to render or inspect without further locking.
type RoomSnapshot struct {
	RoomID      string
	Phase       RoomPhase
	Host        HostAssignment
	Constraints GroupConstraints
	Entries     []WaitlistEntry
	LastActive  time.Time
}
