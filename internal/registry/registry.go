// Package registry owns every piece of per-room queue state behind a single
// lookup. All mutations to one room's state run inside that room's lock;
// rooms process independently and never take each other's locks.
package registry

import (
	"sync"
	"time"

	errs "github.com/ebcbot/waitlist/internal/errors"
	"github.com/ebcbot/waitlist/internal/models"
)

// roomState is everything the engine tracks for one room. Owned exclusively
// by the room's lock after creation.
type roomState struct {
	phase        models.RoomPhase
	entries      []models.WaitlistEntry
	host         models.HostAssignment
	constraints  models.GroupConstraints
	promptMsgID  string
	displayMsgID string
	lastNotified string
	adMessageIDs []string
	lastActive   time.Time
}

type Registry struct {
	mu           sync.RWMutex
	rooms        map[string]*roomState
	locks        roomLocks
	maxQueueSize int
}

func New(maxQueueSize int) *Registry {
	return &Registry{
		rooms:        make(map[string]*roomState),
		maxQueueSize: maxQueueSize,
	}
}

// TrackPrompt records a freshly created room whose start-queue prompt has
// been posted. The room sits in the provisioned phase until the prompt is
// accepted or discarded.
func (r *Registry) TrackPrompt(roomID, promptMsgID string, now time.Time) error {
	lock := r.locks.acquire(roomID)
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[roomID]; ok {
		return errs.ErrQueueExists
	}
	r.rooms[roomID] = &roomState{
		phase:       models.PhaseProvisioned,
		promptMsgID: promptMsgID,
		lastActive:  now,
	}
	return nil
}

// Activate transitions a room to the active phase with hostID as host and an
// empty entry list. Creates the state when no prompt was tracked, so a
// start-queue confirmation after a process restart still lands.
func (r *Registry) Activate(roomID, hostID, displayMsgID string, now time.Time) error {
	lock := r.locks.acquire(roomID)
	defer lock.Unlock()

	r.mu.Lock()
	st, ok := r.rooms[roomID]
	if !ok {
		st = &roomState{}
		r.rooms[roomID] = st
	}
	r.mu.Unlock()

	if st.phase == models.PhaseActive {
		return errs.ErrQueueExists
	}

	st.phase = models.PhaseActive
	st.host = models.HostOf(hostID)
	st.entries = nil
	st.promptMsgID = ""
	st.displayMsgID = displayMsgID
	st.lastNotified = ""
	st.lastActive = now
	return nil
}

// Discard drops a provisioned room whose prompt was declined. Active rooms
// are left untouched.
func (r *Registry) Discard(roomID string) {
	lock := r.locks.acquire(roomID)

	r.mu.Lock()
	st, ok := r.rooms[roomID]
	if ok && st.phase != models.PhaseActive {
		delete(r.rooms, roomID)
		ok = false
	}
	r.mu.Unlock()

	// Drop the mapping before releasing so waiters on this mutex fail the
	// identity re-check instead of entering with a stale lock.
	if !ok {
		r.locks.drop(roomID)
	}
	lock.Unlock()
}

// WithRoom acquires roomID's lock, runs fn with exclusive access to the
// room's state, and releases the lock on every exit path. Returns ErrNoQueue
// when the room is not tracked.
func (r *Registry) WithRoom(roomID string, fn func(*Room) error) error {
	lock := r.locks.acquire(roomID)
	defer lock.Unlock()

	r.mu.RLock()
	st, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return errs.ErrNoQueue
	}

	return fn(&Room{id: roomID, st: st, max: r.maxQueueSize})
}

// Purge removes every piece of state keyed by roomID, the room lock
// included. Idempotent.
func (r *Registry) Purge(roomID string) {
	lock := r.locks.acquire(roomID)

	r.mu.Lock()
	delete(r.rooms, roomID)
	r.mu.Unlock()

	// Drop the mapping before releasing so waiters on this mutex fail the
	// identity re-check instead of entering with a stale lock.
	r.locks.drop(roomID)
	lock.Unlock()
}

// Has reports whether any queue state is tracked for roomID.
func (r *Registry) Has(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID]
	return ok
}

// RoomIDs returns the ids of all tracked rooms. Sweeps iterate this and take
// each room's lock individually.
func (r *Registry) RoomIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot takes a consistent read of one room under a brief lock
// acquisition.
func (r *Registry) Snapshot(roomID string) (models.RoomSnapshot, error) {
	var snap models.RoomSnapshot
	err := r.WithRoom(roomID, func(rm *Room) error {
		snap = rm.Snapshot()
		return nil
	})
	return snap, err
}

// AdMessages returns a message id -> room id index over every tracked
// advertisement, for the reconciliation scan. Each room's lock is held only
// while that room is read.
func (r *Registry) AdMessages() map[string]string {
	index := make(map[string]string)
	for _, roomID := range r.RoomIDs() {
		_ = r.WithRoom(roomID, func(rm *Room) error {
			for _, msgID := range rm.AdMessageIDs() {
				index[msgID] = rm.id
			}
			return nil
		})
	}
	return index
}

// Room is a handle to one room's state, valid only inside a WithRoom call.
type Room struct {
	id  string
	st  *roomState
	max int
}

func (rm *Room) ID() string { return rm.id }

func (rm *Room) Phase() models.RoomPhase { return rm.st.phase }

// Join appends the user at the tail or, when already queued, overwrites
// class and level in place without changing rank. Returns the 1-indexed
// position. A previously-absent user is rejected with ErrQueueFull at
// capacity; updates are always permitted.
func (rm *Room) Join(userID, class string, level int, now time.Time) (int, bool, error) {
	for i := range rm.st.entries {
		if rm.st.entries[i].UserID == userID {
			rm.st.entries[i].Class = class
			rm.st.entries[i].Level = level
			return i + 1, true, nil
		}
	}

	if len(rm.st.entries) >= rm.max {
		return 0, false, errs.ErrQueueFull
	}

	rm.st.entries = append(rm.st.entries, models.WaitlistEntry{
		UserID:   userID,
		Class:    class,
		Level:    level,
		JoinedAt: now,
	})
	return len(rm.st.entries), false, nil
}

// Leave removes the user's entry if present. Idempotent.
func (rm *Room) Leave(userID string) bool {
	for i := range rm.st.entries {
		if rm.st.entries[i].UserID == userID {
			rm.st.entries = append(rm.st.entries[:i], rm.st.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Entries returns a copy of the ordered entry list.
func (rm *Room) Entries() []models.WaitlistEntry {
	return append([]models.WaitlistEntry(nil), rm.st.entries...)
}

func (rm *Room) Len() int { return len(rm.st.entries) }

// Head returns the rank-1 entry, if any.
func (rm *Room) Head() (models.WaitlistEntry, bool) {
	if len(rm.st.entries) == 0 {
		return models.WaitlistEntry{}, false
	}
	return rm.st.entries[0], true
}

// HasEntry reports whether the user is queued.
func (rm *Room) HasEntry(userID string) bool {
	for i := range rm.st.entries {
		if rm.st.entries[i].UserID == userID {
			return true
		}
	}
	return false
}

func (rm *Room) Host() models.HostAssignment { return rm.st.host }

func (rm *Room) SetHost(h models.HostAssignment) { rm.st.host = h }

func (rm *Room) Constraints() models.GroupConstraints { return rm.st.constraints }

func (rm *Room) SetConstraints(c models.GroupConstraints) { rm.st.constraints = c }

func (rm *Room) DisplayMessageID() string { return rm.st.displayMsgID }

func (rm *Room) SetDisplayMessageID(id string) { rm.st.displayMsgID = id }

func (rm *Room) PromptMessageID() string { return rm.st.promptMsgID }

func (rm *Room) LastNotified() string { return rm.st.lastNotified }

func (rm *Room) SetLastNotified(userID string) { rm.st.lastNotified = userID }

func (rm *Room) AdMessageIDs() []string {
	return append([]string(nil), rm.st.adMessageIDs...)
}

// SetAdMessageIDs replaces the tracked advertisement set. After a successful
// broadcast exactly one id is tracked.
func (rm *Room) SetAdMessageIDs(ids []string) {
	rm.st.adMessageIDs = append([]string(nil), ids...)
}

// Touch refreshes the room's activity timestamp.
func (rm *Room) Touch(now time.Time) { rm.st.lastActive = now }

func (rm *Room) LastActive() time.Time { return rm.st.lastActive }

// Snapshot copies the room's state for lock-free rendering.
func (rm *Room) Snapshot() models.RoomSnapshot {
	return models.RoomSnapshot{
		RoomID:      rm.id,
		Phase:       rm.st.phase,
		Host:        rm.st.host,
		Constraints: rm.st.constraints,
		Entries:     rm.Entries(),
		LastActive:  rm.st.lastActive,
	}
}
