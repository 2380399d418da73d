// Package platformtest provides an in-memory platform.Client used by the
// package tests and the simulator binary.
package platformtest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ebcbot/waitlist/internal/platform"
)

type room struct {
	present  []string
	messages []platform.Message
}

// Fake is a thread-safe in-memory platform. Rooms double as voice rooms and
// text surfaces: messages sent to a room id land in that room's message list.
type Fake struct {
	mu          sync.Mutex
	rooms       map[string]*room
	members     map[string]bool
	unreachable map[string]bool
	forbidden   map[string]bool
	dms         map[string][]string
	edits       int
	deletes     int
}

func NewFake() *Fake {
	return &Fake{
		rooms:       make(map[string]*room),
		members:     make(map[string]bool),
		unreachable: make(map[string]bool),
		forbidden:   make(map[string]bool),
		dms:         make(map[string][]string),
	}
}

// --- test setup helpers ---

func (f *Fake) AddRoom(roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[roomID]; !ok {
		f.rooms[roomID] = &room{}
	}
}

func (f *Fake) RemoveRoom(roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, roomID)
}

func (f *Fake) AddMember(userIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range userIDs {
		f.members[id] = true
	}
}

func (f *Fake) RemoveMember(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members, userID)
}

// SetPresent replaces the set of users inside a room, creating it if needed.
func (f *Fake) SetPresent(roomID string, userIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[roomID]
	if !ok {
		r = &room{}
		f.rooms[roomID] = r
	}
	r.present = append([]string(nil), userIDs...)
}

// SetUnreachable makes future DMs to the user fail with ErrUnreachable.
func (f *Fake) SetUnreachable(userID string, unreachable bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unreachable[userID] = unreachable
}

// SetMoveForbidden makes future moves of the user fail with ErrForbidden.
func (f *Fake) SetMoveForbidden(userID string, forbidden bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forbidden[userID] = forbidden
}

// InjectMessage plants a pre-existing bot message on a surface, for
// reconciliation-scan tests. Returns the message id.
func (f *Fake) InjectMessage(channelID, content string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[channelID]
	if !ok {
		r = &room{}
		f.rooms[channelID] = r
	}
	id := uuid.New().String()
	r.messages = append(r.messages, platform.Message{ID: id, Content: content})
	return id
}

// --- test inspection helpers ---

func (f *Fake) Messages(channelID string) []platform.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[channelID]
	if !ok {
		return nil
	}
	return append([]platform.Message(nil), r.messages...)
}

func (f *Fake) MessageContent(channelID, messageID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[channelID]
	if !ok {
		return "", false
	}
	for _, m := range r.messages {
		if m.ID == messageID {
			return m.Content, true
		}
	}
	return "", false
}

func (f *Fake) DMs(userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dms[userID]...)
}

func (f *Fake) EditCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edits
}

func (f *Fake) DeleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deletes
}

// --- platform.Client ---

func (f *Fake) SendMessage(ctx context.Context, channelID, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[channelID]
	if !ok {
		return "", platform.ErrNotFound
	}
	id := uuid.New().String()
	r.messages = append(r.messages, platform.Message{ID: id, Content: content})
	return id, nil
}

func (f *Fake) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[channelID]
	if !ok {
		return platform.ErrNotFound
	}
	for i, m := range r.messages {
		if m.ID == messageID {
			r.messages[i].Content = content
			f.edits++
			return nil
		}
	}
	return platform.ErrNotFound
}

func (f *Fake) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[channelID]
	if !ok {
		return platform.ErrNotFound
	}
	for i, m := range r.messages {
		if m.ID == messageID {
			r.messages = append(r.messages[:i], r.messages[i+1:]...)
			f.deletes++
			return nil
		}
	}
	return platform.ErrNotFound
}

func (f *Fake) MoveMemberToRoom(ctx context.Context, userID, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forbidden[userID] {
		return platform.ErrForbidden
	}
	r, ok := f.rooms[roomID]
	if !ok {
		return platform.ErrNotFound
	}
	for _, id := range r.present {
		if id == userID {
			return nil
		}
	}
	r.present = append(r.present, userID)
	return nil
}

func (f *Fake) DirectMessage(ctx context.Context, userID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.members[userID] || f.unreachable[userID] {
		return platform.ErrUnreachable
	}
	f.dms[userID] = append(f.dms[userID], content)
	return nil
}

func (f *Fake) ListPresentMembers(ctx context.Context, roomID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[roomID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	return append([]string(nil), r.present...), nil
}

func (f *Fake) IsMember(ctx context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[userID], nil
}

func (f *Fake) RoomExists(ctx context.Context, roomID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rooms[roomID]
	return ok, nil
}

func (f *Fake) ListBotMessages(ctx context.Context, channelID string, limit int) ([]platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[channelID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	msgs := append([]platform.Message(nil), r.messages...)
	// newest first
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}
