// Package platform defines the narrow collaborator interface the waitlist
// engine consumes. All chat-platform I/O (messages, DMs, member moves,
// presence) goes through it; the engine never talks to an SDK directly.
package platform

import (
	"context"
	"errors"
)

var (
	// ErrNotFound reports a stale message or room reference. Callers recover
	// by clearing the reference; it is never surfaced as a failure.
	ErrNotFound = errors.New("platform: not found")

	// ErrForbidden reports a permission failure on the platform side.
	ErrForbidden = errors.New("platform: forbidden")

	// ErrUnreachable reports that a user cannot be delivered to, typically
	// because they are no longer a guild member or have DMs closed.
	ErrUnreachable = errors.New("platform: user unreachable")
)

// Message is one message on a text surface, as seen by the reconciliation
// scan. Content is the rendered body; the scan only ever inspects it for an
// embedded room reference.
type Message struct {
	ID      string
	Content string
}

// Client is the collaborator surface. Implementations own rate limiting and
// retries; the engine treats every call as best-effort asynchronous I/O.
type Client interface {
	// SendMessage posts content to a text surface and returns the new
	// message id.
	SendMessage(ctx context.Context, channelID, content string) (string, error)

	// EditMessage replaces the content of an existing message in place.
	// Returns ErrNotFound when the message no longer exists.
	EditMessage(ctx context.Context, channelID, messageID, content string) error

	// DeleteMessage removes a message. Returns ErrNotFound when it is
	// already gone.
	DeleteMessage(ctx context.Context, channelID, messageID string) error

	// MoveMemberToRoom moves a user into a session room. Returns
	// ErrForbidden when the platform denies the move.
	MoveMemberToRoom(ctx context.Context, userID, roomID string) error

	// DirectMessage delivers a DM. Returns ErrUnreachable when the user
	// cannot be reached.
	DirectMessage(ctx context.Context, userID, content string) error

	// ListPresentMembers returns the users currently inside a room.
	ListPresentMembers(ctx context.Context, roomID string) ([]string, error)

	// IsMember reports whether the user still belongs to the guild.
	IsMember(ctx context.Context, userID string) (bool, error)

	// RoomExists reports whether the backing room still exists.
	RoomExists(ctx context.Context, roomID string) (bool, error)

	// ListBotMessages returns up to limit of this bot's own messages on a
	// text surface, newest first. Used by the advertisement reconciliation
	// scan.
	ListBotMessages(ctx context.Context, channelID string, limit int) ([]Message, error)
}
