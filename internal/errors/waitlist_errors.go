package errors

import "errors"

var (
	ErrInvalidClass = errors.New("invalid class")
	ErrInvalidLevel = errors.New("level must be a number between 1 and 9999")

	ErrQueueFull   = errors.New("queue is full")
	ErrNoQueue     = errors.New("no queue is active for this room")
	ErrQueueExists = errors.New("a queue already exists for this room")

	ErrNotHost    = errors.New("only the current host can perform this action")
	ErrNotQueued  = errors.New("member is not in the queue")
	ErrNotPresent = errors.New("member is not present in the room")
)
