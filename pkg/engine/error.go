package engine

import "errors"

var (
	ErrQueueFull = errors.New("engine inbound queue is full")
	ErrClosed    = errors.New("engine is closed")

	errAlreadyRunning        = errors.New("engine is already running")
	errUnknownOverflowPolicy = errors.New("unknown overflow policy")
)
