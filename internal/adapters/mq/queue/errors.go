package queue

import "errors"

// Sentinel enqueue failures.
var (
	ErrQueueFull   = errors.New("refresh queue is full")
	ErrQueueClosed = errors.New("refresh queue is closed")
)
