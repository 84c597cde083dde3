package sim

import "errors"

var (
	// ErrDeadlock is returned by Scheduler.Run when nothing is runnable, no timer is
	// pending and at least one process is still blocked.
	ErrDeadlock = errors.New("simulation deadlocked: processes blocked with no pending timers")

	// ErrClosed is returned when writing to a closed channel, or reading from one
	// that is closed and drained.
	ErrClosed = errors.New("channel closed")

	// ErrInvalidCapacity is returned when a channel is built with capacity < 1.
	ErrInvalidCapacity = errors.New("channel capacity must be at least 1")

	// ErrInvalidHorizon is returned for a negative simulation horizon.
	ErrInvalidHorizon = errors.New("simulation horizon must be non-negative")
)
