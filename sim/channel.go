package sim

import "fmt"

// Channel is a bounded FIFO between processes. Writers block while it is full,
// readers block while it is empty, so it can never hold more than Cap() messages.
//
// Messages are passed by value. Once written, a message belongs to the channel and
// then to whichever process reads it; the writer keeps no reference.
type Channel[T any] struct {
	name  string
	sched *Scheduler

	buf  []T
	head int
	used int

	dataWritten *Event
	dataRead    *Event

	closed  bool
	written uint64
	read    uint64
}

// NewChannel creates a channel holding at most capacity messages.
func NewChannel[T any](s *Scheduler, name string, capacity int) (*Channel[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("channel %q: %w (got %d)", name, ErrInvalidCapacity, capacity)
	}
	return &Channel[T]{
		name:        name,
		sched:       s,
		buf:         make([]T, capacity),
		dataWritten: s.NewEvent(name + ".data_written"),
		dataRead:    s.NewEvent(name + ".data_read"),
	}, nil
}

// Name returns the channel's name.
func (c *Channel[T]) Name() string { return c.name }

// Cap returns the fixed capacity.
func (c *Channel[T]) Cap() int { return len(c.buf) }

// NumAvailable returns how many messages are queued. It never blocks.
func (c *Channel[T]) NumAvailable() int { return c.used }

// NumFree returns how many slots are free.
func (c *Channel[T]) NumFree() int { return len(c.buf) - c.used }

// Closed reports whether Close has been called.
func (c *Channel[T]) Closed() bool { return c.closed }

// Stats returns the number of messages written and read since creation or Reset.
func (c *Channel[T]) Stats() (written, read uint64) { return c.written, c.read }

// Write appends msg, suspending p while the channel is full.
// It fails only if the channel is closed.
func (c *Channel[T]) Write(p *Process, msg T) error {
	for c.used == len(c.buf) && !c.closed {
		p.WaitEvent(c.dataRead)
	}
	if c.closed {
		return fmt.Errorf("write to %q: %w", c.name, ErrClosed)
	}
	c.buf[(c.head+c.used)%len(c.buf)] = msg
	c.used++
	c.written++
	c.dataWritten.Notify()
	return nil
}

// Read removes and returns the oldest message, suspending p while the channel is
// empty. Once the channel is closed and drained it returns ErrClosed.
func (c *Channel[T]) Read(p *Process) (T, error) {
	for c.used == 0 {
		if c.closed {
			var zero T
			return zero, fmt.Errorf("read from %q: %w", c.name, ErrClosed)
		}
		p.WaitEvent(c.dataWritten)
	}
	return c.pop(), nil
}

// TryRead removes and returns the oldest message if there is one. It never blocks.
func (c *Channel[T]) TryRead() (T, bool) {
	if c.used == 0 {
		var zero T
		return zero, false
	}
	return c.pop(), true
}

// Reset discards every queued message and zeroes the counters.
// Blocked writers are woken since space is now free.
func (c *Channel[T]) Reset() {
	var zero T
	for i := range c.buf {
		c.buf[i] = zero
	}
	c.head, c.used = 0, 0
	c.written, c.read = 0, 0
	c.dataRead.Notify()
}

// Close marks the channel closed. Queued messages can still be read; blocked
// writers and readers wake and get ErrClosed.
func (c *Channel[T]) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.dataRead.Notify()
	c.dataWritten.Notify()
}

func (c *Channel[T]) pop() T {
	var zero T
	msg := c.buf[c.head]
	c.buf[c.head] = zero
	c.head = (c.head + 1) % len(c.buf)
	c.used--
	c.read++
	c.dataRead.Notify()
	return msg
}
