package sim

import "fmt"

// waiter is a process parked on an Event under a specific wait token.
type waiter struct {
	proc  *Process
	token uint64
}

// Event is a condition processes can wait on. Notifying it wakes the processes
// waiting at that moment; notifications are not queued, so a process that starts
// waiting afterwards is not woken retroactively.
type Event struct {
	name    string
	sched   *Scheduler
	waiters []waiter
	pending *timer // at most one timed notification
}

// NewEvent creates an Event bound to this scheduler.
func (s *Scheduler) NewEvent(name string) *Event {
	return &Event{name: name, sched: s}
}

// Name returns the event's name.
func (e *Event) Name() string {
	return e.name
}

// NumWaiters returns how many processes are currently parked on e.
func (e *Event) NumWaiters() int {
	n := 0
	for _, w := range e.waiters {
		if w.proc.state == StateBlocked && w.proc.token == w.token {
			n++
		}
	}
	return n
}

// Pending reports whether a timed notification is scheduled, and when.
func (e *Event) Pending() (Time, bool) {
	if e.pending == nil {
		return 0, false
	}
	return e.pending.at, true
}

// Notify wakes every current waiter in the present instant. They run in the next
// delta cycle, in the order they started waiting. Any pending timed notification
// is dropped.
func (e *Event) Notify() {
	e.Cancel()
	e.trigger()
}

// NotifyAfter schedules a notification d from now. If a notification is already
// pending, the earlier of the two is kept. NotifyAfter(0) is Notify().
func (e *Event) NotifyAfter(d Time) {
	if d < 0 {
		panic(fmt.Sprintf("Event %q: negative notify delay %s", e.name, d))
	}
	if d == 0 {
		e.Notify()
		return
	}
	at := e.sched.deadline(d)
	if e.pending != nil {
		if e.pending.at <= at {
			return
		}
		e.pending.canceled = true
	}
	e.pending = &timer{at: at, event: e}
	e.sched.addTimer(e.pending)
}

// Cancel drops a pending timed notification, if any.
func (e *Event) Cancel() {
	if e.pending != nil {
		e.pending.canceled = true
		e.pending = nil
	}
}

func (e *Event) addWaiter(p *Process, token uint64) {
	// drop this process's stale registrations from earlier timed-out waits
	kept := e.waiters[:0]
	for _, w := range e.waiters {
		if w.proc != p {
			kept = append(kept, w)
		}
	}
	e.waiters = append(kept, waiter{proc: p, token: token})
}

func (e *Event) trigger() {
	waiters := e.waiters
	e.waiters = nil
	for _, w := range waiters {
		e.sched.wake(w.proc, w.token, true)
	}
}
