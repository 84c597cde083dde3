package sim

import (
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
)

// Runner is anything that can act as a simulated process. Run is called once,
// on the process's own goroutine, and may block only through the Process handle.
// Returning from Run terminates the process.
type Runner interface {
	Run(p *Process)
}

// RunnerFunc adapts a plain function to Runner.
type RunnerFunc func(p *Process)

// Run calls f(p).
func (f RunnerFunc) Run(p *Process) {
	f(p)
}

// ProcessState is the scheduling state of a Process.
type ProcessState int

const (
	StateRunnable ProcessState = iota
	StateRunning
	StateBlocked
	StateTerminated
)

func (s ProcessState) String() string {
	switch s {
	case StateRunnable:
		return "runnable"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("ProcessState(%d)", int(s))
	}
}

// Process is the handle a Runner uses to interact with virtual time.
// Every blocking call must be made from the process's own Run.
//
// Each process runs on its own goroutine, but the scheduler resumes exactly one at
// a time and waits for it to suspend, so process code never runs concurrently with
// other process code or with the scheduler.
type Process struct {
	id     int
	name   string
	runner Runner
	sched  *Scheduler

	state    ProcessState
	token    uint64 // identifies the current wait; stale wake-ups carry an older token
	notified bool   // last wake-up came from an event rather than a timer
	timeout  *timer // pending timeout of WaitEventTimeout
	started  bool
	killed   bool
	resume   chan bool // true asks the goroutine to unwind
	err      error
}

// ID returns the process's registration index.
func (p *Process) ID() int { return p.id }

// Name returns the process's name.
func (p *Process) Name() string { return p.name }

// State returns the current scheduling state.
func (p *Process) State() ProcessState { return p.state }

// Err returns the failure that terminated the process, or nil.
func (p *Process) Err() error { return p.err }

// Now returns the current virtual time.
func (p *Process) Now() Time { return p.sched.Now() }

// Scheduler returns the scheduler that owns p.
func (p *Process) Scheduler() *Scheduler { return p.sched }

// Log returns a logger tagged with the process name and the current virtual time.
func (p *Process) Log() logrus.FieldLogger {
	return p.sched.log.WithFields(logrus.Fields{
		"process":  p.name,
		"sim_time": p.sched.Now().String(),
	})
}

// Wait suspends p for d. It resumes exactly when the clock reaches now+d.
// Wait(0) yields to the next delta cycle of the same instant.
func (p *Process) Wait(d Time) {
	p.mustBeCurrent("Wait")
	if d < 0 {
		panic(fmt.Sprintf("Process %q: negative wait %s", p.name, d))
	}
	s := p.sched
	p.token++
	if d == 0 {
		s.makeRunnable(p)
		p.suspend()
		return
	}
	s.addTimer(&timer{at: s.deadline(d), proc: p, token: p.token})
	p.block()
}

// Yield gives other processes runnable at this instant a chance to run.
func (p *Process) Yield() {
	p.Wait(0)
}

// WaitEvent suspends p until e is notified.
func (p *Process) WaitEvent(e *Event) {
	p.mustBeCurrent("WaitEvent")
	p.token++
	e.addWaiter(p, p.token)
	p.block()
}

// WaitEventTimeout suspends p until e is notified or d elapses, whichever comes
// first. It reports whether the event fired.
func (p *Process) WaitEventTimeout(e *Event, d Time) bool {
	p.mustBeCurrent("WaitEventTimeout")
	if d < 0 {
		panic(fmt.Sprintf("Process %q: negative timeout %s", p.name, d))
	}
	s := p.sched
	p.token++
	e.addWaiter(p, p.token)
	p.timeout = &timer{at: s.deadline(d), proc: p, token: p.token}
	s.addTimer(p.timeout)
	p.block()
	return p.notified
}

func (p *Process) block() {
	p.state = StateBlocked
	p.notified = false
	p.suspend()
}

// suspend hands control back to the scheduler and parks until resumed.
func (p *Process) suspend() {
	p.sched.yield <- struct{}{}
	if kill := <-p.resume; kill {
		p.killed = true
		runtime.Goexit()
	}
}

func (p *Process) mustBeCurrent(op string) {
	if p.sched.current != p {
		panic(fmt.Sprintf("Process %q: %s called outside its own process", p.name, op))
	}
}

// main is the body of the process goroutine.
func (p *Process) main() {
	defer func() {
		r := recover()
		if r != nil && !p.killed {
			p.fail(r)
		}
		p.state = StateTerminated
		p.sched.yield <- struct{}{}
	}()
	p.runner.Run(p)
}

func (p *Process) fail(r any) {
	if err, ok := r.(error); ok {
		p.err = err
	} else {
		p.err = fmt.Errorf("%v", r)
	}
	p.sched.recordFailure(p)
}
