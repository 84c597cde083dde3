// sim/scheduler.go
package sim

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Outcome says why Scheduler.Run returned.
type Outcome int

const (
	// OutcomeIdle: every process terminated and nothing is pending.
	OutcomeIdle Outcome = iota
	// OutcomeStopped: Stop was called.
	OutcomeStopped
	// OutcomeDeadlock: processes are blocked but no timer can ever wake them.
	OutcomeDeadlock
	// OutcomeHorizon: the next timer lies beyond the configured horizon.
	OutcomeHorizon
	// OutcomeCanceled: the context passed to Run was canceled.
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomeStopped:
		return "stopped"
	case OutcomeDeadlock:
		return "deadlock"
	case OutcomeHorizon:
		return "horizon"
	case OutcomeCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ProcessFailure records a process that terminated by panicking.
type ProcessFailure struct {
	Process string
	Time    Time
	Err     error
}

// Result summarises a finished run.
type Result struct {
	Outcome     Outcome
	EndTime     Time
	DeltaCycles uint64 // batches of process activations, across all instants
	Activations uint64 // times a process was resumed
	Failures    []ProcessFailure
}

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithLogger sets the logger used by the scheduler and handed to processes.
// A nil logger discards everything.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Scheduler) error {
		if log == nil {
			discard := logrus.New()
			discard.SetOutput(io.Discard)
			log = discard
		}
		s.log = log
		return nil
	}
}

// WithHorizon ends the run once the clock would pass h.
func WithHorizon(h Time) Option {
	return func(s *Scheduler) error {
		if h < 0 {
			return fmt.Errorf("%w: %s", ErrInvalidHorizon, h)
		}
		s.horizon = h
		return nil
	}
}

// Scheduler is the cooperative simulation kernel. It owns the virtual clock, the
// runnable queue and the pending timers, and runs processes one at a time.
//
// Within one instant, processes run in delta cycles: the processes runnable at the
// start of a cycle run in the order they became runnable, and anything they wake
// runs in the following cycle at the same instant. Only when no process is runnable
// does the clock advance to the next timer.
//
// A Scheduler is not safe for concurrent use; independent Schedulers are.
type Scheduler struct {
	clock    Clock
	horizon  Time
	log      logrus.FieldLogger
	procs    []*Process
	runnable []*Process
	timers   timerQueue
	seq      uint64
	current  *Process
	yield    chan struct{}

	stopRequested bool
	hasRun        bool
	done          bool

	deltaCycles uint64
	activations uint64
	failures    []ProcessFailure
}

// NewScheduler creates a Scheduler at time zero.
func NewScheduler(opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		horizon: MaxTime,
		log:     logrus.StandardLogger(),
		yield:   make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Now returns the current virtual time.
func (s *Scheduler) Now() Time {
	return s.clock.Now()
}

// Processes returns every process registered so far, in registration order.
func (s *Scheduler) Processes() []*Process {
	return s.procs
}

// Spawn registers r as a new process, runnable at the current instant.
// It may be called before Run or from inside a running process.
func (s *Scheduler) Spawn(name string, r Runner) *Process {
	if s.done {
		panic("Scheduler.Spawn() called after Run() returned")
	}
	p := &Process{
		id:     len(s.procs),
		name:   name,
		runner: r,
		sched:  s,
		resume: make(chan bool),
	}
	s.procs = append(s.procs, p)
	s.makeRunnable(p)
	return p
}

// SpawnFunc is Spawn for a plain function.
func (s *Scheduler) SpawnFunc(name string, fn func(p *Process)) *Process {
	return s.Spawn(name, RunnerFunc(fn))
}

// Stop asks Run to return once the current delta cycle finishes.
// The calling process keeps running until its next suspension point.
func (s *Scheduler) Stop() {
	s.stopRequested = true
}

// Run executes the simulation until it stops, idles, deadlocks, reaches the
// horizon or ctx is canceled. Deadlock returns ErrDeadlock and cancellation
// returns ctx.Err(); the Result is filled in either way.
// Panics if called more than once.
func (s *Scheduler) Run(ctx context.Context) (Result, error) {
	if s.hasRun {
		panic("Scheduler.Run() called more than once")
	}
	s.hasRun = true
	defer s.shutdown()

	for {
		for len(s.runnable) > 0 {
			batch := s.runnable
			s.runnable = nil
			s.deltaCycles++
			for _, p := range batch {
				s.dispatch(p)
			}
			if s.stopRequested {
				return s.finish(OutcomeStopped, nil)
			}
			if err := ctx.Err(); err != nil {
				return s.finish(OutcomeCanceled, err)
			}
		}

		next := s.timers.peek()
		if next == nil {
			if s.anyBlocked() {
				return s.finish(OutcomeDeadlock, ErrDeadlock)
			}
			return s.finish(OutcomeIdle, nil)
		}
		if next.at > s.horizon {
			return s.finish(OutcomeHorizon, nil)
		}

		s.clock.advance(next.at)
		s.log.Debugf("[%s] advancing clock", s.clock.Now())
		for t := s.timers.popDue(s.clock.Now()); t != nil; t = s.timers.popDue(s.clock.Now()) {
			s.fire(t)
		}
	}
}

func (s *Scheduler) dispatch(p *Process) {
	if p.state != StateRunnable {
		return
	}
	s.current = p
	p.state = StateRunning
	s.activations++
	if !p.started {
		p.started = true
		go p.main()
	} else {
		p.resume <- false
	}
	<-s.yield
	s.current = nil
}

func (s *Scheduler) fire(t *timer) {
	if t.event != nil {
		if t.event.pending == t {
			t.event.pending = nil
		}
		t.event.trigger()
		return
	}
	s.wake(t.proc, t.token, false)
}

// wake makes p runnable if it is still parked on the wait identified by token.
func (s *Scheduler) wake(p *Process, token uint64, notified bool) bool {
	if p.state != StateBlocked || p.token != token {
		return false
	}
	p.notified = notified
	if p.timeout != nil {
		p.timeout.canceled = true
		p.timeout = nil
	}
	s.makeRunnable(p)
	return true
}

func (s *Scheduler) makeRunnable(p *Process) {
	p.state = StateRunnable
	s.runnable = append(s.runnable, p)
}

func (s *Scheduler) addTimer(t *timer) {
	s.seq++
	t.seq = s.seq
	s.timers.schedule(t)
}

// deadline returns now+d, refusing to overflow the clock.
func (s *Scheduler) deadline(d Time) Time {
	now := s.clock.Now()
	if d > MaxTime-now {
		panic(fmt.Sprintf("Scheduler: %s after %s overflows the virtual clock", d, now))
	}
	return now + d
}

func (s *Scheduler) anyBlocked() bool {
	for _, p := range s.procs {
		if p.state == StateBlocked {
			return true
		}
	}
	return false
}

func (s *Scheduler) recordFailure(p *Process) {
	s.failures = append(s.failures, ProcessFailure{Process: p.name, Time: s.clock.Now(), Err: p.err})
	s.log.WithFields(logrus.Fields{
		"process":  p.name,
		"sim_time": s.clock.Now().String(),
	}).Errorf("process failed: %v", p.err)
}

func (s *Scheduler) finish(outcome Outcome, err error) (Result, error) {
	res := Result{
		Outcome:     outcome,
		EndTime:     s.clock.Now(),
		DeltaCycles: s.deltaCycles,
		Activations: s.activations,
		Failures:    s.failures,
	}
	s.log.Debugf("[%s] simulation ended: %s after %d delta cycles", res.EndTime, outcome, res.DeltaCycles)
	return res, err
}

// shutdown unwinds every process goroutine still parked in a suspension point.
func (s *Scheduler) shutdown() {
	for _, p := range s.procs {
		if p.state == StateTerminated {
			continue
		}
		if !p.started {
			p.state = StateTerminated
			continue
		}
		s.current = p
		p.resume <- true
		<-s.yield
		s.current = nil
	}
	s.runnable = nil
	s.done = true
}
