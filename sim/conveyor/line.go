package conveyor

import (
	"context"
	"fmt"

	"github.com/inference-sim/conveyor-sim/sim"
	"github.com/inference-sim/conveyor-sim/sim/metrics"
	"github.com/inference-sim/conveyor-sim/sim/trace"
)

// LineOption configures optional collaborators of a Line.
type LineOption func(*Line)

// WithTrace records commands, transitions and packets into st.
func WithTrace(st *trace.SimulationTrace) LineOption {
	return func(l *Line) { l.trace = st }
}

// WithMetrics publishes line counters through c.
func WithMetrics(c *metrics.Collector) LineOption {
	return func(l *Line) { l.metrics = c }
}

// WithSchedulerOptions passes opts to the scheduler created by Run.
// NewLine ignores it.
func WithSchedulerOptions(opts ...sim.Option) LineOption {
	return func(l *Line) { l.schedOpts = append(l.schedOpts, opts...) }
}

// Line is a wired conveyor line: one scanner, N segments and a control system
// spawned on a scheduler.
type Line struct {
	cfg       Config
	sched     *sim.Scheduler
	trace     *trace.SimulationTrace
	metrics   *metrics.Collector
	schedOpts []sim.Option

	Scanner  *Scanner
	Segments []*Segment
	Control  *Control
}

// Report summarizes a finished run.
type Report struct {
	Result         sim.Result
	BagsScanned    uint64 // bags placed on the line by the scanner
	BagsReceived   int    // scanner packets consumed by the control system
	LastBagID      int32
	BagCount       int
	ScannerOn      bool // admission state held by the control system
	TrackerLen     int
	CommandsSent   int
	SegmentReports int
	Iterations     int64
}

// NewLine validates cfg, creates the channels between the components and spawns
// the scanner, the segments and the control system on s, in that order.
func NewLine(s *sim.Scheduler, cfg Config, opts ...LineOption) (*Line, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := &Line{cfg: cfg, sched: s}
	for _, opt := range opts {
		opt(l)
	}

	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))

	scannerControl, err := sim.NewChannel[ControlPacket](s, "scanner_control", cfg.ChannelCapacity)
	if err != nil {
		return nil, err
	}
	scannerStatus, err := sim.NewChannel[ScannerStatusPacket](s, "scanner_status", cfg.ChannelCapacity)
	if err != nil {
		return nil, err
	}
	l.Scanner = NewScanner(cfg, rng.ForSubsystem(sim.SubsystemScanner), scannerControl, scannerStatus)
	l.Scanner.trace = l.trace

	segmentControl := make([]*sim.Channel[ControlPacket], cfg.Segments)
	segmentStatus := make([]*sim.Channel[SegmentStatusPacket], cfg.Segments)
	for i := 0; i < cfg.Segments; i++ {
		name := sim.SubsystemSegment(i)
		if segmentControl[i], err = sim.NewChannel[ControlPacket](s, name+"_control", cfg.ChannelCapacity); err != nil {
			return nil, err
		}
		if segmentStatus[i], err = sim.NewChannel[SegmentStatusPacket](s, name+"_status", cfg.ChannelCapacity); err != nil {
			return nil, err
		}
		seg := NewSegment(i, cfg, rng.ForSubsystem(name), segmentControl[i], segmentStatus[i])
		seg.trace = l.trace
		l.Segments = append(l.Segments, seg)
	}

	l.Control = NewControl(cfg, scannerControl, scannerStatus, segmentControl, segmentStatus)
	l.Control.trace = l.trace
	l.Control.metrics = l.metrics

	s.Spawn("scanner", l.Scanner)
	for _, seg := range l.Segments {
		s.Spawn(seg.name, seg)
	}
	s.Spawn("control", l.Control)
	return l, nil
}

// Report builds the run summary from the scheduler result and publishes the
// scheduler statistics to the metrics collector.
func (l *Line) Report(res sim.Result) Report {
	l.metrics.ObserveResult(res)
	r := Report{
		Result:       res,
		BagsScanned:  l.Scanner.Scanned(),
		BagsReceived: l.Control.Received(),
		LastBagID:    l.Scanner.LastID(),
		BagCount:     l.Control.Admission().Count(),
		ScannerOn:    l.Control.Admission().On(),
		TrackerLen:   l.Control.Tracker().Len(),
		CommandsSent: l.Control.CommandsSent(),
		Iterations:   l.Control.Iterations(),

		SegmentReports: l.Control.SegmentReports(),
	}
	return r
}

// Run builds a scheduler and a line from cfg and runs it to completion.
func Run(ctx context.Context, cfg Config, opts ...LineOption) (Report, error) {
	var probe Line
	for _, opt := range opts {
		opt(&probe)
	}
	s, err := sim.NewScheduler(probe.schedOpts...)
	if err != nil {
		return Report{}, fmt.Errorf("creating scheduler: %w", err)
	}
	line, err := NewLine(s, cfg, opts...)
	if err != nil {
		return Report{}, err
	}
	res, err := s.Run(ctx)
	return line.Report(res), err
}
