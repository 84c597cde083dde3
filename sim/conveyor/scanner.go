package conveyor

import (
	"math/rand"

	"github.com/inference-sim/conveyor-sim/sim"
	"github.com/inference-sim/conveyor-sim/sim/trace"
)

// Scanner models a person scanning bags and placing them on the belt.
// It starts off and only emits bags after a TurnOn command.
type Scanner struct {
	control *sim.Channel[ControlPacket]
	status  *sim.Channel[ScannerStatusPacket]
	rng     *rand.Rand
	trace   *trace.SimulationTrace

	granularity sim.Time
	steps       int64 // arrival delay is granularity × (1 + rng.Int63n(steps))

	on      bool
	lastID  int32
	scanned uint64
}

// NewScanner returns a scanner reading commands from control and writing bags to status.
// It panics if cfg does not pass Validate.
func NewScanner(cfg Config, rng *rand.Rand, control *sim.Channel[ControlPacket], status *sim.Channel[ScannerStatusPacket]) *Scanner {
	mustValidate("NewScanner", cfg)
	return &Scanner{
		control:     control,
		status:      status,
		rng:         rng,
		granularity: cfg.ArrivalGranularity,
		steps:       int64(cfg.ArrivalVariance / cfg.ArrivalGranularity),
	}
}

// On reports whether the scanner is placing bags.
func (s *Scanner) On() bool { return s.on }

// Scanned returns the number of bags placed on the line.
func (s *Scanner) Scanned() uint64 { return s.scanned }

// LastID returns the last emitted bag ID, or 0 before the first bag.
func (s *Scanner) LastID() int32 { return s.lastID }

// Run implements sim.Runner. It never returns on its own.
func (s *Scanner) Run(p *sim.Process) {
	for {
		p.Wait(s.nextDelay())

		if pkt, ok := s.control.TryRead(); ok {
			applyCommand(p, "scanner", pkt, &s.on, s.trace)
		}
		if !s.on {
			continue
		}

		bag := ScannerStatusPacket{Timestamp: p.Now(), BagID: s.nextID()}
		if err := s.status.Write(p, bag); err != nil {
			p.Log().Warnf("scanner status channel unusable, stopping: %v", err)
			return
		}
		s.scanned++
	}
}

func (s *Scanner) nextDelay() sim.Time {
	return s.granularity * sim.Time(1+s.rng.Int63n(s.steps))
}

// nextID returns the next bag ID. IDs restart at 1 when the counter overflows.
func (s *Scanner) nextID() int32 {
	s.lastID++
	if s.lastID <= 0 {
		s.lastID = 1
	}
	return s.lastID
}

// applyCommand switches *on according to pkt. Unknown commands are logged and dropped.
func applyCommand(p *sim.Process, component string, pkt ControlPacket, on *bool, tr *trace.SimulationTrace) {
	log := p.Log().WithField("command", pkt.Msg)
	if !pkt.Msg.Valid() {
		log.Warnf("%s dropped unknown control packet (data=%d)", component, pkt.Data)
		return
	}
	next := pkt.Msg == TurnOn
	if next == *on {
		log.Debugf("%s already %s", component, onOff(next))
		return
	}
	*on = next
	log.Infof("%s turning %s", component, onOff(next))
	tr.RecordTransition(trace.TransitionRecord{Clock: int64(p.Now()), Component: component, On: next})
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
