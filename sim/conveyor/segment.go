package conveyor

import (
	"math/rand"

	"github.com/inference-sim/conveyor-sim/sim"
	"github.com/inference-sim/conveyor-sim/sim/trace"
)

// sensor is a bounded random walk around a mean value.
type sensor struct {
	min, max, value int
}

func newSensor(cfg SensorConfig) sensor {
	return sensor{min: cfg.Mean - cfg.Variance, max: cfg.Mean + cfg.Variance, value: cfg.Mean}
}

// step moves the reading by -1, 0 or +1 and clamps it to [min, max].
func (s *sensor) step(rng *rand.Rand) int {
	s.value += rng.Intn(3) - 1
	if s.value < s.min {
		s.value = s.min
	}
	if s.value > s.max {
		s.value = s.max
	}
	return s.value
}

// Segment models one conveyor segment: a belt with an encoder and two sensors
// reporting to the control system every ReportInterval while running.
type Segment struct {
	id      int
	name    string
	control *sim.Channel[ControlPacket]
	status  *sim.Channel[SegmentStatusPacket]
	rng     *rand.Rand
	trace   *trace.SimulationTrace

	interval  sim.Time
	increment uint32

	on          bool
	count       uint32
	temperature sensor
	vibration   sensor
	reports     uint64
}

// NewSegment returns segment id reading commands from control and reporting on status.
// It panics if cfg does not pass Validate.
func NewSegment(id int, cfg Config, rng *rand.Rand, control *sim.Channel[ControlPacket], status *sim.Channel[SegmentStatusPacket]) *Segment {
	mustValidate("NewSegment", cfg)
	return &Segment{
		id:          id,
		name:        sim.SubsystemSegment(id),
		control:     control,
		status:      status,
		rng:         rng,
		interval:    cfg.ReportInterval,
		increment:   cfg.Increment(),
		temperature: newSensor(cfg.Temperature),
		vibration:   newSensor(cfg.Vibration),
	}
}

// ID returns the segment index.
func (g *Segment) ID() int { return g.id }

// On reports whether the belt is running.
func (g *Segment) On() bool { return g.on }

// EncoderCount returns the current encoder count.
func (g *Segment) EncoderCount() uint32 { return g.count }

// Reports returns the number of status packets written.
func (g *Segment) Reports() uint64 { return g.reports }

// Run implements sim.Runner. It never returns on its own.
func (g *Segment) Run(p *sim.Process) {
	// segments start out of phase with each other
	p.Wait(sim.Time(g.rng.Int63n(int64(g.interval))))

	for {
		p.Wait(g.interval)

		if pkt, ok := g.control.TryRead(); ok {
			applyCommand(p, g.name, pkt, &g.on, g.trace)
		}
		if !g.on {
			continue
		}

		g.count += g.increment
		report := SegmentStatusPacket{
			Timestamp:    p.Now(),
			SegmentID:    g.id,
			EncoderCount: g.count,
			Temperature:  g.temperature.step(g.rng),
			Vibration:    g.vibration.step(g.rng),
		}
		if err := g.status.Write(p, report); err != nil {
			p.Log().Warnf("%s status channel unusable, stopping: %v", g.name, err)
			return
		}
		g.reports++
	}
}
