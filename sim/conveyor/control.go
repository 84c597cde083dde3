package conveyor

import (
	"fmt"
	"strconv"

	"github.com/inference-sim/conveyor-sim/sim"
	"github.com/inference-sim/conveyor-sim/sim/metrics"
	"github.com/inference-sim/conveyor-sim/sim/trace"
)

const scannerTarget = "scanner"

// Control is the control system. It turns the scanner and every segment on,
// then polls their status channels once per ControlRate, keeps the bag tracker
// and drives admission control. It stops the scheduler when its iteration
// budget runs out.
type Control struct {
	scannerControl *sim.Channel[ControlPacket]
	scannerStatus  *sim.Channel[ScannerStatusPacket]
	segmentControl []*sim.Channel[ControlPacket]
	segmentStatus  []*sim.Channel[SegmentStatusPacket]

	admission *Admission
	tracker   *BagTracker
	trace     *trace.SimulationTrace
	metrics   *metrics.Collector

	rate    sim.Time
	budget  int64
	transit sim.Time

	received       int
	segmentReports int
	commandsSent   int
	lastScan       sim.Time
	iterations     int64
}

// NewControl returns a control system for the given channels. segmentControl
// and segmentStatus are indexed by segment ID and must have the same length.
// It panics if cfg does not pass Validate.
func NewControl(cfg Config,
	scannerControl *sim.Channel[ControlPacket], scannerStatus *sim.Channel[ScannerStatusPacket],
	segmentControl []*sim.Channel[ControlPacket], segmentStatus []*sim.Channel[SegmentStatusPacket],
) *Control {
	mustValidate("NewControl", cfg)
	if len(segmentControl) != len(segmentStatus) {
		panic(fmt.Sprintf("NewControl: %d segment control channels but %d status channels", len(segmentControl), len(segmentStatus)))
	}
	return &Control{
		scannerControl: scannerControl,
		scannerStatus:  scannerStatus,
		segmentControl: segmentControl,
		segmentStatus:  segmentStatus,
		admission:      NewAdmission(cfg.MaxBags, cfg.Hysteresis),
		tracker:        NewBagTracker(),
		rate:           cfg.ControlRate,
		budget:         cfg.Iterations,
		transit:        cfg.BagTransitTime,
	}
}

// Admission returns the admission state machine.
func (c *Control) Admission() *Admission { return c.admission }

// Tracker returns the bag tracker.
func (c *Control) Tracker() *BagTracker { return c.tracker }

// Received returns the number of scanner status packets consumed.
func (c *Control) Received() int { return c.received }

// SegmentReports returns the number of segment status packets consumed.
func (c *Control) SegmentReports() int { return c.segmentReports }

// CommandsSent returns the number of control packets written.
func (c *Control) CommandsSent() int { return c.commandsSent }

// Iterations returns the number of completed control loop iterations.
func (c *Control) Iterations() int64 { return c.iterations }

// Run implements sim.Runner.
func (c *Control) Run(p *sim.Process) {
	c.send(p, c.scannerControl, scannerTarget, TurnOn, "startup")
	for i, ch := range c.segmentControl {
		c.send(p, ch, sim.SubsystemSegment(i), TurnOn, "startup")
	}
	c.metrics.SetAdmission(c.admission.Count(), c.admission.On())

	for c.iterations < c.budget {
		p.Wait(c.rate)

		if pkt, ok := c.scannerStatus.TryRead(); ok {
			c.onScan(p, pkt)
		}
		for _, ch := range c.segmentStatus {
			if pkt, ok := ch.TryRead(); ok {
				c.onSegmentReport(p, pkt)
			}
		}
		c.iterations++
	}

	p.Log().Infof("control loop budget of %d iterations exhausted, stopping", c.budget)
	p.Scheduler().Stop()
}

func (c *Control) onScan(p *sim.Process, pkt ScannerStatusPacket) {
	c.received++
	c.tracker.Insert(pkt.BagID, TrackedBag{Status: pkt})

	var interval sim.Time
	if c.received > 1 {
		interval = pkt.Timestamp - c.lastScan
	}
	c.lastScan = pkt.Timestamp
	c.metrics.RecordScan(interval)
	c.trace.RecordScan(trace.ScanRecord{Clock: int64(pkt.Timestamp), BagID: pkt.BagID})

	cmd, changed := c.admission.BagArrived()
	p.Log().WithField("bag_id", pkt.BagID).Infof("bag scanned at %s, bag count %d", pkt.Timestamp, c.admission.Count())
	if changed {
		reason := fmt.Sprintf("bag count %d >= %d", c.admission.Count(), c.admission.maxBags)
		c.send(p, c.scannerControl, scannerTarget, cmd, reason)
	}
	c.metrics.SetAdmission(c.admission.Count(), c.admission.On())
}

func (c *Control) onSegmentReport(p *sim.Process, pkt SegmentStatusPacket) {
	c.segmentReports++
	c.metrics.RecordSegmentReport(strconv.Itoa(pkt.SegmentID))
	p.Log().WithField("segment", pkt.SegmentID).Infof("encoder=%d temperature=%d vibration=%d",
		pkt.EncoderCount, pkt.Temperature, pkt.Vibration)

	if c.transit > 0 {
		c.evictDelivered(p)
	}

	oldest, tracked := c.tracker.Oldest()
	c.trace.RecordSegmentReport(trace.SegmentReportRecord{
		Clock:        int64(pkt.Timestamp),
		SegmentID:    pkt.SegmentID,
		EncoderCount: pkt.EncoderCount,
		Temperature:  pkt.Temperature,
		Vibration:    pkt.Vibration,
		OldestBag:    oldest,
		HasOldest:    tracked,
	})

	if cmd, changed := c.admission.Recheck(); changed {
		reason := fmt.Sprintf("bag count %d < %d", c.admission.Count(), c.admission.maxBags-c.admission.hysteresis)
		c.send(p, c.scannerControl, scannerTarget, cmd, reason)
	}
	// exits lower the count without necessarily flipping the switch
	c.metrics.SetAdmission(c.admission.Count(), c.admission.On())
}

// evictDelivered removes bags, oldest first, that were scanned at least the
// transit time ago.
func (c *Control) evictDelivered(p *sim.Process) {
	now := p.Now()
	for {
		id, ok := c.tracker.Oldest()
		if !ok {
			return
		}
		bag, _ := c.tracker.Get(id)
		if now-bag.Status.Timestamp < c.transit {
			return
		}
		c.tracker.Remove(id)
		c.admission.BagExited()
		c.metrics.RecordExit()
		p.Log().WithField("bag_id", id).Debugf("bag delivered, bag count %d", c.admission.Count())
	}
}

func (c *Control) send(p *sim.Process, ch *sim.Channel[ControlPacket], target string, cmd Command, reason string) {
	pkt := ControlPacket{Timestamp: p.Now(), Msg: cmd}
	if err := ch.Write(p, pkt); err != nil {
		p.Log().Warnf("dropping %s for %s: %v", cmd, target, err)
		return
	}
	c.commandsSent++
	p.Log().WithField("target", target).Infof("sent %s (%s)", cmd, reason)
	c.trace.RecordCommand(trace.CommandRecord{Clock: int64(p.Now()), Target: target, Command: cmd.String(), Reason: reason})
	c.metrics.RecordCommand(target, cmd.String())
}
