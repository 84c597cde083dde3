package conveyor

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/conveyor-sim/sim"
)

func newTestScheduler(t *testing.T, opts ...sim.Option) *sim.Scheduler {
	t.Helper()
	s, err := sim.NewScheduler(append([]sim.Option{sim.WithLogger(nil)}, opts...)...)
	require.NoError(t, err)
	return s
}

// fixedArrivals returns the default line with a bag exactly every second.
func fixedArrivals() Config {
	cfg := DefaultConfig()
	cfg.ArrivalVariance = cfg.ArrivalGranularity
	return cfg
}

type scannerRig struct {
	sched   *sim.Scheduler
	scanner *Scanner
	control *sim.Channel[ControlPacket]
	status  *sim.Channel[ScannerStatusPacket]
}

func newScannerRig(t *testing.T, cfg Config, opts ...sim.Option) scannerRig {
	t.Helper()
	s := newTestScheduler(t, opts...)
	control, err := sim.NewChannel[ControlPacket](s, "control", 4)
	require.NoError(t, err)
	status, err := sim.NewChannel[ScannerStatusPacket](s, "status", 4)
	require.NoError(t, err)
	sc := NewScanner(cfg, rand.New(rand.NewSource(1)), control, status)
	s.Spawn("scanner", sc)
	return scannerRig{sched: s, scanner: sc, control: control, status: status}
}

// collect reads n bags and then stops the scheduler.
func (r scannerRig) collect(t *testing.T, n int) *[]ScannerStatusPacket {
	got := &[]ScannerStatusPacket{}
	r.sched.SpawnFunc("reader", func(p *sim.Process) {
		for i := 0; i < n; i++ {
			pkt, err := r.status.Read(p)
			assert.NoError(t, err)
			*got = append(*got, pkt)
		}
		p.Scheduler().Stop()
	})
	return got
}

func TestScanner_OffUntilTurnedOn(t *testing.T) {
	// GIVEN a scanner with fixed 1s arrivals and a TurnOn sent at 3.5s
	rig := newScannerRig(t, fixedArrivals())
	rig.sched.SpawnFunc("ctl", func(p *sim.Process) {
		p.Wait(3500 * sim.Millisecond)
		assert.NoError(t, rig.control.Write(p, ControlPacket{Timestamp: p.Now(), Msg: TurnOn}))
	})
	got := rig.collect(t, 3)

	_, err := rig.sched.Run(context.Background())
	require.NoError(t, err)

	// THEN the first bag appears at the first arrival after the command
	require.Len(t, *got, 3)
	for i, pkt := range *got {
		assert.Equal(t, int32(i+1), pkt.BagID)
		assert.Equal(t, sim.Time(4+i)*sim.Second, pkt.Timestamp)
	}
	assert.True(t, rig.scanner.On())
	assert.Equal(t, uint64(3), rig.scanner.Scanned())
}

func TestScanner_ConsumesOneCommandPerArrival(t *testing.T) {
	// GIVEN an unknown command queued ahead of TurnOn
	rig := newScannerRig(t, fixedArrivals())
	rig.sched.SpawnFunc("ctl", func(p *sim.Process) {
		assert.NoError(t, rig.control.Write(p, ControlPacket{Msg: Command(7), Data: 99}))
		assert.NoError(t, rig.control.Write(p, ControlPacket{Msg: TurnOn}))
	})
	got := rig.collect(t, 1)

	_, err := rig.sched.Run(context.Background())
	require.NoError(t, err)

	// THEN the unknown command is dropped at 1s and TurnOn applies at 2s
	require.Len(t, *got, 1)
	assert.Equal(t, 2*sim.Second, (*got)[0].Timestamp)
	assert.Equal(t, int32(1), (*got)[0].BagID)
}

func TestScanner_TurnOffStopsBags(t *testing.T) {
	// GIVEN a scanner turned on at once and off at 2.5s, bounded at 10s
	rig := newScannerRig(t, fixedArrivals(), sim.WithHorizon(10*sim.Second))
	rig.sched.SpawnFunc("ctl", func(p *sim.Process) {
		assert.NoError(t, rig.control.Write(p, ControlPacket{Msg: TurnOn}))
		p.Wait(2500 * sim.Millisecond)
		assert.NoError(t, rig.control.Write(p, ControlPacket{Msg: TurnOff}))
	})
	var ids []int32
	rig.sched.SpawnFunc("reader", func(p *sim.Process) {
		for {
			pkt, err := rig.status.Read(p)
			if err != nil {
				return
			}
			ids = append(ids, pkt.BagID)
		}
	})

	res, err := rig.sched.Run(context.Background())
	require.NoError(t, err)

	// THEN only the bags of 1s and 2s were placed
	assert.Equal(t, sim.OutcomeHorizon, res.Outcome)
	assert.Equal(t, []int32{1, 2}, ids)
	assert.False(t, rig.scanner.On())
}

func TestScanner_RandomDelaysWithinVariance(t *testing.T) {
	cfg := DefaultConfig() // 1s granularity, 2s variance
	sc := NewScanner(cfg, rand.New(rand.NewSource(42)), nil, nil)
	seen := map[sim.Time]bool{}
	for i := 0; i < 200; i++ {
		d := sc.nextDelay()
		assert.Contains(t, []sim.Time{sim.Second, 2 * sim.Second}, d)
		seen[d] = true
	}
	assert.Len(t, seen, 2, "both delays should occur")
}

func TestScanner_IDsRestartAtOneAfterOverflow(t *testing.T) {
	sc := NewScanner(DefaultConfig(), rand.New(rand.NewSource(1)), nil, nil)
	assert.Equal(t, int32(1), sc.nextID())
	assert.Equal(t, int32(2), sc.nextID())

	sc.lastID = math.MaxInt32 - 1
	assert.Equal(t, int32(math.MaxInt32), sc.nextID())
	assert.Equal(t, int32(1), sc.nextID())
	assert.Equal(t, int32(2), sc.nextID())
}
