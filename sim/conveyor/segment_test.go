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

func runSegment(t *testing.T, cfg Config, reports int) []SegmentStatusPacket {
	t.Helper()
	s := newTestScheduler(t)
	control, err := sim.NewChannel[ControlPacket](s, "control", 4)
	require.NoError(t, err)
	status, err := sim.NewChannel[SegmentStatusPacket](s, "status", 4)
	require.NoError(t, err)
	s.Spawn("segment_2", NewSegment(2, cfg, rand.New(rand.NewSource(5)), control, status))

	var got []SegmentStatusPacket
	s.SpawnFunc("control", func(p *sim.Process) {
		assert.NoError(t, control.Write(p, ControlPacket{Msg: TurnOn}))
		for i := 0; i < reports; i++ {
			pkt, err := status.Read(p)
			assert.NoError(t, err)
			got = append(got, pkt)
		}
		p.Scheduler().Stop()
	})

	_, err = s.Run(context.Background())
	require.NoError(t, err)
	return got
}

func TestSegment_ReportsEveryIntervalWhileOn(t *testing.T) {
	// GIVEN the reference segment (10ms reports, 500 counts per report)
	got := runSegment(t, DefaultConfig(), 50)

	// THEN the encoder advances by 500 per report, one report per 10ms
	require.Len(t, got, 50)
	first := got[0].Timestamp
	assert.Less(t, first, 20*sim.Millisecond, "phase offset is below one interval")
	for i, pkt := range got {
		assert.Equal(t, 2, pkt.SegmentID)
		assert.Equal(t, uint32(500*(i+1)), pkt.EncoderCount)
		assert.Equal(t, first+sim.Time(i)*10*sim.Millisecond, pkt.Timestamp)
		assert.GreaterOrEqual(t, pkt.Temperature, 41)
		assert.LessOrEqual(t, pkt.Temperature, 49)
		assert.GreaterOrEqual(t, pkt.Vibration, 2)
		assert.LessOrEqual(t, pkt.Vibration, 22)
	}
}

func TestSegment_EncoderWraps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EncoderIncrement = math.MaxUint32

	got := runSegment(t, cfg, 2)

	require.Len(t, got, 2)
	assert.Equal(t, uint32(math.MaxUint32), got[0].EncoderCount)
	assert.Equal(t, uint32(math.MaxUint32-1), got[1].EncoderCount)
}

func TestSensor_RandomWalkStaysInBand(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	s := newSensor(SensorConfig{Mean: 12, Variance: 10})
	prev := s.value
	for i := 0; i < 10000; i++ {
		v := s.step(rng)
		assert.GreaterOrEqual(t, v, 2)
		assert.LessOrEqual(t, v, 22)
		assert.LessOrEqual(t, math.Abs(float64(v-prev)), 1.0)
		prev = v
	}

	flat := newSensor(SensorConfig{Mean: 45})
	for i := 0; i < 100; i++ {
		assert.Equal(t, 45, flat.step(rng))
	}
}
