package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/conveyor-sim/sim"
	"github.com/inference-sim/conveyor-sim/sim/conveyor"
	"github.com/inference-sim/conveyor-sim/sim/trace"
)

// resetFlags restores every flag of cmd to its default and clears Changed.
func resetFlags(t *testing.T, cmd *cobra.Command) {
	t.Helper()
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		require.NoError(t, f.Value.Set(f.DefValue))
		f.Changed = false
	})
	configPath = ""
}

func TestLineConfig_DefaultsWithoutFlags(t *testing.T) {
	resetFlags(t, runCmd)
	t.Cleanup(func() { resetFlags(t, runCmd) })

	cfg, err := lineConfig(runCmd)
	require.NoError(t, err)
	assert.Equal(t, conveyor.DefaultConfig(), cfg)
}

func TestLineConfig_ChangedFlagsOverrideYAML(t *testing.T) {
	resetFlags(t, runCmd)
	t.Cleanup(func() { resetFlags(t, runCmd) })

	// GIVEN a config file that sets max_bags, segments and the control rate
	path := filepath.Join(t.TempDir(), "line.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_bags: 20\nsegments: 2\ncontrol_rate: 5us\n"), 0o644))

	// WHEN only --max-bags and --seed are given on the command line
	require.NoError(t, runCmd.Flags().Set("config", path))
	require.NoError(t, runCmd.Flags().Set("max-bags", "12"))
	require.NoError(t, runCmd.Flags().Set("seed", "9"))

	cfg, err := lineConfig(runCmd)
	require.NoError(t, err)

	// THEN explicit flags win and the rest of the file is kept
	assert.Equal(t, 12, cfg.MaxBags)
	assert.Equal(t, int64(9), cfg.Seed)
	assert.Equal(t, 2, cfg.Segments)
	assert.Equal(t, 5*sim.Microsecond, cfg.ControlRate)
	// an unchanged flag default does not overwrite the file
	assert.Equal(t, conveyor.DefaultConfig().Hysteresis, cfg.Hysteresis)
}

func TestLineConfig_TimeFlags(t *testing.T) {
	resetFlags(t, runCmd)
	t.Cleanup(func() { resetFlags(t, runCmd) })

	require.NoError(t, runCmd.Flags().Set("control-rate", "1ms"))
	require.NoError(t, runCmd.Flags().Set("bag-transit-time", "30s"))
	assert.Error(t, runCmd.Flags().Set("report-interval", "often"))

	cfg, err := lineConfig(runCmd)
	require.NoError(t, err)
	assert.Equal(t, sim.Millisecond, cfg.ControlRate)
	assert.Equal(t, 30*sim.Second, cfg.BagTransitTime)
	assert.Equal(t, 10*sim.Millisecond, cfg.ReportInterval)
}

func TestLineConfig_InvalidCombinationRejected(t *testing.T) {
	resetFlags(t, runCmd)
	t.Cleanup(func() { resetFlags(t, runCmd) })

	require.NoError(t, runCmd.Flags().Set("hysteresis", "16"))

	_, err := lineConfig(runCmd)
	assert.True(t, errors.Is(err, conveyor.ErrInvalidConfig))
}

func TestRunSweep_ResultsInSeedOrder(t *testing.T) {
	// GIVEN a short line
	cfg := conveyor.DefaultConfig()
	cfg.ControlRate = sim.Millisecond
	cfg.Iterations = 5_000

	// WHEN four seeds run two at a time
	results, err := runSweep(context.Background(), cfg, 10, 4, 2)
	require.NoError(t, err)

	// THEN every seed ran to its budget and results keep seed order
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, int64(10+i), r.Seed)
		assert.NoError(t, r.Err)
		assert.Equal(t, sim.OutcomeStopped, r.Report.Result.Outcome)
		assert.Equal(t, 5*sim.Second, r.Report.Result.EndTime)
	}

	// AND a run is reproducible on its own
	single, err := conveyor.Run(context.Background(), withSeed(cfg, 12), conveyor.WithSchedulerOptions(sim.WithLogger(nil)))
	require.NoError(t, err)
	assert.Equal(t, single.BagsScanned, results[2].Report.BagsScanned)
	assert.Equal(t, single.SegmentReports, results[2].Report.SegmentReports)
}

func withSeed(cfg conveyor.Config, seed int64) conveyor.Config {
	cfg.Seed = seed
	return cfg
}

func TestRunSweep_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := runSweep(ctx, conveyor.DefaultConfig(), 1, 3, 1)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, results, 3)
}

func TestPrintReport(t *testing.T) {
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelPackets})
	st.RecordCommand(trace.CommandRecord{Target: "scanner", Command: "TURN_OFF"})
	st.RecordSegmentReport(trace.SegmentReportRecord{SegmentID: 1})
	rep := conveyor.Report{
		Result:      sim.Result{Outcome: sim.OutcomeStopped, EndTime: 30 * sim.Second},
		BagsScanned: 16,
		LastBagID:   16,
		BagCount:    16,
	}

	var buf bytes.Buffer
	printReport(&buf, "run-1", rep, trace.Summarize(st), 1500*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, "Run ID           : run-1")
	assert.Contains(t, out, "Outcome          : stopped")
	assert.Contains(t, out, "End time         : 30 s")
	assert.Contains(t, out, "Bags scanned     : 16 (last id 16)")
	assert.Contains(t, out, "Commands         : 1 (on 0, off 1)")
	assert.Contains(t, out, "Wall time        : 1.5s")
}

func TestPrintSweep(t *testing.T) {
	var buf bytes.Buffer
	printSweep(&buf, []SeedResult{
		{Seed: 3, Report: conveyor.Report{Result: sim.Result{Outcome: sim.OutcomeStopped}}},
		{Seed: 4, Err: sim.ErrDeadlock},
	})
	out := buf.String()
	assert.Contains(t, out, "seed")
	assert.Contains(t, out, sim.ErrDeadlock.Error())
}
