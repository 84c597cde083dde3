package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/inference-sim/conveyor-sim/sim"
	"github.com/inference-sim/conveyor-sim/sim/conveyor"
)

var (
	sweepSeeds    int   // Number of seeds to run
	sweepFirst    int64 // First seed of the sweep
	sweepParallel int   // Simulations run concurrently
)

// SeedResult is the outcome of one simulation of a sweep.
type SeedResult struct {
	Seed   int64
	Report conveyor.Report
	Err    error
}

// sweepCmd runs independent simulations over consecutive seeds
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the simulation for a range of seeds in parallel",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging(logLevel)

		cfg, err := lineConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if sweepSeeds < 1 {
			logrus.Fatalf("--seeds must be at least 1, got %d", sweepSeeds)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		results, err := runSweep(ctx, cfg, sweepFirst, sweepSeeds, sweepParallel)
		printSweep(os.Stdout, results)
		if err != nil {
			logrus.Fatalf("Sweep failed: %v", err)
		}
	},
}

// runSweep runs n simulations of cfg with seeds first, first+1, ... using at
// most parallel goroutines. Each run has its own scheduler and discards its
// process logs. Results are returned in seed order; a run that ended in
// deadlock is reported in its SeedResult and does not cancel the others.
func runSweep(ctx context.Context, cfg conveyor.Config, first int64, n, parallel int) ([]SeedResult, error) {
	if parallel < 1 {
		parallel = runtime.GOMAXPROCS(0)
	}
	results := make([]SeedResult, n)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			runCfg := cfg
			runCfg.Seed = first + int64(i)
			rep, err := conveyor.Run(ctx, runCfg, conveyor.WithSchedulerOptions(sim.WithLogger(nil)))
			results[i] = SeedResult{Seed: runCfg.Seed, Report: rep, Err: err}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}
	err := g.Wait()
	return results, err
}

func printSweep(w io.Writer, results []SeedResult) {
	fmt.Fprintf(w, "%-8s %-9s %-12s %-8s %-10s %-9s %s\n", "seed", "outcome", "end_time", "bags", "bag_count", "commands", "error")
	for _, r := range results {
		errText := "-"
		if r.Err != nil {
			errText = r.Err.Error()
		}
		fmt.Fprintf(w, "%-8d %-9s %-12s %-8d %-10d %-9d %s\n", r.Seed, r.Report.Result.Outcome, r.Report.Result.EndTime,
			r.Report.BagsScanned, r.Report.BagCount, r.Report.CommandsSent, errText)
	}
}

func init() {
	addLineFlags(sweepCmd)
	sweepCmd.Flags().IntVar(&sweepSeeds, "seeds", 8, "Number of consecutive seeds to simulate")
	sweepCmd.Flags().Int64Var(&sweepFirst, "first-seed", 1, "First seed of the sweep")
	sweepCmd.Flags().IntVar(&sweepParallel, "parallel", 0, "Simulations run concurrently (0 = GOMAXPROCS)")

	rootCmd.AddCommand(sweepCmd)
}
