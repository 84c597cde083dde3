package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/conveyor-sim/sim"
	"github.com/inference-sim/conveyor-sim/sim/conveyor"
	"github.com/inference-sim/conveyor-sim/sim/metrics"
	"github.com/inference-sim/conveyor-sim/sim/trace"
)

var (
	// CLI flags for the line configuration
	configPath      string   // YAML line configuration
	seed            int64    // Seed for bag arrivals and segment sensors
	iterations      int64    // Control loop budget
	maxBags         int      // Bags on the line before the scanner is turned off
	hysteresis      int      // Bags below max_bags before the scanner is turned back on
	segments        int      // Number of conveyor segments
	controlRate     sim.Time // Control loop period
	reportInterval  sim.Time // Segment report period
	arrivalVariance sim.Time // Upper bound of the time between two scanned bags
	bagTransitTime  sim.Time // Time after which a bag counts as delivered (0 = never)
	horizon         sim.Time // Virtual time at which the run is cut off (0 = none)

	// CLI flags for outputs
	logLevel    string // Log verbosity level
	traceLevel  string // Trace verbosity level
	metricsFile string // Prometheus text file written after the run
	runID       string // Run identifier attached to logs and metrics
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "conveyor-sim",
	Short: "Discrete-event simulator for a baggage conveyor line",
}

// runCmd executes one simulation using parameters from the config file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the conveyor simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging(logLevel)

		cfg, err := lineConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s", traceLevel)
		}
		if runID == "" {
			runID = uuid.NewString()
		}
		log := logrus.WithField("run_id", runID)
		log.Infof("Starting simulation with seed=%d, segments=%d, max_bags=%d, hysteresis=%d, iterations=%d, control_rate=%s",
			cfg.Seed, cfg.Segments, cfg.MaxBags, cfg.Hysteresis, cfg.Iterations, cfg.ControlRate)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevel(traceLevel)})
		reg := prometheus.NewRegistry()
		collector := metrics.NewCollector(prometheus.WrapRegistererWith(prometheus.Labels{"run_id": runID}, reg))

		schedOpts := []sim.Option{sim.WithLogger(log)}
		if horizon > 0 {
			schedOpts = append(schedOpts, sim.WithHorizon(horizon))
		}

		startTime := time.Now()
		rep, err := conveyor.Run(ctx, cfg,
			conveyor.WithTrace(st),
			conveyor.WithMetrics(collector),
			conveyor.WithSchedulerOptions(schedOpts...),
		)
		if err != nil {
			log.Errorf("Simulation ended abnormally: %v", err)
		}

		printReport(os.Stdout, runID, rep, trace.Summarize(st), time.Since(startTime))

		if metricsFile != "" {
			if werr := prometheus.WriteToTextfile(metricsFile, reg); werr != nil {
				log.Fatalf("Failed to write metrics file: %v", werr)
			}
			log.Infof("Metrics written to %s", metricsFile)
		}
		if err != nil {
			os.Exit(1)
		}
		log.Info("Simulation complete.")
	},
}

// setupLogging configures the standard logger. Wall-clock timestamps are left
// out: simulation time is carried in the log fields, and identical runs produce
// identical logs.
func setupLogging(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", level)
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
}

// lineConfig builds the line configuration: the YAML file (or the defaults),
// then every flag the user set explicitly.
func lineConfig(cmd *cobra.Command) (conveyor.Config, error) {
	cfg := conveyor.DefaultConfig()
	if configPath != "" {
		loaded, err := conveyor.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("iterations") {
		cfg.Iterations = iterations
	}
	if flags.Changed("max-bags") {
		cfg.MaxBags = maxBags
	}
	if flags.Changed("hysteresis") {
		cfg.Hysteresis = hysteresis
	}
	if flags.Changed("segments") {
		cfg.Segments = segments
	}
	if flags.Changed("control-rate") {
		cfg.ControlRate = controlRate
	}
	if flags.Changed("report-interval") {
		cfg.ReportInterval = reportInterval
	}
	if flags.Changed("arrival-variance") {
		cfg.ArrivalVariance = arrivalVariance
	}
	if flags.Changed("bag-transit-time") {
		cfg.BagTransitTime = bagTransitTime
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// addLineFlags registers the line configuration flags shared by run and sweep.
func addLineFlags(cmd *cobra.Command) {
	defaults := conveyor.DefaultConfig()
	controlRate = defaults.ControlRate
	reportInterval = defaults.ReportInterval
	arrivalVariance = defaults.ArrivalVariance
	bagTransitTime = defaults.BagTransitTime

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML line configuration")
	cmd.Flags().Int64Var(&iterations, "iterations", defaults.Iterations, "Control loop iterations before the simulation stops")
	cmd.Flags().IntVar(&maxBags, "max-bags", defaults.MaxBags, "Bags on the line before the scanner is turned off")
	cmd.Flags().IntVar(&hysteresis, "hysteresis", defaults.Hysteresis, "Bags below max-bags before the scanner is turned back on")
	cmd.Flags().IntVar(&segments, "segments", defaults.Segments, "Number of conveyor segments")
	cmd.Flags().Var(&controlRate, "control-rate", "Control loop period (e.g. 1us, 1ms)")
	cmd.Flags().Var(&reportInterval, "report-interval", "Segment report period")
	cmd.Flags().Var(&arrivalVariance, "arrival-variance", "Bags arrive every 1s up to this bound")
	cmd.Flags().Var(&bagTransitTime, "bag-transit-time", "Bags older than this leave the line (0 keeps every bag)")
	cmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
}

// init sets up CLI flags and subcommands
func init() {
	addLineFlags(runCmd)
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for bag arrivals and segment sensors")
	runCmd.Flags().Var(&horizon, "horizon", "Virtual time at which the run is cut off (0 = no limit)")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Trace verbosity (none, transitions, packets)")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	runCmd.Flags().StringVar(&runID, "run-id", "", "Run identifier for logs and metrics (default: random UUID)")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
