// Package metrics exposes conveyor line and scheduler counters as Prometheus metrics.
//
// A Collector registers on the registry it is given, so independent runs (for
// example the seeds of a sweep) can each use their own registry. All methods
// are no-ops on a nil *Collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/inference-sim/conveyor-sim/sim"
)

const namespace = "conveyor"

// Collector holds the Prometheus metrics of one simulated line.
type Collector struct {
	bagsScanned    prometheus.Counter
	segmentReports *prometheus.CounterVec
	commands       *prometheus.CounterVec
	bagsEvicted    prometheus.Counter
	scanInterval   prometheus.Histogram

	bagCount  prometheus.Gauge
	scannerOn prometheus.Gauge

	deltaCycles     prometheus.Gauge
	activations     prometheus.Gauge
	endTime         prometheus.Gauge
	processFailures prometheus.Counter
}

// NewCollector creates the line metrics and registers them on reg.
// It panics if any metric is already registered on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		bagsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bags_scanned_total",
			Help:      "Total number of scanner status packets received by the control system",
		}),
		segmentReports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segment_reports_total",
			Help:      "Total number of segment status packets received, by segment",
		}, []string{"segment"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of control commands sent, by target and command",
		}, []string{"target", "command"}),
		bagsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bags_exited_total",
			Help:      "Total number of bags removed from the tracker by the exit policy",
		}),
		scanInterval: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_interval_seconds",
			Help:      "Virtual time between consecutive scanned bags",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 10},
		}),
		bagCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bag_count",
			Help:      "Current bag count used for admission control",
		}),
		scannerOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scanner_on",
			Help:      "1 if the control system last admitted the scanner, 0 otherwise",
		}),
		deltaCycles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "delta_cycles",
			Help:      "Delta cycles executed by the scheduler",
		}),
		activations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "activations",
			Help:      "Process activations performed by the scheduler",
		}),
		endTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "end_time_seconds",
			Help:      "Virtual time at which the run ended",
		}),
		processFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "process_failures_total",
			Help:      "Processes terminated by a panic",
		}),
	}

	reg.MustRegister(
		c.bagsScanned,
		c.segmentReports,
		c.commands,
		c.bagsEvicted,
		c.scanInterval,
		c.bagCount,
		c.scannerOn,
		c.deltaCycles,
		c.activations,
		c.endTime,
		c.processFailures,
	)
	return c
}

// RecordScan counts one scanned bag. interval is the virtual time since the
// previous scan, or zero for the first bag.
func (c *Collector) RecordScan(interval sim.Time) {
	if c == nil {
		return
	}
	c.bagsScanned.Inc()
	if interval > 0 {
		c.scanInterval.Observe(interval.Seconds())
	}
}

// RecordSegmentReport counts one segment status packet.
func (c *Collector) RecordSegmentReport(segment string) {
	if c == nil {
		return
	}
	c.segmentReports.WithLabelValues(segment).Inc()
}

// RecordCommand counts one control command.
func (c *Collector) RecordCommand(target, command string) {
	if c == nil {
		return
	}
	c.commands.WithLabelValues(target, command).Inc()
}

// RecordExit counts one bag removed by the exit policy.
func (c *Collector) RecordExit() {
	if c == nil {
		return
	}
	c.bagsEvicted.Inc()
}

// SetAdmission publishes the admission state.
func (c *Collector) SetAdmission(count int, on bool) {
	if c == nil {
		return
	}
	c.bagCount.Set(float64(count))
	if on {
		c.scannerOn.Set(1)
	} else {
		c.scannerOn.Set(0)
	}
}

// ObserveResult publishes the scheduler's end-of-run statistics.
func (c *Collector) ObserveResult(res sim.Result) {
	if c == nil {
		return
	}
	c.deltaCycles.Set(float64(res.DeltaCycles))
	c.activations.Set(float64(res.Activations))
	c.endTime.Set(res.EndTime.Seconds())
	c.processFailures.Add(float64(len(res.Failures)))
}
