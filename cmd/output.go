package cmd

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/inference-sim/conveyor-sim/sim/conveyor"
	"github.com/inference-sim/conveyor-sim/sim/trace"
)

// printReport writes the end-of-run summary to w.
func printReport(w io.Writer, runID string, rep conveyor.Report, summary *trace.TraceSummary, elapsed time.Duration) {
	res := rep.Result
	fmt.Fprintln(w, "=== Simulation Results ===")
	fmt.Fprintf(w, "Run ID           : %s\n", runID)
	fmt.Fprintf(w, "Outcome          : %s\n", res.Outcome)
	fmt.Fprintf(w, "End time         : %s\n", res.EndTime)
	fmt.Fprintf(w, "Delta cycles     : %d\n", res.DeltaCycles)
	fmt.Fprintf(w, "Activations      : %d\n", res.Activations)
	fmt.Fprintf(w, "Control loops    : %d\n", rep.Iterations)
	fmt.Fprintf(w, "Bags scanned     : %d (last id %d)\n", rep.BagsScanned, rep.LastBagID)
	fmt.Fprintf(w, "Bags received    : %d\n", rep.BagsReceived)
	fmt.Fprintf(w, "Bag count        : %d\n", rep.BagCount)
	fmt.Fprintf(w, "Tracked bags     : %d\n", rep.TrackerLen)
	fmt.Fprintf(w, "Scanner admitted : %t\n", rep.ScannerOn)
	fmt.Fprintf(w, "Segment reports  : %d\n", rep.SegmentReports)
	fmt.Fprintf(w, "Commands sent    : %d\n", rep.CommandsSent)
	for _, f := range res.Failures {
		fmt.Fprintf(w, "Process failure  : %s at %s: %v\n", f.Process, f.Time, f.Err)
	}
	if summary != nil && (summary.TotalCommands > 0 || summary.SegmentReports > 0) {
		fmt.Fprintln(w, "=== Trace Summary ===")
		fmt.Fprintf(w, "Commands         : %d (on %d, off %d)\n", summary.TotalCommands, summary.TurnOnCount, summary.TurnOffCount)
		fmt.Fprintf(w, "Transitions      : %d\n", summary.Transitions)
		if summary.SegmentReports > 0 {
			ids := make([]int, 0, len(summary.ReportsPerSeg))
			for id := range summary.ReportsPerSeg {
				ids = append(ids, id)
			}
			sort.Ints(ids)
			for _, id := range ids {
				fmt.Fprintf(w, "Segment %-9d: %d reports\n", id, summary.ReportsPerSeg[id])
			}
		}
	}
	fmt.Fprintf(w, "Wall time        : %s\n", elapsed.Round(time.Millisecond))
}
