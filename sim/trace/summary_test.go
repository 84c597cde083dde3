package trace

import "testing"

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelPackets})

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.TotalCommands != 0 || summary.TurnOnCount != 0 || summary.TurnOffCount != 0 {
		t.Error("expected 0 commands")
	}
	if summary.BagsScanned != 0 || summary.MaxBagID != 0 {
		t.Error("expected no scans")
	}
	if summary.SegmentReports != 0 || len(summary.ReportsPerSeg) != 0 {
		t.Error("expected no segment reports")
	}
	if summary.LastClock != 0 {
		t.Errorf("expected LastClock 0, got %d", summary.LastClock)
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a trace with commands, transitions and packets
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelPackets})
	st.RecordCommand(CommandRecord{Clock: 0, Target: "scanner", Command: "TURN_ON"})
	st.RecordCommand(CommandRecord{Clock: 0, Target: "segment_0", Command: "TURN_ON"})
	st.RecordCommand(CommandRecord{Clock: 900, Target: "scanner", Command: "TURN_OFF"})
	st.RecordTransition(TransitionRecord{Clock: 10, Component: "scanner", On: true})
	st.RecordScan(ScanRecord{Clock: 300, BagID: 1})
	st.RecordScan(ScanRecord{Clock: 600, BagID: 2})
	st.RecordSegmentReport(SegmentReportRecord{Clock: 400, SegmentID: 0})
	st.RecordSegmentReport(SegmentReportRecord{Clock: 950, SegmentID: 0})
	st.RecordSegmentReport(SegmentReportRecord{Clock: 500, SegmentID: 1})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts match
	if summary.TotalCommands != 3 {
		t.Errorf("expected 3 commands, got %d", summary.TotalCommands)
	}
	if summary.TurnOnCount != 2 || summary.TurnOffCount != 1 {
		t.Errorf("expected 2 on / 1 off, got %d / %d", summary.TurnOnCount, summary.TurnOffCount)
	}
	if summary.Transitions != 1 {
		t.Errorf("expected 1 transition, got %d", summary.Transitions)
	}
	if summary.BagsScanned != 2 || summary.MaxBagID != 2 {
		t.Errorf("expected 2 bags with max id 2, got %d / %d", summary.BagsScanned, summary.MaxBagID)
	}
	if summary.ReportsPerSeg[0] != 2 || summary.ReportsPerSeg[1] != 1 {
		t.Errorf("unexpected per-segment reports: %v", summary.ReportsPerSeg)
	}
	if summary.LastClock != 950 {
		t.Errorf("expected LastClock 950, got %d", summary.LastClock)
	}
}

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary == nil {
		t.Fatal("expected non-nil summary for nil trace")
	}
	if summary.TotalCommands != 0 || summary.ReportsPerSeg == nil {
		t.Error("expected zero summary with initialized map")
	}
}
