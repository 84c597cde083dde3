package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalCommands  int
	TurnOnCount    int
	TurnOffCount   int
	Transitions    int
	BagsScanned    int
	MaxBagID       int32
	SegmentReports int
	ReportsPerSeg  map[int]int // segment ID → reports received
	LastClock      int64
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		ReportsPerSeg: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalCommands = len(st.Commands)
	for _, c := range st.Commands {
		switch c.Command {
		case "TURN_ON":
			summary.TurnOnCount++
		case "TURN_OFF":
			summary.TurnOffCount++
		}
		summary.observe(c.Clock)
	}

	summary.Transitions = len(st.Transitions)
	for _, tr := range st.Transitions {
		summary.observe(tr.Clock)
	}

	summary.BagsScanned = len(st.Scans)
	for _, s := range st.Scans {
		if s.BagID > summary.MaxBagID {
			summary.MaxBagID = s.BagID
		}
		summary.observe(s.Clock)
	}

	summary.SegmentReports = len(st.SegmentReports)
	for _, r := range st.SegmentReports {
		summary.ReportsPerSeg[r.SegmentID]++
		summary.observe(r.Clock)
	}

	return summary
}

func (s *TraceSummary) observe(clock int64) {
	if clock > s.LastClock {
		s.LastClock = clock
	}
}
