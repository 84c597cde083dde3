package trace

// TraceLevel controls the verbosity of line tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelTransitions captures commands and on/off transitions.
	TraceLevelTransitions TraceLevel = "transitions"
	// TraceLevelPackets additionally captures every scanner and segment status packet.
	TraceLevelPackets TraceLevel = "packets"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:        true,
	TraceLevelTransitions: true,
	TraceLevelPackets:     true,
	"":                    true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects records during a line simulation.
// A nil *SimulationTrace records nothing.
type SimulationTrace struct {
	Config         TraceConfig
	Commands       []CommandRecord
	Transitions    []TransitionRecord
	Scans          []ScanRecord
	SegmentReports []SegmentReportRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:         config,
		Commands:       make([]CommandRecord, 0),
		Transitions:    make([]TransitionRecord, 0),
		Scans:          make([]ScanRecord, 0),
		SegmentReports: make([]SegmentReportRecord, 0),
	}
}

func (st *SimulationTrace) transitions() bool {
	return st != nil && (st.Config.Level == TraceLevelTransitions || st.Config.Level == TraceLevelPackets)
}

func (st *SimulationTrace) packets() bool {
	return st != nil && st.Config.Level == TraceLevelPackets
}

// RecordCommand appends a command record.
func (st *SimulationTrace) RecordCommand(record CommandRecord) {
	if st.transitions() {
		st.Commands = append(st.Commands, record)
	}
}

// RecordTransition appends an on/off transition record.
func (st *SimulationTrace) RecordTransition(record TransitionRecord) {
	if st.transitions() {
		st.Transitions = append(st.Transitions, record)
	}
}

// RecordScan appends a scan record. Only kept at TraceLevelPackets.
func (st *SimulationTrace) RecordScan(record ScanRecord) {
	if st.packets() {
		st.Scans = append(st.Scans, record)
	}
}

// RecordSegmentReport appends a segment report record. Only kept at TraceLevelPackets.
func (st *SimulationTrace) RecordSegmentReport(record SegmentReportRecord) {
	if st.packets() {
		st.SegmentReports = append(st.SegmentReports, record)
	}
}
