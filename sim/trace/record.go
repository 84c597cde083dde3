// Package trace records what happened on a conveyor line: commands, on/off
// transitions and, at the packets level, every status packet.
// This package has no dependencies on sim/ or sim/conveyor/; it stores pure data types.
// Clock values are virtual picoseconds.
package trace

// CommandRecord captures one control command sent by the control system.
type CommandRecord struct {
	Clock   int64
	Target  string // "scanner" or "segment_<id>"
	Command string // "TURN_ON" or "TURN_OFF"
	Reason  string
}

// TransitionRecord captures a component switching between on and off.
type TransitionRecord struct {
	Clock     int64
	Component string
	On        bool
}

// ScanRecord captures one bag placed on the line by the scanner.
type ScanRecord struct {
	Clock int64
	BagID int32
}

// SegmentReportRecord captures one segment status packet as seen by the control system.
type SegmentReportRecord struct {
	Clock        int64
	SegmentID    int
	EncoderCount uint32
	Temperature  int
	Vibration    int
	OldestBag    int32 // meaningful only when HasOldest is set
	HasOldest    bool  // false when the tracker was empty
}
