package conveyor

import (
	"fmt"

	"github.com/inference-sim/conveyor-sim/sim"
)

// Command is the message carried by a ControlPacket.
type Command int

const (
	TurnOff Command = 0
	TurnOn  Command = 1
)

func (c Command) String() string {
	switch c {
	case TurnOff:
		return "TURN_OFF"
	case TurnOn:
		return "TURN_ON"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

// Valid reports whether c is a known command.
func (c Command) Valid() bool {
	return c == TurnOff || c == TurnOn
}

// ControlPacket is sent by the control system to the scanner and to segments.
type ControlPacket struct {
	Timestamp sim.Time
	Msg       Command
	Data      int
}

// ScannerStatusPacket reports one bag placed on the line.
type ScannerStatusPacket struct {
	Timestamp sim.Time
	BagID     int32
}

// SegmentStatusPacket is the periodic report of one conveyor segment.
type SegmentStatusPacket struct {
	Timestamp    sim.Time
	SegmentID    int
	EncoderCount uint32 // wraps on overflow
	Temperature  int    // degrees C
	Vibration    int    // mils
}
