package conveyor

// Admission is the control system's scanner switch: it turns bag intake off when
// the line is saturated and back on only once the count has dropped below a
// hysteresis band, so the scanner does not flap at the boundary.
//
// The count only goes down through BagExited. With the default configuration
// nothing calls it, so once intake stops it stays stopped.
type Admission struct {
	maxBags    int
	hysteresis int
	count      int
	on         bool
}

// NewAdmission returns a switch in the On state with a zero bag count.
func NewAdmission(maxBags, hysteresis int) *Admission {
	return &Admission{maxBags: maxBags, hysteresis: hysteresis, on: true}
}

// On reports whether the scanner is currently admitted.
func (a *Admission) On() bool { return a.on }

// Count returns the bag count.
func (a *Admission) Count() int { return a.count }

// BagArrived counts a scanned bag. It returns TurnOff, true when the line just
// became saturated.
func (a *Admission) BagArrived() (Command, bool) {
	a.count++
	if a.on && a.count >= a.maxBags {
		a.on = false
		return TurnOff, true
	}
	return TurnOn, false
}

// Recheck returns TurnOn, true when intake is off and the count has fallen
// strictly below maxBags - hysteresis.
func (a *Admission) Recheck() (Command, bool) {
	if !a.on && a.count < a.maxBags-a.hysteresis {
		a.on = true
		return TurnOn, true
	}
	return TurnOff, false
}

// BagExited removes one bag from the count. The count never goes negative.
func (a *Admission) BagExited() {
	if a.count > 0 {
		a.count--
	}
}
