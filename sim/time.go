package sim

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Time is a point or span of virtual time, counted in picoseconds.
// It has no relation to wall-clock time.
type Time int64

// Time units. Multiply to build a span: 10 * sim.Millisecond.
const (
	Picosecond  Time = 1
	Nanosecond       = 1000 * Picosecond
	Microsecond      = 1000 * Nanosecond
	Millisecond      = 1000 * Microsecond
	Second           = 1000 * Millisecond
)

// MaxTime is the latest representable instant.
const MaxTime Time = math.MaxInt64

var unitSuffixes = []struct {
	unit   Time
	suffix string
}{
	{Second, "s"},
	{Millisecond, "ms"},
	{Microsecond, "us"},
	{Nanosecond, "ns"},
	{Picosecond, "ps"},
}

// Seconds returns t as a floating-point number of seconds.
func (t Time) Seconds() float64 {
	return float64(t) / float64(Second)
}

// Truncate rounds t down to a multiple of unit. A non-positive unit returns t unchanged.
func (t Time) Truncate(unit Time) Time {
	if unit <= 0 {
		return t
	}
	return t - t%unit
}

// String formats t in the coarsest unit that represents it exactly, e.g. "10 ms".
func (t Time) String() string {
	if t == 0 {
		return "0 s"
	}
	for _, u := range unitSuffixes {
		if t%u.unit == 0 {
			return fmt.Sprintf("%d %s", int64(t/u.unit), u.suffix)
		}
	}
	return fmt.Sprintf("%d ps", int64(t))
}

// ParseTime parses a span such as "10ms", "1 us", "2s" or "1500ps".
// A bare integer is read as picoseconds.
func ParseTime(s string) (Time, error) {
	str := strings.TrimSpace(s)
	if str == "" {
		return 0, fmt.Errorf("parsing time %q: empty value", s)
	}
	// longest suffixes first so "ms" is not read as "s"
	for _, suffix := range []string{"ms", "us", "ns", "ps", "s"} {
		if !strings.HasSuffix(str, suffix) {
			continue
		}
		num := strings.TrimSpace(strings.TrimSuffix(str, suffix))
		n, err := strconv.ParseInt(num, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing time %q: %w", s, err)
		}
		unit := unitFor(suffix)
		if n > int64(MaxTime/unit) || n < -int64(MaxTime/unit) {
			return 0, fmt.Errorf("parsing time %q: out of range", s)
		}
		return Time(n) * unit, nil
	}
	n, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing time %q: unknown unit", s)
	}
	return Time(n), nil
}

func unitFor(suffix string) Time {
	for _, u := range unitSuffixes {
		if u.suffix == suffix {
			return u.unit
		}
	}
	return Picosecond
}

// UnmarshalYAML accepts either a unit-suffixed string or an integer picosecond count.
func (t *Time) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: time must be a scalar", value.Line)
	}
	parsed, err := ParseTime(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*t = parsed
	return nil
}

// MarshalYAML writes t in its String form without the space, e.g. "10ms".
func (t Time) MarshalYAML() (interface{}, error) {
	return strings.ReplaceAll(t.String(), " ", ""), nil
}

// Set parses s into t. Together with String and Type it lets a *Time be used
// as a command-line flag value.
func (t *Time) Set(s string) error {
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Type names the flag value kind.
func (t *Time) Type() string {
	return "time"
}

// Clock is the scheduler's virtual clock. It never moves backwards.
type Clock struct {
	now Time
}

// Now returns the current virtual time.
func (c *Clock) Now() Time {
	return c.now
}

// advance moves the clock to t. Moving backwards is a kernel bug.
func (c *Clock) advance(t Time) {
	if t < c.now {
		panic(fmt.Sprintf("Clock: cannot move from %s back to %s", c.now, t))
	}
	c.now = t
}
