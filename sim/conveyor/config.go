package conveyor

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/conveyor-sim/sim"
)

// ErrInvalidConfig is wrapped by every configuration validation error.
var ErrInvalidConfig = errors.New("invalid conveyor configuration")

// SensorConfig describes a sensor that random-walks within Mean ± Variance.
type SensorConfig struct {
	Mean     int `yaml:"mean"`
	Variance int `yaml:"variance"`
}

// Config holds every tunable of a conveyor line.
// Durations accept unit strings in YAML ("10ms", "1us").
type Config struct {
	Seed int64 `yaml:"seed"`

	// Scanner: bags arrive every ArrivalGranularity × (1 + n) with n uniform in
	// [0, ArrivalVariance/ArrivalGranularity). ArrivalVariance must be a whole
	// multiple of ArrivalGranularity.
	ArrivalGranularity sim.Time `yaml:"arrival_granularity"`
	ArrivalVariance    sim.Time `yaml:"arrival_variance"`

	// Admission control.
	MaxBags    int `yaml:"max_bags"`
	Hysteresis int `yaml:"hysteresis"`

	// Segments.
	Segments         int          `yaml:"segments"`
	ReportInterval   sim.Time     `yaml:"report_interval"`
	BeltSpeed        float64      `yaml:"belt_speed"`         // m/s
	DistancePerCount float64      `yaml:"distance_per_count"` // m per encoder count
	EncoderIncrement uint32       `yaml:"encoder_increment"`  // 0 = derive from speed and distance
	Temperature      SensorConfig `yaml:"temperature"`        // degrees C
	Vibration        SensorConfig `yaml:"vibration"`          // mils

	// Control system.
	ControlRate sim.Time `yaml:"control_rate"`
	Iterations  int64    `yaml:"iterations"` // control loop budget; 0 stops at once

	// BagTransitTime enables the exit policy: bags scanned at least this long ago
	// are considered delivered when a segment reports. 0 disables it and the bag
	// count is never decremented.
	BagTransitTime sim.Time `yaml:"bag_transit_time"`

	ChannelCapacity int `yaml:"channel_capacity"`
}

// DefaultConfig returns the reference line: one segment, 16 bags with a
// hysteresis of 4, 1-2 s bag arrivals, 10 ms segment reports, 1 us control rate.
func DefaultConfig() Config {
	return Config{
		Seed:               42,
		ArrivalGranularity: sim.Second,
		ArrivalVariance:    2 * sim.Second,
		MaxBags:            16,
		Hysteresis:         4,
		Segments:           1,
		ReportInterval:     10 * sim.Millisecond,
		BeltSpeed:          0.5,
		DistancePerCount:   0.00001,
		Temperature:        SensorConfig{Mean: 45, Variance: 4},
		Vibration:          SensorConfig{Mean: 12, Variance: 10},
		ControlRate:        sim.Microsecond,
		Iterations:         10_000_000,
		ChannelCapacity:    16,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading conveyor config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing conveyor config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration describes a runnable line.
func (c *Config) Validate() error {
	if c.ArrivalGranularity <= 0 {
		return invalid("arrival_granularity must be positive, got %v", c.ArrivalGranularity)
	}
	if c.ArrivalVariance < c.ArrivalGranularity {
		return invalid("arrival_variance must be at least arrival_granularity (%v), got %v", c.ArrivalGranularity, c.ArrivalVariance)
	}
	if c.ArrivalVariance%c.ArrivalGranularity != 0 {
		return invalid("arrival_variance must be a multiple of arrival_granularity (%v), got %v", c.ArrivalGranularity, c.ArrivalVariance)
	}
	if c.MaxBags < 1 {
		return invalid("max_bags must be at least 1, got %d", c.MaxBags)
	}
	if c.Hysteresis < 0 || c.Hysteresis >= c.MaxBags {
		return invalid("hysteresis must be in [0, max_bags), got %d with max_bags %d", c.Hysteresis, c.MaxBags)
	}
	if c.Segments < 1 {
		return invalid("segments must be at least 1, got %d", c.Segments)
	}
	if c.ReportInterval <= 0 {
		return invalid("report_interval must be positive, got %v", c.ReportInterval)
	}
	if c.EncoderIncrement == 0 {
		if c.BeltSpeed <= 0 || c.DistancePerCount <= 0 {
			return invalid("belt_speed and distance_per_count must be positive when encoder_increment is unset")
		}
		if inc := c.derivedIncrement(); inc < 1 || inc > math.MaxUint32 {
			return invalid("derived encoder increment %.0f out of range", inc)
		}
	}
	if c.Temperature.Variance < 0 {
		return invalid("temperature.variance must be non-negative, got %d", c.Temperature.Variance)
	}
	if c.Vibration.Variance < 0 {
		return invalid("vibration.variance must be non-negative, got %d", c.Vibration.Variance)
	}
	if c.ControlRate <= 0 {
		return invalid("control_rate must be positive, got %v", c.ControlRate)
	}
	if c.Iterations < 0 {
		return invalid("iterations must be non-negative, got %d", c.Iterations)
	}
	if c.BagTransitTime < 0 {
		return invalid("bag_transit_time must be non-negative, got %v", c.BagTransitTime)
	}
	if c.ChannelCapacity < 1 {
		return invalid("channel_capacity must be at least 1, got %d", c.ChannelCapacity)
	}
	return nil
}

// Increment returns the encoder counts added per segment report.
func (c *Config) Increment() uint32 {
	if c.EncoderIncrement != 0 {
		return c.EncoderIncrement
	}
	return uint32(math.Round(c.derivedIncrement()))
}

func (c *Config) derivedIncrement() float64 {
	return c.BeltSpeed * c.ReportInterval.Seconds() / c.DistancePerCount
}

// mustValidate panics with cfg's validation error, naming the constructor.
func mustValidate(caller string, cfg Config) {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("%s: %v", caller, err))
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
}
