package expression

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/teslashibe/go-facemetrics/pkg/landmark"
)

// Config holds all tunable parameters for expression inference.
type Config struct {
	// Landmark topology of the detector feeding the engine
	Layout landmark.Layout

	// Calibration
	CalibrationSamples int     // Frames averaged into the neutral baseline
	MaxOpenness        float64 // Upper clamp for normalized mouth/eye openness

	// Smoothing
	WindowSize int // Confidence vectors kept in the moving average

	// Neural smile thresholds (happy confidence). Only Minimal affects the
	// score; Slight, Moderate and Broad are reserved for multi-band mapping.
	Minimal  float64 // Deadband: happy below this contributes nothing
	Slight   float64
	Moderate float64
	Broad    float64

	// Geometric smile calibration (mouth width / height)
	MouthRatioBase  float64 // Ratio at which the geometric signal starts
	MouthRatioScale float64 // Ratio span from 0 to full geometric signal

	// Fusion weights; must sum to 1
	NeuralWeight   float64
	GeometryWeight float64

	// Numerical guard for near-zero denominators
	Epsilon float64

	// Degrees per normalized unit in the pitch/yaw approximations
	PoseScale float64

	// Observability
	Logger *slog.Logger
}

// DefaultConfig returns the tuned defaults for a MediaPipe Face Mesh source.
func DefaultConfig() Config {
	return Config{
		Layout: landmark.MediaPipeFaceMesh(),

		CalibrationSamples: 30,  // ~1s at 30fps
		MaxOpenness:        2.0, // Up to twice the neutral aperture

		WindowSize: 5, // ~100-150ms at typical capture rates

		Minimal:  0.40,
		Slight:   0.60,
		Moderate: 0.75,
		Broad:    0.85,

		MouthRatioBase:  4.0,
		MouthRatioScale: 4.0,

		NeuralWeight:   0.75, // Classifier dominates when present
		GeometryWeight: 0.25, // Geometry refines borderline cases

		Epsilon:   1e-4,
		PoseScale: 90,

		Logger: slog.Default(),
	}
}

// RelaxedSmileConfig returns the looser smile tuning used before the
// thresholds were tightened: no deadband and a lower mouth ratio base.
func RelaxedSmileConfig() Config {
	cfg := DefaultConfig()
	cfg.Minimal = 0.0
	cfg.Slight = 0.2
	cfg.Moderate = 0.5
	cfg.Broad = 0.8
	cfg.MouthRatioBase = 3.0
	cfg.MouthRatioScale = 3.0
	return cfg
}

// StrictSmileConfig returns a tuning that needs a clearer smile to register.
func StrictSmileConfig() Config {
	cfg := DefaultConfig()
	cfg.Minimal = 0.55
	cfg.Slight = 0.70
	cfg.Moderate = 0.80
	cfg.Broad = 0.90
	cfg.MouthRatioBase = 4.5
	cfg.MouthRatioScale = 4.0
	return cfg
}

// Option is a functional option applied on top of a Config.
type Option func(*Config)

// WithLayout sets the landmark topology.
func WithLayout(l landmark.Layout) Option {
	return func(c *Config) { c.Layout = l }
}

// WithCalibrationSamples sets how many frames form the baseline.
func WithCalibrationSamples(n int) Option {
	return func(c *Config) { c.CalibrationSamples = n }
}

// WithWindowSize sets the confidence smoothing window length.
func WithWindowSize(n int) Option {
	return func(c *Config) { c.WindowSize = n }
}

// WithSmileGeometry sets the mouth ratio base and scale.
func WithSmileGeometry(base, scale float64) Option {
	return func(c *Config) {
		c.MouthRatioBase = base
		c.MouthRatioScale = scale
	}
}

// WithMinimal sets the happy-confidence deadband.
func WithMinimal(v float64) Option {
	return func(c *Config) { c.Minimal = v }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that the parameters describe a usable engine.
func (c Config) Validate() error {
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	switch {
	case c.CalibrationSamples < 1:
		return fmt.Errorf("%w: calibration samples must be >= 1, got %d", ErrInvalidConfig, c.CalibrationSamples)
	case c.WindowSize < 1:
		return fmt.Errorf("%w: window size must be >= 1, got %d", ErrInvalidConfig, c.WindowSize)
	case !(c.MaxOpenness > 0):
		return fmt.Errorf("%w: max openness must be > 0, got %v", ErrInvalidConfig, c.MaxOpenness)
	case c.Minimal < 0 || c.Minimal >= 1:
		return fmt.Errorf("%w: minimal must be in [0,1), got %v", ErrInvalidConfig, c.Minimal)
	case !(c.Minimal <= c.Slight && c.Slight <= c.Moderate && c.Moderate <= c.Broad && c.Broad <= 1):
		return fmt.Errorf("%w: smile thresholds must be ordered minimal <= slight <= moderate <= broad <= 1", ErrInvalidConfig)
	case !(c.MouthRatioScale > 0):
		return fmt.Errorf("%w: mouth ratio scale must be > 0, got %v", ErrInvalidConfig, c.MouthRatioScale)
	case c.NeuralWeight < 0 || c.GeometryWeight < 0:
		return fmt.Errorf("%w: fusion weights must be non-negative", ErrInvalidConfig)
	case math.Abs(c.NeuralWeight+c.GeometryWeight-1) > 1e-9:
		return fmt.Errorf("%w: fusion weights must sum to 1, got %v", ErrInvalidConfig, c.NeuralWeight+c.GeometryWeight)
	case !(c.Epsilon > 0):
		return fmt.Errorf("%w: epsilon must be > 0, got %v", ErrInvalidConfig, c.Epsilon)
	}

	if !isFinite(c.MouthRatioBase) || !isFinite(c.PoseScale) {
		return fmt.Errorf("%w: non-finite parameter", ErrInvalidConfig)
	}
	return nil
}
