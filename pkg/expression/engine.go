package expression

import (
	"log/slog"

	"github.com/teslashibe/go-facemetrics/pkg/landmark"
)

// Engine turns landmark frames into expression metrics for a single face.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	calibrator *Calibrator
	smoother   *Smoother
	smile      SmileModel

	frames  uint64
	last    Metrics
	hasLast bool
}

// NewEngine creates an engine from cfg with opts applied on top.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Engine{
		cfg:        cfg,
		logger:     cfg.Logger.With("component", "expression.engine"),
		calibrator: NewCalibrator(cfg.CalibrationSamples),
		smoother:   NewSmoother(cfg.WindowSize),
		smile:      NewSmileModel(cfg),
	}, nil
}

// Process runs one frame through the engine. conf may be nil when no
// classifier output is available for the frame.
//
// A frame that cannot be measured returns an error wrapping ErrInvalidInput
// and leaves the engine untouched. While the baseline is being collected the
// returned metrics are neutral.
func (e *Engine) Process(frame landmark.Frame, conf Confidence) (Result, error) {
	m, err := extract(frame, e.cfg.Layout, e.cfg.PoseScale)
	if err != nil {
		return Result{}, err
	}

	e.frames++

	if !e.calibrator.Ready() {
		e.calibrator.Observe(m)
		b := e.calibrator.Baseline()

		res := Result{
			Frame:   e.frames,
			State:   e.State(),
			Samples: b.Samples,
		}
		if b.Calibrated {
			res.JustCalibrated = true
			e.logger.Info("calibration complete",
				"samples", b.Samples,
				"mouth_height", b.MouthHeight,
				"mouth_width", b.MouthWidth,
				"eye_height", b.EyeHeight,
			)
		} else {
			e.logger.Debug("calibrating", "frame", e.frames, "remaining", e.calibrator.Remaining())
		}
		return res, nil
	}

	b := e.calibrator.Baseline()
	metrics := Metrics{
		MouthOpenness: clamp(m.MouthHeight/guard(b.MouthHeight, e.cfg.Epsilon), 0, e.cfg.MaxOpenness),
		EyeOpenness:   clamp(m.EyeHeight/guard(b.EyeHeight, e.cfg.Epsilon), 0, e.cfg.MaxOpenness),
		HeadPose:      m.HeadPose,
	}

	var smoothed Confidence
	if conf != nil {
		e.smoother.Push(conf)
		smoothed = e.smoother.Average()
	}
	breakdown := e.smile.Explain(smoothed, m.MouthWidth, m.MouthHeight)
	metrics.SmileLevel = breakdown.Level
	dominant, _ := smoothed.Dominant()

	e.logger.Debug("smile",
		"frame", e.frames,
		"dominant", dominant,
		"raw_happy", breakdown.RawHappy,
		"neural", breakdown.Neural,
		"mouth_ratio", breakdown.MouthRatio,
		"geometric", breakdown.Geometric,
		"level", breakdown.Level,
	)

	e.last, e.hasLast = metrics, true
	return Result{
		Frame:   e.frames,
		State:   StateCalibrated,
		Samples: b.Samples,
		Metrics: metrics,
	}, nil
}

// State returns the current calibration state.
func (e *Engine) State() State {
	if e.calibrator.Ready() {
		return StateCalibrated
	}
	return StateUncalibrated
}

// Calibrated reports whether the baseline is frozen.
func (e *Engine) Calibrated() bool {
	return e.calibrator.Ready()
}

// Baseline returns a copy of the current baseline.
func (e *Engine) Baseline() Baseline {
	return e.calibrator.Baseline()
}

// Last returns the most recently emitted metrics. ok is false until the
// first frame after calibration.
func (e *Engine) Last() (m Metrics, ok bool) {
	return e.last, e.hasLast
}

// Frames returns the number of accepted frames.
func (e *Engine) Frames() uint64 {
	return e.frames
}
