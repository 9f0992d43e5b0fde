// Package config loads facemetrics service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/teslashibe/go-facemetrics/pkg/expression"
	"github.com/teslashibe/go-facemetrics/pkg/landmark"
)

// Service is the facemetrics service configuration.
type Service struct {
	Port     string `env:"FACEMETRICS_PORT"      envDefault:"8090"`
	LogLevel string `env:"FACEMETRICS_LOG_LEVEL" envDefault:"info"`
	Debug    bool   `env:"FACEMETRICS_DEBUG"`

	// History recorder; empty disables persistence
	DBPath       string `env:"FACEMETRICS_DB_PATH"`
	HistoryLimit int    `env:"FACEMETRICS_HISTORY_LIMIT" envDefault:"100"`

	// HTTP sessions idle longer than this are dropped
	SessionIdle time.Duration `env:"FACEMETRICS_SESSION_IDLE" envDefault:"10m"`

	// Expression engine
	Layout             string  `env:"FACEMETRICS_LAYOUT"              envDefault:"mediapipe"`
	CalibrationSamples int     `env:"FACEMETRICS_CALIBRATION_SAMPLES" envDefault:"30"`
	SmoothingWindow    int     `env:"FACEMETRICS_SMOOTHING_WINDOW"    envDefault:"5"`
	SmilePreset        string  `env:"FACEMETRICS_SMILE_PRESET"        envDefault:"default"`
	SmileMinimal       float64 `env:"FACEMETRICS_SMILE_MINIMAL"       envDefault:"-1"`
	MouthRatioBase     float64 `env:"FACEMETRICS_MOUTH_RATIO_BASE"    envDefault:"-1"`
	MouthRatioScale    float64 `env:"FACEMETRICS_MOUTH_RATIO_SCALE"   envDefault:"-1"`

	// Chat enrichment
	OpenAIKey      string        `env:"OPENAI_API_KEY"`
	ChatBaseURL    string        `env:"FACEMETRICS_CHAT_BASE_URL"   envDefault:"https://api.openai.com/v1"`
	ChatModel      string        `env:"FACEMETRICS_CHAT_MODEL"      envDefault:"gpt-3.5-turbo"`
	ChatMaxTokens  int           `env:"FACEMETRICS_CHAT_MAX_TOKENS" envDefault:"150"`
	ChatTimeout    time.Duration `env:"FACEMETRICS_CHAT_TIMEOUT"    envDefault:"30s"`
	ChatSystemText string        `env:"FACEMETRICS_CHAT_SYSTEM_PROMPT"`
}

// Load parses the service configuration from environment variables.
func Load() (Service, error) {
	var cfg Service
	if err := env.Parse(&cfg); err != nil {
		return Service{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Engine builds the expression engine configuration. Negative smile tuning
// values keep the preset's value.
func (s Service) Engine() (expression.Config, error) {
	var cfg expression.Config
	switch s.SmilePreset {
	case "", "default":
		cfg = expression.DefaultConfig()
	case "relaxed":
		cfg = expression.RelaxedSmileConfig()
	case "strict":
		cfg = expression.StrictSmileConfig()
	default:
		return expression.Config{}, fmt.Errorf("unknown smile preset %q", s.SmilePreset)
	}

	layout, err := landmark.Lookup(s.Layout)
	if err != nil {
		return expression.Config{}, err
	}

	opts := []expression.Option{
		expression.WithLayout(layout),
		expression.WithCalibrationSamples(s.CalibrationSamples),
		expression.WithWindowSize(s.SmoothingWindow),
	}
	if s.SmileMinimal >= 0 {
		opts = append(opts, expression.WithMinimal(s.SmileMinimal))
	}
	if s.MouthRatioBase >= 0 || s.MouthRatioScale >= 0 {
		base, scale := cfg.MouthRatioBase, cfg.MouthRatioScale
		if s.MouthRatioBase >= 0 {
			base = s.MouthRatioBase
		}
		if s.MouthRatioScale >= 0 {
			scale = s.MouthRatioScale
		}
		opts = append(opts, expression.WithSmileGeometry(base, scale))
	}
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return expression.Config{}, err
	}
	return cfg, nil
}

// ChatEnabled reports whether an API key is configured.
func (s Service) ChatEnabled() bool {
	return s.OpenAIKey != ""
}
