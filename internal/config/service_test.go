package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-facemetrics/pkg/expression"
	"github.com/teslashibe/go-facemetrics/pkg/landmark"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "mediapipe", cfg.Layout)
	assert.Equal(t, 30, cfg.CalibrationSamples)
	assert.Equal(t, 5, cfg.SmoothingWindow)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.Equal(t, 10*time.Minute, cfg.SessionIdle)
	assert.Equal(t, "gpt-3.5-turbo", cfg.ChatModel)
	assert.Equal(t, 150, cfg.ChatMaxTokens)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FACEMETRICS_PORT", "9000")
	t.Setenv("FACEMETRICS_LAYOUT", "ibug68")
	t.Setenv("FACEMETRICS_CALIBRATION_SAMPLES", "10")
	t.Setenv("FACEMETRICS_SMILE_MINIMAL", "0.5")
	t.Setenv("FACEMETRICS_DEBUG", "true")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.ChatEnabled())

	eng, err := cfg.Engine()
	require.NoError(t, err)
	assert.Equal(t, landmark.IBUG68(), eng.Layout)
	assert.Equal(t, 10, eng.CalibrationSamples)
	assert.Equal(t, 0.5, eng.Minimal)
}

func TestLoadError(t *testing.T) {
	t.Setenv("FACEMETRICS_CALIBRATION_SAMPLES", "many")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestEngineDefaultsMatchExpression(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	eng, err := cfg.Engine()
	require.NoError(t, err)

	want := expression.DefaultConfig()
	assert.Equal(t, want.Minimal, eng.Minimal)
	assert.Equal(t, want.MouthRatioBase, eng.MouthRatioBase)
	assert.Equal(t, want.MouthRatioScale, eng.MouthRatioScale)
	assert.Equal(t, want.WindowSize, eng.WindowSize)
	assert.Equal(t, want.CalibrationSamples, eng.CalibrationSamples)
}

func TestEnginePresets(t *testing.T) {
	tests := []struct {
		preset string
		want   expression.Config
	}{
		{"default", expression.DefaultConfig()},
		{"relaxed", expression.RelaxedSmileConfig()},
		{"strict", expression.StrictSmileConfig()},
	}

	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			t.Setenv("FACEMETRICS_SMILE_PRESET", tt.preset)
			cfg, err := Load()
			require.NoError(t, err)

			eng, err := cfg.Engine()
			require.NoError(t, err)
			assert.Equal(t, tt.want.Minimal, eng.Minimal)
			assert.Equal(t, tt.want.MouthRatioBase, eng.MouthRatioBase)
		})
	}
}

func TestEngineGeometryOverride(t *testing.T) {
	t.Setenv("FACEMETRICS_MOUTH_RATIO_SCALE", "2.5")

	cfg, err := Load()
	require.NoError(t, err)
	eng, err := cfg.Engine()
	require.NoError(t, err)

	assert.Equal(t, 4.0, eng.MouthRatioBase)
	assert.Equal(t, 2.5, eng.MouthRatioScale)
}

func TestEngineErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Service
		is   error
	}{
		{"unknown layout", Service{Layout: "dlib5", CalibrationSamples: 30, SmoothingWindow: 5, SmileMinimal: -1, MouthRatioBase: -1, MouthRatioScale: -1}, landmark.ErrUnknownLayout},
		{"zero window", Service{Layout: "mediapipe", CalibrationSamples: 30, SmoothingWindow: 0, SmileMinimal: -1, MouthRatioBase: -1, MouthRatioScale: -1}, expression.ErrInvalidConfig},
		{"unknown preset", Service{Layout: "mediapipe", SmilePreset: "giddy"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Engine()
			require.Error(t, err)
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is), "expected %v, got %v", tt.is, err)
			}
		})
	}
}
