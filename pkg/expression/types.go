// Package expression turns facial landmark frames into normalized expression
// metrics: mouth openness, eye openness, smile level and head pose.
//
// An Engine owns all per-face state. It first calibrates a neutral-face
// baseline from the opening frames of a session, then normalizes every later
// frame against it. An optional per-frame confidence vector from an external
// expression classifier is smoothed over a short window and fused with a
// geometric mouth-shape signal to produce the smile level.
//
// Engines are not safe for concurrent use. Track one face per Engine.
package expression

// Label names one class of an external expression classifier.
type Label string

// The closed set of expression labels.
const (
	LabelNeutral   Label = "neutral"
	LabelHappy     Label = "happy"
	LabelSad       Label = "sad"
	LabelAngry     Label = "angry"
	LabelFearful   Label = "fearful"
	LabelDisgusted Label = "disgusted"
	LabelSurprised Label = "surprised"
)

// Labels lists every label in a stable order.
var Labels = [...]Label{
	LabelNeutral,
	LabelHappy,
	LabelSad,
	LabelAngry,
	LabelFearful,
	LabelDisgusted,
	LabelSurprised,
}

const numLabels = len(Labels)

func labelIndex(l Label) (int, bool) {
	for i, known := range Labels {
		if known == l {
			return i, true
		}
	}
	return 0, false
}

// Confidence maps expression labels to classifier scores in [0,1].
// A nil Confidence means no classifier output is available for the frame.
type Confidence map[Label]float64

// Happy returns the happy score (0 when absent).
func (c Confidence) Happy() float64 {
	return c[LabelHappy]
}

// Dominant returns the highest scoring label. Ties go to the earlier label in Labels.
func (c Confidence) Dominant() (Label, float64) {
	best, score := LabelNeutral, -1.0
	for _, l := range Labels {
		if v, ok := c[l]; ok && v > score {
			best, score = l, v
		}
	}
	if score < 0 {
		return LabelNeutral, 0
	}
	return best, score
}

// HeadPose is a coarse head orientation estimate in degrees.
type HeadPose struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// Metrics is the per-frame expression output.
type Metrics struct {
	// MouthOpenness is mouth height relative to the neutral baseline, in [0, MaxOpenness].
	MouthOpenness float64 `json:"mouth_openness"`

	// EyeOpenness is mean eye aperture relative to the neutral baseline, in [0, MaxOpenness].
	EyeOpenness float64 `json:"eye_openness"`

	// SmileLevel is the fused smile score in [0,1].
	SmileLevel float64 `json:"smile_level"`

	HeadPose HeadPose `json:"head_pose"`
}

// IsNeutral reports whether every field is zero, which is what the engine
// emits while it is still calibrating.
func (m Metrics) IsNeutral() bool {
	return m == Metrics{}
}

// State is the engine's calibration state.
type State int

const (
	// StateUncalibrated means the baseline is still being collected; output is neutral.
	StateUncalibrated State = iota

	// StateCalibrated means the baseline is frozen and output is normalized.
	StateCalibrated
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUncalibrated:
		return "uncalibrated"
	case StateCalibrated:
		return "calibrated"
	default:
		return "unknown"
	}
}

// Result is the outcome of processing one frame.
type Result struct {
	// Frame counts accepted frames, starting at 1.
	Frame uint64

	// State is the engine state after the frame.
	State State

	// Samples is the number of calibration samples collected so far.
	Samples int

	// JustCalibrated is true only for the frame that completed calibration.
	JustCalibrated bool

	// Metrics is neutral while State is StateUncalibrated, and for the
	// frame that completes calibration.
	Metrics Metrics
}

// Suppressed reports whether Metrics were withheld for this frame because
// the baseline was not yet frozen when it arrived.
func (r Result) Suppressed() bool {
	return r.State == StateUncalibrated || r.JustCalibrated
}
