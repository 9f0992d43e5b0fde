package expression

// Baseline is the neutral-face reference collected during calibration.
type Baseline struct {
	MouthHeight float64 `json:"mouth_height"`
	MouthWidth  float64 `json:"mouth_width"`
	EyeHeight   float64 `json:"eye_height"`
	Samples     int     `json:"samples"`
	Calibrated  bool    `json:"calibrated"`
}

// Calibrator accumulates a running mean of neutral-face measurements.
// Once it has seen its sample quota the baseline is frozen for good.
type Calibrator struct {
	max      int
	baseline Baseline
}

// NewCalibrator creates a calibrator that freezes after maxSamples observations.
func NewCalibrator(maxSamples int) *Calibrator {
	if maxSamples < 1 {
		maxSamples = 1
	}
	return &Calibrator{max: maxSamples}
}

// Observe folds one frame's measurements into the baseline.
// It is a no-op once calibration is complete.
func (c *Calibrator) Observe(m Measurements) {
	if c.baseline.Calibrated || c.baseline.Samples >= c.max {
		return
	}

	n := float64(c.baseline.Samples)
	b := c.baseline
	b.MouthHeight = (b.MouthHeight*n + m.MouthHeight) / (n + 1)
	b.MouthWidth = (b.MouthWidth*n + m.MouthWidth) / (n + 1)
	b.EyeHeight = (b.EyeHeight*n + m.EyeHeight) / (n + 1)
	b.Samples++
	if b.Samples >= c.max {
		b.Calibrated = true
	}

	c.baseline = b
}

// Ready reports whether the baseline is frozen.
func (c *Calibrator) Ready() bool {
	return c.baseline.Calibrated
}

// Baseline returns a copy of the current baseline.
func (c *Calibrator) Baseline() Baseline {
	return c.baseline
}

// Remaining returns how many more observations are needed.
func (c *Calibrator) Remaining() int {
	return c.max - c.baseline.Samples
}
