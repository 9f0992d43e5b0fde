package expression

// SmileBreakdown records how a smile level was computed.
type SmileBreakdown struct {
	HasConfidence bool    // A smoothed classifier vector was available
	RawHappy      float64 // Smoothed happy confidence
	Neural        float64 // Happy after the deadband rescale
	MouthRatio    float64 // Mouth width / (height + epsilon)
	Geometric     float64 // Normalized mouth-shape contribution
	Level         float64 // Final fused smile level
}

// SmileModel fuses classifier confidence with mouth geometry.
//
// The classifier is semantically better but jumpy near its decision
// boundary; the width-to-height ratio of the mouth is continuous and always
// available. With confidence present the level is
// NeuralWeight*neural + GeometryWeight*geometric; without it, the
// geometric term alone.
type SmileModel struct {
	minimal   float64
	base      float64
	scale     float64
	wNeural   float64
	wGeometry float64
	eps       float64
}

// NewSmileModel builds a smile model from the smile fields of cfg.
func NewSmileModel(cfg Config) SmileModel {
	return SmileModel{
		minimal:   cfg.Minimal,
		base:      cfg.MouthRatioBase,
		scale:     cfg.MouthRatioScale,
		wNeural:   cfg.NeuralWeight,
		wGeometry: cfg.GeometryWeight,
		eps:       cfg.Epsilon,
	}
}

// Ratio returns mouth width over mouth height. A closed mouth yields a large
// finite ratio instead of dividing by zero.
func (s SmileModel) Ratio(width, height float64) float64 {
	return width / (height + s.eps)
}

// Geometric returns the mouth-shape smile signal in [0,1].
func (s SmileModel) Geometric(width, height float64) float64 {
	return clamp((s.Ratio(width, height)-s.base)/s.scale, 0, 1)
}

// Neural rescales a happy confidence through the deadband into [0,1].
func (s SmileModel) Neural(happy float64) float64 {
	if !(happy >= s.minimal) {
		return 0
	}
	return clamp((happy-s.minimal)/(1-s.minimal), 0, 1)
}

// Fuse returns the smile level in [0,1]. Pass a nil Confidence when no
// classifier output is available.
func (s SmileModel) Fuse(smoothed Confidence, width, height float64) float64 {
	return s.Explain(smoothed, width, height).Level
}

// Explain is Fuse with the intermediate values kept.
func (s SmileModel) Explain(smoothed Confidence, width, height float64) SmileBreakdown {
	b := SmileBreakdown{
		MouthRatio: s.Ratio(width, height),
		Geometric:  s.Geometric(width, height),
	}

	if smoothed == nil {
		b.Level = b.Geometric
		return b
	}

	b.HasConfidence = true
	b.RawHappy = smoothed.Happy()
	b.Neural = s.Neural(b.RawHappy)
	b.Level = clamp(s.wNeural*b.Neural+s.wGeometry*b.Geometric, 0, 1)
	return b
}
