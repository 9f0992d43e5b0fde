package expression

import "gonum.org/v1/gonum/stat"

type vector [numLabels]float64

func toVector(c Confidence) vector {
	var v vector
	for label, score := range c {
		if i, ok := labelIndex(label); ok {
			v[i] = clamp(score, 0, 1)
		}
	}
	return v
}

// Smoother keeps the last few confidence vectors and reports their
// per-label arithmetic mean. Every entry in the window carries equal weight,
// so one noisy frame cannot dominate while the output still follows a
// change within a window length.
type Smoother struct {
	window []vector
	start  int
	count  int
}

// NewSmoother creates a smoother with a fixed window capacity.
func NewSmoother(capacity int) *Smoother {
	if capacity < 1 {
		capacity = 1
	}
	return &Smoother{window: make([]vector, capacity)}
}

// Push appends a vector, evicting the oldest one when the window is full.
// Unknown labels are ignored; scores are clamped to [0,1] and NaN counts as 0.
func (s *Smoother) Push(c Confidence) {
	v := toVector(c)
	if s.count < len(s.window) {
		s.window[(s.start+s.count)%len(s.window)] = v
		s.count++
		return
	}
	s.window[s.start] = v
	s.start = (s.start + 1) % len(s.window)
}

// Average returns the per-label mean over the window. An empty window yields
// an all-zero vector.
func (s *Smoother) Average() Confidence {
	out := make(Confidence, numLabels)
	if s.count == 0 {
		for _, l := range Labels {
			out[l] = 0
		}
		return out
	}

	values := make([]float64, s.count)
	for i, l := range Labels {
		for j := 0; j < s.count; j++ {
			values[j] = s.window[(s.start+j)%len(s.window)][i]
		}
		out[l] = stat.Mean(values, nil)
	}
	return out
}

// Len returns the number of vectors currently in the window.
func (s *Smoother) Len() int {
	return s.count
}

// Capacity returns the window length.
func (s *Smoother) Capacity() int {
	return len(s.window)
}

// Reset empties the window.
func (s *Smoother) Reset() {
	clear(s.window)
	s.start = 0
	s.count = 0
}
