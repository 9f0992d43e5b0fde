package expression

import "math"

// clamp restricts a value to a range. NaN maps to min.
func clamp(v, min, max float64) float64 {
	if v < min || math.IsNaN(v) {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// guard keeps a denominator away from zero.
func guard(v, eps float64) float64 {
	if v < eps {
		return eps
	}
	return v
}

func radToDeg(r float64) float64 {
	return r * 180 / math.Pi
}
