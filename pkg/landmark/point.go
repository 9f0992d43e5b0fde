// Package landmark describes facial landmark frames produced by an external
// face-mesh detector.
//
// A frame is an ordered slice of 3D points whose positions follow a fixed
// topology. The meaning of each index belongs to the detector, so named
// features are looked up through a Layout rather than hardcoded indices.
package landmark

import "gonum.org/v1/gonum/floats"

// Point is a single landmark position in the detector's normalized space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec returns the point as a 3-vector.
func (p Point) Vec() []float64 {
	return []float64{p.X, p.Y, p.Z}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return floats.Distance(a.Vec(), b.Vec(), 2)
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point) Point {
	return Point{
		X: (a.X + b.X) / 2,
		Y: (a.Y + b.Y) / 2,
		Z: (a.Z + b.Z) / 2,
	}
}

// Frame is one detector output: the ordered landmark set for a single face.
type Frame []Point
