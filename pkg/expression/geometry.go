package expression

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-facemetrics/pkg/landmark"
)

// Measurements are the raw scalar readings taken from one frame.
type Measurements struct {
	MouthWidth     float64
	MouthHeight    float64
	LeftEyeHeight  float64
	RightEyeHeight float64

	// EyeHeight is the mean of both eye apertures.
	EyeHeight float64

	HeadPose HeadPose
}

// Extract reads mouth, eye and head pose measurements from a frame using the
// default pose scale (90 degrees per normalized unit).
func Extract(frame landmark.Frame, layout landmark.Layout) (Measurements, error) {
	return extract(frame, layout, 90)
}

func extract(frame landmark.Frame, layout landmark.Layout, poseScale float64) (Measurements, error) {
	f, err := layout.Resolve(frame)
	if err != nil {
		return Measurements{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := checkFinite(f); err != nil {
		return Measurements{}, err
	}

	left := landmark.Distance(f.LeftEyeTop, f.LeftEyeBottom)
	right := landmark.Distance(f.RightEyeTop, f.RightEyeBottom)

	m := Measurements{
		MouthWidth:     landmark.Distance(f.MouthLeft, f.MouthRight),
		MouthHeight:    landmark.Distance(f.MouthTop, f.MouthBottom),
		LeftEyeHeight:  left,
		RightEyeHeight: right,
		EyeHeight:      (left + right) / 2,
		HeadPose:       estimatePose(f, poseScale),
	}
	if !m.finite() {
		return Measurements{}, fmt.Errorf("%w: measurement overflow", ErrInvalidInput)
	}
	return m, nil
}

// finite reports whether every reading is a finite number. Very large
// coordinates can overflow to Inf even when each input is finite.
func (m Measurements) finite() bool {
	for _, v := range []float64{
		m.MouthWidth, m.MouthHeight, m.LeftEyeHeight, m.RightEyeHeight, m.EyeHeight,
		m.HeadPose.Pitch, m.HeadPose.Yaw, m.HeadPose.Roll,
	} {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

// estimatePose derives pitch, yaw and roll from a handful of landmarks.
//
// This is a coarse approximation, not a 3D pose solve: pitch and yaw are
// linear in the nose offset from the eye line and cheek midpoint, and roll is
// the tilt of the line between the upper eyelids. Values are only meaningful
// for roughly frontal faces.
func estimatePose(f landmark.Features, scale float64) HeadPose {
	eyeLine := landmark.Midpoint(f.LeftEyeTop, f.RightEyeTop)
	cheekMid := landmark.Midpoint(f.LeftCheek, f.RightCheek)

	return HeadPose{
		Pitch: (f.NoseTip.Y - eyeLine.Y) * scale,
		Yaw:   (f.NoseTip.X - cheekMid.X) * scale,
		Roll: radToDeg(math.Atan2(
			f.RightEyeTop.Y-f.LeftEyeTop.Y,
			f.RightEyeTop.X-f.LeftEyeTop.X,
		)),
	}
}

func checkFinite(f landmark.Features) error {
	points := []landmark.Point{
		f.MouthTop, f.MouthBottom, f.MouthLeft, f.MouthRight,
		f.LeftEyeTop, f.LeftEyeBottom, f.RightEyeTop, f.RightEyeBottom,
		f.NoseTip, f.LeftCheek, f.RightCheek,
	}
	for _, p := range points {
		if !isFinite(p.X) || !isFinite(p.Y) || !isFinite(p.Z) {
			return fmt.Errorf("%w: non-finite landmark coordinate %+v", ErrInvalidInput, p)
		}
	}
	return nil
}
