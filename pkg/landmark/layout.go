package landmark

import (
	"fmt"
	"sort"
	"strings"
)

// Layout maps the named facial features used for expression metrics onto
// indices of a particular detector topology. Left and right follow image
// space, not the subject's anatomy.
type Layout struct {
	Name string `json:"name"`

	// Points is the number of landmarks the detector emits (informational).
	Points int `json:"points"`

	MouthTop    int `json:"mouth_top"`
	MouthBottom int `json:"mouth_bottom"`
	MouthLeft   int `json:"mouth_left"`
	MouthRight  int `json:"mouth_right"`

	LeftEyeTop     int `json:"left_eye_top"`
	LeftEyeBottom  int `json:"left_eye_bottom"`
	RightEyeTop    int `json:"right_eye_top"`
	RightEyeBottom int `json:"right_eye_bottom"`

	NoseTip    int `json:"nose_tip"`
	LeftCheek  int `json:"left_cheek"`
	RightCheek int `json:"right_cheek"`
}

// Features holds the resolved points for one frame.
type Features struct {
	MouthTop, MouthBottom, MouthLeft, MouthRight           Point
	LeftEyeTop, LeftEyeBottom, RightEyeTop, RightEyeBottom Point
	NoseTip, LeftCheek, RightCheek                         Point
}

// MediaPipeFaceMesh is the 468-point MediaPipe Face Mesh topology
// (478 with refined iris landmarks).
func MediaPipeFaceMesh() Layout {
	return Layout{
		Name:           "mediapipe",
		Points:         468,
		MouthTop:       13,
		MouthBottom:    14,
		MouthLeft:      78,
		MouthRight:     308,
		LeftEyeTop:     159,
		LeftEyeBottom:  145,
		RightEyeTop:    386,
		RightEyeBottom: 374,
		NoseTip:        1,
		LeftCheek:      123,
		RightCheek:     352,
	}
}

// IBUG68 is the classic 68-point (iBUG 300-W / dlib / face-api.js) topology,
// zero-based. Inner lip points are used for mouth height.
func IBUG68() Layout {
	return Layout{
		Name:           "ibug68",
		Points:         68,
		MouthTop:       62,
		MouthBottom:    66,
		MouthLeft:      48,
		MouthRight:     54,
		LeftEyeTop:     37,
		LeftEyeBottom:  41,
		RightEyeTop:    44,
		RightEyeBottom: 46,
		NoseTip:        30,
		LeftCheek:      2,
		RightCheek:     14,
	}
}

var layouts = map[string]func() Layout{
	"mediapipe": MediaPipeFaceMesh,
	"ibug68":    IBUG68,
}

// Lookup returns a registered layout by name (case-insensitive).
func Lookup(name string) (Layout, error) {
	fn, ok := layouts[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Layout{}, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
	}
	return fn(), nil
}

// Names returns the registered layout names, sorted.
func Names() []string {
	names := make([]string, 0, len(layouts))
	for name := range layouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l Layout) indices() []int {
	return []int{
		l.MouthTop, l.MouthBottom, l.MouthLeft, l.MouthRight,
		l.LeftEyeTop, l.LeftEyeBottom, l.RightEyeTop, l.RightEyeBottom,
		l.NoseTip, l.LeftCheek, l.RightCheek,
	}
}

// MaxIndex returns the largest index the layout reads.
func (l Layout) MaxIndex() int {
	max := -1
	for _, i := range l.indices() {
		if i > max {
			max = i
		}
	}
	return max
}

// Validate checks that every index is non-negative.
func (l Layout) Validate() error {
	for _, i := range l.indices() {
		if i < 0 {
			return fmt.Errorf("%w: %s has negative index %d", ErrInvalidLayout, l.Name, i)
		}
	}
	return nil
}

// Resolve picks the named feature points out of a frame.
func (l Layout) Resolve(f Frame) (Features, error) {
	if max := l.MaxIndex(); len(f) <= max {
		return Features{}, fmt.Errorf("%w: frame has %d points, layout %s needs index %d",
			ErrMissingLandmark, len(f), l.Name, max)
	}
	if err := l.Validate(); err != nil {
		return Features{}, err
	}

	return Features{
		MouthTop:       f[l.MouthTop],
		MouthBottom:    f[l.MouthBottom],
		MouthLeft:      f[l.MouthLeft],
		MouthRight:     f[l.MouthRight],
		LeftEyeTop:     f[l.LeftEyeTop],
		LeftEyeBottom:  f[l.LeftEyeBottom],
		RightEyeTop:    f[l.RightEyeTop],
		RightEyeBottom: f[l.RightEyeBottom],
		NoseTip:        f[l.NoseTip],
		LeftCheek:      f[l.LeftCheek],
		RightCheek:     f[l.RightCheek],
	}, nil
}
