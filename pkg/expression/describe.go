package expression

import "fmt"

// Band is a coarse, human-readable bucket for one metric.
type Band string

const (
	BandClosed   Band = "closed"
	BandOpen     Band = "open"
	BandWide     Band = "wide"
	BandRelaxed  Band = "relaxed"
	BandNone     Band = "none"
	BandSlight   Band = "slight"
	BandModerate Band = "moderate"
	BandBroad    Band = "broad"
)

// Description buckets a Metrics record for display.
type Description struct {
	Mouth      Band   `json:"mouth"`
	MouthEmoji string `json:"mouth_emoji"`
	Eyes       Band   `json:"eyes"`
	EyesEmoji  string `json:"eyes_emoji"`
	Smile      Band   `json:"smile"`
	SmileEmoji string `json:"smile_emoji"`
}

// Describe buckets metrics into display bands.
//
// Mouth bands apply to the opening beyond the neutral baseline
// (MouthOpenness - 1). Eye bands apply to EyeOpenness as a fraction of the
// 2x ceiling, so a neutral face reads as relaxed.
func Describe(m Metrics) Description {
	var d Description

	switch mouth := m.MouthOpenness - 1; {
	case mouth < 0.2:
		d.Mouth, d.MouthEmoji = BandClosed, "😐"
	case mouth < 0.5:
		d.Mouth, d.MouthEmoji = BandOpen, "😮"
	default:
		d.Mouth, d.MouthEmoji = BandWide, "😲"
	}

	switch eyes := m.EyeOpenness / 2; {
	case eyes < 0.3:
		d.Eyes, d.EyesEmoji = BandClosed, "😑"
	case eyes < 0.7:
		d.Eyes, d.EyesEmoji = BandRelaxed, "👁️"
	default:
		d.Eyes, d.EyesEmoji = BandWide, "👁️‍🗨️"
	}

	switch s := m.SmileLevel; {
	case s < 0.3:
		d.Smile, d.SmileEmoji = BandNone, "😐"
	case s < 0.6:
		d.Smile, d.SmileEmoji = BandSlight, "🙂"
	case s < 0.85:
		d.Smile, d.SmileEmoji = BandModerate, "😊"
	default:
		d.Smile, d.SmileEmoji = BandBroad, "😄"
	}

	return d
}

func (d Description) String() string {
	return fmt.Sprintf("mouth %s %s, eyes %s %s, smile %s %s",
		d.Mouth, d.MouthEmoji, d.Eyes, d.EyesEmoji, d.Smile, d.SmileEmoji)
}
