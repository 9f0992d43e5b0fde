package chat

import (
	"fmt"
	"strings"

	"github.com/teslashibe/go-facemetrics/pkg/expression"
)

// FormatMetrics renders metrics as the text block appended to user messages.
func FormatMetrics(m expression.Metrics) string {
	var b strings.Builder
	b.WriteString("[Facial Expression Data]\n")
	fmt.Fprintf(&b, "- Mouth openness: %.2f\n", m.MouthOpenness)
	fmt.Fprintf(&b, "- Eye openness: %.2f\n", m.EyeOpenness)
	fmt.Fprintf(&b, "- Smile level: %.2f\n", m.SmileLevel)
	fmt.Fprintf(&b, "- Head pose: pitch %.2f, yaw %.2f, roll %.2f\n",
		m.HeadPose.Pitch, m.HeadPose.Yaw, m.HeadPose.Roll)
	return b.String()
}

// Enrich appends the metrics block to message after a blank line.
// A nil m returns message unchanged.
func Enrich(message string, m *expression.Metrics) string {
	if m == nil {
		return message
	}
	return message + "\n\n" + FormatMetrics(*m)
}
