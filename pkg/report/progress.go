package report

import (
	"fmt"
	"strings"
)

// Progress bar characters.
const (
	ProgressFilled = "█"
	ProgressEmpty  = "░"
)

// DefaultBarWidth is the width of the ranking progress bar.
const DefaultBarWidth = 30

// DrawProgressBar draws a progress bar of the given width.
// Value is clamped to [0, 1] range.
// Example: DrawProgressBar(0.7, 10) returns "███████░░░".
func DrawProgressBar(value float64, width int) string {
	value = min(max(value, 0), 1)

	filled := int(value * float64(width))
	empty := width - filled

	return strings.Repeat(ProgressFilled, filled) + strings.Repeat(ProgressEmpty, empty)
}

// ProgressLine formats the state of a file scan: "[████░░░░] 4/8 files".
func ProgressLine(done, total, width int) string {
	ratio := 0.0
	if total > 0 {
		ratio = float64(done) / float64(total)
	}

	return fmt.Sprintf("[%s] %d/%d files", DrawProgressBar(ratio, width), done, total)
}
