package progress

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Bar rendering constants
const (
	BarCells   = 10
	FilledCell = "🟦"
	EmptyCell  = "⬜"
)

// Bar renders a ten-cell progress bar with the percentage appended.
// Out-of-range values are clamped.
func Bar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := percent * BarCells / 100
	var b strings.Builder
	b.WriteString(strings.Repeat(FilledCell, filled))
	b.WriteString(strings.Repeat(EmptyCell, BarCells-filled))
	fmt.Fprintf(&b, " %d%%", percent)
	return b.String()
}

// FormatSize renders a byte count for display.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatDuration renders a duration in seconds as m:ss, or "Unknown" when the
// source did not report one.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "Unknown"
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Percent converts a byte ratio to a clamped whole percentage.
func Percent(done, total int64) int {
	if total <= 0 {
		return 0
	}
	p := int(done * 100 / total)
	if p > 100 {
		p = 100
	}
	return p
}
