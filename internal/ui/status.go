// Package ui renders the single-line terminal transport display.
package ui

import (
	"fmt"
	"strings"

	"github.com/sonroyaalmerol/tonearm/internal/utils"
)

func ProgressBar(width int, progress float64) string {
	if width <= 0 {
		return ""
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	dot := int(float64(width) * progress)
	if dot >= width {
		dot = width - 1
	}
	var b strings.Builder
	for i := 0; i < width; i++ {
		if i == dot {
			b.WriteByte('o')
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// StatusLine formats a carriage-return overwritable transport line,
// e.g. "  1:23 [----o-----] 4:56". When the duration is unknown the
// bar is omitted.
func StatusLine(positionSec, durationSec float64) string {
	pos := utils.PrettyTime(int(positionSec))
	if durationSec <= 0 {
		return fmt.Sprintf("\r%8s", pos)
	}
	bar := ProgressBar(30, positionSec/durationSec)
	return fmt.Sprintf("\r%8s [%s] %s ", pos, bar, utils.PrettyTime(int(durationSec)))
}
