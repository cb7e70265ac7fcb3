package ui

import (
	"math"
	"strings"
)

// Progress bar block characters.
const (
	BarFilled = '█'
	BarEmpty  = '░'
)

// ClampRatio clamps a ratio to the 0-1 range.
func ClampRatio(ratio float64) float64 {
	if ratio < 0 || math.IsNaN(ratio) {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

// BuildBarString builds the raw bar string (without styling) from filled/empty counts.
// If brackets is true, wraps in [ ].
func BuildBarString(filledCount, emptyCount int, brackets bool) string {
	var sb strings.Builder
	capacity := filledCount + emptyCount
	if brackets {
		capacity += 2
	}
	sb.Grow(capacity * 3)

	if brackets {
		sb.WriteRune('[')
	}
	for i := 0; i < filledCount; i++ {
		sb.WriteRune(BarFilled)
	}
	for i := 0; i < emptyCount; i++ {
		sb.WriteRune(BarEmpty)
	}
	if brackets {
		sb.WriteRune(']')
	}

	return sb.String()
}

// BarCounts returns the number of filled and empty cells for a 0-1 ratio.
// Any non-zero ratio fills at least one cell.
func BarCounts(ratio float64, width int) (filled, empty int) {
	ratio = ClampRatio(ratio)
	filled = int(ratio*float64(width) + 0.5)
	if filled == 0 && ratio > 0 {
		filled = 1
	}
	if filled > width {
		filled = width
	}
	return filled, width - filled
}

// Bar renders a bracketed bar for a 0-1 ratio, colored by severity.
func (p *Palette) Bar(ratio float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled, empty := BarCounts(ratio, width)
	return p.Threshold(ClampRatio(ratio)*100, BuildBarString(filled, empty, true))
}
