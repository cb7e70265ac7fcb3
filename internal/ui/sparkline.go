package ui

import "strings"

// Sparkline block characters representing 8 vertical levels (lowest to highest).
const sparklineBlocks = "▁▂▃▄▅▆▇█"

// sparklineBlockRunes provides indexed access to block characters.
var sparklineBlockRunes = []rune(sparklineBlocks)

// SparklineString maps percentages (0-100) onto 8 block levels, using the
// most recent width points. Out-of-range values are clamped.
func SparklineString(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	var sb strings.Builder
	sb.Grow(len(data) * 3)

	top := len(sparklineBlockRunes) - 1
	for _, v := range data {
		level := int(ClampRatio(v/100)*float64(top) + 0.5)
		sb.WriteRune(sparklineBlockRunes[level])
	}
	return sb.String()
}

// Sparkline renders SparklineString colored by the last value's severity.
func (p *Palette) Sparkline(data []float64, width int) string {
	s := SparklineString(data, width)
	if s == "" {
		return ""
	}
	return p.Threshold(data[len(data)-1], s)
}
