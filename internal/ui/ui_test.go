package ui

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholdColor(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{0, string(ColorSuccess)},
		{59.9, string(ColorSuccess)},
		{60, string(ColorWarning)},
		{79.9, string(ColorWarning)},
		{80, string(ColorError)},
		{150, string(ColorError)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, string(ThresholdColor(tt.percent)), "%v%%", tt.percent)
	}
}

func TestNewPalette_NonTerminalIsPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPalette(&buf, false)

	assert.False(t, p.Styled(), "a buffer is not a terminal")
	assert.Equal(t, "cpu", p.Bold("cpu"))
	assert.Equal(t, "12%", p.Threshold(95, "12%"))
	assert.Equal(t, "x", p.Muted("x"))
}

func TestNewPalette_NoColorFlag(t *testing.T) {
	p := NewPalette(&bytes.Buffer{}, true)
	assert.False(t, p.Styled())
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

func TestBarCounts(t *testing.T) {
	tests := []struct {
		name       string
		ratio      float64
		width      int
		wantFilled int
		wantEmpty  int
	}{
		{"empty", 0, 10, 0, 10},
		{"half", 0.5, 10, 5, 5},
		{"full", 1, 10, 10, 0},
		{"over", 3, 10, 10, 0},
		{"negative", -1, 10, 0, 10},
		{"tiny shows one cell", 0.01, 10, 1, 9},
		{"rounds", 0.46, 10, 5, 5},
		{"nan", math.NaN(), 4, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filled, empty := BarCounts(tt.ratio, tt.width)
			assert.Equal(t, tt.wantFilled, filled)
			assert.Equal(t, tt.wantEmpty, empty)
		})
	}
}

func TestBuildBarString(t *testing.T) {
	assert.Equal(t, "[██░░░]", BuildBarString(2, 3, true))
	assert.Equal(t, "███", BuildBarString(3, 0, false))
	assert.Equal(t, "[]", BuildBarString(0, 0, true))
}

func TestPaletteBar(t *testing.T) {
	p := PlainPalette()
	assert.Equal(t, "[██░░]", p.Bar(0.5, 4))
	assert.Equal(t, "", p.Bar(0.5, 0))
}

func TestSparklineString(t *testing.T) {
	assert.Empty(t, SparklineString(nil, 10))
	assert.Empty(t, SparklineString([]float64{50}, 0))

	assert.Equal(t, "▁█", SparklineString([]float64{0, 100}, 10))
	assert.Equal(t, "▁█", SparklineString([]float64{-20, 300}, 10), "values are clamped")
	assert.Equal(t, 3, len([]rune(SparklineString([]float64{1, 2, 3, 4, 5}, 3))), "only the most recent points")
	assert.Equal(t, "▅", SparklineString([]float64{2, 50}, 1))
}

func TestPaletteSparkline(t *testing.T) {
	p := PlainPalette()
	assert.Equal(t, "▁▅█", p.Sparkline([]float64{0, 50, 100}, 5))
	assert.Empty(t, p.Sparkline(nil, 5))
}
