package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// Thresholds for resource severity, in percent.
const (
	WarningThreshold  = 60.0
	CriticalThreshold = 80.0
)

// ThresholdColor returns colors for resource monitoring (CPU, memory, disk).
// Higher values indicate problems: 0-60% green, 60-80% yellow, 80%+ red.
func ThresholdColor(percent float64) lipgloss.Color {
	switch {
	case percent >= CriticalThreshold:
		return ColorError
	case percent >= WarningThreshold:
		return ColorWarning
	default:
		return ColorSuccess
	}
}

// Palette styles text for one output stream. When the stream isn't a
// terminal, NO_COLOR is set, or colors were turned off, every method returns
// its input unchanged.
type Palette struct {
	r *lipgloss.Renderer
}

// NewPalette picks a color profile for w.
func NewPalette(w io.Writer, noColor bool) *Palette {
	r := lipgloss.NewRenderer(w)
	if noColor || termenv.EnvNoColor() || !IsTerminal(w) {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Palette{r: r}
}

// PlainPalette never styles anything.
func PlainPalette() *Palette {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.Ascii)
	return &Palette{r: r}
}

// Styled reports whether output will carry escape sequences.
func (p *Palette) Styled() bool {
	return p.r.ColorProfile() != termenv.Ascii
}

// Color renders s in the given foreground color.
func (p *Palette) Color(c lipgloss.Color, s string) string {
	return p.r.NewStyle().Foreground(c).Render(s)
}

// Bold renders s in bold primary text.
func (p *Palette) Bold(s string) string {
	return p.r.NewStyle().Foreground(ColorPrimary).Bold(true).Render(s)
}

// Muted renders s de-emphasized.
func (p *Palette) Muted(s string) string {
	return p.r.NewStyle().Foreground(ColorMuted).Render(s)
}

// Threshold renders s colored by percent severity.
func (p *Palette) Threshold(percent float64, s string) string {
	return p.Color(ThresholdColor(percent), s)
}

// IsTerminal reports whether w is attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
