package monitor

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/srvstats/internal/stats"
	"github.com/rileyhilliard/srvstats/internal/ui"
)

const (
	barWidth       = 10
	sparklineWidth = 12
)

// Renderer turns results into one terminal line each. With history enabled
// it remembers recent CPU readings per host and draws them as a sparkline.
// A Renderer is not safe for concurrent use.
type Renderer struct {
	palette   *ui.Palette
	metrics   []stats.MetricDefinition
	hostWidth int

	historySize int
	history     map[string][]float64
}

// NewRenderer creates a renderer for the given metric definitions. Host
// names are padded to the longest of hosts.
func NewRenderer(p *ui.Palette, metrics []stats.MetricDefinition, hosts ...string) *Renderer {
	width := 0
	for _, h := range hosts {
		if len(h) > width {
			width = len(h)
		}
	}
	return &Renderer{
		palette:   p,
		metrics:   metrics,
		hostWidth: width,
		history:   make(map[string][]float64),
	}
}

// WithHistory keeps the last n CPU readings per host.
func (r *Renderer) WithHistory(n int) *Renderer {
	r.historySize = n
	return r
}

// Line renders r as a single line without a trailing newline.
func (r *Renderer) Line(res Result) string {
	p := r.palette
	host := p.Bold(fmt.Sprintf("%-*s", r.hostWidth, res.Host))

	snap := res.Snapshot
	if snap == nil {
		return host + "  " + p.Color(ui.ColorError, ui.SymbolFail) + " " + p.Muted("no data")
	}

	parts := []string{
		host,
		r.percent("cpu", snap.CPUPercent) + r.sparkline(res.Host, snap.CPUPercent),
		r.percent("mem", snap.MemPercent),
		r.percent("disk", snap.DiskPercent),
		p.Muted("net") + " " + ui.SymbolDown + FormatRate(snap.NetRxBytesPerSec) + " " + ui.SymbolUp + FormatRate(snap.NetTxBytesPerSec),
	}
	for _, def := range r.metrics {
		v, ok := snap.Lookup(def.ID)
		if !ok {
			continue
		}
		parts = append(parts, r.custom(def, v))
	}
	return strings.Join(parts, "  ")
}

func (r *Renderer) percent(label string, v float64) string {
	return r.palette.Muted(label) + " " + r.palette.Threshold(v, fmt.Sprintf("%5.1f%%", v))
}

func (r *Renderer) sparkline(host string, cpu float64) string {
	if r.historySize <= 0 {
		return ""
	}
	h := append(r.history[host], cpu)
	if len(h) > r.historySize {
		h = h[len(h)-r.historySize:]
	}
	r.history[host] = h
	if len(h) < 2 {
		return ""
	}
	return " " + r.palette.Sparkline(h, sparklineWidth)
}

func (r *Renderer) custom(def stats.MetricDefinition, v stats.CustomValue) string {
	label := def.Label
	if label == "" {
		label = def.ID
	}
	p := r.palette

	text := v.Value
	if text != stats.ErrValue && text != stats.MissingValue {
		text += def.Suffix
	}

	if ratio, ok := v.Ratio(def); ok {
		return p.Muted(label) + " " + p.Bar(ratio, barWidth) + " " + text
	}
	if v.Value == stats.ErrValue {
		return p.Muted(label) + " " + p.Color(ui.ColorError, text)
	}
	if def.Color != "" {
		return p.Muted(label) + " " + p.Color(lipgloss.Color(def.Color), text)
	}
	return p.Muted(label) + " " + text
}

// FormatRate renders a bytes-per-second reading, e.g. "1.2 kB/s".
func FormatRate(bytesPerSec float64) string {
	if bytesPerSec < 0 || math.IsNaN(bytesPerSec) {
		bytesPerSec = 0
	}
	return humanize.Bytes(uint64(bytesPerSec)) + "/s"
}

// WriteJSON writes res as one line of JSON.
func WriteJSON(w io.Writer, res Result) error {
	return json.NewEncoder(w).Encode(res)
}
