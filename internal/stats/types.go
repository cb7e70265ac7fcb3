package stats

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Output markers. They delimit regions of the concatenated probe output and
// must never appear in legitimate command output.
const (
	StartMarker       = "TABBY-STATS-START"
	CustomStartMarker = "TABBY-STATS-CUSTOM-START"
	NextMarker        = "TABBY-STATS-NEXT"
	EndMarker         = "TABBY-STATS-END"

	markerPrefix = "TABBY-STATS-"
)

// ContainsMarker reports whether s holds anything that could be read as an
// output marker. Metric commands that print one would corrupt the parse.
func ContainsMarker(s string) bool {
	return strings.Contains(s, markerPrefix)
}

// Placeholders used in custom values.
const (
	ErrValue     = "Err" // printed by a failing custom command
	MissingValue = "-"   // slot with no output
)

// MetricKind controls how a renderer reads a custom value. Collection ignores it.
type MetricKind string

const (
	KindProgress MetricKind = "progress"
	KindText     MetricKind = "text"
)

// MetricDefinition is a user-supplied custom probe. The collector only reads it.
type MetricDefinition struct {
	ID    string
	Label string
	// Command must print exactly one line or token to stdout.
	Command string
	Kind    MetricKind

	// Display hints, passed through untouched.
	Color    string
	Suffix   string
	MaxValue float64
}

// Snapshot is one point-in-time result of a collection cycle.
type Snapshot struct {
	Timestamp        time.Time     `json:"timestamp"`
	CPUPercent       float64       `json:"cpu_percent"`
	MemPercent       float64       `json:"mem_percent"`
	DiskPercent      float64       `json:"disk_percent"`
	NetRxBytesPerSec float64       `json:"net_rx_bytes_per_sec"`
	NetTxBytesPerSec float64       `json:"net_tx_bytes_per_sec"`
	Custom           []CustomValue `json:"custom,omitempty"`
}

// CustomValue is the text captured for one MetricDefinition.
type CustomValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Ratio reads a Progress value as a fraction of def.MaxValue (100 when
// unset), clamped to [0,1]. It reports false for Text metrics and for values
// that are not numbers, such as "Err" or "-". A trailing "%" is allowed.
func (v CustomValue) Ratio(def MetricDefinition) (float64, bool) {
	if def.Kind != KindProgress {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v.Value), "%"), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	limit := def.MaxValue
	if limit <= 0 {
		limit = 100
	}
	r := f / limit
	switch {
	case r < 0:
		r = 0
	case r > 1:
		r = 1
	}
	return r, true
}

// Lookup returns the custom value with the given id.
func (s *Snapshot) Lookup(id string) (CustomValue, bool) {
	if s == nil {
		return CustomValue{}, false
	}
	for _, c := range s.Custom {
		if c.ID == id {
			return c, true
		}
	}
	return CustomValue{}, false
}
