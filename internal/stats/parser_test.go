package stats

import (
	"testing"

	"github.com/rileyhilliard/srvstats/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_BaseFields(t *testing.T) {
	snap, err := Parse("TABBY-STATS-START 12.5 100 200 40.25 61 TABBY-STATS-END", nil)
	require.NoError(t, err)

	assert.Equal(t, 12.5, snap.CPUPercent)
	assert.Equal(t, 100.0, snap.NetRxBytesPerSec)
	assert.Equal(t, 200.0, snap.NetTxBytesPerSec)
	assert.Equal(t, 40.25, snap.MemPercent)
	assert.Equal(t, 61.0, snap.DiskPercent)
	assert.Nil(t, snap.Custom)
}

func TestParse_BadFieldDefaultsToZero(t *testing.T) {
	snap, err := Parse("TABBY-STATS-START 12.5 100 200 abc 10 TABBY-STATS-END", nil)
	require.NoError(t, err)

	assert.Equal(t, 12.5, snap.CPUPercent)
	assert.Equal(t, 100.0, snap.NetRxBytesPerSec)
	assert.Equal(t, 200.0, snap.NetTxBytesPerSec)
	assert.Equal(t, 0.0, snap.MemPercent)
	assert.Equal(t, 10.0, snap.DiskPercent)
}

func TestParse_EachFieldPosition(t *testing.T) {
	get := []func(*Snapshot) float64{
		func(s *Snapshot) float64 { return s.CPUPercent },
		func(s *Snapshot) float64 { return s.NetRxBytesPerSec },
		func(s *Snapshot) float64 { return s.NetTxBytesPerSec },
		func(s *Snapshot) float64 { return s.MemPercent },
		func(s *Snapshot) float64 { return s.DiskPercent },
	}
	names := []string{"cpu", "netRx", "netTx", "mem", "disk"}

	for bad := range get {
		t.Run(names[bad], func(t *testing.T) {
			tokens := []string{"1", "2", "3", "4", "5"}
			tokens[bad] = "n/a"
			out := StartMarker
			for _, tok := range tokens {
				out += " " + tok
			}

			snap, err := Parse(out+" "+EndMarker, nil)
			require.NoError(t, err)
			for i, f := range get {
				if i == bad {
					assert.Equal(t, 0.0, f(snap), names[i])
				} else {
					assert.Equal(t, float64(i+1), f(snap), names[i])
				}
			}
		})
	}
}

func TestParse_MissingStartFails(t *testing.T) {
	inputs := map[string]string{
		"empty":             "",
		"garbage":           "bash: awk: command not found\n",
		"only end":          " TABBY-STATS-END",
		"truncated fields":  "TABBY-STATS-START 1 2 3",
		"marker then end":   "TABBY-STATS-START 1 2 3 4 TABBY-STATS-END",
		"glued marker":      "TABBY-STATS-STARTX 1 2 3 4 5 TABBY-STATS-END",
		"marker at the end": "TABBY-STATS-START",
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			snap, err := Parse(in, nil)
			assert.Nil(t, snap, "must not return a zero-filled snapshot")
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrParse))
		})
	}
}

func TestParseField(t *testing.T) {
	tests := map[string]float64{
		"0":     0,
		"12.5":  12.5,
		"1e3":   1000,
		"-4":    -4,
		"":      0,
		"abc":   0,
		"45%":   0,
		"NaN":   0,
		"+Inf":  0,
		"1.2.3": 0,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseField(in), in)
	}
}

func threeMetrics() []MetricDefinition {
	return []MetricDefinition{
		{ID: "load", Command: "cut -d' ' -f1 /proc/loadavg", Kind: KindText},
		{ID: "gpu", Command: "nvidia-smi --query-gpu=utilization.gpu --format=csv,noheader", Kind: KindProgress},
		{ID: "users", Command: "who | wc -l", Kind: KindText},
	}
}

func TestParse_CustomZipping(t *testing.T) {
	out := "TABBY-STATS-START 1 2 3 4 5\nTABBY-STATS-CUSTOM-START\n5\nTABBY-STATS-NEXT\nErr\nTABBY-STATS-NEXT\n42\n TABBY-STATS-END\n"

	snap, err := Parse(out, threeMetrics())
	require.NoError(t, err)
	assert.Equal(t, []CustomValue{
		{ID: "load", Value: "5"},
		{ID: "gpu", Value: "Err"},
		{ID: "users", Value: "42"},
	}, snap.Custom)
}

func TestParse_CustomMissingSlot(t *testing.T) {
	out := "TABBY-STATS-START 1 2 3 4 5\nTABBY-STATS-CUSTOM-START\n5\nTABBY-STATS-NEXT\nErr\n TABBY-STATS-END\n"

	snap, err := Parse(out, threeMetrics())
	require.NoError(t, err)
	require.Len(t, snap.Custom, 3)
	assert.Equal(t, "5", snap.Custom[0].Value)
	assert.Equal(t, "Err", snap.Custom[1].Value)
	assert.Equal(t, CustomValue{ID: "users", Value: "-"}, snap.Custom[2])
}

func TestParse_CustomExtraPiecesDropped(t *testing.T) {
	out := "TABBY-STATS-START 1 2 3 4 5 TABBY-STATS-CUSTOM-START a TABBY-STATS-NEXT b TABBY-STATS-NEXT c TABBY-STATS-NEXT d TABBY-STATS-END"

	snap, err := Parse(out, threeMetrics()[:2])
	require.NoError(t, err)
	assert.Equal(t, []CustomValue{{ID: "load", Value: "a"}, {ID: "gpu", Value: "b"}}, snap.Custom)
}

func TestParse_CustomEmptyPieceIsPlaceholder(t *testing.T) {
	out := "TABBY-STATS-START 1 2 3 4 5 TABBY-STATS-CUSTOM-START \n TABBY-STATS-NEXT x TABBY-STATS-END"

	snap, err := Parse(out, threeMetrics()[:2])
	require.NoError(t, err)
	assert.Equal(t, "-", snap.Custom[0].Value)
	assert.Equal(t, "x", snap.Custom[1].Value)
}

func TestParse_CustomRegionAbsent(t *testing.T) {
	snap, err := Parse("TABBY-STATS-START 1 2 3 4 5 TABBY-STATS-END", threeMetrics())
	require.NoError(t, err)
	require.Len(t, snap.Custom, 3)
	for i, c := range snap.Custom {
		assert.Equal(t, threeMetrics()[i].ID, c.ID)
		assert.Equal(t, MissingValue, c.Value)
	}
}

func TestParse_CustomWithoutEndMarker(t *testing.T) {
	// Local output is captured whole, so END may be missing if the shell died.
	snap, err := Parse("TABBY-STATS-START 1 2 3 4 5 TABBY-STATS-CUSTOM-START 7", threeMetrics()[:1])
	require.NoError(t, err)
	assert.Equal(t, "7", snap.Custom[0].Value)
}

func TestParse_MultiWordCustomValueKept(t *testing.T) {
	out := "TABBY-STATS-START 1 2 3 4 5 TABBY-STATS-CUSTOM-START  up 3 days,  2 users \n TABBY-STATS-END"

	snap, err := Parse(out, threeMetrics()[:1])
	require.NoError(t, err)
	assert.Equal(t, "up 3 days,  2 users", snap.Custom[0].Value)
}

func TestCustomValue_Ratio(t *testing.T) {
	progress := MetricDefinition{ID: "gpu", Kind: KindProgress}
	scaled := MetricDefinition{ID: "temp", Kind: KindProgress, MaxValue: 90}
	text := MetricDefinition{ID: "host", Kind: KindText}

	tests := []struct {
		name   string
		value  string
		def    MetricDefinition
		want   float64
		wantOK bool
	}{
		{"percent", "45", progress, 0.45, true},
		{"percent sign", "45%", progress, 0.45, true},
		{"custom max", "45", scaled, 0.5, true},
		{"clamped high", "250", progress, 1, true},
		{"clamped low", "-3", progress, 0, true},
		{"error value", "Err", progress, 0, false},
		{"placeholder", "-", progress, 0, false},
		{"nan", "NaN", progress, 0, false},
		{"text metric", "45", text, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CustomValue{ID: tt.def.ID, Value: tt.value}.Ratio(tt.def)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestContainsMarker(t *testing.T) {
	assert.True(t, ContainsMarker(`echo "TABBY-STATS-END"`))
	assert.True(t, ContainsMarker("x TABBY-STATS-NEXT y"))
	assert.False(t, ContainsMarker("uptime"))
	assert.False(t, ContainsMarker("TABBY STATS"))
}

func TestSnapshot_Lookup(t *testing.T) {
	snap := &Snapshot{Custom: []CustomValue{{ID: "a", Value: "1"}}}

	v, ok := snap.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v.Value)

	_, ok = snap.Lookup("b")
	assert.False(t, ok)

	var nilSnap *Snapshot
	_, ok = nilSnap.Lookup("a")
	assert.False(t, ok)
}
