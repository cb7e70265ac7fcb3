package stats

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// baseFieldCount is cpu, netRx, netTx, mem, disk.
const baseFieldCount = 5

// Parse turns captured probe output into a Snapshot.
//
// A missing START line (or fewer than five fields after it) fails the whole
// parse: it means the probe produced garbage. A field that is present but not
// a number only zeroes that field.
func Parse(output string, metrics []MetricDefinition) (*Snapshot, error) {
	fields, err := parseBase(output)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		CPUPercent:       fields[0],
		NetRxBytesPerSec: fields[1],
		NetTxBytesPerSec: fields[2],
		MemPercent:       fields[3],
		DiskPercent:      fields[4],
		Custom:           parseCustom(output, metrics),
	}, nil
}

// parseBase reads the five whitespace-separated tokens after the first START
// marker. Another marker counts as a missing field, not as a bad number.
func parseBase(output string) ([baseFieldCount]float64, error) {
	var fields [baseFieldCount]float64

	idx := strings.Index(output, StartMarker)
	if idx < 0 {
		return fields, parseError("No start marker in probe output")
	}

	rest := output[idx+len(StartMarker):]
	if r, _ := utf8.DecodeRuneInString(rest); !unicode.IsSpace(r) {
		return fields, parseError("Start marker isn't followed by any fields")
	}

	tokens := strings.Fields(rest)
	if len(tokens) < baseFieldCount {
		return fields, parseError("Start marker is followed by fewer than five fields")
	}
	for i := 0; i < baseFieldCount; i++ {
		if strings.HasPrefix(tokens[i], markerPrefix) {
			return fields, parseError("Start marker is followed by fewer than five fields")
		}
		fields[i] = parseField(tokens[i])
	}
	return fields, nil
}

// parseField is permissive: anything that isn't a finite number reads as 0.
func parseField(token string) float64 {
	v, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// parseCustom zips the NEXT-separated pieces between CUSTOM-START and END
// with metrics by position. Missing or empty pieces become "-"; extra pieces
// are dropped. There is always exactly one entry per metric.
func parseCustom(output string, metrics []MetricDefinition) []CustomValue {
	if len(metrics) == 0 {
		return nil
	}

	var pieces []string
	if idx := strings.Index(output, CustomStartMarker); idx >= 0 {
		region := output[idx+len(CustomStartMarker):]
		if end := strings.Index(region, EndMarker); end >= 0 {
			region = region[:end]
		}
		pieces = strings.Split(region, NextMarker)
	}

	values := make([]CustomValue, len(metrics))
	for i, m := range metrics {
		v := MissingValue
		if i < len(pieces) {
			if piece := strings.TrimSpace(pieces[i]); piece != "" {
				v = piece
			}
		}
		values[i] = CustomValue{ID: m.ID, Value: v}
	}
	return values
}
