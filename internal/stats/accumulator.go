package stats

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Accumulator buffers streamed output until a marker appears.
//
// Chunks are decoded as UTF-8 by one stateful decoder, so a multi-byte
// character split across two chunks comes out whole. Once the marker has
// been seen the buffer is frozen and further chunks are ignored.
//
// An Accumulator is not safe for concurrent use.
type Accumulator struct {
	marker  string
	text    strings.Builder
	decoder *transform.Writer
	scanned int
	done    bool
}

// NewAccumulator returns an Accumulator that completes on marker.
func NewAccumulator(marker string) *Accumulator {
	a := &Accumulator{marker: marker}
	a.decoder = transform.NewWriter(&a.text, unicode.UTF8.NewDecoder())
	return a
}

// Feed appends chunk and reports whether the marker has been seen.
func (a *Accumulator) Feed(chunk []byte) bool {
	if a.done {
		return true
	}
	// Writes into a strings.Builder cannot fail; invalid bytes become U+FFFD.
	_, _ = a.decoder.Write(chunk)

	// Only the new tail (plus enough overlap for a marker that straddles
	// the previous end) needs scanning.
	text := a.text.String()
	from := a.scanned - len(a.marker) + 1
	if from < 0 {
		from = 0
	}
	a.scanned = len(text)
	if strings.Contains(text[from:], a.marker) {
		a.done = true
	}
	return a.done
}

// FeedString is Feed for text chunks.
func (a *Accumulator) FeedString(chunk string) bool {
	return a.Feed([]byte(chunk))
}

// Done reports whether the marker has been seen.
func (a *Accumulator) Done() bool {
	return a.done
}

// Text returns everything decoded so far.
func (a *Accumulator) Text() string {
	return a.text.String()
}

// Write implements io.Writer so an Accumulator can sit behind io.Copy.
// It never fails and accepts data after completion without keeping it.
func (a *Accumulator) Write(p []byte) (int, error) {
	a.Feed(p)
	return len(p), nil
}
