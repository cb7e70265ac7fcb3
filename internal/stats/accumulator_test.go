package stats

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleOutput ends exactly at the marker, so every split completes on the
// final chunk and must produce the same text.
const sampleOutput = "TABBY-STATS-START 12.5 100 200 40.25 61 TABBY-STATS-CUSTOM-START 5\nTABBY-STATS-NEXT ünïcødé ✓\n TABBY-STATS-END"

func feedAll(a *Accumulator, chunks ...[]byte) bool {
	done := false
	for _, c := range chunks {
		done = a.Feed(c)
	}
	return done
}

func TestAccumulator_SingleChunk(t *testing.T) {
	a := NewAccumulator(EndMarker)
	require.True(t, a.FeedString(sampleOutput))
	assert.True(t, a.Done())
	assert.Equal(t, sampleOutput, a.Text())
}

func TestAccumulator_EveryTwoWaySplit(t *testing.T) {
	want := NewAccumulator(EndMarker)
	want.FeedString(sampleOutput)

	raw := []byte(sampleOutput)
	for i := 0; i <= len(raw); i++ {
		a := NewAccumulator(EndMarker)
		done := feedAll(a, raw[:i], raw[i:])

		require.True(t, done, "split at %d", i)
		require.Equal(t, want.Text(), a.Text(), "split at %d", i)
	}
}

func TestAccumulator_EveryThreeWaySplit(t *testing.T) {
	raw := []byte("x ✓ " + EndMarker)
	for i := 0; i <= len(raw); i++ {
		for j := i; j <= len(raw); j++ {
			a := NewAccumulator(EndMarker)
			done := feedAll(a, raw[:i], raw[i:j], raw[j:])

			require.True(t, done, "split at %d,%d", i, j)
			require.Equal(t, string(raw), a.Text(), "split at %d,%d", i, j)
		}
	}
}

func TestAccumulator_ByteAtATime(t *testing.T) {
	a := NewAccumulator(EndMarker)
	raw := []byte(sampleOutput)
	end := strings.Index(sampleOutput, EndMarker) + len(EndMarker)

	for i := 0; i < len(raw); i++ {
		done := a.Feed(raw[i : i+1])
		if i < end-1 {
			require.False(t, done, "completed early at byte %d", i)
		} else {
			require.True(t, done, "not complete at byte %d", i)
		}
	}
}

func TestAccumulator_MultiByteRuneAcrossChunks(t *testing.T) {
	check := []byte("✓") // 3 bytes
	a := NewAccumulator(EndMarker)

	a.Feed(check[:1])
	a.Feed(check[1:2])
	assert.Equal(t, "", a.Text(), "partial rune must be held back, not decoded")

	a.Feed(check[2:])
	assert.Equal(t, "✓", a.Text())
}

func TestAccumulator_InvalidBytesReplaced(t *testing.T) {
	a := NewAccumulator(EndMarker)
	a.Feed([]byte{0xff, 'a', ' '})
	a.FeedString(EndMarker)

	assert.True(t, a.Done())
	assert.Equal(t, "\uFFFDa "+EndMarker, a.Text())
}

func TestAccumulator_IgnoresChunksAfterCompletion(t *testing.T) {
	a := NewAccumulator(EndMarker)
	require.True(t, a.FeedString("START 1 2 3 4 5 "+EndMarker))
	frozen := a.Text()

	assert.True(t, a.FeedString(" more output"))
	assert.True(t, a.FeedString(EndMarker))
	assert.Equal(t, frozen, a.Text())
}

func TestAccumulator_NoMarker(t *testing.T) {
	a := NewAccumulator(EndMarker)
	assert.False(t, a.FeedString("TABBY-STATS-START 1 2 3 4 5"))
	assert.False(t, a.FeedString("TABBY-STATS-EN"))
	assert.False(t, a.Done())
}

func TestAccumulator_AsWriter(t *testing.T) {
	a := NewAccumulator(EndMarker)
	n, err := io.Copy(a, strings.NewReader(sampleOutput))
	require.NoError(t, err)
	assert.Equal(t, int64(len(sampleOutput)), n)
	assert.True(t, a.Done())
}
