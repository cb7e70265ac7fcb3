package stats

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/rileyhilliard/srvstats/internal/errors"
	"github.com/rileyhilliard/srvstats/internal/logger"
	sshtest "github.com/rileyhilliard/srvstats/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcExecutor func(ctx context.Context, command string) (string, error)

func (f funcExecutor) Run(ctx context.Context, command string) (string, error) {
	return f(ctx, command)
}

const fullOutput = "TABBY-STATS-START 12.5 100 200 40 61\nTABBY-STATS-CUSTOM-START\n0.42\n TABBY-STATS-END\n"

func TestCollector_Success(t *testing.T) {
	ch := sshtest.NewMockChannel(fullOutput[:20], fullOutput[20:])
	opener := &sshtest.MockOpener{Channel: ch}
	metrics := []MetricDefinition{{ID: "load", Command: "cut -d' ' -f1 /proc/loadavg"}}

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCollector(ChannelSession(opener))
	c.now = func() time.Time { return fixed }

	snap := c.Collect(context.Background(), metrics)
	require.NotNil(t, snap)

	assert.Equal(t, fixed, snap.Timestamp)
	assert.Equal(t, 12.5, snap.CPUPercent)
	assert.Equal(t, 61.0, snap.DiskPercent)
	assert.Equal(t, []CustomValue{{ID: "load", Value: "0.42"}}, snap.Custom)

	assert.Equal(t, BuildCommand(metrics), ch.Command())
	assert.True(t, ch.Closed())
	assert.False(t, c.Busy())
}

func TestCollector_TimeoutWithinBudget(t *testing.T) {
	ch := sshtest.NewMockChannel("TABBY-STATS-START 1 2 3")
	ch.Hang = true
	opener := &sshtest.MockOpener{Channel: ch}

	budget := 100 * time.Millisecond
	c := NewCollector(ChannelSession(opener), WithTimeout(budget))

	start := time.Now()
	snap, err := c.TryCollect(context.Background(), nil)
	elapsed := time.Since(start)

	assert.Nil(t, snap)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTimeout))
	assert.Less(t, elapsed, budget+500*time.Millisecond)

	assert.Eventually(t, ch.Closed, time.Second, 5*time.Millisecond)
	assert.False(t, c.Busy())
}

func TestCollector_DefaultTimeout(t *testing.T) {
	c := NewCollector(ChannelSession(&sshtest.MockOpener{}), WithTimeout(0))
	assert.Equal(t, DefaultTimeout, c.Timeout())
	assert.Equal(t, 5*time.Second, DefaultTimeout)
}

func TestCollector_SingleFlight(t *testing.T) {
	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	opener := &sshtest.MockOpener{
		Channel: sshtest.NewMockChannel(fullOutput),
		Gate:    gate,
		Entered: entered,
	}
	c := NewCollector(ChannelSession(opener))

	var (
		wg    sync.WaitGroup
		first *Snapshot
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = c.Collect(context.Background(), nil)
	}()

	<-entered
	assert.True(t, c.Busy())

	snap, err := c.TryCollect(context.Background(), nil)
	assert.Nil(t, snap)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrBusy))

	close(gate)
	wg.Wait()

	require.NotNil(t, first, "the in-flight collection must be unaffected")
	assert.Equal(t, 1, opener.Opens(), "a rejected call must not open a channel")
	assert.False(t, c.Busy())
}

func TestCollector_BusyClearedAfterFailure(t *testing.T) {
	calls := 0
	exec := funcExecutor(func(ctx context.Context, command string) (string, error) {
		calls++
		if calls == 1 {
			return "", stderrors.New("boom")
		}
		return fullOutput, nil
	})
	c := NewCollector(Session{}, WithExecutor(exec))

	assert.Nil(t, c.Collect(context.Background(), nil))
	assert.False(t, c.Busy())
	assert.NotNil(t, c.Collect(context.Background(), nil))
	assert.Equal(t, 2, calls)
}

func TestCollector_ParseFailure(t *testing.T) {
	exec := funcExecutor(func(ctx context.Context, command string) (string, error) {
		return "sh: 1: awk: not found\n TABBY-STATS-END", nil
	})
	c := NewCollector(Session{}, WithExecutor(exec))

	snap, err := c.TryCollect(context.Background(), nil)
	assert.Nil(t, snap)
	assert.True(t, errors.IsCode(err, errors.ErrParse))
}

func TestCollector_RecoversPanic(t *testing.T) {
	exec := funcExecutor(func(ctx context.Context, command string) (string, error) {
		panic("executor exploded")
	})
	c := NewCollector(Session{}, WithExecutor(exec))

	snap, err := c.TryCollect(context.Background(), nil)
	assert.Nil(t, snap)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrExec))
	assert.Contains(t, err.Error(), "executor exploded")
	assert.False(t, c.Busy())

	assert.NotPanics(t, func() { c.Collect(context.Background(), nil) })
}

func TestCollector_UnsupportedSession(t *testing.T) {
	log := logger.NewBufferLogger()
	c := NewCollector(localSessionFor("windows"), WithLogger(log))

	assert.Nil(t, c.Collect(context.Background(), nil))

	_, err := c.TryCollect(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.ErrUnsupported))
	assert.False(t, c.Busy())

	msgs := log.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "debug", msgs[0].Level)
	assert.Contains(t, msgs[0].Message, "(unsupported)")
	assert.NotContains(t, msgs[0].Message, "\n")
}

func TestCollector_LogsFailureKind(t *testing.T) {
	log := logger.NewBufferLogger()
	opener := &sshtest.MockOpener{OpenErr: stderrors.New("channel refused")}
	c := NewCollector(ChannelSession(opener), WithLogger(log))

	assert.Nil(t, c.Collect(context.Background(), nil))

	msgs := log.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Message, "(ssh)")
	assert.Contains(t, msgs[0].Message, "channel refused")
}

func TestCollector_CallerCancellation(t *testing.T) {
	ch := sshtest.NewMockChannel()
	ch.Hang = true
	c := NewCollector(ChannelSession(&sshtest.MockOpener{Channel: ch}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := c.TryCollect(ctx, nil)
	assert.Nil(t, snap)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.IsCode(err, errors.ErrTimeout), "cancellation is not a timeout")
}

func TestCollector_CancelledMidCollection(t *testing.T) {
	ch := sshtest.NewMockChannel("TABBY-STATS-START 1 2 3")
	ch.Hang = true
	c := NewCollector(ChannelSession(&sshtest.MockOpener{Channel: ch}), WithTimeout(5*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := c.TryCollect(ctx, nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, err.Error(), "No end marker")
	assert.Eventually(t, ch.Closed, time.Second, 5*time.Millisecond)
}

func TestCollector_LocalEndToEnd(t *testing.T) {
	requirePOSIXShell(t)

	metrics := []MetricDefinition{
		{ID: "ok", Command: "echo 7", Kind: KindProgress},
		{ID: "fails", Command: "exit 1", Kind: KindText},
		{ID: "quoted", Command: `printf '%s\n' "a b"`, Kind: KindText},
	}
	c := NewCollector(LocalSession())

	snap, err := c.TryCollect(context.Background(), metrics)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, snap.CPUPercent, 0.0)
	assert.GreaterOrEqual(t, snap.MemPercent, 0.0)
	assert.False(t, snap.Timestamp.IsZero())
	assert.Equal(t, []CustomValue{
		{ID: "ok", Value: "7"},
		{ID: "fails", Value: ErrValue},
		{ID: "quoted", Value: "a b"},
	}, snap.Custom)
}
