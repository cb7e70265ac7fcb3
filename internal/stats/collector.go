package stats

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rileyhilliard/srvstats/internal/errors"
	"github.com/rileyhilliard/srvstats/internal/logger"
)

// DefaultTimeout is the budget for one collection, from opening the channel
// to seeing the END marker.
const DefaultTimeout = 5 * time.Second

// Collector runs collections for one session. At most one collection is in
// flight at a time; overlapping calls are turned away, not queued.
type Collector struct {
	session Session
	exec    Executor
	execErr error
	timeout time.Duration
	log     logger.Logger
	now     func() time.Time

	busy atomic.Bool
}

// Option configures a Collector.
type Option func(*Collector)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Collector) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets where failure kinds are reported.
func WithLogger(l logger.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.log = l
		}
	}
}

// WithExecutor replaces the executor the session would select.
func WithExecutor(e Executor) Option {
	return func(c *Collector) {
		c.exec = e
	}
}

// NewCollector builds a collector for session. The executor is chosen here,
// once; an unsupported session yields a collector whose every call fails.
func NewCollector(session Session, opts ...Option) *Collector {
	c := &Collector{
		session: session,
		timeout: DefaultTimeout,
		log:     logger.Noop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.exec == nil {
		c.exec, c.execErr = NewExecutor(session, c.timeout)
	}
	return c
}

// Session returns the session the collector was built for.
func (c *Collector) Session() Session {
	return c.session
}

// Timeout returns the collection budget.
func (c *Collector) Timeout() time.Duration {
	return c.timeout
}

// Busy reports whether a collection is in flight.
func (c *Collector) Busy() bool {
	return c.busy.Load()
}

// Collect runs one collection and returns nil when there is no data this
// cycle, whatever the reason. It never panics.
func (c *Collector) Collect(ctx context.Context, metrics []MetricDefinition) *Snapshot {
	snap, err := c.TryCollect(ctx, metrics)
	if err != nil {
		c.log.Debug("no data this cycle (%s): %s", kindOf(err), flatten(err))
		return nil
	}
	return snap
}

// TryCollect is Collect with the failure kind kept. Errors carry one of the
// codes UNSUPPORTED, BUSY, SSH, EXEC, TIMEOUT or PARSE. When ctx itself is
// cancelled the error wraps context.Canceled instead.
func (c *Collector) TryCollect(ctx context.Context, metrics []MetricDefinition) (snap *Snapshot, err error) {
	if c.execErr != nil {
		return nil, c.execErr
	}

	if !c.busy.CompareAndSwap(false, true) {
		return nil, errBusy
	}
	defer c.busy.Store(false)

	defer func() {
		if r := recover(); r != nil {
			snap = nil
			err = errors.New(errors.ErrExec, fmt.Sprintf("Collection panicked: %v", r), "")
		}
	}()

	command := BuildCommand(metrics)

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := c.now()
	output, err := c.exec.Run(runCtx, command)
	if err != nil {
		if !errors.IsCode(err, errors.ErrTimeout) && stderrors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = errors.WrapWithCode(runCtx.Err(), errors.ErrTimeout,
				fmt.Sprintf("No end marker within %s", c.timeout),
				"The host may be overloaded. The next poll will try again.")
		}
		return nil, err
	}

	snap, err = Parse(output, metrics)
	if err != nil {
		return nil, err
	}
	snap.Timestamp = c.now()
	c.log.Debug("collected %s snapshot in %s", c.session.Kind(), snap.Timestamp.Sub(start).Round(time.Millisecond))
	return snap, nil
}

func kindOf(err error) string {
	if code := errors.CodeOf(err); code != "" {
		return strings.ToLower(code)
	}
	return "unknown"
}

// flatten squashes the multi-line structured error text into one log line.
func flatten(err error) string {
	return strings.Join(strings.Fields(err.Error()), " ")
}
