package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/srvstats/internal/logger"
	"github.com/rileyhilliard/srvstats/internal/stats"
)

// Target is one host and the collector bound to its session.
type Target struct {
	Host      string
	Collector *stats.Collector
}

// Result is one poll of one host. Snapshot is nil when the cycle produced no
// data.
type Result struct {
	Host     string          `json:"host"`
	Snapshot *stats.Snapshot `json:"snapshot"`
}

// Poller periodically collects from every target.
type Poller struct {
	targets  []Target
	metrics  []stats.MetricDefinition
	interval time.Duration
	log      logger.Logger

	deliverMu  sync.Mutex
	onSnapshot func(Result)
}

// NewPoller creates a poller. A non-positive interval means 3s.
func NewPoller(targets []Target, metrics []stats.MetricDefinition, interval time.Duration, log logger.Logger) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Poller{
		targets:  targets,
		metrics:  metrics,
		interval: interval,
		log:      log,
	}
}

// OnSnapshot sets the callback invoked after every poll of every host.
// Calls are serialized.
func (p *Poller) OnSnapshot(fn func(Result)) {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()
	p.onSnapshot = fn
}

// Interval returns the poll cadence.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start polls until ctx is cancelled, then waits for in-flight collections
// to wind down before returning.
func (p *Poller) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, t := range p.targets {
		wg.Add(1)
		go func(t Target) {
			defer wg.Done()
			p.run(ctx, t)
		}(t)
	}
	wg.Wait()
}

// Stream runs Start in the background and delivers results on the returned
// channel, which is closed once polling has stopped. It replaces any
// callback set with OnSnapshot.
func (p *Poller) Stream(ctx context.Context) <-chan Result {
	out := make(chan Result, len(p.targets))
	p.OnSnapshot(func(r Result) {
		select {
		case out <- r:
		case <-ctx.Done():
		}
	})
	go func() {
		defer close(out)
		p.Start(ctx)
	}()
	return out
}

func (p *Poller) run(ctx context.Context, t Target) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var inflight sync.WaitGroup
	defer inflight.Wait()

	poll := func() {
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			p.poll(ctx, t)
		}()
	}

	// Do an initial collection immediately
	poll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}

func (p *Poller) poll(ctx context.Context, t Target) {
	snap := t.Collector.Collect(ctx, p.metrics)
	if ctx.Err() != nil {
		return
	}
	if snap == nil {
		p.log.Debug("%s: no data this cycle", t.Host)
	}
	p.deliver(Result{Host: t.Host, Snapshot: snap})
}

func (p *Poller) deliver(r Result) {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()
	if p.onSnapshot != nil {
		p.onSnapshot(r)
	}
}
