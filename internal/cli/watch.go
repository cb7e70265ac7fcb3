package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rileyhilliard/srvstats/internal/errors"
	"github.com/rileyhilliard/srvstats/internal/logger"
	"github.com/rileyhilliard/srvstats/internal/monitor"
	"github.com/rileyhilliard/srvstats/internal/ui"
)

// historySize is how many CPU readings the watch sparkline keeps per host.
const historySize = 20

// WatchOptions holds the flags for watch.
type WatchOptions struct {
	TargetFlags
	Interval string
	Listen   string
}

// watchCommand polls every selected target until ctx is done.
func watchCommand(ctx context.Context, out, errOut io.Writer, opts WatchOptions) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Enabled {
		where := "your config"
		if path != "" {
			where = path
		}
		return errors.New(errors.ErrConfig,
			"Polling is disabled in "+where,
			"Set 'enabled: true', or run 'srvstats collect' for a single snapshot.")
	}

	interval, err := ParseInterval(opts.Interval, cfg.Interval)
	if err != nil {
		return err
	}

	hosts, local, err := pickWatchHosts(cfg, opts.Host, opts.Local)
	if err != nil {
		return err
	}

	set := buildTargets(cfg, hosts, local)
	defer set.Close()

	log := logger.NewEnvLogger("[watch]")
	metrics := cfg.Definitions()
	poller := monitor.NewPoller(set.targets, metrics, interval, log)

	var hub *monitor.Hub
	if opts.Listen != "" {
		hub = monitor.NewHub(log)
		stop, err := serveHub(ctx, hub, opts.Listen, errOut)
		if err != nil {
			return err
		}
		defer stop()
	}

	renderer := monitor.NewRenderer(ui.NewPalette(out, noColorFlag), metrics, set.names()...).WithHistory(historySize)
	poller.OnSnapshot(func(r monitor.Result) {
		if hub != nil {
			hub.Publish(r)
		}
		if opts.JSON {
			if err := monitor.WriteJSON(out, r); err != nil {
				log.Warn("write snapshot: %v", err)
			}
			return
		}
		fmt.Fprintln(out, renderer.Line(r))
	})

	if !opts.JSON {
		fmt.Fprintf(errOut, "Watching %d target(s) every %s. Press Ctrl+C to stop.\n", len(set.targets), poller.Interval())
	}
	poller.Start(ctx)
	return nil
}

// serveHub starts the websocket hub on addr. The returned stop func shuts
// the server down and disconnects subscribers.
func serveHub(ctx context.Context, hub *monitor.Hub, addr string, errOut io.Writer) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't listen on %s", addr),
			"Pick a free address with --listen, e.g. :8080 or 127.0.0.1:9000.")
	}

	srv := &http.Server{
		Handler:           hub.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(errOut, "websocket server stopped: %v\n", err)
		}
	}()
	fmt.Fprintf(errOut, "Serving snapshots on ws://%s/ws\n", ln.Addr())

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		hub.Close()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}
