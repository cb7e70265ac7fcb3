package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rileyhilliard/srvstats/internal/monitor"
	"github.com/rileyhilliard/srvstats/internal/ui"
)

// collectCommand runs one collection and prints the snapshot to out. When
// the cycle yields no data the reason goes to errOut and errNoData is
// returned.
func collectCommand(ctx context.Context, out, errOut io.Writer, flags TargetFlags) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	host, err := pickHost(cfg, flags)
	if err != nil {
		return err
	}

	var set *targetSet
	if host == "" {
		set = buildTargets(cfg, nil, true)
	} else {
		set = buildTargets(cfg, []string{host}, false)
	}
	defer set.Close()

	target := set.targets[0]
	snap, collectErr := target.Collector.TryCollect(ctx, cfg.Definitions())
	res := monitor.Result{Host: target.Host, Snapshot: snap}

	if flags.JSON {
		if err := monitor.WriteJSON(out, res); err != nil {
			return err
		}
	} else {
		r := monitor.NewRenderer(ui.NewPalette(out, noColorFlag), cfg.Definitions(), target.Host)
		fmt.Fprintln(out, r.Line(res))
	}

	if collectErr != nil {
		fmt.Fprintln(errOut, strings.TrimRight(collectErr.Error(), "\n"))
		return errNoData
	}
	return nil
}
