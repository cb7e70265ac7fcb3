package cli

import (
	"fmt"
	"io"

	"github.com/rileyhilliard/srvstats/internal/stats"
)

// probeCommand prints the command a collection would run.
func probeCommand(out io.Writer, raw bool) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	metrics := cfg.Definitions()
	if raw {
		fmt.Fprintln(out, stats.Script(metrics))
		return nil
	}
	fmt.Fprintln(out, stats.BuildCommand(metrics))
	return nil
}
