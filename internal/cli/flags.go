package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/srvstats/internal/config"
	"github.com/rileyhilliard/srvstats/internal/errors"
	"github.com/spf13/cobra"
)

// TargetFlags holds the host selection flags shared by collect and watch.
type TargetFlags struct {
	Host  string
	Local bool
	JSON  bool
}

// AddTargetFlags registers --host, --local and --json on a command. hostUsage
// lets watch describe --hosts as a list.
func AddTargetFlags(cmd *cobra.Command, flags *TargetFlags, hostFlag, hostUsage string) {
	cmd.Flags().StringVar(&flags.Host, hostFlag, "", hostUsage)
	cmd.Flags().BoolVar(&flags.Local, "local", false, "collect from this machine")
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "print snapshots as JSON lines")
}

// ValidateHostAndLocal checks that a single-target command didn't get both
// --host and --local.
func ValidateHostAndLocal(local bool, host string) error {
	if local && host != "" {
		return errors.New(errors.ErrConfig,
			"--local and --host cannot be used together",
			"Use --local to collect from this machine, or --host to pick a remote one, but not both.")
	}
	return nil
}

// ParseInterval parses a poll interval flag. An empty flag returns fallback.
func ParseInterval(flag string, fallback time.Duration) (time.Duration, error) {
	if flag == "" {
		return fallback, nil
	}

	interval, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid interval", flag),
			"Try something like 3s, 10s, or 1m.")
	}
	if interval < config.MinInterval {
		return 0, errors.New(errors.ErrConfig,
			"Interval too short",
			fmt.Sprintf("Minimum interval is %s to avoid overwhelming hosts", config.MinInterval))
	}
	return interval, nil
}

// splitHosts parses a comma-separated --hosts value, dropping blanks and
// duplicates.
func splitHosts(filter string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, name := range strings.Split(filter, ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
