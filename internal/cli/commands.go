package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rileyhilliard/srvstats/internal/config"
	"github.com/rileyhilliard/srvstats/internal/errors"
	"github.com/spf13/cobra"
)

// Command-specific flags
var (
	collectFlags   TargetFlags
	watchOpts      WatchOptions
	probeRawFlag   bool
	validateJSON   bool
	initForce      bool
	addMetricFlags config.MetricConfig
)

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// collectCmd takes a single snapshot
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect one snapshot from a host",
	Long: `Run the stats probe once and print the snapshot.

Without --host, the configured default host is used. With a single host
configured, that host is used. --local collects from this machine.

Exits with status 1 when the collection yields no data.

Examples:
  srvstats collect
  srvstats collect --host web
  srvstats collect --local --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()
		return collectCommand(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), collectFlags)
	},
}

// watchCmd polls hosts until interrupted
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll hosts continuously",
	Long: `Poll every configured host (or those given with --hosts) on an interval
and print one line per host per cycle. A host that is still busy with the
previous collection skips the tick.

With --listen, snapshots are also served to websocket clients at /ws, with
a /health endpoint alongside.

Examples:
  srvstats watch
  srvstats watch --hosts web,db --interval 5s
  srvstats watch --local --json
  srvstats watch --listen :8080`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()
		return watchCommand(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), watchOpts)
	},
}

// probeCmd prints the composed command
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Print the command a collection runs",
	Long: `Print the shell command sent to each host, built from the base probe
and the configured metrics. Useful for running it by hand over ssh.

Examples:
  srvstats probe
  srvstats probe --raw`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return probeCommand(cmd.OutOrStdout(), probeRawFlag)
	},
}

// configCmd groups config subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the config file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowCommand(cmd.OutOrStdout())
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for errors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configValidateCommand(cmd.OutOrStdout(), validateJSON)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter .srvstats.yaml",
	Long: `Write a commented starter config to .srvstats.yaml in the current
directory, or to the path given with --config.

Examples:
  srvstats config init
  srvstats config init --force
  srvstats --config ~/.config/srvstats/config.yaml config init`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitCommand(cmd.OutOrStdout(), initForce)
	},
}

var configAddMetricCmd = &cobra.Command{
	Use:   "add-metric",
	Short: "Add a custom metric to the config file",
	Long: `Append a custom metric to the config file, keeping its comments.
The command must print a single line. The id is derived from the label and
command unless given.

Examples:
  srvstats config add-metric --label Load --command "cut -d' ' -f1 /proc/loadavg"
  srvstats config add-metric --label GPU --kind progress --suffix % \
    --command "nvidia-smi --query-gpu=utilization.gpu --format=csv,noheader,nounits"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configAddMetricCommand(cmd.OutOrStdout(), addMetricFlags)
	},
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for srvstats.

Examples:
  # Bash
  srvstats completion bash > /etc/bash_completion.d/srvstats

  # Zsh
  srvstats completion zsh > "${fpath[1]}/_srvstats"

  # Fish
  srvstats completion fish > ~/.config/fish/completions/srvstats.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(out)
		default:
			return errors.New(errors.ErrExec,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

func init() {
	// collect command flags
	AddTargetFlags(collectCmd, &collectFlags, "host", "host name from config")

	// watch command flags
	AddTargetFlags(watchCmd, &watchOpts.TargetFlags, "hosts", "only these hosts (comma-separated)")
	watchCmd.Flags().StringVar(&watchOpts.Interval, "interval", "", "poll interval (default from config, 3s)")
	watchCmd.Flags().StringVar(&watchOpts.Listen, "listen", "", "serve snapshots over websocket on this address (e.g. :8080)")

	// probe command flags
	probeCmd.Flags().BoolVar(&probeRawFlag, "raw", false, "print the unquoted script instead of the sh -c command")

	// config subcommand flags
	configValidateCmd.Flags().BoolVar(&validateJSON, "json", false, "print the result as JSON")
	configInitCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")

	f := configAddMetricCmd.Flags()
	f.StringVar(&addMetricFlags.Label, "label", "", "display label (required)")
	f.StringVar(&addMetricFlags.Command, "command", "", "shell command printing one line (required)")
	f.StringVar(&addMetricFlags.Kind, "kind", "text", "progress or text")
	f.StringVar(&addMetricFlags.Suffix, "suffix", "", "text appended to the value")
	f.StringVar(&addMetricFlags.Color, "color", "", "value color (ANSI number or hex)")
	f.Float64Var(&addMetricFlags.MaxValue, "max-value", 0, "value that fills a progress bar (default 100)")
	f.StringVar(&addMetricFlags.ID, "id", "", "explicit metric id")
	_ = configAddMetricCmd.MarkFlagRequired("label")
	_ = configAddMetricCmd.MarkFlagRequired("command")

	configCmd.AddCommand(configShowCmd, configValidateCmd, configInitCmd, configAddMetricCmd)

	// Register all commands
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(completionCmd)
}
