package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/rileyhilliard/srvstats/internal/logger"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile     string
	noColorFlag bool
	verboseFlag bool
)

// errNoData makes the process exit 1 after the command already reported
// that a collection came back empty.
var errNoData = stderrors.New("no data")

var rootCmd = &cobra.Command{
	Use:   "srvstats",
	Short: "Collect CPU, memory, disk, network and custom metrics over SSH",
	Long: `srvstats gathers a snapshot of host utilization in one shell round trip:
CPU, memory, disk, network throughput, plus any custom commands you configure.

Examples:
  srvstats collect --host web
  srvstats watch --hosts web,db --interval 5s
  srvstats watch --listen :8080 --json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .srvstats.yaml, searched upward)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log collection diagnostics to stderr")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	switch {
	case stderrors.Is(err, errNoData):
	case isUnknownCommandError(err):
		if name := extractUnknownCommand(err); name != "" && strings.HasPrefix(err.Error(), "unknown command") {
			fmt.Fprintf(os.Stderr, "✗ '%s' isn't a srvstats command\n", name)
		} else {
			fmt.Fprintln(os.Stderr, "✗ "+err.Error())
		}
		fmt.Fprintln(os.Stderr, "\n  Run 'srvstats --help' for a list of commands.")
	default:
		fmt.Fprintln(os.Stderr, strings.TrimRight(err.Error(), "\n"))
	}
	os.Exit(1)
}

// isUnknownCommandError reports whether cobra rejected the command line
// itself rather than a command failing.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

// extractUnknownCommand pulls the quoted command name out of cobra's
// "unknown command" error.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}
