// Package cli implements the srvstats command-line interface.
//
// Each Cobra command delegates to a plain function that takes its output
// writers and options, so commands can be exercised without a terminal.
//
// # Command Structure
//
//	srvstats collect [--host h | --local] [--json]   - One snapshot
//	srvstats watch [--hosts a,b] [--local] [--listen] - Poll until interrupted
//	srvstats probe [--raw]                            - Print the composed command
//	srvstats config show|validate|init|add-metric     - Config file helpers
//	srvstats version | completion <shell>
//
// # Targets
//
// Hosts come from the config file. Commands build one stats.Collector per
// target; remote targets share a monitor.Pool so SSH connections survive
// between polls, and each collector keeps its own single-flight guard.
// The local machine is the target named "local".
//
// # Flag Handling
//
// Global flags (--config, --verbose, --no-color) are defined on the root
// command. TargetFlags and AddTargetFlags give collect and watch the same
// host selection and --json flags.
package cli
