package cli

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/srvstats/internal/config"
	"github.com/rileyhilliard/srvstats/internal/errors"
	"github.com/rileyhilliard/srvstats/internal/logger"
	"github.com/rileyhilliard/srvstats/internal/monitor"
	"github.com/rileyhilliard/srvstats/internal/stats"
	"github.com/rileyhilliard/srvstats/pkg/sshutil"
)

// localTarget names the local machine in output.
const localTarget = "local"

// dialSSH opens pooled connections. Tests replace it.
var dialSSH = monitor.SSHDialer(sshutil.DialOptions{})

// loadConfig finds, loads and validates the config. Without a config file
// the defaults are returned with an empty path.
func loadConfig() (*config.Config, string, error) {
	cfg, path, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// pickHost decides which single target collect talks to. An empty name
// means the local machine.
func pickHost(cfg *config.Config, flags TargetFlags) (string, error) {
	if err := ValidateHostAndLocal(flags.Local, flags.Host); err != nil {
		return "", err
	}
	if flags.Local {
		return "", nil
	}
	if flags.Host != "" {
		if err := requireHosts(cfg, []string{flags.Host}); err != nil {
			return "", err
		}
		return flags.Host, nil
	}
	if cfg.Default != "" {
		return cfg.Default, nil
	}
	if cfg.Local {
		return "", nil
	}

	names := cfg.HostNames()
	switch len(names) {
	case 0:
		return "", errors.New(errors.ErrConfig,
			"No hosts configured",
			"Add one under 'hosts' in your config, or pass --local to collect from this machine.")
	case 1:
		return names[0], nil
	default:
		return "", errors.New(errors.ErrConfig,
			"Several hosts are configured and none is the default",
			fmt.Sprintf("Pick one with --host (%s), or set 'default' in your config.", strings.Join(names, ", ")))
	}
}

// pickWatchHosts resolves the host list for watch and whether the local
// machine is polled too.
func pickWatchHosts(cfg *config.Config, filter string, local bool) ([]string, bool, error) {
	if filter != "" {
		names := splitHosts(filter)
		if err := requireHosts(cfg, names); err != nil {
			return nil, false, err
		}
		return names, local, nil
	}

	names := cfg.HostNames()
	local = local || cfg.Local
	if len(names) == 0 && !local {
		return nil, false, errors.New(errors.ErrConfig,
			"Nothing to watch",
			"Add hosts under 'hosts' in your config, or pass --local to watch this machine.")
	}
	return names, local, nil
}

func requireHosts(cfg *config.Config, names []string) error {
	var unknown []string
	for _, name := range names {
		if _, ok := cfg.Hosts[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	suggestion := "Add it under 'hosts' in your config."
	if configured := cfg.HostNames(); len(configured) > 0 {
		suggestion = "Configured hosts: " + strings.Join(configured, ", ")
	}
	return errors.New(errors.ErrConfig,
		fmt.Sprintf("Unknown host: %s", strings.Join(unknown, ", ")),
		suggestion)
}

// targetSet is the collectors for one command run, sharing a connection pool.
type targetSet struct {
	targets []monitor.Target
	pool    *monitor.Pool
}

// buildTargets creates one collector per host, plus one for the local
// machine when local is set. Each collector owns its single-flight guard.
func buildTargets(cfg *config.Config, hosts []string, local bool) *targetSet {
	addrs := make(map[string][]string, len(cfg.Hosts))
	for name, h := range cfg.Hosts {
		addrs[name] = h.SSH
	}
	// A silent keepalive must leave room in the budget for a redial.
	pool := monitor.NewPool(addrs, dialSSH, logger.NewEnvLogger("[pool]")).
		WithPingTimeout(min(sshutil.DefaultPingTimeout, cfg.Timeout/2))

	set := &targetSet{pool: pool}
	for _, name := range hosts {
		set.add(name, stats.ChannelSession(pool.Opener(name)), cfg)
	}
	if local {
		set.add(localTarget, stats.LocalSession(), cfg)
	}
	return set
}

func (s *targetSet) add(name string, session stats.Session, cfg *config.Config) {
	c := stats.NewCollector(session,
		stats.WithTimeout(cfg.Timeout),
		stats.WithLogger(logger.NewEnvLogger("["+name+"]")))
	s.targets = append(s.targets, monitor.Target{Host: name, Collector: c})
}

// names returns the target names in order.
func (s *targetSet) names() []string {
	names := make([]string, len(s.targets))
	for i, t := range s.targets {
		names[i] = t.Host
	}
	return names
}

// Close drops every pooled connection.
func (s *targetSet) Close() {
	s.pool.Close()
}
