package config

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rileyhilliard/srvstats/internal/stats"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

const (
	// DefaultInterval is how often watch polls each host.
	DefaultInterval = 3 * time.Second
	// MinInterval keeps a misconfigured poller from hammering hosts.
	MinInterval = 500 * time.Millisecond
)

// Config represents the complete .srvstats.yaml configuration file.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// Enabled turns polling on or off without deleting the rest of the file.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Interval is the poll cadence for watch.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// Timeout is the budget for one collection, open to end marker.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// Local collects from this machine when no host is selected.
	Local bool `yaml:"local" mapstructure:"local"`

	// Default is the host used by collect when --host isn't given.
	Default string `yaml:"default,omitempty" mapstructure:"default"`

	Hosts   map[string]Host `yaml:"hosts" mapstructure:"hosts" validate:"dive"`
	Metrics []MetricConfig  `yaml:"metrics" mapstructure:"metrics" validate:"dive"`
}

// Host defines a remote machine to collect from.
type Host struct {
	// SSH connection strings, tried in order until one succeeds.
	// Can be: hostname, user@hostname, user@hostname:port, or SSH config alias.
	// A single string is accepted too.
	SSH []string `yaml:"ssh" mapstructure:"ssh" validate:"required,min=1,dive,required"`
}

// MetricConfig is one user-defined metric as it appears in the file.
type MetricConfig struct {
	// ID is derived from label and command when left empty.
	ID      string `yaml:"id,omitempty" mapstructure:"id"`
	Label   string `yaml:"label" mapstructure:"label" validate:"required"`
	Command string `yaml:"command" mapstructure:"command" validate:"required"`
	Kind    string `yaml:"kind" mapstructure:"kind" validate:"omitempty,oneof=progress text"`

	Suffix   string  `yaml:"suffix,omitempty" mapstructure:"suffix"`
	Color    string  `yaml:"color,omitempty" mapstructure:"color"`
	MaxValue float64 `yaml:"max_value,omitempty" mapstructure:"max_value" validate:"gte=0"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:  CurrentConfigVersion,
		Enabled:  true,
		Interval: DefaultInterval,
		Timeout:  stats.DefaultTimeout,
		Hosts:    make(map[string]Host),
		Metrics:  []MetricConfig{},
	}
}

// metricNamespace seeds derived metric IDs.
var metricNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/rileyhilliard/srvstats/metrics"))

// MetricID derives a stable ID from a metric's label and command, so the
// same definition keeps its ID across reloads and machines.
func MetricID(label, command string) string {
	id := uuid.NewSHA1(metricNamespace, []byte(strings.TrimSpace(label)+"\x00"+strings.TrimSpace(command)))
	return "m-" + id.String()[:8]
}

// normalize fills in derived fields after decoding.
func normalize(cfg *Config) {
	if cfg.Hosts == nil {
		cfg.Hosts = make(map[string]Host)
	}
	for i := range cfg.Metrics {
		m := &cfg.Metrics[i]
		m.ID = strings.TrimSpace(m.ID)
		if m.ID == "" {
			m.ID = MetricID(m.Label, m.Command)
		}
		if m.Kind == "" {
			m.Kind = string(stats.KindText)
		}
	}
}

// Definition converts the file form into what the collector reads.
func (m MetricConfig) Definition() stats.MetricDefinition {
	return stats.MetricDefinition{
		ID:       m.ID,
		Label:    m.Label,
		Command:  m.Command,
		Kind:     stats.MetricKind(m.Kind),
		Color:    m.Color,
		Suffix:   m.Suffix,
		MaxValue: m.MaxValue,
	}
}

// Definitions returns the configured metrics in file order.
func (c *Config) Definitions() []stats.MetricDefinition {
	if c == nil || len(c.Metrics) == 0 {
		return nil
	}
	defs := make([]stats.MetricDefinition, len(c.Metrics))
	for i, m := range c.Metrics {
		defs[i] = m.Definition()
	}
	return defs
}

// HostNames returns the configured host names, sorted.
func (c *Config) HostNames() []string {
	names := make([]string, 0, len(c.Hosts))
	for name := range c.Hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
