package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Marshal renders cfg as YAML in the same shape the loader reads.
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// starterConfig is written by 'srvstats config init'.
const starterConfig = `# srvstats configuration
version: 1

# Set to false to pause polling without deleting anything below.
enabled: true

# How often 'srvstats watch' polls each host, and how long one collection
# may take before the cycle is skipped.
interval: 3s
timeout: 5s

# Collect from this machine when no host is selected (Linux and macOS only).
local: false

hosts:
  # web:
  #   ssh:
  #     - deploy@web1.example.com
  #     - web1-vpn

# Extra values gathered in the same round trip. Each command must print one
# line. A failing command shows as "Err".
metrics:
  - label: Load
    command: cut -d' ' -f1 /proc/loadavg
    kind: text
  # - label: GPU
  #   command: nvidia-smi --query-gpu=utilization.gpu --format=csv,noheader,nounits
  #   kind: progress
  #   suffix: "%"
  #   max_value: 100
`

// WriteStarter writes a commented starter config to path. It refuses to
// overwrite an existing file unless force is set.
func WriteStarter(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// AddMetric appends a metric to the config file at configPath.
// It preserves the existing YAML structure and comments.
// If a metric with the same id already exists, it does nothing.
func AddMetric(configPath string, metric MetricConfig) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse as yaml.Node to preserve structure
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return fmt.Errorf("invalid YAML document structure")
	}

	docNode := root.Content[0]
	if docNode.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping at document root")
	}

	if metric.ID == "" {
		metric.ID = MetricID(metric.Label, metric.Command)
	}

	metricsNode := findMapValue(docNode, "metrics")
	if metricsNode == nil || metricsNode.Kind != yaml.SequenceNode {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if metricsNode == nil {
			docNode.Content = append(docNode.Content, scalar("metrics"), seq)
		} else {
			// "metrics:" with no entries decodes as a null scalar.
			*metricsNode = *seq
		}
		metricsNode = findMapValue(docNode, "metrics")
	}

	for _, item := range metricsNode.Content {
		if id := findMapValue(item, "id"); id != nil && id.Value == metric.ID {
			return nil
		}
		label, command := findMapValue(item, "label"), findMapValue(item, "command")
		if label != nil && command != nil && MetricID(label.Value, command.Value) == metric.ID {
			return nil
		}
	}

	// "metrics: []" is a flow sequence; write entries in block style.
	if len(metricsNode.Content) == 0 {
		metricsNode.Style = 0
	}
	metricsNode.Content = append(metricsNode.Content, metricNode(metric))

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	encoder.Close()

	if err := os.WriteFile(configPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func metricNode(m MetricConfig) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	add := func(key, value string) {
		if value != "" {
			node.Content = append(node.Content, scalar(key), scalar(value))
		}
	}
	add("id", m.ID)
	add("label", m.Label)
	add("command", m.Command)
	add("kind", m.Kind)
	add("suffix", m.Suffix)
	add("color", m.Color)
	if m.MaxValue > 0 {
		node.Content = append(node.Content, scalar("max_value"),
			&yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatFloat(m.MaxValue, 'f', -1, 64)})
	}
	return node
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

// findMapValue finds a value in a mapping node by key name.
func findMapValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i < len(node.Content)-1; i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]

		if keyNode.Kind == yaml.ScalarNode && keyNode.Value == key {
			return valueNode
		}
	}

	return nil
}
