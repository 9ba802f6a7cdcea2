// Package config loads and validates the registry node configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-registry/pkg/cluster"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Config is the full node configuration.
type Config struct {
	Node      NodeConfig      `yaml:"node" validate:"required"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	HTTP      HTTPConfig      `yaml:"http"`
	LogLevel  string          `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// NodeConfig identifies this node and its transport bindings.
type NodeConfig struct {
	// Name is the node name, {prefix}-{port}@{host}.
	Name string `yaml:"name" validate:"required"`
	// BusBindAddr is the gossip BUS listen address, e.g. tcp://*:9201.
	BusBindAddr string `yaml:"bus_bind_addr" validate:"required"`
	// DispatchBindAddr is the REQ/REP listen address, e.g. tcp://*:9202.
	DispatchBindAddr string `yaml:"dispatch_bind_addr" validate:"required"`
	// DispatchAdvertiseAddr is the dispatch address peers dial. Defaults
	// to DispatchBindAddr.
	DispatchAdvertiseAddr string `yaml:"dispatch_advertise_addr"`
}

// DiscoveryConfig configures the membership poller. An empty query
// disables discovery; the node then only reaches peers it is told
// about.
type DiscoveryConfig struct {
	Query          string `yaml:"query"`
	NodeNamePrefix string `yaml:"node_name_prefix"`
	PollIntervalMs int    `yaml:"poll_interval_ms" validate:"omitempty,min=100"`
	Debug          bool   `yaml:"debug"`
}

// PollInterval returns the poll interval as a duration, applying the
// 5000ms default.
func (d DiscoveryConfig) PollInterval() time.Duration {
	if d.PollIntervalMs <= 0 {
		return 5000 * time.Millisecond
	}
	return time.Duration(d.PollIntervalMs) * time.Millisecond
}

// HTTPConfig configures the metrics/health HTTP listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a configuration with defaults applied.
func Default() *Config {
	return &Config{
		Discovery: DiscoveryConfig{
			PollIntervalMs: 5000,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		LogLevel: "info",
	}
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, _, _, err := cluster.ParseNodeName(c.Node.Name); err != nil {
		return fmt.Errorf("invalid config: node.name: %w", err)
	}

	if c.Discovery.Query != "" && c.Discovery.NodeNamePrefix == "" {
		return fmt.Errorf("invalid config: discovery.node_name_prefix required when discovery.query is set")
	}

	return nil
}
