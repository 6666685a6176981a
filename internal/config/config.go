// Package config loads the YAML configuration of the threadkit demo binary.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/baxromumarov/threadkit"
	"github.com/baxromumarov/threadkit/backoff"
	"github.com/baxromumarov/threadkit/internal/logger"
)

// Config represents the main configuration.
type Config struct {
	Log     LogConfig            `yaml:"log"`
	Poller  threadkit.PollConfig `yaml:"poller"`
	Backoff backoff.Config       `yaml:"backoff"`
	Metrics MetricsConfig        `yaml:"metrics"`

	// DrainInterval is how often the host loop drains the log channel.
	DrainInterval time.Duration `yaml:"drainInterval"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig contains the Prometheus endpoint settings. An empty Addr
// disables the endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: string(logger.FormatConsole),
		},
		Poller: threadkit.PollConfig{
			Interval:  time.Second,
			JitterMin: -100 * time.Millisecond,
			JitterMax: 100 * time.Millisecond,
		},
		Backoff:       backoff.DefaultConfig(),
		DrainInterval: 100 * time.Millisecond,
	}
}

// Load reads the configuration at path on top of [Defaults] and validates
// it. Keys missing from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports every problem with the configuration, joined.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if _, err := logger.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, fmt.Errorf("log.format: %w", err))
	}
	if err := c.Poller.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("poller: %w", err))
	}
	if err := c.Backoff.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("backoff: %w", err))
	}
	if c.DrainInterval <= 0 {
		errs = append(errs, fmt.Errorf("drainInterval: must be positive, got %v", c.DrainInterval))
	}
	return errors.Join(errs...)
}
