package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file picked up from the working directory when no
// --config flag is given.
const DefaultPath = "pagesmith.yml"

// Bus drivers
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config represents the top-level pagesmith.yml configuration
type Config struct {
	Version   string        `yaml:"version"`
	Input     string        `yaml:"input"`      // Product JSON to read
	OutputDir string        `yaml:"output_dir"` // Where the three pages are written
	Bus       BusConfig     `yaml:"bus"`
	Timing    TimingConfig  `yaml:"timing"`
	Logging   LoggingConfig `yaml:"logging"`
}

// BusConfig selects and configures the message bus driver
type BusConfig struct {
	Driver   string `yaml:"driver"`              // memory or redis
	RedisURL string `yaml:"redis_url,omitempty"` // Required when driver=redis
	Instance string `yaml:"instance,omitempty"`  // Key namespace for the redis driver
}

// TimingConfig holds the polling and shutdown bounds
type TimingConfig struct {
	AgentPollTimeout        time.Duration `yaml:"agent_poll_timeout"`
	OrchestratorPollTimeout time.Duration `yaml:"orchestrator_poll_timeout"`
	PollInterval            time.Duration `yaml:"poll_interval"`
	StopTimeout             time.Duration `yaml:"stop_timeout"`
	RunTimeout              time.Duration `yaml:"run_timeout"` // Negative disables the bound
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills every zero field with its default.
func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Input == "" {
		c.Input = "data/product_data.json"
	}
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}

	if c.Bus.Driver == "" {
		c.Bus.Driver = DriverMemory
	}
	if c.Bus.Instance == "" {
		c.Bus.Instance = "default"
	}
	if c.Bus.Driver == DriverRedis && c.Bus.RedisURL == "" {
		c.Bus.RedisURL = "redis://localhost:6379/0"
	}

	t := &c.Timing
	if t.AgentPollTimeout == 0 {
		t.AgentPollTimeout = 500 * time.Millisecond
	}
	if t.OrchestratorPollTimeout == 0 {
		t.OrchestratorPollTimeout = time.Second
	}
	if t.PollInterval == 0 {
		t.PollInterval = 100 * time.Millisecond
	}
	if t.StopTimeout == 0 {
		t.StopTimeout = 5 * time.Second
	}
	if t.RunTimeout == 0 {
		t.RunTimeout = 2 * time.Minute
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// Validate performs strict validation on the configuration
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Input == "" {
		return fmt.Errorf("input is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}

	if err := c.Bus.Validate(); err != nil {
		return err
	}
	if err := c.Timing.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}

// Validate checks the driver selection
func (b *BusConfig) Validate() error {
	switch b.Driver {
	case DriverMemory:
		return nil
	case DriverRedis:
		if b.RedisURL == "" {
			return fmt.Errorf("bus.redis_url is required when bus.driver is %q", DriverRedis)
		}
		if _, err := redis.ParseURL(b.RedisURL); err != nil {
			return fmt.Errorf("bus.redis_url is invalid: %w", err)
		}
		if b.Instance == "" {
			return fmt.Errorf("bus.instance is required when bus.driver is %q", DriverRedis)
		}
		return nil
	default:
		return fmt.Errorf("bus.driver must be %q or %q, got %q", DriverMemory, DriverRedis, b.Driver)
	}
}

// Validate rejects non-positive polling and shutdown bounds
func (t *TimingConfig) Validate() error {
	positive := []struct {
		name  string
		value time.Duration
	}{
		{"timing.agent_poll_timeout", t.AgentPollTimeout},
		{"timing.orchestrator_poll_timeout", t.OrchestratorPollTimeout},
		{"timing.poll_interval", t.PollInterval},
		{"timing.stop_timeout", t.StopTimeout},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", p.name, p.value)
		}
	}
	return nil
}

// Validate checks level and format names
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", l.Level)
	}

	switch l.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", l.Format)
	}
	return nil
}

// Load reads, parses and validates a configuration file.
// Fields missing from the file take their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOptional behaves like Load but returns the defaults when path does not exist.
func LoadOptional(path string) (*Config, error) {
	config, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}
