// Package config holds the static controller configuration: which
// peripheral to talk to, where the presentations live, and the link tuning
// knobs. Configuration is supplied once at startup and never persisted.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/srg/slidelink/internal/link"
)

// Duration wraps time.Duration so YAML files can use "2s" notation.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// RemoteConfig identifies the wireless remote.
type RemoteConfig struct {
	Address            string `yaml:"address"`
	AddressType        string `yaml:"address_type" default:"random"`
	ServiceUUID        string `yaml:"service_uuid"`
	CharacteristicUUID string `yaml:"characteristic_uuid"`
}

// LinkConfig tunes the reconnection state machine.
type LinkConfig struct {
	ConnectRetries    int      `yaml:"connect_retries" default:"3"`
	ConnectRetryDelay Duration `yaml:"connect_retry_delay"`
	Cooldown          Duration `yaml:"cooldown"`
	WaitTimeout       Duration `yaml:"wait_timeout"`
}

// Config holds the full controller configuration.
type Config struct {
	Remote           RemoteConfig `yaml:"remote"`
	Link             LinkConfig   `yaml:"link"`
	Debounce         Duration     `yaml:"debounce"`
	PresentationsDir string       `yaml:"presentations_dir"`
	LogLevel         string       `yaml:"log_level" default:"info"`
	LogFile          string       `yaml:"log_file"`
}

// Default returns the configuration defaults. The durations mirror the
// retry policy the remote firmware is tuned for.
func Default() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	cfg.Link.ConnectRetryDelay = Duration(2 * time.Second)
	cfg.Link.Cooldown = Duration(2 * time.Second)
	cfg.Link.WaitTimeout = Duration(1 * time.Second)
	cfg.Debounce = Duration(1 * time.Second)
	return cfg
}

// Load reads a YAML configuration file over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that have no sensible default.
func (c *Config) Validate() error {
	if c.Remote.Address == "" {
		return fmt.Errorf("remote.address is required")
	}
	if _, err := link.ParseAddrType(c.Remote.AddressType); err != nil {
		return err
	}
	if c.Remote.ServiceUUID == "" {
		return fmt.Errorf("remote.service_uuid is required")
	}
	if c.Remote.CharacteristicUUID == "" {
		return fmt.Errorf("remote.characteristic_uuid is required")
	}
	if c.PresentationsDir == "" {
		return fmt.Errorf("presentations_dir is required")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.Link.ConnectRetries < 1 {
		return fmt.Errorf("link.connect_retries must be at least 1")
	}
	return nil
}

// Address returns the remote's link address. Validate must have passed.
func (c *Config) Address() link.Address {
	typ, _ := link.ParseAddrType(c.Remote.AddressType)
	return link.Address{MAC: c.Remote.Address, Type: typ}
}

// SupervisorConfig maps the configuration onto the link supervisor.
func (c *Config) SupervisorConfig() link.SupervisorConfig {
	sc := link.DefaultSupervisorConfig(c.Address(), c.Remote.ServiceUUID, c.Remote.CharacteristicUUID)
	sc.ConnectRetries = c.Link.ConnectRetries
	sc.ConnectRetryDelay = c.Link.ConnectRetryDelay.Std()
	sc.Cooldown = c.Link.Cooldown.Std()
	sc.WaitTimeout = c.Link.WaitTimeout.Std()
	return sc
}

// NewLogger creates the configured logger. When log_file is set, log lines
// go to both stderr and the file so link issues can be diagnosed after the
// fact.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	return logger, nil
}
