// Package config loads the studiolink.yaml server configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the default configuration file name.
	ConfigFileName = "studiolink.yaml"

	// DefaultAddress is the default listen address.
	DefaultAddress = ":4455"
)

// Config is the studiolink.yaml schema.
type Config struct {
	// Address is the listen address, host:port.
	Address string `yaml:"address,omitempty"`

	// Auth configures session authentication.
	Auth AuthConfig `yaml:"auth,omitempty"`

	// Session contains per-connection settings.
	Session SessionConfig `yaml:"session,omitempty"`

	// WorkerPoolSize is the worker count shared by event broadcasts and
	// parallel request batches. Zero uses one worker per CPU.
	WorkerPoolSize int `yaml:"worker_pool_size,omitempty"`

	// Log contains logging settings.
	Log LogConfig `yaml:"log,omitempty"`
}

// AuthConfig configures session authentication.
type AuthConfig struct {
	// Enabled requires clients to authenticate during identification.
	Enabled bool `yaml:"enabled,omitempty"`

	// Password is the shared secret. Required when Enabled is true.
	Password string `yaml:"password,omitempty"`
}

// Duration wraps time.Duration so YAML values like "5s" parse.
type Duration time.Duration

// UnmarshalYAML decodes either a duration string or a number of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var seconds float64
	if err := value.Decode(&seconds); err != nil {
		return fmt.Errorf("config: invalid duration %q", value.Value)
	}
	*d = Duration(time.Duration(seconds * float64(time.Second)))
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// SessionConfig contains per-connection settings.
type SessionConfig struct {
	// ReadTimeout bounds client silence. Zero means no limit.
	ReadTimeout Duration `yaml:"read_timeout,omitempty"`

	// WriteTimeout bounds each outgoing write.
	WriteTimeout Duration `yaml:"write_timeout,omitempty"`

	// MaxMessageSize caps incoming frames in bytes.
	MaxMessageSize int64 `yaml:"max_message_size,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level,omitempty"`

	// Format is one of text, json.
	Format string `yaml:"format,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Address: DefaultAddress,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file and merges it over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadIfPresent loads path when it exists, otherwise returns the defaults.
func LoadIfPresent(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks settings that cannot be expressed by the schema alone.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("config: address must not be empty")
	}
	if c.Auth.Enabled && c.Auth.Password == "" {
		return fmt.Errorf("config: auth.password is required when auth is enabled")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}
