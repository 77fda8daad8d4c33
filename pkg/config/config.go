package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/blesession/pkg/session"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	LogLevel       string        `yaml:"log_level" default:"warn"`
	Debug          bool          `yaml:"debug"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"10s"`
	ScanDuration   time.Duration `yaml:"scan_duration" default:"10s"`
	ScanServices   []string      `yaml:"scan_services"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML config file. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	if cfg.ConnectTimeout <= 0 {
		return nil, fmt.Errorf("invalid connect_timeout in %q: must be positive", path)
	}
	return cfg, nil
}

// ParseLevel validates a log level name. It is the single check for both config
// files and command line flags.
func ParseLevel(name string) (logrus.Level, error) {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return level, fmt.Errorf("invalid log level: %s (must be trace, debug, info, warn, error, fatal or panic)", name)
	}
	return level, nil
}

// Level returns the parsed log level, or info when it does not parse. Debug forces the
// debug level.
func (c *Config) Level() logrus.Level {
	if c.Debug {
		return logrus.DebugLevel
	}
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}

// SessionOptions returns the session options this config describes.
func (c *Config) SessionOptions() *session.Options {
	return &session.Options{
		Debug:          c.Debug,
		ConnectTimeout: c.ConnectTimeout,
		ScanServices:   append([]string(nil), c.ScanServices...),
	}
}
