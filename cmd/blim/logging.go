package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/blesession/pkg/config"
)

// loadConfig reads --config when given and applies the global flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("debug") {
		cfg.Debug, _ = cmd.Flags().GetBool("debug")
	}
	if cmd.Flags().Changed("connect-timeout") {
		timeout, _ := cmd.Flags().GetDuration("connect-timeout")
		if timeout <= 0 {
			return nil, fmt.Errorf("invalid connect timeout: %s (must be positive)", timeout)
		}
		cfg.ConnectTimeout = timeout
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	return cfg, nil
}

// configureLogger creates a logger with the appropriate log level based on flags.
// --debug forces debug level; otherwise --log-level (or the config file) decides.
// Returns an error if the log-level is invalid, using the same rule as config files.
func configureLogger(cmd *cobra.Command, cfg *config.Config) (*logrus.Logger, error) {
	if _, err := config.ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	logger := cfg.NewLogger()
	logger.SetOutput(cmd.ErrOrStderr())
	return logger, nil
}
