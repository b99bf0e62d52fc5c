package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. A missing API key is not a
// validation error: commands that talk to the API check for it themselves.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateLogs(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAPI() error {
	if c.API.TimeoutSeconds < 0 {
		return errors.New("api.timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateLogs() error {
	if c.Logs.WaitSeconds < 0 {
		return errors.New("logs.wait_seconds must be >= 0")
	}
	if c.Logs.CheckpointDir == "" {
		return errors.New("logs.checkpoint_dir must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}

// RequireAPIKey reports an actionable error when no API key is configured.
func (c *Config) RequireAPIKey() error {
	if c.API.Key == "" {
		return fmt.Errorf("no API key: set %s, pass --api-key or add [api] key to the config file", apiKeyEnv)
	}
	return nil
}
