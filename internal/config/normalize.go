package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeAPI()
	if err := c.normalizeLogs(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeAPI() {
	if value, ok := os.LookupEnv(apiKeyEnv); ok && strings.TrimSpace(value) != "" {
		c.API.Key = strings.TrimSpace(value)
	}
	c.API.Key = strings.TrimSpace(c.API.Key)

	c.API.Base = strings.TrimSuffix(strings.TrimSpace(c.API.Base), "/")
	if c.API.Base == "" {
		c.API.Base = defaultAPIBase
	}

	c.API.Version = strings.TrimSuffix(strings.TrimSpace(c.API.Version), "/")
	if c.API.Version == "" {
		c.API.Version = defaultAPIVersion
	}
	if !strings.HasPrefix(c.API.Version, "/") {
		c.API.Version = "/" + c.API.Version
	}

	if strings.TrimSpace(c.API.UserAgent) == "" {
		c.API.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeLogs() error {
	if dir := strings.TrimSpace(c.Logs.CheckpointDir); dir != "" {
		abs, err := absPath(dir)
		if err != nil {
			return fmt.Errorf("logs.checkpoint_dir: %w", err)
		}
		c.Logs.CheckpointDir = abs
	} else {
		c.Logs.CheckpointDir = ""
	}
	c.Logs.Type = strings.TrimSpace(c.Logs.Type)
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
