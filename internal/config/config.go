package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// API contains Build API connection settings.
type API struct {
	Key            string `toml:"key"`
	Base           string `toml:"base"`
	Version        string `toml:"version"`
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logs contains defaults for the logs command.
type Logs struct {
	WaitSeconds    int    `toml:"wait_seconds"`
	Type           string `toml:"type"`
	CheckpointDir  string `toml:"checkpoint_dir"`
	ResumeLastSeen bool   `toml:"resume_last_seen"`
}

// Logging contains configuration for the CLI's own diagnostics.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the imp CLI configuration.
type Config struct {
	API     API     `toml:"api"`
	Logs    Logs    `toml:"logs"`
	Logging Logging `toml:"logging"`

	// Path is the file the configuration was read from, or would have
	// been read from when FromFile is false.
	Path     string `toml:"-"`
	FromFile bool   `toml:"-"`
}

// Load reads the TOML file at path, or the default location when path is
// empty, then applies environment overrides and validates the result.
// A missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}
	cfg.Path = file

	data, err := os.ReadFile(file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", file, err)
	default:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", file, err)
		}
		cfg.FromFile = true
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolvePath returns the absolute form of a config file path with a
// leading ~ expanded. An empty path names the default config file.
func ResolvePath(path string) (string, error) {
	if path == "" {
		path = defaultConfigPath
	}
	return absPath(path)
}

func absPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = home + path[1:]
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	return abs, nil
}

// BaseURL returns API.Base as a full URL. A bare host is reached over HTTPS.
func (c *Config) BaseURL() string {
	if strings.Contains(c.API.Base, "://") {
		return c.API.Base
	}
	return "https://" + c.API.Base
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
