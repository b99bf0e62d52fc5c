package config

const (
	defaultConfigPath     = "~/.config/imp/config.toml"
	defaultAPIBase        = "build.electricimp.com"
	defaultAPIVersion     = "/v4"
	defaultUserAgent      = "imp-cli"
	defaultTimeoutSeconds = 30
	defaultCheckpointDir  = "~/.local/share/imp/checkpoints"
	defaultLogFormat      = "console"
	defaultLogLevel       = "warn"

	apiKeyEnv = "IMP_API_KEY"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			Base:           defaultAPIBase,
			Version:        defaultAPIVersion,
			UserAgent:      defaultUserAgent,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Logs: Logs{
			CheckpointDir: defaultCheckpointDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
