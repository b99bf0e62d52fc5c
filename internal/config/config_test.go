package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/electricimp/build-api/internal/config"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("IMP_API_KEY", "")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.False(t, cfg.FromFile, "expected config file to be absent in temp HOME")
	assert.Equal(t, filepath.Join(tempHome, ".config", "imp", "config.toml"), cfg.Path)

	assert.Empty(t, cfg.API.Key)
	assert.Equal(t, "build.electricimp.com", cfg.API.Base)
	assert.Equal(t, "https://build.electricimp.com", cfg.BaseURL())
	assert.Equal(t, "/v4", cfg.API.Version)
	assert.Equal(t, filepath.Join(tempHome, ".local", "share", "imp", "checkpoints"), cfg.Logs.CheckpointDir)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Error(t, cfg.RequireAPIKey())
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("IMP_API_KEY", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "imp.toml")

	contents := `
[api]
key = " file-key "
base = "http://127.0.0.1:8080/"
version = "v5/"

[logs]
wait_seconds = 20
type = "server.log"
checkpoint_dir = "` + filepath.ToSlash(filepath.Join(dir, "cp")) + `"

[logging]
format = "JSON"
level = "Debug"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.FromFile)
	assert.Equal(t, path, cfg.Path)

	assert.Equal(t, "file-key", cfg.API.Key)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.BaseURL())
	assert.Equal(t, "/v5", cfg.API.Version)
	assert.Equal(t, 20, cfg.Logs.WaitSeconds)
	assert.Equal(t, "server.log", cfg.Logs.Type)
	assert.Equal(t, filepath.Join(dir, "cp"), cfg.Logs.CheckpointDir)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestEnvOverridesAPIKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "imp.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api]\nkey = \"file-key\"\n"), 0o600))
	t.Setenv("IMP_API_KEY", "env-key")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.API.Key)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{name: "unknown key", contents: "[api]\nsecret = \"x\"\n"},
		{name: "negative wait", contents: "[logs]\nwait_seconds = -1\n"},
		{name: "negative timeout", contents: "[api]\ntimeout_seconds = -5\n"},
		{name: "bad level", contents: "[logging]\nlevel = \"chatty\"\n"},
		{name: "bad toml", contents: "[api\n"},
		{name: "empty checkpoint dir", contents: "[logs]\ncheckpoint_dir = \"  \"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "imp.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.contents), 0o600))

			_, err := config.Load(path)
			assert.Error(t, err)
		})
	}
}

func TestCreateSample(t *testing.T) {
	t.Setenv("IMP_API_KEY", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, config.CreateSample(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded config.Config
	require.NoError(t, toml.Unmarshal(data, &decoded), "sample config must be valid TOML")
	assert.Equal(t, config.Default().API.Base, decoded.API.Base)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.FromFile)
}

func TestResolvePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := config.ResolvePath("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "imp", "config.toml"), got)

	got, err = config.ResolvePath("~/imp/alt.toml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "imp", "alt.toml"), got)

	got, err = config.ResolvePath("relative/../imp.toml")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, "imp.toml", filepath.Base(got))
}

func TestLoadRejectsDirectory(t *testing.T) {
	_, err := config.Load(t.TempDir())
	assert.Error(t, err)
}
