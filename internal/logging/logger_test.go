package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{in: "", want: zapcore.WarnLevel},
		{in: "debug", want: zapcore.DebugLevel},
		{in: " INFO ", want: zapcore.InfoLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "chatty", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json", Output: &buf})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("long-poll expired", zap.String("device_id", "d1"))
	require.NoError(t, logger.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "long-poll expired", entry["msg"])
	assert.Equal(t, "d1", entry["device_id"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Output: &buf})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("log stream failed", zap.Int("status", 500))

	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "log stream failed")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(Options{Format: "xml"})
	assert.Error(t, err)
}
