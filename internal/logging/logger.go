// Package logging builds the zap logger used by the imp CLI.
package logging

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string

	// Format is "console" or "json".
	Format string

	// Output receives log lines. The CLI passes stderr so log output
	// never mixes with printed device logs.
	Output io.Writer
}

// New returns a logger writing to opts.Output at opts.Level.
func New(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(opts.Format) {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	case "", "console":
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(opts.Output), level)
	return zap.New(core), nil
}

// ParseLevel maps a level name onto a zap level. Empty means warn.
func ParseLevel(name string) (zapcore.Level, error) {
	if strings.TrimSpace(name) == "" {
		return zapcore.WarnLevel, nil
	}
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}
