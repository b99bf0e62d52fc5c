package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	buildapi "github.com/electricimp/build-api"
	"github.com/electricimp/build-api/checkpoint"
	"github.com/electricimp/build-api/internal/config"
	"github.com/electricimp/build-api/internal/logging"
)

type globalFlags struct {
	config   string
	apiKey   string
	logLevel string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *zap.Logger
	loggerErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if key := strings.TrimSpace(c.flags.apiKey); key != "" {
			cfg.API.Key = key
		}
		if level := strings.TrimSpace(c.flags.logLevel); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureLogger builds the diagnostic logger. It writes to the command's
// stderr so it never interleaves with printed results.
func (c *commandContext) ensureLogger(cmd *cobra.Command) (*zap.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cmd.ErrOrStderr(),
		})
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) newClient(cmd *cobra.Command) (*buildapi.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger(cmd)
	if err != nil {
		return nil, err
	}
	return buildapi.NewClient(
		buildapi.WithBaseURL(cfg.BaseURL()),
		buildapi.WithAPIVersion(cfg.API.Version),
		buildapi.WithAPIKey(cfg.API.Key),
		buildapi.WithUserAgent(cfg.API.UserAgent),
		buildapi.WithLogger(logger),
	), nil
}

// withClient runs fn with a client and a context bounded by the configured
// request timeout.
func (c *commandContext) withClient(cmd *cobra.Command, fn func(context.Context, *buildapi.Client) error) error {
	client, err := c.newClient(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if secs := c.config.API.TimeoutSeconds; secs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}
	return fn(ctx, client)
}

func (c *commandContext) openCheckpoints() (*checkpoint.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return checkpoint.Open(cfg.Logs.CheckpointDir)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
