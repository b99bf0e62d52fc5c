package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	buildapi "github.com/electricimp/build-api"
)

type logsOptions struct {
	follow  bool
	resume  bool
	asJSON  bool
	since   string
	logType string
	wait    int
}

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs <device-id>",
		Short: "Show or tail a device's logs",
		Long: `Show a device's recent logs, or follow them as they arrive.

With --follow the command keeps a long-poll open until interrupted. Expired
polls and rejected continuation handles are recovered automatically; any
other error stops the tail and is reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if opts.logType == "" {
				opts.logType = cfg.Logs.Type
			}
			if !cmd.Flags().Changed("wait") {
				opts.wait = cfg.Logs.WaitSeconds
			}

			since, err := parseSince(opts.since, time.Now())
			if err != nil {
				return err
			}

			printer := newEntryPrinter(cmd.OutOrStdout(), opts.asJSON)
			if !opts.follow {
				return showLogs(ctx, cmd, args[0], since, opts, printer)
			}
			return followLogs(ctx, cmd, args[0], since, opts, printer)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Keep streaming new entries until interrupted")
	cmd.Flags().BoolVar(&opts.resume, "resume", false, "Resume from the saved checkpoint and save progress (with --follow)")
	cmd.Flags().StringVar(&opts.since, "since", "", "Only entries after this time (RFC 3339, or a duration such as 15m)")
	cmd.Flags().StringVar(&opts.logType, "type", "", "Only entries of this type, e.g. server.log")
	cmd.Flags().IntVar(&opts.wait, "wait", 0, "Seconds the server may hold each poll open (0 uses the server default)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print one JSON object per entry")
	return cmd
}

func showLogs(ctx *commandContext, cmd *cobra.Command, deviceID string, since time.Time, opts logsOptions, printer *entryPrinter) error {
	params := buildapi.Params{}
	if !since.IsZero() {
		params["since"] = since.UTC().Format(time.RFC3339Nano)
	}
	setParam(params, "type", opts.logType)

	return ctx.withClient(cmd, func(reqCtx context.Context, client *buildapi.Client) error {
		batch, err := client.GetDeviceLogs(reqCtx, deviceID, params)
		if err != nil {
			return err
		}
		return printer.print(batch.Logs)
	})
}

func followLogs(ctx *commandContext, cmd *cobra.Command, deviceID string, since time.Time, opts logsOptions, printer *entryPrinter) error {
	client, err := ctx.newClient(cmd)
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger(cmd)
	if err != nil {
		return err
	}

	streamOpts := []buildapi.StreamOption{buildapi.WithLogType(opts.logType)}
	if !since.IsZero() {
		streamOpts = append(streamOpts, buildapi.WithSince(since))
	}
	if opts.wait > 0 {
		streamOpts = append(streamOpts, buildapi.WithWait(time.Duration(opts.wait)*time.Second))
	}
	if ctx.config.Logs.ResumeLastSeen {
		streamOpts = append(streamOpts, buildapi.WithResumeFromLastSeen())
	}
	if opts.resume {
		store, err := ctx.openCheckpoints()
		if err != nil {
			return fmt.Errorf("open checkpoints: %w", err)
		}
		defer store.Close()
		streamOpts = append(streamOpts, buildapi.WithCheckpointer(store))
	}

	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}
	runCtx, cancel := context.WithCancel(runCtx)
	defer cancel()

	var printErr error
	stream := client.StartStream(runCtx, deviceID, func(batch *buildapi.LogBatch, err error) {
		if err != nil {
			return
		}
		if printErr = printer.print(batch.Logs); printErr != nil {
			cancel()
		}
	}, streamOpts...)
	logger.Debug("following device logs", zap.String("stream_id", stream.ID()), zap.String("device_id", deviceID))

	err = stream.Wait()
	if errors.Is(err, buildapi.ErrStreamCanceled) {
		return printErr
	}
	return fmt.Errorf("log stream for %s stopped: %w", deviceID, err)
}

// parseSince accepts an RFC 3339 time or a duration counted back from now.
func parseSince(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return now.Add(-d), nil
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid --since %q: want an RFC 3339 time, a duration such as 15m, or a Unix timestamp", value)
}
