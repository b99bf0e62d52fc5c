package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	buildapi "github.com/electricimp/build-api"
)

func newRevisionsCommand(ctx *commandContext) *cobra.Command {
	revisionsCmd := &cobra.Command{
		Use:     "revisions",
		Aliases: []string{"revision"},
		Short:   "Inspect model revisions",
	}

	revisionsCmd.AddCommand(newRevisionsListCommand(ctx))
	revisionsCmd.AddCommand(newRevisionsGetCommand(ctx))

	return revisionsCmd
}

func newRevisionsListCommand(ctx *commandContext) *cobra.Command {
	var (
		since, until       string
		buildMin, buildMax int
		asJSON             bool
	)

	cmd := &cobra.Command{
		Use:   "list <model-id>",
		Short: "List a model's revisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := buildapi.Params{}
			setParam(params, "since", since)
			setParam(params, "until", until)
			if buildMin > 0 {
				params["build_min"] = strconv.Itoa(buildMin)
			}
			if buildMax > 0 {
				params["build_max"] = strconv.Itoa(buildMax)
			}

			return ctx.withClient(cmd, func(reqCtx context.Context, client *buildapi.Client) error {
				revisions, err := client.ListModelRevisions(reqCtx, args[0], params)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, revisions)
				}
				if len(revisions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No revisions found")
					return nil
				}
				rows := make([][]string, 0, len(revisions))
				for _, r := range revisions {
					rows = append(rows, []string{strconv.Itoa(r.Version), formatTime(r.CreatedAt), r.Marker, firstLine(r.ReleaseNotes)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]column{{title: "Build", numeric: true}, {title: "Created"}, {title: "Marker"}, {title: "Notes"}},
					rows,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Only revisions created after this RFC 3339 time")
	cmd.Flags().StringVar(&until, "until", "", "Only revisions created before this RFC 3339 time")
	cmd.Flags().IntVar(&buildMin, "build-min", 0, "Lowest build number")
	cmd.Flags().IntVar(&buildMax, "build-max", 0, "Highest build number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newRevisionsGetCommand(ctx *commandContext) *cobra.Command {
	var (
		asJSON   bool
		showCode bool
	)

	cmd := &cobra.Command{
		Use:   "get <model-id> <build>",
		Short: "Show one revision",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			build, err := strconv.Atoi(args[1])
			if err != nil || build < 1 {
				return fmt.Errorf("invalid build number %q", args[1])
			}

			return ctx.withClient(cmd, func(reqCtx context.Context, client *buildapi.Client) error {
				rev, err := client.GetModelRevision(reqCtx, args[0], build)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, rev)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Build:   %d\n", rev.Version)
				fmt.Fprintf(out, "Created: %s\n", formatTime(rev.CreatedAt))
				if rev.Marker != "" {
					fmt.Fprintf(out, "Marker:  %s\n", rev.Marker)
				}
				if rev.ReleaseNotes != "" {
					fmt.Fprintf(out, "Notes:   %s\n", rev.ReleaseNotes)
				}
				if showCode {
					fmt.Fprintf(out, "\n// device\n%s\n\n// agent\n%s\n", rev.DeviceCode, rev.AgentCode)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	cmd.Flags().BoolVar(&showCode, "code", false, "Print device and agent code")
	return cmd
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
