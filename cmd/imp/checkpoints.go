package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkpointColumns = []column{{title: "Device"}, {title: "Last entry"}, {title: "Saved"}}

func newCheckpointsCommand(ctx *commandContext) *cobra.Command {
	checkpointsCmd := &cobra.Command{
		Use:   "checkpoints",
		Short: "Inspect saved log positions used by logs --resume",
	}

	checkpointsCmd.AddCommand(newCheckpointsListCommand(ctx))
	checkpointsCmd.AddCommand(newCheckpointsClearCommand(ctx))

	return checkpointsCmd
}

func newCheckpointsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCheckpoints()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No checkpoints saved")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.DeviceID, formatTime(e.Since), formatTime(e.UpdatedAt)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(checkpointColumns, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newCheckpointsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <device-id>...",
		Short: "Forget saved positions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCheckpoints()
			if err != nil {
				return err
			}
			defer store.Close()

			for _, id := range args {
				if err := store.Delete(id); err != nil {
					return fmt.Errorf("clear %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Checkpoint for %s cleared\n", id)
			}
			return nil
		},
	}
}
