package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	buildapi "github.com/electricimp/build-api"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:     "models",
		Aliases: []string{"model"},
		Short:   "Manage models",
	}

	modelsCmd.AddCommand(newModelsListCommand(ctx))
	modelsCmd.AddCommand(newModelsGetCommand(ctx))
	modelsCmd.AddCommand(newModelsCreateCommand(ctx))
	modelsCmd.AddCommand(newModelsRenameCommand(ctx))
	modelsCmd.AddCommand(newModelsDeleteCommand(ctx))
	modelsCmd.AddCommand(newModelsRestartCommand(ctx))

	return modelsCmd
}

func newModelsListCommand(ctx *commandContext) *cobra.Command {
	var (
		name   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := buildapi.Params{}
			setParam(params, "name", name)

			return ctx.withClient(cmd, func(reqCtx context.Context, client *buildapi.Client) error {
				models, err := client.ListModels(reqCtx, params)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, models)
				}
				if len(models) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No models found")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderModels(models))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Only models with this name")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newModelsGetCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get <model-id>",
		Short: "Show one model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *buildapi.Client) error {
				model, err := client.GetModel(reqCtx, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, model)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderModels([]buildapi.Model{*model}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newModelsCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *buildapi.Client) error {
				model, err := client.CreateModel(reqCtx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Model %s created: %s\n", model.Name, model.ID)
				return nil
			})
		},
	}
}

func newModelsRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <model-id> <name>",
		Short: "Rename a model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *buildapi.Client) error {
				model, err := client.RenameModel(reqCtx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Model %s renamed to %q\n", model.ID, model.Name)
				return nil
			})
		},
	}
}

func newModelsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <model-id>",
		Short: "Delete a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *buildapi.Client) error {
				if err := client.DeleteModel(reqCtx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Model %s deleted\n", args[0])
				return nil
			})
		},
	}
}

func newModelsRestartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restart <model-id>",
		Short: "Restart every device assigned to a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *buildapi.Client) error {
				if err := client.RestartModel(reqCtx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Model %s restarted\n", args[0])
				return nil
			})
		},
	}
}

func renderModels(models []buildapi.Model) string {
	rows := make([][]string, 0, len(models))
	for _, m := range models {
		rows = append(rows, []string{m.ID, m.Name, strconv.Itoa(len(m.Devices))})
	}
	return renderTable(
		[]column{{title: "ID"}, {title: "Name"}, {title: "Devices", numeric: true}},
		rows,
	)
}
