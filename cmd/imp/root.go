package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var flags globalFlags

	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "imp",
		Short:         "Electric Imp Build API CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&flags.apiKey, "api-key", "", "Build API key (overrides config and IMP_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Diagnostic log level: debug, info, warn, error")

	rootCmd.AddCommand(newDevicesCommand(ctx))
	rootCmd.AddCommand(newModelsCommand(ctx))
	rootCmd.AddCommand(newRevisionsCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newCheckpointsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
