package main

import (
	"github.com/spf13/cobra"

	"github.com/CJohnsonADAH/adpn-cli/internal/adpnerr"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "adpn",
		Short:         "ADPN content ingest toolset",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				// Reserved exit code lets calling pipelines distinguish "did
				// not understand" from "ran and failed".
				return adpnerr.Wrap(adpnerr.ErrNotSupported, "adpn", args[0], "unknown command", nil)
			}
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newJSONCommand(ctx))
	rootCmd.AddCommand(newPacketCommand(ctx))
	rootCmd.AddCommand(newStashCommand(ctx))
	rootCmd.AddCommand(newPropCommand(ctx))
	rootCmd.AddCommand(newIngestCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
