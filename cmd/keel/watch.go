package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/keel/internal/cli"
)

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Keep the model in sync with its description files",
	Long: `Loads the model and follows the description directory: editing a component file
re-synchronizes the components loaded from it, editing the root description reloads the model.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := options(cmd, args)
		opts.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		return cli.RunWatch(cmd.Context(), opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :2112)")
}
