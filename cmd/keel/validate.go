package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/keel/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check the model for consistency",
	Long:  `Loads the model skipping failing operations and reports every one of them.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Validate(options(cmd, args), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
