package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/keel/internal/cli"
)

var copyCmd = &cobra.Command{
	Use:   "copy [file]",
	Short: "Print the description of a copy of the model",
	Long:  `Copies the loaded model, checks the copy describes the same graph and prints its description.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return cli.Copy(options(cmd, args), format, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(copyCmd)
	copyCmd.Flags().StringP("format", "f", "yaml", "Output format (yaml, json)")
}
