package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/keel/internal/cli"
)

var treeCmd = &cobra.Command{
	Use:   "tree [file]",
	Short: "Print the placement tree of the model",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		collapse, _ := cmd.Flags().GetBool("collapse")
		return cli.Tree(options(cmd, args), collapse, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().Bool("collapse", false, "Hide nodes governed by components and other managers")
}
