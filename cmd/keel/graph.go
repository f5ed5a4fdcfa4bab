package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/keel/internal/cli"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [file]",
	Short: "Export the node graph visualization",
	Long:  `Loads the model and outputs a Mermaid diagram (graph TD) of parent, manager and reference edges.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Graph(options(cmd, args), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
