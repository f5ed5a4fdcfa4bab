package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/keel/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "keel",
	Short: "Keel inspects and maintains engineering models",
	Long: `Keel loads models described as YAML or JSON node graphs, instantiates their components
and keeps them in sync with the description files.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing the model descriptions")
	rootCmd.PersistentFlags().String("log-level", "off", "Log level (off, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("redis", "", "Redis URL of the override store (default: in memory)")
}

// options reads the shared flags. The first positional argument names the root description.
func options(cmd *cobra.Command, args []string) cli.Options {
	dir, _ := cmd.Flags().GetString("dir")
	level, _ := cmd.Flags().GetString("log-level")
	redisURL, _ := cmd.Flags().GetString("redis")
	opts := cli.Options{Dir: dir, LogLevel: level, RedisURL: redisURL}
	if len(args) > 0 {
		opts.Path = args[0]
	}
	return opts
}
