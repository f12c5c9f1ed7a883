package main

import (
	"github.com/spf13/cobra"
)

// Exit codes of the blockci command.
const (
	exitPipelineFailed = 1
	exitBadDefinition  = 2
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "blockci",
	Short:         "Run staged CI pipelines with a tamper-evident run ledger",
	Long:          "blockci runs pipeline.yaml definitions stage by stage, locally or on a remote agent, and records every step in a signed ledger.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default blockci.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print output of every step")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(keygenCmd)
}
