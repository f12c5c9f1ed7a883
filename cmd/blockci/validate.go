package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"blockci/internal/core"
)

var validateCmd = &cobra.Command{
	Use:   "validate <pipeline.yaml>",
	Short: "Check a pipeline definition without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := core.LoadPipeline(args[0])
		if err != nil {
			return withCode(exitBadDefinition, err)
		}

		steps := 0
		for _, s := range def.Stages {
			steps += len(s.Steps)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ %s is valid: %d stages, %d steps\n", def.Name, len(def.Stages), steps)
		return nil
	},
}
