package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"blockci/internal/audit"
	"blockci/internal/config"
	"blockci/internal/core"
	"blockci/internal/report"
)

var (
	runEnv    []string
	runAgent  string
	runRecord bool
)

var runCmd = &cobra.Command{
	Use:   "run <pipeline.yaml>",
	Short: "Run a pipeline and exit non-zero if it fails",
	Args:  cobra.ExactArgs(1),
	RunE:  runPipeline,
}

func init() {
	runCmd.Flags().StringArrayVarP(&runEnv, "env", "e", nil, "override an environment variable, KEY=VALUE (repeatable)")
	runCmd.Flags().StringVar(&runAgent, "agent", "", "run steps on the agent at this URL")
	runCmd.Flags().BoolVar(&runRecord, "record", false, "save step logs and append results to the ledger")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if runAgent != "" {
		cfg.Agent.URL = runAgent
	}

	def, err := core.LoadPipeline(args[0])
	if err != nil {
		return withCode(exitBadDefinition, err)
	}
	overrides, err := parseEnvFlags(runEnv)
	if err != nil {
		return withCode(exitBadDefinition, err)
	}

	runner, err := cfg.CommandRunner()
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "", 0)
	p, err := def.Build(runner, core.WithEnvOverrides(overrides), core.WithLogger(logger.Printf))
	if err != nil {
		return withCode(exitBadDefinition, err)
	}

	res, err := p.Run(cmd.Context())
	if err != nil {
		var condErr *core.ConditionError
		if errors.As(err, &condErr) {
			return withCode(exitBadDefinition, err)
		}
		return err
	}

	if err := report.Render(cmd.OutOrStdout(), res, report.Options{Verbose: verbose}); err != nil {
		return err
	}

	if runRecord {
		rec, err := audit.Open(cfg.Storage.LogDir, cfg.Storage.LedgerPath, cfg.Storage.KeyDir, cfg.Agent.ID, logger.Printf)
		if err != nil {
			return err
		}
		runID := "local-" + uuid.NewString()
		blocks, err := rec.Record(runID, res)
		if err != nil {
			logger.Printf("WARN: cannot record run: %v", err)
		} else {
			logger.Printf("Ledger: recorded run %s in %d blocks", runID, len(blocks))
		}
	}

	if !res.Success {
		return withCode(exitPipelineFailed, fmt.Errorf("pipeline %s failed", res.Pipeline))
	}
	return nil
}

func parseEnvFlags(pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --env %q, expected KEY=VALUE", kv)
		}
		env[k] = v
	}
	return env, nil
}
