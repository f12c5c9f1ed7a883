package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"blockci/internal/config"
	"blockci/internal/report"
	"blockci/internal/server"
)

var (
	serverURL    string
	submitWait   bool
	pollInterval = 2 * time.Second
)

var submitCmd = &cobra.Command{
	Use:   "submit <pipeline.yaml>",
	Short: "Submit a pipeline to a blockci server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read pipeline: %w", err)
		}

		client, err := serverClient()
		if err != nil {
			return err
		}
		id, err := client.Submit(cmd.Context(), data)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pipeline submitted: %s\n", id)
		if !submitWait {
			return nil
		}

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			run, err := client.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if finished(run.Status) {
				return printRun(cmd, run)
			}
			select {
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			case <-ticker.C:
			}
		}
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show the status of a submitted pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := serverClient()
		if err != nil {
			return err
		}
		run, err := client.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printRun(cmd, run)
	},
}

func init() {
	for _, c := range []*cobra.Command{submitCmd, statusCmd} {
		c.Flags().StringVar(&serverURL, "server", "", "server URL (default http://localhost<server.addr>)")
	}
	submitCmd.Flags().BoolVar(&submitWait, "wait", false, "wait for the run to finish and print the report")
}

func serverClient() (*server.Client, error) {
	if serverURL != "" {
		return server.NewClient(serverURL), nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return server.NewClient("http://localhost" + cfg.Server.Addr), nil
}

func finished(status string) bool {
	switch status {
	case server.StatusSucceeded, server.StatusFailed, server.StatusError:
		return true
	}
	return false
}

func printRun(cmd *cobra.Command, run *server.Run) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s): %s\n", run.ID, run.Name, run.Status)

	switch run.Status {
	case server.StatusError:
		return withCode(exitBadDefinition, fmt.Errorf("run %s: %s", run.ID, run.Error))
	case server.StatusSucceeded, server.StatusFailed:
		if run.Result != nil {
			if err := report.Render(out, run.Result, report.Options{Verbose: verbose}); err != nil {
				return err
			}
		}
		if run.Status == server.StatusFailed {
			return withCode(exitPipelineFailed, fmt.Errorf("pipeline %s failed", run.Name))
		}
	}
	return nil
}
