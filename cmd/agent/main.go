package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"blockci/internal/agent"
	"blockci/internal/config"
)

var (
	cfgFile string
	addr    string
)

var rootCmd = &cobra.Command{
	Use:           "blockci-agent",
	Short:         "Run pipeline steps on behalf of a blockci orchestrator",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if addr != "" {
			cfg.Agent.Addr = addr
		}

		executor, err := cfg.LocalExecutor()
		if err != nil {
			return err
		}

		if cfg.Agent.Token == "" {
			log.Printf("WARN: no agent token configured, /run accepts any caller")
		}
		hs := &http.Server{
			Addr:              cfg.Agent.Addr,
			Handler:           agent.NewHandler(executor, cfg.Agent.Token, log.Printf),
			ReadHeaderTimeout: 10 * time.Second,
		}
		log.Printf("Agent %s running on %s", cfg.Agent.ID, cfg.Agent.Addr)
		return hs.ListenAndServe()
	},
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path (default blockci.yaml if present)")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides agent.addr)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
