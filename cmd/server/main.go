package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"blockci/internal/audit"
	"blockci/internal/config"
	"blockci/internal/server"
)

var (
	cfgFile string
	addr    string
)

var rootCmd = &cobra.Command{
	Use:           "blockci-server",
	Short:         "Accept pipeline submissions over HTTP and record their runs",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          serve,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path (default blockci.yaml if present)")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	runner, err := cfg.CommandRunner()
	if err != nil {
		return err
	}
	rec, err := audit.Open(cfg.Storage.LogDir, cfg.Storage.LedgerPath, cfg.Storage.KeyDir, cfg.Agent.ID, log.Printf)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Runner:    runner,
		Recorder:  rec,
		Ledger:    rec.Ledger,
		LedgerKey: rec.Pub,
		Logf:      log.Printf,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hs := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("BLOCKCI server running on %s", cfg.Server.Addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Printf("Shutting down, waiting for running pipelines")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	srv.Wait()
	return nil
}
