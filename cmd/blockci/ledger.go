package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"blockci/internal/config"
	"blockci/internal/ledger"
	"blockci/internal/security"
)

const tamperedHash = "FAKE_HASH_TAMPERED"

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and verify a run ledger",
}

var ledgerInspectCmd = &cobra.Command{
	Use:   "inspect <ledger.jsonl>",
	Short: "List the blocks of a ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := ledger.OpenLedger(args[0])
		if err != nil {
			return fmt.Errorf("failed to open ledger: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, b := range l.Blocks() {
			step := b.Step
			if b.Skipped {
				step = "(skipped)"
			}
			fmt.Fprintf(out, "Index=%d Run=%s Stage=%s Step=%s Success=%t Hash=%s\n",
				b.Index, b.RunID, b.Stage, step, b.Success, short(b.Hash))
		}
		return nil
	},
}

var verifyKeyDir string

var ledgerVerifyCmd = &cobra.Command{
	Use:   "verify <ledger.jsonl>",
	Short: "Verify hashes, links and signatures of a ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := verifyKeyDir
		if dir == "" {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			dir = cfg.Storage.KeyDir
		}
		pub, err := security.LoadPublicKey(filepath.Join(dir, security.PublicKeyFile))
		if err != nil {
			return fmt.Errorf("failed to load trusted key: %w", err)
		}

		l, err := ledger.OpenLedger(args[0])
		if err != nil {
			return fmt.Errorf("failed to open ledger: %w", err)
		}
		if err := l.VerifyChain(pub); err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "❌ Verification FAILED: %v\n", err)
			return withCode(1, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Ledger verification OK (%d blocks)\n", len(l.Blocks()))
		return nil
	},
}

var ledgerTamperCmd = &cobra.Command{
	Use:    "tamper <ledger.jsonl> <blockIndex>",
	Short:  "Corrupt one block's log hash (for demonstrating verify)",
	Args:   cobra.ExactArgs(2),
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid block index %q", args[1])
		}
		l, err := ledger.OpenLedger(args[0])
		if err != nil {
			return fmt.Errorf("failed to open ledger: %w", err)
		}

		blocks := l.Blocks()
		if idx < 0 || idx >= len(blocks) {
			return fmt.Errorf("invalid block index %d", idx)
		}
		blocks[idx].LogHash = tamperedHash
		if err := l.Rewrite(blocks); err != nil {
			return fmt.Errorf("failed to rewrite ledger: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "⚠️ Tampered block %d (LogHash set to %s)\n", idx, tamperedHash)
		return nil
	},
}

func init() {
	ledgerVerifyCmd.Flags().StringVar(&verifyKeyDir, "key-dir", "", "directory holding the trusted "+security.PublicKeyFile+" (default storage.key_dir)")

	ledgerCmd.AddCommand(ledgerInspectCmd)
	ledgerCmd.AddCommand(ledgerVerifyCmd)
	ledgerCmd.AddCommand(ledgerTamperCmd)
}

func short(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
