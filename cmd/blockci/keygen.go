package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"blockci/internal/config"
	"blockci/internal/security"
)

var (
	keyDir   string
	keyPrint bool
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an Ed25519 signing key pair",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		pub, priv, err := security.GenerateKeyPair()
		if err != nil {
			return fmt.Errorf("keygen error: %w", err)
		}
		out := cmd.OutOrStdout()

		if keyPrint {
			fmt.Fprintln(out, "# ======= Ed25519 Keypair (base64) =======")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "PRIVATE_KEY_BASE64:")
			fmt.Fprintln(out, base64.StdEncoding.EncodeToString(priv))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "PUBLIC_KEY_BASE64:")
			fmt.Fprintln(out, base64.StdEncoding.EncodeToString(pub))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "# ========================================")
			return nil
		}

		dir := keyDir
		if dir == "" {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			dir = cfg.Storage.KeyDir
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
		pubPath := filepath.Join(dir, security.PublicKeyFile)
		privPath := filepath.Join(dir, security.PrivateKeyFile)
		if err := security.SaveKeyPair(pub, priv, pubPath, privPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s and %s\n", pubPath, privPath)
		return nil
	},
}

func init() {
	keygenCmd.Flags().StringVar(&keyDir, "dir", "", "directory for the key files (default storage.key_dir)")
	keygenCmd.Flags().BoolVar(&keyPrint, "print", false, "print base64 keys instead of writing files")
}
