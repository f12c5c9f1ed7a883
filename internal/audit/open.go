package audit

import (
	"fmt"
	"os"
	"path/filepath"

	"blockci/internal/ledger"
	"blockci/internal/security"
	"blockci/internal/storage"
)

// Open prepares a file-backed Recorder: logs under logDir, the ledger at
// ledgerPath and signing keys in keyDir, generated on first use.
// logf may be nil.
func Open(logDir, ledgerPath, keyDir, agentID string, logf func(format string, args ...any)) (*Recorder, error) {
	pub, priv, created, err := security.EnsureKeyPair(keyDir)
	if err != nil {
		return nil, fmt.Errorf("failed to init signing keys: %w", err)
	}
	if created && logf != nil {
		logf("Generated new signing keys in %s", keyDir)
	}

	if dir := filepath.Dir(ledgerPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}
	l, err := ledger.OpenLedger(ledgerPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open ledger: %w", err)
	}

	return &Recorder{
		Logs:    storage.NewLogStorage(logDir),
		Ledger:  l,
		Priv:    priv,
		Pub:     pub,
		AgentID: agentID,
	}, nil
}
