package ledger

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"

	"blockci/internal/security"
)

// ErrUntrustedKey is returned when a block was not signed by the trusted key.
var ErrUntrustedKey = errors.New("block signed by untrusted key")

// VerifyChain re-computes each block hash, link and signature to detect tampering.
// Every block must be signed by trusted; the key stored in a block is only
// compared against it, never used on its own.
func (l *Ledger) VerifyChain(trusted ed25519.PublicKey) error {
	if len(trusted) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid trusted public key size: %d", len(trusted))
	}
	trustedHex := hex.EncodeToString(trusted)

	l.mu.Lock()
	defer l.mu.Unlock()

	for i, b := range l.blocks {
		if b.Index != i {
			return fmt.Errorf("index mismatch: expected %d got %d", i, b.Index)
		}

		h, err := b.ComputeHash()
		if err != nil {
			return fmt.Errorf("compute hash for index %d: %w", b.Index, err)
		}
		if h != b.Hash {
			return fmt.Errorf("hash mismatch at index %d", b.Index)
		}

		if i == 0 && b.PrevHash != "" {
			return fmt.Errorf("genesis block has prev hash %q", b.PrevHash)
		}
		if i > 0 && b.PrevHash != l.blocks[i-1].Hash {
			return fmt.Errorf("prev hash mismatch at index %d", b.Index)
		}

		if b.PubKey != trustedHex {
			return fmt.Errorf("index %d: %w", b.Index, ErrUntrustedKey)
		}
		ok, err := security.VerifySignature(trusted, []byte(b.Hash), b.Signature)
		if err != nil {
			return fmt.Errorf("signature at index %d: %w", b.Index, err)
		}
		if !ok {
			return fmt.Errorf("invalid signature at index %d", b.Index)
		}
	}
	return nil
}
