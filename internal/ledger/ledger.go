package ledger

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// Ledger is an append-only, hash-chained log of blocks.
// File format: JSON lines (one JSON block per line).
type Ledger struct {
	mu     sync.Mutex
	blocks []*Block
	path   string
}

// OpenLedger loads an existing ledger file or creates an empty one.
func OpenLedger(path string) (*Ledger, error) {
	l := &Ledger{
		blocks: make([]*Block, 0),
		path:   path,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("create ledger file: %w", err)
		}
		_ = f.Close()
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger file: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var blk Block
		if err := dec.Decode(&blk); err != nil {
			return nil, fmt.Errorf("failed to decode ledger entry: %w", err)
		}
		l.blocks = append(l.blocks, &blk)
	}
	return l, nil
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// Append signs a block with priv, checks its link to the current head,
// persists it to disk and keeps it in memory.
func (l *Ledger) Append(b *Block, priv ed25519.PrivateKey, pub ed25519.PublicKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLocked(b, priv, pub)
}

// AppendEntry builds the next block from e and appends it in one step,
// so concurrent writers cannot race on index and prev hash.
func (l *Ledger) AppendEntry(e Entry, priv ed25519.PrivateKey, pub ed25519.PublicKey) (*Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	blk, err := NewBlock(len(l.blocks), l.lastHashLocked(), e)
	if err != nil {
		return nil, err
	}
	if err := l.appendLocked(blk, priv, pub); err != nil {
		return nil, err
	}
	return blk, nil
}

func (l *Ledger) appendLocked(b *Block, priv ed25519.PrivateKey, pub ed25519.PublicKey) error {
	if len(priv) != ed25519.PrivateKeySize {
		return fmt.Errorf("private key is empty or invalid, cannot sign block")
	}
	if b.Index != len(l.blocks) {
		return fmt.Errorf("index mismatch: expected %d, got %d", len(l.blocks), b.Index)
	}
	if prev := l.lastHashLocked(); b.PrevHash != prev {
		return fmt.Errorf("prevHash mismatch: expected %s, got %s", prev, b.PrevHash)
	}

	// recompute so the stored hash always matches the canonical fields
	h, err := b.ComputeHash()
	if err != nil {
		return fmt.Errorf("cannot recompute block hash: %w", err)
	}
	b.Hash = h
	b.Signature = hex.EncodeToString(ed25519.Sign(priv, []byte(b.Hash)))
	b.PubKey = hex.EncodeToString(pub)

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(b); err != nil {
		return fmt.Errorf("write ledger file: %w", err)
	}

	l.blocks = append(l.blocks, b)
	return nil
}

// Blocks returns a copy of the blocks in the ledger.
func (l *Ledger) Blocks() []Block {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Block, len(l.blocks))
	for i, b := range l.blocks {
		out[i] = *b
	}
	return out
}

// Rewrite replaces the ledger content on disk and in memory without any
// checks. It exists for tamper demonstrations; VerifyChain will catch it.
func (l *Ledger) Rewrite(blocks []Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	stored := make([]*Block, len(blocks))
	for i := range blocks {
		b := blocks[i]
		if err := enc.Encode(&b); err != nil {
			return fmt.Errorf("encode block %d: %w", i, err)
		}
		stored[i] = &b
	}
	if err := os.WriteFile(l.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("rewrite ledger file: %w", err)
	}
	l.blocks = stored
	return nil
}

// NextIndex returns the next block index
func (l *Ledger) NextIndex() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.blocks)
}

// LastHash returns the last block hash (or empty if none)
func (l *Ledger) LastHash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastHashLocked()
}

func (l *Ledger) lastHashLocked() string {
	if len(l.blocks) == 0 {
		return ""
	}
	return l.blocks[len(l.blocks)-1].Hash
}
