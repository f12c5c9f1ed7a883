package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Block is a tamper-evident record of one step of a pipeline run
type Block struct {
	Index     int    `json:"index"`
	Timestamp string `json:"timestamp"`
	RunID     string `json:"runId"`
	Pipeline  string `json:"pipeline"`
	Stage     string `json:"stage"`
	Step      string `json:"step"`
	Skipped   bool   `json:"skipped,omitempty"`
	Success   bool   `json:"success"`
	LogPath   string `json:"logPath,omitempty"`
	LogHash   string `json:"logHash"`
	PrevHash  string `json:"prevHash"`
	Hash      string `json:"hash"`
	AgentID   string `json:"agentId"`
	Signature string `json:"signature"`
	PubKey    string `json:"pubKey"`
}

// Entry holds the caller-provided fields of a new block.
type Entry struct {
	RunID    string
	Pipeline string
	Stage    string
	Step     string
	Skipped  bool
	Success  bool
	LogPath  string
	LogHash  string
	AgentID  string
}

// canonicalData returns the JSON bytes used to compute the block hash.
// It excludes Hash, Signature and PubKey.
func (b *Block) canonicalData() ([]byte, error) {
	view := struct {
		Index     int    `json:"index"`
		Timestamp string `json:"timestamp"`
		RunID     string `json:"runId"`
		Pipeline  string `json:"pipeline"`
		Stage     string `json:"stage"`
		Step      string `json:"step"`
		Skipped   bool   `json:"skipped"`
		Success   bool   `json:"success"`
		LogPath   string `json:"logPath"`
		LogHash   string `json:"logHash"`
		PrevHash  string `json:"prevHash"`
		AgentID   string `json:"agentId"`
	}{
		Index:     b.Index,
		Timestamp: b.Timestamp,
		RunID:     b.RunID,
		Pipeline:  b.Pipeline,
		Stage:     b.Stage,
		Step:      b.Step,
		Skipped:   b.Skipped,
		Success:   b.Success,
		LogPath:   b.LogPath,
		LogHash:   b.LogHash,
		PrevHash:  b.PrevHash,
		AgentID:   b.AgentID,
	}
	return json.Marshal(view)
}

// ComputeHash calculates SHA256 over canonicalData
func (b *Block) ComputeHash() (string, error) {
	data, err := b.canonicalData()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// NewBlock constructs a block and computes its hash (no signature yet)
func NewBlock(index int, prevHash string, e Entry) (*Block, error) {
	blk := &Block{
		Index:     index,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RunID:     e.RunID,
		Pipeline:  e.Pipeline,
		Stage:     e.Stage,
		Step:      e.Step,
		Skipped:   e.Skipped,
		Success:   e.Success,
		LogPath:   e.LogPath,
		LogHash:   e.LogHash,
		PrevHash:  prevHash,
		AgentID:   e.AgentID,
	}

	h, err := blk.ComputeHash()
	if err != nil {
		return nil, fmt.Errorf("compute block hash: %w", err)
	}
	blk.Hash = h
	return blk, nil
}
