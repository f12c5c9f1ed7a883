// Package audit persists the outcome of pipeline runs: step logs on disk and
// one signed ledger block per attempted step.
package audit

import (
	"crypto/ed25519"
	"fmt"
	"sync"

	"blockci/internal/core"
	"blockci/internal/ledger"
	"blockci/internal/storage"
	"blockci/pkg/utils"
)

// Recorder ties together log storage and the ledger.
// Either may be nil; a nil Recorder records nothing.
type Recorder struct {
	Logs    *storage.LogStorage
	Ledger  *ledger.Ledger
	Priv    ed25519.PrivateKey
	Pub     ed25519.PublicKey
	AgentID string // identifies where the steps ran

	mu sync.Mutex
}

// Record saves every step of res and appends a block for it.
// Skipped stages get a single block with an empty step name.
func (r *Recorder) Record(runID string, res *core.RunResult) ([]ledger.Block, error) {
	if r == nil || res == nil {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var blocks []ledger.Block
	for _, stage := range res.Stages {
		if stage.Skipped {
			blk, err := r.appendBlock(ledger.Entry{
				RunID:    runID,
				Pipeline: res.Pipeline,
				Stage:    stage.Name,
				Skipped:  true,
				Success:  true,
				LogHash:  utils.HashString(""),
				AgentID:  r.AgentID,
			})
			if err != nil {
				return blocks, err
			}
			if blk != nil {
				blocks = append(blocks, *blk)
			}
			continue
		}

		for _, st := range stage.Steps {
			e := ledger.Entry{
				RunID:    runID,
				Pipeline: res.Pipeline,
				Stage:    stage.Name,
				Step:     st.Name,
				Success:  st.Success,
				LogHash:  utils.HashString(st.Stdout + st.Stderr),
				AgentID:  r.AgentID,
			}

			if r.Logs != nil {
				logPath, err := r.Logs.SaveLog(runID, stage.Name, st.Name, st.Stdout, st.Stderr)
				if err != nil {
					return blocks, fmt.Errorf("save log for step %s: %w", st.Name, err)
				}
				logHash, err := utils.HashFile(logPath)
				if err != nil {
					return blocks, fmt.Errorf("hash log for step %s: %w", st.Name, err)
				}
				e.LogPath = logPath
				e.LogHash = logHash
			}

			blk, err := r.appendBlock(e)
			if err != nil {
				return blocks, err
			}
			if blk != nil {
				blocks = append(blocks, *blk)
			}
		}
	}
	return blocks, nil
}

func (r *Recorder) appendBlock(e ledger.Entry) (*ledger.Block, error) {
	if r.Ledger == nil {
		return nil, nil
	}
	blk, err := r.Ledger.AppendEntry(e, r.Priv, r.Pub)
	if err != nil {
		return nil, fmt.Errorf("append block for %s/%s: %w", e.Stage, e.Step, err)
	}
	return blk, nil
}
