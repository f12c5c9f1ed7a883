package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"blockci/internal/core"
	"blockci/internal/ledger"
	"blockci/internal/security"
	"blockci/internal/storage"
	"blockci/pkg/utils"
)

func sampleResult() *core.RunResult {
	return &core.RunResult{
		Pipeline: "build",
		Stages: []core.StageResult{
			{Name: "Install", Success: true, Steps: []core.StepResult{
				{Name: "npm ci", Success: true, Stdout: "added 12 packages\n"},
			}},
			{Name: "Lint", Steps: []core.StepResult{
				{Name: "eslint", ContinueOnError: true, Stderr: "2 problems\n", ExitCode: 1, Error: "exit status 1"},
				{Name: "prettier", Success: true},
			}},
			{Name: "Deploy", Skipped: true, Success: true},
		},
	}
}

func TestRecordWritesLogsAndBlocks(t *testing.T) {
	dir := t.TempDir()
	l, err := ledger.OpenLedger(filepath.Join(dir, "ledger.jsonl"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	pub, priv, err := security.GenerateKeyPair()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}

	rec := &Recorder{
		Logs:    storage.NewLogStorage(filepath.Join(dir, "logs")),
		Ledger:  l,
		Priv:    priv,
		Pub:     pub,
		AgentID: "local-agent",
	}

	blocks, err := rec.Record("p-1", sampleResult())
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(blocks))
	}

	eslint := blocks[1]
	if eslint.Step != "eslint" || eslint.Success {
		t.Fatalf("unexpected block %+v", eslint)
	}
	if _, err := os.Stat(eslint.LogPath); err != nil {
		t.Fatalf("log not written: %v", err)
	}
	h, err := utils.HashFile(eslint.LogPath)
	if err != nil || h != eslint.LogHash {
		t.Fatalf("log hash mismatch")
	}

	deploy := blocks[3]
	if !deploy.Skipped || deploy.Step != "" || deploy.Stage != "Deploy" {
		t.Fatalf("unexpected skipped block %+v", deploy)
	}
	if err := l.VerifyChain(pub); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestRecordWithoutLedgerOnlySavesLogs(t *testing.T) {
	dir := t.TempDir()
	rec := &Recorder{Logs: storage.NewLogStorage(dir)}

	blocks, err := rec.Record("p-2", sampleResult())
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(blocks) != 0 {
		t.Fatalf("expected no blocks")
	}
	entries, err := os.ReadDir(filepath.Join(dir, "p-2"))
	if err != nil {
		t.Fatalf("read logs: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 logs, got %d", len(entries))
	}
}

func TestNilRecorder(t *testing.T) {
	var rec *Recorder
	if _, err := rec.Record("p-3", sampleResult()); err != nil {
		t.Fatalf("nil recorder should be a no-op: %v", err)
	}
}

func TestOpenCreatesEverything(t *testing.T) {
	dir := t.TempDir()
	var logged []string
	logf := func(format string, args ...any) { logged = append(logged, fmt.Sprintf(format, args...)) }

	rec, err := Open(filepath.Join(dir, "logs"), filepath.Join(dir, "state", "ledger.jsonl"), filepath.Join(dir, "keys"), "agent-1", logf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	blocks, err := rec.Record("p-4", sampleResult())
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(blocks) != 4 || blocks[0].AgentID != "agent-1" {
		t.Fatalf("unexpected blocks %+v", blocks)
	}

	if len(logged) != 1 || !strings.HasPrefix(logged[0], "Generated new signing keys") {
		t.Fatalf("expected key generation to be logged once, got %q", logged)
	}

	reopened, err := Open(filepath.Join(dir, "logs"), filepath.Join(dir, "state", "ledger.jsonl"), filepath.Join(dir, "keys"), "agent-1", logf)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Ledger.NextIndex() != 4 {
		t.Fatalf("ledger not persisted")
	}
	if len(logged) != 1 {
		t.Fatalf("existing keys must not be reported as generated: %q", logged)
	}
	if !reopened.Pub.Equal(rec.Pub) {
		t.Fatalf("keys not reused")
	}
	if err := reopened.Ledger.VerifyChain(rec.Pub); err != nil {
		t.Fatalf("verify: %v", err)
	}
}
