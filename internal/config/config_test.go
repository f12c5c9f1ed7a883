package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"blockci/internal/agent"
	"blockci/internal/core"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "BLOCKCI_SERVER_ADDR", "BLOCKCI_AGENT_ID", "BLOCKCI_AGENT_ADDR", "BLOCKCI_AGENT_URL",
		"BLOCKCI_LOG_DIR", "BLOCKCI_LEDGER", "BLOCKCI_KEY_DIR", "BLOCKCI_SHELL", "BLOCKCI_STEP_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blockci.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  addr: ":7000"
storage:
  ledger: /var/lib/blockci/ledger.jsonl
executor:
  step_timeout: 30s
`)
	t.Setenv("BLOCKCI_AGENT_URL", "http://agent:9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("server addr = %s", cfg.Server.Addr)
	}
	if cfg.Storage.LedgerPath != "/var/lib/blockci/ledger.jsonl" {
		t.Errorf("ledger = %s", cfg.Storage.LedgerPath)
	}
	if cfg.Storage.LogDir != "./logs" {
		t.Errorf("defaults lost: log dir = %s", cfg.Storage.LogDir)
	}
	if cfg.Agent.URL != "http://agent:9090" {
		t.Errorf("agent url = %s", cfg.Agent.URL)
	}
	if d, _ := cfg.StepTimeout(); d != 30*time.Second {
		t.Errorf("step timeout = %s", d)
	}
}

func TestLoadPortFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9999")

	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Fatalf("server addr = %s", cfg.Server.Addr)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("BLOCKCI_STEP_TIMEOUT", "soon")
	if _, err := Load(writeConfig(t, "")); err == nil {
		t.Fatalf("expected timeout parse error")
	}
}

func TestStepTimeoutZeroDisables(t *testing.T) {
	cfg := Default()
	cfg.Executor.StepTimeout = "0s"
	d, err := cfg.StepTimeout()
	if err != nil || d >= 0 {
		t.Fatalf("expected negative (disabled) timeout, got %s %v", d, err)
	}
}

func TestCommandRunnerSelection(t *testing.T) {
	cfg := Default()
	r, err := cfg.CommandRunner()
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	local, ok := r.(*core.ShellExecutor)
	if !ok {
		t.Fatalf("expected local executor, got %T", r)
	}
	if local.Timeout != 5*time.Minute || local.Shell != "sh" {
		t.Fatalf("unexpected executor %+v", local)
	}

	cfg.Agent.URL = "http://agent:9090"
	cfg.Agent.Token = "s3cret"
	r, err = cfg.CommandRunner()
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	client, ok := r.(*agent.Client)
	if !ok {
		t.Fatalf("expected agent client, got %T", r)
	}
	if client.Token != "s3cret" {
		t.Fatalf("agent token not passed to client")
	}
}
