package core

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestShellExecutorCapturesOutput(t *testing.T) {
	requireShell(t)

	out, err := NewExecutor().RunCommand(context.Background(),
		Command{Run: "echo hello; echo err 1>&2; exit 3"}, map[string]string{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Success() || out.ExitCode != 3 {
		t.Fatalf("expected exit status 3, got %d", out.ExitCode)
	}
	if strings.TrimSpace(out.Stdout) != "hello" || strings.TrimSpace(out.Stderr) != "err" {
		t.Fatalf("unexpected output %+v", out)
	}
}

func TestShellExecutorUsesGivenEnvironment(t *testing.T) {
	requireShell(t)

	out, err := NewExecutor().RunCommand(context.Background(),
		Command{Run: `echo "$GREETING-$UNSET_IN_TEST"`}, map[string]string{"GREETING": "hi"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.TrimSpace(out.Stdout) != "hi-" {
		t.Fatalf("stdout = %q", out.Stdout)
	}
}

func TestShellExecutorRunsArgv(t *testing.T) {
	requireShell(t)

	out, err := NewExecutor().RunCommand(context.Background(),
		Command{Argv: []string{"sh", "-c", "printf '%s' \"$0\"", "a b"}}, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Stdout != "a b" || !out.Success() {
		t.Fatalf("unexpected output %+v", out)
	}
}

func TestShellExecutorSpawnFailure(t *testing.T) {
	_, err := NewExecutor().RunCommand(context.Background(),
		Command{Argv: []string{"/definitely/not/a/binary"}}, nil)
	if err == nil {
		t.Fatalf("expected spawn error")
	}
}

func TestShellExecutorTimeout(t *testing.T) {
	requireShell(t)

	e := &ShellExecutor{Shell: "sh", Timeout: 50 * time.Millisecond}
	_, err := e.RunCommand(context.Background(), Command{Run: "sleep 5"}, nil)
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestShellExecutorRejectsEmptyCommand(t *testing.T) {
	if _, err := NewExecutor().RunCommand(context.Background(), Command{}, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMergeEnvPrecedence(t *testing.T) {
	got := MergeEnv([]string{"A=1", "B=1", "C=x=y"}, map[string]string{"B": "2"}, map[string]string{"A": "3"})
	if got["A"] != "3" || got["B"] != "2" || got["C"] != "x=y" {
		t.Fatalf("merged env = %v", got)
	}
	list := EnvList(got)
	if strings.Join(list, ",") != "A=3,B=2,C=x=y" {
		t.Fatalf("env list = %v", list)
	}
}
