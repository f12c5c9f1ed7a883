// Package agent runs pipeline commands on a remote host. The agent side is an
// HTTP handler in front of a core.CommandRunner; Client is the matching
// core.CommandRunner for the orchestrating side.
//
// The orchestrator sends the complete effective environment of a run,
// including its own process environment, and the agent executes arbitrary
// commands, so agents belong on trusted networks behind a shared token.
package agent

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"blockci/internal/core"
)

// RunRequest is the body of POST /run.
type RunRequest struct {
	Stage   string            `json:"stage,omitempty"`
	Step    string            `json:"step,omitempty"`
	Command core.Command      `json:"command"`
	Env     map[string]string `json:"env,omitempty"`
}

// RunResponse is the reply of POST /run. Error is set only when the command
// could not be started; a non-zero exit is reported through ExitCode.
type RunResponse struct {
	Stage    string `json:"stage,omitempty"`
	Step     string `json:"step,omitempty"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	Error    string `json:"error,omitempty"`
}

type handler struct {
	runner core.CommandRunner
	logf   func(format string, args ...any)
}

// NewHandler exposes runner over HTTP. When token is not empty, POST /run
// requires "Authorization: Bearer <token>".
func NewHandler(runner core.CommandRunner, token string, logf func(format string, args ...any)) http.Handler {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	h := &handler{runner: runner, logf: logf}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.With(requireToken(token)).Post("/run", h.handleRunJob)
	return r
}

func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *handler) handleRunJob(w http.ResponseWriter, r *http.Request) {
	var job RunRequest
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if job.Command.IsZero() {
		http.Error(w, "command is required", http.StatusBadRequest)
		return
	}

	h.logf("Agent running %s", job.Command.String())

	resp := RunResponse{Stage: job.Stage, Step: job.Step}
	out, err := h.runner.RunCommand(r.Context(), job.Command, job.Env)
	if out != nil {
		resp.Stdout = out.Stdout
		resp.Stderr = out.Stderr
		resp.ExitCode = out.ExitCode
	}
	if err != nil {
		resp.Error = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
