// Package server exposes pipeline runs over HTTP.
package server

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"blockci/internal/audit"
	"blockci/internal/core"
	"blockci/internal/ledger"
)

// Run statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusError     = "error"
)

const maxPipelineSize = 1 << 20

// Run is a submitted pipeline and, once finished, its result.
type Run struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Status      string          `json:"status"`
	Error       string          `json:"error,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
	Result      *core.RunResult `json:"result,omitempty"`
}

// Options configures a Server.
type Options struct {
	Runner          core.CommandRunner // required
	Recorder        *audit.Recorder    // optional, persists logs and ledger blocks
	Ledger          *ledger.Ledger     // optional, enables GET /ledger/verify
	LedgerKey       ed25519.PublicKey  // key ledger blocks must be signed with, defaults to Recorder.Pub
	PipelineOptions []core.Option
	Logf            func(format string, args ...any)
}

// Server accepts pipeline definitions and runs them in the background.
type Server struct {
	mu   sync.Mutex
	runs map[string]*Run
	wg   sync.WaitGroup

	runner   core.CommandRunner
	recorder *audit.Recorder
	ledger   *ledger.Ledger
	key      ed25519.PublicKey
	popts    []core.Option
	logf     func(format string, args ...any)
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	if opts.Runner == nil {
		return nil, core.ErrNoRunner
	}
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	key := opts.LedgerKey
	if key == nil && opts.Recorder != nil {
		key = opts.Recorder.Pub
	}
	return &Server{
		runs:     make(map[string]*Run),
		runner:   opts.Runner,
		recorder: opts.Recorder,
		ledger:   opts.Ledger,
		key:      key,
		popts:    opts.PipelineOptions,
		logf:     logf,
	}, nil
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Route("/pipelines", func(r chi.Router) {
		r.Post("/", s.handleSubmitPipeline)
		r.Get("/", s.handleListPipelines)
		r.Get("/{id}", s.handleGetPipeline)
	})
	r.Get("/ledger/verify", s.handleVerifyLedger)
	return r
}

// Wait blocks until every submitted run has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// Get returns a snapshot of a run.
func (s *Server) Get(id string) (Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

// POST /pipelines -> submit a new pipeline YAML
func (s *Server) handleSubmitPipeline(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPipelineSize))
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return
	}

	def, err := core.ParsePipeline(data)
	if err != nil {
		http.Error(w, "invalid pipeline: "+err.Error(), http.StatusBadRequest)
		return
	}
	p, err := def.Build(s.runner, s.popts...)
	if err != nil {
		http.Error(w, "invalid pipeline: "+err.Error(), http.StatusBadRequest)
		return
	}

	run := &Run{
		ID:          "p-" + uuid.NewString(),
		Name:        p.Name(),
		Status:      StatusPending,
		SubmittedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()

	s.wg.Add(1)
	go s.execute(run.ID, p)

	writeJSON(w, http.StatusAccepted, map[string]string{"id": run.ID, "status": StatusPending})
}

func (s *Server) execute(id string, p *core.Pipeline) {
	defer s.wg.Done()

	s.setStatus(id, StatusRunning, nil, "")
	s.logf("Run %s: starting pipeline %s", id, p.Name())

	res, err := p.Run(context.Background())
	if err != nil {
		s.logf("Run %s: %v", id, err)
		s.setStatus(id, StatusError, nil, err.Error())
		return
	}

	// recording is best-effort; a ledger problem does not change the run outcome
	if blocks, err := s.recorder.Record(id, res); err != nil {
		s.logf("WARN: run %s: cannot record results: %v", id, err)
	} else if len(blocks) > 0 {
		s.logf("Run %s: appended %d ledger blocks", id, len(blocks))
	}

	status := StatusSucceeded
	if !res.Success {
		status = StatusFailed
	}
	s.setStatus(id, status, res, "")
	s.logf("Run %s: %s", id, status)
}

func (s *Server) setStatus(id, status string, res *core.RunResult, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run := s.runs[id]
	run.Status = status
	run.Result = res
	run.Error = errMsg
}

// GET /pipelines
func (s *Server) handleListPipelines(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	list := make([]Run, 0, len(s.runs))
	for _, run := range s.runs {
		summary := *run
		summary.Result = nil
		list = append(list, summary)
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		if !list[i].SubmittedAt.Equal(list[j].SubmittedAt) {
			return list[i].SubmittedAt.Before(list[j].SubmittedAt)
		}
		return list[i].ID < list[j].ID
	})
	writeJSON(w, http.StatusOK, list)
}

// GET /pipelines/{id}
func (s *Server) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	run, ok := s.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "pipeline not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GET /ledger/verify -> run VerifyChain
func (s *Server) handleVerifyLedger(w http.ResponseWriter, _ *http.Request) {
	if s.ledger == nil {
		http.Error(w, "ledger not configured", http.StatusNotFound)
		return
	}
	if err := s.ledger.VerifyChain(s.key); err != nil {
		http.Error(w, "ledger verification failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write([]byte("ledger verification ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
