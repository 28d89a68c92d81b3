package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/eugenenazirov/litrun/internal/runner"
	"github.com/eugenenazirov/litrun/internal/storage"
	"github.com/eugenenazirov/litrun/internal/suite"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// RunExecutor discovers and runs the suite, storing the completed run.
type RunExecutor interface {
	Execute(ctx context.Context) (runner.Run, error)
}

// Handler wires the suite, run executor and run storage into HTTP handlers.
type Handler struct {
	suite    suite.Config
	executor RunExecutor
	storage  storage.Storage

	clock func() time.Time

	// running guards against overlapping runs of the same suite.
	running sync.Mutex
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(cfg suite.Config, executor RunExecutor, store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		suite:    cfg,
		executor: executor,
		storage:  store,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSuite(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, h.suite)
}

func (h *Handler) handleStartRun(w http.ResponseWriter, r *http.Request) {
	if !h.running.TryLock() {
		writeError(w, http.StatusConflict, "Run in progress", "a test run is already executing", "retry once the current run completes")
		return
	}
	defer h.running.Unlock()

	run, err := h.executor.Execute(r.Context())
	if err != nil {
		if errors.Is(err, runner.ErrInterrupted) {
			writeError(w, http.StatusServiceUnavailable, "Run interrupted", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	_ = r
	runs, err := h.storage.ListRuns()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := runListResponse{Runs: make([]runSummaryResponse, 0, len(runs))}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, runSummaryResponse{
			ID:        run.ID,
			StartedAt: run.StartedAt,
			Passed:    run.Passed(),
			Summary:   run.Summary,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	_ = r
	run, err := h.storage.Latest()
	h.writeRun(w, run, err)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.storage.GetRun(r.PathValue("id"))
	h.writeRun(w, run, err)
}

func (h *Handler) writeRun(w http.ResponseWriter, run runner.Run, err error) {
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "Run not found", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type runListResponse struct {
	Runs []runSummaryResponse `json:"runs"`
}

type runSummaryResponse struct {
	ID        string         `json:"id"`
	StartedAt time.Time      `json:"startedAt"`
	Passed    bool           `json:"passed"`
	Summary   runner.Summary `json:"summary"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
