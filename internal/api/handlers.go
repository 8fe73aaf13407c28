package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cartopack/cartopack/pkg/buildinfo"
	"github.com/cartopack/cartopack/pkg/errors"
	"github.com/cartopack/cartopack/pkg/layout"
	"github.com/cartopack/cartopack/pkg/pipeline"
	"github.com/cartopack/cartopack/pkg/store"
)

// maxBodyBytes caps layout request bodies. Record payloads are bulky but
// bounded; anything past this is a client mistake.
const maxBodyBytes = 32 << 20

// =============================================================================
// Response Helpers
// =============================================================================

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// errorResponse is the standard error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, errors.ErrCodeNotFound):
		return http.StatusNotFound
	case errors.IsConfiguration(err):
		return http.StatusBadRequest
	case errors.IsData(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)

	code := errors.GetCode(err)
	message := errors.UserMessage(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	if status == http.StatusInternalServerError {
		// Internal details stay in the server log
		message = "internal server error"
	}

	writeJSON(w, status, errorResponse{Code: string(code), Message: message})
}

func badRequest(w http.ResponseWriter, format string, args ...any) {
	writeError(w, errors.New(errors.ErrCodeInvalidConfig, format, args...))
}

// =============================================================================
// Health and Version
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
		"uptime":  time.Since(s.startAt).Truncate(time.Second).String(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
		"built":   buildinfo.Date,
	})
}

// =============================================================================
// Layout Runs
// =============================================================================

// layoutResponse is the body for a completed layout run.
type layoutResponse struct {
	RunID     string             `json:"run_id"`
	Layout    layout.Layout      `json:"layout"`
	Stats     pipeline.Stats     `json:"stats"`
	Cache     pipeline.CacheInfo `json:"cache"`
	Artifacts map[string][]byte  `json:"artifacts,omitempty"`
}

// handleCreateLayout runs the pipeline on records submitted in the request
// body. The body is pipeline options JSON; records travel inline and file
// input is rejected.
func (s *Server) handleCreateLayout(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&opts); err != nil {
		badRequest(w, "decode request: %v", err)
		return
	}

	if opts.Input != "" {
		badRequest(w, "file input is not accepted over the API; submit records inline")
		return
	}
	if len(opts.Records) == 0 {
		badRequest(w, "no records submitted")
		return
	}
	opts.Logger = s.logger

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.logger.Error("layout run failed", "error", err)
		writeError(w, err)
		return
	}

	if err := s.store.Save(r.Context(), store.NewRun(result, opts)); err != nil {
		s.logger.Error("persist run failed", "run_id", result.RunID, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, layoutResponse{
		RunID:     result.RunID,
		Layout:    result.Layout,
		Stats:     result.Stats,
		Cache:     result.CacheInfo,
		Artifacts: result.Artifacts,
	})
}

// listRunsResponse wraps the run history list.
type listRunsResponse struct {
	Runs  []*store.Run `json:"runs"`
	Count int          `json:"count"`
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "invalid limit: %q", v)
			return
		}
		limit = n
	}

	runs, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs failed", "error", err)
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, listRunsResponse{Runs: runs, Count: len(runs)})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")

	run, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")

	if err := s.store.Delete(r.Context(), id); err != nil {
		s.logger.Error("delete run failed", "run_id", id, "error", err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
