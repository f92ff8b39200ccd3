package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/terra-clan/quest-ledger/internal/ledger"
	"github.com/terra-clan/quest-ledger/internal/models"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// statusFor maps ledger error kinds to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrUninitialized):
		return http.StatusPreconditionFailed
	case errors.Is(err, ledger.ErrAlreadyExists),
		errors.Is(err, ledger.ErrAlreadyMinted),
		errors.Is(err, ledger.ErrAlreadyCompleted),
		errors.Is(err, ledger.ErrAlreadyInitialized),
		errors.Is(err, ledger.ErrNotActive),
		errors.Is(err, ledger.ErrExpired),
		errors.Is(err, ledger.ErrCapReached):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondLedgerError renders a ledger failure. Internal errors are logged and
// replaced by message; domain rejections are returned as is.
func respondLedgerError(w http.ResponseWriter, err error, message string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(message, "error", err)
		respondError(w, status, "internal_error", message)
		return
	}
	respondError(w, status, ledger.Code(err), err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

func queryInt(r *http.Request, name string, def int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			return v
		}
	}
	return def
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	ready := true

	if err := s.ledger.Host.Ping(r.Context()); err != nil {
		slog.Warn("ledger store not ready", "error", err)
		checks["ledger"] = err.Error()
		ready = false
	} else {
		checks["ledger"] = "ok"
	}

	for name, err := range s.checks.HealthCheckAll(r.Context()) {
		if err != nil {
			slog.Warn("dependency not ready", "name", name, "error", err)
			checks[name] = err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	if !ready {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(apiResponse{
			Success: false,
			Data:    checks,
			Error:   &apiError{Code: "not_ready", Message: "service not ready"},
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": checks,
	})
}

// Platform handlers

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req models.InitializeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cfg, err := s.ledger.Platform.Initialize(r.Context(), req.Admin, req.RewardToken, req.Orchestrator)
	if err != nil {
		respondLedgerError(w, err, "failed to initialize platform")
		return
	}

	slog.Info("platform initialized", "admin", cfg.Admin, "orchestrator", cfg.Orchestrator)
	respondJSON(w, http.StatusCreated, cfg)
}

func (s *Server) handleGetPlatform(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.ledger.Platform.Config(r.Context())
	if err != nil {
		respondLedgerError(w, err, "failed to get platform config")
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// Event handlers

func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if s.stream == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "event stream is disabled")
		return
	}
	s.stream.ServeHTTP(w, r)
}

func (s *Server) handleEventHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "event history is disabled")
		return
	}

	var after uint64
	if raw := r.URL.Query().Get("after"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", "after must be a sequence number")
			return
		}
		after = v
	}

	evts, err := s.history.Since(r.Context(), after, queryInt(r, "limit", 100))
	if err != nil {
		slog.Error("failed to read event history", "error", err, "after", after)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to read events")
		return
	}
	if evts == nil {
		evts = []models.Event{}
	}

	respondJSON(w, http.StatusOK, evts)
}
