// Package httphandler is the HTTP driving adapter that serves the status API.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/minidaoom/bundang-review-monitor/internal/application"
	"github.com/minidaoom/bundang-review-monitor/internal/config"
	"github.com/minidaoom/bundang-review-monitor/internal/domain/port/driven"
)

const defaultHistoryPageSize = 50

// Handler serves the monitor's status and manual-dispatch API.
type Handler struct {
	history    driven.HistoryStore
	monitorSvc *application.MonitorService
	logger     *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(history driven.HistoryStore, monitorSvc *application.MonitorService, logger *slog.Logger) *Handler {
	return &Handler{
		history:    history,
		monitorSvc: monitorSvc,
		logger:     logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/history", h.ListHistory)
	mux.HandleFunc("GET /api/v1/latest", h.Latest)
	mux.HandleFunc("POST /api/v1/check", h.Check)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health reports liveness plus a summary of the most recent run.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}

	latest, err := h.history.Latest(r.Context())
	if err != nil {
		h.logger.Error("failed to load latest record for health", "error", err)
	} else if latest != nil {
		rec := toRecordResponse(*latest)
		resp.LastRun = &rec
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListHistory returns recent run records, newest first. The limit query
// parameter caps the page size.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	recs, err := h.history.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list run records", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RecordResponse, 0, len(recs))
	for _, rec := range recs {
		resp = append(resp, toRecordResponse(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Latest returns the most recent run record.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	rec, err := h.history.Latest(r.Context())
	if err != nil {
		h.logger.Error("failed to load latest record", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if rec == nil {
		writeError(w, http.StatusNotFound, "no runs recorded yet")
		return
	}

	writeJSON(w, http.StatusOK, toRecordResponse(*rec))
}

// Check triggers a manual check, bypassing the interval. The body carries
// the two dispatch parameters; both are optional.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var ov application.Overrides
	ov.TestMode = req.TestMode
	if req.ChangeThreshold != "" {
		threshold, err := config.ParseThreshold(req.ChangeThreshold)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		ov.Threshold = &threshold
	}

	rec, err := h.monitorSvc.Check(r.Context(), ov)
	if err != nil && !errors.Is(err, application.ErrMissingMailCredentials) {
		h.logger.Error("manual check failed", "error", err)
		writeJSON(w, http.StatusBadGateway, CheckResponse{
			Record: toRecordResponse(rec),
			Error:  err.Error(),
		})
		return
	}

	resp := CheckResponse{Record: toRecordResponse(rec)}
	if err != nil {
		resp.Error = err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}
