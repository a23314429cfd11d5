package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/minidaoom/bundang-review-monitor/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// RecordResponse is the JSON representation of a run record.
type RecordResponse struct {
	Timestamp string `json:"timestamp"`
	Observed  *int   `json:"observed"`
	Previous  *int   `json:"previous"`
	Delta     *int   `json:"delta"`
	Notified  bool   `json:"notified"`
	Reason    string `json:"reason"`
	Error     string `json:"error,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status  string          `json:"status"`
	Time    string          `json:"time"`
	LastRun *RecordResponse `json:"last_run,omitempty"`
}

// CheckRequest is the JSON body for the manual check endpoint. The change
// threshold arrives string-encoded, matching the dispatch parameter format.
type CheckRequest struct {
	TestMode        *bool  `json:"test_mode,omitempty"`
	ChangeThreshold string `json:"change_threshold,omitempty"`
}

// CheckResponse is the JSON representation of a manual check outcome.
type CheckResponse struct {
	Record RecordResponse `json:"record"`
	Error  string         `json:"error,omitempty"`
}

// toRecordResponse converts a domain RunRecord to its JSON representation.
func toRecordResponse(rec model.RunRecord) RecordResponse {
	return RecordResponse{
		Timestamp: rec.Timestamp.UTC().Format(time.RFC3339),
		Observed:  rec.Observed,
		Previous:  rec.Previous,
		Delta:     rec.Delta,
		Notified:  rec.Notified,
		Reason:    string(rec.Reason),
		Error:     rec.Error,
	}
}
