package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"cdg-engine/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Table     string `json:"table,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writePipelineError maps pipeline failures to HTTP statuses. A missing input
// table is a client problem (HTTP 422) naming the absent table; everything
// else is a 500.
func writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	var stageErr *core.StageError
	if errors.As(err, &stageErr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(errorResponse{
			Error:     stageErr.Error(),
			Code:      "MISSING_TABLE",
			Table:     stageErr.Table,
			RequestID: requestIDFromContext(r.Context()),
		})
		return
	}
	writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
