package web

// errors.go maps core errors onto HTTP responses.
//
// The mapping keeps a single convention: every error body is JSON with
// an "error" field, validation failures additionally carry the per-row
// detail so the client can highlight the offending rows.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"exceltojira/internal/core"
)

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Error       string   `json:"error"`
	RowErrors   []string `json:"row_errors,omitempty"`
	InvalidRows []int    `json:"invalid_rows,omitempty"`
}

// respondError logs the technical error with the request id and writes
// the mapped JSON response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := mapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// mapError picks the HTTP status and response body for an error.
func mapError(err error) (int, ErrorResponse) {
	var vErr *core.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, ErrorResponse{
			Error:       vErr.Result.Message,
			RowErrors:   vErr.Result.RowErrors,
			InvalidRows: vErr.Result.InvalidRows,
		}
	}

	var cfgErr *core.ConfigError
	if errors.As(err, &cfgErr) {
		return http.StatusBadRequest, ErrorResponse{Error: cfgErr.Error()}
	}

	switch {
	case errors.Is(err, core.ErrPreviewNotFound),
		errors.Is(err, core.ErrOperationNotFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error()}
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusTooManyRequests, ErrorResponse{Error: err.Error()}
	}

	return http.StatusBadGateway, ErrorResponse{Error: err.Error()}
}

// writeError writes a plain JSON error without core error mapping.
// Used where the failure is purely an HTTP-level concern.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// writeJSON encodes v and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}
