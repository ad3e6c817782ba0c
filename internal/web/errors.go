package web

// errors.go maps backup-layer errors onto HTTP responses.
//
// The backup package reports failures through a small set of sentinel errors
// and typed errors carrying source-line context. Handlers pass whatever they
// got to respondError; the mapping here decides the status code and the
// machine-readable code, and the full technical error is logged server-side
// with the request ID for correlation.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/quillpress/quill/internal/backup"
)

// ErrorResponse is the JSON body for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Line  int    `json:"line,omitempty"`
}

// statusForError maps a backup error to an HTTP status and a stable code.
func statusForError(err error) (int, string) {
	var formatErr *backup.FormatError
	var refErr *backup.ReferenceError
	switch {
	case errors.Is(err, backup.ErrNotAuthorized):
		return http.StatusForbidden, "IMPORT_NOT_AUTHORIZED"
	case errors.Is(err, backup.ErrModeMismatch):
		return http.StatusConflict, "IMPORT_MODE_MISMATCH"
	case errors.Is(err, backup.ErrTooManyImports):
		return http.StatusTooManyRequests, "IMPORT_BUSY"
	case errors.As(err, &formatErr):
		return http.StatusUnprocessableEntity, "IMPORT_BAD_FORMAT"
	case errors.As(err, &refErr):
		return http.StatusUnprocessableEntity, "IMPORT_DANGLING_REFERENCE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// respondError logs the technical error and writes the mapped JSON response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusForError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	resp := ErrorResponse{Error: err.Error(), Code: code}
	var formatErr *backup.FormatError
	if errors.As(err, &formatErr) {
		resp.Line = formatErr.Line
	}
	var refErr *backup.ReferenceError
	if errors.As(err, &refErr) {
		resp.Line = refErr.Line
	}

	// Internal details stay in the log, not on the wire.
	if status == http.StatusInternalServerError {
		resp.Error = "internal error"
	}

	writeJSON(w, status, resp)
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
