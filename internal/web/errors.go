package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. statusFor picks the HTTP status from the error's type
//  4. core.NewUserError maps the error to a user message with a code
//  5. The technical error is logged with the request ID for correlation

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/payee-recon/internal/core"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`

	// MissingIDs lists the ids a bulk request referenced that do not exist.
	MissingIDs []string `json:"missing_ids,omitempty"`
}

// requestError marks a malformed request: bad JSON, bad ids, missing file.
type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *requestError) Unwrap() error { return e.err }

func badRequest(msg string, err error) error {
	return &requestError{msg: msg, err: err}
}

// statusFor maps an error onto an HTTP status code.
func statusFor(err error) int {
	var (
		rowErr core.RowError
		rowPtr *core.RowError
		reqErr *requestError
		tooBig *http.MaxBytesError
	)

	switch {
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &reqErr),
		core.IsStructural(err),
		errors.As(err, &rowErr),
		errors.As(err, &rowPtr):
		return http.StatusBadRequest
	case core.IsNotFound(err):
		return http.StatusNotFound
	case core.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, core.ErrNoRegistryData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrTooManyRuns):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error server-side and writes a
// user-friendly JSON error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	ue := core.NewUserError(err)

	// Unmapped errors are unexpected whatever their status.
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError || !core.IsUserFacing(err) {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", ue.Technical.Error(),
		"code", ue.User.Code,
	)

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "30")
	}

	resp := errorResponse(ue.User)
	var notFound *core.NotFoundError
	if errors.As(err, &notFound) {
		resp.MissingIDs = notFound.IDs
	}
	writeJSON(w, status, resp)
}

func errorResponse(msg core.UserMessage) ErrorResponse {
	return ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
}
