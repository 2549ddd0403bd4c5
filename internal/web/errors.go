package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. The status code is chosen from the error chain by statusFor
//  4. Error is mapped via core.MapError to get a user-friendly message
//  5. Technical error is logged with the request ID for correlation
//  6. User message is rendered as JSON or as an HTML error alert

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ArmandoRuiz13/registro/internal/core"
	"github.com/ArmandoRuiz13/registro/internal/sheet"
	"github.com/ArmandoRuiz13/registro/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// statusFor picks the HTTP status for an error returned by the service.
func statusFor(err error) int {
	var (
		verr   *core.ValidationError
		csvErr *csv.ParseError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrUnknownSheet), errors.Is(err, core.ErrPendingNotFound),
		errors.Is(err, core.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, sheet.ErrVersionConflict), errors.Is(err, core.ErrRowChanged):
		return http.StatusConflict
	case errors.Is(err, errMalformed), errors.Is(err, sheet.ErrRowOutOfRange), errors.Is(err, sheet.ErrUnknownColumn),
		errors.Is(err, core.ErrInvalidStatus), errors.Is(err, core.ErrHeaderNotFound),
		errors.Is(err, core.ErrImportNotAllowed), errors.As(err, &csvErr):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrImportTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyWrites), errors.Is(err, sheet.ErrLockNotObtained):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the user-facing message in the format
// the client asked for.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := logError(r, err, status)

	if wantsJSON(r) {
		respondErrorJSON(w, err, msg, status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if rerr := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); rerr != nil {
		slog.Error("render error alert", "error", rerr)
	}
}

// logError records the technical error and returns its user message.
func logError(r *http.Request, err error, status int) core.UserMessage {
	msg := core.MapError(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)
	return msg
}

// respondErrorJSON writes a JSON error response. Validation errors carry
// the per-field problems.
func respondErrorJSON(w http.ResponseWriter, err error, msg core.UserMessage, status int) {
	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// alertFor converts err into the alert shown at the top of a page.
func alertFor(r *http.Request, err error) *templates.Alert {
	msg := logError(r, err, statusFor(err))
	a := &templates.Alert{Message: msg.Message, Action: msg.Action, Code: msg.Code}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		a.Message = verr.Error()
	}
	return a
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json")
}
