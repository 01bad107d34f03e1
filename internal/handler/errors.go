package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pkordes/fleet-logbook/backend/internal/checklist"
	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/session"
)

// ErrorDetail is the body of every error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorDetail as {"error": {...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

func notFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, "not_found", message)
}

func noActiveTrip(w http.ResponseWriter) {
	writeError(w, http.StatusConflict, "no_active_trip", "no trip is active")
}

// writeServiceError maps a sentinel error to its status code. Anything
// unrecognised is logged and answered with 500 without leaking details.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		notFound(w, "resource not found")
	case errors.Is(err, session.ErrTripActive):
		writeError(w, http.StatusConflict, "trip_active", "a trip is already active")
	case errors.Is(err, session.ErrNoActiveTrip):
		noActiveTrip(w)
	case errors.Is(err, session.ErrHandoffPending):
		writeError(w, http.StatusConflict, "handoff_pending", "the previous trip has not reached the fleet office yet")
	case errors.Is(err, checklist.ErrOutOfTurn):
		writeError(w, http.StatusConflict, "out_of_turn", "the checklist is not waiting for this input")
	case errors.Is(err, session.ErrAnalysisUnavailable):
		writeError(w, http.StatusServiceUnavailable, "analysis_unavailable", "damage analysis is unavailable, record the condition manually")
	case errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting_down", "the server is shutting down")
	default:
		s.logger.ErrorContext(r.Context(), "unhandled error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// unwrapMessage keeps the human-readable part of a wrapped validation error.
// "session.Session.Start: validation error: driver is required" → "driver is required"
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	marker := domain.ErrValidation.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 && len(msg) > i+len(marker) {
		return msg[i+len(marker):]
	}
	return msg
}

// decode reads a JSON body into dst and runs the validator over it. It
// writes the 422 response itself and reports whether the handler may go on.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "request body is required")
		default:
			writeError(w, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err))
		}
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", validationMessage(err))
		return false
	}
	return true
}

// validationMessage turns validator field errors into "field: rule" pairs.
func validationMessage(err error) string {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err.Error()
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		rule := f.Tag()
		if f.Param() != "" {
			rule += "=" + f.Param()
		}
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field(), rule))
	}
	return strings.Join(parts, "; ")
}
