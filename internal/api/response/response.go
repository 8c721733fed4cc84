// Package response writes the control API's JSON envelopes.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error codes returned in the error envelope.
const (
	CodeForbidden      = "FORBIDDEN"
	CodeInvalidToken   = "INVALID_TOKEN"
	CodeRateLimited    = "RATE_LIMIT_EXCEEDED"
	CodeJobNotFound    = "JOB_NOT_FOUND"
	CodeJobRunning     = "JOB_RUNNING"
	CodeNotImplemented = "NOT_IMPLEMENTED"
	CodeInternal       = "INTERNAL_ERROR"
)

// ListMeta accompanies collection responses.
type ListMeta struct {
	Total int `json:"total"`
}

type successBody struct {
	Data any       `json:"data"`
	Meta *ListMeta `json:"meta,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes data with 200 OK.
func JSON(w http.ResponseWriter, data any) {
	Status(w, http.StatusOK, data)
}

// Accepted writes data with 202 Accepted, for work that continues after the response.
func Accepted(w http.ResponseWriter, data any) {
	Status(w, http.StatusAccepted, data)
}

// Status writes data in the success envelope with an explicit status code.
func Status(w http.ResponseWriter, status int, data any) {
	write(w, status, successBody{Data: data})
}

// Collection writes a list with its total count.
func Collection(w http.ResponseWriter, data any, meta ListMeta) {
	write(w, http.StatusOK, successBody{Data: data, Meta: &meta})
}

func Error(w http.ResponseWriter, status int, code, message string, details any) {
	write(w, status, errorBody{Error: errorDetail{Code: code, Message: message, Details: details}})
}

func write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "status", status, "error", err)
	}
}
