// Package httpapi defines the JSON response envelope and the API error
// taxonomy shared by every handler package.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Envelope is the uniform JSON response shape: {success, message?, data?}.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Page wraps a paginated result set.
type Page struct {
	Items      any   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// NewPage builds a Page, deriving totalPages from total and limit.
func NewPage(items any, total int64, page, limit int) Page {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Page{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

// Error is a service-layer error carrying a status-code hint for the
// HTTP layer. The service never writes HTTP responses directly; errors
// propagate here and are mapped by WriteErr.
type Error struct {
	Code    string `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

// StatusCode returns the HTTP status hint.
func (e *Error) StatusCode() int { return e.Status }

// NotFound signals that an entity id did not resolve.
func NotFound(format string, args ...any) *Error {
	return &Error{Code: "NOT_FOUND", Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation signals a missing or malformed input field.
func Validation(format string, args ...any) *Error {
	return &Error{Code: "VALIDATION_ERROR", Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Forbidden signals an actor lacking permission for a mutation.
func Forbidden(format string, args ...any) *Error {
	return &Error{Code: "FORBIDDEN", Status: http.StatusForbidden, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized signals a missing or invalid credential.
func Unauthorized(format string, args ...any) *Error {
	return &Error{Code: "UNAUTHORIZED", Status: http.StatusUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// Conflict signals a uniqueness violation, e.g. duplicate department code.
func Conflict(format string, args ...any) *Error {
	return &Error{Code: "CONFLICT", Status: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

// StatusCoder is implemented by errors that carry an HTTP status hint.
type StatusCoder interface {
	error
	StatusCode() int
}

// WriteJSON writes a success envelope with the given payload.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Success: true, Data: data})
}

// WriteMessage writes a success envelope with a message and no data.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Success: true, Message: message})
}

// WriteErr maps an error to a JSON error envelope. Errors implementing
// StatusCoder keep their status hint; everything else is a 500.
func WriteErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"
	if sc, ok := err.(StatusCoder); ok {
		status = sc.StatusCode()
		message = sc.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Success: false, Message: message})
}

// WriteError writes an error envelope with an explicit status and message.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Success: false, Message: message})
}
