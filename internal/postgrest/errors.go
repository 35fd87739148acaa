package postgrest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// ErrUnavailable is returned without contacting the store while the circuit breaker is open.
var ErrUnavailable = errors.New("store is temporarily unavailable")

// schemaMismatch matches the messages PostgREST and Postgres produce when a
// request names a column the relation does not have.
var schemaMismatch = regexp.MustCompile(`(?i)could not find the '\w+' column|column .* does not exist|missing column`)

// Error is a non-2xx answer from the store.
type Error struct {
	StatusCode int
	Status     string
	Message    string
	Code       string
	Hint       string
	Details    string
}

// Error returns the store's message, falling back to the HTTP status text.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != "" {
		return e.Status
	}
	return http.StatusText(e.StatusCode)
}

// SchemaMismatch reports whether the store rejected the request because of an unknown column.
func (e *Error) SchemaMismatch() bool {
	return schemaMismatch.MatchString(e.Message)
}

// MentionsColumn reports whether the message names col, ignoring case.
func (e *Error) MentionsColumn(col string) bool {
	return strings.Contains(strings.ToLower(e.Message), strings.ToLower(col))
}

// IsSchemaMismatch unwraps err to an *Error and reports SchemaMismatch.
func IsSchemaMismatch(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.SchemaMismatch()
}

// MentionsColumn unwraps err to an *Error and reports MentionsColumn.
func MentionsColumn(err error, col string) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.MentionsColumn(col)
}

// parseError builds an Error from a failed response. Bodies that are not the
// usual {message, code, hint, details} object leave only the status populated.
func parseError(statusCode int, body []byte) *Error {
	e := &Error{StatusCode: statusCode, Status: http.StatusText(statusCode)}
	if e.Status == "" {
		e.Status = fmt.Sprintf("HTTP %d", statusCode)
	}
	var payload struct {
		Message json.RawMessage `json:"message"`
		Code    json.RawMessage `json:"code"`
		Hint    json.RawMessage `json:"hint"`
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return e
	}
	e.Message = rawText(payload.Message)
	e.Code = rawText(payload.Code)
	e.Hint = rawText(payload.Hint)
	e.Details = rawText(payload.Details)
	return e
}

// rawText renders a JSON string as its content and any other value as its JSON text.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
