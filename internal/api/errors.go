// ABOUTME: Remote error taxonomy: structured API errors, the partial
// ABOUTME: rejection payload, and the missing-body contract violation.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrMissingBody reports a success status whose body the contract requires
// but the server omitted. This is a contract violation, not a transient
// condition: callers must not retry it.
var ErrMissingBody = errors.New("expected response body is missing")

// InvalidRecord names one record the server rejected out of a batch. Which
// field identifies the record depends on the batch kind: journal and
// cognitive batches key by id, telemetry batches by start or timestamp.
type InvalidRecord struct {
	ID        string `json:"id,omitempty"`
	Start     int64  `json:"start,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// ErrorDetails carries the structured payload of a partial rejection.
type ErrorDetails struct {
	InvalidRecords []InvalidRecord `json:"invalidRecords,omitempty"`
}

// Error is a structured remote failure, decoded from the service's
// `{"error": {...}}` envelope when present.
type Error struct {
	StatusCode int          `json:"statusCode"`
	Name       string       `json:"name,omitempty"`
	Message    string       `json:"message,omitempty"`
	Details    ErrorDetails `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("remote error %d %s: %s", e.StatusCode, e.Name, e.Message)
	}
	return fmt.Sprintf("remote error %d: %s", e.StatusCode, e.Message)
}

// PartialRejection reports whether the error names specific invalid records
// that can be excised so the remainder can be resubmitted.
func (e *Error) PartialRejection() bool {
	return e.StatusCode == http.StatusBadRequest && len(e.Details.InvalidRecords) > 0
}

// IsConflict reports whether err is an HTTP 409, which idempotent
// registration paths treat as success.
func IsConflict(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// IsNotFound reports whether err is an HTTP 404, which deletion
// confirmation treats as already-deleted success.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is an HTTP 401.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// AsError extracts the structured remote error from err, or nil.
func AsError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// decodeError builds an *Error from a non-2xx response. Bodies that don't
// match the envelope still yield a usable error carrying the status code.
func decodeError(resp *http.Response) *Error {
	apiErr := &Error{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || len(body) == 0 {
		apiErr.Message = resp.Status
		return apiErr
	}
	var envelope struct {
		Error *Error `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
		envelope.Error.StatusCode = resp.StatusCode
		return envelope.Error
	}
	apiErr.Message = string(body)
	return apiErr
}
