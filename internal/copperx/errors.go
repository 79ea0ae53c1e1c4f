package copperx

import (
	"errors"
	"fmt"
)

// ErrUnauthorized marks responses rejected with HTTP 401. Callers match
// it with errors.Is to clear stale credentials without string checks.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx platform response carried as a Go error.
type APIError struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("copperx: %s (status %d): %s", e.Message, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("copperx: %s (status %d)", e.Message, e.StatusCode)
}

// Is makes errors.Is(err, ErrUnauthorized) true for 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == 401
}
