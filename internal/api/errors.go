package api

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the backend reports 404 for a record.
var ErrNotFound = errors.New("record not found")

// AuthorizationError reports a 401 or 403 from an authorized call. By
// the time the caller sees it, the token store has been cleared and
// the auth-failure hook has run; the error is still returned so the
// caller's own error handling fires too.
type AuthorizationError struct {
	StatusCode int
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("request not authorized (status %d)", e.StatusCode)
}

// StatusError reports any other non-2xx backend response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}
