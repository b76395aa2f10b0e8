package fetch

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the identifier is unknown upstream. It is terminal:
// the orchestrator dead-letters it without retrying.
var ErrNotFound = errors.New("identifier not found upstream")

// Error is a transient fetch failure (network problem, upstream 5xx,
// throttling). The orchestrator retries these with backoff.
type Error struct {
	ID         string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: upstream status %d: %s", e.ID, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fetch %s: %s", e.ID, e.Message)
}

// IsNotFound reports whether the error indicates an unknown identifier.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransient reports whether the error is worth retrying.
func IsTransient(err error) bool {
	var ferr *Error
	return errors.As(err, &ferr)
}
