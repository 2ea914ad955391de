package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing required field, malformed CSV row).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrFormat is returned by the import pipeline when an upload contains no
// recognizable archive, CSV, or JSON payload. The whole import is rejected
// before any write. Handlers should map this to HTTP 422.
var ErrFormat = errors.New("unrecognized format")

// ErrCapacity is returned when the number of importable vehicles exceeds the
// caller's remaining plan slots. The import is blocked with zero writes.
// Handlers should map this to HTTP 409 Conflict.
var ErrCapacity = errors.New("vehicle limit exceeded")

// ErrCancelled wraps context cancellation so pipelines can return a terminal
// state that is distinct from both success and failure. It is not an error
// condition to surface as a 5xx — the caller asked for it.
var ErrCancelled = fmt.Errorf("operation cancelled: %w", context.Canceled)

// Cancelled reports whether err represents cooperative cancellation,
// either our sentinel or a bare context error bubbled up from pgx/http.
func Cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
