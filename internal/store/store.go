// Package store provides ProfileStore implementations for the attachment
// engine: an in-memory map for tests and local runs, an embedded SQLite
// database, and Postgres for shared deployments.
package store

import (
	"context"
	"errors"
)

// ErrUnavailable marks a transient store failure (timeout, lost connection).
// Callers surface it as a retryable error; it is never collapsed into
// "profile not found".
var ErrUnavailable = errors.New("profile store unavailable")

// unavailable reports whether a driver error should be classified transient.
func unavailable(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
