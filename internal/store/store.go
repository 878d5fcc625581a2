// Package store defines the session store boundary. The core never
// assumes process-local storage: the authority persists and loads signed
// states through this interface so sessions can live behind any backend
// and the core can scale horizontally.
package store

import (
	"context"
	"errors"

	"fair-gaming-core/internal/model"
)

// ErrNotFound is returned when no signed state exists for a session.
var ErrNotFound = errors.New("session not found")

// Store persists the latest signed state per session. Save replaces any
// earlier state for the same session; the authority relies on that to
// reject stale replays.
type Store interface {
	// Load returns the latest signed state for a session, or ErrNotFound.
	Load(ctx context.Context, sessionID string) (*model.SignedState, error)

	// Save stores the signed state, replacing any prior one.
	Save(ctx context.Context, state *model.SignedState) error

	// Delete removes a session's state. Deleting a missing session is
	// not an error.
	Delete(ctx context.Context, sessionID string) error
}
