package game

import "errors"

// Machine-level errors. These are recoverable: the caller gets the error
// and the prior signed state remains the latest valid state.
var (
	// ErrIllegalAction means the action is not valid in the session's
	// current phase (e.g. double after a hit).
	ErrIllegalAction = errors.New("action not legal in current phase")

	// ErrUnknownGameType means no machine is registered for the type.
	ErrUnknownGameType = errors.New("unsupported game type")

	// ErrInvalidWager means the wager failed validation before any state
	// was created.
	ErrInvalidWager = errors.New("invalid wager amount")

	// ErrNoDeadline is returned by HandleTimeout on games that have no
	// deadline semantics.
	ErrNoDeadline = errors.New("game has no deadline to enforce")

	// ErrDeadlineNotReached is returned by HandleTimeout when the session
	// is still inside its deadlines.
	ErrDeadlineNotReached = errors.New("no deadline has passed")

	// ErrNotTerminal means Settle was called before the session finished.
	ErrNotTerminal = errors.New("session is not terminal")
)
