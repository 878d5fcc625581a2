// Package game defines the state-machine interface every wagered mini-game
// implements, the action vocabulary, and the registry the session state
// authority dispatches through.
package game

import (
	"context"

	"fair-gaming-core/internal/model"
	"fair-gaming-core/internal/payout"
)

// ActionType names a player-initiated transition.
type ActionType string

const (
	// Card game actions.
	ActionHit    ActionType = "hit"
	ActionStand  ActionType = "stand"
	ActionDouble ActionType = "double"
	ActionSplit  ActionType = "split"

	// Coin flip action.
	ActionChoose ActionType = "choose"

	// Duel action.
	ActionMove ActionType = "move"
)

// Actor identifies who submitted an action. Most actions come from the
// player; a multiplayer duel also accepts the paired opponent's move.
type Actor string

const (
	ActorPlayer   Actor = "player"
	ActorOpponent Actor = "opponent"
)

// Action is a per-call payload. Fields beyond Type are game-specific and
// ignored by machines that do not use them.
type Action struct {
	Type    ActionType     `json:"action"`
	Face    model.CoinFace `json:"face,omitempty"`
	Gesture model.Gesture  `json:"gesture,omitempty"`
	Actor   Actor          `json:"actor,omitempty"`
}

// Machine is a deterministic, server-authoritative game state machine.
// Machines mutate only the session they are handed; the authority owns
// copying, signing and persistence. Initialize and Apply may draw entropy
// and must record every game-affecting draw on the session.
type Machine interface {
	// GameType reports which sessions this machine drives.
	GameType() model.GameType

	// Initialize moves a fresh session out of its starting phase,
	// performing any dealing the game requires.
	Initialize(ctx context.Context, s *model.Session) error

	// Apply advances the session by one action. It returns
	// ErrIllegalAction (possibly wrapped) when the action is not valid in
	// the current phase, leaving the session untouched.
	Apply(ctx context.Context, s *model.Session, a Action) error

	// IsTerminal reports whether the session has finished.
	IsTerminal(s *model.Session) bool

	// Settle converts a terminal session into an outcome. It is an error
	// to settle a non-terminal session.
	Settle(s *model.Session) (*payout.Outcome, error)

	// HandleTimeout resolves a session whose deadline has passed. Games
	// without deadlines return ErrNoDeadline.
	HandleTimeout(ctx context.Context, s *model.Session) error

	// DisplayInfo projects the session for a client renderer, hiding
	// whatever the current phase requires (hole cards, unrevealed
	// opponent moves).
	DisplayInfo(s *model.Session) map[string]any
}
