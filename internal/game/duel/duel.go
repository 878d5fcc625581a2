// Package duel implements the rock-paper-scissors state machine. In
// single-player mode the opposing move is drawn from the randomness
// provider; in multiplayer mode it arrives as an action from the paired
// session. Deadlines are wall-clock checks made at the start of every
// transition; the core runs no timers.
package duel

import (
	"context"
	"fmt"
	"time"

	"fair-gaming-core/internal/game"
	"fair-gaming-core/internal/model"
	"fair-gaming-core/internal/payout"
	"fair-gaming-core/internal/rng"
)

// Default deadlines.
const (
	DefaultMoveDeadline    = 30 * time.Second
	DefaultSessionDeadline = 3 * time.Minute
)

var gestures = []model.Gesture{model.GestureRock, model.GesturePaper, model.GestureScissors}

// beats maps each gesture to the gesture it defeats.
var beats = map[model.Gesture]model.Gesture{
	model.GestureRock:     model.GestureScissors,
	model.GestureScissors: model.GesturePaper,
	model.GesturePaper:    model.GestureRock,
}

// Config tunes the duel deadlines.
type Config struct {
	MoveDeadline    time.Duration
	SessionDeadline time.Duration
}

// Machine drives gesture duel sessions.
type Machine struct {
	provider        *rng.Provider
	moveDeadline    time.Duration
	sessionDeadline time.Duration
	now             func() time.Time
}

// New creates a duel machine. Zero config fields take the defaults.
func New(provider *rng.Provider, cfg Config) *Machine {
	m := &Machine{
		provider:        provider,
		moveDeadline:    cfg.MoveDeadline,
		sessionDeadline: cfg.SessionDeadline,
		now:             time.Now,
	}
	if m.moveDeadline <= 0 {
		m.moveDeadline = DefaultMoveDeadline
	}
	if m.sessionDeadline <= 0 {
		m.sessionDeadline = DefaultSessionDeadline
	}
	return m
}

// WithClock substitutes the wall clock, for deterministic tests.
func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

// GameType implements game.Machine.
func (m *Machine) GameType() model.GameType {
	return model.GameDuel
}

// Initialize implements game.Machine. A pre-seeded Duel state (carrying
// the multiplayer flag) is respected; otherwise the session defaults to
// single-player.
func (m *Machine) Initialize(ctx context.Context, s *model.Session) error {
	st := s.Duel
	if st == nil {
		st = &model.DuelState{Mode: model.DuelSinglePlayer}
		s.Duel = st
	}
	if st.Mode == "" {
		st.Mode = model.DuelSinglePlayer
	}

	now := m.now()
	st.MoveDeadline = now.Add(m.moveDeadline)
	st.SessionDeadline = now.Add(m.sessionDeadline)
	s.Phase = model.PhaseAwaitingMove
	return nil
}

// Apply implements game.Machine. An expired deadline resolves the session
// as a timeout instead of applying the action: the side that failed to
// move in time auto-loses.
func (m *Machine) Apply(ctx context.Context, s *model.Session, a game.Action) error {
	if s.Phase != model.PhaseAwaitingMove && s.Phase != model.PhaseAwaitingOpponentMove {
		return fmt.Errorf("%w: %q in phase %q", game.ErrIllegalAction, a.Type, s.Phase)
	}

	if m.expire(s) {
		return nil
	}

	if a.Type != game.ActionMove {
		return fmt.Errorf("%w: unknown action %q", game.ErrIllegalAction, a.Type)
	}
	if _, ok := beats[a.Gesture]; !ok {
		return fmt.Errorf("%w: gesture must be rock, paper or scissors", game.ErrIllegalAction)
	}

	st := s.Duel
	switch s.Phase {
	case model.PhaseAwaitingMove:
		if a.Actor == game.ActorOpponent {
			return fmt.Errorf("%w: waiting for the player's move", game.ErrIllegalAction)
		}
		st.PlayerMove = a.Gesture

		if st.Mode == model.DuelSinglePlayer {
			house, err := rng.Choice(ctx, m.provider, gestures)
			if err != nil {
				return fmt.Errorf("draw house move: %w", err)
			}
			st.OpponentMove = house
			m.trace(s, "house_move")
			s.Phase = model.PhaseResolved
			return nil
		}

		// Multiplayer: the opponent gets a fresh move window.
		st.MoveDeadline = m.now().Add(m.moveDeadline)
		s.Phase = model.PhaseAwaitingOpponentMove

	case model.PhaseAwaitingOpponentMove:
		if a.Actor != game.ActorOpponent {
			return fmt.Errorf("%w: waiting for the opponent's move", game.ErrIllegalAction)
		}
		st.OpponentMove = a.Gesture
		s.Phase = model.PhaseResolved
	}
	return nil
}

// expire resolves the session as TimedOut when a deadline has passed and
// reports whether it did so. Whoever owed the pending move is the actor
// that times out and auto-loses.
func (m *Machine) expire(s *model.Session) bool {
	st := s.Duel
	now := m.now()
	if now.Before(st.MoveDeadline) && now.Before(st.SessionDeadline) {
		return false
	}

	if s.Phase == model.PhaseAwaitingOpponentMove {
		st.TimedOutActor = string(game.ActorOpponent)
	} else {
		st.TimedOutActor = string(game.ActorPlayer)
	}
	s.Phase = model.PhaseTimedOut
	return true
}

// IsTerminal implements game.Machine.
func (m *Machine) IsTerminal(s *model.Session) bool {
	return s.Phase == model.PhaseResolved || s.Phase == model.PhaseTimedOut
}

// Settle implements game.Machine. A win pays even money, equal moves
// draw and return the wager, and a timeout loses for whoever missed the
// deadline.
func (m *Machine) Settle(s *model.Session) (*payout.Outcome, error) {
	if !m.IsTerminal(s) {
		return nil, game.ErrNotTerminal
	}
	st := s.Duel

	if s.Phase == model.PhaseTimedOut {
		if st.TimedOutActor == string(game.ActorOpponent) {
			return payout.PlayerWins(payout.EvenMoney(s.Wager)), nil
		}
		return payout.HouseWins(), nil
	}

	switch {
	case st.PlayerMove == st.OpponentMove:
		return payout.Drawn(s.Wager), nil
	case beats[st.PlayerMove] == st.OpponentMove:
		return payout.PlayerWins(payout.EvenMoney(s.Wager)), nil
	default:
		return payout.HouseWins(), nil
	}
}

// HandleTimeout implements game.Machine: the external sweeper's entry
// point for expiring abandoned sessions without a player action.
func (m *Machine) HandleTimeout(ctx context.Context, s *model.Session) error {
	if m.IsTerminal(s) {
		return fmt.Errorf("%w: session already terminal", game.ErrIllegalAction)
	}
	if !m.expire(s) {
		return game.ErrDeadlineNotReached
	}
	return nil
}

// DisplayInfo implements game.Machine. The opponent's move is hidden
// until the round resolves.
func (m *Machine) DisplayInfo(s *model.Session) map[string]any {
	info := map[string]any{
		"phase": s.Phase,
		"wager": s.Wager,
	}
	st := s.Duel
	if st == nil {
		return info
	}
	info["mode"] = st.Mode
	info["move_deadline"] = st.MoveDeadline
	info["session_deadline"] = st.SessionDeadline
	if st.PlayerMove != "" {
		info["player_move"] = st.PlayerMove
	}
	if m.IsTerminal(s) {
		if st.OpponentMove != "" {
			info["opponent_move"] = st.OpponentMove
		}
		if st.TimedOutActor != "" {
			info["timed_out"] = st.TimedOutActor
		}
	}
	return info
}

func (m *Machine) trace(s *model.Session, purpose string) {
	id, source := m.provider.Trace()
	s.RecordDraw(id, source, purpose)
}
