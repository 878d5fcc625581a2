// Package model defines the session snapshot types shared across the
// fair-gaming core. Game-specific state is a tagged union: exactly one of
// the per-game state pointers is set, selected by GameType.
package model

import (
	"time"

	"fair-gaming-core/internal/deck"
	"fair-gaming-core/internal/payout"
	"fair-gaming-core/internal/rng"
)

// GameType identifies which state machine drives a session.
type GameType string

const (
	GameBlackjack GameType = "blackjack"
	GameCoinFlip  GameType = "coinflip"
	GameDuel      GameType = "duel"
)

// Phase is a per-game-type lifecycle state. The authority only interprets
// phases far enough to gate actions; semantics belong to the machines.
type Phase string

const (
	// Blackjack phases.
	PhaseAwaitingStart       Phase = "awaiting_start"
	PhaseDealing             Phase = "dealing"
	PhasePlayerTurn          Phase = "player_turn"
	PhaseBlackjackResolution Phase = "blackjack_resolution"
	PhaseDealerTurn          Phase = "dealer_turn"

	// Coin flip phases.
	PhaseAwaitingChoice Phase = "awaiting_choice"

	// Duel phases.
	PhaseAwaitingMove         Phase = "awaiting_move"
	PhaseAwaitingOpponentMove Phase = "awaiting_opponent_move"
	PhaseTimedOut             Phase = "timed_out"

	// Shared terminal phases.
	PhaseResolved Phase = "resolved"
	PhaseSettled  Phase = "settled"
)

// Terminal reports whether a phase ends the session.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseSettled, PhaseResolved, PhaseTimedOut, PhaseBlackjackResolution:
		return true
	}
	return false
}

// DrawRecord traces one game-affecting randomness draw back to the
// provider request that produced it.
type DrawRecord struct {
	RequestID string     `json:"request_id"`
	Source    rng.Source `json:"source"`
	Purpose   string     `json:"purpose"`
}

// SubHand is one player hand in the card game. After a split a session
// holds several; before a split there is exactly one.
type SubHand struct {
	Cards    []deck.Card `json:"cards"`
	Wager    int64       `json:"wager"`
	Doubled  bool        `json:"doubled"`
	Stood    bool        `json:"stood"`
	FromAces bool        `json:"from_aces,omitempty"`
}

// Done reports whether the sub-hand can take no further action.
func (h *SubHand) Done() bool {
	if h.Stood || h.Doubled || h.FromAces {
		return true
	}
	v := deck.Score(h.Cards)
	return v.IsBust || v.Total == 21
}

// BlackjackState is the card-game tagged-union member.
type BlackjackState struct {
	Shoe         []deck.Card `json:"shoe"`
	Dealer       []deck.Card `json:"dealer"`
	Hands        []SubHand   `json:"hands"`
	Active       int         `json:"active"`
	HoleRevealed bool        `json:"hole_revealed"`
	Split        bool        `json:"split"`
}

// ActiveHand returns the sub-hand at the cursor.
func (s *BlackjackState) ActiveHand() *SubHand {
	return &s.Hands[s.Active]
}

// CoinFace is one of the two coin sides.
type CoinFace string

const (
	FaceHeads CoinFace = "heads"
	FaceTails CoinFace = "tails"
)

// CoinFlipState is the coin-flip tagged-union member.
type CoinFlipState struct {
	Choice    CoinFace `json:"choice,omitempty"`
	Result    CoinFace `json:"result,omitempty"`
	Animation string   `json:"animation,omitempty"`
}

// Gesture is a duel move.
type Gesture string

const (
	GestureRock     Gesture = "rock"
	GesturePaper    Gesture = "paper"
	GestureScissors Gesture = "scissors"
)

// DuelMode selects where the opposing move comes from.
type DuelMode string

const (
	DuelSinglePlayer DuelMode = "single"
	DuelMultiplayer  DuelMode = "multi"
)

// DuelState is the gesture-duel tagged-union member. Deadlines are
// wall-clock checked at apply time; no timers run in the core.
type DuelState struct {
	Mode            DuelMode  `json:"mode"`
	PlayerMove      Gesture   `json:"player_move,omitempty"`
	OpponentMove    Gesture   `json:"opponent_move,omitempty"`
	MoveDeadline    time.Time `json:"move_deadline"`
	SessionDeadline time.Time `json:"session_deadline"`
	TimedOutActor   string    `json:"timed_out_actor,omitempty"`
}

// Session is the full snapshot of one wagered round. It is created once
// per round, never reused, and only ever advanced through the session
// state authority. Snapshots travel by value: every transition works on a
// fresh copy decoded from the prior signed state.
type Session struct {
	ID        string    `json:"id"`
	PlayerID  string    `json:"player_id"`
	GameType  GameType  `json:"game_type"`
	Wager     int64     `json:"wager"`
	Phase     Phase     `json:"phase"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Draws []DrawRecord `json:"draws,omitempty"`

	Blackjack *BlackjackState `json:"blackjack,omitempty"`
	CoinFlip  *CoinFlipState  `json:"coinflip,omitempty"`
	Duel      *DuelState      `json:"duel,omitempty"`

	Outcome *payout.Outcome `json:"outcome,omitempty"`
}

// RecordDraw appends a randomness trace entry for one logical draw.
func (s *Session) RecordDraw(requestID string, source rng.Source, purpose string) {
	s.Draws = append(s.Draws, DrawRecord{RequestID: requestID, Source: source, Purpose: purpose})
}

// Terminal reports whether the session has reached a settlement phase.
func (s *Session) Terminal() bool {
	return s.Phase.Terminal()
}

// SignedState is a serialized session snapshot plus the authority's
// signature over it. The snapshot bytes are canonical: the signature is
// computed over exactly these bytes, and verification re-checks them
// before any transition touches the session.
type SignedState struct {
	SessionID string    `json:"session_id"`
	Sequence  uint64    `json:"sequence"`
	Snapshot  []byte    `json:"snapshot"`
	Signature string    `json:"signature"`
	SignedAt  time.Time `json:"signed_at"`
}
