// Package authority implements the session state authority: the only
// path by which game state advances. It serializes session snapshots,
// signs them with HMAC-SHA256, verifies client-submitted state before
// every transition, and rejects anything inconsistent so a client cannot
// replay, mutate or skip state to manufacture a win.
package authority

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fair-gaming-core/internal/game"
	"fair-gaming-core/internal/ledger"
	"fair-gaming-core/internal/model"
	"fair-gaming-core/internal/payout"
	"fair-gaming-core/internal/pkg/lock"
	"fair-gaming-core/internal/store"
)

// ErrIntegrity means a signed state failed signature or structural
// verification. The request dies here; the session's prior state remains
// the latest valid one, and the event is logged for upstream security
// review.
var ErrIntegrity = errors.New("signed state failed integrity verification")

// DefaultMaxWager bounds a single round when no limit is configured.
const DefaultMaxWager = 1_000_000

// Authority gates every session transition.
type Authority struct {
	key      []byte
	registry *game.Registry
	locks    *lock.SessionLock
	store    store.Store
	recorder ledger.Recorder
	logger   zerolog.Logger

	minWager int64
	maxWager int64
}

// Option configures an Authority.
type Option func(*Authority)

// WithStore attaches a session store. When present, every transition is
// checked against the stored latest state, which defeats replays of old
// but validly signed snapshots.
func WithStore(s store.Store) Option {
	return func(a *Authority) { a.store = s }
}

// WithRecorder attaches the settlement ledger collaborator.
func WithRecorder(r ledger.Recorder) Option {
	return func(a *Authority) { a.recorder = r }
}

// WithLogger sets the security-event logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Authority) { a.logger = l }
}

// WithWagerLimits overrides the accepted wager range.
func WithWagerLimits(min, max int64) Option {
	return func(a *Authority) {
		a.minWager = min
		a.maxWager = max
	}
}

// New creates an Authority signing with key. The key must be non-empty;
// everything downstream depends on it.
func New(key []byte, registry *game.Registry, opts ...Option) (*Authority, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("signing key must not be empty")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry must not be nil")
	}

	a := &Authority{
		key:      key,
		registry: registry,
		locks:    lock.NewSessionLock(),
		logger:   zerolog.Nop(),
		minWager: 1,
		maxWager: DefaultMaxWager,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// CreateOption seeds game-specific session fields before initialization.
type CreateOption func(*model.Session)

// WithDuelMode selects single- or multiplayer for a duel session.
func WithDuelMode(mode model.DuelMode) CreateOption {
	return func(s *model.Session) {
		s.Duel = &model.DuelState{Mode: mode}
	}
}

// Result is what one authority call hands back: the new signed state,
// a renderer-safe projection, and the outcome on terminal transitions.
type Result struct {
	State       *model.SignedState
	DisplayInfo map[string]any
	Outcome     *payout.Outcome
}

// Create opens a new session: validates the wager and game type, asks the
// machine to initialize (dealing included), settles immediately if the
// deal was terminal (a natural), and returns the first signed state.
func (a *Authority) Create(ctx context.Context, playerID string, gameType model.GameType, wager int64, opts ...CreateOption) (*Result, error) {
	if wager < a.minWager || wager > a.maxWager {
		return nil, fmt.Errorf("%w: %d outside [%d, %d]", game.ErrInvalidWager, wager, a.minWager, a.maxWager)
	}
	machine, ok := a.registry.Get(gameType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", game.ErrUnknownGameType, gameType)
	}

	now := time.Now().UTC()
	session := &model.Session{
		ID:        uuid.New().String(),
		PlayerID:  playerID,
		GameType:  gameType,
		Wager:     wager,
		Phase:     model.PhaseAwaitingStart,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(session)
	}

	if err := machine.Initialize(ctx, session); err != nil {
		return nil, fmt.Errorf("initialize %s session: %w", gameType, err)
	}

	outcome, err := a.settleIfTerminal(session, machine)
	if err != nil {
		return nil, err
	}

	signed, err := a.sign(session, 1)
	if err != nil {
		return nil, err
	}
	if err := a.persist(ctx, signed); err != nil {
		return nil, err
	}
	if err := a.recordOutcome(ctx, session, outcome); err != nil {
		return nil, err
	}

	return &Result{
		State:       signed,
		DisplayInfo: machine.DisplayInfo(session),
		Outcome:     outcome,
	}, nil
}

// Apply advances a session by one action. The prior signed state is
// verified and consumed; on any error the caller's latest valid state is
// still the prior one, because nothing partially applied is ever signed.
func (a *Authority) Apply(ctx context.Context, prior *model.SignedState, action game.Action) (*Result, error) {
	return a.transition(ctx, prior, func(machine game.Machine, s *model.Session) error {
		return machine.Apply(ctx, s, action)
	})
}

// HandleTimeout is the sweep entry point for expiring a session whose
// deadline has passed, without a player action.
func (a *Authority) HandleTimeout(ctx context.Context, prior *model.SignedState) (*Result, error) {
	return a.transition(ctx, prior, func(machine game.Machine, s *model.Session) error {
		return machine.HandleTimeout(ctx, s)
	})
}

func (a *Authority) transition(ctx context.Context, prior *model.SignedState, step func(game.Machine, *model.Session) error) (*Result, error) {
	if prior == nil {
		return nil, fmt.Errorf("%w: no prior state supplied", ErrIntegrity)
	}

	// Single writer per session: verify-then-apply runs atomically here,
	// while distinct sessions proceed fully in parallel.
	var res *Result
	err := a.locks.WithLock(prior.SessionID, func() error {
		session, err := a.verify(ctx, prior)
		if err != nil {
			return err
		}

		machine, ok := a.registry.Get(session.GameType)
		if !ok {
			return fmt.Errorf("%w: %q", game.ErrUnknownGameType, session.GameType)
		}
		if session.Terminal() {
			return fmt.Errorf("%w: session already settled", game.ErrIllegalAction)
		}

		if err := step(machine, session); err != nil {
			return err
		}
		session.UpdatedAt = time.Now().UTC()

		outcome, err := a.settleIfTerminal(session, machine)
		if err != nil {
			return err
		}

		signed, err := a.sign(session, prior.Sequence+1)
		if err != nil {
			return err
		}
		if err := a.persist(ctx, signed); err != nil {
			return err
		}
		if err := a.recordOutcome(ctx, session, outcome); err != nil {
			return err
		}

		res = &Result{
			State:       signed,
			DisplayInfo: machine.DisplayInfo(session),
			Outcome:     outcome,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// verify checks the signature and structure of a signed state and, when a
// store is attached, that it is the session's actual latest state rather
// than a replayed older one.
func (a *Authority) verify(ctx context.Context, state *model.SignedState) (*model.Session, error) {
	expected := a.mac(state.SessionID, state.Sequence, state.Snapshot)
	supplied, err := hex.DecodeString(state.Signature)
	if err != nil || !hmac.Equal(expected, supplied) {
		a.logger.Warn().
			Str("session_id", state.SessionID).
			Uint64("sequence", state.Sequence).
			Msg("rejected signed state: signature mismatch")
		return nil, fmt.Errorf("%w: signature mismatch", ErrIntegrity)
	}

	var session model.Session
	if err := json.Unmarshal(state.Snapshot, &session); err != nil {
		return nil, fmt.Errorf("%w: snapshot malformed: %v", ErrIntegrity, err)
	}
	if session.ID != state.SessionID {
		return nil, fmt.Errorf("%w: snapshot session mismatch", ErrIntegrity)
	}

	if a.store != nil {
		latest, err := a.store.Load(ctx, state.SessionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				a.logger.Warn().
					Str("session_id", state.SessionID).
					Msg("rejected signed state: session unknown to store")
				return nil, fmt.Errorf("%w: session unknown or expired", ErrIntegrity)
			}
			return nil, fmt.Errorf("load latest state: %w", err)
		}
		if latest.Sequence != state.Sequence || latest.Signature != state.Signature {
			a.logger.Warn().
				Str("session_id", state.SessionID).
				Uint64("supplied_sequence", state.Sequence).
				Uint64("latest_sequence", latest.Sequence).
				Msg("rejected signed state: stale or replayed")
			return nil, fmt.Errorf("%w: state is not the session's latest", ErrIntegrity)
		}
	}

	return &session, nil
}

// sign serializes the session and signs the canonical snapshot bytes.
func (a *Authority) sign(s *model.Session, sequence uint64) (*model.SignedState, error) {
	snapshot, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("serialize session: %w", err)
	}

	return &model.SignedState{
		SessionID: s.ID,
		Sequence:  sequence,
		Snapshot:  snapshot,
		Signature: hex.EncodeToString(a.mac(s.ID, sequence, snapshot)),
		SignedAt:  time.Now().UTC(),
	}, nil
}

// mac binds session ID, sequence and snapshot under one signature so no
// component can be swapped independently.
func (a *Authority) mac(sessionID string, sequence uint64, snapshot []byte) []byte {
	h := hmac.New(sha256.New, a.key)
	h.Write([]byte(sessionID))
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], sequence)
	h.Write(seq[:])
	h.Write(snapshot)
	return h.Sum(nil)
}

func (a *Authority) settleIfTerminal(s *model.Session, machine game.Machine) (*payout.Outcome, error) {
	if !machine.IsTerminal(s) {
		return nil, nil
	}
	outcome, err := machine.Settle(s)
	if err != nil {
		return nil, fmt.Errorf("settle session %s: %w", s.ID, err)
	}
	s.Outcome = outcome
	return outcome, nil
}

func (a *Authority) persist(ctx context.Context, state *model.SignedState) error {
	if a.store == nil {
		return nil
	}
	if err := a.store.Save(ctx, state); err != nil {
		return fmt.Errorf("save signed state: %w", err)
	}
	return nil
}

// recordOutcome notifies the settlement ledger. It runs only after the
// terminal state is signed and persisted, so the ledger never sees a
// round that could still change.
func (a *Authority) recordOutcome(ctx context.Context, s *model.Session, outcome *payout.Outcome) error {
	if outcome == nil || a.recorder == nil {
		return nil
	}
	entry := &ledger.Entry{
		SessionID: s.ID,
		PlayerID:  s.PlayerID,
		GameType:  s.GameType,
		Wager:     s.Wager,
		Winner:    outcome.Winner,
		Payout:    outcome.PayoutAmount,
		SettledAt: s.UpdatedAt,
	}
	if err := a.recorder.Record(ctx, entry); err != nil {
		return fmt.Errorf("record settlement: %w", err)
	}
	return nil
}
