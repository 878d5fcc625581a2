// Package coinflip implements the coin flip state machine. The outcome
// face is drawn independently of the player's choice — there is no
// adaptive house edge — and a secondary weighted draw picks a cosmetic
// animation variant that never affects the win condition.
package coinflip

import (
	"context"
	"fmt"

	"fair-gaming-core/internal/game"
	"fair-gaming-core/internal/model"
	"fair-gaming-core/internal/payout"
	"fair-gaming-core/internal/rng"
)

// Animation variants and their fixed weights. Presentation only.
const (
	AnimationQuick      = "quick"
	AnimationSlow       = "slow"
	AnimationDramatic   = "dramatic"
	AnimationEdgeBounce = "edge_bounce"
)

var animationTable = []rng.Weighted[string]{
	{Value: AnimationQuick, Weight: 50},
	{Value: AnimationSlow, Weight: 30},
	{Value: AnimationDramatic, Weight: 15},
	{Value: AnimationEdgeBounce, Weight: 5},
}

var faces = []model.CoinFace{model.FaceHeads, model.FaceTails}

// Machine drives coin flip sessions.
type Machine struct {
	provider *rng.Provider
}

// New creates a coin flip machine drawing from the given provider.
func New(provider *rng.Provider) *Machine {
	return &Machine{provider: provider}
}

// GameType implements game.Machine.
func (m *Machine) GameType() model.GameType {
	return model.GameCoinFlip
}

// Initialize implements game.Machine. Nothing is drawn until the player
// commits to a face.
func (m *Machine) Initialize(ctx context.Context, s *model.Session) error {
	s.CoinFlip = &model.CoinFlipState{}
	s.Phase = model.PhaseAwaitingChoice
	return nil
}

// Apply implements game.Machine. The single legal action commits the
// player's face and resolves the flip.
func (m *Machine) Apply(ctx context.Context, s *model.Session, a game.Action) error {
	if s.Phase != model.PhaseAwaitingChoice {
		return fmt.Errorf("%w: %q in phase %q", game.ErrIllegalAction, a.Type, s.Phase)
	}
	if a.Type != game.ActionChoose {
		return fmt.Errorf("%w: unknown action %q", game.ErrIllegalAction, a.Type)
	}
	if a.Face != model.FaceHeads && a.Face != model.FaceTails {
		return fmt.Errorf("%w: face must be heads or tails", game.ErrIllegalAction)
	}

	st := s.CoinFlip
	st.Choice = a.Face

	result, err := rng.Choice(ctx, m.provider, faces)
	if err != nil {
		return fmt.Errorf("draw coin face: %w", err)
	}
	st.Result = result
	m.trace(s, "coin_face")

	animation, err := rng.WeightedChoice(ctx, m.provider, animationTable)
	if err != nil {
		return fmt.Errorf("draw animation variant: %w", err)
	}
	st.Animation = animation
	m.trace(s, "animation_variant")

	s.Phase = model.PhaseResolved
	return nil
}

// IsTerminal implements game.Machine.
func (m *Machine) IsTerminal(s *model.Session) bool {
	return s.Phase == model.PhaseResolved
}

// Settle implements game.Machine: an exact match pays 2x the wager,
// anything else forfeits it. The animation variant is never consulted.
func (m *Machine) Settle(s *model.Session) (*payout.Outcome, error) {
	if !m.IsTerminal(s) {
		return nil, game.ErrNotTerminal
	}
	st := s.CoinFlip
	if st.Choice == st.Result {
		return payout.PlayerWins(payout.EvenMoney(s.Wager)), nil
	}
	return payout.HouseWins(), nil
}

// HandleTimeout implements game.Machine; a flip has no deadline.
func (m *Machine) HandleTimeout(ctx context.Context, s *model.Session) error {
	return game.ErrNoDeadline
}

// DisplayInfo implements game.Machine.
func (m *Machine) DisplayInfo(s *model.Session) map[string]any {
	info := map[string]any{
		"phase": s.Phase,
		"wager": s.Wager,
	}
	st := s.CoinFlip
	if st == nil {
		return info
	}
	if st.Choice != "" {
		info["choice"] = st.Choice
	}
	if s.Phase == model.PhaseResolved {
		info["result"] = st.Result
		info["animation"] = st.Animation
	}
	return info
}

func (m *Machine) trace(s *model.Session, purpose string) {
	id, source := m.provider.Trace()
	s.RecordDraw(id, source, purpose)
}
