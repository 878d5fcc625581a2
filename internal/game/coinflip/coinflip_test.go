package coinflip

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"fair-gaming-core/internal/game"
	"fair-gaming-core/internal/model"
	"fair-gaming-core/internal/payout"
	"fair-gaming-core/internal/rng"
)

func newSession(t *testing.T, m *Machine) *model.Session {
	t.Helper()
	s := &model.Session{GameType: model.GameCoinFlip, Wager: 100}
	require.NoError(t, m.Initialize(context.Background(), s))
	return s
}

func TestInitialize(t *testing.T) {
	m := New(rng.New(nil))
	s := newSession(t, m)

	assert.Equal(t, model.PhaseAwaitingChoice, s.Phase)
	require.NotNil(t, s.CoinFlip)
	assert.Empty(t, s.CoinFlip.Result, "nothing drawn before the choice commits")
	assert.False(t, m.IsTerminal(s))
}

func TestFlipResolvesAndPays(t *testing.T) {
	m := New(rng.New(nil))
	s := newSession(t, m)

	err := m.Apply(context.Background(), s, game.Action{Type: game.ActionChoose, Face: model.FaceHeads})
	require.NoError(t, err)

	st := s.CoinFlip
	assert.Equal(t, model.PhaseResolved, s.Phase)
	assert.Equal(t, model.FaceHeads, st.Choice)
	assert.Contains(t, []model.CoinFace{model.FaceHeads, model.FaceTails}, st.Result)
	assert.Contains(t,
		[]string{AnimationQuick, AnimationSlow, AnimationDramatic, AnimationEdgeBounce},
		st.Animation)
	require.Len(t, s.Draws, 2, "coin face and animation are separate traced draws")
	for _, d := range s.Draws {
		assert.Equal(t, rng.SourceFallback, d.Source, "no beacon configured, draws must carry the fallback tag")
		assert.NotEmpty(t, d.RequestID)
	}

	out, err := m.Settle(s)
	require.NoError(t, err)
	if st.Choice == st.Result {
		assert.Equal(t, payout.WinnerPlayer, out.Winner)
		assert.Equal(t, int64(200), out.PayoutAmount)
	} else {
		assert.Equal(t, payout.WinnerHouse, out.Winner)
		assert.Equal(t, int64(0), out.PayoutAmount)
	}
}

func TestApplyValidation(t *testing.T) {
	m := New(rng.New(nil))
	ctx := context.Background()

	t.Run("rejects invalid face", func(t *testing.T) {
		s := newSession(t, m)
		err := m.Apply(ctx, s, game.Action{Type: game.ActionChoose, Face: model.CoinFace("edge")})
		assert.ErrorIs(t, err, game.ErrIllegalAction)
	})

	t.Run("rejects wrong action type", func(t *testing.T) {
		s := newSession(t, m)
		err := m.Apply(ctx, s, game.Action{Type: game.ActionHit})
		assert.ErrorIs(t, err, game.ErrIllegalAction)
	})

	t.Run("rejects a second choice", func(t *testing.T) {
		s := newSession(t, m)
		require.NoError(t, m.Apply(ctx, s, game.Action{Type: game.ActionChoose, Face: model.FaceTails}))
		err := m.Apply(ctx, s, game.Action{Type: game.ActionChoose, Face: model.FaceHeads})
		assert.ErrorIs(t, err, game.ErrIllegalAction)
	})
}

func TestSettleRejectsNonTerminal(t *testing.T) {
	m := New(rng.New(nil))
	s := newSession(t, m)

	_, err := m.Settle(s)
	assert.ErrorIs(t, err, game.ErrNotTerminal)
}

func TestHandleTimeoutHasNoDeadline(t *testing.T) {
	m := New(rng.New(nil))
	s := newSession(t, m)

	assert.ErrorIs(t, m.HandleTimeout(context.Background(), s), game.ErrNoDeadline)
}

func TestDisplayInfoRevealsResultOnlyWhenResolved(t *testing.T) {
	m := New(rng.New(nil))
	s := newSession(t, m)

	info := m.DisplayInfo(s)
	assert.NotContains(t, info, "result")
	assert.NotContains(t, info, "animation")

	require.NoError(t, m.Apply(context.Background(), s, game.Action{Type: game.ActionChoose, Face: model.FaceHeads}))

	info = m.DisplayInfo(s)
	assert.Contains(t, info, "result")
	assert.Contains(t, info, "animation")
}

// The outcome face depends only on the draw, never on which face the
// player picked, and every flip pays exactly double or nothing.
func TestFlipPayoutProperty(t *testing.T) {
	m := New(rng.New(nil))
	ctx := context.Background()

	rapid.Check(t, func(t *rapid.T) {
		wager := int64(rapid.IntRange(1, 100_000).Draw(t, "wager"))
		face := model.FaceHeads
		if rapid.Bool().Draw(t, "tails") {
			face = model.FaceTails
		}

		s := &model.Session{GameType: model.GameCoinFlip, Wager: wager}
		if err := m.Initialize(ctx, s); err != nil {
			t.Fatalf("initialize: %v", err)
		}
		if err := m.Apply(ctx, s, game.Action{Type: game.ActionChoose, Face: face}); err != nil {
			t.Fatalf("apply: %v", err)
		}

		out, err := m.Settle(s)
		if err != nil {
			t.Fatalf("settle: %v", err)
		}
		won := s.CoinFlip.Choice == s.CoinFlip.Result
		if won && out.PayoutAmount != 2*wager {
			t.Fatalf("match paid %d, want %d", out.PayoutAmount, 2*wager)
		}
		if !won && out.PayoutAmount != 0 {
			t.Fatalf("miss paid %d, want 0", out.PayoutAmount)
		}
	})
}
