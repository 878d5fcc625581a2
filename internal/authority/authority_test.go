package authority

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"fair-gaming-core/internal/game"
	"fair-gaming-core/internal/game/blackjack"
	"fair-gaming-core/internal/game/coinflip"
	"fair-gaming-core/internal/game/duel"
	"fair-gaming-core/internal/ledger"
	"fair-gaming-core/internal/model"
	"fair-gaming-core/internal/payout"
	"fair-gaming-core/internal/rng"
	"fair-gaming-core/internal/store"
)

var testKey = []byte("test-signing-key-0123456789abcdef")

func newTestRegistry(t *testing.T) *game.Registry {
	t.Helper()

	provider := rng.New(nil)
	registry := game.NewRegistry()
	require.NoError(t, registry.Register(blackjack.New(provider)))
	require.NoError(t, registry.Register(coinflip.New(provider)))
	require.NoError(t, registry.Register(duel.New(provider, duel.Config{})))
	return registry
}

func newTestAuthority(t *testing.T, opts ...Option) *Authority {
	t.Helper()

	a, err := New(testKey, newTestRegistry(t), opts...)
	require.NoError(t, err)
	return a
}

func TestNewRejectsEmptyKey(t *testing.T) {
	_, err := New(nil, newTestRegistry(t))
	assert.Error(t, err)
}

func TestCreateValidatesWager(t *testing.T) {
	a := newTestAuthority(t)
	ctx := context.Background()

	for _, wager := range []int64{0, -5, DefaultMaxWager + 1} {
		_, err := a.Create(ctx, "player-1", model.GameCoinFlip, wager)
		assert.ErrorIs(t, err, game.ErrInvalidWager, "wager %d", wager)
	}
}

func TestCreateRejectsUnknownGameType(t *testing.T) {
	a := newTestAuthority(t)

	_, err := a.Create(context.Background(), "player-1", model.GameType("roulette"), 100)
	assert.ErrorIs(t, err, game.ErrUnknownGameType)
}

func TestCoinFlipRoundTrip(t *testing.T) {
	recorder := ledger.NewMemory()
	a := newTestAuthority(t, WithRecorder(recorder))
	ctx := context.Background()

	created, err := a.Create(ctx, "player-1", model.GameCoinFlip, 100)
	require.NoError(t, err)
	require.NotNil(t, created.State)
	assert.Equal(t, uint64(1), created.State.Sequence)
	assert.Nil(t, created.Outcome)

	final, err := a.Apply(ctx, created.State, game.Action{
		Type: game.ActionChoose,
		Face: model.FaceHeads,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), final.State.Sequence)
	require.NotNil(t, final.Outcome)

	switch final.Outcome.Winner {
	case payout.WinnerPlayer:
		assert.Equal(t, int64(200), final.Outcome.PayoutAmount)
	case payout.WinnerHouse:
		assert.Equal(t, int64(0), final.Outcome.PayoutAmount)
	default:
		t.Fatalf("unexpected winner %q", final.Outcome.Winner)
	}

	entries := recorder.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, final.Outcome.PayoutAmount, entries[0].Payout)
	assert.Equal(t, int64(100), entries[0].Wager)
}

func TestApplyRejectsActionOnSettledSession(t *testing.T) {
	a := newTestAuthority(t)
	ctx := context.Background()

	created, err := a.Create(ctx, "player-1", model.GameCoinFlip, 50)
	require.NoError(t, err)

	final, err := a.Apply(ctx, created.State, game.Action{
		Type: game.ActionChoose,
		Face: model.FaceTails,
	})
	require.NoError(t, err)

	_, err = a.Apply(ctx, final.State, game.Action{
		Type: game.ActionChoose,
		Face: model.FaceTails,
	})
	assert.ErrorIs(t, err, game.ErrIllegalAction)
}

func TestApplyRejectsForeignSignature(t *testing.T) {
	a := newTestAuthority(t)
	ctx := context.Background()

	created, err := a.Create(ctx, "player-1", model.GameCoinFlip, 100)
	require.NoError(t, err)

	other, err := New([]byte("a-different-signing-key"), newTestRegistry(t))
	require.NoError(t, err)

	_, err = other.Apply(ctx, created.State, game.Action{
		Type: game.ActionChoose,
		Face: model.FaceHeads,
	})
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestApplyRejectsNilState(t *testing.T) {
	a := newTestAuthority(t)

	_, err := a.Apply(context.Background(), nil, game.Action{Type: game.ActionChoose, Face: model.FaceHeads})
	assert.ErrorIs(t, err, ErrIntegrity)
}

// Any single-bit flip anywhere in the snapshot, or any sequence change,
// must be rejected. A client editing its own state to upgrade a loss
// into a win is exactly this attack.
func TestTamperedStateRejectedProperty(t *testing.T) {
	a := newTestAuthority(t)
	ctx := context.Background()

	created, err := a.Create(ctx, "player-1", model.GameCoinFlip, 100)
	require.NoError(t, err)
	genuine := created.State

	rapid.Check(t, func(t *rapid.T) {
		tampered := &model.SignedState{
			SessionID: genuine.SessionID,
			Sequence:  genuine.Sequence,
			Snapshot:  append([]byte(nil), genuine.Snapshot...),
			Signature: genuine.Signature,
			SignedAt:  genuine.SignedAt,
		}

		switch rapid.IntRange(0, 1).Draw(t, "mutation") {
		case 0:
			idx := rapid.IntRange(0, len(tampered.Snapshot)-1).Draw(t, "byte")
			bit := rapid.IntRange(0, 7).Draw(t, "bit")
			tampered.Snapshot[idx] ^= 1 << bit
		case 1:
			delta := rapid.Uint64Range(1, 1<<32).Draw(t, "delta")
			tampered.Sequence = genuine.Sequence + delta
		}

		_, err := a.Apply(ctx, tampered, game.Action{
			Type: game.ActionChoose,
			Face: model.FaceHeads,
		})
		if err == nil {
			t.Fatalf("tampered state accepted")
		}
	})
}

func TestStoreDetectsReplayedState(t *testing.T) {
	mem := store.NewMemory()
	a := newTestAuthority(t, WithStore(mem))
	ctx := context.Background()

	created, err := a.Create(ctx, "player-1", model.GameBlackjack, 100)
	require.NoError(t, err)
	if created.Outcome != nil {
		t.Skip("dealt a natural, no second transition to replay against")
	}

	_, err = a.Apply(ctx, created.State, game.Action{Type: game.ActionStand})
	require.NoError(t, err)

	// Resubmitting the pre-stand state is a replay once the store has
	// moved past it.
	_, err = a.Apply(ctx, created.State, game.Action{Type: game.ActionStand})
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestStoreRejectsUnknownSession(t *testing.T) {
	mem := store.NewMemory()
	a := newTestAuthority(t, WithStore(mem))
	ctx := context.Background()

	created, err := a.Create(ctx, "player-1", model.GameCoinFlip, 100)
	require.NoError(t, err)

	require.NoError(t, mem.Delete(ctx, created.State.SessionID))

	_, err = a.Apply(ctx, created.State, game.Action{
		Type: game.ActionChoose,
		Face: model.FaceHeads,
	})
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestDuelModeOption(t *testing.T) {
	a := newTestAuthority(t)
	ctx := context.Background()

	created, err := a.Create(ctx, "player-1", model.GameDuel, 100, WithDuelMode(model.DuelMultiplayer))
	require.NoError(t, err)

	mid, err := a.Apply(ctx, created.State, game.Action{
		Type:    game.ActionMove,
		Actor:   game.ActorPlayer,
		Gesture: model.GestureRock,
	})
	require.NoError(t, err)
	assert.Nil(t, mid.Outcome, "multiplayer duel must wait for the opponent")

	final, err := a.Apply(ctx, mid.State, game.Action{
		Type:    game.ActionMove,
		Actor:   game.ActorOpponent,
		Gesture: model.GestureScissors,
	})
	require.NoError(t, err)
	require.NotNil(t, final.Outcome)
	assert.Equal(t, payout.WinnerPlayer, final.Outcome.Winner)
	assert.Equal(t, int64(200), final.Outcome.PayoutAmount)
}

// The sweep path: an abandoned multiplayer duel is expired through the
// authority itself, settling the round and notifying the ledger without
// any player action.
func TestHandleTimeoutSettlesExpiredDuel(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	provider := rng.New(nil)
	registry := game.NewRegistry()
	require.NoError(t, registry.Register(
		duel.New(provider, duel.Config{}).WithClock(func() time.Time { return now })))

	recorder := ledger.NewMemory()
	a, err := New(testKey, registry, WithRecorder(recorder))
	require.NoError(t, err)
	ctx := context.Background()

	created, err := a.Create(ctx, "player-1", model.GameDuel, 100, WithDuelMode(model.DuelMultiplayer))
	require.NoError(t, err)

	mid, err := a.Apply(ctx, created.State, game.Action{
		Type:    game.ActionMove,
		Actor:   game.ActorPlayer,
		Gesture: model.GesturePaper,
	})
	require.NoError(t, err)
	require.Nil(t, mid.Outcome)

	// A sweep before any deadline passes leaves the session untouched.
	_, err = a.HandleTimeout(ctx, mid.State)
	assert.ErrorIs(t, err, game.ErrDeadlineNotReached)

	now = now.Add(duel.DefaultMoveDeadline + time.Second)

	final, err := a.HandleTimeout(ctx, mid.State)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), final.State.Sequence)
	require.NotNil(t, final.Outcome)
	assert.Equal(t, payout.WinnerPlayer, final.Outcome.Winner, "the opponent owed the move")
	assert.Equal(t, int64(200), final.Outcome.PayoutAmount)

	entries := recorder.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(200), entries[0].Payout)

	// The expired session is terminal; further sweeps are refused.
	_, err = a.HandleTimeout(ctx, final.State)
	assert.ErrorIs(t, err, game.ErrIllegalAction)
}

func TestBlackjackSettlesThroughAuthority(t *testing.T) {
	recorder := ledger.NewMemory()
	a := newTestAuthority(t, WithRecorder(recorder))
	ctx := context.Background()

	created, err := a.Create(ctx, "player-1", model.GameBlackjack, 100)
	require.NoError(t, err)

	state := created.State
	outcome := created.Outcome
	for outcome == nil {
		res, err := a.Apply(ctx, state, game.Action{Type: game.ActionStand})
		require.NoError(t, err)
		state = res.State
		outcome = res.Outcome
	}

	entries := recorder.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, outcome.PayoutAmount, entries[0].Payout)
	assert.GreaterOrEqual(t, outcome.PayoutAmount, int64(0))
}
