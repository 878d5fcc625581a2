package deck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"fair-gaming-core/internal/rng"
)

func card(rank Rank) Card {
	return Card{Suit: Spades, Rank: rank}
}

func TestNewShoeSize(t *testing.T) {
	assert.Len(t, NewShoe(1), 52)
	assert.Len(t, NewShoe(ShoeDecks), 416)
}

func TestNewShoeComposition(t *testing.T) {
	counts := make(map[Card]int)
	for _, c := range NewShoe(ShoeDecks) {
		counts[c]++
	}

	require.Len(t, counts, 52)
	for c, n := range counts {
		assert.Equal(t, ShoeDecks, n, "card %s", c)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		hand []Card
		want HandValue
	}{
		{
			name: "ace six is soft seventeen",
			hand: []Card{card(Ace), card(Six)},
			want: HandValue{Total: 17, IsSoft: true},
		},
		{
			name: "ace six five demotes to hard twelve",
			hand: []Card{card(Ace), card(Six), card(Five)},
			want: HandValue{Total: 12},
		},
		{
			name: "two aces score twelve soft",
			hand: []Card{card(Ace), card(Ace)},
			want: HandValue{Total: 12, IsSoft: true},
		},
		{
			name: "ace plus ten-value is blackjack",
			hand: []Card{card(Ace), card(King)},
			want: HandValue{Total: 21, IsSoft: true, IsBlackjack: true},
		},
		{
			name: "three-card twenty-one is not blackjack",
			hand: []Card{card(Seven), card(Eight), card(Six)},
			want: HandValue{Total: 21},
		},
		{
			name: "over twenty-one busts",
			hand: []Card{card(King), card(Queen), card(Five)},
			want: HandValue{Total: 25, IsBust: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.hand))
		})
	}
}

func TestCanSplit(t *testing.T) {
	tests := []struct {
		name string
		hand []Card
		want bool
	}{
		{"equal ranks", []Card{card(Nine), card(Nine)}, true},
		{"aces", []Card{card(Ace), card(Ace)}, true},
		{"mixed ten-values", []Card{card(Ten), card(Jack)}, true},
		{"queen king", []Card{card(Queen), card(King)}, true},
		{"nine and jack", []Card{card(Nine), card(Jack)}, false},
		{"three cards", []Card{card(Nine), card(Nine), card(Nine)}, false},
		{"one card", []Card{card(Nine)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanSplit(tt.hand))
		})
	}
}

func TestDraw(t *testing.T) {
	shoe := []Card{card(Ace), card(Two)}

	top, rest, err := Draw(shoe)
	require.NoError(t, err)
	assert.Equal(t, card(Ace), top)
	assert.Len(t, rest, 1)

	top, rest, err = Draw(rest)
	require.NoError(t, err)
	assert.Equal(t, card(Two), top)
	assert.Empty(t, rest)

	_, _, err = Draw(rest)
	assert.ErrorIs(t, err, ErrShoeEmpty)
}

// A shuffle must permute, never create or destroy cards.
func TestShufflePreservesMultisetProperty(t *testing.T) {
	provider := rng.New(nil)
	ctx := context.Background()

	rapid.Check(t, func(t *rapid.T) {
		decks := rapid.IntRange(1, ShoeDecks).Draw(t, "decks")
		shoe := NewShoe(decks)

		before := make(map[Card]int)
		for _, c := range shoe {
			before[c]++
		}

		if err := Shuffle(ctx, provider, shoe); err != nil {
			t.Fatalf("shuffle failed: %v", err)
		}

		after := make(map[Card]int)
		for _, c := range shoe {
			after[c]++
		}
		if len(before) != len(after) {
			t.Fatalf("shuffle changed the card set")
		}
		for c, n := range before {
			if after[c] != n {
				t.Fatalf("card %s count changed from %d to %d", c, n, after[c])
			}
		}
	})
}
