package deck

import (
	"context"
	"errors"

	"fair-gaming-core/internal/rng"
)

// ShoeDecks is the number of standard decks in a card-game shoe.
const ShoeDecks = 8

// ErrShoeEmpty is returned when a draw is requested from an exhausted shoe.
var ErrShoeEmpty = errors.New("shoe is empty")

// NewShoe builds an unshuffled shoe of decks standard 52-card decks in
// canonical order.
func NewShoe(decks int) []Card {
	cards := make([]Card, 0, decks*52)
	for range decks {
		for _, suit := range Suits {
			for _, rank := range Ranks {
				cards = append(cards, Card{Suit: suit, Rank: rank})
			}
		}
	}
	return cards
}

// Shuffle performs an in-place Fisher-Yates shuffle with every swap index
// drawn through the provider, so the whole ordering is traceable to the
// provider's entropy requests.
func Shuffle(ctx context.Context, p *rng.Provider, cards []Card) error {
	for i := len(cards) - 1; i > 0; i-- {
		j, err := p.UniformInt(ctx, 0, i+1)
		if err != nil {
			return err
		}
		cards[i], cards[j] = cards[j], cards[i]
	}
	return nil
}

// Draw removes and returns the top card of the shoe.
func Draw(cards []Card) (Card, []Card, error) {
	if len(cards) == 0 {
		return Card{}, cards, ErrShoeEmpty
	}
	return cards[0], cards[1:], nil
}
