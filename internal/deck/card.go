// Package deck provides the card, hand and shoe primitives shared by the
// card game. Everything here is pure value math; the only effectful entry
// point is the shuffle, which draws its swap indices from the randomness
// provider.
package deck

import "fmt"

// Suit is one of the four French suits.
type Suit string

const (
	Clubs    Suit = "clubs"
	Diamonds Suit = "diamonds"
	Hearts   Suit = "hearts"
	Spades   Suit = "spades"
)

// Suits lists all suits in canonical order.
var Suits = []Suit{Clubs, Diamonds, Hearts, Spades}

// Rank is one of the thirteen ranks, ace through king.
type Rank string

const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
)

// Ranks lists all ranks in canonical order.
var Ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

var rankValues = map[Rank]int{
	Ace: 11, Two: 2, Three: 3, Four: 4, Five: 5, Six: 6, Seven: 7,
	Eight: 8, Nine: 9, Ten: 10, Jack: 10, Queen: 10, King: 10,
}

// Card is immutable once drawn.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// Value returns the card's nominal value: ace counts 11 here, and the
// scorer demotes aces to 1 as needed.
func (c Card) Value() int {
	return rankValues[c.Rank]
}

// IsAce reports whether the card is an ace.
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// IsTenValue reports whether the card counts ten (10, J, Q, K).
func (c Card) IsTenValue() bool {
	return c.Value() == 10 && !c.IsAce()
}

// String renders the card as e.g. "K♠".
func (c Card) String() string {
	glyphs := map[Suit]string{Clubs: "♣", Diamonds: "♦", Hearts: "♥", Spades: "♠"}
	return fmt.Sprintf("%s%s", c.Rank, glyphs[c.Suit])
}
