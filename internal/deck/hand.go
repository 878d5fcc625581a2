package deck

// HandValue is the derived score of an ordered card sequence. It is
// recomputed from scratch on every call rather than maintained
// incrementally, so scoring can never drift from the cards.
type HandValue struct {
	Total       int  `json:"total"`
	IsSoft      bool `json:"is_soft"`
	IsBlackjack bool `json:"is_blackjack"`
	IsBust      bool `json:"is_bust"`
}

// Score computes the best total for the hand. Aces start at 11 and are
// demoted to 1 one at a time while the hand would bust; the hand is soft
// when an ace still counts 11.
func Score(cards []Card) HandValue {
	total := 0
	aces := 0
	for _, c := range cards {
		total += c.Value()
		if c.IsAce() {
			aces++
		}
	}
	softAces := aces
	for total > 21 && softAces > 0 {
		total -= 10
		softAces--
	}

	return HandValue{
		Total:       total,
		IsSoft:      softAces > 0,
		IsBlackjack: total == 21 && len(cards) == 2,
		IsBust:      total > 21,
	}
}

// CanSplit reports whether a two-card hand may be split: same rank, or any
// two ten-valued cards (10/J/Q/K in any combination).
func CanSplit(cards []Card) bool {
	if len(cards) != 2 {
		return false
	}
	if cards[0].Rank == cards[1].Rank {
		return true
	}
	return cards[0].IsTenValue() && cards[1].IsTenValue()
}
