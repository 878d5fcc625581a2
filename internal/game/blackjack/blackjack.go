// Package blackjack implements the card-game state machine: an 8-deck
// shoe, casino dealing rules, split/double semantics and
// dealer-stands-on-hard-17 logic, driven entirely by the injected
// randomness provider.
package blackjack

import (
	"context"
	"fmt"

	"fair-gaming-core/internal/deck"
	"fair-gaming-core/internal/game"
	"fair-gaming-core/internal/model"
	"fair-gaming-core/internal/payout"
	"fair-gaming-core/internal/rng"
)

// DealerStand is the total at which the dealer stands on a hard hand.
const DealerStand = 17

// Machine drives blackjack sessions.
type Machine struct {
	provider *rng.Provider
	decks    int
}

// New creates a blackjack machine drawing from the given provider.
func New(provider *rng.Provider) *Machine {
	return NewWithDecks(provider, deck.ShoeDecks)
}

// NewWithDecks creates a blackjack machine with a custom shoe size. A
// non-positive count falls back to the standard shoe.
func NewWithDecks(provider *rng.Provider, decks int) *Machine {
	if decks <= 0 {
		decks = deck.ShoeDecks
	}
	return &Machine{provider: provider, decks: decks}
}

// GameType implements game.Machine.
func (m *Machine) GameType() model.GameType {
	return model.GameBlackjack
}

// Initialize builds and shuffles the shoe, deals two cards each to player
// and dealer, and resolves naturals. The Dealing phase is transient: by
// the time Initialize returns the session is in PlayerTurn or a terminal
// resolution phase.
func (m *Machine) Initialize(ctx context.Context, s *model.Session) error {
	if s.Phase != model.PhaseAwaitingStart {
		return fmt.Errorf("%w: initialize in phase %q", game.ErrIllegalAction, s.Phase)
	}
	s.Phase = model.PhaseDealing

	shoe := deck.NewShoe(m.decks)
	if err := deck.Shuffle(ctx, m.provider, shoe); err != nil {
		return fmt.Errorf("shuffle shoe: %w", err)
	}
	m.trace(s, "shuffle")

	st := &model.BlackjackState{
		Shoe:  shoe,
		Hands: []model.SubHand{{Wager: s.Wager}},
	}
	s.Blackjack = st

	// Alternate player/dealer; the dealer's second card is the hole card.
	for range 2 {
		if err := dealTo(st, &st.Hands[0].Cards); err != nil {
			return err
		}
		if err := dealTo(st, &st.Dealer); err != nil {
			return err
		}
	}
	m.trace(s, "deal")

	m.resolveNaturals(s)
	return nil
}

// resolveNaturals is the single canonical natural-21 check. It runs
// exactly once, at the end of the deal: a 21 reached later by hitting is
// never a natural and never re-enters this path.
func (m *Machine) resolveNaturals(s *model.Session) {
	st := s.Blackjack
	player := deck.Score(st.Hands[0].Cards)
	dealer := deck.Score(st.Dealer)

	if player.IsBlackjack || dealer.IsBlackjack {
		st.HoleRevealed = true
		s.Phase = model.PhaseBlackjackResolution
		return
	}
	s.Phase = model.PhasePlayerTurn
}

// Apply implements game.Machine.
func (m *Machine) Apply(ctx context.Context, s *model.Session, a game.Action) error {
	if s.Phase != model.PhasePlayerTurn {
		return fmt.Errorf("%w: %q in phase %q", game.ErrIllegalAction, a.Type, s.Phase)
	}
	st := s.Blackjack
	hand := st.ActiveHand()
	if hand.Done() {
		// Cursor invariant: an exhausted hand is never left active.
		return fmt.Errorf("%w: active hand already complete", game.ErrIllegalAction)
	}

	switch a.Type {
	case game.ActionHit:
		if err := dealTo(st, &hand.Cards); err != nil {
			return err
		}
		m.trace(s, "hit")
		if v := deck.Score(hand.Cards); v.IsBust || v.Total == 21 {
			hand.Stood = true
		}

	case game.ActionStand:
		hand.Stood = true

	case game.ActionDouble:
		// Only on the original two-card hand: never after a split, never
		// after a hit.
		if st.Split {
			return fmt.Errorf("%w: double is not available on split hands", game.ErrIllegalAction)
		}
		if len(hand.Cards) != 2 {
			return fmt.Errorf("%w: double requires an untouched two-card hand", game.ErrIllegalAction)
		}
		if err := dealTo(st, &hand.Cards); err != nil {
			return err
		}
		m.trace(s, "double")
		hand.Doubled = true

	case game.ActionSplit:
		if err := m.split(ctx, s); err != nil {
			return err
		}

	default:
		return fmt.Errorf("%w: unknown action %q", game.ErrIllegalAction, a.Type)
	}

	return m.advance(ctx, s)
}

// split divides the active pair into two sub-hands. The first sub-hand is
// completed to two cards immediately; the second waits until it becomes
// active. Paired aces are the exception: both sub-hands are completed
// atomically, locked against further action, and play moves straight to
// the dealer.
func (m *Machine) split(ctx context.Context, s *model.Session) error {
	st := s.Blackjack
	hand := st.ActiveHand()

	if st.Split {
		return fmt.Errorf("%w: hand already split", game.ErrIllegalAction)
	}
	if !deck.CanSplit(hand.Cards) {
		return fmt.Errorf("%w: cards are not splittable", game.ErrIllegalAction)
	}

	aces := hand.Cards[0].IsAce()
	first := model.SubHand{Cards: []deck.Card{hand.Cards[0]}, Wager: hand.Wager, FromAces: aces}
	second := model.SubHand{Cards: []deck.Card{hand.Cards[1]}, Wager: hand.Wager, FromAces: aces}
	st.Hands = []model.SubHand{first, second}
	st.Active = 0
	st.Split = true

	// The first sub-hand always receives its second card now.
	if err := dealTo(st, &st.Hands[0].Cards); err != nil {
		return err
	}
	if aces {
		// Both ace hands complete immediately; hit/double/split stay
		// disabled via FromAces and advance() runs the dealer.
		if err := dealTo(st, &st.Hands[1].Cards); err != nil {
			return err
		}
	}
	m.trace(s, "split")
	return nil
}

// advance moves the sub-hand cursor past completed hands, dealing the
// second card to a split hand at the moment it becomes active, and runs
// the dealer once every sub-hand is exhausted.
func (m *Machine) advance(ctx context.Context, s *model.Session) error {
	st := s.Blackjack
	for st.ActiveHand().Done() {
		if st.Active < len(st.Hands)-1 {
			st.Active++
			next := st.ActiveHand()
			if len(next.Cards) == 1 {
				if err := dealTo(st, &next.Cards); err != nil {
					return err
				}
				m.trace(s, "split_second_card")
			}
			continue
		}
		return m.dealerTurn(ctx, s)
	}
	return nil
}

// dealerTurn reveals the hole card and plays the house hand: hit while
// total < 17, or total == 17 and soft. The dealer does not draw when
// every player hand has already busted.
func (m *Machine) dealerTurn(ctx context.Context, s *model.Session) error {
	st := s.Blackjack
	s.Phase = model.PhaseDealerTurn
	st.HoleRevealed = true

	if anyLive(st) {
		for {
			v := deck.Score(st.Dealer)
			if v.Total < DealerStand || (v.Total == DealerStand && v.IsSoft) {
				if err := dealTo(st, &st.Dealer); err != nil {
					return err
				}
				m.trace(s, "dealer_hit")
				continue
			}
			break
		}
	}

	s.Phase = model.PhaseSettled
	return nil
}

func anyLive(st *model.BlackjackState) bool {
	for i := range st.Hands {
		if !deck.Score(st.Hands[i].Cards).IsBust {
			return true
		}
	}
	return false
}

// IsTerminal implements game.Machine. BlackjackResolution is terminal: a
// natural is resolved without the player ever acting.
func (m *Machine) IsTerminal(s *model.Session) bool {
	return s.Phase == model.PhaseSettled || s.Phase == model.PhaseBlackjackResolution
}

// Settle implements game.Machine. All amounts are integer wager units:
// 1:1 on a win, 2:1 on a doubled win, 3:2 bonus on a natural, the full
// stake back on a push (a doubled hand staked twice the wager), forfeit
// on a bust or loss.
func (m *Machine) Settle(s *model.Session) (*payout.Outcome, error) {
	if !m.IsTerminal(s) {
		return nil, game.ErrNotTerminal
	}
	st := s.Blackjack

	if s.Phase == model.PhaseBlackjackResolution {
		return settleNaturals(st), nil
	}

	dealer := deck.Score(st.Dealer)
	var total, staked int64
	for i := range st.Hands {
		h := &st.Hands[i]
		staked += h.Wager
		if h.Doubled {
			staked += h.Wager
		}
		total += settleHand(h, dealer)
	}

	switch {
	case total > staked:
		return payout.PlayerWins(total), nil
	case total < staked:
		return &payout.Outcome{Winner: payout.WinnerHouse, PayoutAmount: total}, nil
	default:
		return &payout.Outcome{Winner: payout.WinnerPush, PayoutAmount: total}, nil
	}
}

// settleNaturals applies the natural-21 outcome table: player blackjack
// wins 3:2 unless the dealer also has one (push); a dealer-only 21 is an
// immediate house win.
func settleNaturals(st *model.BlackjackState) *payout.Outcome {
	playerBJ := deck.Score(st.Hands[0].Cards).IsBlackjack
	dealerBJ := deck.Score(st.Dealer).IsBlackjack
	wager := st.Hands[0].Wager

	switch {
	case playerBJ && dealerBJ:
		return payout.Pushed(wager)
	case playerBJ:
		return payout.PlayerWins(payout.BlackjackBonus(wager))
	default:
		return payout.HouseWins()
	}
}

func settleHand(h *model.SubHand, dealer deck.HandValue) int64 {
	v := deck.Score(h.Cards)
	switch {
	case v.IsBust:
		return payout.Forfeit()
	case dealer.IsBust || v.Total > dealer.Total:
		if h.Doubled {
			return payout.Doubled(h.Wager)
		}
		return payout.EvenMoney(h.Wager)
	case v.Total < dealer.Total:
		return payout.Forfeit()
	default:
		if h.Doubled {
			return payout.Push(2 * h.Wager)
		}
		return payout.Push(h.Wager)
	}
}

// HandleTimeout implements game.Machine; blackjack rounds have no
// deadline of their own.
func (m *Machine) HandleTimeout(ctx context.Context, s *model.Session) error {
	return game.ErrNoDeadline
}

// AvailableActions lists the legal actions for the active hand.
func (m *Machine) AvailableActions(s *model.Session) []game.ActionType {
	if s.Phase != model.PhasePlayerTurn {
		return nil
	}
	st := s.Blackjack
	hand := st.ActiveHand()
	if hand.Done() {
		return nil
	}

	actions := []game.ActionType{game.ActionHit, game.ActionStand}
	if len(hand.Cards) == 2 && !st.Split {
		actions = append(actions, game.ActionDouble)
		if deck.CanSplit(hand.Cards) {
			actions = append(actions, game.ActionSplit)
		}
	}
	return actions
}

// DisplayInfo implements game.Machine. The dealer's hole card stays
// hidden until the reveal; the visible dealer value covers only the
// up-card so a renderer cannot leak the hole.
func (m *Machine) DisplayInfo(s *model.Session) map[string]any {
	st := s.Blackjack
	if st == nil {
		return map[string]any{"phase": s.Phase}
	}

	hands := make([]map[string]any, len(st.Hands))
	for i := range st.Hands {
		h := &st.Hands[i]
		v := deck.Score(h.Cards)
		hands[i] = map[string]any{
			"cards":   cardStrings(h.Cards),
			"total":   v.Total,
			"is_soft": v.IsSoft,
			"is_bust": v.IsBust,
			"doubled": h.Doubled,
			"active":  i == st.Active && s.Phase == model.PhasePlayerTurn,
		}
	}

	dealer := map[string]any{}
	if st.HoleRevealed {
		v := deck.Score(st.Dealer)
		dealer["cards"] = cardStrings(st.Dealer)
		dealer["total"] = v.Total
	} else if len(st.Dealer) > 0 {
		dealer["cards"] = []string{st.Dealer[0].String(), "??"}
		dealer["total"] = st.Dealer[0].Value()
	}

	return map[string]any{
		"phase":   s.Phase,
		"wager":   s.Wager,
		"hands":   hands,
		"dealer":  dealer,
		"actions": m.AvailableActions(s),
	}
}

func cardStrings(cards []deck.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

func dealTo(st *model.BlackjackState, hand *[]deck.Card) error {
	card, rest, err := deck.Draw(st.Shoe)
	if err != nil {
		return err
	}
	st.Shoe = rest
	*hand = append(*hand, card)
	return nil
}

func (m *Machine) trace(s *model.Session, purpose string) {
	id, source := m.provider.Trace()
	s.RecordDraw(id, source, purpose)
}
