// Package payout converts terminal game state into a winner designation and
// an exact payout amount. All arithmetic is integer math in the smallest
// token unit; floating point never touches a wager.
package payout

// Winner designates who takes a settled round.
type Winner string

const (
	WinnerPlayer Winner = "player"
	WinnerHouse  Winner = "house"
	WinnerPush   Winner = "push"
	WinnerDraw   Winner = "draw"
)

// Outcome is the settlement result handed to the external ledger. The
// payout amount is the total returned to the player, including the
// original wager when applicable.
type Outcome struct {
	Winner       Winner `json:"winner"`
	PayoutAmount int64  `json:"payout_amount"`
}

// EvenMoney pays a 1:1 win: the wager comes back plus the same again.
func EvenMoney(wager int64) int64 {
	return wager * 2
}

// Doubled pays a 2:1 win on a doubled hand.
func Doubled(wager int64) int64 {
	return wager * 3
}

// BlackjackBonus pays a natural at 3:2 on top of the returned wager.
// Truncation on odd wagers favours the house, matching table convention.
func BlackjackBonus(wager int64) int64 {
	return wager + wager*3/2
}

// Push returns the wager with no profit or loss.
func Push(wager int64) int64 {
	return wager
}

// Forfeit loses the wager entirely.
func Forfeit() int64 {
	return 0
}

// PlayerWins builds a player outcome with the given total payout.
func PlayerWins(amount int64) *Outcome {
	return &Outcome{Winner: WinnerPlayer, PayoutAmount: amount}
}

// HouseWins builds a house outcome; the wager is forfeited.
func HouseWins() *Outcome {
	return &Outcome{Winner: WinnerHouse, PayoutAmount: Forfeit()}
}

// Pushed builds a push outcome returning the wager.
func Pushed(wager int64) *Outcome {
	return &Outcome{Winner: WinnerPush, PayoutAmount: Push(wager)}
}

// Drawn builds a draw outcome returning the wager. Draws are the
// gesture-duel flavour of a push.
func Drawn(wager int64) *Outcome {
	return &Outcome{Winner: WinnerDraw, PayoutAmount: Push(wager)}
}
