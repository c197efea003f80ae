package game

import "github.com/lox/flipseven/internal/deck"

// Score computes a round score from a hand: sum of number faces, times any
// multiplier modifiers, plus any additive modifiers, plus the bonus when the
// player hit seven unique numbers. A busted hand is always worth zero.
func Score(hand []deck.Card, status Status, flip7Bonus int) int {
	if status == Busted {
		return 0
	}
	base, mult, bonus := 0, 1, 0
	for _, c := range hand {
		switch c.Kind {
		case deck.Number:
			base += c.Value
		case deck.Modifier:
			if c.Mod.Times > 1 {
				mult *= c.Mod.Times
			} else {
				bonus += c.Mod.Add
			}
		}
	}
	score := base*mult + bonus
	if status == Flip7 {
		score += flip7Bonus
	}
	return score
}
