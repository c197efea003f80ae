package deck

import (
	"errors"
	rand "math/rand/v2"

	"github.com/lox/flipseven/internal/randutil"
)

// ErrExhausted is returned when a draw is requested while both piles are
// empty. With a fixed composition and bounded hands this is unreachable in
// play; it indicates a card-conservation bug and the game must abort.
var ErrExhausted = errors.New("deck and discard pile both empty")

// CountsFunc is notified after any change to the pile sizes. Display-only;
// it must not call back into the shoe.
type CountsFunc func(deckSize, discardSize int)

// Shoe owns the draw pile and the discard pile. The back of the draw slice is
// the next card drawn.
type Shoe struct {
	draw     []Card
	discard  []Card
	rng      *rand.Rand
	onCounts CountsFunc
}

// NewShoe builds the composition, shuffles it and returns a ready shoe.
func NewShoe(rng *rand.Rand, comp Composition) *Shoe {
	s := &Shoe{
		draw:    comp.Build(),
		discard: make([]Card, 0, comp.Total()),
		rng:     rng,
	}
	randutil.Shuffle(s.rng, s.draw)
	return s
}

// NewStacked returns a shoe that deals the given cards in the given order,
// for scripted scenarios. Reshuffles of the discard pile still use rng.
func NewStacked(rng *rand.Rand, cards []Card) *Shoe {
	s := &Shoe{
		draw:    make([]Card, 0, len(cards)),
		discard: make([]Card, 0, len(cards)),
		rng:     rng,
	}
	for i := len(cards) - 1; i >= 0; i-- {
		s.draw = append(s.draw, cards[i])
	}
	return s
}

// SetCountsFunc registers the pile-size observer.
func (s *Shoe) SetCountsFunc(f CountsFunc) {
	s.onCounts = f
}

// Draw pops the next card. When the draw pile is empty the discard pile is
// shuffled in first; only when both are empty does it fail.
func (s *Shoe) Draw() (Card, error) {
	if len(s.draw) == 0 {
		s.draw = append(s.draw, s.discard...)
		s.discard = s.discard[:0]
		randutil.Shuffle(s.rng, s.draw)
	}
	if len(s.draw) == 0 {
		return Card{}, ErrExhausted
	}
	card := s.draw[len(s.draw)-1]
	s.draw = s.draw[:len(s.draw)-1]
	s.notify()
	return card, nil
}

// Discard appends a spent card to the discard pile.
func (s *Shoe) Discard(card Card) {
	s.discard = append(s.discard, card)
	s.notify()
}

// DrawSize returns the number of cards left in the draw pile.
func (s *Shoe) DrawSize() int { return len(s.draw) }

// DiscardSize returns the number of cards in the discard pile.
func (s *Shoe) DiscardSize() int { return len(s.discard) }

func (s *Shoe) notify() {
	if s.onCounts != nil {
		s.onCounts(len(s.draw), len(s.discard))
	}
}
