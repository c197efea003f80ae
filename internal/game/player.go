// Package game implements the Flip 7 rules engine: turn and round state,
// action card resolution, scoring and the AI policy.
package game

import (
	"fmt"
	"strings"

	"github.com/lox/flipseven/internal/deck"
)

// Status is a player's standing within the current round.
type Status int

const (
	Active Status = iota
	Stayed
	Busted
	Flip7
)

// String returns the display name of the status.
func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Stayed:
		return "stayed"
	case Busted:
		return "busted"
	case Flip7:
		return "flip 7"
	default:
		return "?"
	}
}

// Difficulty selects the AI risk profile.
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

// String returns the display name of the difficulty.
func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	default:
		return "?"
	}
}

// ParseDifficulty maps a config string to a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(s) {
	case "easy":
		return Easy, nil
	case "medium", "":
		return Medium, nil
	case "hard":
		return Hard, nil
	default:
		return Medium, fmt.Errorf("unknown difficulty %q", s)
	}
}

// Player is one seat at the table. All fields are owned by the engine and
// only read elsewhere through snapshots.
type Player struct {
	ID         int
	Name       string
	AI         bool
	Difficulty Difficulty

	Hand       []deck.Card
	Status     Status
	Frozen     bool // Stayed via a Freeze card rather than choice
	RoundScore int
	TotalScore int
}

func (p *Player) resetForRound() {
	p.Hand = nil
	p.Status = Active
	p.Frozen = false
	p.RoundScore = 0
}

// UniqueNumbers counts distinct number faces in the hand. Outside the brief
// window where a just-drawn duplicate awaits mitigation, every number card in
// a hand is unique, so this equals the number-card count.
func (p *Player) UniqueNumbers() int {
	seen := map[int]bool{}
	for _, c := range p.Hand {
		if c.IsNumber() {
			seen[c.Value] = true
		}
	}
	return len(seen)
}

// countNumber counts cards of the given face value in the hand.
func (p *Player) countNumber(value int) int {
	n := 0
	for _, c := range p.Hand {
		if c.IsNumber() && c.Value == value {
			n++
		}
	}
	return n
}

// countModifier counts modifier cards with the given payload.
func (p *Player) countModifier(mod deck.ModifierValue) int {
	n := 0
	for _, c := range p.Hand {
		if c.IsModifier() && c.Mod == mod {
			n++
		}
	}
	return n
}

// countSecondChance counts Second Chance cards in the hand.
func (p *Player) countSecondChance() int {
	n := 0
	for _, c := range p.Hand {
		if c.IsActionOf(deck.SecondChance) {
			n++
		}
	}
	return n
}

// HasSecondChance reports whether the hand holds a Second Chance card.
func (p *Player) HasSecondChance() bool {
	return p.indexOfAction(deck.SecondChance) >= 0
}

func (p *Player) indexOfAction(kind deck.ActionKind) int {
	for i, c := range p.Hand {
		if c.IsActionOf(kind) {
			return i
		}
	}
	return -1
}

func (p *Player) indexOfCardID(id int) int {
	for i, c := range p.Hand {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// removeCardAt takes the card at index i out of the hand and returns it.
func (p *Player) removeCardAt(i int) deck.Card {
	c := p.Hand[i]
	p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
	return c
}
