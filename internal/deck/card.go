// Package deck implements the Flip 7 card model and the draw/discard piles.
package deck

import "fmt"

// Kind discriminates the three card families.
type Kind int

const (
	Number Kind = iota
	Action
	Modifier
)

// String returns the string representation of a kind.
func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case Action:
		return "action"
	case Modifier:
		return "modifier"
	default:
		return "?"
	}
}

// ActionKind identifies an action card.
type ActionKind int

const (
	Freeze ActionKind = iota
	FlipThree
	SecondChance
)

// String returns the printed name of the action card.
func (a ActionKind) String() string {
	switch a {
	case Freeze:
		return "Freeze"
	case FlipThree:
		return "Flip Three"
	case SecondChance:
		return "Second Chance"
	default:
		return "?"
	}
}

// ModifierValue is the payload of a modifier card: either an additive bonus
// (+N) or a score multiplier (×N), never both.
type ModifierValue struct {
	Add   int
	Times int
}

// String returns the printed face of the modifier ("+4", "x2").
func (m ModifierValue) String() string {
	if m.Times > 1 {
		return fmt.Sprintf("x%d", m.Times)
	}
	return fmt.Sprintf("+%d", m.Add)
}

// Card is a tagged union over the three kinds. Only the payload matching
// Kind is meaningful. Cards are immutable once built and identified by ID;
// exactly one owner (draw pile, discard pile, a hand, or the engine's pending
// slot) holds a card at any time.
type Card struct {
	ID     int
	Kind   Kind
	Value  int           // Number cards: face value 0..12
	Action ActionKind    // Action cards
	Mod    ModifierValue // Modifier cards
}

// NewNumber creates a number card.
func NewNumber(id, value int) Card {
	return Card{ID: id, Kind: Number, Value: value}
}

// NewAction creates an action card.
func NewAction(id int, kind ActionKind) Card {
	return Card{ID: id, Kind: Action, Action: kind}
}

// NewModifier creates a modifier card.
func NewModifier(id int, mod ModifierValue) Card {
	return Card{ID: id, Kind: Modifier, Mod: mod}
}

// String returns the printed face of the card.
func (c Card) String() string {
	switch c.Kind {
	case Number:
		return fmt.Sprintf("%d", c.Value)
	case Action:
		return c.Action.String()
	case Modifier:
		return c.Mod.String()
	default:
		return "?"
	}
}

// IsNumber returns true for number cards.
func (c Card) IsNumber() bool { return c.Kind == Number }

// IsAction returns true for action cards.
func (c Card) IsAction() bool { return c.Kind == Action }

// IsActionOf returns true if the card is the given action card.
func (c Card) IsActionOf(kind ActionKind) bool { return c.Kind == Action && c.Action == kind }

// IsModifier returns true for modifier cards.
func (c Card) IsModifier() bool { return c.Kind == Modifier }
