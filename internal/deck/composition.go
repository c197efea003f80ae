package deck

import "fmt"

// NumberEntry gives the count of one number face in the deck.
type NumberEntry struct {
	Value int
	Count int
}

// ActionEntry gives the count of one action kind in the deck.
type ActionEntry struct {
	Kind  ActionKind
	Count int
}

// ModifierEntry gives the count of one modifier face in the deck.
type ModifierEntry struct {
	Mod   ModifierValue
	Count int
}

// Composition is the data table defining one deck instance. The modifier set
// in particular is configuration, not an engine constant: published Flip 7
// variants disagree on it.
type Composition struct {
	Numbers   []NumberEntry
	Actions   []ActionEntry
	Modifiers []ModifierEntry
}

// DefaultComposition returns the standard deck: face value v appears
// max(1,v) times for 1..12 plus a single 0, three of each action kind, and
// one each of +2/+4/+6/+8/+10/x2. 94 cards total.
func DefaultComposition() Composition {
	numbers := []NumberEntry{{Value: 0, Count: 1}}
	for v := 1; v <= 12; v++ {
		numbers = append(numbers, NumberEntry{Value: v, Count: v})
	}
	return Composition{
		Numbers: numbers,
		Actions: []ActionEntry{
			{Kind: Freeze, Count: 3},
			{Kind: FlipThree, Count: 3},
			{Kind: SecondChance, Count: 3},
		},
		Modifiers: []ModifierEntry{
			{Mod: ModifierValue{Add: 2}, Count: 1},
			{Mod: ModifierValue{Add: 4}, Count: 1},
			{Mod: ModifierValue{Add: 6}, Count: 1},
			{Mod: ModifierValue{Add: 8}, Count: 1},
			{Mod: ModifierValue{Add: 10}, Count: 1},
			{Mod: ModifierValue{Times: 2}, Count: 1},
		},
	}
}

// Total returns the number of cards the composition builds.
func (c Composition) Total() int {
	total := 0
	for _, n := range c.Numbers {
		total += n.Count
	}
	for _, a := range c.Actions {
		total += a.Count
	}
	for _, m := range c.Modifiers {
		total += m.Count
	}
	return total
}

// Validate rejects tables the engine cannot play with.
func (c Composition) Validate() error {
	for _, n := range c.Numbers {
		if n.Value < 0 || n.Value > 12 {
			return fmt.Errorf("number face %d out of range 0..12", n.Value)
		}
		if n.Count < 0 {
			return fmt.Errorf("number face %d has negative count %d", n.Value, n.Count)
		}
	}
	for _, a := range c.Actions {
		if a.Count < 0 {
			return fmt.Errorf("action %s has negative count %d", a.Kind, a.Count)
		}
	}
	for _, m := range c.Modifiers {
		if m.Count < 0 {
			return fmt.Errorf("modifier %s has negative count %d", m.Mod, m.Count)
		}
		if m.Mod.Add == 0 && m.Mod.Times < 2 {
			return fmt.Errorf("modifier entry has neither add nor multiplier payload")
		}
	}
	if c.Total() == 0 {
		return fmt.Errorf("composition builds an empty deck")
	}
	return nil
}

// Build produces the exact multiset in a deterministic order with sequential
// IDs. Callers shuffle; nothing else may create or destroy cards afterwards.
func (c Composition) Build() []Card {
	cards := make([]Card, 0, c.Total())
	id := 1
	for _, n := range c.Numbers {
		for i := 0; i < n.Count; i++ {
			cards = append(cards, NewNumber(id, n.Value))
			id++
		}
	}
	for _, a := range c.Actions {
		for i := 0; i < a.Count; i++ {
			cards = append(cards, NewAction(id, a.Kind))
			id++
		}
	}
	for _, m := range c.Modifiers {
		for i := 0; i < m.Count; i++ {
			cards = append(cards, NewModifier(id, m.Mod))
			id++
		}
	}
	return cards
}
