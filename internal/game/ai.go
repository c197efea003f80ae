package game

// Move is an AI turn decision.
type Move int

const (
	Hit Move = iota
	Stay
)

// String returns the display name of the move.
func (m Move) String() string {
	if m == Stay {
		return "stay"
	}
	return "hit"
}

// numberFaces is how many distinct number faces the standard deck carries.
// The bust estimate treats each face already held as one more way to die.
const numberFaces = 13

// riskTolerance is the bust probability at which the profile stops hitting.
func riskTolerance(d Difficulty) float64 {
	switch d {
	case Easy:
		return 0.3
	case Hard:
		return 0.7
	default:
		return 0.5
	}
}

// BustProbability is a crude estimate of the chance the next draw duplicates
// a held number: faces already held out of the face pool, capped so the AI
// never treats a hit as certain death while cards remain.
func BustProbability(p *Player, deckSize int) float64 {
	if deckSize == 0 {
		return 1.0
	}
	prob := float64(p.UniqueNumbers()) / numberFaces
	if prob > 0.9 {
		prob = 0.9
	}
	return prob
}

// ChooseMove decides hit or stay for an AI player on a normal turn.
func ChooseMove(p *Player, deckSize int) Move {
	tol := riskTolerance(p.Difficulty)
	prob := BustProbability(p, deckSize)

	switch {
	case prob > tol:
		return Stay
	case p.UniqueNumbers() >= 6 && prob > 0.7*tol:
		// One face from the seven-card bonus, but also one duplicate from
		// nothing. Only the boldest profiles keep going.
		return Stay
	case p.RoundScore >= 30 && prob > 0.8*tol:
		return Stay
	default:
		return Hit
	}
}

// ChooseFreezeTarget picks the active opponent with the highest round score,
// falling back to the source itself when nobody else is active.
func ChooseFreezeTarget(source *Player, actives []*Player) *Player {
	var best *Player
	for _, p := range actives {
		if p.ID == source.ID {
			continue
		}
		if best == nil || p.RoundScore > best.RoundScore {
			best = p
		}
	}
	if best == nil {
		return source
	}
	return best
}

// ChooseFlipThreeTarget self-targets when the source's hand can absorb three
// draws, otherwise dumps the card on the opponent with the fullest hand.
func ChooseFlipThreeTarget(source *Player, actives []*Player) *Player {
	if flipThreeSelfSafe(source) {
		return source
	}
	var best *Player
	for _, p := range actives {
		if p.ID == source.ID {
			continue
		}
		if best == nil || len(p.Hand) > len(best.Hand) {
			best = p
		}
	}
	if best == nil {
		return source
	}
	return best
}

// flipThreeSelfSafe is true when three forced draws are a decent gamble: a
// near-empty hand has little to duplicate, and a hand of three to six unique
// faces has a real shot at the seven-card bonus.
func flipThreeSelfSafe(p *Player) bool {
	if len(p.Hand) <= 3 {
		return true
	}
	u := p.UniqueNumbers()
	return u >= 3 && u <= 6
}
