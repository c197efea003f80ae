package game

import "github.com/lox/flipseven/internal/deck"

// PlayerView is a read-only copy of one seat's state.
type PlayerView struct {
	ID         int
	Name       string
	AI         bool
	Difficulty Difficulty
	Status     Status
	Frozen     bool
	Hand       []deck.Card
	RoundScore int
	TotalScore int
}

// FlipThreeView describes an in-flight forced draw sequence.
type FlipThreeView struct {
	TargetID  int
	Remaining int
}

// PendingView describes a suspended target selection.
type PendingView struct {
	SourceID    int
	Card        deck.Card
	EligibleIDs []int
	Token       uint64
}

// Snapshot is a consistent copy of everything a caller may read without
// holding the engine lock.
type Snapshot struct {
	GameID      string
	GameState   GameState
	RoundState  RoundState
	Round       int
	TargetScore int
	DealerID    int
	CurrentID   int
	Players     []PlayerView
	FlipThree   *FlipThreeView
	Pending     *PendingView
	DeckSize    int
	DiscardSize int
}

// Snapshot copies the engine state for display or AI scheduling.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		GameID:      e.id,
		GameState:   e.gameState,
		RoundState:  e.roundState,
		Round:       e.round,
		TargetScore: e.cfg.TargetScore,
		DealerID:    -1,
		CurrentID:   -1,
	}
	if len(e.players) > 0 {
		snap.DealerID = e.players[e.dealerIdx].ID
		snap.CurrentID = e.players[e.currentIdx].ID
	}
	if e.shoe != nil {
		snap.DeckSize = e.shoe.DrawSize()
		snap.DiscardSize = e.shoe.DiscardSize()
	}
	for _, p := range e.players {
		snap.Players = append(snap.Players, PlayerView{
			ID:         p.ID,
			Name:       p.Name,
			AI:         p.AI,
			Difficulty: p.Difficulty,
			Status:     p.Status,
			Frozen:     p.Frozen,
			Hand:       append([]deck.Card(nil), p.Hand...),
			RoundScore: p.RoundScore,
			TotalScore: p.TotalScore,
		})
	}
	if ft := e.flipThree; ft != nil {
		snap.FlipThree = &FlipThreeView{TargetID: ft.targetID, Remaining: ft.remaining}
	}
	if pd := e.pending; pd != nil {
		snap.Pending = &PendingView{
			SourceID:    pd.sourceID,
			Card:        pd.card,
			EligibleIDs: append([]int(nil), pd.eligible...),
			Token:       pd.token,
		}
	}
	return snap
}
