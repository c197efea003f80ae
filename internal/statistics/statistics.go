// Package statistics keeps lifetime Flip 7 records across games, persisted
// as JSON between runs.
package statistics

import (
	"fmt"
	"sort"
)

// PlayerStats is one player's lifetime record, keyed by name.
type PlayerStats struct {
	Name         string `json:"name"`
	GamesPlayed  int    `json:"games_played"`
	Wins         int    `json:"wins"`
	RoundsPlayed int    `json:"rounds_played"`
	Busts        int    `json:"busts"`
	Flip7s       int    `json:"flip7s"`
	TotalPoints  int    `json:"total_points"`
	BestRound    int    `json:"best_round"`
	BestGame     int    `json:"best_game"`
}

// WinRate returns wins over games played.
func (p *PlayerStats) WinRate() float64 {
	if p.GamesPlayed == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.GamesPlayed)
}

// BustRate returns busts over rounds played.
func (p *PlayerStats) BustRate() float64 {
	if p.RoundsPlayed == 0 {
		return 0
	}
	return float64(p.Busts) / float64(p.RoundsPlayed)
}

// Ledger is the full persisted record.
type Ledger struct {
	Games   int                     `json:"games"`
	Players map[string]*PlayerStats `json:"players"`
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{Players: map[string]*PlayerStats{}}
}

// Player returns the record for name, creating it on first use.
func (l *Ledger) Player(name string) *PlayerStats {
	if l.Players == nil {
		l.Players = map[string]*PlayerStats{}
	}
	p, ok := l.Players[name]
	if !ok {
		p = &PlayerStats{Name: name}
		l.Players[name] = p
	}
	return p
}

// Sorted returns all player records, best win rate first, then by name so
// output is stable.
func (l *Ledger) Sorted() []*PlayerStats {
	out := make([]*PlayerStats, 0, len(l.Players))
	for _, p := range l.Players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WinRate() != out[j].WinRate() {
			return out[i].WinRate() > out[j].WinRate()
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Validate rejects ledgers that cannot have come from this program.
func (l *Ledger) Validate() error {
	if l.Games < 0 {
		return fmt.Errorf("negative game count %d", l.Games)
	}
	for name, p := range l.Players {
		if p == nil {
			return fmt.Errorf("player %q has no record", name)
		}
		if p.Wins > p.GamesPlayed {
			return fmt.Errorf("player %q has %d wins in %d games", name, p.Wins, p.GamesPlayed)
		}
		if p.Busts > p.RoundsPlayed {
			return fmt.Errorf("player %q has %d busts in %d rounds", name, p.Busts, p.RoundsPlayed)
		}
		if p.GamesPlayed < 0 || p.RoundsPlayed < 0 || p.TotalPoints < 0 {
			return fmt.Errorf("player %q has negative counters", name)
		}
	}
	return nil
}
