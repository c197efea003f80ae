package statistics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/flipseven/internal/game"
)

func TestRecorderTalliesRoundsAndGames(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "stats.json")
	r := NewRecorder(path, nil)

	r.HandleEvent(game.RoundEndedEvent{
		Round: 1,
		Scores: []game.PlayerScore{
			{PlayerID: 0, Name: "Ada", Status: game.Stayed, RoundScore: 21, TotalScore: 21},
			{PlayerID: 1, Name: "Bo", Status: game.Busted, RoundScore: 0, TotalScore: 0},
		},
	})
	r.HandleEvent(game.RoundEndedEvent{
		Round: 2,
		Scores: []game.PlayerScore{
			{PlayerID: 0, Name: "Ada", Status: game.Flip7, RoundScore: 45, TotalScore: 66},
			{PlayerID: 1, Name: "Bo", Status: game.Stayed, RoundScore: 12, TotalScore: 12},
		},
	})
	r.HandleEvent(game.GameEndedEvent{
		WinnerID: 0,
		Scores: []game.PlayerScore{
			{PlayerID: 0, Name: "Ada", TotalScore: 66},
			{PlayerID: 1, Name: "Bo", TotalScore: 12},
		},
	})

	ledger := r.Ledger()
	require.NoError(t, ledger.Validate())
	assert.Equal(t, 1, ledger.Games)

	ada := ledger.Players["Ada"]
	require.NotNil(t, ada)
	assert.Equal(t, 2, ada.RoundsPlayed)
	assert.Equal(t, 1, ada.Flip7s)
	assert.Equal(t, 0, ada.Busts)
	assert.Equal(t, 1, ada.Wins)
	assert.Equal(t, 45, ada.BestRound)
	assert.Equal(t, 66, ada.BestGame)
	assert.Equal(t, 1.0, ada.WinRate())

	bo := ledger.Players["Bo"]
	require.NotNil(t, bo)
	assert.Equal(t, 1, bo.Busts)
	assert.Equal(t, 0, bo.Wins)
	assert.Equal(t, 0.5, bo.BustRate())

	// The game end should have persisted the file; a fresh recorder picks
	// the totals back up.
	r2 := NewRecorder(path, nil)
	assert.Equal(t, 1, r2.Ledger().Games)
	assert.Equal(t, 1, r2.Ledger().Players["Ada"].Wins)
}

func TestLoadMissingAndCorruptFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	ledger := Load(filepath.Join(dir, "nope.json"), nil)
	require.NotNil(t, ledger)
	assert.Equal(t, 0, ledger.Games)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	ledger = Load(bad, nil)
	assert.Equal(t, 0, ledger.Games)
	assert.Empty(t, ledger.Players)

	// Valid JSON that fails validation also falls back to defaults.
	lying := filepath.Join(dir, "lying.json")
	require.NoError(t, os.WriteFile(lying,
		[]byte(`{"games":1,"players":{"X":{"name":"X","games_played":1,"wins":5}}}`), 0o644))
	ledger = Load(lying, nil)
	assert.Equal(t, 0, ledger.Games)
}

func TestLedgerValidate(t *testing.T) {
	t.Parallel()
	l := NewLedger()
	require.NoError(t, l.Validate())

	p := l.Player("Ada")
	p.GamesPlayed = 2
	p.Wins = 1
	p.RoundsPlayed = 10
	p.Busts = 4
	require.NoError(t, l.Validate())

	p.Wins = 3
	assert.Error(t, l.Validate())
}

func TestSortedOrder(t *testing.T) {
	t.Parallel()
	l := NewLedger()
	a := l.Player("Ada")
	a.GamesPlayed, a.Wins = 4, 1
	b := l.Player("Bo")
	b.GamesPlayed, b.Wins = 4, 3
	c := l.Player("Cy")
	c.GamesPlayed, c.Wins = 4, 1

	got := l.Sorted()
	require.Len(t, got, 3)
	assert.Equal(t, "Bo", got[0].Name)
	assert.Equal(t, "Ada", got[1].Name)
	assert.Equal(t, "Cy", got[2].Name)
}
