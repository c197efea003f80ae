package statistics

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/flipseven/internal/fileutil"
	"github.com/lox/flipseven/internal/game"
)

// Recorder subscribes to a game's event bus and folds round and game results
// into a ledger, saving after every game. Events arrive synchronously from
// the engine, so handlers stay quick and never call back into it.
type Recorder struct {
	mu     sync.Mutex
	path   string
	logger *log.Logger
	ledger *Ledger
}

// NewRecorder loads the ledger at path, or starts a fresh one when the file
// is missing or unreadable. An empty path disables persistence.
func NewRecorder(path string, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Recorder{
		path:   path,
		logger: logger,
		ledger: Load(path, logger),
	}
}

// Load reads a ledger from path. Missing, malformed or inconsistent files
// yield an empty ledger; lifetime stats are not worth refusing to play over.
func Load(path string, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if path == "" {
		return NewLedger()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("could not read stats file, starting fresh", "path", path, "error", err)
		}
		return NewLedger()
	}
	ledger := NewLedger()
	if err := json.Unmarshal(data, ledger); err != nil {
		logger.Warn("corrupt stats file, starting fresh", "path", path, "error", err)
		return NewLedger()
	}
	if err := ledger.Validate(); err != nil {
		logger.Warn("inconsistent stats file, starting fresh", "path", path, "error", err)
		return NewLedger()
	}
	return ledger
}

// HandleEvent implements game.EventSubscriber.
func (r *Recorder) HandleEvent(ev game.GameEvent) {
	switch e := ev.(type) {
	case game.RoundEndedEvent:
		r.recordRound(e)
	case game.GameEndedEvent:
		r.recordGame(e)
	}
}

func (r *Recorder) recordRound(ev game.RoundEndedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range ev.Scores {
		p := r.ledger.Player(s.Name)
		p.RoundsPlayed++
		switch s.Status {
		case game.Busted:
			p.Busts++
		case game.Flip7:
			p.Flip7s++
		}
		if s.RoundScore > p.BestRound {
			p.BestRound = s.RoundScore
		}
	}
}

func (r *Recorder) recordGame(ev game.GameEndedEvent) {
	r.mu.Lock()
	r.ledger.Games++
	for _, s := range ev.Scores {
		p := r.ledger.Player(s.Name)
		p.GamesPlayed++
		p.TotalPoints += s.TotalScore
		if s.TotalScore > p.BestGame {
			p.BestGame = s.TotalScore
		}
		if s.PlayerID == ev.WinnerID {
			p.Wins++
		}
	}
	r.mu.Unlock()

	if err := r.Save(); err != nil {
		r.logger.Warn("could not save stats", "error", err)
	}
}

// Save writes the ledger atomically to the configured path.
func (r *Recorder) Save() error {
	r.mu.Lock()
	data, err := json.MarshalIndent(r.ledger, "", "  ")
	r.mu.Unlock()
	if err != nil {
		return err
	}
	if r.path == "" {
		return nil
	}
	return fileutil.WriteFileAtomic(r.path, data, 0o644)
}

// Reset discards all lifetime records and persists the empty ledger.
func (r *Recorder) Reset() error {
	r.mu.Lock()
	r.ledger = NewLedger()
	r.mu.Unlock()
	return r.Save()
}

// Ledger returns a deep copy for display.
func (r *Recorder) Ledger() Ledger {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := Ledger{Games: r.ledger.Games, Players: map[string]*PlayerStats{}}
	for name, p := range r.ledger.Players {
		cp := *p
		out.Players[name] = &cp
	}
	return out
}

var _ game.EventSubscriber = (*Recorder)(nil)
