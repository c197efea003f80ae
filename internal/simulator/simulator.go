// Package simulator plays headless all-AI games for balance testing.
package simulator

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/flipseven/internal/game"
	"github.com/lox/flipseven/internal/randutil"
	"github.com/lox/flipseven/internal/statistics"
)

// Config holds configuration for a simulation run.
type Config struct {
	Games       int
	Seed        int64
	TargetScore int
	Rules       game.Config
	Players     []game.PlayerConfig
	Timeout     time.Duration
	Logger      *log.Logger
}

// Results aggregates a whole run.
type Results struct {
	Games      int
	Rounds     int
	Flip7Games int
	Ledger     statistics.Ledger
	Elapsed    time.Duration
}

// Simulator runs seeded games back to back.
type Simulator struct {
	config   Config
	recorder *statistics.Recorder
}

// New creates a simulator. Every player must be an AI.
func New(config Config) (*Simulator, error) {
	if config.Games <= 0 {
		return nil, fmt.Errorf("games must be positive, got %d", config.Games)
	}
	if len(config.Players) < 2 {
		return nil, fmt.Errorf("need at least 2 players, got %d", len(config.Players))
	}
	for _, p := range config.Players {
		if !p.AI {
			return nil, fmt.Errorf("player %s is not an AI", p.Name)
		}
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = log.New(io.Discard)
	}
	return &Simulator{
		config:   config,
		recorder: statistics.NewRecorder("", nil),
	}, nil
}

// Run plays every game and returns the aggregated results. Each game gets
// its own seed derived from the base seed, so any single game can be
// replayed in isolation; games run in parallel since they share nothing but
// the ledger.
func (s *Simulator) Run() (*Results, error) {
	start := time.Now()
	results := &Results{}

	var mu sync.Mutex
	var played atomic.Int64
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())

	for i := 0; i < s.config.Games; i++ {
		seed := s.config.Seed + int64(i)
		gameNum := i + 1
		g.Go(func() error {
			end, err := s.playGameWithTimeout(seed)
			if err != nil {
				return fmt.Errorf("game %d (seed %d): %w", gameNum, seed, err)
			}
			mu.Lock()
			results.Games++
			results.Rounds += end.Rounds
			if end.Flip7Achieved {
				results.Flip7Games++
			}
			mu.Unlock()

			if n := played.Add(1); n%100 == 0 {
				s.config.Logger.Info("simulation progress",
					"played", n, "total", s.config.Games)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results.Ledger = s.recorder.Ledger()
	results.Elapsed = time.Since(start)
	if err := results.Ledger.Validate(); err != nil {
		return nil, fmt.Errorf("results failed validation: %w", err)
	}
	return results, nil
}

// playGameWithTimeout guards against a game that never terminates.
func (s *Simulator) playGameWithTimeout(seed int64) (game.GameEndedEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	resultCh := make(chan game.GameEndedEvent, 1)
	errCh := make(chan error, 1)
	go func() {
		end, err := s.playGame(seed)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- end
	}()

	select {
	case end := <-resultCh:
		return end, nil
	case err := <-errCh:
		return game.GameEndedEvent{}, err
	case <-ctx.Done():
		return game.GameEndedEvent{}, fmt.Errorf("game timed out after %v", s.config.Timeout)
	}
}

// endCapture keeps the final event of a game.
type endCapture struct {
	end game.GameEndedEvent
	ok  bool
}

func (c *endCapture) HandleEvent(ev game.GameEvent) {
	if e, isEnd := ev.(game.GameEndedEvent); isEnd {
		c.end = e
		c.ok = true
	}
}

// playGame drives one engine from deal to game end with every decision made
// by the AI policy.
func (s *Simulator) playGame(seed int64) (game.GameEndedEvent, error) {
	rules := s.config.Rules
	if rules.Composition.Total() == 0 {
		rules = game.DefaultConfig()
	}

	e := game.NewEngine(rules, game.WithRNG(randutil.New(seed)))
	capture := &endCapture{}
	e.Bus().Subscribe(capture)
	e.Bus().Subscribe(s.recorder)
	defer e.Bus().Unsubscribe(s.recorder)

	if err := e.StartGame(s.config.Players, s.config.TargetScore); err != nil {
		return game.GameEndedEvent{}, err
	}

	for {
		snap := e.Snapshot()
		switch snap.GameState {
		case game.GameOver:
			if !capture.ok {
				return game.GameEndedEvent{}, fmt.Errorf("game over without a result")
			}
			return capture.end, nil
		case game.GameRoundEnd:
			if err := e.StartNextRound(); err != nil {
				return game.GameEndedEvent{}, err
			}
		case game.GamePlaying:
			if err := s.stepAI(e, snap); err != nil {
				return game.GameEndedEvent{}, err
			}
		default:
			return game.GameEndedEvent{}, fmt.Errorf("unexpected state %v", snap.GameState)
		}
	}
}

func (s *Simulator) stepAI(e *game.Engine, snap game.Snapshot) error {
	if snap.Pending != nil {
		return fmt.Errorf("all-AI game suspended for a target")
	}
	var cur *game.PlayerView
	for i := range snap.Players {
		if snap.Players[i].ID == snap.CurrentID {
			cur = &snap.Players[i]
			break
		}
	}
	if cur == nil {
		return fmt.Errorf("no current player in snapshot")
	}

	forced := snap.FlipThree != nil && snap.FlipThree.TargetID == cur.ID
	move := game.Hit
	if !forced {
		move = game.ChooseMove(&game.Player{
			Difficulty: cur.Difficulty,
			Hand:       cur.Hand,
			RoundScore: cur.RoundScore,
		}, snap.DeckSize)
	}
	if move == game.Stay {
		return e.RequestStay(cur.ID)
	}
	return e.RequestHit(cur.ID)
}
