package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/lox/flipseven/internal/config"
	"github.com/lox/flipseven/internal/game"
	"github.com/lox/flipseven/internal/simulator"
	"github.com/lox/flipseven/internal/statistics"
)

type SimulateCmd struct {
	Config     string `kong:"short='c',default='flipseven.hcl',help='Path to the HCL config file'"`
	Games      int    `kong:"short='n',default='1000',help='Number of games to play'"`
	Seed       int64  `kong:"default='1',help='Base seed; game i plays with seed+i'"`
	Target     int    `kong:"default='0',help='Target score (defaults to the configured value)'"`
	Difficulty string `kong:"default='',help='Force every bot to one difficulty (easy/medium/hard)'"`
	Debug      bool   `kong:"help='Enable debug logging'"`
}

func (s *SimulateCmd) Run() error {
	cfg, err := config.Load(s.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := setupLogger(os.Stderr, cfg.Game.LogLevel, s.Debug)
	if err != nil {
		return err
	}

	rules, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	target := s.Target
	if target == 0 {
		target = cfg.Game.TargetScore
	}

	players := simulationLineup(cfg)
	if s.Difficulty != "" {
		d, err := game.ParseDifficulty(s.Difficulty)
		if err != nil {
			return err
		}
		for i := range players {
			players[i].Difficulty = d
		}
	}

	sim, err := simulator.New(simulator.Config{
		Games:       s.Games,
		Seed:        s.Seed,
		TargetScore: target,
		Rules:       rules,
		Players:     players,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Simulating %d games to %d points (seed %d)...\n", s.Games, target, s.Seed)
	results, err := sim.Run()
	if err != nil {
		return err
	}

	fmt.Printf("\nPlayed %d games in %s (%.1f rounds per game, Flip 7 in %.1f%% of games)\n\n",
		results.Games, results.Elapsed.Round(1e6),
		float64(results.Rounds)/float64(results.Games),
		100*float64(results.Flip7Games)/float64(results.Games))
	printLedger(&results.Ledger)
	return nil
}

// simulationLineup uses the configured players when the whole table is AI,
// otherwise swaps human seats for medium bots so the run can go headless.
func simulationLineup(cfg *config.Config) []game.PlayerConfig {
	players, err := cfg.PlayerConfigs()
	if err != nil || len(players) < 2 {
		players = nil
	}
	for i := range players {
		if !players[i].AI {
			players[i].AI = true
			players[i].Difficulty = game.Medium
		}
	}
	if players == nil {
		for _, d := range []game.Difficulty{game.Easy, game.Medium, game.Medium, game.Hard} {
			players = append(players, game.PlayerConfig{
				Name:       fmt.Sprintf("Bot %s %d", d, len(players)+1),
				AI:         true,
				Difficulty: d,
			})
		}
	}
	return players
}

func printLedger(ledger *statistics.Ledger) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLAYER\tGAMES\tWINS\tWIN%\tBUST%\tFLIP7S\tBEST ROUND\tBEST GAME")
	for _, p := range ledger.Sorted() {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.1f\t%.1f\t%d\t%d\t%d\n",
			p.Name, p.GamesPlayed, p.Wins,
			100*p.WinRate(), 100*p.BustRate(),
			p.Flip7s, p.BestRound, p.BestGame)
	}
	w.Flush()
}
