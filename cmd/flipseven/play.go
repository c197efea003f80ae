package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lox/flipseven/internal/config"
	"github.com/lox/flipseven/internal/game"
	"github.com/lox/flipseven/internal/randutil"
	"github.com/lox/flipseven/internal/statistics"
	"github.com/lox/flipseven/internal/tui"
)

type PlayCmd struct {
	Config  string `kong:"short='c',default='flipseven.hcl',help='Path to the HCL config file'"`
	Players int    `kong:"default='0',help='Table size: you plus N-1 bots, overriding configured players'"`
	Target  int    `kong:"default='0',help='Target score, overriding the configured value'"`
	Seed    int64  `kong:"default='0',help='Deterministic shuffle seed'"`
	NoStats bool   `kong:"help='Do not record statistics for this game'"`
	Debug   bool   `kong:"help='Enable debug logging (requires log_file in config)'"`
}

func (p *PlayCmd) Run() error {
	cfg, err := config.Load(p.Config)
	if err != nil {
		return err
	}
	if p.Target != 0 {
		cfg.Game.TargetScore = p.Target
	}
	if p.Seed != 0 {
		cfg.Game.Seed = p.Seed
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// The TUI owns the terminal, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if cfg.Game.LogFile != "" {
		f, err := openLogFile(cfg.Game.LogFile)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger, err := setupLogger(logOut, cfg.Game.LogLevel, p.Debug)
	if err != nil {
		return err
	}

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	players, err := cfg.PlayerConfigs()
	if err != nil {
		return err
	}
	if p.Players > 0 {
		players, err = tableOf(p.Players)
		if err != nil {
			return err
		}
	}

	rng := randutil.NewFromTime()
	if cfg.Game.Seed != 0 {
		rng = randutil.New(cfg.Game.Seed)
	}

	engine := game.NewEngine(engineCfg,
		game.WithRNG(rng),
		game.WithLogger(logger),
	)

	if !p.NoStats {
		statsPath := cfg.Game.StatsFile
		if statsPath == "" {
			statsPath = defaultStatsPath()
		}
		if err := os.MkdirAll(filepath.Dir(statsPath), 0o755); err != nil {
			return fmt.Errorf("creating stats directory: %w", err)
		}
		recorder := statistics.NewRecorder(statsPath, logger)
		engine.Bus().Subscribe(recorder)
	}

	model := tui.New(engine, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())

	bridge := tui.NewBridge(program)
	engine.Bus().Subscribe(bridge)

	allAI := true
	for _, pc := range players {
		if !pc.AI {
			allAI = false
		}
	}
	runnerOpts := []game.RunnerOption{
		game.WithRunnerLogger(logger),
		game.WithThinkDelay(cfg.ThinkDelay()),
	}
	if allAI {
		runnerOpts = append(runnerOpts, game.WithAutoAdvance())
	}
	runner := game.NewRunner(engine, runnerOpts...)
	runner.Start()

	// The program's receive loop is not running yet, so the deal's event
	// burst has to come from another goroutine.
	go func() {
		if err := engine.StartGame(players, cfg.Game.TargetScore); err != nil {
			logger.Error("failed to start game", "error", err)
			program.Quit()
		}
	}()

	_, runErr := program.Run()
	runner.Stop()
	engine.Bus().Unsubscribe(bridge)
	bridge.Close()
	if runErr != nil {
		return runErr
	}

	printStandings(os.Stdout, engine.Snapshot())
	return nil
}

// tableOf builds a table of you plus n-1 bots with a spread of difficulties.
func tableOf(n int) ([]game.PlayerConfig, error) {
	if n < 2 || n > 6 {
		return nil, fmt.Errorf("table size must be 2-6, got %d", n)
	}
	players := []game.PlayerConfig{{Name: "You"}}
	names := []string{"Ava", "Max", "Iris", "Leo", "Noa"}
	difficulties := []game.Difficulty{game.Medium, game.Easy, game.Hard, game.Medium, game.Hard}
	for i := 0; i < n-1; i++ {
		players = append(players, game.PlayerConfig{
			Name:       names[i],
			AI:         true,
			Difficulty: difficulties[i],
		})
	}
	return players, nil
}

func printStandings(w io.Writer, snap game.Snapshot) {
	players := snap.Players
	if len(players) == 0 {
		return
	}
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].TotalScore > players[j].TotalScore
	})
	fmt.Fprintf(w, "Final standings after %d rounds:\n", snap.Round)
	for i, p := range players {
		fmt.Fprintf(w, "  %d. %-16s %d points\n", i+1, p.Name, p.TotalScore)
	}
}
