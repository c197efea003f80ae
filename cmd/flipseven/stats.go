package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/lox/flipseven/internal/config"
	"github.com/lox/flipseven/internal/statistics"
)

type StatsCmd struct {
	Config string `kong:"short='c',default='flipseven.hcl',help='Path to the HCL config file'"`
	File   string `kong:"default='',help='Stats file to read (defaults to the configured path)'"`
	Reset  bool   `kong:"help='Wipe all lifetime records'"`
}

func (s *StatsCmd) Run() error {
	path := s.File
	if path == "" {
		cfg, err := config.Load(s.Config)
		if err != nil {
			return err
		}
		path = cfg.Game.StatsFile
	}
	if path == "" {
		path = defaultStatsPath()
	}

	if s.Reset {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := statistics.NewRecorder(path, nil).Reset(); err != nil {
			return fmt.Errorf("resetting stats: %w", err)
		}
		fmt.Printf("Lifetime records in %s cleared\n", path)
		return nil
	}

	ledger := statistics.Load(path, log.New(io.Discard))
	if ledger.Games == 0 {
		fmt.Printf("No games recorded yet in %s\n", path)
		return nil
	}

	fmt.Printf("Lifetime records from %s (%d games)\n\n", path, ledger.Games)
	printLedger(ledger)
	return nil
}
