package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// setupLogger builds a logger honoring the configured level. The TUI owns
// the terminal during play, so interactive commands log to the configured
// file or nowhere; headless commands pass os.Stderr.
func setupLogger(out io.Writer, level string, verbose bool) (*log.Logger, error) {
	lvl := log.InfoLevel
	if level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	if verbose {
		lvl = log.DebugLevel
	}
	return log.NewWithOptions(out, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	}), nil
}

// openLogFile opens the log file for appending, creating parent directories.
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// defaultStatsPath resolves where lifetime statistics live when the config
// does not name a file.
func defaultStatsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "flipseven-stats.json"
	}
	return filepath.Join(home, ".flipseven", "stats.json")
}
