// Package config loads game configuration from HCL files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/flipseven/internal/deck"
	"github.com/lox/flipseven/internal/game"
)

// Config is the complete configuration for a session.
type Config struct {
	Game    GameSettings  `hcl:"game,block"`
	Deck    *DeckSettings `hcl:"deck,block"`
	Players []PlayerBlock `hcl:"player,block"`
}

// GameSettings contains table-level settings.
type GameSettings struct {
	TargetScore  int    `hcl:"target_score,optional"`
	Flip7Bonus   int    `hcl:"flip7_bonus,optional"`
	ThinkDelayMS int    `hcl:"think_delay_ms,optional"`
	Seed         int64  `hcl:"seed,optional"`
	LogLevel     string `hcl:"log_level,optional"`
	LogFile      string `hcl:"log_file,optional"`
	StatsFile    string `hcl:"stats_file,optional"`
}

// DeckSettings overrides parts of the deck composition. The number pyramid
// is fixed; action counts and the modifier set are the bits published
// variants disagree on.
type DeckSettings struct {
	FreezeCount       int      `hcl:"freeze_count,optional"`
	FlipThreeCount    int      `hcl:"flip_three_count,optional"`
	SecondChanceCount int      `hcl:"second_chance_count,optional"`
	Modifiers         []string `hcl:"modifiers,optional"`
}

// PlayerBlock defines one seat.
type PlayerBlock struct {
	Name       string `hcl:"name,label"`
	AI         bool   `hcl:"ai,optional"`
	Difficulty string `hcl:"difficulty,optional"`
}

// DefaultConfig returns the standard setup: one human against three medium
// bots, playing to 200.
func DefaultConfig() *Config {
	return &Config{
		Game: GameSettings{
			TargetScore:  200,
			Flip7Bonus:   15,
			ThinkDelayMS: 800,
			LogLevel:     "info",
		},
		Players: []PlayerBlock{
			{Name: "You"},
			{Name: "Ava", AI: true, Difficulty: "medium"},
			{Name: "Max", AI: true, Difficulty: "medium"},
			{Name: "Iris", AI: true, Difficulty: "hard"},
		},
	}
}

// Load reads configuration from an HCL file. A missing file yields the
// defaults; a present but broken file is an error.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(c *Config) {
	if c.Game.TargetScore == 0 {
		c.Game.TargetScore = 200
	}
	if c.Game.Flip7Bonus == 0 {
		c.Game.Flip7Bonus = 15
	}
	if c.Game.ThinkDelayMS == 0 {
		c.Game.ThinkDelayMS = 800
	}
	if c.Game.LogLevel == "" {
		c.Game.LogLevel = "info"
	}
	if len(c.Players) == 0 {
		c.Players = DefaultConfig().Players
	}
	for i := range c.Players {
		if c.Players[i].AI && c.Players[i].Difficulty == "" {
			c.Players[i].Difficulty = "medium"
		}
	}
	if c.Deck != nil {
		if c.Deck.FreezeCount == 0 {
			c.Deck.FreezeCount = 3
		}
		if c.Deck.FlipThreeCount == 0 {
			c.Deck.FlipThreeCount = 3
		}
		if c.Deck.SecondChanceCount == 0 {
			c.Deck.SecondChanceCount = 3
		}
		if len(c.Deck.Modifiers) == 0 {
			c.Deck.Modifiers = []string{"+2", "+4", "+6", "+8", "+10", "x2"}
		}
	}
}

// Validate checks the configuration for playability.
func (c *Config) Validate() error {
	if c.Game.TargetScore <= 0 {
		return fmt.Errorf("target score must be positive, got %d", c.Game.TargetScore)
	}
	if c.Game.Flip7Bonus < 0 {
		return fmt.Errorf("flip 7 bonus cannot be negative, got %d", c.Game.Flip7Bonus)
	}
	if len(c.Players) < 2 || len(c.Players) > 6 {
		return fmt.Errorf("need 2 to 6 players, got %d", len(c.Players))
	}
	seen := map[string]bool{}
	for _, p := range c.Players {
		if p.Name == "" {
			return fmt.Errorf("player with empty name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate player name %q", p.Name)
		}
		seen[p.Name] = true
		if _, err := game.ParseDifficulty(p.Difficulty); err != nil {
			return fmt.Errorf("player %s: %w", p.Name, err)
		}
	}
	if c.Deck != nil {
		for _, m := range c.Deck.Modifiers {
			if _, err := ParseModifier(m); err != nil {
				return err
			}
		}
		if c.Deck.FreezeCount < 0 || c.Deck.FlipThreeCount < 0 || c.Deck.SecondChanceCount < 0 {
			return fmt.Errorf("action card counts cannot be negative")
		}
	}
	return nil
}

// EngineConfig builds the rules the engine plays by.
func (c *Config) EngineConfig() (game.Config, error) {
	comp := deck.DefaultComposition()
	if c.Deck != nil {
		comp.Actions = []deck.ActionEntry{
			{Kind: deck.Freeze, Count: c.Deck.FreezeCount},
			{Kind: deck.FlipThree, Count: c.Deck.FlipThreeCount},
			{Kind: deck.SecondChance, Count: c.Deck.SecondChanceCount},
		}
		comp.Modifiers = nil
		for _, s := range c.Deck.Modifiers {
			mod, err := ParseModifier(s)
			if err != nil {
				return game.Config{}, err
			}
			comp.Modifiers = append(comp.Modifiers, deck.ModifierEntry{Mod: mod, Count: 1})
		}
	}
	return game.Config{
		Composition: comp,
		TargetScore: c.Game.TargetScore,
		Flip7Bonus:  c.Game.Flip7Bonus,
	}, nil
}

// PlayerConfigs builds the seat list for the engine.
func (c *Config) PlayerConfigs() ([]game.PlayerConfig, error) {
	out := make([]game.PlayerConfig, 0, len(c.Players))
	for _, p := range c.Players {
		d, err := game.ParseDifficulty(p.Difficulty)
		if err != nil {
			return nil, fmt.Errorf("player %s: %w", p.Name, err)
		}
		out = append(out, game.PlayerConfig{Name: p.Name, AI: p.AI, Difficulty: d})
	}
	return out, nil
}

// ThinkDelay returns the configured AI pause.
func (c *Config) ThinkDelay() time.Duration {
	return time.Duration(c.Game.ThinkDelayMS) * time.Millisecond
}

// ParseModifier reads a modifier face like "+4" or "x2".
func ParseModifier(s string) (deck.ModifierValue, error) {
	switch {
	case strings.HasPrefix(s, "+"):
		n, err := strconv.Atoi(s[1:])
		if err != nil || n <= 0 {
			return deck.ModifierValue{}, fmt.Errorf("invalid modifier %q", s)
		}
		return deck.ModifierValue{Add: n}, nil
	case strings.HasPrefix(s, "x") || strings.HasPrefix(s, "X"):
		n, err := strconv.Atoi(s[1:])
		if err != nil || n < 2 {
			return deck.ModifierValue{}, fmt.Errorf("invalid modifier %q", s)
		}
		return deck.ModifierValue{Times: n}, nil
	default:
		return deck.ModifierValue{}, fmt.Errorf("invalid modifier %q", s)
	}
}
