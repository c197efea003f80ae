// Package tui renders an interactive table on the terminal with bubbletea.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lox/flipseven/internal/deck"
	"github.com/lox/flipseven/internal/game"
)

// Model is the bubbletea model for a table. It never mutates game state
// directly; every intent goes through the engine, and the view re-renders
// from snapshots as events arrive.
type Model struct {
	engine *game.Engine
	logger *log.Logger

	snap        game.Snapshot
	logView     viewport.Model
	logLines    []string
	notice      string
	gameOver    *game.GameEndedEvent
	width       int
	height      int
	initialized bool
	quitting    bool
}

// New creates a model for the engine.
func New(engine *game.Engine, logger *log.Logger) *Model {
	vp := viewport.New(10, 5)
	return &Model{
		engine:  engine,
		logger:  logger.WithPrefix("tui"),
		snap:    engine.Snapshot(),
		logView: vp,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logView.Width = msg.Width - 4
		m.logView.Height = 8
		m.initialized = true

	case EventMsg:
		if line := m.formatEvent(msg.Event); line != "" {
			m.logLines = append(m.logLines, line)
			if len(m.logLines) > 500 {
				m.logLines = m.logLines[len(m.logLines)-500:]
			}
			m.logView.SetContent(strings.Join(m.logLines, "\n"))
			m.logView.GotoBottom()
		}
		if end, isEnd := msg.Event.(game.GameEndedEvent); isEnd {
			m.gameOver = &end
		}
		m.snap = m.engine.Snapshot()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Sequence(tea.ClearScreen, tea.Quit)

	case "h", " ":
		m.submit(func(id int) error { return m.engine.RequestHit(id) }, "hit")

	case "s":
		m.submit(func(id int) error { return m.engine.RequestStay(id) }, "stay")

	case "enter":
		if m.snap.GameState == game.GameRoundEnd {
			if err := m.engine.StartNextRound(); err != nil {
				m.notice = err.Error()
			}
			m.snap = m.engine.Snapshot()
		}

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.chooseTarget(int(msg.String()[0] - '1'))

	case "up", "k":
		m.logView.ScrollUp(1)
	case "down", "j":
		m.logView.ScrollDown(1)
	}
	return m, nil
}

// submit sends hit or stay for the human whose turn it is.
func (m *Model) submit(op func(int) error, verb string) {
	cur := m.currentPlayer()
	if cur == nil || cur.AI {
		return
	}
	if err := op(cur.ID); err != nil {
		m.notice = fmt.Sprintf("cannot %s: %v", verb, err)
		m.logger.Debug("input rejected", "verb", verb, "error", err)
	}
	m.snap = m.engine.Snapshot()
}

// chooseTarget resolves a pending action card with the nth eligible player.
func (m *Model) chooseTarget(n int) {
	pd := m.snap.Pending
	if pd == nil || n < 0 || n >= len(pd.EligibleIDs) {
		return
	}
	if err := m.engine.ResolveTarget(pd.Token, pd.EligibleIDs[n]); err != nil {
		m.notice = err.Error()
	}
	m.snap = m.engine.Snapshot()
}

func (m *Model) currentPlayer() *game.PlayerView {
	for i := range m.snap.Players {
		if m.snap.Players[i].ID == m.snap.CurrentID {
			return &m.snap.Players[i]
		}
	}
	return nil
}

func (m *Model) playerName(id int) string {
	for _, p := range m.snap.Players {
		if p.ID == id {
			return p.Name
		}
	}
	return fmt.Sprintf("player %d", id)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.initialized {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderTable())
	b.WriteString("\n")
	b.WriteString(m.renderPrompt())
	b.WriteString("\n\n")
	b.WriteString(LogStyle.Render(m.logView.View()))
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("h/space hit · s stay · 1-9 pick target · enter next round · q quit"))
	return b.String()
}

func (m *Model) renderHeader() string {
	title := fmt.Sprintf("Flip 7 · round %d · first to %d · deck %d / discard %d",
		m.snap.Round, m.snap.TargetScore, m.snap.DeckSize, m.snap.DiscardSize)
	return HeaderStyle.Render(title)
}

func (m *Model) renderTable() string {
	var rows []string
	for _, p := range m.snap.Players {
		marker := "  "
		if p.ID == m.snap.CurrentID && m.snap.GameState == game.GamePlaying {
			marker = TurnStyle.Render("▶ ")
		}
		dealer := " "
		if p.ID == m.snap.DealerID {
			dealer = "D"
		}

		status := m.renderStatus(p)
		name := p.Name
		if p.AI {
			name += " (" + p.Difficulty.String() + ")"
		}

		// Numbers on the main row; action and modifier cards below it.
		numbers, extras := splitHand(p.Hand)
		row := fmt.Sprintf("%s%s %-18s %-12s %4d pts (%d total)  %s",
			marker, dealer, name, status, p.RoundScore, p.TotalScore, renderCards(numbers))
		rows = append(rows, row)
		if len(extras) > 0 {
			rows = append(rows, fmt.Sprintf("%42s%s", "", renderCards(extras)))
		}
	}
	return strings.Join(rows, "\n")
}

// splitHand separates number cards from action and modifier cards.
func splitHand(hand []deck.Card) (numbers, extras []deck.Card) {
	for _, c := range hand {
		if c.IsNumber() {
			numbers = append(numbers, c)
		} else {
			extras = append(extras, c)
		}
	}
	return numbers, extras
}

func (m *Model) renderStatus(p game.PlayerView) string {
	if ft := m.snap.FlipThree; ft != nil && ft.TargetID == p.ID {
		return ActionCardStyle.Render(fmt.Sprintf("flips %d more", ft.Remaining))
	}
	switch p.Status {
	case game.Active:
		return StatusActiveStyle.Render("active")
	case game.Stayed:
		if p.Frozen {
			return StatusOutStyle.Render("frozen")
		}
		return StatusOutStyle.Render("stayed")
	case game.Busted:
		return StatusOutStyle.Render("busted")
	case game.Flip7:
		return StatusFlip7Style.Render("FLIP 7")
	default:
		return "?"
	}
}

func (m *Model) renderPrompt() string {
	if m.notice != "" {
		return ErrorStyle.Render(m.notice)
	}
	if m.gameOver != nil {
		return PromptStyle.Render(fmt.Sprintf("%s wins the game! press q to exit",
			m.gameOver.WinnerName))
	}
	if pd := m.snap.Pending; pd != nil {
		var opts []string
		for i, id := range pd.EligibleIDs {
			opts = append(opts, fmt.Sprintf("%d) %s", i+1, m.playerName(id)))
		}
		return PromptStyle.Render(fmt.Sprintf("%s: choose a target for %s · %s",
			m.playerName(pd.SourceID), pd.Card, strings.Join(opts, "  ")))
	}
	if m.snap.GameState == game.GameRoundEnd {
		return PromptStyle.Render("round over · press enter to deal the next round")
	}
	if cur := m.currentPlayer(); cur != nil && !cur.AI && m.snap.GameState == game.GamePlaying {
		if ft := m.snap.FlipThree; ft != nil && ft.TargetID == cur.ID {
			return PromptStyle.Render(fmt.Sprintf("%s: forced draw, press h", cur.Name))
		}
		return PromptStyle.Render(fmt.Sprintf("%s: hit or stay?", cur.Name))
	}
	return HelpStyle.Render("waiting...")
}

func renderCards(hand []deck.Card) string {
	if len(hand) == 0 {
		return HelpStyle.Render("-")
	}
	parts := make([]string, 0, len(hand))
	for _, c := range hand {
		switch c.Kind {
		case deck.Action:
			parts = append(parts, ActionCardStyle.Render("["+c.String()+"]"))
		case deck.Modifier:
			parts = append(parts, ModifierCardStyle.Render("["+c.String()+"]"))
		default:
			parts = append(parts, CardStyle.Render("["+c.String()+"]"))
		}
	}
	return strings.Join(parts, " ")
}

func (m *Model) formatEvent(ev game.GameEvent) string {
	switch e := ev.(type) {
	case game.RoundStartedEvent:
		return fmt.Sprintf("— round %d, %s deals —", e.Round, m.playerName(e.DealerID))
	case game.CardDealtEvent:
		return fmt.Sprintf("%s draws %s", m.playerName(e.PlayerID), e.Card)
	case game.StatusChangedEvent:
		return e.Message
	case game.ActionTargetNeededEvent:
		return fmt.Sprintf("%s must pick a target for %s", m.playerName(e.SourceID), e.Card)
	case game.RoundEndedEvent:
		var parts []string
		for _, s := range e.Scores {
			parts = append(parts, fmt.Sprintf("%s %d", s.Name, s.RoundScore))
		}
		return "round scores: " + strings.Join(parts, ", ")
	case game.GameEndedEvent:
		return fmt.Sprintf("%s wins after %d rounds!", e.WinnerName, e.Rounds)
	default:
		return ""
	}
}

var _ tea.Model = (*Model)(nil)
