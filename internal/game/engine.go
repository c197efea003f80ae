package game

import (
	"errors"
	"fmt"
	"io"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/flipseven/internal/deck"
	"github.com/lox/flipseven/internal/gameid"
	"github.com/lox/flipseven/internal/randutil"
)

// GameState is the coarse lifecycle of a game.
type GameState int

const (
	GameSetup GameState = iota
	GamePlaying
	GameRoundEnd
	GameOver
)

// String returns the display name of the game state.
func (s GameState) String() string {
	switch s {
	case GameSetup:
		return "setup"
	case GamePlaying:
		return "playing"
	case GameRoundEnd:
		return "round end"
	case GameOver:
		return "game over"
	default:
		return "?"
	}
}

// RoundState is the phase of the current round.
type RoundState int

const (
	RoundDealing RoundState = iota
	RoundPlaying
	RoundEnded
)

// String returns the display name of the round state.
func (s RoundState) String() string {
	switch s {
	case RoundDealing:
		return "dealing"
	case RoundPlaying:
		return "playing"
	case RoundEnded:
		return "ended"
	default:
		return "?"
	}
}

// Errors returned for operations the engine rejects. Rejected operations
// never mutate state.
var (
	ErrWrongState      = errors.New("operation not legal in current state")
	ErrNotYourTurn     = errors.New("not this player's turn")
	ErrPlayerNotActive = errors.New("player is not active this round")
	ErrAwaitingTarget  = errors.New("waiting for an action card target")
	ErrNoPendingTarget = errors.New("no target selection pending")
	ErrInvalidTarget   = errors.New("target is not eligible")
	ErrMustDraw        = errors.New("player must finish the forced draws")
	ErrUnknownPlayer   = errors.New("unknown player id")
)

// Config holds the tunable rules of a game.
type Config struct {
	Composition deck.Composition
	TargetScore int
	Flip7Bonus  int
}

// DefaultConfig returns the standard rules: the 94-card deck, play to 200,
// 15-point bonus for seven unique numbers.
func DefaultConfig() Config {
	return Config{
		Composition: deck.DefaultComposition(),
		TargetScore: 200,
		Flip7Bonus:  15,
	}
}

// PlayerConfig describes one seat to create at game start.
type PlayerConfig struct {
	Name       string
	AI         bool
	Difficulty Difficulty
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRNG sets the random source used for shuffles and redistributions.
func WithRNG(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithClock sets the clock used for event timestamps and game duration.
func WithClock(clock quartz.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithEventBus sets the bus events are published on.
func WithEventBus(bus EventBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithStackedDeck replaces the shuffled shoe with a fixed deal order. The
// configured composition is ignored.
func WithStackedDeck(cards []deck.Card) Option {
	return func(e *Engine) { e.stacked = cards }
}

type resumeKind int

const (
	resumeTurn resumeKind = iota
	resumeDeal
	resumeDrain
)

// targetRequest is a suspended action card waiting for a human to pick a
// target. The card stays in the source's hand until resolution.
type targetRequest struct {
	sourceID int
	card     deck.Card
	eligible []int
	token    uint64
	resume   resumeKind
}

type deferredAction struct {
	card         deck.Card
	redistribute bool
}

// flipThreeState tracks one forced three-draw sequence. The Flip Three card
// itself is held here until teardown, when it is discarded.
type flipThreeState struct {
	targetID  int
	remaining int
	card      deck.Card
	deferred  []deferredAction
}

// armedFlipThree is a sub-loop scheduled to start once the deal finishes.
type armedFlipThree struct {
	targetID int
	card     deck.Card
}

type drainState struct {
	ownerID int
	queue   []deferredAction
}

// Engine is the Flip 7 rules engine. All public methods take the engine
// mutex; events are published synchronously while it is held, so subscribers
// must not call back in.
type Engine struct {
	mu     sync.Mutex
	logger *log.Logger
	bus    EventBus
	rng    *rand.Rand
	clock  quartz.Clock
	cfg    Config

	id         string
	shoe       *deck.Shoe
	players    []*Player
	dealerIdx  int
	currentIdx int
	round      int

	gameState  GameState
	roundState RoundState

	pending   *targetRequest
	tokenSeq  uint64
	flipThree *flipThreeState
	armed     *armedFlipThree
	drain     *drainState
	carryover []deck.Card

	dealCursor int
	stacked    []deck.Card

	startedAt     time.Time
	flip7Achieved bool
}

// NewEngine creates an engine in the setup state.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		logger: log.New(io.Discard),
		bus:    NewSimpleEventBus(),
		rng:    randutil.NewFromTime(),
		clock:  quartz.NewReal(),
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ID returns the game identifier, empty before the first StartGame.
func (e *Engine) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id
}

// Bus returns the event bus the engine publishes on.
func (e *Engine) Bus() EventBus { return e.bus }

// StartGame seats the players, shuffles a fresh shoe and deals the first
// round. A non-positive targetScore keeps the configured default.
func (e *Engine) StartGame(configs []PlayerConfig, targetScore int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gameState != GameSetup {
		return ErrWrongState
	}
	if len(configs) < 2 {
		return fmt.Errorf("need at least 2 players, got %d", len(configs))
	}
	if e.stacked == nil {
		if err := e.cfg.Composition.Validate(); err != nil {
			return fmt.Errorf("deck composition: %w", err)
		}
	}
	if targetScore > 0 {
		e.cfg.TargetScore = targetScore
	}

	e.players = make([]*Player, len(configs))
	for i, pc := range configs {
		name := pc.Name
		if name == "" {
			name = fmt.Sprintf("Player %d", i+1)
		}
		e.players[i] = &Player{
			ID:         i,
			Name:       name,
			AI:         pc.AI,
			Difficulty: pc.Difficulty,
			Status:     Active,
		}
	}

	e.id = gameid.Generate()
	if e.stacked != nil {
		e.shoe = deck.NewStacked(e.rng, e.stacked)
	} else {
		e.shoe = deck.NewShoe(e.rng, e.cfg.Composition)
	}
	e.shoe.SetCountsFunc(func(deckSize, discardSize int) {
		e.publish(CountsChangedEvent{BaseEvent: e.base(), DeckSize: deckSize, DiscardSize: discardSize})
	})
	e.startedAt = e.clock.Now()
	e.round = 1
	e.dealerIdx = 0
	e.carryover = nil
	e.flip7Achieved = false
	e.gameState = GamePlaying

	e.logger.Info("game started",
		"game_id", e.id,
		"players", len(e.players),
		"target_score", e.cfg.TargetScore)

	return e.startRoundLocked()
}

// StartNextRound deals the next round after a round has been scored.
func (e *Engine) StartNextRound() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gameState != GameRoundEnd {
		return ErrWrongState
	}
	e.gameState = GamePlaying
	return e.startRoundLocked()
}

// Reset abandons any game in progress and returns to setup.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.id = ""
	e.shoe = nil
	e.players = nil
	e.dealerIdx = 0
	e.currentIdx = 0
	e.round = 0
	e.gameState = GameSetup
	e.roundState = RoundDealing
	e.pending = nil
	e.flipThree = nil
	e.armed = nil
	e.drain = nil
	e.carryover = nil
	e.flip7Achieved = false
}

// RequestHit draws one card for the player. During a forced three-draw
// sequence the draw counts against the sequence instead of ending the turn.
func (e *Engine) RequestHit(playerID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.checkTurnLocked(playerID)
	if err != nil {
		return err
	}

	card, err := e.shoe.Draw()
	if err != nil {
		return e.abortLocked(err)
	}

	if ft := e.flipThree; ft != nil && ft.targetID == playerID {
		return e.flipThreeStepLocked(p, card)
	}

	if e.handleDrawLocked(p, card, false) {
		e.resolveActionLocked(p, card, resumeTurn)
		if e.pending != nil {
			return nil
		}
	}
	return e.afterTurnLocked()
}

// RequestStay banks the player's hand and ends their participation in the
// round. Not legal mid way through a forced three-draw sequence.
func (e *Engine) RequestStay(playerID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.checkTurnLocked(playerID)
	if err != nil {
		return err
	}
	if ft := e.flipThree; ft != nil && ft.targetID == playerID {
		return ErrMustDraw
	}

	p.Status = Stayed
	e.publish(StatusChangedEvent{
		BaseEvent: e.base(),
		PlayerID:  p.ID,
		Status:    Stayed,
		Message:   fmt.Sprintf("%s stays with %d", p.Name, p.RoundScore),
	})
	e.logger.Debug("player stayed", "player", p.Name, "score", p.RoundScore)
	return e.afterTurnLocked()
}

// ResolveTarget completes a suspended action card with the chosen target.
// The token must match the one from the ActionTargetNeededEvent; a stale
// token is ignored so that late UI callbacks cannot corrupt a newer request.
func (e *Engine) ResolveTarget(token uint64, targetID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending == nil {
		return ErrNoPendingTarget
	}
	if token != e.pending.token {
		e.logger.Debug("stale target selection ignored", "token", token, "want", e.pending.token)
		return nil
	}
	eligible := false
	for _, id := range e.pending.eligible {
		if id == targetID {
			eligible = true
			break
		}
	}
	if !eligible {
		return ErrInvalidTarget
	}

	req := e.pending
	e.pending = nil
	source := e.playerByIDLocked(req.sourceID)
	target := e.playerByIDLocked(targetID)
	e.applyActionToTargetLocked(source, target, req.card)

	switch req.resume {
	case resumeDeal:
		return e.dealFromLocked(e.dealCursor)
	case resumeDrain:
		return e.drainDeferredLocked()
	default:
		return e.afterTurnLocked()
	}
}

// --- round lifecycle ---

func (e *Engine) startRoundLocked() error {
	e.roundState = RoundDealing
	e.pending = nil
	e.flipThree = nil
	e.armed = nil
	e.drain = nil

	// Everything dealt last round folds back into the discard pile.
	for _, p := range e.players {
		for _, c := range p.Hand {
			e.shoe.Discard(c)
		}
		p.Hand = nil
	}

	// Flip Three cards parked from last round land on a random player who
	// survived it. At most one sequence can run; extras go to the discard.
	for _, c := range e.carryover {
		eligible := e.activePlayersLocked()
		if len(eligible) == 0 || e.armed != nil {
			e.logger.Debug("parked flip three discarded", "card", c.String())
			e.shoe.Discard(c)
			continue
		}
		recipient := randutil.Pick(e.rng, eligible)
		e.armed = &armedFlipThree{targetID: recipient.ID, card: c}
		e.logger.Info("parked flip three lands", "player", recipient.Name)
	}
	e.carryover = nil

	for _, p := range e.players {
		p.resetForRound()
		e.publish(StatusChangedEvent{BaseEvent: e.base(), PlayerID: p.ID, Status: Active})
		e.publish(HandChangedEvent{BaseEvent: e.base(), PlayerID: p.ID, Hand: nil, Score: 0})
	}

	e.currentIdx = e.dealerIdx
	e.publish(RoundStartedEvent{BaseEvent: e.base(), Round: e.round, DealerID: e.players[e.dealerIdx].ID})
	e.logger.Info("round started", "round", e.round, "dealer", e.players[e.dealerIdx].Name)

	return e.dealFromLocked(0)
}

// dealFromLocked deals one card to each seat starting at the dealer, skipping
// seats an earlier dealt card already knocked out. A dealt action card can
// suspend the deal; the cursor records where to resume.
func (e *Engine) dealFromLocked(start int) error {
	n := len(e.players)
	for i := start; i < n; i++ {
		p := e.players[(e.dealerIdx+i)%n]
		if p.Status != Active {
			continue
		}
		card, err := e.shoe.Draw()
		if err != nil {
			return e.abortLocked(err)
		}
		if e.handleDrawLocked(p, card, false) {
			e.resolveActionLocked(p, card, resumeDeal)
			if e.pending != nil {
				e.dealCursor = i + 1
				return nil
			}
		}
	}
	return e.finishDealLocked()
}

func (e *Engine) finishDealLocked() error {
	e.roundState = RoundPlaying

	if a := e.armed; a != nil {
		e.armed = nil
		t := e.playerByIDLocked(a.targetID)
		if t.Status != Active {
			e.shoe.Discard(a.card)
		} else {
			e.startFlipThreeLocked(t, a.card)
		}
	}

	if e.roundShouldEndLocked() {
		return e.endRoundLocked()
	}
	if e.flipThree != nil {
		return nil // turn already pinned on the forced player
	}

	e.setTurnLocked(e.nextActiveIdxLocked(e.dealerIdx))
	return nil
}

func (e *Engine) roundShouldEndLocked() bool {
	actives := 0
	for _, p := range e.players {
		switch p.Status {
		case Flip7:
			return true
		case Active:
			actives++
		}
	}
	return actives == 0
}

func (e *Engine) endRoundLocked() error {
	e.roundState = RoundEnded
	e.pending = nil
	e.drain = nil
	if ft := e.flipThree; ft != nil {
		e.flipThree = nil
		e.shoe.Discard(ft.card)
		for _, d := range ft.deferred {
			e.discardFromHandLocked(e.playerByIDLocked(ft.targetID), d.card)
		}
	}

	scores := make([]PlayerScore, 0, len(e.players))
	for _, p := range e.players {
		p.RoundScore = Score(p.Hand, p.Status, e.cfg.Flip7Bonus)
		p.TotalScore += p.RoundScore
		scores = append(scores, PlayerScore{
			PlayerID:   p.ID,
			Name:       p.Name,
			Status:     p.Status,
			RoundScore: p.RoundScore,
			TotalScore: p.TotalScore,
		})
	}
	e.publish(RoundEndedEvent{BaseEvent: e.base(), Round: e.round, Scores: scores})
	e.logger.Info("round ended", "round", e.round)

	for _, p := range e.players {
		if p.TotalScore >= e.cfg.TargetScore {
			return e.endGameLocked()
		}
	}

	e.round++
	e.dealerIdx = (e.dealerIdx + 1) % len(e.players)
	e.gameState = GameRoundEnd
	return nil
}

func (e *Engine) endGameLocked() error {
	e.gameState = GameOver

	winner := e.players[0]
	for _, p := range e.players[1:] {
		if p.TotalScore > winner.TotalScore {
			winner = p
		}
	}

	scores := make([]PlayerScore, 0, len(e.players))
	for _, p := range e.players {
		scores = append(scores, PlayerScore{
			PlayerID:   p.ID,
			Name:       p.Name,
			Status:     p.Status,
			RoundScore: p.RoundScore,
			TotalScore: p.TotalScore,
		})
	}

	e.publish(GameEndedEvent{
		BaseEvent:     e.base(),
		WinnerID:      winner.ID,
		WinnerName:    winner.Name,
		Scores:        scores,
		Rounds:        e.round,
		Duration:      e.clock.Now().Sub(e.startedAt),
		Flip7Achieved: e.flip7Achieved,
	})
	e.logger.Info("game ended",
		"winner", winner.Name,
		"score", winner.TotalScore,
		"rounds", e.round)
	return nil
}

// abortLocked handles an unrecoverable fault, which with a conserved deck
// should never fire outside of tests with pathological compositions.
func (e *Engine) abortLocked(err error) error {
	e.gameState = GameOver
	e.logger.Error("game aborted", "error", err)
	return fmt.Errorf("draw failed: %w", err)
}

// --- turn flow ---

func (e *Engine) checkTurnLocked(playerID int) (*Player, error) {
	if e.gameState != GamePlaying || e.roundState != RoundPlaying {
		return nil, ErrWrongState
	}
	if e.pending != nil {
		return nil, ErrAwaitingTarget
	}
	p := e.playerByIDLocked(playerID)
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	if e.players[e.currentIdx].ID != playerID {
		return nil, ErrNotYourTurn
	}
	if p.Status != Active {
		return nil, ErrPlayerNotActive
	}
	return p, nil
}

func (e *Engine) afterTurnLocked() error {
	if e.roundShouldEndLocked() {
		return e.endRoundLocked()
	}
	if ft := e.flipThree; ft != nil {
		idx := e.indexOfPlayerLocked(ft.targetID)
		if e.currentIdx != idx {
			e.setTurnLocked(idx)
		}
		return nil
	}
	e.setTurnLocked(e.nextActiveIdxLocked(e.currentIdx))
	return nil
}

// nextActiveIdxLocked scans clockwise from the seat after `from`. Callers
// guarantee at least one active player remains.
func (e *Engine) nextActiveIdxLocked(from int) int {
	n := len(e.players)
	for i := 1; i <= n; i++ {
		idx := (from + i) % n
		if e.players[idx].Status == Active {
			return idx
		}
	}
	return from
}

func (e *Engine) setTurnLocked(idx int) {
	e.currentIdx = idx
	e.publish(TurnChangedEvent{BaseEvent: e.base(), PlayerID: e.players[idx].ID})
}

// --- card handling ---

// handleDrawLocked puts a drawn card into the hand and applies its immediate
// effect. The return value is true when the card is a Freeze or Flip Three
// that still needs a target; during a forced sequence those are deferred
// instead and the return value is always false.
func (e *Engine) handleDrawLocked(p *Player, card deck.Card, inFlipThree bool) bool {
	p.Hand = append(p.Hand, card)
	e.publish(CardDealtEvent{BaseEvent: e.base(), PlayerID: p.ID, Card: card})
	e.logger.Debug("card dealt", "player", p.Name, "card", card.String())

	needsTarget := false
	switch card.Kind {
	case deck.Number:
		if p.countNumber(card.Value) > 1 {
			if p.HasSecondChance() {
				// The duplicate and one Second Chance burn together.
				e.discardFromHandLocked(p, card)
				sc := p.removeCardAt(p.indexOfAction(deck.SecondChance))
				e.shoe.Discard(sc)
				e.publish(StatusChangedEvent{
					BaseEvent: e.base(),
					PlayerID:  p.ID,
					Status:    p.Status,
					Message:   fmt.Sprintf("%s used a Second Chance", p.Name),
				})
				e.logger.Debug("second chance used", "player", p.Name, "card", card.String())
			} else {
				p.Status = Busted
				e.publish(StatusChangedEvent{
					BaseEvent: e.base(),
					PlayerID:  p.ID,
					Status:    Busted,
					Message:   fmt.Sprintf("%s busted on a duplicate %d", p.Name, card.Value),
				})
				e.logger.Debug("player busted", "player", p.Name, "card", card.String())
			}
		} else if !inFlipThree && p.UniqueNumbers() == 7 {
			e.markFlip7Locked(p)
		}

	case deck.Modifier:
		if p.countModifier(card.Mod) > 1 {
			// No mitigation for duplicate modifiers.
			p.Status = Busted
			e.publish(StatusChangedEvent{
				BaseEvent: e.base(),
				PlayerID:  p.ID,
				Status:    Busted,
				Message:   fmt.Sprintf("%s busted on a duplicate %s", p.Name, card.Mod),
			})
		}

	case deck.Action:
		switch card.Action {
		case deck.SecondChance:
			if p.countSecondChance() > 1 {
				if inFlipThree {
					e.flipThree.deferred = append(e.flipThree.deferred,
						deferredAction{card: card, redistribute: true})
				} else {
					e.redistributeSecondChanceLocked(p, card)
				}
			}
		default:
			if inFlipThree {
				e.flipThree.deferred = append(e.flipThree.deferred, deferredAction{card: card})
			} else {
				needsTarget = true
			}
		}
	}

	p.RoundScore = Score(p.Hand, p.Status, e.cfg.Flip7Bonus)
	e.publish(HandChangedEvent{
		BaseEvent: e.base(),
		PlayerID:  p.ID,
		Hand:      append([]deck.Card(nil), p.Hand...),
		Score:     p.RoundScore,
	})
	return needsTarget
}

func (e *Engine) markFlip7Locked(p *Player) {
	p.Status = Flip7
	e.flip7Achieved = true
	e.publish(StatusChangedEvent{
		BaseEvent: e.base(),
		PlayerID:  p.ID,
		Status:    Flip7,
		Message:   fmt.Sprintf("%s flipped 7!", p.Name),
	})
	e.logger.Info("flip 7", "player", p.Name)
}

// redistributeSecondChanceLocked moves a surplus Second Chance from the
// holder to a random active player without one, or discards it when nobody
// can take it. Never suspends.
func (e *Engine) redistributeSecondChanceLocked(owner *Player, card deck.Card) {
	if owner.indexOfCardID(card.ID) < 0 {
		return // already consumed by mitigation
	}
	var eligible []*Player
	for _, p := range e.players {
		if p.ID != owner.ID && p.Status == Active && !p.HasSecondChance() {
			eligible = append(eligible, p)
		}
	}

	owner.removeCardAt(owner.indexOfCardID(card.ID))
	if len(eligible) == 0 {
		e.shoe.Discard(card)
		e.logger.Debug("surplus second chance discarded", "player", owner.Name)
	} else {
		r := randutil.Pick(e.rng, eligible)
		r.Hand = append(r.Hand, card)
		e.publish(CardDealtEvent{BaseEvent: e.base(), PlayerID: r.ID, Card: card})
		e.publish(HandChangedEvent{
			BaseEvent: e.base(),
			PlayerID:  r.ID,
			Hand:      append([]deck.Card(nil), r.Hand...),
			Score:     r.RoundScore,
		})
		e.logger.Debug("second chance redistributed", "from", owner.Name, "to", r.Name)
	}
	e.publish(HandChangedEvent{
		BaseEvent: e.base(),
		PlayerID:  owner.ID,
		Hand:      append([]deck.Card(nil), owner.Hand...),
		Score:     owner.RoundScore,
	})
}

// resolveActionLocked routes a Freeze or Flip Three to its target. AI
// sources and single-candidate cases resolve inline; a human source with a
// real choice suspends the engine until ResolveTarget.
func (e *Engine) resolveActionLocked(source *Player, card deck.Card, resume resumeKind) {
	actives := e.activePlayersLocked()
	if len(actives) <= 1 {
		e.applyActionToTargetLocked(source, source, card)
		return
	}
	if source.AI {
		var target *Player
		if card.IsActionOf(deck.Freeze) {
			target = ChooseFreezeTarget(source, actives)
		} else {
			target = ChooseFlipThreeTarget(source, actives)
		}
		e.applyActionToTargetLocked(source, target, card)
		return
	}

	ids := make([]int, len(actives))
	for i, p := range actives {
		ids[i] = p.ID
	}
	e.tokenSeq++
	e.pending = &targetRequest{
		sourceID: source.ID,
		card:     card,
		eligible: ids,
		token:    e.tokenSeq,
		resume:   resume,
	}
	e.publish(ActionTargetNeededEvent{
		BaseEvent:   e.base(),
		SourceID:    source.ID,
		Card:        card,
		EligibleIDs: ids,
		Token:       e.tokenSeq,
	})
	e.logger.Debug("awaiting action target", "player", source.Name, "card", card.String())
}

// applyActionToTargetLocked takes the action card out of the source's hand
// and applies it: Freeze locks the target in, Flip Three starts (or
// schedules, or parks) a forced sequence.
func (e *Engine) applyActionToTargetLocked(source, target *Player, card deck.Card) {
	if i := source.indexOfCardID(card.ID); i >= 0 {
		source.removeCardAt(i)
		e.publish(HandChangedEvent{
			BaseEvent: e.base(),
			PlayerID:  source.ID,
			Hand:      append([]deck.Card(nil), source.Hand...),
			Score:     source.RoundScore,
		})
	}

	switch card.Action {
	case deck.Freeze:
		e.shoe.Discard(card)
		target.Status = Stayed
		target.Frozen = true
		e.cancelFlipThreeLocked(target)
		e.publish(StatusChangedEvent{
			BaseEvent: e.base(),
			PlayerID:  target.ID,
			Status:    Stayed,
			Frozen:    true,
			Message:   fmt.Sprintf("%s is frozen with %d", target.Name, target.RoundScore),
		})
		e.logger.Debug("player frozen", "source", source.Name, "target", target.Name)

	case deck.FlipThree:
		switch {
		case e.roundState == RoundDealing && e.armed == nil && e.flipThree == nil:
			e.armed = &armedFlipThree{targetID: target.ID, card: card}
			e.logger.Debug("flip three scheduled after deal", "target", target.Name)
		case e.flipThree != nil || e.armed != nil:
			// Only one forced sequence at a time; park it for next round.
			e.carryover = append(e.carryover, card)
			e.logger.Debug("flip three parked for next round")
		default:
			e.startFlipThreeLocked(target, card)
		}
	}
}

// cancelFlipThreeLocked destroys a forced sequence whose pinned target has
// just left Active. Without this a sequence started by one drained deferral
// would survive a Freeze from a later deferral, leaving the turn pinned on a
// player who can no longer act. The sequence's card and any unresolved
// deferrals go to the discard.
func (e *Engine) cancelFlipThreeLocked(target *Player) {
	ft := e.flipThree
	if ft == nil || ft.targetID != target.ID {
		return
	}
	e.flipThree = nil
	e.shoe.Discard(ft.card)
	for _, d := range ft.deferred {
		e.discardFromHandLocked(target, d.card)
	}
	e.logger.Debug("flip three cancelled by freeze", "target", target.Name)
}

func (e *Engine) startFlipThreeLocked(target *Player, card deck.Card) {
	e.flipThree = &flipThreeState{targetID: target.ID, remaining: 3, card: card}
	e.publish(StatusChangedEvent{
		BaseEvent: e.base(),
		PlayerID:  target.ID,
		Status:    target.Status,
		Message:   fmt.Sprintf("%s must flip three", target.Name),
	})
	e.logger.Debug("flip three started", "target", target.Name)
	e.setTurnLocked(e.indexOfPlayerLocked(target.ID))
}

// flipThreeStepLocked consumes one forced draw. Action cards drawn here are
// deferred; the sequence ends early on a bust, a freeze-out or seven uniques.
func (e *Engine) flipThreeStepLocked(p *Player, card deck.Card) error {
	ft := e.flipThree
	e.handleDrawLocked(p, card, true)
	ft.remaining--

	done := ft.remaining == 0 || p.Status != Active || p.UniqueNumbers() == 7
	if !done {
		return nil // turn stays pinned
	}
	return e.endFlipThreeLocked()
}

func (e *Engine) endFlipThreeLocked() error {
	ft := e.flipThree
	e.flipThree = nil
	e.shoe.Discard(ft.card)
	p := e.playerByIDLocked(ft.targetID)

	if p.Status == Active && p.UniqueNumbers() == 7 {
		e.markFlip7Locked(p)
		p.RoundScore = Score(p.Hand, p.Status, e.cfg.Flip7Bonus)
		e.publish(HandChangedEvent{
			BaseEvent: e.base(),
			PlayerID:  p.ID,
			Hand:      append([]deck.Card(nil), p.Hand...),
			Score:     p.RoundScore,
		})
	}

	if p.Status == Active && !e.roundShouldEndLocked() && len(ft.deferred) > 0 {
		e.drain = &drainState{ownerID: p.ID, queue: ft.deferred}
		return e.drainDeferredLocked()
	}

	// Sequence ended badly; deferred cards are never resolved.
	for _, d := range ft.deferred {
		e.discardFromHandLocked(p, d.card)
	}
	if len(ft.deferred) > 0 {
		e.publish(HandChangedEvent{
			BaseEvent: e.base(),
			PlayerID:  p.ID,
			Hand:      append([]deck.Card(nil), p.Hand...),
			Score:     p.RoundScore,
		})
	}
	return e.afterTurnLocked()
}

// drainDeferredLocked dispatches queued action cards one at a time. A human
// target choice suspends the drain; ResolveTarget resumes it.
func (e *Engine) drainDeferredLocked() error {
	d := e.drain
	owner := e.playerByIDLocked(d.ownerID)

	for len(d.queue) > 0 {
		item := d.queue[0]
		d.queue = d.queue[1:]

		if owner.Status != Active || e.roundShouldEndLocked() {
			e.discardFromHandLocked(owner, item.card)
			for _, rest := range d.queue {
				e.discardFromHandLocked(owner, rest.card)
			}
			d.queue = nil
			break
		}
		if owner.indexOfCardID(item.card.ID) < 0 {
			continue // consumed by a Second Chance mitigation in the meantime
		}
		if item.redistribute {
			e.redistributeSecondChanceLocked(owner, item.card)
			continue
		}
		e.resolveActionLocked(owner, item.card, resumeDrain)
		if e.pending != nil {
			return nil
		}
	}

	e.drain = nil
	return e.afterTurnLocked()
}

// --- helpers ---

func (e *Engine) discardFromHandLocked(p *Player, card deck.Card) {
	if i := p.indexOfCardID(card.ID); i >= 0 {
		p.removeCardAt(i)
		e.shoe.Discard(card)
	}
}

func (e *Engine) activePlayersLocked() []*Player {
	var actives []*Player
	for _, p := range e.players {
		if p.Status == Active {
			actives = append(actives, p)
		}
	}
	return actives
}

func (e *Engine) playerByIDLocked(id int) *Player {
	for _, p := range e.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (e *Engine) indexOfPlayerLocked(id int) int {
	for i, p := range e.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) base() BaseEvent {
	return BaseEvent{OccurredAt: e.clock.Now()}
}

func (e *Engine) publish(ev GameEvent) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}
