package game

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// Runner plays AI turns in the background so that humans at a terminal see
// opponents act at a readable pace. It watches the event bus and, whenever
// the turn lands on an AI seat, waits the think delay and submits the move.
// The engine revalidates everything, so a move raced by other input is just
// rejected.
type Runner struct {
	engine *Engine
	clock  quartz.Clock
	logger *log.Logger
	delay  time.Duration

	autoAdvance bool

	notify chan struct{}
	stop   chan struct{}
	done   chan struct{}
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerClock sets the clock used for think delays.
func WithRunnerClock(clock quartz.Clock) RunnerOption {
	return func(r *Runner) { r.clock = clock }
}

// WithRunnerLogger sets the runner logger.
func WithRunnerLogger(logger *log.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithThinkDelay sets the pause before each AI move.
func WithThinkDelay(d time.Duration) RunnerOption {
	return func(r *Runner) { r.delay = d }
}

// WithAutoAdvance makes the runner deal the next round itself once a round
// is scored, instead of waiting for the presentation layer.
func WithAutoAdvance() RunnerOption {
	return func(r *Runner) { r.autoAdvance = true }
}

// NewRunner creates a runner for the engine. Call Start to begin.
func NewRunner(engine *Engine, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine: engine,
		clock:  quartz.NewReal(),
		logger: log.New(io.Discard),
		delay:  800 * time.Millisecond,
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleEvent implements EventSubscriber. It only pokes the loop; the loop
// reads fresh state itself.
func (r *Runner) HandleEvent(GameEvent) {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Start subscribes to the engine bus and begins playing AI turns.
func (r *Runner) Start() {
	r.engine.Bus().Subscribe(r)
	// Kick once in case the turn is already on an AI seat.
	r.HandleEvent(nil)
	go r.loop()
}

// Stop halts the runner and waits for the loop to exit.
func (r *Runner) Stop() {
	r.engine.Bus().Unsubscribe(r)
	close(r.stop)
	<-r.done
}

func (r *Runner) loop() {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			return
		case <-r.notify:
		}
		if !r.pause() {
			return
		}
		r.step()
	}
}

// pause waits the think delay, returning false if stopped meanwhile.
func (r *Runner) pause() bool {
	if r.delay <= 0 {
		return true
	}
	timer := r.clock.NewTimer(r.delay)
	defer timer.Stop()
	select {
	case <-r.stop:
		return false
	case <-timer.C:
		return true
	}
}

func (r *Runner) step() {
	snap := r.engine.Snapshot()
	if snap.GameState == GameRoundEnd && r.autoAdvance {
		if err := r.engine.StartNextRound(); err != nil {
			r.logger.Debug("auto advance rejected", "error", err)
		}
		return
	}
	if snap.GameState != GamePlaying || snap.RoundState != RoundPlaying || snap.Pending != nil {
		return
	}

	var current *PlayerView
	for i := range snap.Players {
		if snap.Players[i].ID == snap.CurrentID {
			current = &snap.Players[i]
			break
		}
	}
	if current == nil || !current.AI || current.Status != Active {
		return
	}

	move := Hit
	if snap.FlipThree == nil || snap.FlipThree.TargetID != current.ID {
		// The policy is pure, so a stand-in built from the view suffices.
		p := &Player{
			ID:         current.ID,
			Difficulty: current.Difficulty,
			Hand:       current.Hand,
			RoundScore: current.RoundScore,
		}
		move = ChooseMove(p, snap.DeckSize)
	}

	var err error
	if move == Stay {
		err = r.engine.RequestStay(current.ID)
	} else {
		err = r.engine.RequestHit(current.ID)
	}
	if err != nil {
		// State moved under us; the next event retriggers the loop.
		r.logger.Debug("ai move rejected", "player", current.Name, "move", move.String(), "error", err)
	}
}

var _ EventSubscriber = (*Runner)(nil)
