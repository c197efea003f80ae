package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lox/flipseven/internal/game"
)

// EventMsg wraps a game event for the bubbletea update loop.
type EventMsg struct {
	Event game.GameEvent
}

// sender is the slice of tea.Program the bridge needs.
type sender interface {
	Send(tea.Msg)
}

// Bridge forwards engine events into a running bubbletea program. Events are
// published synchronously while the engine holds its lock, and the update
// loop reads engine snapshots, so HandleEvent must never block: it queues
// into a buffered channel drained by a forwarding goroutine, and drops the
// event if the queue is full. A dropped event only costs a log line; the
// view renders from snapshots, not from the event stream.
type Bridge struct {
	queue chan game.GameEvent
	done  chan struct{}
}

// NewBridge creates a bridge targeting the program and starts its forwarder.
func NewBridge(program *tea.Program) *Bridge {
	return newBridge(program)
}

func newBridge(s sender) *Bridge {
	b := &Bridge{
		queue: make(chan game.GameEvent, 512),
		done:  make(chan struct{}),
	}
	go b.forward(s)
	return b
}

// HandleEvent implements game.EventSubscriber.
func (b *Bridge) HandleEvent(ev game.GameEvent) {
	select {
	case b.queue <- ev:
	default:
	}
}

// Close stops the forwarder after draining queued events.
func (b *Bridge) Close() {
	close(b.queue)
	<-b.done
}

func (b *Bridge) forward(s sender) {
	defer close(b.done)
	for ev := range b.queue {
		s.Send(EventMsg{Event: ev})
	}
}

var _ game.EventSubscriber = (*Bridge)(nil)
