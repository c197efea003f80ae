package game

import (
	"sync"
	"time"

	"github.com/lox/flipseven/internal/deck"
)

// EventType identifies the kind of a game event.
type EventType string

const (
	EventCardDealt          EventType = "card_dealt"
	EventHandChanged        EventType = "hand_changed"
	EventStatusChanged      EventType = "status_changed"
	EventCountsChanged      EventType = "counts_changed"
	EventTurnChanged        EventType = "turn_changed"
	EventActionTargetNeeded EventType = "action_target_needed"
	EventRoundStarted       EventType = "round_started"
	EventRoundEnded         EventType = "round_ended"
	EventGameEnded          EventType = "game_ended"
)

// GameEvent is the interface all events implement.
type GameEvent interface {
	EventType() EventType
	Timestamp() time.Time
}

// BaseEvent provides the timestamp common to all events.
type BaseEvent struct {
	OccurredAt time.Time
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time { return e.OccurredAt }

// CardDealtEvent fires when a card lands in a player's hand.
type CardDealtEvent struct {
	BaseEvent
	PlayerID int
	Card     deck.Card
}

func (e CardDealtEvent) EventType() EventType { return EventCardDealt }

// HandChangedEvent carries a player's full hand after any mutation, with the
// running score for display.
type HandChangedEvent struct {
	BaseEvent
	PlayerID int
	Hand     []deck.Card
	Score    int
}

func (e HandChangedEvent) EventType() EventType { return EventHandChanged }

// StatusChangedEvent fires when a player's round standing changes.
type StatusChangedEvent struct {
	BaseEvent
	PlayerID int
	Status   Status
	Frozen   bool
	Message  string
}

func (e StatusChangedEvent) EventType() EventType { return EventStatusChanged }

// CountsChangedEvent carries the pile sizes after a draw or discard.
type CountsChangedEvent struct {
	BaseEvent
	DeckSize    int
	DiscardSize int
}

func (e CountsChangedEvent) EventType() EventType { return EventCountsChanged }

// TurnChangedEvent fires when the turn pointer moves.
type TurnChangedEvent struct {
	BaseEvent
	PlayerID int
}

func (e TurnChangedEvent) EventType() EventType { return EventTurnChanged }

// ActionTargetNeededEvent fires when a human-held action card needs a target.
// The token must be echoed back to ResolveTarget; a stale token is ignored.
type ActionTargetNeededEvent struct {
	BaseEvent
	SourceID    int
	Card        deck.Card
	EligibleIDs []int
	Token       uint64
}

func (e ActionTargetNeededEvent) EventType() EventType { return EventActionTargetNeeded }

// RoundStartedEvent fires after hands are cleared and before the initial deal.
type RoundStartedEvent struct {
	BaseEvent
	Round    int
	DealerID int
}

func (e RoundStartedEvent) EventType() EventType { return EventRoundStarted }

// PlayerScore is one line of a round or game scoreboard.
type PlayerScore struct {
	PlayerID   int
	Name       string
	Status     Status
	RoundScore int
	TotalScore int
}

// RoundEndedEvent carries the finalized scoreboard for the round.
type RoundEndedEvent struct {
	BaseEvent
	Round  int
	Scores []PlayerScore
}

func (e RoundEndedEvent) EventType() EventType { return EventRoundEnded }

// GameEndedEvent fires once when a player reaches the target score.
type GameEndedEvent struct {
	BaseEvent
	WinnerID      int
	WinnerName    string
	Scores        []PlayerScore
	Rounds        int
	Duration      time.Duration
	Flip7Achieved bool
}

func (e GameEndedEvent) EventType() EventType { return EventGameEnded }

// EventSubscriber receives game events.
type EventSubscriber interface {
	HandleEvent(event GameEvent)
}

// EventBus distributes game events to subscribers.
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event GameEvent)
}

// SimpleEventBus is a synchronous in-process event bus. Publish calls each
// subscriber inline, in subscription order, so handlers must not call back
// into the engine.
type SimpleEventBus struct {
	mu          sync.RWMutex
	subscribers []EventSubscriber
}

// NewSimpleEventBus creates a new event bus.
func NewSimpleEventBus() *SimpleEventBus {
	return &SimpleEventBus{}
}

// Subscribe adds a subscriber to the bus.
func (b *SimpleEventBus) Subscribe(subscriber EventSubscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, subscriber)
}

// Unsubscribe removes a subscriber from the bus.
func (b *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subscribers {
		if s == subscriber {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// Publish delivers an event to all current subscribers.
func (b *SimpleEventBus) Publish(event GameEvent) {
	b.mu.RLock()
	subs := make([]EventSubscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, s := range subs {
		s.HandleEvent(event)
	}
}
