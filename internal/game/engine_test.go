package game

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lox/flipseven/internal/deck"
	"github.com/lox/flipseven/internal/randutil"
)

func num(id, v int) deck.Card { return deck.NewNumber(id, v) }

func action(id int, k deck.ActionKind) deck.Card { return deck.NewAction(id, k) }

func humans(n int) []PlayerConfig {
	configs := make([]PlayerConfig, n)
	for i := range configs {
		configs[i] = PlayerConfig{Name: fmt.Sprintf("P%d", i)}
	}
	return configs
}

// stackedEngine starts a game whose shoe deals exactly the given cards in
// order. The dealer is seat 0, so the deal goes P0, P1, ... and play begins
// with the first active seat after the dealer.
func stackedEngine(t *testing.T, stack []deck.Card, configs []PlayerConfig, target int) *Engine {
	t.Helper()
	e := NewEngine(DefaultConfig(),
		WithRNG(randutil.New(1)),
		WithStackedDeck(stack),
	)
	if err := e.StartGame(configs, target); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	return e
}

type eventCollector struct {
	events []GameEvent
}

func (c *eventCollector) HandleEvent(ev GameEvent) {
	c.events = append(c.events, ev)
}

func (c *eventCollector) ofType(et EventType) []GameEvent {
	var out []GameEvent
	for _, ev := range c.events {
		if ev.EventType() == et {
			out = append(out, ev)
		}
	}
	return out
}

func TestStartGameValidation(t *testing.T) {
	t.Parallel()
	e := NewEngine(DefaultConfig(), WithRNG(randutil.New(1)))

	if err := e.StartGame(humans(1), 0); err == nil {
		t.Error("expected error for a single player")
	}
	if err := e.StartGame(humans(2), 0); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if err := e.StartGame(humans(2), 0); !errors.Is(err, ErrWrongState) {
		t.Errorf("second StartGame should be rejected, got %v", err)
	}
}

func TestInitialDealAndTurnOrder(t *testing.T) {
	t.Parallel()
	e := stackedEngine(t, []deck.Card{num(1, 5), num(2, 6), num(3, 7)}, humans(3), 200)

	snap := e.Snapshot()
	if snap.GameState != GamePlaying || snap.RoundState != RoundPlaying {
		t.Fatalf("unexpected state %v/%v", snap.GameState, snap.RoundState)
	}
	if snap.Round != 1 || snap.DealerID != 0 {
		t.Errorf("round=%d dealer=%d, want 1 and 0", snap.Round, snap.DealerID)
	}
	if snap.CurrentID != 1 {
		t.Errorf("play should start left of the dealer, current=%d", snap.CurrentID)
	}
	for i, want := range []int{5, 6, 7} {
		p := snap.Players[i]
		if len(p.Hand) != 1 || p.Hand[0].Value != want {
			t.Errorf("player %d hand %v, want single %d", i, p.Hand, want)
		}
		if p.RoundScore != want {
			t.Errorf("player %d round score %d, want %d", i, p.RoundScore, want)
		}
	}
}

func TestOutOfTurnAndWrongStateRejections(t *testing.T) {
	t.Parallel()
	e := stackedEngine(t, []deck.Card{num(1, 5), num(2, 6), num(3, 7)}, humans(3), 200)

	if err := e.RequestHit(2); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("hit out of turn: got %v", err)
	}
	if err := e.RequestStay(0); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("stay out of turn: got %v", err)
	}
	if err := e.RequestHit(42); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("unknown player: got %v", err)
	}
	if err := e.ResolveTarget(1, 0); !errors.Is(err, ErrNoPendingTarget) {
		t.Errorf("resolve with nothing pending: got %v", err)
	}
	if err := e.StartNextRound(); !errors.Is(err, ErrWrongState) {
		t.Errorf("next round mid-round: got %v", err)
	}
}

func TestBustOnDuplicateNumber(t *testing.T) {
	t.Parallel()
	stack := []deck.Card{num(1, 5), num(2, 6), num(3, 7), num(4, 6)}
	e := stackedEngine(t, stack, humans(3), 200)

	if err := e.RequestHit(1); err != nil {
		t.Fatalf("hit: %v", err)
	}
	snap := e.Snapshot()
	p1 := snap.Players[1]
	if p1.Status != Busted {
		t.Fatalf("player 1 should be busted, is %v", p1.Status)
	}
	if p1.RoundScore != 0 {
		t.Errorf("busted round score %d, want 0", p1.RoundScore)
	}
	if len(p1.Hand) != 2 {
		t.Errorf("busted hand should keep both cards, has %d", len(p1.Hand))
	}
	if snap.CurrentID != 2 {
		t.Errorf("turn should pass to player 2, current=%d", snap.CurrentID)
	}

	if err := e.RequestHit(1); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("busted player hitting again: got %v", err)
	}
}

func TestDuplicateModifierBustsWithoutMitigation(t *testing.T) {
	t.Parallel()
	x2 := deck.ModifierValue{Times: 2}
	stack := []deck.Card{
		deck.NewModifier(1, x2), num(2, 6),
		action(3, deck.SecondChance), // P1 hit: holds a second chance
		deck.NewModifier(4, x2),      // P0 hit: duplicate x2
	}
	e := stackedEngine(t, stack, humans(2), 200)

	if err := e.RequestHit(1); err != nil {
		t.Fatalf("hit: %v", err)
	}
	if err := e.RequestHit(0); err != nil {
		t.Fatalf("hit: %v", err)
	}
	snap := e.Snapshot()
	if snap.Players[0].Status != Busted {
		t.Fatalf("duplicate modifier must bust even alongside a second chance elsewhere, status %v",
			snap.Players[0].Status)
	}
}

func TestSecondChanceMitigation(t *testing.T) {
	t.Parallel()
	stack := []deck.Card{
		action(1, deck.SecondChance), num(2, 5), // deal
		num(3, 9), // P1 hit
		num(4, 7), // P0 hit
		num(5, 7), // P0 hit: duplicate, mitigated
		num(6, 7), // P0 hit: duplicate again, no second chance left
	}
	e := stackedEngine(t, stack, humans(2), 200)

	if err := e.RequestHit(1); err != nil {
		t.Fatalf("P1 hit: %v", err)
	}
	if err := e.RequestHit(0); err != nil {
		t.Fatalf("P0 hit: %v", err)
	}
	if err := e.RequestStay(1); err != nil {
		t.Fatalf("P1 stay: %v", err)
	}

	if err := e.RequestHit(0); err != nil {
		t.Fatalf("P0 mitigated hit: %v", err)
	}
	snap := e.Snapshot()
	p0 := snap.Players[0]
	if p0.Status != Active {
		t.Fatalf("mitigation should keep the player active, status %v", p0.Status)
	}
	if len(p0.Hand) != 1 || !p0.Hand[0].IsNumber() || p0.Hand[0].Value != 7 {
		t.Fatalf("after mitigation hand should be a lone 7, got %v", p0.Hand)
	}
	if snap.DiscardSize != 2 {
		t.Errorf("duplicate and second chance should be discarded, discard=%d", snap.DiscardSize)
	}

	if err := e.RequestHit(0); err != nil {
		t.Fatalf("P0 final hit: %v", err)
	}
	snap = e.Snapshot()
	if snap.Players[0].Status != Busted {
		t.Fatalf("second duplicate must bust, status %v", snap.Players[0].Status)
	}
	// No actives remain, so the round is scored.
	if snap.GameState != GameRoundEnd {
		t.Fatalf("round should have ended, state %v", snap.GameState)
	}
	if got := snap.Players[1].TotalScore; got != 14 {
		t.Errorf("P1 total %d, want 14", got)
	}
	if got := snap.Players[0].TotalScore; got != 0 {
		t.Errorf("P0 total %d, want 0", got)
	}
	if snap.Round != 2 || snap.DealerID != 1 {
		t.Errorf("round=%d dealer=%d, want 2 and 1", snap.Round, snap.DealerID)
	}
}

func TestFlip7EndsRoundWithBonus(t *testing.T) {
	t.Parallel()
	stack := []deck.Card{
		num(1, 1), num(2, 2), // deal
		num(3, 3), num(4, 4), num(5, 5), num(6, 6), num(7, 7), num(8, 8), // P0 hits
	}
	e := stackedEngine(t, stack, humans(2), 200)

	collector := &eventCollector{}
	e.Bus().Subscribe(collector)

	if err := e.RequestStay(1); err != nil {
		t.Fatalf("stay: %v", err)
	}
	for i := 0; i < 6; i++ {
		if err := e.RequestHit(0); err != nil {
			t.Fatalf("hit %d: %v", i, err)
		}
	}

	snap := e.Snapshot()
	if snap.Players[0].Status != Flip7 {
		t.Fatalf("seven uniques should flip 7, status %v", snap.Players[0].Status)
	}
	if snap.GameState != GameRoundEnd {
		t.Fatalf("flip 7 must end the round, state %v", snap.GameState)
	}
	// 1+3+4+5+6+7+8 = 34, plus the 15 point bonus.
	if got := snap.Players[0].TotalScore; got != 49 {
		t.Errorf("flip 7 total %d, want 49", got)
	}
	if got := snap.Players[1].TotalScore; got != 2 {
		t.Errorf("stayed total %d, want 2", got)
	}
	if ends := collector.ofType(EventRoundEnded); len(ends) != 1 {
		t.Errorf("expected one round ended event, got %d", len(ends))
	}
}

func TestFreezeSuspendsForHumanTarget(t *testing.T) {
	t.Parallel()
	stack := []deck.Card{
		num(1, 3), num(2, 4), num(3, 5), // deal
		action(4, deck.Freeze), // P1 hit
	}
	e := stackedEngine(t, stack, humans(3), 200)

	collector := &eventCollector{}
	e.Bus().Subscribe(collector)

	if err := e.RequestHit(1); err != nil {
		t.Fatalf("hit: %v", err)
	}

	snap := e.Snapshot()
	if snap.Pending == nil {
		t.Fatal("freeze from a human with multiple actives should suspend")
	}
	if snap.Pending.SourceID != 1 || len(snap.Pending.EligibleIDs) != 3 {
		t.Errorf("pending source=%d eligible=%v", snap.Pending.SourceID, snap.Pending.EligibleIDs)
	}
	needed := collector.ofType(EventActionTargetNeeded)
	if len(needed) != 1 {
		t.Fatalf("expected one target request event, got %d", len(needed))
	}
	token := needed[0].(ActionTargetNeededEvent).Token
	if token != snap.Pending.Token {
		t.Fatalf("event token %d does not match snapshot token %d", token, snap.Pending.Token)
	}

	// Turn actions are blocked while suspended.
	if err := e.RequestHit(2); !errors.Is(err, ErrAwaitingTarget) {
		t.Errorf("hit while suspended: got %v", err)
	}
	if err := e.RequestStay(1); !errors.Is(err, ErrAwaitingTarget) {
		t.Errorf("stay while suspended: got %v", err)
	}

	// A stale token is a silent no-op; the request stays pending.
	if err := e.ResolveTarget(token+100, 0); err != nil {
		t.Errorf("stale token should be ignored, got %v", err)
	}
	if e.Snapshot().Pending == nil {
		t.Fatal("stale token must not consume the pending request")
	}

	if err := e.ResolveTarget(token, 42); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("ineligible target: got %v", err)
	}

	if err := e.ResolveTarget(token, 0); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	snap = e.Snapshot()
	p0 := snap.Players[0]
	if p0.Status != Stayed || !p0.Frozen {
		t.Errorf("target should be frozen out, status=%v frozen=%v", p0.Status, p0.Frozen)
	}
	if snap.CurrentID != 2 {
		t.Errorf("turn should move on to player 2, current=%d", snap.CurrentID)
	}
	if snap.DiscardSize != 1 {
		t.Errorf("freeze card should be discarded, discard=%d", snap.DiscardSize)
	}
	// The freeze card never stays in the drawer's hand.
	if len(snap.Players[1].Hand) != 1 {
		t.Errorf("player 1 hand %v, want just the dealt card", snap.Players[1].Hand)
	}
}

func TestFreezeFromAIResolvesInline(t *testing.T) {
	t.Parallel()
	configs := humans(3)
	configs[1].AI = true
	stack := []deck.Card{
		num(1, 3), num(2, 4), num(3, 9), // deal: P2 is the richest
		action(4, deck.Freeze), // P1 (AI) hit
	}
	e := stackedEngine(t, stack, configs, 200)

	if err := e.RequestHit(1); err != nil {
		t.Fatalf("hit: %v", err)
	}
	snap := e.Snapshot()
	if snap.Pending != nil {
		t.Fatal("AI freeze must not suspend")
	}
	if snap.Players[2].Status != Stayed || !snap.Players[2].Frozen {
		t.Errorf("AI should freeze the richest opponent, P2 status=%v", snap.Players[2].Status)
	}
}

func TestFreezeWithLoneActiveSelfTargets(t *testing.T) {
	t.Parallel()
	stack := []deck.Card{
		num(1, 3), num(2, 4), // deal
		action(3, deck.Freeze), // P0 hit after P1 stays
	}
	e := stackedEngine(t, stack, humans(2), 200)

	if err := e.RequestStay(1); err != nil {
		t.Fatalf("stay: %v", err)
	}
	if err := e.RequestHit(0); err != nil {
		t.Fatalf("hit: %v", err)
	}
	snap := e.Snapshot()
	if snap.Players[0].Status != Stayed || !snap.Players[0].Frozen {
		t.Errorf("lone active drawing freeze must freeze themselves, status=%v", snap.Players[0].Status)
	}
	// Both players out ends the round.
	if snap.GameState != GameRoundEnd {
		t.Errorf("round should have ended, state %v", snap.GameState)
	}
	// The frozen player still banks their hand.
	if got := snap.Players[0].TotalScore; got != 3 {
		t.Errorf("frozen player total %d, want 3", got)
	}
}

func TestFlipThreeForcedDraws(t *testing.T) {
	t.Parallel()
	stack := []deck.Card{
		num(1, 1), num(2, 2), // deal
		action(3, deck.FlipThree),      // P1 hit
		num(4, 5), num(5, 6), num(6, 7), // forced draws
	}
	e := stackedEngine(t, stack, humans(2), 200)

	if err := e.RequestHit(1); err != nil {
		t.Fatalf("hit: %v", err)
	}
	snap := e.Snapshot()
	if snap.Pending == nil {
		t.Fatal("human flip three with two actives should suspend")
	}
	if err := e.ResolveTarget(snap.Pending.Token, 1); err != nil {
		t.Fatalf("resolve self: %v", err)
	}

	snap = e.Snapshot()
	if snap.FlipThree == nil || snap.FlipThree.TargetID != 1 || snap.FlipThree.Remaining != 3 {
		t.Fatalf("flip three not armed correctly: %+v", snap.FlipThree)
	}
	if snap.CurrentID != 1 {
		t.Fatalf("turn must pin on the forced player, current=%d", snap.CurrentID)
	}

	if err := e.RequestStay(1); !errors.Is(err, ErrMustDraw) {
		t.Errorf("staying mid sequence: got %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := e.RequestHit(1); err != nil {
			t.Fatalf("forced draw %d: %v", i, err)
		}
	}
	snap = e.Snapshot()
	if snap.FlipThree != nil {
		t.Fatal("sequence should be over after three draws")
	}
	if got := len(snap.Players[1].Hand); got != 4 {
		t.Errorf("hand should hold 2,5,6,7, has %d cards", got)
	}
	if snap.DiscardSize != 1 {
		t.Errorf("flip three card should be discarded at teardown, discard=%d", snap.DiscardSize)
	}
	if snap.CurrentID != 0 {
		t.Errorf("turn should move to player 0, current=%d", snap.CurrentID)
	}
}

func TestFlipThreeWithLoneActiveSelfTargets(t *testing.T) {
	t.Parallel()
	stack := []deck.Card{
		num(1, 3), num(2, 4), // deal
		action(3, deck.FlipThree),       // P0 hit after P1 stays
		num(4, 5), num(5, 6), num(6, 7), // forced draws
	}
	e := stackedEngine(t, stack, humans(2), 200)

	if err := e.RequestStay(1); err != nil {
		t.Fatalf("stay: %v", err)
	}
	if err := e.RequestHit(0); err != nil {
		t.Fatalf("hit: %v", err)
	}

	// A lone active drawing flip three starts the sequence on themselves
	// without asking for a target.
	snap := e.Snapshot()
	if snap.Pending != nil {
		t.Fatalf("lone active flip three should not suspend, pending=%+v", snap.Pending)
	}
	if snap.FlipThree == nil || snap.FlipThree.TargetID != 0 || snap.FlipThree.Remaining != 3 {
		t.Fatalf("flip three should pin player 0 for 3 draws, got %+v", snap.FlipThree)
	}
	if err := e.RequestStay(0); !errors.Is(err, ErrMustDraw) {
		t.Errorf("stay during forced draws should fail, got %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := e.RequestHit(0); err != nil {
			t.Fatalf("forced draw %d: %v", i, err)
		}
	}
	snap = e.Snapshot()
	if snap.FlipThree != nil {
		t.Errorf("sequence should be torn down, got %+v", snap.FlipThree)
	}
	if got := snap.Players[0].RoundScore; got != 21 {
		t.Errorf("round score %d, want 21", got)
	}
	// P0 keeps playing alone.
	if snap.CurrentID != 0 || snap.GameState != GamePlaying {
		t.Errorf("current=%d state=%v, want player 0 still playing", snap.CurrentID, snap.GameState)
	}
}

func TestFreezeOnFlipThreeTargetDestroysSequence(t *testing.T) {
	t.Parallel()
	// Two deferred actions: the first starts a fresh sequence on P1, the
	// second freezes P1 while that sequence is pinned on them. The freeze
	// must destroy the sequence, or the turn stays stuck on a player who
	// can no longer act.
	stack := []deck.Card{
		num(1, 1), num(2, 2), // deal
		action(3, deck.FlipThree), // P1 hit
		action(4, deck.FlipThree), action(5, deck.Freeze), num(6, 6), // forced draws, both actions deferred
		num(7, 9), // P0 keeps playing
	}
	e := stackedEngine(t, stack, humans(2), 200)

	if err := e.RequestHit(1); err != nil {
		t.Fatalf("hit: %v", err)
	}
	if err := e.ResolveTarget(e.Snapshot().Pending.Token, 1); err != nil {
		t.Fatalf("resolve flip three: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := e.RequestHit(1); err != nil {
			t.Fatalf("forced draw %d: %v", i, err)
		}
	}

	// First deferral: a second flip three, again on P1.
	snap := e.Snapshot()
	if snap.Pending == nil {
		t.Fatal("deferred flip three should suspend for a target")
	}
	if err := e.ResolveTarget(snap.Pending.Token, 1); err != nil {
		t.Fatalf("resolve second flip three: %v", err)
	}

	// Second deferral: a freeze onto the player the new sequence is pinned to.
	snap = e.Snapshot()
	if snap.Pending == nil {
		t.Fatal("deferred freeze should suspend for a target")
	}
	if err := e.ResolveTarget(snap.Pending.Token, 1); err != nil {
		t.Fatalf("resolve freeze: %v", err)
	}

	snap = e.Snapshot()
	if snap.FlipThree != nil {
		t.Fatalf("freezing the pinned target must destroy the sequence, got %+v", snap.FlipThree)
	}
	if snap.Players[1].Status != Stayed || !snap.Players[1].Frozen {
		t.Errorf("player 1 should be frozen out, status=%v", snap.Players[1].Status)
	}
	// Both flip three cards and the freeze are in the discard.
	if snap.DiscardSize != 3 {
		t.Errorf("discard=%d, want 3", snap.DiscardSize)
	}
	// Play moves on to P0 instead of wedging on the frozen seat.
	if snap.CurrentID != 0 || snap.GameState != GamePlaying {
		t.Fatalf("current=%d state=%v, want player 0 to act", snap.CurrentID, snap.GameState)
	}
	if err := e.RequestHit(0); err != nil {
		t.Fatalf("player 0 should be able to keep playing: %v", err)
	}
}

func TestFlipThreeDeferredActionResolvesAfterSequence(t *testing.T) {
	t.Parallel()
	stack := []deck.Card{
		num(1, 1), num(2, 2), // deal
		action(3, deck.FlipThree),                  // P1 hit
		num(4, 5), action(5, deck.Freeze), num(6, 6), // forced draws, freeze deferred
	}
	e := stackedEngine(t, stack, humans(2), 200)

	if err := e.RequestHit(1); err != nil {
		t.Fatalf("hit: %v", err)
	}
	if err := e.ResolveTarget(e.Snapshot().Pending.Token, 1); err != nil {
		t.Fatalf("resolve self: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := e.RequestHit(1); err != nil {
			t.Fatalf("forced draw %d: %v", i, err)
		}
	}

	// The deferred freeze now needs a target.
	snap := e.Snapshot()
	if snap.FlipThree != nil {
		t.Fatal("sequence should be torn down before the deferred action")
	}
	if snap.Pending == nil || snap.Pending.SourceID != 1 {
		t.Fatalf("deferred freeze should suspend for a target, pending=%+v", snap.Pending)
	}
	if err := e.ResolveTarget(snap.Pending.Token, 0); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	snap = e.Snapshot()
	if snap.Players[0].Status != Stayed || !snap.Players[0].Frozen {
		t.Errorf("deferred freeze should land on player 0, status=%v", snap.Players[0].Status)
	}
	// Flip three card plus freeze card.
	if snap.DiscardSize != 2 {
		t.Errorf("discard=%d, want 2", snap.DiscardSize)
	}
	// P1 keeps playing alone.
	if snap.CurrentID != 1 || snap.GameState != GamePlaying {
		t.Errorf("current=%d state=%v, want player 1 still playing", snap.CurrentID, snap.GameState)
	}
	for _, c := range snap.Players[1].Hand {
		if c.IsAction() {
			t.Errorf("no action card should remain in the hand, found %s", c)
		}
	}
}

func TestFlipThreeBustDiscardsDeferredActions(t *testing.T) {
	t.Parallel()
	stack := []deck.Card{
		num(1, 1), num(2, 2), // deal
		action(3, deck.FlipThree), // P1 hit
		action(4, deck.Freeze),    // forced draw 1, deferred
		num(5, 2),                 // forced draw 2: duplicate, bust
	}
	e := stackedEngine(t, stack, humans(2), 200)

	if err := e.RequestHit(1); err != nil {
		t.Fatalf("hit: %v", err)
	}
	if err := e.ResolveTarget(e.Snapshot().Pending.Token, 1); err != nil {
		t.Fatalf("resolve self: %v", err)
	}
	if err := e.RequestHit(1); err != nil {
		t.Fatalf("forced draw 1: %v", err)
	}
	if err := e.RequestHit(1); err != nil {
		t.Fatalf("forced draw 2: %v", err)
	}

	snap := e.Snapshot()
	if snap.Players[1].Status != Busted {
		t.Fatalf("duplicate mid sequence should bust, status %v", snap.Players[1].Status)
	}
	if snap.FlipThree != nil || snap.Pending != nil {
		t.Fatal("bust must tear the sequence down and drop the deferred freeze")
	}
	// Flip three card plus the unresolved freeze.
	if snap.DiscardSize != 2 {
		t.Errorf("discard=%d, want 2", snap.DiscardSize)
	}
	if snap.Players[0].Status != Active || snap.CurrentID != 0 {
		t.Errorf("player 0 should play on, status=%v current=%d",
			snap.Players[0].Status, snap.CurrentID)
	}
}

func TestFlipThreeEndsEarlyOnFlip7(t *testing.T) {
	t.Parallel()
	stack := []deck.Card{
		num(1, 1), num(2, 2), num(3, 3), num(4, 4), num(5, 5), // P1 hits up to 5 uniques
		num(6, 6), action(7, deck.FlipThree), num(8, 7), num(9, 8),
	}
	// Deal: P0=1, P1=2. P1 hits 3,4,5,6 then draws flip three, self-targets,
	// and the second forced draw completes seven uniques.
	e := stackedEngine(t, stack, humans(2), 200)

	if err := e.RequestHit(1); err != nil { // 3
		t.Fatalf("hit: %v", err)
	}
	if err := e.RequestStay(0); err != nil {
		t.Fatalf("stay: %v", err)
	}
	for _, v := range []int{4, 5, 6} {
		if err := e.RequestHit(1); err != nil {
			t.Fatalf("hit %d: %v", v, err)
		}
	}
	if err := e.RequestHit(1); err != nil { // flip three
		t.Fatalf("hit flip three: %v", err)
	}
	// P0 stayed, so P1 is the only active and self-targets without suspending.
	snap := e.Snapshot()
	if snap.Pending != nil {
		t.Fatal("lone active should not suspend")
	}
	if snap.FlipThree == nil || snap.FlipThree.TargetID != 1 {
		t.Fatalf("flip three should pin player 1: %+v", snap.FlipThree)
	}

	if err := e.RequestHit(1); err != nil { // 6th unique
		t.Fatalf("forced draw: %v", err)
	}
	snap = e.Snapshot()
	if snap.FlipThree == nil || snap.FlipThree.Remaining != 2 {
		t.Fatalf("sequence should still be running: %+v", snap.FlipThree)
	}

	if err := e.RequestHit(1); err != nil { // 7th unique
		t.Fatalf("forced draw: %v", err)
	}
	snap = e.Snapshot()
	if snap.Players[1].Status != Flip7 {
		t.Fatalf("seventh unique should flip 7, status %v", snap.Players[1].Status)
	}
	if snap.GameState != GameRoundEnd {
		t.Fatalf("flip 7 ends the round even mid sequence, state %v", snap.GameState)
	}
	// 2+3+4+5+6+7+8 = 35, plus the bonus.
	if got := snap.Players[1].TotalScore; got != 50 {
		t.Errorf("total %d, want 50", got)
	}
}

func TestRoundRotationAndNextRound(t *testing.T) {
	t.Parallel()
	stack := []deck.Card{
		num(1, 10), num(2, 11), // round 1 deal
		num(3, 4), num(4, 5), // round 2 deal (dealer is now P1, so P1 first)
	}
	e := stackedEngine(t, stack, humans(2), 200)

	if err := e.RequestStay(1); err != nil {
		t.Fatalf("stay: %v", err)
	}
	if err := e.RequestStay(0); err != nil {
		t.Fatalf("stay: %v", err)
	}
	snap := e.Snapshot()
	if snap.GameState != GameRoundEnd {
		t.Fatalf("state %v, want round end", snap.GameState)
	}
	if snap.Players[0].TotalScore != 10 || snap.Players[1].TotalScore != 11 {
		t.Errorf("totals %d/%d, want 10/11",
			snap.Players[0].TotalScore, snap.Players[1].TotalScore)
	}

	if err := e.StartNextRound(); err != nil {
		t.Fatalf("StartNextRound: %v", err)
	}
	snap = e.Snapshot()
	if snap.Round != 2 || snap.DealerID != 1 {
		t.Errorf("round=%d dealer=%d, want 2 and 1", snap.Round, snap.DealerID)
	}
	// Dealer P1 is dealt first, and play starts left of them with P0.
	if snap.Players[1].Hand[0].Value != 4 || snap.Players[0].Hand[0].Value != 5 {
		t.Errorf("round 2 deal order wrong: %v / %v",
			snap.Players[1].Hand, snap.Players[0].Hand)
	}
	if snap.CurrentID != 0 {
		t.Errorf("current=%d, want 0", snap.CurrentID)
	}
	if snap.Players[0].RoundScore != 5 || snap.Players[0].TotalScore != 10 {
		t.Errorf("round score should reset, totals persist: %+v", snap.Players[0])
	}
}

func TestGameEndsAtTargetScore(t *testing.T) {
	t.Parallel()
	stack := []deck.Card{num(1, 10), num(2, 11)}
	e := stackedEngine(t, stack, humans(2), 11)

	collector := &eventCollector{}
	e.Bus().Subscribe(collector)

	if err := e.RequestStay(1); err != nil {
		t.Fatalf("stay: %v", err)
	}
	if err := e.RequestStay(0); err != nil {
		t.Fatalf("stay: %v", err)
	}

	snap := e.Snapshot()
	if snap.GameState != GameOver {
		t.Fatalf("state %v, want game over", snap.GameState)
	}
	ends := collector.ofType(EventGameEnded)
	if len(ends) != 1 {
		t.Fatalf("expected one game ended event, got %d", len(ends))
	}
	end := ends[0].(GameEndedEvent)
	if end.WinnerID != 1 || end.WinnerName != "P1" {
		t.Errorf("winner %d %q, want player 1", end.WinnerID, end.WinnerName)
	}
	if end.Rounds != 1 {
		t.Errorf("rounds %d, want 1", end.Rounds)
	}

	if err := e.RequestHit(0); !errors.Is(err, ErrWrongState) {
		t.Errorf("hit after game over: got %v", err)
	}
	if err := e.StartNextRound(); !errors.Is(err, ErrWrongState) {
		t.Errorf("next round after game over: got %v", err)
	}

	e.Reset()
	if e.Snapshot().GameState != GameSetup {
		t.Error("reset should return to setup")
	}
}

func TestWinnerTiebreakIsStable(t *testing.T) {
	t.Parallel()
	stack := []deck.Card{num(1, 10), num(2, 10)}
	e := stackedEngine(t, stack, humans(2), 10)

	collector := &eventCollector{}
	e.Bus().Subscribe(collector)

	if err := e.RequestStay(1); err != nil {
		t.Fatalf("stay: %v", err)
	}
	if err := e.RequestStay(0); err != nil {
		t.Fatalf("stay: %v", err)
	}
	end := collector.ofType(EventGameEnded)[0].(GameEndedEvent)
	if end.WinnerID != 0 {
		t.Errorf("equal totals should fall to the earlier seat, winner=%d", end.WinnerID)
	}
}

func TestDealtActionCardSuspendsDeal(t *testing.T) {
	t.Parallel()
	stack := []deck.Card{
		num(1, 3),              // P0 deal
		action(2, deck.Freeze), // P1 deal: needs a target mid deal
		num(3, 5),              // P2 deal, resumed after resolution
	}
	e := stackedEngine(t, stack, humans(3), 200)

	snap := e.Snapshot()
	if snap.RoundState != RoundDealing {
		t.Fatalf("deal should be suspended, state %v", snap.RoundState)
	}
	if snap.Pending == nil || snap.Pending.SourceID != 1 {
		t.Fatalf("pending=%+v", snap.Pending)
	}
	// Player 2 has not been dealt yet.
	if len(snap.Players[2].Hand) != 0 {
		t.Errorf("player 2 should not have a card yet: %v", snap.Players[2].Hand)
	}

	if err := e.ResolveTarget(snap.Pending.Token, 2); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	snap = e.Snapshot()
	if snap.RoundState != RoundPlaying {
		t.Fatalf("deal should have resumed and finished, state %v", snap.RoundState)
	}
	// P2 was frozen before their card, so they are skipped entirely.
	if len(snap.Players[2].Hand) != 0 || snap.Players[2].Status != Stayed {
		t.Errorf("frozen player should be skipped by the deal: %+v", snap.Players[2])
	}
	if snap.CurrentID != 1 {
		t.Errorf("current=%d, want 1", snap.CurrentID)
	}
}

func TestSecondChanceRedistributionOnDraw(t *testing.T) {
	t.Parallel()
	stack := []deck.Card{
		action(1, deck.SecondChance), num(2, 4), num(3, 6), // deal
		num(4, 8),                    // P1 hit
		num(5, 9),                    // P2 hit
		action(6, deck.SecondChance), // P0 hit: surplus, redistributed
	}
	e := stackedEngine(t, stack, humans(3), 200)

	if err := e.RequestHit(1); err != nil {
		t.Fatalf("hit: %v", err)
	}
	if err := e.RequestHit(2); err != nil {
		t.Fatalf("hit: %v", err)
	}
	if err := e.RequestHit(0); err != nil {
		t.Fatalf("hit: %v", err)
	}

	snap := e.Snapshot()
	count := func(p PlayerView) int {
		n := 0
		for _, c := range p.Hand {
			if c.IsActionOf(deck.SecondChance) {
				n++
			}
		}
		return n
	}
	if count(snap.Players[0]) != 1 {
		t.Errorf("drawer should keep exactly one second chance, has %d", count(snap.Players[0]))
	}
	if count(snap.Players[1])+count(snap.Players[2]) != 1 {
		t.Errorf("surplus should land on exactly one other active player")
	}
	if snap.Pending != nil {
		t.Error("second chance redistribution must never suspend")
	}
}

func TestSecondChanceSurplusDiscardedWhenNobodyEligible(t *testing.T) {
	t.Parallel()
	stack := []deck.Card{
		action(1, deck.SecondChance), num(2, 4), // deal
		action(3, deck.SecondChance), // P0 hit after P1 stays
	}
	e := stackedEngine(t, stack, humans(2), 200)

	if err := e.RequestStay(1); err != nil {
		t.Fatalf("stay: %v", err)
	}
	if err := e.RequestHit(0); err != nil {
		t.Fatalf("hit: %v", err)
	}
	snap := e.Snapshot()
	if snap.DiscardSize != 1 {
		t.Errorf("surplus second chance should be discarded, discard=%d", snap.DiscardSize)
	}
	if got := len(snap.Players[0].Hand); got != 1 {
		t.Errorf("drawer keeps one second chance, hand has %d cards", got)
	}
}

// TestFullGameSimulation plays seeded all-AI games to completion through the
// public API and checks the invariants that must hold whatever the deal.
func TestFullGameSimulation(t *testing.T) {
	t.Parallel()

	for seed := int64(1); seed <= 5; seed++ {
		seed := seed
		t.Run(fmt.Sprintf("seed%d", seed), func(t *testing.T) {
			t.Parallel()
			configs := []PlayerConfig{
				{Name: "Ada", AI: true, Difficulty: Easy},
				{Name: "Bo", AI: true, Difficulty: Medium},
				{Name: "Cy", AI: true, Difficulty: Hard},
				{Name: "Di", AI: true, Difficulty: Medium},
			}
			e := NewEngine(DefaultConfig(), WithRNG(randutil.New(seed)))
			if err := e.StartGame(configs, 200); err != nil {
				t.Fatalf("StartGame: %v", err)
			}

			total := deck.DefaultComposition().Total()
			for steps := 0; ; steps++ {
				if steps > 100000 {
					t.Fatal("game did not terminate")
				}
				snap := e.Snapshot()
				switch snap.GameState {
				case GameOver:
					best := 0
					for _, p := range snap.Players {
						if p.TotalScore > best {
							best = p.TotalScore
						}
					}
					if best < 200 {
						t.Errorf("game ended with best total %d below target", best)
					}
					return
				case GameRoundEnd:
					inHands := 0
					for _, p := range snap.Players {
						inHands += len(p.Hand)
					}
					got := snap.DeckSize + snap.DiscardSize + inHands
					// Up to three flip three cards can be parked between rounds.
					if got > total || got < total-3 {
						t.Fatalf("card conservation broken: %d of %d accounted for", got, total)
					}
					if err := e.StartNextRound(); err != nil {
						t.Fatalf("StartNextRound: %v", err)
					}
				case GamePlaying:
					if snap.Pending != nil {
						t.Fatal("all-AI game must never suspend for a target")
					}
					var cur *PlayerView
					for i := range snap.Players {
						if snap.Players[i].ID == snap.CurrentID {
							cur = &snap.Players[i]
						}
					}
					if cur == nil || cur.Status != Active {
						t.Fatalf("turn on a non-active player: %+v", cur)
					}
					forced := snap.FlipThree != nil && snap.FlipThree.TargetID == cur.ID
					move := Hit
					if !forced {
						move = ChooseMove(&Player{
							Difficulty: cur.Difficulty,
							Hand:       cur.Hand,
							RoundScore: cur.RoundScore,
						}, snap.DeckSize)
					}
					var err error
					if move == Stay {
						err = e.RequestStay(cur.ID)
					} else {
						err = e.RequestHit(cur.ID)
					}
					if err != nil {
						t.Fatalf("%s by %s rejected: %v", move, cur.Name, err)
					}
				default:
					t.Fatalf("unexpected state %v", snap.GameState)
				}
			}
		})
	}
}
