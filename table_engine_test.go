package cardroom_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpoker/cardroom"
	"github.com/openpoker/cardroom/actor"
	"github.com/openpoker/cardroom/engine"
)

func cashMeta() cardroom.TableMeta {
	return cardroom.TableMeta{
		Name:             "test",
		Format:           cardroom.FormatCash,
		SB:               1,
		BB:               2,
		MinPlayers:       2,
		MaxPlayers:       9,
		ActionTimeoutSec: 2,
		Seed:             42,
	}
}

func newTestTable(t *testing.T, meta cardroom.TableMeta, opts ...cardroom.TableEngineOpt) cardroom.TableEngine {
	t.Helper()

	options := &cardroom.TableEngineOptions{
		StartCountdownSec: 1,
		ReadyTimeoutSec:   1,
		EventBuffer:       256,
	}
	te := cardroom.NewTableEngine(options, opts...)
	require.NoError(t, te.CreateTable(cardroom.TableSetting{Meta: meta}))
	return te
}

// waitFor drains the subscription until the predicate matches, returning the
// matching event and everything read before it.
func waitFor(t *testing.T, sub *cardroom.Subscription, timeout time.Duration, pred func(cardroom.Event) bool) (cardroom.Event, []cardroom.Event) {
	t.Helper()

	deadline := time.After(timeout)
	seen := make([]cardroom.Event, 0, 64)
	for {
		select {
		case ev, ok := <-sub.C():
			if !ok {
				t.Fatalf("subscription closed while waiting; saw %d events", len(seen))
			}
			if pred(ev) {
				return ev, seen
			}
			seen = append(seen, ev)
		case <-deadline:
			t.Fatalf("timed out waiting for event; saw %d events", len(seen))
		}
	}
}

// blockingSource never answers; its requests ride out the full deadline.
type blockingSource struct {
	name string
}

func (b blockingSource) Name() string { return b.name }

func (b blockingSource) IsHuman() bool { return true }

func (b blockingSource) Notify(ev cardroom.Event) {}
func (b blockingSource) RequestAction(ctx context.Context, snapshot *cardroom.GameSnapshot, valid engine.ValidActions, timeLimit time.Duration) (engine.Action, error) {
	<-ctx.Done()
	return engine.Action{}, ctx.Err()
}

func TestTableEngine_HeadsUpFoldHand(t *testing.T) {
	te := newTestTable(t, cashMeta())
	sub := te.EventLog().Subscribe(256, cardroom.DropOldest)
	defer te.EventLog().Unsubscribe(sub.ID())

	alice := actor.NewScripted("alice", engine.Action{Type: engine.ActionFold})
	bob := actor.NewScripted("bob")

	seat0, err := te.Join("alice", 200, alice)
	require.NoError(t, err)
	assert.Equal(t, 0, seat0)
	seat1, err := te.Join("bob", 200, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, seat1)

	require.NoError(t, te.SetReady(seat0))
	require.NoError(t, te.SetReady(seat1))
	require.NoError(t, te.StartGame())

	ended, before := waitFor(t, sub, 10*time.Second, func(ev cardroom.Event) bool {
		return ev.Type == cardroom.EventHandEnded && ev.HandEnded.HandNum == 1
	})

	// Button is heads-up small blind and folds to the big blind.
	results := ended.HandEnded.Results
	require.Len(t, results, 2)
	assert.Equal(t, int64(-1), results[0].StackChange)
	assert.Equal(t, int64(199), results[0].FinalStack)
	assert.Equal(t, int64(1), results[1].StackChange)
	assert.Equal(t, int64(201), results[1].FinalStack)
	assert.Equal(t, int64(0), ended.HandEnded.Rake)

	var sawRequest, sawFold bool
	for _, ev := range before {
		switch ev.Type {
		case cardroom.EventActionRequested:
			if ev.ActionRequested.Seat == seat0 {
				sawRequest = true
			}
		case cardroom.EventActionTaken:
			if ev.ActionTaken.Seat == seat0 {
				assert.Equal(t, engine.ActionFold, ev.ActionTaken.Action.Type)
				assert.False(t, ev.ActionTaken.Defaulted)
				assert.False(t, ev.ActionTaken.TimedOut)
				sawFold = true
			}
		}
	}
	assert.True(t, sawRequest)
	assert.True(t, sawFold)

	// Notifications reached each source with foreign hole cards masked.
	var ownSeen, foreignMasked bool
	for _, ev := range alice.Events() {
		if ev.Type != cardroom.EventHoleCardsDealt {
			continue
		}
		if ev.HoleCardsDealt.Seat == seat0 {
			assert.Len(t, ev.HoleCardsDealt.Cards, 2)
			ownSeen = true
		} else {
			assert.Empty(t, ev.HoleCardsDealt.Cards)
			assert.True(t, ev.HoleCardsDealt.Masked)
			foreignMasked = true
		}
	}
	assert.True(t, ownSeen)
	assert.True(t, foreignMasked)

	require.NoError(t, te.StopGame())
	gameEnded, _ := waitFor(t, sub, 10*time.Second, func(ev cardroom.Event) bool {
		return ev.Type == cardroom.EventGameEnded
	})
	assert.Equal(t, "stopped", gameEnded.GameEnded.Reason)
	assert.Len(t, gameEnded.GameEnded.Standings, 2)
}

func TestTableEngine_JoinRejectedWhilePlaying(t *testing.T) {
	te := newTestTable(t, cashMeta())
	sub := te.EventLog().Subscribe(256, cardroom.DropOldest)
	defer te.EventLog().Unsubscribe(sub.ID())

	_, err := te.Join("alice", 200, actor.NewScripted("alice"))
	require.NoError(t, err)
	_, err = te.Join("bob", 200, actor.NewScripted("bob"))
	require.NoError(t, err)

	require.NoError(t, te.SetReady(0))
	require.NoError(t, te.SetReady(1))
	require.NoError(t, te.StartGame())

	waitFor(t, sub, 10*time.Second, func(ev cardroom.Event) bool {
		return ev.Type == cardroom.EventGameStarted
	})

	_, err = te.Join("carol", 200, actor.NewScripted("carol"))
	assert.ErrorIs(t, err, cardroom.ErrTableGameInProgress)

	require.NoError(t, te.StopGame())
	waitFor(t, sub, 10*time.Second, func(ev cardroom.Event) bool {
		return ev.Type == cardroom.EventGameEnded
	})
}

func TestTableEngine_TimeoutSubstitutesDefault(t *testing.T) {
	meta := cashMeta()
	meta.ActionTimeoutSec = 1

	te := newTestTable(t, meta)
	sub := te.EventLog().Subscribe(256, cardroom.DropOldest)
	defer te.EventLog().Unsubscribe(sub.ID())

	_, err := te.Join("alice", 200, blockingSource{name: "alice"})
	require.NoError(t, err)
	_, err = te.Join("bob", 200, actor.NewScripted("bob"))
	require.NoError(t, err)

	require.NoError(t, te.SetReady(0))
	require.NoError(t, te.SetReady(1))
	require.NoError(t, te.StartGame())

	taken, _ := waitFor(t, sub, 15*time.Second, func(ev cardroom.Event) bool {
		return ev.Type == cardroom.EventActionTaken && ev.ActionTaken.Seat == 0
	})
	assert.True(t, taken.ActionTaken.TimedOut)
	assert.True(t, taken.ActionTaken.Defaulted)
	assert.Equal(t, engine.ActionFold, taken.ActionTaken.Action.Type)

	require.NoError(t, te.StopGame())
	waitFor(t, sub, 15*time.Second, func(ev cardroom.Event) bool {
		return ev.Type == cardroom.EventGameEnded
	})
}

func TestTableEngine_IllegalActionDefaulted(t *testing.T) {
	te := newTestTable(t, cashMeta())
	sub := te.EventLog().Subscribe(256, cardroom.DropOldest)
	defer te.EventLog().Unsubscribe(sub.ID())

	// A raise far above the stack is outside the legal set.
	_, err := te.Join("alice", 200, actor.NewScripted("alice",
		engine.Action{Type: engine.ActionRaise, Chips: 1_000_000}))
	require.NoError(t, err)
	_, err = te.Join("bob", 200, actor.NewScripted("bob"))
	require.NoError(t, err)

	require.NoError(t, te.SetReady(0))
	require.NoError(t, te.SetReady(1))
	require.NoError(t, te.StartGame())

	taken, _ := waitFor(t, sub, 10*time.Second, func(ev cardroom.Event) bool {
		return ev.Type == cardroom.EventActionTaken && ev.ActionTaken.Seat == 0
	})
	assert.True(t, taken.ActionTaken.Defaulted)
	assert.False(t, taken.ActionTaken.TimedOut)
	assert.Equal(t, engine.ActionFold, taken.ActionTaken.Action.Type)

	require.NoError(t, te.StopGame())
	waitFor(t, sub, 10*time.Second, func(ev cardroom.Event) bool {
		return ev.Type == cardroom.EventGameEnded
	})
}

func TestTableEngine_RosterRules(t *testing.T) {
	te := newTestTable(t, cardroom.TableMeta{
		Name: "small", Format: cardroom.FormatCash,
		SB: 1, BB: 2, MinPlayers: 2, MaxPlayers: 2,
		MinBuyIn: 100, MaxBuyIn: 400,
	})

	seat, err := te.Join("alice", 200, actor.NewScripted("alice"))
	require.NoError(t, err)
	assert.Equal(t, 0, seat)

	_, err = te.Join("alice", 200, actor.NewScripted("alice"))
	assert.ErrorIs(t, err, cardroom.ErrTableNameTaken)

	_, err = te.Join("bob", 50, actor.NewScripted("bob"))
	assert.ErrorIs(t, err, cardroom.ErrTableInvalidBuyIn)
	_, err = te.Join("bob", 500, actor.NewScripted("bob"))
	assert.ErrorIs(t, err, cardroom.ErrTableInvalidBuyIn)

	_, err = te.Join("bob", 300, actor.NewScripted("bob"))
	require.NoError(t, err)

	_, err = te.Join("carol", 200, actor.NewScripted("carol"))
	assert.ErrorIs(t, err, cardroom.ErrSessionTableFull)

	require.NoError(t, te.Leave(1))
	assert.Len(t, te.Roster(), 1)

	assert.ErrorIs(t, te.Leave(5), cardroom.ErrTableSeatNotFound)
}

func TestTableEngine_BotManagement(t *testing.T) {
	te := newTestTable(t, cashMeta(), cardroom.WithBotFactory(func(name string) cardroom.DecisionSource {
		return actor.NewBot(name, actor.WithSeed(1))
	}))

	seat, err := te.AddBot("Bot-1")
	require.NoError(t, err)

	roster := te.Roster()
	require.Len(t, roster, 1)
	assert.True(t, roster[0].IsBot)
	assert.True(t, roster[0].Ready, "bots are always ready")
	assert.Equal(t, int64(200), roster[0].Stack, "default bot buy-in is 100 big blinds")

	assert.ErrorIs(t, te.RemoveBot(5), cardroom.ErrTableSeatNotFound)

	humanSeat, err := te.Join("alice", 200, actor.NewScripted("alice"))
	require.NoError(t, err)
	assert.ErrorIs(t, te.RemoveBot(humanSeat), cardroom.ErrTableSeatNotBot)

	require.NoError(t, te.RemoveBot(seat))
	assert.Len(t, te.Roster(), 1)
}

func TestTableEngine_ConcurrentRosterMutations(t *testing.T) {
	te := newTestTable(t, cashMeta(), cardroom.WithBotFactory(func(name string) cardroom.DecisionSource {
		return actor.NewBot(name, actor.WithSeed(3))
	}))

	// More candidates than seats; exactly MaxPlayers of them may win a seat
	// and every loser must see a clean rejection.
	var wg sync.WaitGroup
	var seated int64
	for i := 0; i < 24; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%3 == 0 {
				_, err = te.AddBot(fmt.Sprintf("bot-%d", i))
			} else {
				_, err = te.Join(fmt.Sprintf("player-%d", i), 200, actor.NewScripted(fmt.Sprintf("player-%d", i)))
			}
			if err == nil {
				atomic.AddInt64(&seated, 1)
			}
		}(i)
	}
	wg.Wait()

	roster := te.Roster()
	assert.Equal(t, int(seated), len(roster))
	assert.Len(t, roster, 9)

	seats := make(map[int]bool)
	names := make(map[string]bool)
	for _, info := range roster {
		assert.GreaterOrEqual(t, info.Seat, 0)
		assert.Less(t, info.Seat, 9)
		assert.False(t, seats[info.Seat], "seat %d assigned twice", info.Seat)
		assert.False(t, names[info.Name], "name %s seated twice", info.Name)
		seats[info.Seat] = true
		names[info.Name] = true
	}

	// Concurrent departures settle to one consistent roster too.
	departing := roster[:4]
	for _, info := range departing {
		wg.Add(1)
		go func(seat int) {
			defer wg.Done()
			assert.NoError(t, te.Leave(seat))
		}(info.Seat)
	}
	wg.Wait()

	remaining := te.Roster()
	assert.Len(t, remaining, 5)
	for _, info := range remaining {
		for _, gone := range departing {
			assert.NotEqual(t, gone.Seat, info.Seat)
		}
	}
}

func TestTableEngine_NoBotFactory(t *testing.T) {
	te := newTestTable(t, cashMeta())
	_, err := te.AddBot("Bot-1")
	assert.ErrorIs(t, err, cardroom.ErrTableNoBotFactory)
}

func TestTableEngine_SitAndGoSeatsStartingStack(t *testing.T) {
	te := newTestTable(t, cardroom.TableMeta{
		Name: "sng", Format: cardroom.FormatSitAndGo,
		SB: 10, BB: 20, MinPlayers: 2, MaxPlayers: 9,
	})

	_, err := te.Join("alice", 0, actor.NewScripted("alice"))
	require.NoError(t, err)

	roster := te.Roster()
	require.Len(t, roster, 1)
	assert.Equal(t, int64(1500), roster[0].Stack)
}

func TestTableEngine_StartGameRequiresMinimum(t *testing.T) {
	te := newTestTable(t, cashMeta())

	_, err := te.Join("alice", 200, actor.NewScripted("alice"))
	require.NoError(t, err)

	assert.ErrorIs(t, te.StartGame(), cardroom.ErrTableNotEnoughSeated)
}

func TestTableEngine_ChatAndView(t *testing.T) {
	te := newTestTable(t, cashMeta())

	seat, err := te.Join("alice", 200, actor.NewScripted("alice"))
	require.NoError(t, err)

	require.NoError(t, te.SubmitChat(seat, "hello"))
	assert.ErrorIs(t, te.SubmitChat(7, "hi"), cardroom.ErrTableSeatNotFound)

	view, err := te.View(seat)
	require.NoError(t, err)
	assert.Equal(t, "test", view.Name)
	require.Len(t, view.Chat, 1)
	assert.Equal(t, "hello", view.Chat[0].Text)
	assert.Equal(t, int64(200), view.Seats[seat].Stack)
}

func TestTableEngine_CloseTableEmitsClosed(t *testing.T) {
	closed := make(chan string, 1)

	te := newTestTable(t, cashMeta())
	te.OnClosed(func(tableID string) { closed <- tableID })

	require.NoError(t, te.CloseTable())

	select {
	case tableID := <-closed:
		assert.Equal(t, te.TableID(), tableID)
	case <-time.After(2 * time.Second):
		t.Fatal("close callback never fired")
	}
	assert.Equal(t, cardroom.TableStatus_Closed, te.Status())

	_, err := te.Join("late", 200, actor.NewScripted("late"))
	assert.ErrorIs(t, err, cardroom.ErrTableClosed)
}
