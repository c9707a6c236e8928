package cardroom_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openpoker/cardroom"
)

func TestLog_AppendAssignsMonotonicSeq(t *testing.T) {
	log := cardroom.NewLog("t1", nil)

	first := log.Append(cardroom.Event{Type: cardroom.EventGameCreated})
	second := log.Append(cardroom.Event{Type: cardroom.EventPlayerJoined})

	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	assert.Equal(t, "t1", first.TableID)
	assert.NotZero(t, first.Time)
	assert.Equal(t, uint64(2), log.Seq())

	events := log.Events()
	assert.Len(t, events, 2)
	assert.Equal(t, cardroom.EventGameCreated, events[0].Type)
}

func TestLog_SubscriberReceivesInOrder(t *testing.T) {
	log := cardroom.NewLog("t1", nil)
	sub := log.Subscribe(8, cardroom.DropOldest)
	defer log.Unsubscribe(sub.ID())

	log.Append(cardroom.Event{Type: cardroom.EventGameCreated})
	log.Append(cardroom.Event{Type: cardroom.EventPlayerJoined})

	ev := <-sub.C()
	assert.Equal(t, uint64(1), ev.Seq)
	ev = <-sub.C()
	assert.Equal(t, uint64(2), ev.Seq)
}

func TestLog_DropOldestKeepsNewest(t *testing.T) {
	log := cardroom.NewLog("t1", nil)
	sub := log.Subscribe(1, cardroom.DropOldest)

	log.Append(cardroom.Event{Type: cardroom.EventGameCreated})
	log.Append(cardroom.Event{Type: cardroom.EventPlayerJoined})
	log.Append(cardroom.Event{Type: cardroom.EventPlayerReady})

	ev := <-sub.C()
	assert.Equal(t, uint64(3), ev.Seq, "older events are sacrificed for the newest")

	// The log itself never loses anything.
	assert.Len(t, log.Events(), 3)
}

func TestLog_CloseOnOverflowClosesSubscriber(t *testing.T) {
	log := cardroom.NewLog("t1", nil)
	sub := log.Subscribe(1, cardroom.CloseOnOverflow)

	log.Append(cardroom.Event{Type: cardroom.EventGameCreated})
	log.Append(cardroom.Event{Type: cardroom.EventPlayerJoined})

	ev, ok := <-sub.C()
	assert.True(t, ok)
	assert.Equal(t, uint64(1), ev.Seq)

	_, ok = <-sub.C()
	assert.False(t, ok, "overflowed subscriber is closed, forcing a resync")

	// A closed subscriber no longer receives.
	log.Append(cardroom.Event{Type: cardroom.EventPlayerReady})
	assert.Equal(t, uint64(3), log.Seq())
}

func TestLog_UnsubscribeIsIdempotent(t *testing.T) {
	log := cardroom.NewLog("t1", nil)
	sub := log.Subscribe(1, cardroom.DropOldest)

	log.Unsubscribe(sub.ID())
	log.Unsubscribe(sub.ID())

	_, ok := <-sub.C()
	assert.False(t, ok)
}

func TestLog_CloseShutsDownAllSubscribers(t *testing.T) {
	log := cardroom.NewLog("t1", nil)
	a := log.Subscribe(1, cardroom.DropOldest)
	b := log.Subscribe(1, cardroom.CloseOnOverflow)

	log.Close()

	_, ok := <-a.C()
	assert.False(t, ok)
	_, ok = <-b.C()
	assert.False(t, ok)
}
