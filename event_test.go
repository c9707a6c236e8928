package cardroom_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openpoker/cardroom"
	"github.com/openpoker/cardroom/engine"
)

func holeCardsEvent(seat int, cards ...engine.Card) cardroom.Event {
	return cardroom.Event{
		Seq:  7,
		Type: cardroom.EventHoleCardsDealt,
		HoleCardsDealt: &cardroom.HoleCardsDealtPayload{
			Seat:  seat,
			Cards: cards,
		},
	}
}

func TestRedact_OwnSeatKeepsCards(t *testing.T) {
	ev := holeCardsEvent(2, "As", "Kd")

	out := cardroom.Redact(ev, 2)
	assert.Equal(t, []engine.Card{"As", "Kd"}, out.HoleCardsDealt.Cards)
	assert.False(t, out.HoleCardsDealt.Masked)
}

func TestRedact_OtherSeatMasked(t *testing.T) {
	ev := holeCardsEvent(2, "As", "Kd")

	out := cardroom.Redact(ev, 5)
	assert.Nil(t, out.HoleCardsDealt.Cards)
	assert.True(t, out.HoleCardsDealt.Masked)
	assert.Equal(t, 2, out.HoleCardsDealt.Seat)
	assert.Equal(t, uint64(7), out.Seq, "ordering metadata survives redaction")

	// The original event is untouched.
	assert.Equal(t, []engine.Card{"As", "Kd"}, ev.HoleCardsDealt.Cards)
}

func TestRedact_ObserverSeesNoHoleCards(t *testing.T) {
	out := cardroom.Redact(holeCardsEvent(0, "7h", "7c"), cardroom.ObserverSeat)
	assert.Nil(t, out.HoleCardsDealt.Cards)
	assert.True(t, out.HoleCardsDealt.Masked)
}

func TestRedact_ShowdownRevealExempt(t *testing.T) {
	ev := cardroom.Event{
		Seq:  12,
		Type: cardroom.EventShowdownReveal,
		ShowdownReveal: &cardroom.ShowdownRevealPayload{
			Reveals: map[int][]engine.Card{
				0: {"As", "Kd"},
				1: {"Qh", "Qs"},
			},
		},
	}

	out := cardroom.Redact(ev, cardroom.ObserverSeat)
	assert.Len(t, out.ShowdownReveal.Reveals, 2)
	assert.Equal(t, []engine.Card{"Qh", "Qs"}, out.ShowdownReveal.Reveals[1])
}

func TestRedact_PublicEventsUntouched(t *testing.T) {
	ev := cardroom.Event{
		Seq:  3,
		Type: cardroom.EventActionTaken,
		ActionTaken: &cardroom.ActionTakenPayload{
			Seat:   1,
			Action: engine.Action{Type: engine.ActionRaise, Chips: 60},
		},
	}

	out := cardroom.Redact(ev, 4)
	assert.Equal(t, ev, out)
}
