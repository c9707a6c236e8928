package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDeck_Deterministic(t *testing.T) {
	a := NewDeck(42)
	b := NewDeck(42)
	assert.Equal(t, a, b)
	assert.Len(t, a, 52)

	seen := make(map[Card]bool)
	for _, c := range a {
		assert.True(t, c.Valid(), "card %s", c)
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
}

func TestNewHand_BlindsAndFirstActor(t *testing.T) {
	h := NewHoldem()
	st, err := h.NewHand(HandConfig{
		Seats:  []SeatConfig{{Seat: 0, Stack: 100}, {Seat: 1, Stack: 100}, {Seat: 2, Stack: 100}},
		Button: 0,
		SB:     1,
		BB:     2,
		Seed:   7,
	})
	assert.Nil(t, err)

	assert.Equal(t, StreetPreflop, st.Street)
	assert.Equal(t, int64(99), st.SeatByID(1).Stack)
	assert.Equal(t, int64(98), st.SeatByID(2).Stack)
	assert.Equal(t, int64(2), st.CurrentBet)
	// UTG acts first with three seats.
	assert.Equal(t, 0, st.ActingSeat())

	for i := range st.Seats {
		assert.Len(t, st.Seats[i].HoleCards, 2)
	}
}

func TestNewHand_HeadsUpButtonPostsSmallBlind(t *testing.T) {
	h := NewHoldem()
	st, err := h.NewHand(HandConfig{
		Seats:  []SeatConfig{{Seat: 3, Stack: 100}, {Seat: 5, Stack: 100}},
		Button: 3,
		SB:     1,
		BB:     2,
		Seed:   7,
	})
	assert.Nil(t, err)

	assert.Equal(t, int64(99), st.SeatByID(3).Stack)
	assert.Equal(t, int64(98), st.SeatByID(5).Stack)
	// Button acts first preflop heads-up.
	assert.Equal(t, 3, st.ActingSeat())
}

func TestNewHand_RejectsBadConfig(t *testing.T) {
	h := NewHoldem()

	_, err := h.NewHand(HandConfig{Seats: []SeatConfig{{Seat: 0, Stack: 100}}, Button: 0, SB: 1, BB: 2})
	assert.Equal(t, ErrNotEnoughSeats, err)

	_, err = h.NewHand(HandConfig{
		Seats:  []SeatConfig{{Seat: 0, Stack: 100}, {Seat: 0, Stack: 100}},
		Button: 0, SB: 1, BB: 2,
	})
	assert.Equal(t, ErrInvalidConfig, err)

	_, err = h.NewHand(HandConfig{
		Seats:  []SeatConfig{{Seat: 0, Stack: 100}, {Seat: 1, Stack: 100}},
		Button: 9, SB: 1, BB: 2,
	})
	assert.Equal(t, ErrInvalidConfig, err)
}

func TestLegalActions_FacingBet(t *testing.T) {
	h := NewHoldem()
	st, err := h.NewHand(HandConfig{
		Seats:  []SeatConfig{{Seat: 0, Stack: 100}, {Seat: 1, Stack: 100}, {Seat: 2, Stack: 100}},
		Button: 0,
		SB:     1,
		BB:     2,
		Seed:   7,
	})
	assert.Nil(t, err)

	seat, va, err := h.LegalActions(st)
	assert.Nil(t, err)
	assert.Equal(t, 0, seat)
	assert.True(t, va.CanFold)
	assert.False(t, va.CanCheck)
	assert.True(t, va.CanCall)
	assert.Equal(t, int64(2), va.CallAmount)
	assert.True(t, va.CanRaise)
	assert.Equal(t, int64(4), va.MinRaiseTo)
	assert.Equal(t, int64(100), va.MaxRaiseTo)
	assert.True(t, va.CanAllIn)
	assert.Equal(t, int64(100), va.AllInAmount)
}

func TestValidActions_Allows(t *testing.T) {
	va := ValidActions{
		CanFold:    true,
		CanCall:    true,
		CallAmount: 10,
		CanRaise:   true,
		MinRaiseTo: 20,
		MaxRaiseTo: 100,
	}

	assert.True(t, va.Allows(Action{Type: ActionFold}))
	assert.True(t, va.Allows(Action{Type: ActionCall}))
	assert.True(t, va.Allows(Action{Type: ActionRaise, Chips: 20}))
	assert.True(t, va.Allows(Action{Type: ActionRaise, Chips: 100}))
	assert.False(t, va.Allows(Action{Type: ActionRaise, Chips: 19}))
	assert.False(t, va.Allows(Action{Type: ActionRaise, Chips: 101}))
	assert.False(t, va.Allows(Action{Type: ActionCheck}))
	assert.False(t, va.Allows(Action{Type: ActionBet, Chips: 50}))
	assert.False(t, va.Allows(Action{Type: ActionAllIn}))
}

func TestApply_OutOfTurnRejected(t *testing.T) {
	h := NewHoldem()
	st, err := h.NewHand(HandConfig{
		Seats:  []SeatConfig{{Seat: 0, Stack: 100}, {Seat: 1, Stack: 100}, {Seat: 2, Stack: 100}},
		Button: 0,
		SB:     1,
		BB:     2,
		Seed:   7,
	})
	assert.Nil(t, err)

	_, err = h.Apply(st, 1, Action{Type: ActionFold})
	assert.Equal(t, ErrNotSeatTurn, err)
}

func TestApply_IllegalActionRejected(t *testing.T) {
	h := NewHoldem()
	st, err := h.NewHand(HandConfig{
		Seats:  []SeatConfig{{Seat: 0, Stack: 100}, {Seat: 1, Stack: 100}, {Seat: 2, Stack: 100}},
		Button: 0,
		SB:     1,
		BB:     2,
		Seed:   7,
	})
	assert.Nil(t, err)

	// UTG faces the big blind, checking is not available.
	_, err = h.Apply(st, 0, Action{Type: ActionCheck})
	assert.Equal(t, ErrIllegalAction, err)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	h := NewHoldem()
	st, err := h.NewHand(HandConfig{
		Seats:  []SeatConfig{{Seat: 0, Stack: 100}, {Seat: 1, Stack: 100}, {Seat: 2, Stack: 100}},
		Button: 0,
		SB:     1,
		BB:     2,
		Seed:   7,
	})
	assert.Nil(t, err)

	before := st.SeatByID(0).Stack
	next, err := h.Apply(st, 0, Action{Type: ActionCall})
	assert.Nil(t, err)
	assert.Equal(t, before, st.SeatByID(0).Stack)
	assert.Equal(t, before-2, next.SeatByID(0).Stack)
}

func TestHand_FoldToWinner(t *testing.T) {
	h := NewHoldem()
	st, err := h.NewHand(HandConfig{
		Seats:  []SeatConfig{{Seat: 0, Stack: 100}, {Seat: 1, Stack: 100}},
		Button: 0,
		SB:     1,
		BB:     2,
		Seed:   7,
	})
	assert.Nil(t, err)

	// Button folds preflop; the big blind wins the blinds uncontested.
	st, err = h.Apply(st, 0, Action{Type: ActionFold})
	assert.Nil(t, err)
	assert.True(t, st.Finished)
	assert.Equal(t, -1, st.ActingSeat())

	result, err := h.Settle(st)
	assert.Nil(t, err)
	assert.Len(t, result.Pots, 1)
	assert.Equal(t, int64(3), result.Pots[0].Total)
	assert.Equal(t, []int{1}, result.Pots[0].Winners)
	assert.Equal(t, int64(3), result.Pots[0].Share[1])
	assert.Empty(t, result.Reveals)
	// Folded seat is down exactly the posted blind.
	assert.Equal(t, int64(99), st.SeatByID(0).Stack)
}

func TestHand_CheckedDownReachesShowdown(t *testing.T) {
	h := NewHoldem()
	st, err := h.NewHand(HandConfig{
		Seats:  []SeatConfig{{Seat: 0, Stack: 100}, {Seat: 1, Stack: 100}},
		Button: 0,
		SB:     1,
		BB:     2,
		Seed:   11,
	})
	assert.Nil(t, err)

	st, err = h.Apply(st, 0, Action{Type: ActionCall})
	assert.Nil(t, err)
	st, err = h.Apply(st, 1, Action{Type: ActionCheck})
	assert.Nil(t, err)
	assert.Equal(t, StreetFlop, st.Street)
	assert.Len(t, st.Board, 3)
	assert.True(t, st.SawFlop)

	for _, street := range []Street{StreetTurn, StreetRiver, StreetShowdown} {
		for st.Street != street {
			seat := st.ActingSeat()
			st, err = h.Apply(st, seat, Action{Type: ActionCheck})
			assert.Nil(t, err)
		}
	}

	assert.True(t, st.Finished)
	assert.Len(t, st.Board, 5)

	result, err := h.Settle(st)
	assert.Nil(t, err)
	assert.Equal(t, int64(4), result.Total())
	assert.Len(t, result.Reveals, 2)
}

func TestHand_AllInRunout(t *testing.T) {
	h := NewHoldem()
	st, err := h.NewHand(HandConfig{
		Seats:  []SeatConfig{{Seat: 0, Stack: 100}, {Seat: 1, Stack: 100}},
		Button: 0,
		SB:     1,
		BB:     2,
		Seed:   13,
	})
	assert.Nil(t, err)

	st, err = h.Apply(st, 0, Action{Type: ActionAllIn})
	assert.Nil(t, err)
	st, err = h.Apply(st, 1, Action{Type: ActionAllIn})
	assert.Nil(t, err)

	assert.True(t, st.Finished)
	assert.Equal(t, StreetShowdown, st.Street)
	assert.Len(t, st.Board, 5)

	result, err := h.Settle(st)
	assert.Nil(t, err)
	assert.Equal(t, int64(200), result.Total())
}

func TestHand_SidePotEligibilityLayers(t *testing.T) {
	h := NewHoldem()
	st, err := h.NewHand(HandConfig{
		Seats:  []SeatConfig{{Seat: 0, Stack: 50}, {Seat: 1, Stack: 100}, {Seat: 2, Stack: 200}},
		Button: 0,
		SB:     1,
		BB:     2,
		Seed:   21,
	})
	assert.Nil(t, err)

	st, err = h.Apply(st, 0, Action{Type: ActionAllIn})
	assert.Nil(t, err)
	st, err = h.Apply(st, 1, Action{Type: ActionAllIn})
	assert.Nil(t, err)
	st, err = h.Apply(st, 2, Action{Type: ActionAllIn})
	assert.Nil(t, err)
	assert.True(t, st.Finished)

	result, err := h.Settle(st)
	assert.Nil(t, err)
	assert.Len(t, result.Pots, 3)

	// Main pot: the short stack's 50 matched by everyone.
	assert.Equal(t, int64(150), result.Pots[0].Total)
	assert.Equal(t, []int{0, 1, 2}, result.Pots[0].Eligible)

	// First side pot: the 50..100 layer, contested by the two larger stacks.
	assert.Equal(t, int64(100), result.Pots[1].Total)
	assert.Equal(t, []int{1, 2}, result.Pots[1].Eligible)

	// Uncalled layer: nobody matched the big stack past 100; it goes back.
	assert.Equal(t, int64(100), result.Pots[2].Total)
	assert.Equal(t, []int{2}, result.Pots[2].Eligible)
	assert.Equal(t, []int{2}, result.Pots[2].Winners)
	assert.Equal(t, int64(100), result.Pots[2].Share[2])

	assert.Equal(t, int64(350), result.Total())
}

func TestHand_PotConservation(t *testing.T) {
	h := NewHoldem()
	st, err := h.NewHand(HandConfig{
		Seats:  []SeatConfig{{Seat: 0, Stack: 80}, {Seat: 1, Stack: 150}, {Seat: 2, Stack: 220}},
		Button: 0,
		SB:     5,
		BB:     10,
		Ante:   1,
		Seed:   17,
	})
	assert.Nil(t, err)

	var contributed int64
	for i := range st.Seats {
		contributed += st.Seats[i].Contributed
	}
	assert.Equal(t, int64(18), contributed)

	st, err = h.Apply(st, 0, Action{Type: ActionAllIn})
	assert.Nil(t, err)
	st, err = h.Apply(st, 1, Action{Type: ActionAllIn})
	assert.Nil(t, err)
	st, err = h.Apply(st, 2, Action{Type: ActionAllIn})
	assert.Nil(t, err)

	assert.True(t, st.Finished)

	result, err := h.Settle(st)
	assert.Nil(t, err)

	var total int64
	for i := range st.Seats {
		total += st.Seats[i].Contributed
	}
	assert.Equal(t, total, result.Total())

	var shares int64
	for _, pot := range result.Pots {
		for _, amount := range pot.Share {
			shares += amount
		}
	}
	assert.Equal(t, total, shares)
}
