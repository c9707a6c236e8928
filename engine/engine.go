package engine

import "errors"

var (
	ErrNotEnoughSeats   = errors.New("engine: at least two seats required")
	ErrInvalidConfig    = errors.New("engine: invalid hand config")
	ErrHandFinished     = errors.New("engine: hand already finished")
	ErrNotSeatTurn      = errors.New("engine: not this seat's turn")
	ErrIllegalAction    = errors.New("engine: action not legal in current state")
	ErrUnknownSeat      = errors.New("engine: unknown seat")
	ErrHandNotFinished  = errors.New("engine: hand not finished")
	ErrEmptyDeck        = errors.New("engine: deck exhausted")
	ErrInvalidWager     = errors.New("engine: wager outside legal bounds")
	ErrAccountingBroken = errors.New("engine: pot accounting mismatch")
)

// Street identifies a stage of hand progression.
type Street string

const (
	StreetDealing  Street = "dealing"
	StreetPreflop  Street = "preflop"
	StreetFlop     Street = "flop"
	StreetTurn     Street = "turn"
	StreetRiver    Street = "river"
	StreetShowdown Street = "showdown"
)

// Structure is the betting structure of a table.
type Structure string

const (
	NoLimit    Structure = "no_limit"
	PotLimit   Structure = "pot_limit"
	FixedLimit Structure = "fixed_limit"
)

// ActionType is a player action kind.
type ActionType string

const (
	ActionFold  ActionType = "fold"
	ActionCheck ActionType = "check"
	ActionCall  ActionType = "call"
	ActionBet   ActionType = "bet"
	ActionRaise ActionType = "raise"
	ActionAllIn ActionType = "allin"
)

// Action is one concrete decision by a seat. Chips is the seat's total wager
// for the current street after the action (ignored for fold/check).
type Action struct {
	Type  ActionType `json:"type"`
	Chips int64      `json:"chips,omitempty"`
}

// ValidActions describes the legal action set for the seat to act, including
// wager bounds where applicable. Amounts follow the Action convention: bet
// and raise bounds are totals for the street, CallAmount is the additional
// chips needed to call.
type ValidActions struct {
	CanFold     bool  `json:"can_fold"`
	CanCheck    bool  `json:"can_check"`
	CanCall     bool  `json:"can_call"`
	CallAmount  int64 `json:"call_amount,omitempty"`
	CanBet      bool  `json:"can_bet"`
	MinBet      int64 `json:"min_bet,omitempty"`
	MaxBet      int64 `json:"max_bet,omitempty"`
	CanRaise    bool  `json:"can_raise"`
	MinRaiseTo  int64 `json:"min_raise_to,omitempty"`
	MaxRaiseTo  int64 `json:"max_raise_to,omitempty"`
	CanAllIn    bool  `json:"can_allin"`
	AllInAmount int64 `json:"allin_amount,omitempty"`
}

// Allows reports whether the chosen action is a member of the legal set and,
// for wager actions, within bounds.
func (va ValidActions) Allows(act Action) bool {
	switch act.Type {
	case ActionFold:
		return va.CanFold
	case ActionCheck:
		return va.CanCheck
	case ActionCall:
		return va.CanCall
	case ActionBet:
		return va.CanBet && act.Chips >= va.MinBet && act.Chips <= va.MaxBet
	case ActionRaise:
		return va.CanRaise && act.Chips >= va.MinRaiseTo && act.Chips <= va.MaxRaiseTo
	case ActionAllIn:
		return va.CanAllIn
	default:
		return false
	}
}

// SeatConfig describes one participating seat at hand start.
type SeatConfig struct {
	Seat  int   `json:"seat"`
	Stack int64 `json:"stack"`
}

// HandConfig is the input to NewHand. Seats must be listed in clockwise table
// order. Button is a table seat id that must appear in Seats.
type HandConfig struct {
	Seats     []SeatConfig `json:"seats"`
	Button    int          `json:"button"`
	SB        int64        `json:"sb"`
	BB        int64        `json:"bb"`
	Ante      int64        `json:"ante"`
	Structure Structure    `json:"structure"`

	// Seed makes dealing deterministic when non-zero.
	Seed int64 `json:"-"`
}

// SeatState is the per-seat hand state. HoleCards is private information and
// must never be exposed to other seats before showdown.
type SeatState struct {
	Seat        int    `json:"seat"`
	Stack       int64  `json:"stack"`
	Committed   int64  `json:"committed"`
	Contributed int64  `json:"contributed"`
	Folded      bool   `json:"folded"`
	AllIn       bool   `json:"allin"`
	HoleCards   []Card `json:"hole_cards,omitempty"`
}

// HandState is the full authoritative state of one hand. It contains private
// information (deck, hole cards); callers building viewer-facing snapshots
// are responsible for redaction.
type HandState struct {
	Seats     []SeatState `json:"seats"`
	Button    int         `json:"button"`
	SB        int64       `json:"sb"`
	BB        int64       `json:"bb"`
	Ante      int64       `json:"ante"`
	Structure Structure   `json:"structure"`

	Street Street `json:"street"`
	Board  []Card `json:"board"`

	CurrentBet int64 `json:"current_bet"`
	MinRaiseTo int64 `json:"min_raise_to"`

	// Actor is the index into Seats of the seat to act, or -1 when no
	// decision is pending (betting closed or hand finished).
	Actor int `json:"actor"`

	// SawFlop is true once any flop card has been dealt; the driver's
	// no-flop-no-drop rake policy reads it.
	SawFlop bool `json:"saw_flop"`

	// Finished is true once no further decision points remain and the hand
	// is ready to settle.
	Finished bool `json:"finished"`

	deck        []Card
	toAct       int // eligible actors still owing a response this street
	raiseCount  int // raises this street, fixed-limit cap
	voluntaries int // voluntary (non-blind) wagers, informs SawAction
}

// SawAction reports whether any voluntary post-blind action occurred, the
// other half of the no-flop-no-drop test.
func (st *HandState) SawAction() bool {
	return st.voluntaries > 0
}

// ActingSeat returns the table seat id whose decision is pending, or -1.
func (st *HandState) ActingSeat() int {
	if st.Finished || st.Actor < 0 || st.Actor >= len(st.Seats) {
		return -1
	}
	return st.Seats[st.Actor].Seat
}

// SeatByID returns the seat state for a table seat id.
func (st *HandState) SeatByID(seat int) *SeatState {
	for i := range st.Seats {
		if st.Seats[i].Seat == seat {
			return &st.Seats[i]
		}
	}
	return nil
}

// PotResult is one settled pot. Share maps winning table seats to the exact
// chips awarded; the shares always sum to Total.
type PotResult struct {
	Pot      int            `json:"pot"`
	Total    int64          `json:"total"`
	Eligible []int          `json:"eligible"`
	Winners  []int          `json:"winners"`
	Share    map[int]int64  `json:"share"`
	Describe map[int]string `json:"describe,omitempty"`
}

// Settlement is the outcome of a finished hand before rake.
type Settlement struct {
	Pots []PotResult `json:"pots"`

	// Reveals carries hole cards of seats that reached showdown. Empty for
	// fold-wins.
	Reveals map[int][]Card `json:"reveals,omitempty"`
}

// Total returns the sum of all pot totals.
func (s *Settlement) Total() int64 {
	var total int64
	for _, p := range s.Pots {
		total += p.Total
	}
	return total
}

// Engine is the rules-engine capability boundary. The game driver consumes
// only this contract; any conforming implementation is substitutable.
type Engine interface {
	NewHand(cfg HandConfig) (*HandState, error)
	LegalActions(st *HandState) (int, ValidActions, error)
	Apply(st *HandState, seat int, act Action) (*HandState, error)
	Settle(st *HandState) (*Settlement, error)
}
