package cardroom

import (
	"context"
	"time"

	"github.com/openpoker/cardroom/engine"
)

// SnapshotSeat is the public per-seat information inside a GameSnapshot.
type SnapshotSeat struct {
	Seat      int    `json:"seat"`
	Name      string `json:"name"`
	Stack     int64  `json:"stack"`
	Committed int64  `json:"committed"`
	Folded    bool   `json:"folded"`
	AllIn     bool   `json:"allin"`
}

// ActionRecord is one completed decision in the current hand's history.
type ActionRecord struct {
	Seat     int           `json:"seat"`
	Street   engine.Street `json:"street"`
	Action   engine.Action `json:"action"`
	TimedOut bool          `json:"timed_out,omitempty"`
}

// GameSnapshot is the immutable view handed to a decision source with an
// action request. It carries public state for every seat plus the requesting
// seat's own hole cards only; it is built fresh per request and never shared
// across seats.
type GameSnapshot struct {
	TableID string `json:"table_id"`
	HandID  string `json:"hand_id"`
	HandNum int    `json:"hand_num"`
	Time    int64  `json:"time"`

	Street     engine.Street `json:"street"`
	Board      []engine.Card `json:"board"`
	Pot        int64         `json:"pot"`
	CurrentBet int64         `json:"current_bet"`
	Button     int           `json:"button"`

	Seats []SnapshotSeat `json:"seats"`

	// Self is the requesting seat; HoleCards are its own cards.
	Self      int           `json:"self"`
	HoleCards []engine.Card `json:"hole_cards"`

	History []ActionRecord `json:"history,omitempty"`
}

// DecisionSource answers action requests for one seat. The driver only ever
// calls this contract; a source's internal strategy is opaque.
//
// RequestAction may block up to timeLimit; the driver resolves the request
// with a default action at the deadline regardless, and any later return
// value is discarded. Notify must not block the caller; sources needing
// buffering own it themselves.
type DecisionSource interface {
	Name() string
	IsHuman() bool
	RequestAction(ctx context.Context, snapshot *GameSnapshot, valid engine.ValidActions, timeLimit time.Duration) (engine.Action, error)
	Notify(ev Event)
}

// DefaultAction is the substitute applied on timeout or rule violation: fold
// when facing a wager, otherwise check.
func DefaultAction(valid engine.ValidActions) engine.Action {
	if valid.CanCheck {
		return engine.Action{Type: engine.ActionCheck}
	}
	return engine.Action{Type: engine.ActionFold}
}
