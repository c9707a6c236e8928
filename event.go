package cardroom

import (
	"github.com/openpoker/cardroom/engine"
)

// EventType tags the closed set of state transitions.
type EventType string

const (
	EventGameCreated      EventType = "game_created"
	EventPlayerJoined     EventType = "player_joined"
	EventPlayerLeft       EventType = "player_left"
	EventPlayerReady      EventType = "player_ready"
	EventGameStarting     EventType = "game_starting"
	EventGameStarted      EventType = "game_started"
	EventHandStarted      EventType = "hand_started"
	EventHoleCardsDealt   EventType = "hole_cards_dealt"
	EventBlindPosted      EventType = "blind_posted"
	EventBlindLevelChange EventType = "blind_level_change"
	EventStreetChanged    EventType = "street_changed"
	EventActionRequested  EventType = "action_requested"
	EventActionTaken      EventType = "action_taken"
	EventShowdownReveal   EventType = "showdown_reveal"
	EventPotAwarded       EventType = "pot_awarded"
	EventPlayerEliminated EventType = "player_eliminated"
	EventHandEnded        EventType = "hand_ended"
	EventGameEnded        EventType = "game_ended"
	EventChatMessage      EventType = "chat_message"
)

// ObserverSeat is the viewer seat of a pure spectator; it owns no hole cards.
const ObserverSeat = -1

// Event is one immutable record of a state transition. Seq is assigned by the
// table's event log and is strictly monotonic per table; exactly one payload
// pointer is set, matching Type.
type Event struct {
	TableID string    `json:"table_id"`
	HandID  string    `json:"hand_id,omitempty"`
	Seq     uint64    `json:"seq"`
	Type    EventType `json:"type"`
	Time    int64     `json:"time"`

	GameCreated      *GameCreatedPayload      `json:"game_created,omitempty"`
	PlayerJoined     *PlayerJoinedPayload     `json:"player_joined,omitempty"`
	PlayerLeft       *PlayerLeftPayload       `json:"player_left,omitempty"`
	PlayerReady      *PlayerReadyPayload      `json:"player_ready,omitempty"`
	GameStarting     *GameStartingPayload     `json:"game_starting,omitempty"`
	GameStarted      *GameStartedPayload      `json:"game_started,omitempty"`
	HandStarted      *HandStartedPayload      `json:"hand_started,omitempty"`
	HoleCardsDealt   *HoleCardsDealtPayload   `json:"hole_cards_dealt,omitempty"`
	BlindPosted      *BlindPostedPayload      `json:"blind_posted,omitempty"`
	BlindLevelChange *BlindLevelChangePayload `json:"blind_level_change,omitempty"`
	StreetChanged    *StreetChangedPayload    `json:"street_changed,omitempty"`
	ActionRequested  *ActionRequestedPayload  `json:"action_requested,omitempty"`
	ActionTaken      *ActionTakenPayload      `json:"action_taken,omitempty"`
	ShowdownReveal   *ShowdownRevealPayload   `json:"showdown_reveal,omitempty"`
	PotAwarded       *PotAwardedPayload       `json:"pot_awarded,omitempty"`
	PlayerEliminated *PlayerEliminatedPayload `json:"player_eliminated,omitempty"`
	HandEnded        *HandEndedPayload        `json:"hand_ended,omitempty"`
	GameEnded        *GameEndedPayload        `json:"game_ended,omitempty"`
	ChatMessage      *ChatMessagePayload      `json:"chat_message,omitempty"`
}

type GameCreatedPayload struct {
	Name       string     `json:"name"`
	Format     GameFormat `json:"format"`
	SB         int64      `json:"sb"`
	BB         int64      `json:"bb"`
	MinPlayers int        `json:"min_players"`
	MaxPlayers int        `json:"max_players"`
}

type PlayerJoinedPayload struct {
	Seat  int    `json:"seat"`
	Name  string `json:"name"`
	Stack int64  `json:"stack"`
	IsBot bool   `json:"is_bot"`
}

type PlayerLeftPayload struct {
	Seat int    `json:"seat"`
	Name string `json:"name"`
}

type PlayerReadyPayload struct {
	Seat int `json:"seat"`
}

type GameStartingPayload struct {
	CountdownSec int `json:"countdown_sec"`
}

type GameStartedPayload struct {
	Seats []SeatInfo `json:"seats"`
}

type HandStartedPayload struct {
	HandNum int        `json:"hand_num"`
	Button  int        `json:"button"`
	SB      int64      `json:"sb"`
	BB      int64      `json:"bb"`
	Ante    int64      `json:"ante"`
	Level   int        `json:"level,omitempty"`
	Seats   []SeatInfo `json:"seats"`
}

// HoleCardsDealtPayload is private to its seat until redaction lifts. Masked
// marks a redacted copy so views can still show card backs.
type HoleCardsDealtPayload struct {
	Seat   int           `json:"seat"`
	Cards  []engine.Card `json:"cards,omitempty"`
	Masked bool          `json:"masked,omitempty"`
}

type BlindPostedPayload struct {
	Seat   int    `json:"seat"`
	Kind   string `json:"kind"` // "small", "big", "ante"
	Amount int64  `json:"amount"`
}

type BlindLevelChangePayload struct {
	Level int   `json:"level"`
	SB    int64 `json:"sb"`
	BB    int64 `json:"bb"`
	Ante  int64 `json:"ante"`
}

type StreetChangedPayload struct {
	Street engine.Street `json:"street"`
	Board  []engine.Card `json:"board"`
	Pot    int64         `json:"pot"`
}

type ActionRequestedPayload struct {
	Seat        int                 `json:"seat"`
	RequestID   string              `json:"request_id"`
	Valid       engine.ValidActions `json:"valid"`
	TimeLimitMs int64               `json:"time_limit_ms"`
}

type ActionTakenPayload struct {
	Seat      int           `json:"seat"`
	RequestID string        `json:"request_id"`
	Action    engine.Action `json:"action"`
	TimedOut  bool          `json:"timed_out,omitempty"`
	Defaulted bool          `json:"defaulted,omitempty"`
}

// ShowdownRevealPayload carries every non-folded seat's hole cards; it is
// exempt from redaction.
type ShowdownRevealPayload struct {
	Reveals  map[int][]engine.Card `json:"reveals"`
	Describe map[int]string        `json:"describe,omitempty"`
}

type PotAwardedPayload struct {
	Pot     int           `json:"pot"`
	Amount  int64         `json:"amount"`
	Winners []int         `json:"winners"`
	Share   map[int]int64 `json:"share"`
}

type PlayerEliminatedPayload struct {
	Seat int    `json:"seat"`
	Name string `json:"name"`
}

// HandResult is one seat's outcome for a settled hand.
type HandResult struct {
	Seat        int    `json:"seat"`
	Name        string `json:"name"`
	StackChange int64  `json:"stack_change"`
	FinalStack  int64  `json:"final_stack"`
	Description string `json:"description,omitempty"`
}

type HandEndedPayload struct {
	HandNum int          `json:"hand_num"`
	Results []HandResult `json:"results"`
	Rake    int64        `json:"rake,omitempty"`
}

// Standing is one seat's final placement when a game ends.
type Standing struct {
	Position int    `json:"position"`
	Seat     int    `json:"seat"`
	Name     string `json:"name"`
	Stack    int64  `json:"stack"`
}

type GameEndedPayload struct {
	Reason    string     `json:"reason"`
	Standings []Standing `json:"standings,omitempty"`
}

type ChatMessagePayload struct {
	Seat int    `json:"seat"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// Redact returns a copy of the event safe for the given viewer seat: hole
// cards of other seats are masked, everything public is untouched. Ordering
// and Seq are never altered. ShowdownReveal is exempt. ObserverSeat masks all
// hole cards.
func Redact(ev Event, viewer int) Event {
	if ev.Type != EventHoleCardsDealt || ev.HoleCardsDealt == nil {
		return ev
	}
	if ev.HoleCardsDealt.Seat == viewer {
		return ev
	}

	masked := *ev.HoleCardsDealt
	masked.Cards = nil
	masked.Masked = true
	ev.HoleCardsDealt = &masked
	return ev
}
