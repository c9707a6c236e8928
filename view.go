package cardroom

import (
	"github.com/openpoker/cardroom/engine"
)

// ViewSeat is the per-viewer projection of one seat. Cards holds only what
// the viewer is entitled to see.
type ViewSeat struct {
	Seat       int           `json:"seat"`
	Name       string        `json:"name"`
	Stack      int64         `json:"stack"`
	Committed  int64         `json:"committed"`
	Folded     bool          `json:"folded"`
	Ready      bool          `json:"ready"`
	IsBot      bool          `json:"is_bot"`
	Eliminated bool          `json:"eliminated"`
	HasCards   bool          `json:"has_cards"`
	Cards      []engine.Card `json:"cards,omitempty"`
}

// ChatLine is one chat entry retained by the view.
type ChatLine struct {
	Seat int    `json:"seat"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// TableView is a derived projection built by folding redacted events. Two
// viewers of the same table agree on every public field.
type TableView struct {
	TableID string `json:"table_id"`
	HandID  string `json:"hand_id,omitempty"`
	Seq     uint64 `json:"seq"`
	Viewer  int    `json:"viewer"`

	Name       string     `json:"name"`
	Format     GameFormat `json:"format"`
	MinPlayers int        `json:"min_players"`
	MaxPlayers int        `json:"max_players"`

	HandNum int           `json:"hand_num"`
	Button  int           `json:"button"`
	SB      int64         `json:"sb"`
	BB      int64         `json:"bb"`
	Ante    int64         `json:"ante"`
	Street  engine.Street `json:"street"`
	Board   []engine.Card `json:"board"`
	Pot     int64         `json:"pot"`
	ToAct   int           `json:"to_act"`

	Seats map[int]*ViewSeat `json:"seats"`

	GameRunning bool       `json:"game_running"`
	GameOver    bool       `json:"game_over"`
	Standings   []Standing `json:"standings,omitempty"`

	Chat []ChatLine `json:"chat,omitempty"`
}

// NewTableView returns an empty view for the given viewer seat.
func NewTableView(viewer int) *TableView {
	return &TableView{
		Viewer: viewer,
		ToAct:  -1,
		Seats:  make(map[int]*ViewSeat),
	}
}

const viewChatLimit = 50

// Apply folds one redacted event into the view, returning a new view; the
// input is never mutated. A sequence gap is fatal for the viewer, who must
// resynchronize from a full snapshot.
func Apply(view *TableView, ev Event) (*TableView, error) {
	if view.Seq != 0 && ev.Seq != view.Seq+1 {
		return nil, ErrProtocolSequenceGap
	}
	if !payloadPresent(ev) {
		return nil, ErrProtocolBadPayload
	}

	next := view.clone()
	next.Seq = ev.Seq
	if ev.TableID != "" {
		next.TableID = ev.TableID
	}
	if ev.HandID != "" {
		next.HandID = ev.HandID
	}

	switch ev.Type {
	case EventGameCreated:
		p := ev.GameCreated
		next.Name = p.Name
		next.Format = p.Format
		next.SB = p.SB
		next.BB = p.BB
		next.MinPlayers = p.MinPlayers
		next.MaxPlayers = p.MaxPlayers

	case EventPlayerJoined:
		p := ev.PlayerJoined
		next.Seats[p.Seat] = &ViewSeat{
			Seat:  p.Seat,
			Name:  p.Name,
			Stack: p.Stack,
			IsBot: p.IsBot,
			Ready: p.IsBot,
		}

	case EventPlayerLeft:
		delete(next.Seats, ev.PlayerLeft.Seat)

	case EventPlayerReady:
		if seat, ok := next.Seats[ev.PlayerReady.Seat]; ok {
			seat.Ready = true
		}

	case EventGameStarted:
		next.GameRunning = true

	case EventHandStarted:
		p := ev.HandStarted
		next.HandNum = p.HandNum
		next.Button = p.Button
		next.SB = p.SB
		next.BB = p.BB
		next.Ante = p.Ante
		next.Street = engine.StreetDealing
		next.Board = nil
		next.Pot = 0
		next.ToAct = -1
		for _, seat := range next.Seats {
			seat.Committed = 0
			seat.Folded = false
			seat.HasCards = false
			seat.Cards = nil
		}
		for _, info := range p.Seats {
			if seat, ok := next.Seats[info.Seat]; ok {
				seat.Stack = info.Stack
			}
		}

	case EventHoleCardsDealt:
		p := ev.HoleCardsDealt
		if seat, ok := next.Seats[p.Seat]; ok {
			seat.HasCards = true
			seat.Cards = append([]engine.Card(nil), p.Cards...)
		}

	case EventBlindPosted:
		p := ev.BlindPosted
		next.Pot += p.Amount
		if seat, ok := next.Seats[p.Seat]; ok {
			seat.Stack -= p.Amount
			if p.Kind != "ante" {
				seat.Committed += p.Amount
			}
		}

	case EventBlindLevelChange:
		p := ev.BlindLevelChange
		next.SB = p.SB
		next.BB = p.BB
		next.Ante = p.Ante

	case EventStreetChanged:
		p := ev.StreetChanged
		next.Street = p.Street
		next.Board = append([]engine.Card(nil), p.Board...)
		next.Pot = p.Pot
		next.ToAct = -1
		for _, seat := range next.Seats {
			seat.Committed = 0
		}

	case EventActionRequested:
		next.ToAct = ev.ActionRequested.Seat

	case EventActionTaken:
		p := ev.ActionTaken
		next.ToAct = -1
		seat, ok := next.Seats[p.Seat]
		if !ok {
			break
		}
		switch p.Action.Type {
		case engine.ActionFold:
			seat.Folded = true
		case engine.ActionCall, engine.ActionBet, engine.ActionRaise, engine.ActionAllIn:
			delta := p.Action.Chips - seat.Committed
			if delta > 0 {
				seat.Stack -= delta
				seat.Committed = p.Action.Chips
				next.Pot += delta
			}
		}

	case EventShowdownReveal:
		p := ev.ShowdownReveal
		for seatID, cards := range p.Reveals {
			if seat, ok := next.Seats[seatID]; ok {
				seat.HasCards = true
				seat.Cards = append([]engine.Card(nil), cards...)
			}
		}

	case EventPotAwarded:
		p := ev.PotAwarded
		for seatID, amount := range p.Share {
			if seat, ok := next.Seats[seatID]; ok {
				seat.Stack += amount
			}
		}
		next.Pot -= p.Amount
		if next.Pot < 0 {
			next.Pot = 0
		}

	case EventPlayerEliminated:
		if seat, ok := next.Seats[ev.PlayerEliminated.Seat]; ok {
			seat.Eliminated = true
		}

	case EventHandEnded:
		p := ev.HandEnded
		for _, result := range p.Results {
			if seat, ok := next.Seats[result.Seat]; ok {
				seat.Stack = result.FinalStack
			}
		}
		next.Pot = 0
		next.ToAct = -1

	case EventGameEnded:
		p := ev.GameEnded
		next.GameRunning = false
		next.GameOver = true
		next.Standings = append([]Standing(nil), p.Standings...)
		next.ToAct = -1

	case EventChatMessage:
		p := ev.ChatMessage
		next.Chat = append(next.Chat, ChatLine{Seat: p.Seat, Name: p.Name, Text: p.Text})
		if len(next.Chat) > viewChatLimit {
			next.Chat = next.Chat[len(next.Chat)-viewChatLimit:]
		}
	}

	return next, nil
}

// payloadPresent verifies the payload pointer matching ev.Type is set. A
// decodable frame with a missing payload is a malformed event, not a panic.
func payloadPresent(ev Event) bool {
	switch ev.Type {
	case EventGameCreated:
		return ev.GameCreated != nil
	case EventPlayerJoined:
		return ev.PlayerJoined != nil
	case EventPlayerLeft:
		return ev.PlayerLeft != nil
	case EventPlayerReady:
		return ev.PlayerReady != nil
	case EventGameStarting:
		return ev.GameStarting != nil
	case EventGameStarted:
		return ev.GameStarted != nil
	case EventHandStarted:
		return ev.HandStarted != nil
	case EventHoleCardsDealt:
		return ev.HoleCardsDealt != nil
	case EventBlindPosted:
		return ev.BlindPosted != nil
	case EventBlindLevelChange:
		return ev.BlindLevelChange != nil
	case EventStreetChanged:
		return ev.StreetChanged != nil
	case EventActionRequested:
		return ev.ActionRequested != nil
	case EventActionTaken:
		return ev.ActionTaken != nil
	case EventShowdownReveal:
		return ev.ShowdownReveal != nil
	case EventPotAwarded:
		return ev.PotAwarded != nil
	case EventPlayerEliminated:
		return ev.PlayerEliminated != nil
	case EventHandEnded:
		return ev.HandEnded != nil
	case EventGameEnded:
		return ev.GameEnded != nil
	case EventChatMessage:
		return ev.ChatMessage != nil
	default:
		return true
	}
}

// BuildView replays a table's event sequence through Redact and Apply,
// reconstructing the viewer's projection from scratch.
func BuildView(events []Event, viewer int) (*TableView, error) {
	view := NewTableView(viewer)
	for _, ev := range events {
		next, err := Apply(view, Redact(ev, viewer))
		if err != nil {
			return nil, err
		}
		view = next
	}
	return view, nil
}

func (view *TableView) clone() *TableView {
	next := *view
	next.Seats = make(map[int]*ViewSeat, len(view.Seats))
	for id, seat := range view.Seats {
		copied := *seat
		copied.Cards = append([]engine.Card(nil), seat.Cards...)
		next.Seats[id] = &copied
	}
	next.Board = append([]engine.Card(nil), view.Board...)
	next.Standings = append([]Standing(nil), view.Standings...)
	next.Chat = append([]ChatLine(nil), view.Chat...)
	return &next
}
