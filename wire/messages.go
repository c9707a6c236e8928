package wire

import (
	"github.com/openpoker/cardroom"
	"github.com/openpoker/cardroom/engine"
)

// MessageType discriminates the tagged message union. Client-to-server and
// server-to-client types share one envelope.
type MessageType string

const (
	// Client to server.
	TypeLogin      MessageType = "login"
	TypeListTables MessageType = "list_tables"
	TypeJoinTable  MessageType = "join_table"
	TypeLeaveTable MessageType = "leave_table"
	TypeReady      MessageType = "ready"
	TypeAddAI      MessageType = "add_ai"
	TypeRemoveAI   MessageType = "remove_ai"
	TypeStartGame  MessageType = "start_game"
	TypeAction     MessageType = "action"
	TypeChat       MessageType = "chat"

	// Server to client.
	TypeWelcome       MessageType = "welcome"
	TypeError         MessageType = "error"
	TypeLobbyState    MessageType = "lobby_state"
	TypeTableJoined   MessageType = "table_joined"
	TypePlayerJoined  MessageType = "player_joined"
	TypePlayerLeft    MessageType = "player_left"
	TypePlayerReady   MessageType = "player_ready"
	TypeAIAdded       MessageType = "ai_added"
	TypeAIRemoved     MessageType = "ai_removed"
	TypeGameStarting  MessageType = "game_starting"
	TypeGameEvent     MessageType = "game_event"
	TypeActionRequest MessageType = "action_request"
)

// Message is the wire envelope: a type tag plus exactly one payload pointer.
type Message struct {
	Type MessageType `json:"type"`

	Login     *Login     `json:"login,omitempty"`
	JoinTable *JoinTable `json:"join_table,omitempty"`
	RemoveAI  *RemoveAI  `json:"remove_ai,omitempty"`
	AddAI     *AddAI     `json:"add_ai,omitempty"`
	Action    *Action    `json:"action,omitempty"`
	Chat      *Chat      `json:"chat,omitempty"`

	Welcome       *Welcome       `json:"welcome,omitempty"`
	Error         *Error         `json:"error,omitempty"`
	LobbyState    *LobbyState    `json:"lobby_state,omitempty"`
	TableJoined   *TableJoined   `json:"table_joined,omitempty"`
	PlayerJoined  *PlayerJoined  `json:"player_joined,omitempty"`
	PlayerLeft    *PlayerLeft    `json:"player_left,omitempty"`
	PlayerReady   *PlayerReady   `json:"player_ready,omitempty"`
	AIAdded       *AIAdded       `json:"ai_added,omitempty"`
	AIRemoved     *AIRemoved     `json:"ai_removed,omitempty"`
	GameStarting  *GameStarting  `json:"game_starting,omitempty"`
	GameEvent     *GameEvent     `json:"game_event,omitempty"`
	ActionRequest *ActionRequest `json:"action_request,omitempty"`
}

type Login struct {
	Username string `json:"username"`
}

type JoinTable struct {
	TableID string `json:"table_id"`
	BuyIn   int64  `json:"buy_in,omitempty"`
}

type AddAI struct {
	Name string `json:"name,omitempty"`
}

type RemoveAI struct {
	Seat int `json:"seat"`
}

// Action answers an ActionRequest; RequestID correlates the pair. A response
// carrying a stale or unknown RequestID is discarded.
type Action struct {
	RequestID string        `json:"request_id"`
	Action    engine.Action `json:"action"`
}

type Chat struct {
	Text string `json:"text"`
}

type Welcome struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type Error struct {
	Message string `json:"message"`
}

type LobbyState struct {
	Tables []cardroom.TableSummary `json:"tables"`
}

type TableJoined struct {
	TableID    string              `json:"table_id"`
	TableName  string              `json:"table_name"`
	Seat       int                 `json:"seat"`
	Players    []cardroom.SeatInfo `json:"players"`
	MinPlayers int                 `json:"min_players"`
	MaxPlayers int                 `json:"max_players"`

	// Seq is the table's current event sequence; the GameEvent stream
	// resumes from Seq+1.
	Seq uint64 `json:"seq"`
}

type PlayerJoined struct {
	Seat     int    `json:"seat"`
	Username string `json:"username"`
	IsAI     bool   `json:"is_ai,omitempty"`
}

type PlayerLeft struct {
	Seat     int    `json:"seat"`
	Username string `json:"username"`
}

type PlayerReady struct {
	Seat int `json:"seat"`
}

type AIAdded struct {
	Seat int    `json:"seat"`
	Name string `json:"name"`
}

type AIRemoved struct {
	Seat int `json:"seat"`
}

type GameStarting struct {
	Countdown int `json:"countdown"`
}

// GameEvent pushes one redacted table event; Event.Seq carries the per-table
// ordering the client must verify.
type GameEvent struct {
	Event cardroom.Event `json:"event"`
}

// ActionRequest pushes a decision request to the seat's connection.
type ActionRequest struct {
	RequestID   string                 `json:"request_id"`
	Snapshot    *cardroom.GameSnapshot `json:"snapshot"`
	Valid       engine.ValidActions    `json:"valid_actions"`
	TimeLimitMs int64                  `json:"time_limit_ms"`
}
