package cardroom

import (
	"go.uber.org/zap"

	"github.com/openpoker/cardroom/blind"
	"github.com/openpoker/cardroom/engine"
)

type GameFormat string

const (
	FormatCash     GameFormat = "cash"
	FormatSitAndGo GameFormat = "sit_n_go"
)

// RakeConfig is the cash-game rake policy. Percent is a fraction of the pot
// (0.05 for five percent), Cap limits the take per hand, and NoFlopNoDrop
// exempts hands with no flop and no voluntary post-blind action.
type RakeConfig struct {
	Percent      float64 `json:"percent"`
	Cap          int64   `json:"cap"`
	NoFlopNoDrop bool    `json:"no_flop_no_drop"`
}

// TableMeta is the table configuration consumed at creation time only.
type TableMeta struct {
	Name      string           `json:"name"`
	Format    GameFormat       `json:"format"`
	Structure engine.Structure `json:"structure"`

	SB   int64 `json:"sb"`
	BB   int64 `json:"bb"`
	Ante int64 `json:"ante"`

	MinPlayers int `json:"min_players"`
	MaxPlayers int `json:"max_players"`

	// Cash buy-in bounds; sit-n-go seats everyone with StartingStack.
	MinBuyIn      int64 `json:"min_buy_in,omitempty"`
	MaxBuyIn      int64 `json:"max_buy_in,omitempty"`
	StartingStack int64 `json:"starting_stack,omitempty"`

	// BlindLevels escalates blinds per completed hand for sit-n-go tables.
	// Empty means fixed blinds.
	BlindLevels []blind.Level `json:"blind_levels,omitempty"`

	Rake RakeConfig `json:"rake"`

	ActionTimeoutSec  int `json:"action_timeout_sec"`
	ReconnectGraceSec int `json:"reconnect_grace_sec"`

	// Seed makes the shuffle deterministic when non-zero; each hand derives
	// its own seed from it.
	Seed int64 `json:"seed,omitempty"`
}

// TableSetting is the input to CreateTable. An empty TableID gets a generated
// one.
type TableSetting struct {
	TableID string    `json:"table_id"`
	Meta    TableMeta `json:"meta"`
}

type TableEngineOptions struct {
	// StartCountdownSec is announced in GameStarting before the first hand.
	StartCountdownSec int

	// ReadyTimeoutSec bounds the seat ready gate; unready seats are
	// auto-readied when it lapses.
	ReadyTimeoutSec int

	// EventBuffer is the per-subscriber event channel depth.
	EventBuffer int

	Logger *zap.Logger
}

func NewTableEngineOptions() *TableEngineOptions {
	return &TableEngineOptions{
		StartCountdownSec: 3,
		ReadyTimeoutSec:   15,
		EventBuffer:       256,
		Logger:            zap.NewNop(),
	}
}

type TableEngineCallbacks struct {
	OnEvent  func(Event)
	OnError  func(tableID string, err error)
	OnClosed func(tableID string)
}

func NewTableEngineCallbacks() *TableEngineCallbacks {
	return &TableEngineCallbacks{
		OnEvent:  func(Event) {},
		OnError:  func(string, error) {},
		OnClosed: func(string) {},
	}
}

func (meta TableMeta) normalized() TableMeta {
	if meta.Format == "" {
		meta.Format = FormatCash
	}
	if meta.Structure == "" {
		meta.Structure = engine.NoLimit
	}
	if meta.MinPlayers <= 0 {
		meta.MinPlayers = 2
	}
	if meta.MaxPlayers <= 0 {
		meta.MaxPlayers = 9
	}
	if meta.ActionTimeoutSec <= 0 {
		meta.ActionTimeoutSec = 15
	}
	if meta.ReconnectGraceSec <= 0 {
		meta.ReconnectGraceSec = 30
	}
	if meta.Format == FormatSitAndGo {
		if meta.StartingStack <= 0 {
			meta.StartingStack = 1500
		}
		if len(meta.BlindLevels) == 0 {
			meta.BlindLevels = blind.DefaultSitAndGoLevels()
		}
	}
	return meta
}

func (meta TableMeta) valid() bool {
	if meta.SB <= 0 || meta.BB <= 0 || meta.SB > meta.BB || meta.Ante < 0 {
		return false
	}
	if meta.MinPlayers < 2 || meta.MaxPlayers < meta.MinPlayers {
		return false
	}
	if meta.Format == FormatCash && meta.MinBuyIn > 0 && meta.MaxBuyIn > 0 && meta.MinBuyIn > meta.MaxBuyIn {
		return false
	}
	return true
}
