package cardroom

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thoas/go-funk"
	"github.com/weedbox/syncsaga"
	"github.com/weedbox/timebank"
	"go.uber.org/zap"

	"github.com/openpoker/cardroom/blind"
	"github.com/openpoker/cardroom/engine"
)

type TableStatus string

const (
	TableStatus_Created   TableStatus = "created"
	TableStatus_Gathering TableStatus = "gathering"
	TableStatus_Playing   TableStatus = "playing"
	TableStatus_Closed    TableStatus = "closed"
)

// SeatInfo is the public roster entry for one seat.
type SeatInfo struct {
	Seat  int    `json:"seat"`
	Name  string `json:"name"`
	Stack int64  `json:"stack"`
	Ready bool   `json:"ready"`
	IsBot bool   `json:"is_bot"`
	Out   bool   `json:"out"`
}

type TableEngineOpt func(*tableEngine)

type TableEngine interface {
	// Events
	OnEvent(fn func(Event))
	OnError(fn func(tableID string, err error))
	OnClosed(fn func(tableID string))

	// Table Actions
	CreateTable(setting TableSetting) error
	CloseTable() error
	StartGame() error
	StopGame() error
	TableID() string
	Meta() TableMeta
	Status() TableStatus
	EventLog() *Log
	Roster() []SeatInfo
	View(viewer int) (*TableView, error)

	// Roster Actions
	Join(name string, buyIn int64, src DecisionSource) (int, error)
	Leave(seat int) error
	AddBot(name string) (int, error)
	RemoveBot(seat int) error
	SetReady(seat int) error
	SubmitChat(seat int, text string) error
}

type tableSeat struct {
	info   SeatInfo
	source DecisionSource
	left   bool
}

type tableEngine struct {
	lock       sync.Mutex
	options    *TableEngineOptions
	setting    TableSetting
	logger     *zap.Logger
	log        *Log
	game       engine.Engine
	clock      *blind.Clock
	rg         *syncsaga.ReadyGroup
	tb         *timebank.TimeBank
	botFactory func(name string) DecisionSource

	seats         map[int]*tableSeat
	status        TableStatus
	handNum       int
	button        int
	stopRequested bool

	onEvent  func(Event)
	onError  func(tableID string, err error)
	onClosed func(tableID string)
}

func NewTableEngine(options *TableEngineOptions, opts ...TableEngineOpt) TableEngine {
	if options == nil {
		options = NewTableEngineOptions()
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}

	callbacks := NewTableEngineCallbacks()
	te := &tableEngine{
		options:  options,
		logger:   options.Logger,
		game:     engine.NewHoldem(),
		rg:       syncsaga.NewReadyGroup(),
		tb:       timebank.NewTimeBank(),
		seats:    make(map[int]*tableSeat),
		button:   -1,
		onEvent:  callbacks.OnEvent,
		onError:  callbacks.OnError,
		onClosed: callbacks.OnClosed,
	}

	for _, opt := range opts {
		opt(te)
	}

	return te
}

// WithGameEngine substitutes the rules engine implementation.
func WithGameEngine(game engine.Engine) TableEngineOpt {
	return func(te *tableEngine) {
		te.game = game
	}
}

// WithBotFactory enables AddBot by supplying a bot decision source
// constructor.
func WithBotFactory(fn func(name string) DecisionSource) TableEngineOpt {
	return func(te *tableEngine) {
		te.botFactory = fn
	}
}

func (te *tableEngine) OnEvent(fn func(Event)) {
	te.lock.Lock()
	defer te.lock.Unlock()
	te.onEvent = fn
}

func (te *tableEngine) OnError(fn func(tableID string, err error)) {
	te.lock.Lock()
	defer te.lock.Unlock()
	te.onError = fn
}

func (te *tableEngine) OnClosed(fn func(tableID string)) {
	te.lock.Lock()
	defer te.lock.Unlock()
	te.onClosed = fn
}

func (te *tableEngine) CreateTable(setting TableSetting) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.log != nil {
		return ErrTableGameInProgress
	}

	setting.Meta = setting.Meta.normalized()
	if !setting.Meta.valid() {
		return ErrTableInvalidSetting
	}
	if setting.TableID == "" {
		setting.TableID = uuid.New().String()
	}

	te.setting = setting
	te.log = NewLog(setting.TableID, te.logger)
	te.status = TableStatus_Created
	if setting.Meta.Format == FormatSitAndGo {
		te.clock = blind.NewClock(setting.Meta.BlindLevels)
	}

	te.emitEvent(Event{
		Type: EventGameCreated,
		GameCreated: &GameCreatedPayload{
			Name:       setting.Meta.Name,
			Format:     setting.Meta.Format,
			SB:         setting.Meta.SB,
			BB:         setting.Meta.BB,
			MinPlayers: setting.Meta.MinPlayers,
			MaxPlayers: setting.Meta.MaxPlayers,
		},
	})

	te.logger.Info("table created",
		zap.String("table_id", setting.TableID),
		zap.String("name", setting.Meta.Name),
		zap.String("format", string(setting.Meta.Format)))

	return nil
}

func (te *tableEngine) CloseTable() error {
	te.lock.Lock()

	if te.status == TableStatus_Closed {
		te.lock.Unlock()
		return nil
	}

	wasPlaying := te.status == TableStatus_Playing
	te.status = TableStatus_Closed
	te.stopRequested = true
	te.rg.Stop()
	te.tb.Cancel()
	te.lock.Unlock()

	// A running driver finishes the current hand and performs teardown
	// itself.
	if !wasPlaying {
		te.teardown()
	}
	return nil
}

func (te *tableEngine) StartGame() error {
	te.lock.Lock()

	if te.log == nil {
		te.lock.Unlock()
		return ErrTableInvalidSetting
	}
	switch te.status {
	case TableStatus_Closed:
		te.lock.Unlock()
		return ErrTableClosed
	case TableStatus_Playing, TableStatus_Gathering:
		te.lock.Unlock()
		return ErrTableGameInProgress
	}
	if te.seatedCount() < te.setting.Meta.MinPlayers {
		te.lock.Unlock()
		return ErrTableNotEnoughSeated
	}

	te.status = TableStatus_Gathering

	// Gate the first hand on every seat being ready; seats that never
	// respond are auto-readied when the window lapses.
	te.rg.Stop()
	te.rg.SetTimeoutInterval(te.options.ReadyTimeoutSec)
	te.rg.OnTimeout(func(rg *syncsaga.ReadyGroup) {
		unready := make([]int64, 0)
		te.lock.Lock()
		for seatID, isReady := range rg.GetParticipantStates() {
			if !isReady {
				if seat, ok := te.seats[int(seatID)]; ok {
					seat.info.Ready = true
					te.emitEvent(Event{Type: EventPlayerReady, PlayerReady: &PlayerReadyPayload{Seat: int(seatID)}})
				}
				unready = append(unready, seatID)
			}
		}
		te.lock.Unlock()

		// Ready outside the lock; completion may fire inline.
		for _, seatID := range unready {
			rg.Ready(seatID)
		}
	})
	te.rg.OnCompleted(func(rg *syncsaga.ReadyGroup) {
		te.lock.Lock()
		defer te.lock.Unlock()
		if te.status != TableStatus_Gathering {
			return
		}

		countdown := te.options.StartCountdownSec
		te.emitEvent(Event{Type: EventGameStarting, GameStarting: &GameStartingPayload{CountdownSec: countdown}})
		if err := te.tb.NewTask(time.Duration(countdown)*time.Second, func(isCancelled bool) {
			if isCancelled {
				return
			}
			te.beginGame()
		}); err != nil {
			te.emitErrorEvent("start countdown", err)
		}
	})

	te.rg.ResetParticipants()
	ready := make([]int64, 0, len(te.seats))
	for seatID, seat := range te.seats {
		te.rg.Add(int64(seatID), false)
		if seat.info.Ready {
			ready = append(ready, int64(seatID))
		}
	}
	te.lock.Unlock()

	te.rg.Start()
	for _, seatID := range ready {
		te.rg.Ready(seatID)
	}

	return nil
}

func (te *tableEngine) StopGame() error {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.status != TableStatus_Playing && te.status != TableStatus_Gathering {
		return ErrTableGameNotRunning
	}
	if te.status == TableStatus_Gathering {
		te.rg.Stop()
		te.tb.Cancel()
		te.status = TableStatus_Created
		return nil
	}

	te.stopRequested = true
	return nil
}

func (te *tableEngine) TableID() string {
	return te.setting.TableID
}

func (te *tableEngine) Meta() TableMeta {
	return te.setting.Meta
}

func (te *tableEngine) Status() TableStatus {
	te.lock.Lock()
	defer te.lock.Unlock()
	return te.status
}

func (te *tableEngine) EventLog() *Log {
	return te.log
}

func (te *tableEngine) Roster() []SeatInfo {
	te.lock.Lock()
	defer te.lock.Unlock()

	roster := make([]SeatInfo, 0, len(te.seats))
	for _, seat := range te.seats {
		roster = append(roster, seat.info)
	}
	sort.Slice(roster, func(i, j int) bool { return roster[i].Seat < roster[j].Seat })
	return roster
}

func (te *tableEngine) View(viewer int) (*TableView, error) {
	return BuildView(te.log.Events(), viewer)
}

func (te *tableEngine) Join(name string, buyIn int64, src DecisionSource) (int, error) {
	te.lock.Lock()
	defer te.lock.Unlock()
	return te.join(name, buyIn, src)
}

func (te *tableEngine) join(name string, buyIn int64, src DecisionSource) (int, error) {
	if te.log == nil {
		return -1, ErrTableInvalidSetting
	}
	switch te.status {
	case TableStatus_Closed:
		return -1, ErrTableClosed
	case TableStatus_Playing, TableStatus_Gathering:
		return -1, ErrTableGameInProgress
	}

	meta := te.setting.Meta
	if len(te.seats) >= meta.MaxPlayers {
		return -1, ErrSessionTableFull
	}

	names := make([]string, 0, len(te.seats))
	for _, seat := range te.seats {
		names = append(names, seat.info.Name)
	}
	if funk.ContainsString(names, name) {
		return -1, ErrTableNameTaken
	}

	stack := buyIn
	if meta.Format == FormatSitAndGo {
		stack = meta.StartingStack
	} else {
		if meta.MinBuyIn > 0 && stack < meta.MinBuyIn {
			return -1, ErrTableInvalidBuyIn
		}
		if meta.MaxBuyIn > 0 && stack > meta.MaxBuyIn {
			return -1, ErrTableInvalidBuyIn
		}
		if stack <= 0 {
			return -1, ErrTableInvalidBuyIn
		}
	}

	seatID := -1
	for i := 0; i < meta.MaxPlayers; i++ {
		if _, taken := te.seats[i]; !taken {
			seatID = i
			break
		}
	}
	if seatID == -1 {
		return -1, ErrSessionTableFull
	}

	isBot := src != nil && !src.IsHuman()
	te.seats[seatID] = &tableSeat{
		info: SeatInfo{
			Seat:  seatID,
			Name:  name,
			Stack: stack,
			Ready: isBot,
			IsBot: isBot,
		},
		source: src,
	}

	te.emitEvent(Event{
		Type: EventPlayerJoined,
		PlayerJoined: &PlayerJoinedPayload{
			Seat:  seatID,
			Name:  name,
			Stack: stack,
			IsBot: isBot,
		},
	})

	return seatID, nil
}

func (te *tableEngine) Leave(seatID int) error {
	te.lock.Lock()
	defer te.lock.Unlock()
	return te.leave(seatID)
}

func (te *tableEngine) leave(seatID int) error {
	seat, ok := te.seats[seatID]
	if !ok {
		return ErrTableSeatNotFound
	}

	if te.status == TableStatus_Playing {
		// Mid-game departure: the seat defaults its remaining decisions
		// and is removed once the hand settles.
		seat.left = true
		return nil
	}

	delete(te.seats, seatID)
	te.emitEvent(Event{
		Type:       EventPlayerLeft,
		PlayerLeft: &PlayerLeftPayload{Seat: seatID, Name: seat.info.Name},
	})
	return nil
}

func (te *tableEngine) AddBot(name string) (int, error) {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.botFactory == nil {
		return -1, ErrTableNoBotFactory
	}

	buyIn := te.setting.Meta.MinBuyIn
	if buyIn <= 0 {
		buyIn = te.setting.Meta.BB * 100
	}
	return te.join(name, buyIn, te.botFactory(name))
}

func (te *tableEngine) RemoveBot(seatID int) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	seat, ok := te.seats[seatID]
	if !ok {
		return ErrTableSeatNotFound
	}
	if !seat.info.IsBot {
		return ErrTableSeatNotBot
	}
	return te.leave(seatID)
}

func (te *tableEngine) SetReady(seatID int) error {
	te.lock.Lock()

	seat, ok := te.seats[seatID]
	if !ok {
		te.lock.Unlock()
		return ErrTableSeatNotFound
	}
	if seat.info.Ready {
		te.lock.Unlock()
		return nil
	}

	seat.info.Ready = true
	te.emitEvent(Event{Type: EventPlayerReady, PlayerReady: &PlayerReadyPayload{Seat: seatID}})
	gathering := te.status == TableStatus_Gathering
	te.lock.Unlock()

	if gathering {
		te.rg.Ready(int64(seatID))
	}
	return nil
}

func (te *tableEngine) SubmitChat(seatID int, text string) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	seat, ok := te.seats[seatID]
	if !ok {
		return ErrTableSeatNotFound
	}
	if text == "" {
		return nil
	}

	te.emitEvent(Event{
		Type:        EventChatMessage,
		ChatMessage: &ChatMessagePayload{Seat: seatID, Name: seat.info.Name, Text: text},
	})
	return nil
}

// emitEvent appends to the log and fans out, redacted per seat. Callers hold
// te.lock.
func (te *tableEngine) emitEvent(ev Event) Event {
	stamped := te.log.Append(ev)
	te.onEvent(stamped)
	for seatID, seat := range te.seats {
		if seat.source != nil && !seat.left {
			seat.source.Notify(Redact(stamped, seatID))
		}
	}
	return stamped
}

func (te *tableEngine) emitErrorEvent(scope string, err error) {
	te.logger.Error("table error",
		zap.String("table_id", te.setting.TableID),
		zap.String("scope", scope),
		zap.Error(err))
	te.onError(te.setting.TableID, err)
}

func (te *tableEngine) seatedCount() int {
	n := 0
	for _, seat := range te.seats {
		if !seat.left && !seat.info.Out {
			n++
		}
	}
	return n
}
