package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/weedbox/timebank"
	"go.uber.org/zap"

	"github.com/openpoker/cardroom"
	"github.com/openpoker/cardroom/wire"
)

// frameWriter serializes outbound frames for one connection. Enqueue never
// blocks; a full queue disconnects the client, which must resynchronize on
// reconnect.
type frameWriter struct {
	conn   net.Conn
	ch     chan wire.Message
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger

	mu      sync.Mutex
	holding bool
	held    []cardroom.Event
}

func newFrameWriter(conn net.Conn, buffer int, logger *zap.Logger) *frameWriter {
	fw := &frameWriter{
		conn:   conn,
		ch:     make(chan wire.Message, buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	go fw.loop()
	return fw
}

func (fw *frameWriter) loop() {
	for {
		select {
		case msg := <-fw.ch:
			if err := wire.WriteMessage(fw.conn, msg); err != nil {
				fw.close()
				return
			}
		case <-fw.done:
			return
		}
	}
}

func (fw *frameWriter) enqueue(msg wire.Message) {
	select {
	case fw.ch <- msg:
	case <-fw.done:
	default:
		fw.logger.Warn("outbound queue overflow, disconnecting",
			zap.String("remote", fw.conn.RemoteAddr().String()))
		fw.close()
	}
}

// enqueueEvent pushes one already-redacted table event. While held (during a
// join replay) events are parked so the history flush stays in order.
func (fw *frameWriter) enqueueEvent(ev cardroom.Event) {
	fw.mu.Lock()
	if fw.holding {
		fw.held = append(fw.held, ev)
		fw.mu.Unlock()
		return
	}
	fw.mu.Unlock()

	fw.enqueue(wire.Message{Type: wire.TypeGameEvent, GameEvent: &wire.GameEvent{Event: ev}})
}

// holdEvents parks live events until releaseEvents.
func (fw *frameWriter) holdEvents() {
	fw.mu.Lock()
	fw.holding = true
	fw.held = nil
	fw.mu.Unlock()
}

// releaseEvents flushes parked events newer than the replayed history and
// resumes direct delivery.
func (fw *frameWriter) releaseEvents(historySeq uint64) {
	fw.mu.Lock()
	held := fw.held
	fw.holding = false
	fw.held = nil
	fw.mu.Unlock()

	for _, ev := range held {
		if ev.Seq <= historySeq {
			continue
		}
		fw.enqueue(wire.Message{Type: wire.TypeGameEvent, GameEvent: &wire.GameEvent{Event: ev}})
	}
}

func (fw *frameWriter) close() {
	fw.once.Do(func() {
		close(fw.done)
		fw.conn.Close()
	})
}

// session is one connection's lifecycle: accept, authenticate, optionally
// seat at a table, tear down. Seat state survives a disconnect for the
// table's grace window.
type session struct {
	srv    *Server
	conn   net.Conn
	reader *bufio.Reader
	writer *frameWriter
	logger *zap.Logger

	mu       sync.Mutex
	username string
	authed   bool
	table    cardroom.TableEngine
	seat     int
	remote   *remoteSource
	detached bool
	closed   bool
	graceTB  *timebank.TimeBank
}

func newSession(srv *Server, conn net.Conn) *session {
	return &session{
		srv:     srv,
		conn:    conn,
		reader:  bufio.NewReader(conn),
		writer:  newFrameWriter(conn, srv.opts.WriteBuffer, srv.logger),
		logger:  srv.logger,
		seat:    -1,
		graceTB: timebank.NewTimeBank(),
	}
}

func (s *session) run() {
	for {
		msg, err := wire.ReadMessage(s.reader)
		if err != nil {
			// EOF, transport error, or a malformed frame; all of them end
			// the connection.
			s.handleDisconnect(err)
			return
		}
		if !s.dispatch(msg) {
			s.handleDisconnect(nil)
			return
		}
	}
}

// dispatch handles one inbound message; false terminates the connection.
func (s *session) dispatch(msg wire.Message) bool {
	s.mu.Lock()
	authed := s.authed
	s.mu.Unlock()

	if !authed {
		if msg.Type != wire.TypeLogin || msg.Login == nil {
			s.sendError("login required")
			return true
		}
		return s.handleLogin(msg.Login)
	}

	switch msg.Type {
	case wire.TypeLogin:
		s.sendError("already logged in")
		return true
	case wire.TypeListTables:
		s.writer.enqueue(wire.Message{
			Type:       wire.TypeLobbyState,
			LobbyState: &wire.LobbyState{Tables: s.srv.manager.ListTables()},
		})
		return true
	case wire.TypeJoinTable:
		if msg.JoinTable == nil {
			return false
		}
		return s.handleJoinTable(msg.JoinTable)
	case wire.TypeLeaveTable:
		return s.handleLeaveTable()
	case wire.TypeReady:
		return s.handleReady()
	case wire.TypeAddAI:
		if msg.AddAI == nil {
			return false
		}
		return s.handleAddAI(msg.AddAI)
	case wire.TypeRemoveAI:
		if msg.RemoveAI == nil {
			return false
		}
		return s.handleRemoveAI(msg.RemoveAI)
	case wire.TypeStartGame:
		return s.handleStartGame()
	case wire.TypeAction:
		if msg.Action == nil {
			return false
		}
		return s.handleAction(msg.Action)
	case wire.TypeChat:
		if msg.Chat == nil {
			return false
		}
		return s.handleChat(msg.Chat)
	default:
		// Unknown type is a protocol error.
		return false
	}
}

func (s *session) handleLogin(login *wire.Login) bool {
	if login.Username == "" {
		s.sendError("username required")
		return true
	}

	s.mu.Lock()
	s.username = login.Username
	s.mu.Unlock()

	resumed, err := s.srv.registerSession(s)
	if err != nil {
		s.sendError(err.Error())
		s.mu.Lock()
		s.username = ""
		s.mu.Unlock()
		return true
	}

	s.mu.Lock()
	s.authed = true
	s.mu.Unlock()

	s.writer.enqueue(wire.Message{
		Type:    wire.TypeWelcome,
		Welcome: &wire.Welcome{Username: login.Username, Message: "welcome to the cardroom"},
	})

	if resumed != nil {
		s.resumeSeat(resumed)
	} else {
		s.writer.enqueue(wire.Message{
			Type:       wire.TypeLobbyState,
			LobbyState: &wire.LobbyState{Tables: s.srv.manager.ListTables()},
		})
	}

	s.logger.Info("session authenticated",
		zap.String("username", login.Username),
		zap.Bool("resumed", resumed != nil))
	return true
}

// resumeSeat rebinds a reconnected player to the seat surviving in its grace
// window, replaying the full event history for resynchronization.
func (s *session) resumeSeat(old *session) {
	old.graceTB.Cancel()

	old.mu.Lock()
	table := old.table
	seat := old.seat
	remote := old.remote
	old.table = nil
	old.remote = nil
	old.mu.Unlock()
	old.writer.close()

	if table == nil || remote == nil {
		s.writer.enqueue(wire.Message{
			Type:       wire.TypeLobbyState,
			LobbyState: &wire.LobbyState{Tables: s.srv.manager.ListTables()},
		})
		return
	}

	s.mu.Lock()
	s.table = table
	s.seat = seat
	s.remote = remote
	s.mu.Unlock()

	s.writer.holdEvents()
	remote.attach(s.writer)
	s.replayTable(table, seat)
}

func (s *session) handleJoinTable(join *wire.JoinTable) bool {
	s.mu.Lock()
	if s.table != nil {
		s.mu.Unlock()
		s.sendError("already seated at a table")
		return true
	}
	username := s.username
	s.mu.Unlock()

	table, err := s.srv.manager.GetTable(join.TableID)
	if err != nil {
		s.sendError(err.Error())
		return true
	}

	remote := newRemoteSource(username, s.writer)
	s.writer.holdEvents()
	seat, err := table.Join(username, join.BuyIn, remote)
	if err != nil {
		s.writer.releaseEvents(0)
		s.sendError(err.Error())
		return true
	}

	s.mu.Lock()
	s.table = table
	s.seat = seat
	s.remote = remote
	s.mu.Unlock()

	s.replayTable(table, seat)
	return true
}

// replayTable sends TableJoined plus the redacted event history, then
// releases live delivery. The caller must have held the writer first.
func (s *session) replayTable(table cardroom.TableEngine, seat int) {
	history := table.EventLog().Events()
	var last uint64
	if len(history) > 0 {
		last = history[len(history)-1].Seq
	}

	meta := table.Meta()
	s.writer.enqueue(wire.Message{
		Type: wire.TypeTableJoined,
		TableJoined: &wire.TableJoined{
			TableID:    table.TableID(),
			TableName:  meta.Name,
			Seat:       seat,
			Players:    table.Roster(),
			MinPlayers: meta.MinPlayers,
			MaxPlayers: meta.MaxPlayers,
			Seq:        last,
		},
	})
	for _, ev := range history {
		s.writer.enqueue(wire.Message{
			Type:      wire.TypeGameEvent,
			GameEvent: &wire.GameEvent{Event: cardroom.Redact(ev, seat)},
		})
	}
	s.writer.releaseEvents(last)
}

func (s *session) handleLeaveTable() bool {
	s.mu.Lock()
	table := s.table
	seat := s.seat
	s.table = nil
	s.seat = -1
	s.remote = nil
	s.mu.Unlock()

	if table == nil {
		s.sendError(cardroom.ErrSessionNotSeated.Error())
		return true
	}

	if err := table.Leave(seat); err != nil {
		s.sendError(err.Error())
	}
	s.writer.enqueue(wire.Message{
		Type:       wire.TypeLobbyState,
		LobbyState: &wire.LobbyState{Tables: s.srv.manager.ListTables()},
	})
	return true
}

func (s *session) handleReady() bool {
	table, seat, ok := s.seated()
	if !ok {
		s.sendError(cardroom.ErrSessionNotSeated.Error())
		return true
	}

	if err := table.SetReady(seat); err != nil {
		s.sendError(err.Error())
		return true
	}
	s.maybeAutoStart(table)
	return true
}

func (s *session) handleAddAI(add *wire.AddAI) bool {
	table, _, ok := s.seated()
	if !ok {
		s.sendError(cardroom.ErrSessionNotSeated.Error())
		return true
	}

	name := add.Name
	if name == "" {
		name = fmt.Sprintf("Bot-%d", len(table.Roster())+1)
	}

	seat, err := table.AddBot(name)
	if err != nil {
		s.sendError(err.Error())
		return true
	}

	s.writer.enqueue(wire.Message{
		Type:    wire.TypeAIAdded,
		AIAdded: &wire.AIAdded{Seat: seat, Name: name},
	})
	s.maybeAutoStart(table)
	return true
}

func (s *session) handleRemoveAI(remove *wire.RemoveAI) bool {
	table, _, ok := s.seated()
	if !ok {
		s.sendError(cardroom.ErrSessionNotSeated.Error())
		return true
	}

	if err := table.RemoveBot(remove.Seat); err != nil {
		s.sendError(err.Error())
		return true
	}

	s.writer.enqueue(wire.Message{
		Type:      wire.TypeAIRemoved,
		AIRemoved: &wire.AIRemoved{Seat: remove.Seat},
	})
	return true
}

func (s *session) handleStartGame() bool {
	table, _, ok := s.seated()
	if !ok {
		s.sendError(cardroom.ErrSessionNotSeated.Error())
		return true
	}

	if err := table.StartGame(); err != nil {
		s.sendError(err.Error())
	}
	return true
}

func (s *session) handleAction(act *wire.Action) bool {
	s.mu.Lock()
	remote := s.remote
	s.mu.Unlock()

	if remote == nil {
		s.sendError(cardroom.ErrSessionNotSeated.Error())
		return true
	}

	// An answer to an unknown or already-resolved request is
	// connection-fatal; the driver's resolution is final.
	if err := remote.resolve(act.RequestID, act.Action); err != nil {
		s.logger.Warn("stale action response",
			zap.String("username", s.username),
			zap.String("request_id", act.RequestID))
		return false
	}
	return true
}

func (s *session) handleChat(chat *wire.Chat) bool {
	table, seat, ok := s.seated()
	if !ok {
		s.sendError(cardroom.ErrSessionNotSeated.Error())
		return true
	}

	if err := table.SubmitChat(seat, chat.Text); err != nil {
		s.sendError(err.Error())
	}
	return true
}

// maybeAutoStart launches the game once every seat is ready and the minimum
// is met.
func (s *session) maybeAutoStart(table cardroom.TableEngine) {
	roster := table.Roster()
	if len(roster) < table.Meta().MinPlayers {
		return
	}
	for _, info := range roster {
		if !info.Ready {
			return
		}
	}

	if err := table.StartGame(); err != nil &&
		err != cardroom.ErrTableGameInProgress {
		s.logger.Warn("auto start failed",
			zap.String("table_id", table.TableID()),
			zap.Error(err))
	}
}

func (s *session) seated() (cardroom.TableEngine, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table == nil {
		return nil, -1, false
	}
	return s.table, s.seat, true
}

func (s *session) sendError(message string) {
	s.writer.enqueue(wire.Message{Type: wire.TypeError, Error: &wire.Error{Message: message}})
}

// handleDisconnect tears the connection down. A seat in a running game
// survives for the table's grace window; its decisions default until the
// player reconnects or the window lapses.
func (s *session) handleDisconnect(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	username := s.username
	table := s.table
	seat := s.seat
	remote := s.remote
	s.mu.Unlock()

	s.writer.close()

	if err != nil && !errors.Is(err, io.EOF) {
		s.logger.Info("connection closed",
			zap.String("username", username),
			zap.Error(err))
	}

	if table == nil {
		if username != "" {
			s.srv.dropSession(username, s)
		}
		return
	}

	if table.Status() == cardroom.TableStatus_Playing {
		s.mu.Lock()
		s.detached = true
		s.mu.Unlock()
		if remote != nil {
			remote.detach()
		}

		grace := time.Duration(table.Meta().ReconnectGraceSec) * time.Second
		if taskErr := s.graceTB.NewTask(grace, func(isCancelled bool) {
			if isCancelled {
				return
			}
			s.expireGrace(table, seat, username)
		}); taskErr != nil {
			s.expireGrace(table, seat, username)
		}
		return
	}

	table.Leave(seat)
	s.srv.dropSession(username, s)
}

func (s *session) expireGrace(table cardroom.TableEngine, seat int, username string) {
	s.mu.Lock()
	stillDetached := s.detached && s.table != nil
	s.mu.Unlock()
	if !stillDetached {
		return
	}

	s.logger.Info("reconnect grace lapsed, removing seat",
		zap.String("username", username),
		zap.String("table_id", table.TableID()),
		zap.Int("seat", seat))
	table.Leave(seat)
	s.srv.dropSession(username, s)
}

func (s *session) isDetached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detached
}

func (s *session) close() {
	s.conn.Close()
	s.writer.close()
}
