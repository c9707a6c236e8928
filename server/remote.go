package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openpoker/cardroom"
	"github.com/openpoker/cardroom/engine"
	"github.com/openpoker/cardroom/wire"
)

var (
	errDetached = errors.New("server: connection detached")
	errResolved = errors.New("server: request already resolved")
)

// remoteSource proxies the decision-source contract across the wire. Each
// pending request is a correlation-id-keyed channel; the answer arrives via
// the session's read loop. While the connection is down every request fails
// fast and the driver substitutes the default action.
type remoteSource struct {
	name string

	mu       sync.Mutex
	writer   *frameWriter
	pending  map[string]chan engine.Action
	detached bool
}

func newRemoteSource(name string, writer *frameWriter) *remoteSource {
	return &remoteSource{
		name:    name,
		writer:  writer,
		pending: make(map[string]chan engine.Action),
	}
}

func (rs *remoteSource) Name() string {
	return rs.name
}

func (rs *remoteSource) IsHuman() bool {
	return true
}

// Notify forwards a redacted event without blocking the driver; the frame
// writer owns the buffering.
func (rs *remoteSource) Notify(ev cardroom.Event) {
	rs.mu.Lock()
	writer := rs.writer
	rs.mu.Unlock()
	if writer == nil {
		return
	}
	writer.enqueueEvent(ev)
}

// RequestAction pushes an ActionRequest frame and waits for the correlated
// Action response. The server's time limit governs; ctx expires at the
// driver's deadline.
func (rs *remoteSource) RequestAction(ctx context.Context, snapshot *cardroom.GameSnapshot, valid engine.ValidActions, timeLimit time.Duration) (engine.Action, error) {
	requestID := uuid.New().String()
	respCh := make(chan engine.Action, 1)

	rs.mu.Lock()
	if rs.detached || rs.writer == nil {
		rs.mu.Unlock()
		return engine.Action{}, errDetached
	}
	rs.pending[requestID] = respCh
	writer := rs.writer
	rs.mu.Unlock()

	writer.enqueue(wire.Message{
		Type: wire.TypeActionRequest,
		ActionRequest: &wire.ActionRequest{
			RequestID:   requestID,
			Snapshot:    snapshot,
			Valid:       valid,
			TimeLimitMs: timeLimit.Milliseconds(),
		},
	})

	select {
	case act := <-respCh:
		return act, nil
	case <-ctx.Done():
		rs.mu.Lock()
		delete(rs.pending, requestID)
		rs.mu.Unlock()
		return engine.Action{}, ctx.Err()
	}
}

// resolve routes a client Action response to its waiting request. A response
// for an unknown or already-resolved request is a protocol error.
func (rs *remoteSource) resolve(requestID string, act engine.Action) error {
	rs.mu.Lock()
	respCh, ok := rs.pending[requestID]
	if ok {
		delete(rs.pending, requestID)
	}
	rs.mu.Unlock()

	if !ok {
		return errResolved
	}
	respCh <- act
	return nil
}

// detach disconnects the source; pending requests fail on their deadlines and
// new requests fail fast until attach.
func (rs *remoteSource) detach() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.detached = true
	rs.writer = nil
}

// attach binds a reconnected session's writer.
func (rs *remoteSource) attach(writer *frameWriter) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.detached = false
	rs.writer = writer
	rs.pending = make(map[string]chan engine.Action)
}
