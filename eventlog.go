package cardroom

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OverflowPolicy decides what happens when a subscriber's buffer fills.
// Bot and observer subscribers drop their oldest pending event; remote
// subscribers are closed so the connection layer can resynchronize from a
// full snapshot.
type OverflowPolicy int

const (
	DropOldest OverflowPolicy = iota
	CloseOnOverflow
)

// Subscription is one reader of a table's event sequence. Events arrive in
// append order; a closed channel means the subscriber fell behind under
// CloseOnOverflow or the log shut down.
type Subscription struct {
	id     string
	ch     chan Event
	policy OverflowPolicy
	closed bool
}

// C is the subscriber's event channel.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// ID identifies the subscription for Unsubscribe.
func (s *Subscription) ID() string {
	return s.id
}

// Log is a table's append-only event sequence: single writer (the driver),
// many concurrent readers. Append assigns the per-table monotonic Seq.
type Log struct {
	mu      sync.RWMutex
	tableID string
	seq     uint64
	events  []Event
	subs    map[string]*Subscription
	logger  *zap.Logger
}

func NewLog(tableID string, logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{
		tableID: tableID,
		subs:    make(map[string]*Subscription),
		logger:  logger,
	}
}

// Append stamps the event with the next sequence number and a timestamp,
// stores it, and fans it out to all subscribers without ever blocking the
// writer. The stamped event is returned.
func (l *Log) Append(ev Event) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	ev.TableID = l.tableID
	ev.Seq = l.seq
	if ev.Time == 0 {
		ev.Time = time.Now().UnixMilli()
	}
	l.events = append(l.events, ev)

	for _, sub := range l.subs {
		l.deliver(sub, ev)
	}

	return ev
}

func (l *Log) deliver(sub *Subscription, ev Event) {
	if sub.closed {
		return
	}

	select {
	case sub.ch <- ev:
		return
	default:
	}

	switch sub.policy {
	case DropOldest:
		select {
		case dropped := <-sub.ch:
			l.logger.Warn("event subscriber lagging, dropped oldest",
				zap.String("table_id", l.tableID),
				zap.String("subscription_id", sub.id),
				zap.Uint64("dropped_seq", dropped.Seq))
		default:
		}
		select {
		case sub.ch <- ev:
		default:
		}
	case CloseOnOverflow:
		l.logger.Warn("event subscriber overflow, closing",
			zap.String("table_id", l.tableID),
			zap.String("subscription_id", sub.id),
			zap.Uint64("seq", ev.Seq))
		sub.closed = true
		close(sub.ch)
		delete(l.subs, sub.id)
	}
}

// Subscribe registers a reader with the given buffer depth and overflow
// policy. Only events appended after the call are delivered; use Events to
// catch up first.
func (l *Log) Subscribe(buffer int, policy OverflowPolicy) *Subscription {
	if buffer <= 0 {
		buffer = 1
	}

	sub := &Subscription{
		id:     uuid.New().String(),
		ch:     make(chan Event, buffer),
		policy: policy,
	}

	l.mu.Lock()
	l.subs[sub.id] = sub
	l.mu.Unlock()

	return sub
}

// Unsubscribe removes and closes a subscription. Safe to call twice.
func (l *Log) Unsubscribe(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub, ok := l.subs[id]
	if !ok {
		return
	}
	sub.closed = true
	close(sub.ch)
	delete(l.subs, id)
}

// Events returns a snapshot copy of the full sequence so far.
func (l *Log) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Event(nil), l.events...)
}

// Seq returns the last assigned sequence number.
func (l *Log) Seq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq
}

// Close shuts down all subscriptions.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, sub := range l.subs {
		sub.closed = true
		close(sub.ch)
		delete(l.subs, id)
	}
}
