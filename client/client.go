// Package client is a thin connection wrapper over the framed protocol:
// helpers for every request type, a blocking Recv, and an optional local
// table view maintained from the event stream.
package client

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/openpoker/cardroom"
	"github.com/openpoker/cardroom/engine"
	"github.com/openpoker/cardroom/wire"
)

var ErrClosed = errors.New("client: connection closed")

type Client struct {
	conn   net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex

	mu     sync.Mutex
	closed bool
	view   *cardroom.TableView
	seat   int
}

// Dial connects to a cardroom server.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection; tests drive it with net.Pipe.
func NewClient(conn net.Conn) *Client {
	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
		seat:   cardroom.ObserverSeat,
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}

func (c *Client) send(msg wire.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wire.WriteMessage(c.conn, msg)
}

func (c *Client) Login(username string) error {
	return c.send(wire.Message{Type: wire.TypeLogin, Login: &wire.Login{Username: username}})
}

func (c *Client) ListTables() error {
	return c.send(wire.Message{Type: wire.TypeListTables})
}

func (c *Client) JoinTable(tableID string, buyIn int64) error {
	return c.send(wire.Message{
		Type:      wire.TypeJoinTable,
		JoinTable: &wire.JoinTable{TableID: tableID, BuyIn: buyIn},
	})
}

func (c *Client) LeaveTable() error {
	return c.send(wire.Message{Type: wire.TypeLeaveTable})
}

func (c *Client) Ready() error {
	return c.send(wire.Message{Type: wire.TypeReady})
}

func (c *Client) AddAI(name string) error {
	return c.send(wire.Message{Type: wire.TypeAddAI, AddAI: &wire.AddAI{Name: name}})
}

func (c *Client) RemoveAI(seat int) error {
	return c.send(wire.Message{Type: wire.TypeRemoveAI, RemoveAI: &wire.RemoveAI{Seat: seat}})
}

func (c *Client) StartGame() error {
	return c.send(wire.Message{Type: wire.TypeStartGame})
}

// SendAction answers an action request; requestID must echo the request's
// correlation id.
func (c *Client) SendAction(requestID string, act engine.Action) error {
	return c.send(wire.Message{
		Type:   wire.TypeAction,
		Action: &wire.Action{RequestID: requestID, Action: act},
	})
}

func (c *Client) SendChat(text string) error {
	return c.send(wire.Message{Type: wire.TypeChat, Chat: &wire.Chat{Text: text}})
}

// Recv blocks for the next server message and folds game events into the
// local view. A replayed or duplicated event older than the view is skipped,
// a gap ahead of it is a protocol error.
func (c *Client) Recv() (wire.Message, error) {
	msg, err := wire.ReadMessage(c.reader)
	if err != nil {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return msg, ErrClosed
		}
		return msg, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Type {
	case wire.TypeTableJoined:
		c.seat = msg.TableJoined.Seat
		c.view = cardroom.NewTableView(c.seat)
	case wire.TypeGameEvent:
		if c.view != nil {
			ev := msg.GameEvent.Event
			if ev.Seq > c.view.Seq {
				next, applyErr := cardroom.Apply(c.view, ev)
				if applyErr != nil {
					return msg, applyErr
				}
				c.view = next
			}
		}
	}
	return msg, nil
}

// RecvTimeout is Recv with a read deadline; it returns os.ErrDeadlineExceeded
// wrapped in a net.Error on expiry.
func (c *Client) RecvTimeout(d time.Duration) (wire.Message, error) {
	c.conn.SetReadDeadline(time.Now().Add(d))
	defer c.conn.SetReadDeadline(time.Time{})
	return c.Recv()
}

// Seat reports the client's seat, or ObserverSeat before joining.
func (c *Client) Seat() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seat
}

// View returns a copy of the current table view, or nil before joining.
func (c *Client) View() *cardroom.TableView {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return nil
	}
	v := *c.view
	return &v
}
