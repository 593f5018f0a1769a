// Package client implements the control-plane side of the bridge
// transport: it dials the bridge socket, correlates Responses to Calls by
// id, and surfaces unsolicited Events on a channel.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/paul-hammant/tsyne-sub013/pkg/protocol"
)

// ErrClientClosed is returned by Call and Notify after Close, and by Calls
// left pending when the connection drops.
var ErrClientClosed = errors.New("client: connection closed")

// eventBuffer is the Events channel capacity. Events beyond it are dropped
// rather than stalling the read loop; delivery is best-effort by contract.
const eventBuffer = 256

// Client is a bridge connection. It is safe for concurrent use; any
// number of goroutines may Call at once and each receives the Response
// matching its own id.
type Client struct {
	nc net.Conn
	br *bufio.Reader

	writeMu sync.Mutex
	nextID  atomic.Uint64

	mu      sync.Mutex
	pending map[string]chan protocol.Response

	events chan protocol.Event
	done   chan struct{}
	closed atomic.Bool
	logger *slog.Logger
}

// Dial connects to the bridge socket at socketPath.
func Dial(socketPath string) (*Client, error) {
	nc, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", socketPath, err)
	}
	return NewClient(nc), nil
}

// NewClient wraps an already-open connection, typically from Dial. It is
// exported so tests and alternative transports can hand in their own
// net.Conn.
func NewClient(nc net.Conn) *Client {
	c := &Client{
		nc:      nc,
		br:      bufio.NewReader(nc),
		pending: make(map[string]chan protocol.Response),
		events:  make(chan protocol.Event, eventBuffer),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "client"),
	}
	go c.readLoop()
	return c
}

// Call sends a request and blocks until its Response arrives, ctx is
// cancelled, or the connection drops. The Response is returned as-is;
// Success=false is not converted into an error because a failed handler is
// a normal protocol outcome.
func (c *Client) Call(ctx context.Context, msgType string, payload map[string]any) (*protocol.Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	id := strconv.FormatUint(c.nextID.Add(1), 10)
	ch := make(chan protocol.Response, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.send(protocol.Message{ID: id, Type: msgType, Payload: payload}); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, err
	}

	select {
	case resp := <-ch:
		return &resp, nil
	case <-c.done:
		return nil, ErrClientClosed
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Notify sends a one-way message: no id, no Response. The bridge
// dispatches it but writes nothing back.
func (c *Client) Notify(msgType string, payload map[string]any) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return c.send(protocol.Message{Type: msgType, Payload: payload})
}

// Events returns the stream of unsolicited bridge events. The channel is
// closed when the connection drops.
func (c *Client) Events() <-chan protocol.Event {
	return c.events
}

// Close tears the connection down. Pending Calls fail with
// ErrClientClosed.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.nc.Close()
}

func (c *Client) send(msg protocol.Message) error {
	body, err := protocol.Marshal(msg)
	if err != nil {
		return fmt.Errorf("client: encode %s: %w", msg.Type, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := protocol.WriteFrame(c.nc, body); err != nil {
		return fmt.Errorf("client: write %s: %w", msg.Type, err)
	}
	return nil
}

// readLoop routes every inbound frame: Responses to their pending Call,
// Events to the events channel.
func (c *Client) readLoop() {
	defer func() {
		c.closed.Store(true)
		c.nc.Close()
		close(c.done)
		close(c.events)
		// Anything still pending will never be answered.
		c.mu.Lock()
		c.pending = make(map[string]chan protocol.Response)
		c.mu.Unlock()
	}()

	for {
		body, err := protocol.ReadFrame(c.br)
		if err != nil {
			if err != io.EOF && !c.closed.Load() {
				c.logger.Warn("read failed", "error", err)
			}
			return
		}

		// Responses carry an id at the top level, events a widgetId;
		// sniff the map before committing to a shape.
		var probe map[string]any
		if err := protocol.Unmarshal(body, &probe); err != nil {
			c.logger.Warn("dropping malformed frame", "error", err)
			continue
		}

		if _, isEvent := probe["widgetId"]; isEvent {
			var ev protocol.Event
			if err := protocol.Unmarshal(body, &ev); err != nil {
				c.logger.Warn("dropping malformed event", "error", err)
				continue
			}
			select {
			case c.events <- ev:
			default:
				c.logger.Warn("event buffer full, dropping", "type", ev.Type)
			}
			continue
		}

		var resp protocol.Response
		if err := protocol.Unmarshal(body, &resp); err != nil {
			c.logger.Warn("dropping malformed response", "error", err)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()

		if !ok {
			c.logger.Warn("response with no pending call", "id", resp.ID)
			continue
		}
		ch <- resp
	}
}
