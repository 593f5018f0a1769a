package bridge

import (
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketHandler returns an http.Handler that upgrades requests and
// serves them through the same read/dispatch/write loop as the unix
// socket, so framing, dispatch, broadcast and batching behave identically
// on both bindings. Frames travel inside binary WebSocket messages.
//
// The unix socket remains the primary transport; this binding exists for
// clients that cannot open a local socket (remote inspectors, browsers).
func (s *Server) WebSocketHandler() http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  s.config.ReadBufferSize,
		WriteBufferSize: s.config.WriteBufferSize,
		// Local-machine, single-trust-domain channel.
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.closed.Load() {
			http.Error(w, "bridge closed", http.StatusServiceUnavailable)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("websocket upgrade failed", "error", err)
			return
		}

		// Joining the server's WaitGroup must not race a concurrent
		// Close: under closeMu, either Close has not flipped closed yet
		// and this Add completes before its Wait, or it has and this
		// session never starts.
		s.closeMu.Lock()
		if s.closed.Load() {
			s.closeMu.Unlock()
			ws.Close()
			return
		}
		s.wg.Add(1)
		s.closeMu.Unlock()
		defer s.wg.Done()

		s.serveConn(&wsConn{ws: ws})
	})
}

// wsConn adapts a WebSocket connection to net.Conn. Reads drain binary
// messages as a continuous byte stream; each Write becomes one binary
// message. Concurrent writers are already serialized by the server's
// write gate, which satisfies gorilla's single-writer requirement.
type wsConn struct {
	ws     *websocket.Conn
	reader io.Reader
}

func (c *wsConn) Read(p []byte) (int, error) {
	for {
		if c.reader == nil {
			mt, r, err := c.ws.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			if mt != websocket.BinaryMessage {
				continue
			}
			c.reader = r
		}

		n, err := c.reader.Read(p)
		if err == io.EOF {
			// Message exhausted; the next Read pulls the next message.
			c.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (c *wsConn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}

func (c *wsConn) LocalAddr() net.Addr {
	return c.ws.LocalAddr()
}

func (c *wsConn) RemoteAddr() net.Addr {
	return c.ws.RemoteAddr()
}

func (c *wsConn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}

func (c *wsConn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

func (c *wsConn) SetWriteDeadline(t time.Time) error {
	return c.ws.SetWriteDeadline(t)
}
