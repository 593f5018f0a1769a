package bridge

import (
	"bufio"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Conn is one accepted client connection: the duplex byte stream, a
// buffered reader for frame decoding, and the identity key it is
// registered under in the broadcast set.
//
// All frame writes go through the shared write gate so a Response from the
// connection's own read loop and an Event pushed by the broadcaster can
// never interleave bytes on the wire.
type Conn struct {
	id   string
	nc   net.Conn
	br   *bufio.Reader
	gate *sync.Mutex

	closeOnce sync.Once
	closed    atomic.Bool
}

func newConn(nc net.Conn, gate *sync.Mutex, readBufferSize int) *Conn {
	return &Conn{
		id:   uuid.NewString(),
		nc:   nc,
		br:   bufio.NewReaderSize(nc, readBufferSize),
		gate: gate,
	}
}

// ID returns the connection's registry key.
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr returns the peer address, for logging.
func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

// writeFrame writes one complete frame under the write gate.
func (c *Conn) writeFrame(frame []byte) error {
	c.gate.Lock()
	defer c.gate.Unlock()
	return c.writeRaw(frame)
}

// writeRaw writes one complete frame. The caller must hold the write gate.
func (c *Conn) writeRaw(frame []byte) error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	_, err := c.nc.Write(frame)
	return err
}

// Close tears the underlying stream down. Safe to call more than once and
// from any goroutine; the read loop unblocks with an error and the
// connection handler unregisters it.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.nc.Close()
	})
}
