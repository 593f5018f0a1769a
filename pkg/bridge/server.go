package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/paul-hammant/tsyne-sub013/pkg/protocol"
)

// Server is the bridge transport: a unix domain socket listener whose
// connections speak length-prefixed MessagePack frames. It owns the
// connection registry, the dispatcher, and the event fan-out machinery.
type Server struct {
	config *Config
	logger *slog.Logger

	dispatcher  *Dispatcher
	registry    *Registry
	broadcaster *Broadcaster
	batcher     *Batcher
	encoders    *protocol.EncoderPool
	buffers     *BufferPool
	metrics     *Metrics

	// gate serializes every frame write across all connections so a
	// Response and a concurrently broadcast Event never splice.
	gate sync.Mutex

	socketPath string
	listener   net.Listener
	baseCtx    context.Context
	cancel     context.CancelFunc
	started    atomic.Bool
	closed     atomic.Bool
	wg         sync.WaitGroup

	// closeMu orders externally-driven wg.Add calls (the WebSocket
	// handler) against Close flipping closed: an Add happens entirely
	// before Close's wg.Wait, or not at all.
	closeMu sync.Mutex
}

// New creates a Server. A nil config gets defaults; a partial config has
// unset fields filled in.
func New(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	} else {
		defaults := DefaultConfig()
		if config.BatchWindow == 0 {
			config.BatchWindow = defaults.BatchWindow
		}
		if config.ReadBufferSize == 0 {
			config.ReadBufferSize = defaults.ReadBufferSize
		}
		if config.WriteBufferSize == 0 {
			config.WriteBufferSize = defaults.WriteBufferSize
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default().With("component", "bridge")
	}

	reg := config.MetricsRegistry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config:     config,
		logger:     logger,
		dispatcher: NewDispatcher(),
		registry:   NewRegistry(),
		encoders:   protocol.NewEncoderPool(),
		buffers:    NewBufferPool(),
		metrics:    NewMetrics(reg),
		socketPath: config.resolveSocketPath(),
		baseCtx:    ctx,
		cancel:     cancel,
	}
	s.broadcaster = newBroadcaster(s.registry, s.encoders, s.buffers, &s.gate, s.metrics, logger)
	s.batcher = newBatcher(s.registry, s.encoders, &s.gate, s.metrics, logger, config.BatchEnabled, config.BatchWindow)

	// Liveness probe available on every bridge.
	s.dispatcher.Handle("ping", func(ctx context.Context, payload map[string]any) (map[string]any, error) {
		return map[string]any{"pong": true}, nil
	})

	return s
}

// Handle registers a request handler for msgType. The registry is
// build-time-populated: all Handle calls must precede Start.
func (s *Server) Handle(msgType string, fn HandlerFunc) {
	s.dispatcher.Handle(msgType, fn)
}

// Use appends dispatch middleware. Like Handle, must precede Start.
func (s *Server) Use(mw Middleware) {
	s.dispatcher.Use(mw)
}

// Start listens on the unix socket and begins accepting connections.
func (s *Server) Start() error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	s.dispatcher.freeze()

	// A previous run of this pid may have left the socket file behind.
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("bridge: listen on %s: %w", s.socketPath, err)
	}
	s.listener = ln

	s.logger.Info("bridge listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// SocketPath returns the path clients connect to.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Broadcast sends event to every connected client immediately.
func (s *Server) Broadcast(event protocol.Event) {
	s.broadcaster.Broadcast(event)
}

// Enqueue queues event for batched delivery (immediate when batching is
// disabled). Use for high-frequency state-sync updates.
func (s *Server) Enqueue(event protocol.Event) {
	s.batcher.Enqueue(event)
}

// Flush synchronously delivers any pending batched events.
func (s *Server) Flush() {
	s.batcher.Flush()
}

// EnableBatching turns on event batching with the given window.
func (s *Server) EnableBatching(window time.Duration) {
	s.batcher.Enable(window)
}

// DisableBatching turns batching off, draining pending events first.
func (s *Server) DisableBatching() {
	s.batcher.Disable()
}

// Close stops accepting, drains the batch queue, closes every live
// connection and removes the socket file. Safe to call more than once.
func (s *Server) Close() error {
	s.closeMu.Lock()
	swapped := s.closed.CompareAndSwap(false, true)
	s.closeMu.Unlock()
	if !swapped {
		return nil
	}
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	// Deliver anything still queued before the connections go away.
	s.batcher.Disable()

	for _, c := range s.registry.Snapshot() {
		c.Close()
	}

	s.wg.Wait()
	os.Remove(s.socketPath)

	s.logger.Info("bridge closed")
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			if !s.closed.Load() {
				s.logger.Error("accept failed", "error", err)
			}
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(nc)
		}()
	}
}

// serveConn runs one connection's read/dispatch/write loop. It registers
// the connection in the broadcast set before the first read and always
// unregisters it on the way out, panics included.
func (s *Server) serveConn(nc net.Conn) {
	c := newConn(nc, &s.gate, s.config.ReadBufferSize)

	s.registry.Add(c)
	s.metrics.ActiveConnections.Inc()
	s.logger.Debug("client connected", "conn", c.ID())

	defer func() {
		s.registry.Remove(c)
		s.metrics.ActiveConnections.Dec()
		c.Close()
		s.logger.Debug("client disconnected", "conn", c.ID())
	}()

	// A connection registering while Close snapshots the registry would
	// be missed by Close's teardown loop.
	if s.closed.Load() {
		return
	}

	for {
		body, err := protocol.ReadFrame(c.br)
		if err != nil {
			// Transport errors are fatal to this connection only.
			if err != io.EOF {
				s.metrics.ReadErrors.Inc()
				s.logger.Warn("read failed", "conn", c.ID(), "error", err)
			}
			return
		}
		s.metrics.FramesRead.Inc()

		var msg protocol.Message
		if err := protocol.Unmarshal(body, &msg); err != nil {
			// A single malformed body must not end the session.
			s.metrics.DecodeErrors.Inc()
			s.logger.Warn("dropping malformed message", "conn", c.ID(), "error", err)
			continue
		}

		resp := s.dispatcher.Dispatch(s.baseCtx, msg)

		if msg.Notify() {
			continue
		}

		if err := s.writeResponse(c, resp); err != nil {
			if errors.Is(err, net.ErrClosed) || s.closed.Load() {
				return
			}
			s.metrics.WriteErrors.Inc()
			s.logger.Warn("response write failed", "conn", c.ID(), "error", err)
			return
		}
	}
}

// writeResponse encodes resp through the pooled encoder, frames it in a
// pooled buffer, and writes it under the write gate.
func (s *Server) writeResponse(c *Conn, resp protocol.Response) error {
	body, err := s.encoders.Marshal(resp)
	if err != nil {
		// A handler put something unencodable in its result map. The
		// caller still gets exactly one Response for its id; the fallback
		// shape is plain strings and a bool, which always encodes.
		s.logger.Error("response encode failed", "id", resp.ID, "error", err)
		body, err = s.encoders.Marshal(protocol.Response{
			ID:      resp.ID,
			Success: false,
			Error:   "internal: response encoding failed",
		})
		if err != nil {
			return err
		}
	}

	frame := s.buffers.Get(protocol.FrameHeaderSize + len(body))
	frame = protocol.AppendFrame(frame, body)
	err = c.writeFrame(frame)
	s.buffers.Put(frame)
	if err != nil {
		return err
	}

	s.metrics.FramesWritten.Inc()
	s.metrics.BytesWritten.Add(float64(len(frame)))
	return nil
}
