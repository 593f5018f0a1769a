package bridge

import (
	"log/slog"
	"sync"

	"github.com/paul-hammant/tsyne-sub013/pkg/protocol"
)

// Broadcaster delivers one event to every connected client.
//
// The cost model is one serialization and one lock acquisition per
// broadcast, however many clients are connected: the event is encoded once
// through the encoder pool, framed once into a pooled buffer, and the same
// bytes are written to a registry snapshot under a single hold of the
// write gate. Every client therefore receives a byte-identical frame.
type Broadcaster struct {
	registry *Registry
	encoders *protocol.EncoderPool
	buffers  *BufferPool
	gate     *sync.Mutex
	metrics  *Metrics
	logger   *slog.Logger
}

func newBroadcaster(reg *Registry, enc *protocol.EncoderPool, buf *BufferPool, gate *sync.Mutex, m *Metrics, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: reg,
		encoders: enc,
		buffers:  buf,
		gate:     gate,
		metrics:  m,
		logger:   logger,
	}
}

// Broadcast sends event to all currently connected clients. Delivery is
// best-effort: a connection that fails mid-fan-out is scheduled for
// teardown and the remaining connections still receive the frame. The
// sender is never told about individual delivery failures.
func (b *Broadcaster) Broadcast(event protocol.Event) {
	body, err := b.encoders.Marshal(event)
	if err != nil {
		b.logger.Error("event encode failed", "type", event.Type, "error", err)
		return
	}

	frame := b.buffers.Get(protocol.FrameHeaderSize + len(body))
	frame = protocol.AppendFrame(frame, body)

	conns := b.registry.Snapshot()

	var failed []*Conn
	b.gate.Lock()
	for _, c := range conns {
		if err := c.writeRaw(frame); err != nil {
			failed = append(failed, c)
		}
	}
	b.gate.Unlock()

	b.metrics.BroadcastEvents.Inc()
	b.metrics.FramesWritten.Add(float64(len(conns) - len(failed)))
	b.metrics.BytesWritten.Add(float64(len(frame) * (len(conns) - len(failed))))

	b.buffers.Put(frame)

	for _, c := range failed {
		b.metrics.WriteErrors.Inc()
		b.logger.Warn("broadcast write failed, closing connection", "conn", c.ID())
		go c.Close()
	}
}
