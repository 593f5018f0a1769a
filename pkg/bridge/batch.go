package bridge

import (
	"log/slog"
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/paul-hammant/tsyne-sub013/pkg/protocol"
)

// Batcher accumulates outbound event frames and flushes them together,
// trading low-single-digit milliseconds of latency for far fewer write
// syscalls and lock cycles during sustained update loops. Batching is an
// explicit, toggleable policy: disabled, Enqueue degenerates to an
// immediate single-frame flush.
//
// Frames are queued fully framed, so a flush is pure fan-out: drain the
// FIFO once, then write every frame to every connection under one hold of
// the write gate.
type Batcher struct {
	registry *Registry
	encoders *protocol.EncoderPool
	gate     *sync.Mutex
	metrics  *Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	enabled bool
	window  time.Duration
	pending *queue.Queue
	timer   *time.Timer
}

func newBatcher(reg *Registry, enc *protocol.EncoderPool, gate *sync.Mutex, m *Metrics, logger *slog.Logger, enabled bool, window time.Duration) *Batcher {
	return &Batcher{
		registry: reg,
		encoders: enc,
		gate:     gate,
		metrics:  m,
		logger:   logger,
		enabled:  enabled,
		window:   window,
		pending:  queue.New(),
	}
}

// Enqueue serializes and frames event, then appends it to the batch queue.
// With batching disabled the frame is delivered immediately. With batching
// enabled, the first frame of a window arms the flush timer; later frames
// ride the same window.
func (b *Batcher) Enqueue(event protocol.Event) {
	body, err := b.encoders.Marshal(event)
	if err != nil {
		b.logger.Error("event encode failed", "type", event.Type, "error", err)
		return
	}
	// Queued frames outlive this call, so they are not pooled buffers.
	frame := protocol.EncodeFrame(body)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending.Add(frame)
	b.metrics.BatchedFrames.Inc()

	if !b.enabled {
		b.flushLocked()
		return
	}

	if b.timer == nil {
		b.timer = time.AfterFunc(b.window, func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.timer = nil
			b.flushLocked()
		})
	}
}

// Flush synchronously delivers all pending frames. No-op on an empty
// queue; safe to call at any time, including concurrently with the timer.
func (b *Batcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

// Enable turns batching on with the given window. A non-positive window
// keeps the current one.
func (b *Batcher) Enable(window time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = true
	if window > 0 {
		b.window = window
	}
}

// Disable turns batching off and synchronously drains anything pending, so
// no event is silently lost at shutdown. The armed timer, if any, is
// cancelled under the queue lock; a timer that already fired finds an
// empty queue and does nothing.
func (b *Batcher) Disable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = false
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.flushLocked()
}

// flushLocked drains the queue FIFO and delivers every frame to every
// connection under a single write-gate acquisition. Caller holds b.mu.
func (b *Batcher) flushLocked() {
	n := b.pending.Length()
	if n == 0 {
		return
	}

	frames := make([][]byte, 0, n)
	for b.pending.Length() > 0 {
		frames = append(frames, b.pending.Remove().([]byte))
	}

	conns := b.registry.Snapshot()

	var failed []*Conn
	b.gate.Lock()
	for _, c := range conns {
		wrote := 0
		for _, frame := range frames {
			if err := c.writeRaw(frame); err != nil {
				failed = append(failed, c)
				break
			}
			wrote++
		}
		b.metrics.FramesWritten.Add(float64(wrote))
	}
	b.gate.Unlock()

	b.metrics.BatchFlushes.Inc()

	for _, c := range failed {
		b.metrics.WriteErrors.Inc()
		b.logger.Warn("batch write failed, closing connection", "conn", c.ID())
		go c.Close()
	}
}
