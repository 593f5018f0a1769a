package bridge

import "sync"

const (
	// defaultBufferSize is the pre-allocated frame buffer size, sized for
	// the typical widget-update message.
	defaultBufferSize = 8 * 1024

	// maxPooledBuffer is the largest buffer the pool retains. Bigger
	// buffers are dropped after use so one oversized frame does not pin
	// memory for the life of the process.
	maxPooledBuffer = 16 * 1024
)

// BufferPool is a free list of byte buffers for frame assembly. Get never
// blocks or fails: a miss, or a request larger than any pooled buffer,
// allocates fresh. There are no ordering guarantees between entries.
//
// A buffer is owned by exactly one caller between Get and Put.
type BufferPool struct {
	pool sync.Pool
}

// NewBufferPool returns a BufferPool pre-configured with the default
// buffer size.
func NewBufferPool() *BufferPool {
	p := &BufferPool{}
	p.pool.New = func() any {
		return make([]byte, defaultBufferSize)
	}
	return p
}

// Get returns a buffer of length minSize. A pooled buffer is reused when
// its capacity suffices, otherwise a fresh one is allocated.
func (p *BufferPool) Get(minSize int) []byte {
	buf := p.pool.Get().([]byte)
	if cap(buf) < minSize {
		return make([]byte, minSize)
	}
	return buf[:minSize]
}

// Put returns buf to the pool. Buffers above maxPooledBuffer are dropped,
// bounding steady-state memory.
func (p *BufferPool) Put(buf []byte) {
	if cap(buf) <= maxPooledBuffer {
		p.pool.Put(buf[:cap(buf)])
	}
}
