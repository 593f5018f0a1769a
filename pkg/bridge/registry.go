package bridge

import "sync"

// Registry is the set of currently connected clients, shared by the
// connection handlers (register/unregister), the broadcaster and the
// batcher (snapshot for fan-out). It is a constructed object rather than a
// process-wide map so multiple servers can coexist in one process.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Conn)}
}

// Add registers c. Called before the connection's read loop starts, so no
// broadcast can miss a live connection.
func (r *Registry) Add(c *Conn) {
	r.mu.Lock()
	r.conns[c.id] = c
	r.mu.Unlock()
}

// Remove unregisters c. Idempotent; called during connection teardown.
func (r *Registry) Remove(c *Conn) {
	r.mu.Lock()
	delete(r.conns, c.id)
	r.mu.Unlock()
}

// Snapshot returns the current connections. The returned slice is the
// caller's; writers iterate it without holding the registry lock, so a
// client connecting mid-broadcast simply misses that event.
func (r *Registry) Snapshot() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
