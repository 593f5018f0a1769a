package bridge

import (
	"net"
	"sync"
	"testing"
)

func newTestConn(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	var gate sync.Mutex
	return newConn(server, &gate, 4096), client
}

func TestRegistryAddRemove(t *testing.T) {
	reg := NewRegistry()
	c1, _ := newTestConn(t)
	c2, _ := newTestConn(t)

	if reg.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", reg.Len())
	}

	reg.Add(c1)
	reg.Add(c2)
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}

	reg.Remove(c1)
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}

	// Remove is idempotent.
	reg.Remove(c1)
	if reg.Len() != 1 {
		t.Errorf("Len() after double remove = %d, want 1", reg.Len())
	}

	snap := reg.Snapshot()
	if len(snap) != 1 || snap[0] != c2 {
		t.Errorf("Snapshot() = %v", snap)
	}
}

func TestRegistryDistinctIDs(t *testing.T) {
	c1, _ := newTestConn(t)
	c2, _ := newTestConn(t)
	if c1.ID() == c2.ID() {
		t.Errorf("two connections share id %q", c1.ID())
	}
}

func TestRegistrySnapshotIsolated(t *testing.T) {
	reg := NewRegistry()
	c1, _ := newTestConn(t)
	reg.Add(c1)

	snap := reg.Snapshot()
	reg.Remove(c1)

	// The earlier snapshot is the caller's copy.
	if len(snap) != 1 {
		t.Errorf("snapshot mutated by Remove: %v", snap)
	}
}

func TestRegistryConcurrent(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c, _ := newTestConn(t)
				reg.Add(c)
				reg.Snapshot()
				reg.Remove(c)
			}
		}()
	}
	wg.Wait()

	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
}
