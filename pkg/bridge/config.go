package bridge

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SocketDirEnv is the environment variable consulted for the socket
// directory when Config.SocketDir is unset.
const SocketDirEnv = "TSYNE_SOCKET_DIR"

// Config holds server configuration. The zero value is usable; unset
// fields are filled from DefaultConfig by New.
type Config struct {
	// SocketDir is the directory the unix socket is created in.
	// Resolution order: SocketDir, then $TSYNE_SOCKET_DIR, then the
	// system temp directory. The socket file name embeds the process id
	// so concurrently running bridges never collide.
	SocketDir string

	// BatchEnabled turns on event batching at startup. Batching trades a
	// few milliseconds of event latency for fewer write syscalls and lock
	// cycles; callers that need minimum latency leave it off.
	// Default: false.
	BatchEnabled bool

	// BatchWindow is how long enqueued events accumulate before a flush.
	// Default: 2ms.
	BatchWindow time.Duration

	// ReadBufferSize is the per-connection buffered reader size.
	// Default: 8KB.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket binding's write buffer size.
	// Default: 8KB.
	WriteBufferSize int

	// Logger receives structured server logs. Default: slog.Default()
	// scoped with component=bridge.
	Logger *slog.Logger

	// MetricsRegistry is where transport metrics are registered. When nil
	// a private registry is used, so multiple servers can coexist in one
	// process without collector collisions.
	MetricsRegistry prometheus.Registerer
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchEnabled:    false,
		BatchWindow:     2 * time.Millisecond,
		ReadBufferSize:  8 * 1024,
		WriteBufferSize: 8 * 1024,
	}
}

// resolveSocketPath computes the socket path from the configured directory
// chain plus the process id.
func (c *Config) resolveSocketPath() string {
	dir := c.SocketDir
	if dir == "" {
		dir = os.Getenv(SocketDirEnv)
	}
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, fmt.Sprintf("tsyne-%d.sock", os.Getpid()))
}
