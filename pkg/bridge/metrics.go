package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the transport-level Prometheus collectors. They are owned by
// one Server and registered against the configured registry.
type Metrics struct {
	ActiveConnections prometheus.Gauge
	FramesRead        prometheus.Counter
	FramesWritten     prometheus.Counter
	BytesWritten      prometheus.Counter
	BroadcastEvents   prometheus.Counter
	BatchedFrames     prometheus.Counter
	BatchFlushes      prometheus.Counter
	ReadErrors        prometheus.Counter
	DecodeErrors      prometheus.Counter
	WriteErrors       prometheus.Counter
}

// NewMetrics registers the transport collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "tsyne",
			Subsystem: "bridge",
			Name:      "active_connections",
			Help:      "Number of currently connected clients",
		}),
		FramesRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tsyne",
			Subsystem: "bridge",
			Name:      "frames_read_total",
			Help:      "Total frames read from clients",
		}),
		FramesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tsyne",
			Subsystem: "bridge",
			Name:      "frames_written_total",
			Help:      "Total frames written to clients, responses and events",
		}),
		BytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tsyne",
			Subsystem: "bridge",
			Name:      "bytes_written_total",
			Help:      "Total bytes written to clients",
		}),
		BroadcastEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tsyne",
			Subsystem: "bridge",
			Name:      "broadcast_events_total",
			Help:      "Total events broadcast to all clients",
		}),
		BatchedFrames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tsyne",
			Subsystem: "bridge",
			Name:      "batched_frames_total",
			Help:      "Total event frames that went through the batch queue",
		}),
		BatchFlushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tsyne",
			Subsystem: "bridge",
			Name:      "batch_flushes_total",
			Help:      "Total batch queue flushes",
		}),
		ReadErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tsyne",
			Subsystem: "bridge",
			Name:      "read_errors_total",
			Help:      "Total transport-level read failures",
		}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tsyne",
			Subsystem: "bridge",
			Name:      "decode_errors_total",
			Help:      "Total malformed message bodies dropped",
		}),
		WriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tsyne",
			Subsystem: "bridge",
			Name:      "write_errors_total",
			Help:      "Total write failures, including broadcast fan-out",
		}),
	}
}
