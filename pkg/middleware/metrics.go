package middleware

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/paul-hammant/tsyne-sub013/pkg/bridge"
	"github.com/paul-hammant/tsyne-sub013/pkg/protocol"
)

// MetricsConfig configures the Prometheus dispatch middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "tsyne").
	Namespace string

	// Subsystem is the metrics subsystem (default: "dispatch").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for dispatch duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus dispatch middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "tsyne",
		Subsystem: "dispatch",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Prometheus returns dispatch middleware that records per-operation
// counters and durations.
//
// Metrics collected:
//   - tsyne_dispatch_messages_total: counter by message type and status
//   - tsyne_dispatch_duration_seconds: histogram by message type
func Prometheus(opts ...MetricsOption) bridge.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	messagesTotal := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "messages_total",
		Help:        "Total dispatched messages by type and status",
		ConstLabels: config.ConstLabels,
	}, []string{"type", "status"})

	duration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "duration_seconds",
		Help:        "Dispatch duration by message type",
		ConstLabels: config.ConstLabels,
		Buckets:     config.Buckets,
	}, []string{"type"})

	return func(next bridge.DispatchFunc) bridge.DispatchFunc {
		return func(ctx context.Context, msg protocol.Message) protocol.Response {
			start := time.Now()
			resp := next(ctx, msg)
			duration.WithLabelValues(msg.Type).Observe(time.Since(start).Seconds())

			status := "success"
			if !resp.Success {
				status = "error"
			}
			messagesTotal.WithLabelValues(msg.Type, status).Inc()

			return resp
		}
	}
}
