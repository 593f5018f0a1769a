package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/paul-hammant/tsyne-sub013/pkg/bridge"
	"github.com/paul-hammant/tsyne-sub013/pkg/protocol"
)

// defaultTracerName identifies the bridge's tracer.
const defaultTracerName = "tsyne-bridge"

// OTelConfig configures the OpenTelemetry dispatch middleware.
type OTelConfig struct {
	// TracerName is the tracer name (default: "tsyne-bridge").
	TracerName string

	// Filter determines which messages to trace. Return true to trace.
	// If nil, all messages are traced.
	Filter func(msg protocol.Message) bool

	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry dispatch middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithFilter sets the trace filter.
func WithFilter(filter func(msg protocol.Message) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// OTel returns dispatch middleware that opens a span per message, named
// after the message type, with the correlation id and outcome attached.
func OTel(opts ...OTelOption) bridge.Middleware {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)

	return func(next bridge.DispatchFunc) bridge.DispatchFunc {
		return func(ctx context.Context, msg protocol.Message) protocol.Response {
			if config.Filter != nil && !config.Filter(msg) {
				return next(ctx, msg)
			}

			ctx, span := config.tracer.Start(ctx, "dispatch."+msg.Type,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("bridge.message.type", msg.Type),
					attribute.String("bridge.message.id", msg.ID),
				),
			)
			defer span.End()

			resp := next(ctx, msg)

			if resp.Success {
				span.SetStatus(codes.Ok, "")
			} else {
				span.SetStatus(codes.Error, resp.Error)
			}
			span.SetAttributes(attribute.Bool("bridge.response.success", resp.Success))

			return resp
		}
	}
}
