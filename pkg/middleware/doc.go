// Package middleware provides dispatch middleware for the bridge:
// cross-cutting observability wrapped around every handled message.
//
//	srv := bridge.New(nil)
//	srv.Use(middleware.Prometheus())
//	srv.Use(middleware.OTel())
//
// Middleware runs in registration order, outermost first, and sees the
// full Message and Response, including "unknown type" failures that never
// reach a handler.
package middleware
