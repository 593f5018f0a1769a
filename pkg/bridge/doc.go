// Package bridge implements the native side of the control-plane transport:
// a unix domain socket server that reads framed MessagePack requests,
// dispatches them to registered handlers, and pushes widget events back to
// every connected client.
//
// # Architecture
//
// One goroutine per accepted connection runs the read/dispatch/write loop.
// A Registry tracks live connections; Broadcaster fans a pre-serialized
// event frame out to all of them under a single write-coordination lock,
// and Batcher optionally coalesces high-frequency events into one flush
// per time window. Encoder and buffer pools keep the per-message hot path
// allocation-light.
//
//	Listener ──accept──▶ Conn ──ReadFrame──▶ Dispatcher ──▶ Response frame
//	                      ▲
//	Toolkit state change ─┴── Broadcaster / Batcher ──▶ Event frame to all
//
// All writes to a connection, whether the connection's own Response or an
// Event pushed from elsewhere, serialize through one write gate so two
// frames never interleave on the wire.
//
// # Usage
//
//	srv := bridge.New(nil)
//	srv.Handle("createButton", func(ctx context.Context, payload map[string]any) (map[string]any, error) {
//		...
//	})
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer srv.Close()
//
//	srv.Broadcast(protocol.Event{Type: "clicked", WidgetID: "btn1"})
package bridge
