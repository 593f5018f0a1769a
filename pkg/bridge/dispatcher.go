package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/paul-hammant/tsyne-sub013/pkg/protocol"
)

// HandlerFunc processes one request's payload and returns a result map or
// an error. Handlers may mutate toolkit state but never touch connection
// or frame internals; a returned error becomes a failure Response, not a
// transport fault.
type HandlerFunc func(ctx context.Context, payload map[string]any) (map[string]any, error)

// DispatchFunc maps a full Message to its Response. Middleware wraps this.
type DispatchFunc func(ctx context.Context, msg protocol.Message) protocol.Response

// Middleware wraps dispatch with cross-cutting behavior (metrics, tracing).
type Middleware func(next DispatchFunc) DispatchFunc

// Dispatcher routes messages by type to registered handlers. The registry
// is populated at startup and frozen on first dispatch: lookups after that
// point are lock-free, which keeps the dispatcher safe for reentrant calls
// from every connection worker.
type Dispatcher struct {
	mu         sync.Mutex
	handlers   map[string]HandlerFunc
	middleware []Middleware

	freezeOnce sync.Once
	dispatch   DispatchFunc
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

// Handle registers fn for msgType. Registration is startup-only: Handle
// panics once dispatching has begun, because a mutable registry under
// concurrent lookups would be a race.
func (d *Dispatcher) Handle(msgType string, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dispatch != nil {
		panic("bridge: Handle called after dispatching started")
	}
	d.handlers[msgType] = fn
}

// Use appends middleware. Like Handle, startup-only. Middleware runs in
// registration order, outermost first.
func (d *Dispatcher) Use(mw Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dispatch != nil {
		panic("bridge: Use called after dispatching started")
	}
	d.middleware = append(d.middleware, mw)
}

// freeze builds the middleware-wrapped dispatch chain.
func (d *Dispatcher) freeze() {
	d.freezeOnce.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		fn := d.invoke
		for i := len(d.middleware) - 1; i >= 0; i-- {
			fn = d.middleware[i](fn)
		}
		d.dispatch = fn
	})
}

// Dispatch routes msg to its handler and returns exactly one Response with
// the message's id echoed. Unknown types and handler failures are normal
// failure Responses; a handler panic is recovered into one as well, so a
// misbehaving handler cannot take the server down.
func (d *Dispatcher) Dispatch(ctx context.Context, msg protocol.Message) protocol.Response {
	d.freeze()
	return d.dispatch(ctx, msg)
}

func (d *Dispatcher) invoke(ctx context.Context, msg protocol.Message) (resp protocol.Response) {
	fn, ok := d.handlers[msg.Type]
	if !ok {
		return protocol.Response{ID: msg.ID, Success: false, Error: "unknown type"}
	}

	defer func() {
		if r := recover(); r != nil {
			resp = protocol.Response{
				ID:      msg.ID,
				Success: false,
				Error:   fmt.Sprintf("handler panic: %v", r),
			}
		}
	}()

	result, err := fn(ctx, msg.Payload)
	if err != nil {
		return protocol.Response{ID: msg.ID, Success: false, Error: err.Error()}
	}
	return protocol.Response{ID: msg.ID, Success: true, Result: result}
}
