package protocol

// Message is a control-plane request. ID is caller-assigned and is echoed
// back on the matching Response. Type selects the handler; Payload carries
// handler-specific arguments.
//
// An empty ID marks the message as a one-way notify: it is dispatched but
// no Response is written for it.
type Message struct {
	ID      string         `msgpack:"id"`
	Type    string         `msgpack:"type"`
	Payload map[string]any `msgpack:"payload"`
}

// Notify reports whether the message expects no Response.
func (m *Message) Notify() bool {
	return m.ID == ""
}

// Response is the bridge's reply to a Message. ID matches the originating
// Message. Exactly one of Result or Error is meaningful depending on Success.
type Response struct {
	ID      string         `msgpack:"id"`
	Success bool           `msgpack:"success"`
	Result  map[string]any `msgpack:"result,omitempty"`
	Error   string         `msgpack:"error,omitempty"`
}

// Event is an unsolicited server-to-client notification tied to a widget.
// Events carry no correlation id and expect no reply; delivery is
// best-effort to whichever clients are connected at send time.
type Event struct {
	Type     string         `msgpack:"type"`
	WidgetID string         `msgpack:"widgetId"`
	Data     map[string]any `msgpack:"data,omitempty"`
}
