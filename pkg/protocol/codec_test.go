package protocol

import (
	"testing"
)

// asInt64 normalizes the integer widths MessagePack picks for compact
// encodings so payload numbers can be compared.
func asInt64(t *testing.T, v any) int64 {
	t.Helper()
	switch n := v.(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case uint:
		return int64(n)
	default:
		t.Fatalf("value %v (%T) is not an integer", v, v)
		return 0
	}
}

func TestMessageRoundTrip(t *testing.T) {
	msg := Message{
		ID:   "req_42",
		Type: "createLabel",
		Payload: map[string]any{
			"id":      "label_1",
			"text":    "Hello World",
			"size":    14,
			"visible": true,
		},
	}

	data, err := Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got Message
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.ID != msg.ID {
		t.Errorf("ID = %q, want %q", got.ID, msg.ID)
	}
	if got.Type != msg.Type {
		t.Errorf("Type = %q, want %q", got.Type, msg.Type)
	}
	if got.Payload["text"] != "Hello World" {
		t.Errorf("Payload[text] = %v, want Hello World", got.Payload["text"])
	}
	if got.Payload["visible"] != true {
		t.Errorf("Payload[visible] = %v, want true", got.Payload["visible"])
	}
	if n := asInt64(t, got.Payload["size"]); n != 14 {
		t.Errorf("Payload[size] = %d, want 14", n)
	}
}

func TestMessageRoundTripEmptyPayload(t *testing.T) {
	msg := Message{ID: "1", Type: "ping", Payload: map[string]any{}}

	data, err := Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got Message
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.ID != "1" || got.Type != "ping" {
		t.Errorf("got %+v", got)
	}
	if len(got.Payload) != 0 {
		t.Errorf("Payload = %v, want empty", got.Payload)
	}
}

func TestMessageNotify(t *testing.T) {
	if (&Message{ID: "1"}).Notify() {
		t.Error("message with id reported as notify")
	}
	if !(&Message{Type: "setText"}).Notify() {
		t.Error("message without id not reported as notify")
	}
}

func TestResponseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		resp Response
	}{
		{
			name: "success_with_result",
			resp: Response{
				ID:      "7",
				Success: true,
				Result:  map[string]any{"widgetId": "btn1", "created": true},
			},
		},
		{
			name: "failure_with_error",
			resp: Response{ID: "8", Success: false, Error: "unknown type"},
		},
		{
			name: "success_no_result",
			resp: Response{ID: "9", Success: true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Marshal(tc.resp)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			var got Response
			if err := Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			if got.ID != tc.resp.ID || got.Success != tc.resp.Success || got.Error != tc.resp.Error {
				t.Errorf("got %+v, want %+v", got, tc.resp)
			}
			if tc.resp.Result == nil && got.Result != nil {
				t.Errorf("Result = %v, want nil", got.Result)
			}
			for k, v := range tc.resp.Result {
				if got.Result[k] != v {
					t.Errorf("Result[%s] = %v, want %v", k, got.Result[k], v)
				}
			}
		})
	}
}

func TestEventRoundTripNested(t *testing.T) {
	ev := Event{
		Type:     "clicked",
		WidgetID: "btn1",
		Data: map[string]any{
			"x": 1,
			"y": 2,
			"modifiers": map[string]any{
				"shift": true,
				"keys":  []any{"a", "b"},
			},
		},
	}

	data, err := Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got Event
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.Type != "clicked" || got.WidgetID != "btn1" {
		t.Fatalf("got %+v", got)
	}
	if asInt64(t, got.Data["x"]) != 1 || asInt64(t, got.Data["y"]) != 2 {
		t.Errorf("Data coords = %v,%v", got.Data["x"], got.Data["y"])
	}

	mods, ok := got.Data["modifiers"].(map[string]any)
	if !ok {
		t.Fatalf("modifiers = %T, want map", got.Data["modifiers"])
	}
	if mods["shift"] != true {
		t.Errorf("shift = %v, want true", mods["shift"])
	}
	keys, ok := mods["keys"].([]any)
	if !ok || len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("keys = %v", mods["keys"])
	}
}

func TestEventOmitsEmptyData(t *testing.T) {
	withData, err := Marshal(Event{Type: "shown", WidgetID: "w1", Data: map[string]any{"k": "v"}})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	withoutData, err := Marshal(Event{Type: "shown", WidgetID: "w1"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if len(withoutData) >= len(withData) {
		t.Errorf("omitempty not applied: %d >= %d bytes", len(withoutData), len(withData))
	}

	var got Event
	if err := Unmarshal(withoutData, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Data != nil {
		t.Errorf("Data = %v, want nil", got.Data)
	}
}

func TestFramedMessageRoundTrip(t *testing.T) {
	msg := Message{ID: "1", Type: "showWindow", Payload: map[string]any{"windowId": "main"}}

	body, err := Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	framed := EncodeFrame(body)

	var got Message
	if err := Unmarshal(framed[FrameHeaderSize:], &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.ID != msg.ID || got.Type != msg.Type {
		t.Errorf("got %+v, want %+v", got, msg)
	}
}
