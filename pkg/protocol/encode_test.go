package protocol

import (
	"bytes"
	"sync"
	"testing"
)

func TestEncoderPoolMarshal(t *testing.T) {
	pool := NewEncoderPool()

	data, err := pool.Marshal(Event{Type: "clicked", WidgetID: "btn1"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got Event
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Type != "clicked" || got.WidgetID != "btn1" {
		t.Errorf("got %+v", got)
	}
}

// Earlier results must stay intact when the pooled scratch buffer is reused
// by later encodes.
func TestEncoderPoolCopiesOut(t *testing.T) {
	pool := NewEncoderPool()

	first, err := pool.Marshal(Event{Type: "first", WidgetID: "a"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	snapshot := make([]byte, len(first))
	copy(snapshot, first)

	for i := 0; i < 100; i++ {
		if _, err := pool.Marshal(Event{Type: "noise", WidgetID: "zzzzzzzzzzzzzzzz"}); err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
	}

	if !bytes.Equal(first, snapshot) {
		t.Error("pooled encoder reuse mutated a previously returned slice")
	}
}

func TestEncoderPoolError(t *testing.T) {
	pool := NewEncoderPool()

	// Channels have no MessagePack representation.
	if _, err := pool.Marshal(make(chan int)); err == nil {
		t.Fatal("Marshal() of a channel succeeded, want error")
	}

	// Pool must stay usable after an encode failure.
	if _, err := pool.Marshal(Event{Type: "ok", WidgetID: "w"}); err != nil {
		t.Fatalf("Marshal() after failure error = %v", err)
	}
}

func TestEncoderPoolConcurrent(t *testing.T) {
	pool := NewEncoderPool()
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			tag := string(rune('a' + g))
			want := Event{Type: "tick", WidgetID: "w", Data: map[string]any{"g": tag}}
			for i := 0; i < 500; i++ {
				data, err := pool.Marshal(want)
				if err != nil {
					t.Errorf("Marshal() error = %v", err)
					return
				}
				var got Event
				if err := Unmarshal(data, &got); err != nil {
					t.Errorf("Unmarshal() error = %v", err)
					return
				}
				if got.Data["g"] != tag {
					t.Errorf("cross-goroutine corruption: g = %v, want %s", got.Data["g"], tag)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestPackageLevelMarshal(t *testing.T) {
	data, err := Marshal(Response{ID: "5", Success: true})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var got Response
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.ID != "5" || !got.Success {
		t.Errorf("got %+v", got)
	}
}
