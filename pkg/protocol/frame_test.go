package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestEncodeFrame(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{name: "empty_body", body: []byte{}},
		{name: "small_body", body: []byte{0x01, 0x02, 0x03}},
		{name: "text_body", body: []byte("hello bridge")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			framed := EncodeFrame(tc.body)

			if len(framed) != FrameHeaderSize+len(tc.body) {
				t.Fatalf("frame length = %d, want %d", len(framed), FrameHeaderSize+len(tc.body))
			}
			gotLen := binary.BigEndian.Uint32(framed[:FrameHeaderSize])
			if int(gotLen) != len(tc.body) {
				t.Errorf("length prefix = %d, want %d", gotLen, len(tc.body))
			}
			if !bytes.Equal(framed[FrameHeaderSize:], tc.body) {
				t.Errorf("body = %v, want %v", framed[FrameHeaderSize:], tc.body)
			}
		})
	}
}

func TestAppendFrame(t *testing.T) {
	body := []byte("payload")
	dst := make([]byte, FrameHeaderSize+len(body))

	framed := AppendFrame(dst, body)

	if &framed[0] != &dst[0] {
		t.Error("AppendFrame allocated instead of using dst")
	}
	if !bytes.Equal(framed, EncodeFrame(body)) {
		t.Errorf("AppendFrame = %v, want %v", framed, EncodeFrame(body))
	}
}

func TestReadFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{name: "empty", body: []byte{}},
		{name: "one_byte", body: []byte{0xff}},
		{name: "typical", body: bytes.Repeat([]byte{0xab}, 1500)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := bytes.NewReader(EncodeFrame(tc.body))

			got, err := ReadFrame(r)
			if err != nil {
				t.Fatalf("ReadFrame() error = %v", err)
			}
			if !bytes.Equal(got, tc.body) {
				t.Errorf("ReadFrame() = %d bytes, want %d bytes", len(got), len(tc.body))
			}
		})
	}
}

func TestReadFrameMultiple(t *testing.T) {
	var stream bytes.Buffer
	bodies := [][]byte{[]byte("first"), []byte("second"), {}}
	for _, b := range bodies {
		stream.Write(EncodeFrame(b))
	}

	for i, want := range bodies {
		got, err := ReadFrame(&stream)
		if err != nil {
			t.Fatalf("frame %d: ReadFrame() error = %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d = %q, want %q", i, got, want)
		}
	}

	if _, err := ReadFrame(&stream); err != io.EOF {
		t.Errorf("after last frame: err = %v, want io.EOF", err)
	}
}

func TestReadFrameCleanEOF(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	if err != io.EOF {
		t.Errorf("empty stream: err = %v, want io.EOF", err)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "partial_prefix", data: []byte{0x00, 0x00}},
		{name: "missing_body", data: []byte{0x00, 0x00, 0x00, 0x05}},
		{name: "partial_body", data: append([]byte{0x00, 0x00, 0x00, 0x05}, 'a', 'b')},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(tc.data))
			if !errors.Is(err, ErrTruncatedFrame) {
				t.Errorf("err = %v, want ErrTruncatedFrame", err)
			}
		})
	}
}

func TestReadFrameTooLarge(t *testing.T) {
	var prefix [FrameHeaderSize]byte
	binary.BigEndian.PutUint32(prefix[:], MaxFrameSize+1)

	_, err := ReadFrame(bytes.NewReader(prefix[:]))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("err = %v, want ErrFrameTooLarge", err)
	}
}

func TestReadFrameMaxSizeAccepted(t *testing.T) {
	// A declared length of exactly MaxFrameSize is still valid; only the
	// declaration is checked here, the body read then fails as truncated.
	var prefix [FrameHeaderSize]byte
	binary.BigEndian.PutUint32(prefix[:], MaxFrameSize)

	_, err := ReadFrame(bytes.NewReader(prefix[:]))
	if !errors.Is(err, ErrTruncatedFrame) {
		t.Errorf("err = %v, want ErrTruncatedFrame", err)
	}
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	body := []byte("outbound")

	if err := WriteFrame(&buf, body); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("round trip = %q, want %q", got, body)
	}
}

func TestWriteFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	huge := make([]byte, MaxFrameSize+1)
	if err := WriteFrame(&buf, huge); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("err = %v, want ErrFrameTooLarge", err)
	}
	if buf.Len() != 0 {
		t.Errorf("oversized frame wrote %d bytes, want 0", buf.Len())
	}
}
