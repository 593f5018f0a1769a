package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the length prefix in bytes.
	FrameHeaderSize = 4

	// MaxFrameSize is the maximum body size (100 MiB). A frame declaring
	// a larger length is a protocol violation and the connection carrying
	// it must be closed.
	MaxFrameSize = 100 * 1024 * 1024
)

// Frame errors.
var (
	// ErrFrameTooLarge is returned when a frame's declared length exceeds
	// MaxFrameSize.
	ErrFrameTooLarge = errors.New("protocol: frame exceeds maximum size")

	// ErrTruncatedFrame is returned when the stream ends mid-frame, after
	// the length prefix but before the full body arrived.
	ErrTruncatedFrame = errors.New("protocol: truncated frame")
)

// EncodeFrame wraps body in a frame: 4-byte big-endian length prefix
// followed by the body bytes.
func EncodeFrame(body []byte) []byte {
	buf := make([]byte, FrameHeaderSize+len(body))
	binary.BigEndian.PutUint32(buf[:FrameHeaderSize], uint32(len(body)))
	copy(buf[FrameHeaderSize:], body)
	return buf
}

// AppendFrame writes the frame for body into dst, which must have room for
// FrameHeaderSize+len(body) bytes, and returns the framed slice. It exists
// so callers holding a pooled buffer can frame without allocating.
func AppendFrame(dst, body []byte) []byte {
	n := FrameHeaderSize + len(body)
	dst = dst[:n]
	binary.BigEndian.PutUint32(dst[:FrameHeaderSize], uint32(len(body)))
	copy(dst[FrameHeaderSize:], body)
	return dst
}

// ReadFrame reads one complete frame body from r.
//
// It blocks until the 4-byte prefix is available, validates the declared
// length against MaxFrameSize, then blocks until the full body is read.
// A stream that ends cleanly between frames returns io.EOF; a stream that
// ends after the prefix but before the full body returns ErrTruncatedFrame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			// Partial prefix: the peer died mid-frame.
			return nil, ErrTruncatedFrame
		}
		return nil, err
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	body := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, ErrTruncatedFrame
			}
			return nil, err
		}
	}
	return body, nil
}

// WriteFrame frames body and writes it to w in a single Write call, so a
// writer serialized by a lock never interleaves partial frames.
func WriteFrame(w io.Writer, body []byte) error {
	if len(body) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(EncodeFrame(body))
	return err
}
