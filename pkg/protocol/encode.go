package protocol

import (
	"bytes"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// encoderItem pairs a MessagePack encoder with its scratch buffer so the
// two are always pooled together.
type encoderItem struct {
	enc *msgpack.Encoder
	buf *bytes.Buffer
}

// EncoderPool reuses MessagePack encoder/scratch-buffer pairs across
// encodes. Constructing an encoder per message is measurable overhead at
// the rates a widget-update loop produces; the pool makes encoding on the
// broadcast and response paths allocation-light.
//
// The zero value is ready to use. EncoderPool is safe for concurrent use.
type EncoderPool struct {
	pool sync.Pool
}

// NewEncoderPool returns an EncoderPool. Equivalent to new(EncoderPool);
// provided so the pool reads as a constructed dependency.
func NewEncoderPool() *EncoderPool {
	return &EncoderPool{}
}

// Marshal encodes v using a pooled encoder and returns an independent copy
// of the encoded bytes.
//
// The copy is mandatory: the scratch buffer goes back to the pool on
// return, and handing out a view into it would let the next Marshal
// overwrite bytes still being written to another connection. The pooled
// pair is released on every path, including encode failure.
func (p *EncoderPool) Marshal(v any) ([]byte, error) {
	item, _ := p.pool.Get().(*encoderItem)
	if item == nil {
		buf := bytes.NewBuffer(make([]byte, 0, 4096))
		item = &encoderItem{enc: msgpack.NewEncoder(buf), buf: buf}
	}
	defer func() {
		item.buf.Reset()
		p.pool.Put(item)
	}()

	item.buf.Reset()
	if err := item.enc.Encode(v); err != nil {
		return nil, err
	}

	out := make([]byte, item.buf.Len())
	copy(out, item.buf.Bytes())
	return out, nil
}

// defaultEncoders is the process-wide pool used by Marshal.
var defaultEncoders EncoderPool

// Marshal encodes v via the package-level encoder pool.
func Marshal(v any) ([]byte, error) {
	return defaultEncoders.Marshal(v)
}

// Unmarshal decodes MessagePack data into v.
func Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
