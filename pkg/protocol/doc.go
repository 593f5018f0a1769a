// Package protocol implements the binary wire protocol spoken between the
// scripting control plane and the native bridge process.
//
// # Wire Format
//
// Every unit on the wire is a frame: a 4-byte big-endian length prefix
// followed by a MessagePack-encoded body.
//
//	┌──────────────────────────────┬──────────────────────────────┐
//	│ Length                       │ Body                         │
//	│ (4 bytes, big-endian uint32) │ (Length bytes, MessagePack)  │
//	└──────────────────────────────┴──────────────────────────────┘
//
// Length counts the body only, never the prefix. Bodies larger than
// MaxFrameSize (100 MiB) are rejected and the connection must be closed.
//
// # Body Types
//
// Three body shapes travel over a connection:
//
//   - Message: a request from the control plane. Carries a caller-assigned
//     correlation id, a type string selecting a handler, and a payload map.
//   - Response: the bridge's reply. Echoes the Message id; exactly one
//     Response is produced per Message.
//   - Event: an unsolicited notification from the bridge (widget clicked,
//     value changed). No id, no reply expected.
//
// A Message with an empty id is a one-way notify: the bridge dispatches it
// but writes no Response.
//
// # Encoding
//
// Bodies use MessagePack (github.com/vmihailenco/msgpack/v5). Encoding on
// the hot path goes through EncoderPool, which reuses encoder/scratch-buffer
// pairs and always copies the result out of pooled memory.
//
// # File Structure
//
//   - types.go: Message, Response, Event wire types
//   - frame.go: frame constants, errors, encode/read/write
//   - encode.go: pooled MessagePack encoding
package protocol
