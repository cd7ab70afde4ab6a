package wire

import (
	"errors"

	"github.com/golang/snappy"
)

// CompressionThreshold is the minimum raw payload length (in bytes) at
// which a frame is Snappy-compressed instead of sent raw.
const CompressionThreshold = 256

// Compression tags the first byte of every wire frame.
type Compression byte

const (
	CompressionNone   Compression = 0
	CompressionSnappy Compression = 1
)

var errEmptyFrame = errors.New("wire: empty frame")

// Frame prepends the 1-byte compression tag to raw, Snappy-compressing it
// first when raw is at least CompressionThreshold bytes long.
func Frame(raw []byte) []byte {
	if len(raw) < CompressionThreshold {
		out := make([]byte, 1+len(raw))
		out[0] = byte(CompressionNone)
		copy(out[1:], raw)
		return out
	}

	compressed := snappy.Encode(nil, raw)
	out := make([]byte, 1+len(compressed))
	out[0] = byte(CompressionSnappy)
	copy(out[1:], compressed)
	return out
}

// Unframe strips and interprets the compression tag, returning the raw
// (decompressed) payload.
func Unframe(framed []byte) ([]byte, error) {
	if len(framed) == 0 {
		return nil, errEmptyFrame
	}
	payload := framed[1:]
	switch Compression(framed[0]) {
	case CompressionNone:
		return payload, nil
	case CompressionSnappy:
		return snappy.Decode(nil, payload)
	default:
		return nil, errors.New("wire: unknown compression tag")
	}
}
