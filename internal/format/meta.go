package format

import (
	"fmt"

	"github.com/aeaeaeaeaeae/iidformat/pkg/codec"
)

// EncodeMeta wraps an opaque metadata payload (typically marshaled JSON, but
// this package makes no assumption about its contents) in a length prefix.
func EncodeMeta(payload []byte) []byte {
	out := make([]byte, 4+len(payload))
	codec.PutU32(out[0:4], uint32(len(payload)))
	copy(out[4:], payload)
	return out
}

// DecodeMeta strips the length prefix off a metadata block and returns the
// payload bytes, aliasing buf.
func DecodeMeta(buf []byte) ([]byte, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("format: meta block requires at least 4 bytes, got %d", len(buf))
	}
	n := codec.U32(buf[0:4])
	if len(buf) < 4+int(n) {
		return nil, fmt.Errorf("format: meta block declares %d bytes, only %d available", n, len(buf)-4)
	}
	return buf[4 : 4+int(n)], nil
}
