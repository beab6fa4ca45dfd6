// Package format implements the bit-exact on-disk byte grammar of an
// iidformat file: the 48-byte header, the fixed-size LUT records, the IID
// block, the metadata block, the groups block, and the segment block. Every
// function
// here is a pure encode/decode pair operating on byte slices; it knows
// nothing about memory-mapping a file (internal/storage) or about how
// blocks get assembled in the first place (internal/writer) or interpreted
// as queries (internal/engine) — it is the codec layer one level up from
// pkg/codec's raw integers.
package format

import (
	"fmt"

	"github.com/aeaeaeaeaeae/iidformat/pkg/codec"
)

// Version is the format version this package implements.
const Version uint32 = 1

// HeaderSize is the fixed encoded size of the header block in bytes:
// 2 u32 fields (version, rformat) + 5 bufloc pairs of 8 bytes each.
const HeaderSize = 2*4 + 5*codec.BuflocSize

// RFormatImage is the current (and only defined) value of the advisory
// rformat field, meaning the file holds image segmentation data.
const RFormatImage uint32 = 0

// Header is the 48-byte block every file begins with, recording the
// absolute file offset and byte length of every other block.
type Header struct {
	Version uint32
	RFormat uint32
	LUT     codec.Bufloc
	IIDs    codec.Bufloc
	Meta    codec.Bufloc
	Groups  codec.Bufloc
	Segs    codec.Bufloc
}

// Encode writes h into a fresh HeaderSize-byte buffer.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	codec.PutU32(buf[0:4], h.Version)
	codec.PutU32(buf[4:8], h.RFormat)
	off := 8
	for _, b := range []codec.Bufloc{h.LUT, h.IIDs, h.Meta, h.Groups, h.Segs} {
		codec.PutBufloc(buf[off:off+codec.BuflocSize], b)
		off += codec.BuflocSize
	}
	return buf
}

// DecodeHeader parses the header block from buf, which must be at least
// HeaderSize bytes. It validates the version field; the caller is
// responsible for validating that the buflocs fit within the actual file
// size (that check needs the file size, which this package doesn't have).
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("format: header requires %d bytes, got %d", HeaderSize, len(buf))
	}

	h := Header{
		Version: codec.U32(buf[0:4]),
		RFormat: codec.U32(buf[4:8]),
	}
	if h.Version != Version {
		return h, &BadVersionErr{Got: h.Version, Want: Version}
	}

	off := 8
	locs := make([]codec.Bufloc, 5)
	for i := range locs {
		locs[i] = codec.DecodeBufloc(buf[off : off+codec.BuflocSize])
		off += codec.BuflocSize
	}
	h.LUT, h.IIDs, h.Meta, h.Groups, h.Segs = locs[0], locs[1], locs[2], locs[3], locs[4]
	return h, nil
}

// BadVersionErr is returned by DecodeHeader when the file's version field
// does not match Version. It is a plain sentinel-shaped error type so
// callers (internal/storage) can attach path/offset context via
// pkg/errors.NewBadVersionError without this package importing pkg/errors.
type BadVersionErr struct {
	Got, Want uint32
}

func (e *BadVersionErr) Error() string {
	return fmt.Sprintf("format: unsupported version %d, want %d", e.Got, e.Want)
}
