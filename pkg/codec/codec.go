// Package codec implements the fixed-width little-endian primitives that
// every block of the iidformat file format is built from: u8/u16/u32
// integers, length-prefixed byte strings, and bufloc (offset,
// length) pairs. Nothing in this package knows about IIDs, segments, or
// blocks — it is the lowest layer, collecting the raw binary.LittleEndian
// calls into named, reusable functions instead of inlining them at every
// call site.
package codec

import (
	"encoding/binary"
	"fmt"
)

// BuflocSize is the encoded size, in bytes, of a bufloc pair (u32 offset, u32 length).
const BuflocSize = 8

// Bufloc is an (offset, length) pair pointing at a byte slice inside the
// file. Offsets are absolute file offsets everywhere except inside the IID
// block, where they are relative to the start of that block instead;
// internal/storage is the only package that knows which case applies to a
// given Bufloc.
type Bufloc struct {
	Offset uint32
	Length uint32
}

// PutU8 writes a single byte at buf[0].
func PutU8(buf []byte, v uint8) { buf[0] = v }

// U8 reads a single byte from buf[0].
func U8(buf []byte) uint8 { return buf[0] }

// PutU16 writes v as little-endian into buf[0:2].
func PutU16(buf []byte, v uint16) { binary.LittleEndian.PutUint16(buf, v) }

// U16 reads a little-endian uint16 from buf[0:2].
func U16(buf []byte) uint16 { return binary.LittleEndian.Uint16(buf) }

// PutU32 writes v as little-endian into buf[0:4].
func PutU32(buf []byte, v uint32) { binary.LittleEndian.PutUint32(buf, v) }

// U32 reads a little-endian uint32 from buf[0:4].
func U32(buf []byte) uint32 { return binary.LittleEndian.Uint32(buf) }

// PutBufloc writes a bufloc pair as two consecutive little-endian u32 fields.
func PutBufloc(buf []byte, b Bufloc) {
	PutU32(buf[0:4], b.Offset)
	PutU32(buf[4:8], b.Length)
}

// DecodeBufloc reads a bufloc pair from buf[0:8].
func DecodeBufloc(buf []byte) Bufloc {
	return Bufloc{Offset: U32(buf[0:4]), Length: U32(buf[4:8])}
}

// AppendU32 appends v to buf as little-endian and returns the grown slice.
// Used by writers building a block incrementally instead of into a
// pre-sized buffer.
func AppendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// AppendString appends a length-prefixed byte string (`len n, bytes(n)`)
// to buf and returns the grown slice.
func AppendString(buf []byte, s []byte) ([]byte, error) {
	if uint64(len(s)) > MaxLength {
		return nil, fmt.Errorf("codec: string length %d exceeds maximum %d", len(s), MaxLength)
	}
	buf = AppendU32(buf, uint32(len(s)))
	return append(buf, s...), nil
}

// MaxLength is the largest length value the `len` codec primitive can carry;
// exceeding it is a fatal encoding error at write time.
const MaxLength = uint64(^uint32(0))

// ReadString reads a length-prefixed byte string starting at buf[0] and
// returns the decoded bytes together with the number of bytes consumed
// (4 + n). It does not copy; the returned slice aliases buf.
func ReadString(buf []byte) ([]byte, int, error) {
	if len(buf) < 4 {
		return nil, 0, fmt.Errorf("codec: buffer too short for length prefix")
	}
	n := int(U32(buf[0:4]))
	if len(buf) < 4+n {
		return nil, 0, fmt.Errorf("codec: buffer too short for %d-byte string", n)
	}
	return buf[4 : 4+n], 4 + n, nil
}
