package format

import (
	"fmt"

	"github.com/aeaeaeaeaeae/iidformat/pkg/codec"
)

// LUTRecordSize is the fixed encoded size of one lookup-table record:
// u32 key + bufloc iid (8 bytes) + bufloc seg (8 bytes) = 20 bytes.
const LUTRecordSize = 4 + codec.BuflocSize*2

// LUTRecord is one entry of the lookup table: a dense key plus the two
// buflocs needed to resolve its IID and segment records. The IID bufloc is
// relative to the start of the IID block; the segment bufloc is
// file-absolute.
type LUTRecord struct {
	Key uint32
	IID codec.Bufloc
	Seg codec.Bufloc
}

// Encode writes r into a fresh LUTRecordSize-byte buffer.
func (r LUTRecord) Encode() []byte {
	buf := make([]byte, LUTRecordSize)
	codec.PutU32(buf[0:4], r.Key)
	codec.PutBufloc(buf[4:4+codec.BuflocSize], r.IID)
	codec.PutBufloc(buf[4+codec.BuflocSize:], r.Seg)
	return buf
}

// DecodeLUTRecord parses one record from buf[0:LUTRecordSize].
func DecodeLUTRecord(buf []byte) (LUTRecord, error) {
	if len(buf) < LUTRecordSize {
		return LUTRecord{}, fmt.Errorf("format: LUT record requires %d bytes, got %d", LUTRecordSize, len(buf))
	}
	return LUTRecord{
		Key: codec.U32(buf[0:4]),
		IID: codec.DecodeBufloc(buf[4 : 4+codec.BuflocSize]),
		Seg: codec.DecodeBufloc(buf[4+codec.BuflocSize:]),
	}, nil
}

// DecodeLUT parses the entire LUT block. It carries no count prefix; its
// extent comes from the header's bufloc_lut.length, which must be a
// multiple of LUTRecordSize.
func DecodeLUT(buf []byte) ([]LUTRecord, error) {
	if len(buf)%LUTRecordSize != 0 {
		return nil, fmt.Errorf(
			"format: LUT block length %d is not a multiple of %d", len(buf), LUTRecordSize,
		)
	}
	n := len(buf) / LUTRecordSize
	records := make([]LUTRecord, n)
	for i := 0; i < n; i++ {
		rec, err := DecodeLUTRecord(buf[i*LUTRecordSize : (i+1)*LUTRecordSize])
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}

// EncodeLUT concatenates a full set of LUT records in order, with no length
// prefix, as the on-disk LUT block.
func EncodeLUT(records []LUTRecord) []byte {
	buf := make([]byte, 0, len(records)*LUTRecordSize)
	for _, r := range records {
		buf = append(buf, r.Encode()...)
	}
	return buf
}
