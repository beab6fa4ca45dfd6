package format

import (
	"fmt"

	"github.com/aeaeaeaeaeae/iidformat/pkg/codec"
	"github.com/aeaeaeaeaeae/iidformat/pkg/region"
)

// bboxEncodedSize is the wire size of a bbox: four u32 fields.
const bboxEncodedSize = 4 * 4

func encodeBBox(buf []byte, b region.BBox) []byte {
	head := make([]byte, bboxEncodedSize)
	codec.PutU32(head[0:4], b.MinR)
	codec.PutU32(head[4:8], b.MinC)
	codec.PutU32(head[8:12], b.MaxR)
	codec.PutU32(head[12:16], b.MaxC)
	return append(buf, head...)
}

func decodeBBox(buf []byte) (region.BBox, error) {
	if len(buf) < bboxEncodedSize {
		return region.BBox{}, fmt.Errorf("format: bbox requires %d bytes, got %d", bboxEncodedSize, len(buf))
	}
	return region.BBox{
		MinR: codec.U32(buf[0:4]),
		MinC: codec.U32(buf[4:8]),
		MaxR: codec.U32(buf[8:12]),
		MaxC: codec.U32(buf[12:16]),
	}, nil
}

// SegmentRecord is one entry of the segment block: the dense key it belongs
// to, its envelope box and total set-pixel area, and its ordered list of
// region sub-records.
type SegmentRecord struct {
	Key     uint32
	Box     region.BBox
	Area    uint32
	Regions []region.Region
}

// EncodedSize returns the number of bytes Encode will produce.
func (s SegmentRecord) EncodedSize() int {
	size := 4 + bboxEncodedSize + 4 + 4 // key + box + area + region_count
	for _, r := range s.Regions {
		size += bboxEncodedSize + 4 + len(r.Mask()) // box + mask_len + mask bytes
	}
	return size
}

// Encode appends s's wire encoding to buf and returns the extended slice.
func (s SegmentRecord) Encode(buf []byte) []byte {
	head := make([]byte, 4)
	codec.PutU32(head, s.Key)
	buf = append(buf, head...)
	buf = encodeBBox(buf, s.Box)

	tail := make([]byte, 8)
	codec.PutU32(tail[0:4], s.Area)
	codec.PutU32(tail[4:8], uint32(len(s.Regions)))
	buf = append(buf, tail...)

	for _, r := range s.Regions {
		buf = encodeBBox(buf, r.Box)
		maskBuf := r.Mask()
		lenBuf := make([]byte, 4)
		codec.PutU32(lenBuf, uint32(len(maskBuf)))
		buf = append(buf, lenBuf...)
		buf = append(buf, maskBuf...)
	}
	return buf
}

// DecodeSegmentRecord parses one record starting at buf[0], returning the
// record (with region mask bytes aliasing buf) and the number of bytes
// consumed.
func DecodeSegmentRecord(buf []byte) (SegmentRecord, int, error) {
	if len(buf) < 4+bboxEncodedSize+8 {
		return SegmentRecord{}, 0, fmt.Errorf("format: segment record header truncated")
	}
	key := codec.U32(buf[0:4])
	off := 4

	box, err := decodeBBox(buf[off:])
	if err != nil {
		return SegmentRecord{}, 0, err
	}
	off += bboxEncodedSize

	area := codec.U32(buf[off : off+4])
	off += 4
	count := codec.U32(buf[off : off+4])
	off += 4

	regions := make([]region.Region, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(buf) < off+bboxEncodedSize+4 {
			return SegmentRecord{}, 0, fmt.Errorf("format: segment record %d truncated before region %d", key, i)
		}
		rbox, err := decodeBBox(buf[off:])
		if err != nil {
			return SegmentRecord{}, 0, err
		}
		off += bboxEncodedSize

		maskLen := codec.U32(buf[off : off+4])
		off += 4
		if len(buf) < off+int(maskLen) {
			return SegmentRecord{}, 0, fmt.Errorf("format: segment record %d region %d mask truncated", key, i)
		}
		maskBuf := buf[off : off+int(maskLen)]
		off += int(maskLen)

		reg, err := region.NewRegion(rbox, maskBuf)
		if err != nil {
			return SegmentRecord{}, 0, fmt.Errorf("format: segment record %d region %d: %w", key, i, err)
		}
		regions = append(regions, reg)
	}

	return SegmentRecord{Key: key, Box: box, Area: area, Regions: regions}, off, nil
}

// DecodeSegmentBlock walks the entire segment block, decoding every record
// back to back until the declared block length is consumed.
func DecodeSegmentBlock(buf []byte) ([]SegmentRecord, error) {
	var records []SegmentRecord
	off := 0
	for off < len(buf) {
		rec, n, err := DecodeSegmentRecord(buf[off:])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		off += n
	}
	return records, nil
}

// EncodeSegmentBlock concatenates a full set of segment records in order, as
// the on-disk segment block.
func EncodeSegmentBlock(records []SegmentRecord) []byte {
	size := 0
	for _, r := range records {
		size += r.EncodedSize()
	}
	buf := make([]byte, 0, size)
	for _, r := range records {
		buf = r.Encode(buf)
	}
	return buf
}
