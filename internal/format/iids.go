package format

import (
	"fmt"

	"github.com/aeaeaeaeaeae/iidformat/pkg/codec"
)

// IIDRecordHeaderSize is the fixed portion of one IID block record: u32 key +
// u32 domain_len + u32 address_len, ahead of the variable domain/address
// bytes.
const IIDRecordHeaderSize = 4 + 4 + 4

// IIDRecord is one entry of the IID block: the dense key it belongs to and
// the (domain, address) pair that identifies it.
type IIDRecord struct {
	Key     uint32
	Domain  []byte
	Address []byte
}

// EncodedSize returns the number of bytes Encode will produce.
func (r IIDRecord) EncodedSize() int {
	return IIDRecordHeaderSize + len(r.Domain) + len(r.Address)
}

// Encode appends r's wire encoding to buf and returns the extended slice.
func (r IIDRecord) Encode(buf []byte) []byte {
	head := make([]byte, IIDRecordHeaderSize)
	codec.PutU32(head[0:4], r.Key)
	codec.PutU32(head[4:8], uint32(len(r.Domain)))
	codec.PutU32(head[8:12], uint32(len(r.Address)))
	buf = append(buf, head...)
	buf = append(buf, r.Domain...)
	buf = append(buf, r.Address...)
	return buf
}

// DecodeIIDRecord parses one record starting at buf[0], returning the record
// (with Domain/Address aliasing buf) and the number of bytes consumed.
func DecodeIIDRecord(buf []byte) (IIDRecord, int, error) {
	if len(buf) < IIDRecordHeaderSize {
		return IIDRecord{}, 0, fmt.Errorf(
			"format: IID record header requires %d bytes, got %d", IIDRecordHeaderSize, len(buf),
		)
	}
	key := codec.U32(buf[0:4])
	domainLen := codec.U32(buf[4:8])
	addressLen := codec.U32(buf[8:12])

	need := IIDRecordHeaderSize + int(domainLen) + int(addressLen)
	if len(buf) < need {
		return IIDRecord{}, 0, fmt.Errorf(
			"format: IID record declares %d bytes of domain/address, only %d available",
			int(domainLen)+int(addressLen), len(buf)-IIDRecordHeaderSize,
		)
	}

	domain := buf[IIDRecordHeaderSize : IIDRecordHeaderSize+int(domainLen)]
	address := buf[IIDRecordHeaderSize+int(domainLen) : need]
	return IIDRecord{Key: key, Domain: domain, Address: address}, need, nil
}

// DecodeIIDBlock walks the entire IID block, decoding every record back to
// back until the block is exhausted: the block has no count prefix,
// records run until the declared block length is consumed.
func DecodeIIDBlock(buf []byte) ([]IIDRecord, error) {
	var records []IIDRecord
	off := 0
	for off < len(buf) {
		rec, n, err := DecodeIIDRecord(buf[off:])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		off += n
	}
	return records, nil
}

// EncodeIIDBlock concatenates a full set of IID records in order, as the
// on-disk IID block. Offsets recorded in the LUT for these records are
// relative to the start of this block, not the start of the file — this
// function only produces the bytes, the writer is responsible for that
// offset convention.
func EncodeIIDBlock(records []IIDRecord) []byte {
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
