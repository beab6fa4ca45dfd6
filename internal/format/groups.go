package format

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aeaeaeaeaeae/iidformat/pkg/codec"
)

// GroupSpan records where a named group's key list lives within the groups
// block's key-array section: Offset is a byte offset relative to the end of
// the JSON header, Count is the number of u32 keys.
type GroupSpan struct {
	Offset uint32 `json:"offset"`
	Count  uint32 `json:"count"`
}

// GroupsBlock is the decoded form of the groups block: a header_len-prefixed
// JSON object mapping group name to its span, followed
// by every group's keys as a flat run of u32s.
type GroupsBlock struct {
	Spans map[string]GroupSpan
	Keys  map[string][]uint32
}

// EncodeGroupsBlock serializes groups as header_len(u32) + JSON header + concatenated key
// arrays. Group names are written to the JSON map in sorted order so that
// two writers given the same logical groups always produce byte-identical
// output.
func EncodeGroupsBlock(groups map[string][]uint32) ([]byte, error) {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	spans := make(map[string]GroupSpan, len(names))
	var keyBuf []byte
	for _, name := range names {
		keys := groups[name]
		spans[name] = GroupSpan{Offset: uint32(len(keyBuf)), Count: uint32(len(keys))}
		for _, k := range keys {
			keyBuf = codec.AppendU32(keyBuf, k)
		}
	}

	header, err := json.Marshal(spans)
	if err != nil {
		return nil, fmt.Errorf("format: encoding groups header: %w", err)
	}

	out := make([]byte, 0, 4+len(header)+len(keyBuf))
	lenBuf := make([]byte, 4)
	codec.PutU32(lenBuf, uint32(len(header)))
	out = append(out, lenBuf...)
	out = append(out, header...)
	out = append(out, keyBuf...)
	return out, nil
}

// DecodeGroupsHeader parses only the header_len prefix and JSON span header
// of a groups block, without touching the key-array payload that follows.
// It returns the spans and the number of bytes the header itself occupies
// (4 + header_len), so a caller can compute the file-absolute offset of any
// group's key array without reading the rest of the block, so a
// group-scoped fetch never touches other groups' keys.
func DecodeGroupsHeader(buf []byte) (map[string]GroupSpan, int, error) {
	if len(buf) < 4 {
		return nil, 0, fmt.Errorf("format: groups block requires at least 4 bytes, got %d", len(buf))
	}
	headerLen := codec.U32(buf[0:4])
	if len(buf) < 4+int(headerLen) {
		return nil, 0, fmt.Errorf(
			"format: groups header declares %d bytes, only %d available", headerLen, len(buf)-4,
		)
	}

	var spans map[string]GroupSpan
	if err := json.Unmarshal(buf[4:4+int(headerLen)], &spans); err != nil {
		return nil, 0, fmt.Errorf("format: decoding groups header: %w", err)
	}
	return spans, 4 + int(headerLen), nil
}

// DecodeGroupKeys decodes a single group's flat u32 key array from a byte
// slice covering exactly that array (typically read directly off the mmap
// at the offset DecodeGroupsHeader's span implies).
func DecodeGroupKeys(buf []byte, count uint32) ([]uint32, error) {
	want := int(count) * 4
	if len(buf) < want {
		return nil, fmt.Errorf("format: group key array requires %d bytes, got %d", want, len(buf))
	}
	keys := make([]uint32, count)
	for i := range keys {
		keys[i] = codec.U32(buf[i*4 : i*4+4])
	}
	return keys, nil
}

// DecodeGroupsBlock parses a groups block encoded by EncodeGroupsBlock.
func DecodeGroupsBlock(buf []byte) (GroupsBlock, error) {
	if len(buf) < 4 {
		return GroupsBlock{}, fmt.Errorf("format: groups block requires at least 4 bytes, got %d", len(buf))
	}
	headerLen := codec.U32(buf[0:4])
	if len(buf) < 4+int(headerLen) {
		return GroupsBlock{}, fmt.Errorf(
			"format: groups header declares %d bytes, only %d available", headerLen, len(buf)-4,
		)
	}

	var spans map[string]GroupSpan
	if err := json.Unmarshal(buf[4:4+int(headerLen)], &spans); err != nil {
		return GroupsBlock{}, fmt.Errorf("format: decoding groups header: %w", err)
	}

	keyArea := buf[4+int(headerLen):]
	keys := make(map[string][]uint32, len(spans))
	for name, span := range spans {
		start := int(span.Offset)
		end := start + int(span.Count)*4
		if start < 0 || end > len(keyArea) || end < start {
			return GroupsBlock{}, fmt.Errorf("format: group %q key span out of bounds", name)
		}
		list := make([]uint32, span.Count)
		for i := range list {
			list[i] = codec.U32(keyArea[start+i*4 : start+i*4+4])
		}
		keys[name] = list
	}

	return GroupsBlock{Spans: spans, Keys: keys}, nil
}
