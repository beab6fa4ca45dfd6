package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeGroupsBlockRoundTrip(t *testing.T) {
	groups := map[string][]uint32{
		"cats":  {1, 2, 3},
		"dogs":  {4, 5},
		"birds": {},
	}
	buf, err := EncodeGroupsBlock(groups)
	require.NoError(t, err)

	got, err := DecodeGroupsBlock(buf)
	require.NoError(t, err)
	require.Equal(t, groups["cats"], got.Keys["cats"])
	require.Equal(t, groups["dogs"], got.Keys["dogs"])
	require.Empty(t, got.Keys["birds"])
}

func TestEncodeGroupsBlockDeterministicOrdering(t *testing.T) {
	groups := map[string][]uint32{"z": {1}, "a": {2}, "m": {3}}
	buf1, err := EncodeGroupsBlock(groups)
	require.NoError(t, err)
	buf2, err := EncodeGroupsBlock(groups)
	require.NoError(t, err)
	require.Equal(t, buf1, buf2, "same logical groups must produce byte-identical output")
}

func TestDecodeGroupsHeaderDoesNotTouchKeyPayload(t *testing.T) {
	groups := map[string][]uint32{"a": {10, 20, 30}}
	buf, err := EncodeGroupsBlock(groups)
	require.NoError(t, err)

	spans, headerSize, err := DecodeGroupsHeader(buf)
	require.NoError(t, err)
	require.Contains(t, spans, "a")
	require.Equal(t, uint32(3), spans["a"].Count)

	keyBuf := buf[headerSize:]
	span := spans["a"]
	keys, err := DecodeGroupKeys(keyBuf[span.Offset:], span.Count)
	require.NoError(t, err)
	require.Equal(t, groups["a"], keys)
}

func TestDecodeGroupKeysRejectsShortBuffer(t *testing.T) {
	_, err := DecodeGroupKeys(make([]byte, 4), 2)
	require.Error(t, err)
}

func TestDecodeGroupsBlockRejectsShortHeader(t *testing.T) {
	_, err := DecodeGroupsBlock(make([]byte, 2))
	require.Error(t, err)
}

func TestDecodeGroupsBlockEmptyGroups(t *testing.T) {
	buf, err := EncodeGroupsBlock(map[string][]uint32{})
	require.NoError(t, err)
	got, err := DecodeGroupsBlock(buf)
	require.NoError(t, err)
	require.Empty(t, got.Spans)
}
