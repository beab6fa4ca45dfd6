package errors

import (
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaseErrorUnwrap(t *testing.T) {
	cause := stdErrors.New("disk is full")
	fe := NewFormatError(cause, ErrorCodeCorrupt, "could not decode header")
	require.ErrorIs(t, fe, cause)
}

func TestBaseErrorFluentChainingPreservesType(t *testing.T) {
	fe := NewFormatError(nil, ErrorCodeTruncated, "bad").
		WithPath("/tmp/x.iid").
		WithBlock("lut").
		WithOffset(128).
		WithDetail("want", 64)

	require.Equal(t, "/tmp/x.iid", fe.Path())
	require.Equal(t, "lut", fe.Block())
	require.Equal(t, int64(128), fe.Offset())
	require.Equal(t, 64, fe.Details()["want"])
}

func TestIsFormatError(t *testing.T) {
	fe := NewFormatError(nil, ErrorCodeCorrupt, "bad")
	require.True(t, IsFormatError(fe))
	require.False(t, IsFormatError(NewQueryError(nil, ErrorCodeNotFound, "missing")))
}

func TestIsQueryError(t *testing.T) {
	qe := NewQueryError(nil, ErrorCodeNotFound, "missing")
	require.True(t, IsQueryError(qe))
	require.False(t, IsQueryError(NewIOError(nil, "boom")))
}

func TestIsIOError(t *testing.T) {
	ie := NewIOError(nil, "boom")
	require.True(t, IsIOError(ie))
	require.False(t, IsIOError(NewQueryError(nil, ErrorCodeNotFound, "missing")))
}

func TestIsNotLoaded(t *testing.T) {
	qe := NewNotLoadedError(7, "region")
	require.True(t, IsNotLoaded(qe))
	require.False(t, IsNotLoaded(NewKeyNotFoundError(7)))
	require.False(t, IsNotLoaded(NewIOError(nil, "boom")))
}

func TestGetErrorCode(t *testing.T) {
	require.Equal(t, ErrorCodeBadVersion, GetErrorCode(NewBadVersionError("p", 2, 1)))
	require.Equal(t, ErrorCodeDuplicateIID, GetErrorCode(NewDuplicateIIDError("d", "a")))
	require.Equal(t, ErrorCodeIO, GetErrorCode(NewOpenError(nil, "p")))
	require.Equal(t, ErrorCodeInternal, GetErrorCode(stdErrors.New("plain error")))
}

func TestGetErrorDetails(t *testing.T) {
	err := NewTruncatedError("/p", "segs", 10, 20, 15)
	details := GetErrorDetails(err)
	require.Equal(t, int64(20), details["declaredEnd"])
	require.Equal(t, int64(15), details["fileSize"])
}

func TestGetErrorDetailsEmptyForPlainError(t *testing.T) {
	require.Empty(t, GetErrorDetails(stdErrors.New("plain")))
}

func TestNewKeyNotFoundError(t *testing.T) {
	qe := NewKeyNotFoundError(42)
	require.Equal(t, ErrorCodeNotFound, qe.Code())
}

func TestNewDuplicateIIDError(t *testing.T) {
	qe := NewDuplicateIIDError("domain", "addr")
	require.Equal(t, ErrorCodeDuplicateIID, qe.Code())
}
