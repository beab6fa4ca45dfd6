package errors

// FormatError reports a structural problem with the on-disk byte grammar
// itself: a bad version, a declared length that overshoots the file, or an
// internal inconsistency between blocks. FormatErrors are always fatal for
// the reader instance that raised them.
type FormatError struct {
	*baseError

	path   string // File path being parsed when the error occurred.
	block  string // Which block was being parsed: header, lut, iids, meta, groups, segs.
	offset int64  // Byte offset within the file where the problem was detected.
}

// NewFormatError creates a new format-specific error with the provided context.
func NewFormatError(err error, code ErrorCode, msg string) *FormatError {
	return &FormatError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message while maintaining the FormatError type.
func (fe *FormatError) WithMessage(msg string) *FormatError {
	fe.baseError.WithMessage(msg)
	return fe
}

// WithCode sets the error code while preserving the FormatError type.
func (fe *FormatError) WithCode(code ErrorCode) *FormatError {
	fe.baseError.WithCode(code)
	return fe
}

// WithDetail adds contextual information while maintaining the FormatError type.
func (fe *FormatError) WithDetail(key string, value any) *FormatError {
	fe.baseError.WithDetail(key, value)
	return fe
}

// WithPath records which file was being parsed.
func (fe *FormatError) WithPath(path string) *FormatError {
	fe.path = path
	return fe
}

// WithBlock records which block (header/lut/iids/meta/groups/segs) was
// being parsed when the error occurred.
func (fe *FormatError) WithBlock(block string) *FormatError {
	fe.block = block
	return fe
}

// WithOffset records the byte offset where the inconsistency was detected.
func (fe *FormatError) WithOffset(offset int64) *FormatError {
	fe.offset = offset
	return fe
}

// Path returns the file path being parsed when the error occurred.
func (fe *FormatError) Path() string { return fe.path }

// Block returns the name of the block being parsed.
func (fe *FormatError) Block() string { return fe.block }

// Offset returns the byte offset where the inconsistency was detected.
func (fe *FormatError) Offset() int64 { return fe.offset }

// NewBadVersionError reports a header.version this package does not implement.
func NewBadVersionError(path string, got, want uint32) *FormatError {
	return NewFormatError(nil, ErrorCodeBadVersion, "unsupported format version").
		WithPath(path).
		WithBlock("header").
		WithDetail("got", got).
		WithDetail("want", want)
}

// NewTruncatedError reports a bufloc or length field that overshoots the file.
func NewTruncatedError(path, block string, offset, declaredEnd, fileSize int64) *FormatError {
	return NewFormatError(nil, ErrorCodeTruncated, "declared block extent exceeds file size").
		WithPath(path).
		WithBlock(block).
		WithOffset(offset).
		WithDetail("declaredEnd", declaredEnd).
		WithDetail("fileSize", fileSize)
}

// NewCorruptError reports an internal inconsistency detected while decoding a block.
func NewCorruptError(path, block, reason string) *FormatError {
	return NewFormatError(nil, ErrorCodeCorrupt, reason).
		WithPath(path).
		WithBlock(block)
}
