package errors

// ErrorCode represents a standardized way to categorize different types of errors.
type ErrorCode string

// Error codes mirror the error kinds this package defines for the format: a
// reader either fails to parse file structure (BadVersion/Truncated/Corrupt),
// fails to satisfy a specific query (NotFound/NotLoaded), fails to accept a
// new entry (DuplicateIID), or hits the filesystem (IO).
const (
	// ErrorCodeBadVersion indicates the file's header.version field is not
	// the version this package implements.
	ErrorCodeBadVersion ErrorCode = "BAD_VERSION"

	// ErrorCodeTruncated indicates a declared bufloc or length field points
	// past the end of the file.
	ErrorCodeTruncated ErrorCode = "TRUNCATED"

	// ErrorCodeCorrupt indicates an internal inconsistency: LUT size not a
	// multiple of the record size, a region mask length that doesn't match
	// its bbox, a groups header referencing an out-of-range offset, or (in
	// strict mode) a segment's area disagreeing with its bit count.
	ErrorCodeCorrupt ErrorCode = "CORRUPT"

	// ErrorCodeNotFound indicates a queried key or address isn't present.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrorCodeDuplicateIID indicates an add would violate the global
	// (domain, address) uniqueness invariant.
	ErrorCodeDuplicateIID ErrorCode = "DUPLICATE_IID"

	// ErrorCodeNotLoaded indicates the query needs data the reader hasn't
	// materialized yet and the caller forbade on-demand I/O. Non-fatal.
	ErrorCodeNotLoaded ErrorCode = "NOT_LOADED"

	// ErrorCodeIO indicates an underlying file or memory-mapping failure.
	ErrorCodeIO ErrorCode = "IO"

	// ErrorCodeInternal is the fallback for errors that don't carry a
	// specific code of their own.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)
