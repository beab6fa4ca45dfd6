// Package errors provides the structured error taxonomy used throughout the
// iidformat module. It follows a hierarchical design: a foundational
// baseError carries a cause, a message, an ErrorCode, and a lazily-allocated
// details map, and domain-specific error types (FormatError, QueryError,
// IOError) embed it to add the context that matters for that failure class
// while preserving fluent, type-correct method chaining.
//
// FormatError carries the block and offset where a structural inconsistency
// was found, so a caller can tell "the LUT is corrupt at byte 4096" from
// "the groups header references an out-of-range offset" without parsing the
// message string. QueryError carries the key or (domain, address) pair a
// request was about, and is the only non-fatal category (its NotLoaded code
// means "ask again after fetching more", not "this file is broken").
// IOError wraps whatever the filesystem or mmap layer returned.
//
// Callers that want to branch on failure category use the Is*/As* helpers
// below or errors.GetErrorCode(err); callers that just want a message use the
// error as-is.
package errors

import (
	stdErrors "errors"
)

// IsFormatError checks if the given error is a FormatError or contains one
// in its error chain.
func IsFormatError(err error) bool {
	var fe *FormatError
	return stdErrors.As(err, &fe)
}

// IsQueryError checks if the given error is a QueryError or contains one in
// its error chain.
func IsQueryError(err error) bool {
	var qe *QueryError
	return stdErrors.As(err, &qe)
}

// IsIOError checks if the given error is an IOError or contains one in its
// error chain.
func IsIOError(err error) bool {
	var ie *IOError
	return stdErrors.As(err, &ie)
}

// IsNotLoaded reports whether err is a QueryError carrying the NotLoaded
// code, the one code in this package that callers are expected to retry
// rather than treat as fatal.
func IsNotLoaded(err error) bool {
	qe, ok := AsQueryError(err)
	return ok && qe.Code() == ErrorCodeNotLoaded
}

// AsFormatError extracts a FormatError from an error chain.
func AsFormatError(err error) (*FormatError, bool) {
	var fe *FormatError
	if stdErrors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// AsQueryError extracts a QueryError from an error chain.
func AsQueryError(err error) (*QueryError, bool) {
	var qe *QueryError
	if stdErrors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}

// AsIOError extracts an IOError from an error chain.
func AsIOError(err error) (*IOError, bool) {
	var ie *IOError
	if stdErrors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from any error that supports it, or
// returns ErrorCodeInternal for errors that don't have a specific code.
func GetErrorCode(err error) ErrorCode {
	if fe, ok := AsFormatError(err); ok {
		return fe.Code()
	}
	if qe, ok := AsQueryError(err); ok {
		return qe.Code()
	}
	if ie, ok := AsIOError(err); ok {
		return ie.Code()
	}
	return ErrorCodeInternal
}

// GetErrorDetails extracts structured details from any error that supports
// them, returning an empty map for errors without details.
func GetErrorDetails(err error) map[string]any {
	if fe, ok := AsFormatError(err); ok {
		if details := fe.Details(); details != nil {
			return details
		}
	}
	if qe, ok := AsQueryError(err); ok {
		if details := qe.Details(); details != nil {
			return details
		}
	}
	if ie, ok := AsIOError(err); ok {
		if details := ie.Details(); details != nil {
			return details
		}
	}
	return make(map[string]any)
}
