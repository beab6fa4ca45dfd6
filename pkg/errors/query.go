package errors

// QueryError reports a failure that is specific to a single request against
// an already-open reader or entry orchestrator: a missing key or address, an
// add that would violate IID uniqueness, or a query that needs data the
// caller forbade loading. Unlike FormatError, a QueryError (besides
// DuplicateIID, which never applies to an existing file) does not indicate
// the file itself is broken.
type QueryError struct {
	*baseError

	key      uint32 // The LUT key involved, when applicable.
	hasKey   bool
	domain   string // The IID domain involved, when applicable.
	address  string // The IID address involved, when applicable.
	selector string // A short description of the selector/query that failed.
}

// NewQueryError creates a new query-specific error with the provided context.
func NewQueryError(err error, code ErrorCode, msg string) *QueryError {
	return &QueryError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message while maintaining the QueryError type.
func (qe *QueryError) WithMessage(msg string) *QueryError {
	qe.baseError.WithMessage(msg)
	return qe
}

// WithCode sets the error code while preserving the QueryError type.
func (qe *QueryError) WithCode(code ErrorCode) *QueryError {
	qe.baseError.WithCode(code)
	return qe
}

// WithDetail adds contextual information while maintaining the QueryError type.
func (qe *QueryError) WithDetail(key string, value any) *QueryError {
	qe.baseError.WithDetail(key, value)
	return qe
}

// WithKey records which LUT key was being processed.
func (qe *QueryError) WithKey(key uint32) *QueryError {
	qe.key = key
	qe.hasKey = true
	return qe
}

// WithIID records which (domain, address) pair was involved.
func (qe *QueryError) WithIID(domain, address string) *QueryError {
	qe.domain = domain
	qe.address = address
	return qe
}

// WithSelector records a short description of the selector or query in play.
func (qe *QueryError) WithSelector(selector string) *QueryError {
	qe.selector = selector
	return qe
}

// Key returns the LUT key associated with the error, if any.
func (qe *QueryError) Key() (uint32, bool) { return qe.key, qe.hasKey }

// Domain returns the IID domain associated with the error, if any.
func (qe *QueryError) Domain() string { return qe.domain }

// Address returns the IID address associated with the error, if any.
func (qe *QueryError) Address() string { return qe.address }

// Selector returns the description of the selector or query in play.
func (qe *QueryError) Selector() string { return qe.selector }

// NewKeyNotFoundError reports that a requested key is not present in the LUT.
func NewKeyNotFoundError(key uint32) *QueryError {
	return NewQueryError(nil, ErrorCodeNotFound, "key not found").
		WithKey(key).
		WithSelector("keys")
}

// NewAddressNotFoundError reports that look_for found no matching IID.
func NewAddressNotFoundError(domain, address string) *QueryError {
	return NewQueryError(nil, ErrorCodeNotFound, "address not found").
		WithIID(domain, address).
		WithSelector("look_for")
}

// NewDuplicateIIDError reports that an add would violate the global
// (domain, address) uniqueness invariant.
func NewDuplicateIIDError(domain, address string) *QueryError {
	return NewQueryError(nil, ErrorCodeDuplicateIID, "duplicate (domain, address) pair").
		WithIID(domain, address)
}

// NewNotLoadedError reports that a query needed data the reader has not
// materialized and the caller forbade on-demand I/O (only_loaded=true).
func NewNotLoadedError(key uint32, selector string) *QueryError {
	return NewQueryError(nil, ErrorCodeNotLoaded, "required data is not loaded").
		WithKey(key).
		WithSelector(selector)
}
