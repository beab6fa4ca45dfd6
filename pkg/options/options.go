// Package options provides functional options for configuring how an
// iidformat file is opened or written: which logger to use, what service
// name it logs under, and whether Open should eagerly validate the file
// beyond the header/LUT bounds check internal/storage already performs.
package options

import (
	"strings"

	"go.uber.org/zap"
)

// Options holds the configuration applied when opening a reader or
// constructing a writer.
type Options struct {
	// Logger receives structured events for the open/save lifecycle. If nil,
	// a default logger is built from ServiceName.
	Logger *zap.SugaredLogger `json:"-"`

	// ServiceName is the "component" field attached to log lines when Logger
	// is not explicitly supplied.
	//
	// Default: "iidformat"
	ServiceName string `json:"serviceName"`

	// ValidateOnOpen, when true, asks Open to eagerly decode every key's
	// IID and segment once up front instead of lazily on
	// first fetch, trading the format's lazy-materialization guarantee for
	// an early integrity check. Most callers should leave this false.
	//
	// Default: false
	ValidateOnOpen bool `json:"validateOnOpen"`

	// StrictAreaCheck, when true, recomputes each fetched segment's set-bit
	// count against its stored area field and fails the fetch on mismatch.
	//
	// Default: false
	StrictAreaCheck bool `json:"strictAreaCheck"`
}

// OptionFunc mutates an Options value in place.
type OptionFunc func(*Options)

// WithDefaultOptions resets Options to the values NewDefaultOptions returns.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		opts := NewDefaultOptions()
		o.Logger = opts.Logger
		o.ServiceName = opts.ServiceName
		o.ValidateOnOpen = opts.ValidateOnOpen
		o.StrictAreaCheck = opts.StrictAreaCheck
	}
}

// WithLogger overrides the logger used for this instance. Passing nil is a
// no-op; use WithServiceName to change the default logger's component name
// instead.
func WithLogger(logger *zap.SugaredLogger) OptionFunc {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithServiceName sets the component name a default logger is tagged with.
// Ignored once a Logger has been set explicitly via WithLogger.
func WithServiceName(name string) OptionFunc {
	return func(o *Options) {
		name = strings.TrimSpace(name)
		if name != "" {
			o.ServiceName = name
		}
	}
}

// WithValidateOnOpen toggles eager validation of every block at Open time.
func WithValidateOnOpen(validate bool) OptionFunc {
	return func(o *Options) {
		o.ValidateOnOpen = validate
	}
}

// WithStrictAreaCheck toggles recomputing each fetched segment's bit count
// against its stored area field.
func WithStrictAreaCheck(strict bool) OptionFunc {
	return func(o *Options) {
		o.StrictAreaCheck = strict
	}
}
