// Package queryopts implements the behavioral flags attached to individual
// reader queries: whether region() may trigger on-demand I/O, and
// whether rectangle-intersection tests use the cheap envelope-bbox check or
// the precise per-region mask check. Built with the same functional-options
// idiom as pkg/selector.
package queryopts

// Options is an immutable set of query behavior flags. The zero value (no
// options) means "may load on demand" and "precise intersection": only_loaded
// defaults false, and the caller must opt into the conservative bbox-only
// policy.
type Options struct {
	onlyLoaded   bool
	conservative bool
}

// Option configures an Options value under construction.
type Option func(*Options)

// New builds an Options from opts.
func New(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OnlyLoaded restricts region() to entries whose segments are already
// materialized, performing no I/O; at() with this flag fails with NotLoaded
// when a candidate's segment is not yet materialized.
func OnlyLoaded() Option {
	return func(o *Options) { o.onlyLoaded = true }
}

// Conservative restricts rectangle intersection to the segment's envelope
// bbox, skipping the per-region mask check, for callers who only need a
// cheap approximate test.
func Conservative() Option {
	return func(o *Options) { o.conservative = true }
}

// OnlyLoaded reports whether the only_loaded flag was set.
func (o *Options) OnlyLoaded() bool { return o.onlyLoaded }

// Conservative reports whether the conservative intersection flag was set.
func (o *Options) Conservative() bool { return o.conservative }
