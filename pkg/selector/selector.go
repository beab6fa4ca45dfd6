// Package selector implements the fetch selector configuration value: which
// keys an open reader should materialize, and which of their two
// lazily-loaded pieces (IID bytes, segment record) to bring in. Selectors
// are built with the functional-options pattern, the same idiom used
// elsewhere in this module for a tuning-knobs Options type — here applied
// to a fetch request instead.
package selector

// Selector is an immutable fetch configuration. Use New with one or more
// Option values to build one; the zero Selector (no options) selects no
// keys and is a valid, if useless, request.
type Selector struct {
	everything bool
	allKeys    bool
	keys       []uint32
	groups     []string
	iids       bool
	segs       bool
}

// Option configures a Selector under construction.
type Option func(*Selector)

// New builds a Selector from opts. iids and segs default to true, so
// callers only need WithIIDs(false)/WithSegs(false) to opt out, not both
// flags to opt in.
func New(opts ...Option) *Selector {
	s := &Selector{iids: true, segs: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Everything selects every key in the file with both IIDs and segments
// materialized, equivalent to AllKeys() with both flags left at their
// default of true.
func Everything() Option {
	return func(s *Selector) { s.everything = true }
}

// AllKeys selects every key in the file, subject to the iids/segs flags.
func AllKeys() Option {
	return func(s *Selector) { s.allKeys = true }
}

// Keys adds an explicit list of keys to the selection. Selections are
// additive across repeated options and across separate Selector values
// applied to the same reader.
func Keys(keys ...uint32) Option {
	return func(s *Selector) { s.keys = append(s.keys, keys...) }
}

// Groups adds the union of the named groups' member keys to the selection.
func Groups(names ...string) Option {
	return func(s *Selector) { s.groups = append(s.groups, names...) }
}

// WithIIDs overrides whether IID bytes are materialized for selected keys.
func WithIIDs(v bool) Option {
	return func(s *Selector) { s.iids = v }
}

// WithSegs overrides whether segment records are materialized for selected keys.
func WithSegs(v bool) Option {
	return func(s *Selector) { s.segs = v }
}

// Everything reports whether the everything option was given.
func (s *Selector) Everything() bool { return s.everything }

// AllKeys reports whether the all_keys option was given.
func (s *Selector) AllKeys() bool { return s.allKeys }

// ExplicitKeys returns the explicit key list, if any.
func (s *Selector) ExplicitKeys() []uint32 { return s.keys }

// GroupNames returns the group names to union, if any.
func (s *Selector) GroupNames() []string { return s.groups }

// WantIIDs reports whether IID bytes should be materialized.
func (s *Selector) WantIIDs() bool { return s.iids }

// WantSegs reports whether segment records should be materialized.
func (s *Selector) WantSegs() bool { return s.segs }
