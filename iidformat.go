// Package iidformat is the package-root facade over the iidformat file
// format: a memory-mapped reader (Open) for querying an existing file by
// fetch/look_for/at/region/filter/compute_overlap, and an in-memory builder
// (NewEntrySet) for assembling one from scratch and saving it (Save).
//
// Everything under internal/ does the real work; this file only wires a
// Config/Options pair to the right constructors and re-exports the types
// callers need so they don't have to reach into internal packages.
package iidformat

import (
	"github.com/aeaeaeaeaeae/iidformat/internal/engine"
	"github.com/aeaeaeaeaeae/iidformat/internal/entryset"
	"github.com/aeaeaeaeaeae/iidformat/internal/writer"
	"github.com/aeaeaeaeaeae/iidformat/pkg/filesys"
	"github.com/aeaeaeaeaeae/iidformat/pkg/logger"
	"github.com/aeaeaeaeaeae/iidformat/pkg/options"
	"github.com/aeaeaeaeaeae/iidformat/pkg/queryopts"
	"github.com/aeaeaeaeaeae/iidformat/pkg/region"
	"github.com/aeaeaeaeaeae/iidformat/pkg/selector"
)

// Re-exported so callers only need to import this package for the common
// path; pkg/selector, pkg/queryopts, and pkg/region remain available
// directly for the functional-option constructors themselves.
type (
	// Entry is a reader-facing view of one key's materialized state.
	Entry = engine.Entry
	// Edge is one member of a compute_overlap adjacency result.
	Edge = engine.Edge
	// FilterOptions narrows Filter to a group membership and/or area range.
	FilterOptions = engine.FilterOptions
	// Selector controls which keys and fields Fetch materializes.
	Selector = selector.Selector
	// SelectorOption configures a Selector; see pkg/selector.
	SelectorOption = selector.Option
	// QueryOptions controls the loaded-vs-fetch behavior of At/Region.
	QueryOptions = queryopts.Options
	// QueryOption configures a QueryOptions; see pkg/queryopts.
	QueryOption = queryopts.Option
	// BBox is an axis-aligned, half-open pixel rectangle.
	BBox = region.BBox
	// Segment is a decoded region mask for a single key.
	Segment = region.Segment
	// Option configures Open/Save/SaveAllowPartial; see pkg/options.
	Option = options.OptionFunc
)

// Reader is a memory-mapped, lazily-materializing view over one iidformat
// file. Its zero value is not usable; build one with Open.
type Reader struct {
	eng *engine.Reader
}

// Open maps path and decodes its header and LUT. The returned Reader holds
// the mapping until Close is called.
func Open(path string, opts ...options.OptionFunc) (*Reader, error) {
	cfg := buildOptions(opts)

	eng, err := engine.Open(&engine.Config{Path: path, Logger: cfg.Logger, StrictAreaCheck: cfg.StrictAreaCheck})
	if err != nil {
		return nil, err
	}

	if cfg.ValidateOnOpen {
		if _, ferr := eng.Fetch(selector.New(selector.Everything())); ferr != nil {
			_ = eng.Close()
			return nil, ferr
		}
	}

	return &Reader{eng: eng}, nil
}

// Meta returns the file's decoded metadata payload.
func (r *Reader) Meta() ([]byte, error) { return r.eng.Meta() }

// Fetch materializes the keys and fields sel describes, loading each on
// demand and returning the resulting entries.
func (r *Reader) Fetch(sel *selector.Selector) ([]*Entry, error) { return r.eng.Fetch(sel) }

// LookFor resolves a set of (domain, address) pairs to their entries,
// optionally constrained to a single domain.
func (r *Reader) LookFor(addresses [][]byte, domain []byte) ([]*Entry, error) {
	return r.eng.LookFor(addresses, domain)
}

// At returns every entry whose segment covers pixel (row, col), subject to
// opts. With queryopts.OnlyLoaded(), a key whose segment isn't already
// materialized fails the call with a pkg/errors NotLoaded error instead of
// being loaded or silently skipped.
func (r *Reader) At(row, col uint32, opts *queryopts.Options) ([]*Entry, error) {
	return r.eng.At(row, col, opts)
}

// Snapshot builds a Builder reflecting everything r has currently
// materialized, suitable for writing back out with SaveAllowPartial. Any key
// whose IID or segment was never fetched comes through incomplete, and the
// resulting Builder reports FullyLoaded false unless every key happened to
// already be fully loaded.
func (r *Reader) Snapshot() *Builder {
	return &Builder{set: r.eng.Snapshot()}
}

// Region returns every entry whose segment intersects bbox, subject to opts.
func (r *Reader) Region(bbox region.BBox, opts *queryopts.Options) ([]*Entry, error) {
	return r.eng.Region(bbox, opts)
}

// Filter narrows the already-loaded entries in memory by group membership
// and/or area bounds, without touching the file.
func (r *Reader) Filter(opts engine.FilterOptions) []*Entry { return r.eng.Filter(opts) }

// ComputeOverlap returns every pair of already-loaded keys whose segments
// share a set pixel.
func (r *Reader) ComputeOverlap() []engine.Edge { return r.eng.ComputeOverlap() }

// Close releases the memory mapping. It is an error to use the Reader
// afterward.
func (r *Reader) Close() error { return r.eng.Close() }

// Builder is the in-memory entry orchestrator used to assemble a new
// iidformat file. Build it with NewEntrySet, add entries with Add and
// AddToGroup, then call Save.
type Builder struct {
	set *entryset.EntrySet
}

// NewEntrySet returns an empty, fully-loaded Builder suitable for
// constructing a file from scratch.
func NewEntrySet() *Builder {
	return &Builder{set: entryset.New()}
}

// Add appends a new entry with the given IID and segment, assigning it the
// next dense key.
func (b *Builder) Add(domain, address []byte, seg region.Segment) (uint32, error) {
	e, err := b.set.Add(domain, address, seg)
	if err != nil {
		return 0, err
	}
	return e.Key, nil
}

// AddToGroup adds key to the named group.
func (b *Builder) AddToGroup(name string, key uint32) error { return b.set.AddToGroup(name, key) }

// Len returns the number of entries added so far.
func (b *Builder) Len() int { return b.set.Len() }

// MarkPartial flags b as built from an incomplete read, so Save refuses it
// until the caller opts in via SaveAllowPartial. Reader.Snapshot sets this
// automatically when it finds an unmaterialized key; callers assembling
// their own partial Builder by other means call it directly.
func (b *Builder) MarkPartial() { b.set.MarkPartial() }

// FullyLoaded reports whether b is still flagged fully loaded. It turns
// false once MarkPartial has been called, even on an empty Builder.
func (b *Builder) FullyLoaded() bool { return b.set.FullyLoaded() }

// Save writes the builder's entries to path along with an arbitrary
// JSON-serializable meta payload, refusing to save a set built from a
// partial read (see SaveAllowPartial).
func Save(path string, b *Builder, meta any, opts ...options.OptionFunc) error {
	cfg := buildOptions(opts)
	w, err := writer.New(&writer.Config{Logger: cfg.Logger})
	if err != nil {
		return err
	}
	return w.Save(path, b.set, meta)
}

// SaveAllowPartial is Save's counterpart for builders assembled from a
// partial read (typically via Reader.Snapshot): any entry whose IID or
// segment was never materialized is dropped, and the survivors are
// renumbered to dense keys with group membership remapped to match.
func SaveAllowPartial(path string, b *Builder, meta any, opts ...options.OptionFunc) error {
	cfg := buildOptions(opts)
	w, err := writer.New(&writer.Config{Logger: cfg.Logger})
	if err != nil {
		return err
	}
	return w.SaveAllowPartial(path, b.set, meta)
}

// Exists reports whether a file is already present at path, so callers can
// decide between Open and building a new Builder without relying on Open's
// error type.
func Exists(path string) (bool, error) { return filesys.Exists(path) }

func buildOptions(opts []options.OptionFunc) options.Options {
	cfg := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.New(cfg.ServiceName)
	}
	return cfg
}
