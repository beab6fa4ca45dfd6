// Package engine implements the memory-mapped reader: it opens a file,
// validates its header, materializes the LUT eagerly, and
// exposes fetch/look_for/at/region/filter/compute_overlap as
// materialize-on-demand operations over internal/storage's byte ranges and
// internal/index's per-key loaded-state bitset. internal/format does the
// actual byte decoding; this package only decides what to decode and when.
package engine

import (
	stdErrors "errors"
	"sort"

	"go.uber.org/multierr"

	"github.com/aeaeaeaeaeae/iidformat/internal/entryset"
	"github.com/aeaeaeaeaeae/iidformat/internal/format"
	"github.com/aeaeaeaeaeae/iidformat/internal/index"
	"github.com/aeaeaeaeaeae/iidformat/internal/storage"
	"github.com/aeaeaeaeaeae/iidformat/pkg/codec"
	"github.com/aeaeaeaeaeae/iidformat/pkg/errors"
	"github.com/aeaeaeaeaeae/iidformat/pkg/queryopts"
	"github.com/aeaeaeaeaeae/iidformat/pkg/region"
	"github.com/aeaeaeaeaeae/iidformat/pkg/selector"
)

var ErrReaderClosed = stdErrors.New("operation failed: cannot access closed reader")

// Open maps the file at config.Path, validates its header, and materializes
// the LUT. Groups and the metadata payload are decoded
// lazily, on the first fetch/Meta call that needs them, so opening a file
// never reads more than the header and LUT.
func Open(config *Config) (*Reader, error) {
	if config == nil || config.Path == "" || config.Logger == nil {
		return nil, errors.NewIOError(nil, "engine: path and logger are required")
	}

	st, err := storage.Open(&storage.Config{Path: config.Path, Logger: config.Logger})
	if err != nil {
		return nil, err
	}

	lutBuf, err := st.ReadAbsolute(st.Header().LUT)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	lutRecords, err := format.DecodeLUT(lutBuf)
	if err != nil {
		_ = st.Close()
		return nil, errors.NewCorruptError(config.Path, "lut", err.Error())
	}

	table, err := index.New(&index.Config{Logger: config.Logger}, lutRecords, nil)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	config.Logger.Infow("reader opened", "path", config.Path, "keys", len(lutRecords))
	return &Reader{log: config.Logger, storage: st, table: table, strictAreaCheck: config.StrictAreaCheck}, nil
}

// Meta decodes and returns the file's opaque metadata payload bytes,
// reading the block on first call and caching it thereafter.
func (r *Reader) Meta() ([]byte, error) {
	if r.closed.Load() {
		return nil, ErrReaderClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.meta != nil {
		return r.meta, nil
	}
	buf, err := r.storage.ReadAbsolute(r.storage.Header().Meta)
	if err != nil {
		return nil, err
	}
	payload, err := format.DecodeMeta(buf)
	if err != nil {
		return nil, errors.NewCorruptError(r.storage.Path(), "meta", err.Error())
	}
	r.meta = payload
	return r.meta, nil
}

// ensureGroupsHeader decodes the groups block's header_len-prefixed JSON
// span map, without touching any group's key array, the first time it's
// needed.
func (r *Reader) ensureGroupsHeader() error {
	if r.groupsHeaderLoaded {
		return nil
	}

	groupsLoc := r.storage.Header().Groups
	if groupsLoc.Length < 4 {
		r.groupSpans = map[string]format.GroupSpan{}
		r.groupKeyAreaOffset = int64(groupsLoc.Offset)
		r.groupsHeaderLoaded = true
		return nil
	}

	prefix, err := r.storage.ReadAbsolute(codec.Bufloc{Offset: groupsLoc.Offset, Length: 4})
	if err != nil {
		return err
	}
	headerLen := codec.U32(prefix)

	full, err := r.storage.ReadAbsolute(codec.Bufloc{Offset: groupsLoc.Offset, Length: 4 + headerLen})
	if err != nil {
		return err
	}
	spans, hdrSize, err := format.DecodeGroupsHeader(full)
	if err != nil {
		return errors.NewCorruptError(r.storage.Path(), "groups", err.Error())
	}

	r.groupSpans = spans
	r.groupKeyAreaOffset = int64(groupsLoc.Offset) + int64(hdrSize)
	r.groupsHeaderLoaded = true
	return nil
}

// ensureGroupLoaded decodes the named group's key array from its span, if
// it hasn't been loaded into the index table yet.
func (r *Reader) ensureGroupLoaded(name string) error {
	if err := r.ensureGroupsHeader(); err != nil {
		return err
	}
	if _, ok := r.table.GroupKeys(name); ok {
		return nil
	}
	span, ok := r.groupSpans[name]
	if !ok {
		return errors.NewQueryError(nil, errors.ErrorCodeNotFound, "group not found").WithSelector("groups").WithDetail("group", name)
	}

	abs := r.groupKeyAreaOffset + int64(span.Offset)
	buf, err := r.storage.ReadAbsolute(codec.Bufloc{Offset: uint32(abs), Length: span.Count * 4})
	if err != nil {
		return err
	}
	keys, err := format.DecodeGroupKeys(buf, span.Count)
	if err != nil {
		return errors.NewCorruptError(r.storage.Path(), "groups", err.Error())
	}
	r.table.SetGroupKeys(name, keys)
	return nil
}

func (r *Reader) loadIID(e *index.Entry) error {
	if e.State.Has(index.IIDLoaded) {
		return nil
	}
	buf, err := r.storage.ReadIID(e.IIDLoc)
	if err != nil {
		return err
	}
	rec, _, err := format.DecodeIIDRecord(buf)
	if err != nil {
		return errors.NewCorruptError(r.storage.Path(), "iids", err.Error())
	}
	if rec.Key != e.Key {
		return errors.NewCorruptError(r.storage.Path(), "iids", "IID record key does not match LUT key")
	}
	return r.table.SetIID(e.Key, rec.Domain, rec.Address)
}

func (r *Reader) loadSeg(e *index.Entry) error {
	if e.State.Has(index.SegLoaded) {
		return nil
	}
	buf, err := r.storage.ReadAbsolute(e.SegLoc)
	if err != nil {
		return err
	}
	rec, _, err := format.DecodeSegmentRecord(buf)
	if err != nil {
		return errors.NewCorruptError(r.storage.Path(), "segs", err.Error())
	}
	if rec.Key != e.Key {
		return errors.NewCorruptError(r.storage.Path(), "segs", "segment record key does not match LUT key")
	}
	seg := region.FromParts(rec.Box, rec.Area, rec.Regions)
	if r.strictAreaCheck {
		if err := seg.Validate(true); err != nil {
			return errors.NewCorruptError(r.storage.Path(), "segs", err.Error()).WithDetail("key", e.Key)
		}
	}
	return r.table.SetSeg(e.Key, seg)
}

// Fetch materializes IIDs and/or segments for the keys sel selects,
// returning the resulting entry views. Repeated calls are additive: a key
// whose IID or segment was already loaded is not re-decoded.
func (r *Reader) Fetch(sel *selector.Selector) ([]*Entry, error) {
	if r.closed.Load() {
		return nil, ErrReaderClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var keys []uint32
	wantIIDs, wantSegs := sel.WantIIDs(), sel.WantSegs()

	switch {
	case sel.Everything():
		keys = r.table.Keys()
		wantIIDs, wantSegs = true, true
	case sel.AllKeys():
		keys = r.table.Keys()
	default:
		keySet := make(map[uint32]struct{})
		for _, k := range sel.ExplicitKeys() {
			keySet[k] = struct{}{}
		}
		for _, name := range sel.GroupNames() {
			if err := r.ensureGroupLoaded(name); err != nil {
				return nil, err
			}
			gk, _ := r.table.GroupKeys(name)
			for _, k := range gk {
				keySet[k] = struct{}{}
			}
		}
		keys = make([]uint32, 0, len(keySet))
		for k := range keySet {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	}

	out := make([]*Entry, 0, len(keys))
	for _, k := range keys {
		e, ok := r.table.Get(k)
		if !ok {
			return nil, errors.NewKeyNotFoundError(k)
		}
		if wantIIDs {
			if err := r.loadIID(e); err != nil {
				return nil, err
			}
		}
		if wantSegs {
			if err := r.loadSeg(e); err != nil {
				return nil, err
			}
		}
		out = append(out, toEntry(e))
	}
	return out, nil
}

// LookFor resolves addresses to entries, optionally constrained to a single
// domain. It loads every key's IID first if any are missing. When domain is
// given, each address is resolved with a single index.Table.LookupByIID
// call against the (domain, address) hash index instead of a scan; an
// address-only search (domain == nil) has no single pair to hash against
// and falls back to scanning every loaded IID.
func (r *Reader) LookFor(addresses [][]byte, domain []byte) ([]*Entry, error) {
	if _, err := r.Fetch(selector.New(selector.AllKeys(), selector.WithSegs(false))); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if domain != nil {
		var out []*Entry
		for _, addr := range addresses {
			key, ok := r.table.LookupByIID(domain, addr)
			if !ok {
				continue
			}
			e, _ := r.table.Get(key)
			out = append(out, toEntry(e))
		}
		return out, nil
	}

	want := make(map[string]struct{}, len(addresses))
	for _, a := range addresses {
		want[string(a)] = struct{}{}
	}

	var out []*Entry
	for _, k := range r.table.Keys() {
		e, _ := r.table.Get(k)
		if !e.State.Has(index.IIDLoaded) {
			continue
		}
		if _, ok := want[string(e.Address)]; !ok {
			continue
		}
		out = append(out, toEntry(e))
	}
	return out, nil
}

// At returns every entry whose segment covers pixel (row, col). With
// queryopts.OnlyLoaded(), only already-materialized segments are considered
// and no I/O is performed; an unmaterialized key is a candidate whose
// envelope isn't known yet, so it surfaces as a NotLoaded error rather than
// being silently skipped or silently loaded. Without OnlyLoaded, segment
// records are loaded on demand for every key first, so every candidate is
// resolved to a real containment test.
func (r *Reader) At(row, col uint32, opts *queryopts.Options) ([]*Entry, error) {
	if opts == nil {
		opts = queryopts.New()
	}

	if !opts.OnlyLoaded() {
		if _, err := r.Fetch(selector.New(selector.AllKeys(), selector.WithIIDs(false))); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Entry
	for _, k := range r.table.Keys() {
		e, _ := r.table.Get(k)
		seg, ok := e.Seg.(region.Segment)
		if !ok {
			if opts.OnlyLoaded() {
				return nil, errors.NewNotLoadedError(k, "at")
			}
			continue
		}
		if seg.PointIn(row, col) {
			out = append(out, toEntry(e))
		}
	}
	return out, nil
}

// Region returns every entry whose segment intersects bbox. With
// queryopts.OnlyLoaded(), only already-materialized segments are considered
// and no I/O is performed; otherwise segments are loaded on demand for every
// key. queryopts.Conservative() restricts the intersection
// test to envelope-bbox overlap instead of the precise per-region check.
func (r *Reader) Region(bbox region.BBox, opts *queryopts.Options) ([]*Entry, error) {
	if opts == nil {
		opts = queryopts.New()
	}

	if !opts.OnlyLoaded() {
		if _, err := r.Fetch(selector.New(selector.AllKeys(), selector.WithIIDs(false))); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Entry
	for _, k := range r.table.Keys() {
		e, _ := r.table.Get(k)
		seg, ok := e.Seg.(region.Segment)
		if !ok {
			continue
		}
		if seg.IntersectsRect(bbox, opts.Conservative()) {
			out = append(out, toEntry(e))
		}
	}
	return out, nil
}

// FilterOptions configures Filter's in-memory predicate over currently
// loaded entries. An entry with an unresolved attribute is excluded rather
// than matched by default.
type FilterOptions struct {
	// Groups, if non-empty, restricts results to entries belonging to any of
	// the named groups. A group that hasn't been loaded yet excludes every
	// entry rather than triggering I/O.
	Groups []string
	// AreaMin/AreaMax, if non-nil, restrict results to entries whose
	// segment area falls in [AreaMin, AreaMax]. An entry whose segment isn't
	// loaded is excluded.
	AreaMin *uint32
	AreaMax *uint32
}

// Filter applies opts over every currently loaded entry, performing no I/O.
func (r *Reader) Filter(opts FilterOptions) []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var groupKeys map[uint32]struct{}
	if len(opts.Groups) > 0 {
		groupKeys = make(map[uint32]struct{})
		for _, name := range opts.Groups {
			keys, loaded := r.table.GroupKeys(name)
			if !loaded {
				continue
			}
			for _, k := range keys {
				groupKeys[k] = struct{}{}
			}
		}
	}

	var out []*Entry
	for _, k := range r.table.Keys() {
		e, _ := r.table.Get(k)

		if groupKeys != nil {
			if _, ok := groupKeys[k]; !ok {
				continue
			}
		}

		if opts.AreaMin != nil || opts.AreaMax != nil {
			seg, ok := e.Seg.(region.Segment)
			if !ok {
				continue
			}
			if opts.AreaMin != nil && seg.Area < *opts.AreaMin {
				continue
			}
			if opts.AreaMax != nil && seg.Area > *opts.AreaMax {
				continue
			}
		}

		out = append(out, toEntry(e))
	}
	return out
}

// Edge is one edge of the overlap graph ComputeOverlap produces: the two
// keys share at least one set pixel.
type Edge struct {
	A, B uint32
}

// ComputeOverlap builds the pairwise overlap graph over every currently
// loaded segment: edge (a, b) exists iff a and b share at least one set
// pixel. It performs no I/O; segments that aren't loaded are
// simply absent from the graph.
func (r *Reader) ComputeOverlap() []Edge {
	r.mu.Lock()
	defer r.mu.Unlock()

	type loaded struct {
		key uint32
		seg region.Segment
	}
	var segs []loaded
	for _, k := range r.table.Keys() {
		e, _ := r.table.Get(k)
		if seg, ok := e.Seg.(region.Segment); ok {
			segs = append(segs, loaded{key: k, seg: seg})
		}
	}

	var edges []Edge
	for i := 0; i < len(segs); i++ {
		for j := i + 1; j < len(segs); j++ {
			if segs[i].seg.SharesSetPixel(segs[j].seg) {
				edges = append(edges, Edge{A: segs[i].key, B: segs[j].key})
			}
		}
	}
	return edges
}

// Snapshot builds an in-memory entry set reflecting everything this reader
// has materialized so far. A key whose IID or segment was never fetched
// comes through with that piece missing rather than being left out, and the
// resulting set is marked partial (entryset.EntrySet.FullyLoaded reports
// false) unless every key's both pieces happened to already be loaded.
// Writing such a set back out via writer.Writer.SaveAllowPartial drops the
// keys whose IID or segment was never fetched.
func (r *Reader) Snapshot() *entryset.EntrySet {
	r.mu.Lock()
	defer r.mu.Unlock()

	es := entryset.New()
	for _, k := range r.table.Keys() {
		e, _ := r.table.Get(k)
		var seg region.Segment
		segLoaded := e.State.Has(index.SegLoaded)
		if segLoaded {
			seg, _ = e.Seg.(region.Segment)
		}
		es.AddPartial(e.Domain, e.Address, e.State.Has(index.IIDLoaded), seg, segLoaded)
	}
	for _, name := range r.table.GroupNames() {
		keys, ok := r.table.GroupKeys(name)
		if !ok {
			continue
		}
		for _, k := range keys {
			_ = es.AddToGroup(name, k)
		}
	}
	return es
}

// Close releases the reader's memory mapping and in-memory index table. It
// is safe to call once; a second call returns ErrReaderClosed. Failures from
// the two underlying Close calls are combined rather than one shadowing the
// other.
func (r *Reader) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return ErrReaderClosed
	}
	tableErr := r.table.Close()
	storageErr := r.storage.Close()
	if err := multierr.Combine(tableErr, storageErr); err != nil {
		r.log.Warnw("closing reader", "error", err)
		return err
	}
	return nil
}

func toEntry(e *index.Entry) *Entry {
	out := &Entry{Key: e.Key, Domain: e.Domain, Address: e.Address, IIDLoaded: e.State.Has(index.IIDLoaded)}
	if seg, ok := e.Seg.(region.Segment); ok {
		out.Seg = seg
		out.SegLoaded = true
	}
	return out
}
