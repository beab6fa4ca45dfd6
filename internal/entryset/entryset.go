// Package entryset implements the in-memory entry orchestrator: a growable
// collection of entries keyed densely from 0 in creation order, enforcing
// the global (domain, address) uniqueness invariant and tracking group
// membership. internal/writer consumes an EntrySet to produce a file;
// internal/engine produces one when a reader is asked to round-trip what
// it has loaded back to disk.
package entryset

import (
	"sort"
	"sync"

	"github.com/aeaeaeaeaeae/iidformat/pkg/errors"
	"github.com/aeaeaeaeaeae/iidformat/pkg/iid"
	"github.com/aeaeaeaeaeae/iidformat/pkg/region"
)

// Entry is one in-memory (IID, segment) pair awaiting a key assignment or
// already holding one. IIDLoaded/SegLoaded track which of the two pieces
// are actually present: a set built from a full in-memory construction
// (Add) always carries both; a set built from a reader snapshot (AddPartial)
// may carry either piece unset when the reader never fetched it.
type Entry struct {
	Key       uint32
	Domain    []byte
	Address   []byte
	IIDLoaded bool
	Seg       region.Segment
	SegLoaded bool
}

// EntrySet is the mutable collection entries are added to. It is safe for
// concurrent use.
type EntrySet struct {
	mu      sync.Mutex
	entries []*Entry
	byIID   map[uint64][]uint32 // pkg/iid.IID.Hash() -> candidate keys sharing that hash
	groups  map[string]map[uint32]struct{}

	// fullyLoaded is false whenever this EntrySet was populated from a
	// partial read: a reader that only materialized some entries must not
	// silently lose the rest on save.
	fullyLoaded bool
}

// New returns an empty, fully-loaded EntrySet, suitable for building a new
// file from scratch.
func New() *EntrySet {
	return &EntrySet{
		byIID:       make(map[uint64][]uint32),
		groups:      make(map[string]map[uint32]struct{}),
		fullyLoaded: true,
	}
}

// MarkPartial flags the set as built from an incomplete read, so the writer
// refuses to save it unless the caller opts into a partial save.
func (es *EntrySet) MarkPartial() {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.fullyLoaded = false
}

// FullyLoaded reports whether the set is still flagged fully loaded. It
// turns false once MarkPartial has been called, even on an empty set, or
// once an entry missing its IID or segment has been added.
func (es *EntrySet) FullyLoaded() bool {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.fullyLoaded
}

// Add appends a new entry with the given IID and segment, assigning it the
// next dense key. It fails with ErrorCodeDuplicateIID if (domain, address)
// already exists in the set. Both pieces are fully materialized by
// construction, so the resulting entry never needs AddPartial's load-state
// tracking.
func (es *EntrySet) Add(domain, address []byte, seg region.Segment) (*Entry, error) {
	es.mu.Lock()
	defer es.mu.Unlock()

	id := iid.New(domain, address)
	h := id.Hash()
	for _, k := range es.byIID[h] {
		if id.Equal(iid.New(es.entries[k].Domain, es.entries[k].Address)) {
			return nil, errors.NewDuplicateIIDError(string(domain), string(address))
		}
	}

	e := &Entry{
		Key: uint32(len(es.entries)), Domain: domain, Address: address,
		IIDLoaded: true, Seg: seg, SegLoaded: true,
	}
	es.entries = append(es.entries, e)
	es.byIID[h] = append(es.byIID[h], e.Key)
	return e, nil
}

// AddPartial appends an entry built from a reader's current state rather
// than a fresh construction: either piece may not have been loaded yet. It
// is how internal/engine's Reader.Snapshot turns what it has materialized
// so far back into a set the writer can consume. Unlike Add it does not
// enforce uniqueness when the IID hasn't been loaded — an unmaterialized
// domain/address isn't a real value to conflict with — and it marks the
// owning set partial the moment any entry carries a missing piece.
func (es *EntrySet) AddPartial(domain, address []byte, iidLoaded bool, seg region.Segment, segLoaded bool) *Entry {
	es.mu.Lock()
	defer es.mu.Unlock()

	e := &Entry{
		Key: uint32(len(es.entries)), Domain: domain, Address: address,
		IIDLoaded: iidLoaded, Seg: seg, SegLoaded: segLoaded,
	}
	es.entries = append(es.entries, e)
	if iidLoaded {
		h := iid.New(domain, address).Hash()
		es.byIID[h] = append(es.byIID[h], e.Key)
	}
	if !iidLoaded || !segLoaded {
		es.fullyLoaded = false
	}
	return e
}

// AddToGroup adds key to the named group. It is not an error to call this
// more than once for the same (name, key) pair.
func (es *EntrySet) AddToGroup(name string, key uint32) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	if int(key) >= len(es.entries) {
		return errors.NewKeyNotFoundError(key)
	}
	members, ok := es.groups[name]
	if !ok {
		members = make(map[uint32]struct{})
		es.groups[name] = members
	}
	members[key] = struct{}{}
	return nil
}

// Entries returns every entry in key order.
func (es *EntrySet) Entries() []*Entry {
	es.mu.Lock()
	defer es.mu.Unlock()
	out := make([]*Entry, len(es.entries))
	copy(out, es.entries)
	return out
}

// Len returns the number of entries in the set.
func (es *EntrySet) Len() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return len(es.entries)
}

// Groups returns each group name mapped to its member keys, sorted by key
// within each group.
func (es *EntrySet) Groups() map[string][]uint32 {
	es.mu.Lock()
	defer es.mu.Unlock()

	out := make(map[string][]uint32, len(es.groups))
	for name, members := range es.groups {
		keys := make([]uint32, 0, len(members))
		for k := range members {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		out[name] = keys
	}
	return out
}
