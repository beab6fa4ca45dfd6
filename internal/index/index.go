// Package index builds and serves the in-memory lookup table backing a
// reader: a dense array of Entry records keyed by the file's LUT, a
// secondary (domain, address) index for look_for, and a group-name
// index for group-scoped fetch. Nothing here touches the file directly —
// internal/storage resolves buflocs into bytes, internal/format decodes
// those bytes into records, and this package only tracks which records exist
// and which of them have been decoded so far.
package index

import (
	stdErrors "errors"
	"fmt"

	"github.com/aeaeaeaeaeae/iidformat/internal/format"
	"github.com/aeaeaeaeaeae/iidformat/pkg/errors"
	"github.com/aeaeaeaeaeae/iidformat/pkg/iid"
)

var ErrTableClosed = stdErrors.New("operation failed: cannot access closed index table")

// New builds a Table from a decoded LUT and groups block. Every key present
// in records gets an Entry; groups is copied verbatim into the group index.
// No IID or segment is decoded at this point — New is intentionally cheap,
// so callers only pay for what they actually fetch.
func New(config *Config, records []format.LUTRecord, groups map[string][]uint32) (*Table, error) {
	if config == nil || config.Logger == nil {
		return nil, errors.NewQueryError(nil, errors.ErrorCodeInternal, "index: logger is required")
	}

	entries := make([]*Entry, len(records))
	for i, rec := range records {
		if int(rec.Key) != i {
			return nil, errors.NewCorruptError("", "lut", fmt.Sprintf(
				"LUT record %d declares key %d; keys must be dense starting at 0", i, rec.Key,
			))
		}
		entries[i] = &Entry{Key: rec.Key, IIDLoc: rec.IID, SegLoc: rec.Seg}
	}

	groupsCopy := make(map[string][]uint32, len(groups))
	for name, keys := range groups {
		cp := make([]uint32, len(keys))
		copy(cp, keys)
		groupsCopy[name] = cp
	}

	return &Table{
		log:     config.Logger,
		entries: entries,
		byIID:   make(map[uint64][]uint32, len(entries)),
		groups:  groupsCopy,
	}, nil
}

// Len returns the number of keys in the table.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Get returns the Entry for key, or (nil, false) if key is out of range.
func (t *Table) Get(key uint32) (*Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(key) >= len(t.entries) {
		return nil, false
	}
	return t.entries[key], true
}

// Keys returns every dense key in the table, in key order.
func (t *Table) Keys() []uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]uint32, len(t.entries))
	for i := range t.entries {
		keys[i] = uint32(i)
	}
	return keys
}

// GroupKeys returns the member keys of the named group. ok is false both
// when the name doesn't exist and when it exists but hasn't been loaded yet
// via SetGroupKeys; the table itself cannot tell those two cases apart.
func (t *Table) GroupKeys(name string) ([]uint32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys, ok := t.groups[name]
	return keys, ok
}

// SetGroupKeys records the member keys of the named group, as decoded
// on-demand from the group's key-array span. New only fills group
// membership from its own groups argument, which the engine passes as nil,
// so a group-scoped fetch only pays for the groups it actually asked for.
func (t *Table) SetGroupKeys(name string, keys []uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.groups[name] = keys
}

// GroupNames returns every group name known to the table.
func (t *Table) GroupNames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.groups))
	for name := range t.groups {
		names = append(names, name)
	}
	return names
}

// SetIID records the decoded (domain, address) pair for key and indexes it
// for LookupByIID, marking the entry's IIDLoaded bit. It is an error
// (ErrorCodeDuplicateIID) for two different keys to carry the same
// (domain, address) pair. Candidates sharing a hash bucket are confirmed
// with Equal before being treated as the same pair, since a hash collision
// alone never proves equality.
func (t *Table) SetIID(key uint32, domain, address []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if int(key) >= len(t.entries) {
		return errors.NewKeyNotFoundError(key)
	}

	id := iid.New(domain, address)
	h := id.Hash()
	for _, k := range t.byIID[h] {
		if k == key {
			continue
		}
		existing := t.entries[k]
		if id.Equal(iid.New(existing.Domain, existing.Address)) {
			return errors.NewDuplicateIIDError(string(domain), string(address))
		}
	}

	e := t.entries[key]
	e.Domain = domain
	e.Address = address
	e.State |= IIDLoaded
	t.byIID[h] = append(t.byIID[h], key)
	return nil
}

// SetSeg records the decoded segment for key and marks the entry's
// SegLoaded bit.
func (t *Table) SetSeg(key uint32, seg any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if int(key) >= len(t.entries) {
		return errors.NewKeyNotFoundError(key)
	}
	e := t.entries[key]
	e.Seg = seg
	e.State |= SegLoaded
	return nil
}

// LookupByIID resolves a (domain, address) pair to its key, the mechanism
// behind look_for. It only finds keys whose IID has already been loaded; the
// engine is responsible for loading every IID up front when an index built
// from look_for is required. Hash-bucket candidates are confirmed with
// Equal before being returned as a match.
func (t *Table) LookupByIID(domain, address []byte) (uint32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	id := iid.New(domain, address)
	for _, key := range t.byIID[id.Hash()] {
		e := t.entries[key]
		if id.Equal(iid.New(e.Domain, e.Address)) {
			return key, true
		}
	}
	return 0, false
}

// Close releases the table's backing storage. It is safe to call once; a
// second call returns ErrTableClosed.
func (t *Table) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return ErrTableClosed
	}

	t.log.Infow("closing index table", "keys", len(t.entries))

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
	clear(t.byIID)
	t.byIID = nil
	clear(t.groups)
	t.groups = nil

	return nil
}
