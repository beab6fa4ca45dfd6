package index

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/aeaeaeaeaeae/iidformat/pkg/codec"
)

// LoadState tracks, per key, which of a record's two on-demand pieces have
// actually been materialized into memory. Both the IID and the segment for a
// key are read off the mmap lazily, the first time some operation asks for
// them; this two-bit state is how the engine remembers what it has already
// paid the decode cost for.
type LoadState uint8

const (
	// IIDLoaded is set once a key's (domain, address) pair has been decoded
	// from the IID block.
	IIDLoaded LoadState = 1 << iota
	// SegLoaded is set once a key's segment record has been decoded from the
	// segment block.
	SegLoaded
)

// Has reports whether every bit in want is set in s.
func (s LoadState) Has(want LoadState) bool { return s&want == want }

// Entry is the in-memory record for one dense key: where its IID and segment
// live in the file (as buflocs copied straight from the LUT), whether each
// has been loaded yet, and — once loaded — the decoded values themselves.
type Entry struct {
	Key uint32

	IIDLoc codec.Bufloc
	SegLoc codec.Bufloc

	State LoadState

	Domain  []byte
	Address []byte

	// Seg holds the decoded segment record once SegLoaded is set. It is
	// stored as an opaque any so this package doesn't need to import
	// pkg/region / internal/format and invert the dependency graph; callers
	// (internal/engine) know the concrete type to assert back to.
	Seg any
}

// Table is the in-memory lookup structure built from a file's LUT block: a
// dense-key-indexed slice of Entry plus two secondary indexes — (domain,
// address) to key, and group name to member key list — that let the engine
// resolve look_for and group-scoped fetch without scanning.
type Table struct {
	log *zap.SugaredLogger

	mu      sync.RWMutex
	entries []*Entry           // indexed by key; keys are dense and contiguous from 0
	byIID   map[uint64][]uint32 // pkg/iid.IID.Hash() -> candidate keys sharing that hash
	groups  map[string][]uint32

	closed atomic.Bool
}

// Config encapsulates the configuration parameters required to initialize a Table.
type Config struct {
	Logger *zap.SugaredLogger
}
