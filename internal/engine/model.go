package engine

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/aeaeaeaeaeae/iidformat/internal/format"
	"github.com/aeaeaeaeaeae/iidformat/internal/index"
	"github.com/aeaeaeaeaeae/iidformat/internal/storage"
	"github.com/aeaeaeaeaeae/iidformat/pkg/region"
)

// Entry is a reader-facing view of one key's materialized state: the IID
// fields and the segment are nil/zero until fetched. When a fetch omits
// IIDs, an entry's IID fields stay null until a later fetch resolves them.
type Entry struct {
	Key uint32

	Domain    []byte
	Address   []byte
	IIDLoaded bool

	Seg       region.Segment
	SegLoaded bool
}

// Reader is the memory-mapped, lazily-materializing view over one iidformat
// file. It owns the mapping for its lifetime; Close releases it. A Reader
// is not safe for concurrent use without external synchronization: the
// per-key loaded-state bitset is mutated by fetch and read by queries, so
// callers exposing a Reader to multiple goroutines must serialize access.
type Reader struct {
	log *zap.SugaredLogger

	storage *storage.Storage
	table   *index.Table

	mu sync.Mutex

	meta []byte

	groupsHeaderLoaded bool
	groupSpans         map[string]format.GroupSpan
	groupKeyAreaOffset int64

	strictAreaCheck bool

	closed atomic.Bool
}

// Config encapsulates the configuration parameters required to open a Reader.
type Config struct {
	Path   string
	Logger *zap.SugaredLogger

	// StrictAreaCheck, when true, recomputes each fetched segment's set-bit
	// count against its stored area field and fails with a Corrupt error on
	// mismatch. Off by default: readers must not assume a file was written
	// by a conformant writer.
	StrictAreaCheck bool
}
