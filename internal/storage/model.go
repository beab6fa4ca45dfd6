package storage

import (
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/exp/mmap"

	"github.com/aeaeaeaeaeae/iidformat/internal/format"
)

// Storage memory-maps a single iidformat file and serves byte ranges out of
// it on demand. It knows the file's header and therefore the absolute
// location of every block, but decoding those bytes into records is
// internal/format's job, not this package's — Storage only ever hands back
// []byte.
type Storage struct {
	path   string
	size   int64
	header format.Header

	reader *mmap.ReaderAt
	log    *zap.SugaredLogger

	closed atomic.Bool
}

// Config encapsulates the configuration parameters required to open a Storage.
type Config struct {
	Path   string
	Logger *zap.SugaredLogger
}
