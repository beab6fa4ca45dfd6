// Package storage memory-maps an iidformat file and resolves buflocs into
// byte slices. It owns the one piece of file-layout knowledge that doesn't
// belong in internal/format: which buflocs are file-absolute and which (the
// IID block's per-record buflocs) are relative to a block's own
// start, and it applies that fixup before any read reaches the caller.
//
// Mapping is done through golang.org/x/exp/mmap rather than a raw
// golang.org/x/sys/unix.Mmap call so the same code runs unmodified on every
// platform the Go toolchain targets; the tradeoff is that reads go through
// ReadAt instead of indexing a []byte directly, which this package accepts
// since every block is read in full exactly once per access anyway.
package storage

import (
	stdErrors "errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/exp/mmap"

	"github.com/aeaeaeaeaeae/iidformat/internal/format"
	"github.com/aeaeaeaeaeae/iidformat/pkg/codec"
	"github.com/aeaeaeaeaeae/iidformat/pkg/errors"
)

var ErrStorageClosed = stdErrors.New("operation failed: cannot access closed storage")

// Open memory-maps the file at path and decodes its header. It validates
// that every block bufloc the header declares actually fits within the
// file; a file that passes Open is guaranteed to have a structurally sound
// header, though individual blocks may still fail to decode later.
func Open(config *Config) (*Storage, error) {
	if config == nil || config.Path == "" || config.Logger == nil {
		return nil, errors.NewIOError(nil, "storage: path and logger are required")
	}

	config.Logger.Infow("opening iidformat file", "path", config.Path)

	reader, err := mmap.Open(config.Path)
	if err != nil {
		return nil, errors.NewOpenError(err, config.Path)
	}

	size := reader.Len()
	if int64(size) < int64(format.HeaderSize) {
		_ = reader.Close()
		return nil, errors.NewTruncatedError(config.Path, "header", 0, int64(format.HeaderSize), int64(size))
	}

	headBuf := make([]byte, format.HeaderSize)
	if _, err := reader.ReadAt(headBuf, 0); err != nil {
		_ = reader.Close()
		return nil, errors.NewIOError(err, "storage: reading header").WithPath(config.Path).WithOp("read")
	}

	header, err := format.DecodeHeader(headBuf)
	if err != nil {
		_ = reader.Close()
		var bad *format.BadVersionErr
		if stdErrors.As(err, &bad) {
			return nil, errors.NewBadVersionError(config.Path, bad.Got, bad.Want)
		}
		return nil, errors.NewFormatError(err, errors.ErrorCodeCorrupt, "storage: decoding header").WithPath(config.Path).WithBlock("header")
	}

	s := &Storage{path: config.Path, size: int64(size), header: header, reader: reader, log: config.Logger}
	for name, loc := range map[string]codec.Bufloc{
		"lut": header.LUT, "iids": header.IIDs, "meta": header.Meta, "groups": header.Groups, "segs": header.Segs,
	} {
		end := int64(loc.Offset) + int64(loc.Length)
		if end > s.size {
			_ = reader.Close()
			return nil, errors.NewTruncatedError(config.Path, name, int64(loc.Offset), end, s.size)
		}
	}

	config.Logger.Infow("iidformat file opened", "path", config.Path, "size", s.size, "version", header.Version)
	return s, nil
}

// Header returns the file's decoded header.
func (s *Storage) Header() format.Header { return s.header }

// Size returns the total size of the mapped file in bytes.
func (s *Storage) Size() int64 { return s.size }

// Path returns the path the storage was opened from.
func (s *Storage) Path() string { return s.path }

// ReadAbsolute reads loc as a file-absolute bufloc: every block location in
// the header, and every bufloc field in the segment and LUT blocks except
// the IID buflocs stored in the LUT, uses this convention.
func (s *Storage) ReadAbsolute(loc codec.Bufloc) ([]byte, error) {
	return s.readAt(int64(loc.Offset), int(loc.Length))
}

// ReadIID reads loc as a bufloc relative to the start of the IID block,
// the one exception to the file-absolute convention, applying the header's
// IIDs block offset as a fixup before reading.
func (s *Storage) ReadIID(loc codec.Bufloc) ([]byte, error) {
	return s.readAt(int64(s.header.IIDs.Offset)+int64(loc.Offset), int(loc.Length))
}

func (s *Storage) readAt(offset int64, length int) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrStorageClosed
	}
	if offset < 0 || offset+int64(length) > s.size {
		return nil, errors.NewTruncatedError(s.path, "", offset, offset+int64(length), s.size)
	}
	buf := make([]byte, length)
	if length == 0 {
		return buf, nil
	}
	n, err := s.reader.ReadAt(buf, offset)
	if n < length && err != nil {
		return nil, errors.NewIOError(err, fmt.Sprintf("storage: reading %d bytes at offset %d", length, offset)).
			WithPath(s.path).WithOp("read")
	}
	return buf[:n], nil
}

// Close unmaps the file. It is safe to call once; a second call returns
// ErrStorageClosed.
func (s *Storage) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrStorageClosed
	}
	s.log.Infow("closing iidformat file", "path", s.path)
	return s.reader.Close()
}
