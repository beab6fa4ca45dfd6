// Package writer serializes an entryset.EntrySet into the bit-exact file
// layout internal/format defines: header placeholder, LUT placeholder, IID
// block, metadata, groups block, segment block, in that order, followed by
// a patch pass that backfills the header and LUT buflocs once every block's
// absolute position is known. On any failure the partial output is removed
// — the writer never leaves a half-written file on disk.
package writer

import (
	"encoding/json"
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/aeaeaeaeaeae/iidformat/internal/entryset"
	"github.com/aeaeaeaeaeae/iidformat/internal/format"
	"github.com/aeaeaeaeaeae/iidformat/pkg/codec"
	"github.com/aeaeaeaeaeae/iidformat/pkg/errors"
)

// Writer holds the configuration needed to save an EntrySet to disk.
type Writer struct {
	log *zap.SugaredLogger
}

// Config encapsulates the configuration parameters required to build a Writer.
type Config struct {
	Logger *zap.SugaredLogger
}

// New builds a Writer.
func New(config *Config) (*Writer, error) {
	if config == nil || config.Logger == nil {
		return nil, errors.NewIOError(nil, "writer: logger is required")
	}
	return &Writer{log: config.Logger}, nil
}

// Save writes es to path, refusing if es is not fully loaded: any entry in
// the in-memory set that isn't fully loaded from a prior read blocks the
// save. Use SaveAllowPartial to opt into dropping those entries instead.
func (w *Writer) Save(path string, es *entryset.EntrySet, meta any) error {
	if !es.FullyLoaded() {
		return errors.NewQueryError(nil, errors.ErrorCodeNotLoaded,
			"writer: entry set was built from a partial read; use SaveAllowPartial to opt in")
	}
	return w.save(path, es, meta, false)
}

// SaveAllowPartial writes es to path even if it was built from a partial
// read, dropping any entry whose IID or segment was never materialized and
// renumbering the survivors to dense keys starting at 0.
func (w *Writer) SaveAllowPartial(path string, es *entryset.EntrySet, meta any) error {
	return w.save(path, es, meta, true)
}

func (w *Writer) save(path string, es *entryset.EntrySet, meta any, allowPartial bool) (err error) {
	entries := es.Entries()
	groups := es.Groups()

	if allowPartial {
		before := len(entries)
		entries, groups = dropUnloaded(entries, groups)
		if dropped := before - len(entries); dropped > 0 {
			w.log.Warnw("dropping partially loaded entries", "path", path, "dropped", dropped)
		}
	}

	w.log.Infow("saving entry set", "path", path, "entries", len(entries))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.NewOpenError(err, path)
	}

	defer func() {
		if err != nil {
			closeErr := f.Close()
			removeErr := os.Remove(path)
			if cleanupErr := multierr.Combine(closeErr, removeErr); cleanupErr != nil {
				w.log.Warnw("cleaning up partial output", "path", path, "error", cleanupErr)
			}
		}
	}()

	// Reserve the header's fixed size with a placeholder; it is patched once
	// every other block's absolute offset is known.
	if _, err = f.Write(make([]byte, format.HeaderSize)); err != nil {
		return errors.NewWriteError(err, path)
	}

	lutOff, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.NewWriteError(err, path)
	}
	lutLen := int64(len(entries)) * int64(format.LUTRecordSize)
	if _, err = f.Write(make([]byte, lutLen)); err != nil {
		return errors.NewWriteError(err, path)
	}

	iidOff, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.NewWriteError(err, path)
	}
	iidRecords := make([]format.IIDRecord, len(entries))
	// Each IID record's bufloc is relative to the start of this block; track
	// per-record offsets as the block is built rather than after the fact.
	iidLocs := make([]codec.Bufloc, len(entries))
	var iidRunningOffset uint32
	for i, e := range entries {
		iidRecords[i] = format.IIDRecord{Key: e.Key, Domain: e.Domain, Address: e.Address}
		size := uint32(iidRecords[i].EncodedSize())
		iidLocs[i] = codec.Bufloc{Offset: iidRunningOffset, Length: size}
		iidRunningOffset += size
	}
	iidBuf := format.EncodeIIDBlock(iidRecords)
	if _, err = f.Write(iidBuf); err != nil {
		return errors.NewWriteError(err, path)
	}

	metaOff, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.NewWriteError(err, path)
	}
	metaPayload, err := json.Marshal(meta)
	if err != nil {
		return errors.NewFormatError(err, errors.ErrorCodeCorrupt, "writer: encoding metadata").WithPath(path).WithBlock("meta")
	}
	metaBuf := format.EncodeMeta(metaPayload)
	if _, err = f.Write(metaBuf); err != nil {
		return errors.NewWriteError(err, path)
	}

	groupsOff, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.NewWriteError(err, path)
	}
	groupsBuf, err := format.EncodeGroupsBlock(groups)
	if err != nil {
		return errors.NewFormatError(err, errors.ErrorCodeCorrupt, "writer: encoding groups").WithPath(path).WithBlock("groups")
	}
	if _, err = f.Write(groupsBuf); err != nil {
		return errors.NewWriteError(err, path)
	}

	segsOff, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.NewWriteError(err, path)
	}
	segRecords := make([]format.SegmentRecord, len(entries))
	segLocs := make([]codec.Bufloc, len(entries))
	var segRunningOffset int64
	for i, e := range entries {
		segRecords[i] = format.SegmentRecord{Key: e.Key, Box: e.Seg.Box, Area: e.Seg.Area, Regions: e.Seg.Regions}
		size := int64(segRecords[i].EncodedSize())
		segLocs[i] = codec.Bufloc{Offset: uint32(segsOff + segRunningOffset), Length: uint32(size)}
		segRunningOffset += size
	}
	segsBuf := format.EncodeSegmentBlock(segRecords)
	if _, err = f.Write(segsBuf); err != nil {
		return errors.NewWriteError(err, path)
	}

	fileEnd, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.NewWriteError(err, path)
	}

	header := format.Header{
		Version: format.Version,
		RFormat: format.RFormatImage,
		LUT:     codec.Bufloc{Offset: uint32(lutOff), Length: uint32(lutLen)},
		IIDs:    codec.Bufloc{Offset: uint32(iidOff), Length: uint32(len(iidBuf))},
		Meta:    codec.Bufloc{Offset: uint32(metaOff), Length: uint32(len(metaBuf))},
		Groups:  codec.Bufloc{Offset: uint32(groupsOff), Length: uint32(len(groupsBuf))},
		Segs:    codec.Bufloc{Offset: uint32(segsOff), Length: uint32(len(segsBuf))},
	}

	lutRecords := make([]format.LUTRecord, len(entries))
	for i, e := range entries {
		lutRecords[i] = format.LUTRecord{Key: e.Key, IID: iidLocs[i], Seg: segLocs[i]}
	}

	if _, err = f.WriteAt(header.Encode(), 0); err != nil {
		return errors.NewWriteError(err, path)
	}
	if _, err = f.WriteAt(format.EncodeLUT(lutRecords), lutOff); err != nil {
		return errors.NewWriteError(err, path)
	}

	if err = f.Sync(); err != nil {
		return errors.NewWriteError(err, path)
	}
	if err = f.Close(); err != nil {
		return errors.NewWriteError(err, path)
	}

	w.log.Infow("entry set saved", "path", path, "size", fileEnd, "entries", len(entries))
	return nil
}

// dropUnloaded filters out any entry whose IID or segment was never
// materialized and renumbers the survivors to dense keys starting at 0,
// remapping group membership so it still points at the right entries.
func dropUnloaded(entries []*entryset.Entry, groups map[string][]uint32) ([]*entryset.Entry, map[string][]uint32) {
	kept := make([]*entryset.Entry, 0, len(entries))
	remap := make(map[uint32]uint32, len(entries))
	for _, e := range entries {
		if !e.IIDLoaded || !e.SegLoaded {
			continue
		}
		newKey := uint32(len(kept))
		remap[e.Key] = newKey
		kept = append(kept, &entryset.Entry{
			Key: newKey, Domain: e.Domain, Address: e.Address,
			IIDLoaded: true, Seg: e.Seg, SegLoaded: true,
		})
	}

	remappedGroups := make(map[string][]uint32, len(groups))
	for name, keys := range groups {
		var nk []uint32
		for _, k := range keys {
			if newKey, ok := remap[k]; ok {
				nk = append(nk, newKey)
			}
		}
		if len(nk) > 0 {
			remappedGroups[name] = nk
		}
	}
	return kept, remappedGroups
}
