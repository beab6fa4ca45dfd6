package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aeaeaeaeaeae/iidformat/internal/entryset"
	"github.com/aeaeaeaeaeae/iidformat/internal/format"
	"github.com/aeaeaeaeaeae/iidformat/internal/writer"
	"github.com/aeaeaeaeaeae/iidformat/pkg/codec"
	"github.com/aeaeaeaeaeae/iidformat/pkg/errors"
	"github.com/aeaeaeaeaeae/iidformat/pkg/logger"
	"github.com/aeaeaeaeaeae/iidformat/pkg/queryopts"
	"github.com/aeaeaeaeaeae/iidformat/pkg/region"
	"github.com/aeaeaeaeaeae/iidformat/pkg/selector"
)

func testSeg(t *testing.T, box region.BBox, set func(r, c uint32) bool) region.Segment {
	t.Helper()
	mask := region.EncodeMask(box.Height(), box.Width(), set)
	reg, err := region.NewRegion(box, mask)
	require.NoError(t, err)
	seg, err := region.NewSegment([]region.Region{reg})
	require.NoError(t, err)
	return seg
}

// buildFile saves a small multi-entry fixture and returns its path. Segment 0
// and segment 1 share pixel (1,1); segment 2 is disjoint from both.
func buildFile(t *testing.T) (path string, keys [3]uint32) {
	t.Helper()

	es := entryset.New()
	seg0 := testSeg(t, region.BBox{MinR: 0, MinC: 0, MaxR: 2, MaxC: 2}, func(r, c uint32) bool { return true })
	seg1 := testSeg(t, region.BBox{MinR: 1, MinC: 1, MaxR: 3, MaxC: 3}, func(r, c uint32) bool { return true })
	seg2 := testSeg(t, region.BBox{MinR: 10, MinC: 10, MaxR: 12, MaxC: 12}, func(r, c uint32) bool { return true })

	e0, err := es.Add([]byte("images"), []byte("addr-0"), seg0)
	require.NoError(t, err)
	e1, err := es.Add([]byte("images"), []byte("addr-1"), seg1)
	require.NoError(t, err)
	e2, err := es.Add([]byte("videos"), []byte("addr-2"), seg2)
	require.NoError(t, err)

	require.NoError(t, es.AddToGroup("group-a", e0.Key))
	require.NoError(t, es.AddToGroup("group-a", e1.Key))
	require.NoError(t, es.AddToGroup("group-b", e2.Key))

	w, err := writer.New(&writer.Config{Logger: logger.Nop()})
	require.NoError(t, err)

	path = filepath.Join(t.TempDir(), "fixture.iid")
	require.NoError(t, w.Save(path, es, map[string]int{"version": 1}))

	return path, [3]uint32{e0.Key, e1.Key, e2.Key}
}

// buildFileWithMismatchedArea hand-assembles a minimal one-entry file whose
// segment record declares an Area that doesn't match its mask's actual
// set-bit count, bypassing region.NewSegment's own consistency guarantee so
// StrictAreaCheck has something genuine to catch.
func buildFileWithMismatchedArea(t *testing.T) string {
	t.Helper()

	box := region.BBox{MinR: 0, MinC: 0, MaxR: 2, MaxC: 2}
	mask := region.EncodeMask(box.Height(), box.Width(), func(r, c uint32) bool { return true })
	reg, err := region.NewRegion(box, mask)
	require.NoError(t, err)

	iidRec := format.IIDRecord{Key: 0, Domain: []byte("d"), Address: []byte("a")}
	iidBuf := format.EncodeIIDBlock([]format.IIDRecord{iidRec})

	segRec := format.SegmentRecord{Key: 0, Box: box, Area: 999, Regions: []region.Region{reg}}
	segBuf := format.EncodeSegmentBlock([]format.SegmentRecord{segRec})

	metaBuf := format.EncodeMeta([]byte("{}"))
	groupsBuf, err := format.EncodeGroupsBlock(nil)
	require.NoError(t, err)

	lutRec := format.LUTRecord{
		Key: 0,
		IID: codec.Bufloc{Offset: 0, Length: uint32(len(iidBuf))},
	}

	off := uint32(format.HeaderSize)
	lutOff := off
	lutBuf := []byte{}
	iidOff := lutOff + uint32(format.LUTRecordSize)
	metaOff := iidOff + uint32(len(iidBuf))
	groupsOff := metaOff + uint32(len(metaBuf))
	segsOff := groupsOff + uint32(len(groupsBuf))

	lutRec.Seg = codec.Bufloc{Offset: segsOff, Length: uint32(len(segBuf))}
	lutBuf = format.EncodeLUT([]format.LUTRecord{lutRec})

	h := format.Header{
		Version: format.Version,
		RFormat: format.RFormatImage,
		LUT:     codec.Bufloc{Offset: lutOff, Length: uint32(len(lutBuf))},
		IIDs:    codec.Bufloc{Offset: iidOff, Length: uint32(len(iidBuf))},
		Meta:    codec.Bufloc{Offset: metaOff, Length: uint32(len(metaBuf))},
		Groups:  codec.Bufloc{Offset: groupsOff, Length: uint32(len(groupsBuf))},
		Segs:    codec.Bufloc{Offset: segsOff, Length: uint32(len(segBuf))},
	}

	buf := h.Encode()
	buf = append(buf, lutBuf...)
	buf = append(buf, iidBuf...)
	buf = append(buf, metaBuf...)
	buf = append(buf, groupsBuf...)
	buf = append(buf, segBuf...)

	path := filepath.Join(t.TempDir(), "mismatched-area.iid")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func openFixture(t *testing.T, cfg *Config) *Reader {
	t.Helper()
	r, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestOpenAndMeta(t *testing.T) {
	path, _ := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	raw, err := r.Meta()
	require.NoError(t, err)
	var meta map[string]int
	require.NoError(t, json.Unmarshal(raw, &meta))
	require.Equal(t, 1, meta["version"])

	// Meta is cached after the first call; a second call must return the
	// same bytes without re-reading the block.
	raw2, err := r.Meta()
	require.NoError(t, err)
	require.Equal(t, raw, raw2)
}

func TestFetchEverythingLoadsAll(t *testing.T) {
	path, keys := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	entries, err := r.Fetch(selector.New(selector.Everything()))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, e := range entries {
		require.True(t, e.IIDLoaded)
		require.True(t, e.SegLoaded)
	}
	_ = keys
}

func TestFetchExplicitKeysOnlyLoadsThose(t *testing.T) {
	path, keys := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	entries, err := r.Fetch(selector.New(selector.Keys(keys[0])))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, keys[0], entries[0].Key)

	// Key 1 must still be unloaded.
	all, err := r.Fetch(selector.New(selector.Keys(keys[1]), selector.WithIIDs(false), selector.WithSegs(false)))
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.False(t, all[0].IIDLoaded)
	require.False(t, all[0].SegLoaded)
}

func TestFetchGroupUnion(t *testing.T) {
	path, keys := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	entries, err := r.Fetch(selector.New(selector.Groups("group-a")))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	gotKeys := map[uint32]bool{}
	for _, e := range entries {
		gotKeys[e.Key] = true
	}
	require.True(t, gotKeys[keys[0]])
	require.True(t, gotKeys[keys[1]])
	require.False(t, gotKeys[keys[2]])
}

func TestFetchWithIIDsFalseLeavesIIDNil(t *testing.T) {
	path, keys := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	entries, err := r.Fetch(selector.New(selector.Keys(keys[0]), selector.WithIIDs(false)))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.False(t, entries[0].IIDLoaded)
	require.True(t, entries[0].SegLoaded)
}

func TestFetchIsAdditiveAcrossCalls(t *testing.T) {
	path, keys := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	_, err := r.Fetch(selector.New(selector.Keys(keys[0]), selector.WithSegs(false)))
	require.NoError(t, err)

	entries, err := r.Fetch(selector.New(selector.Keys(keys[0])))
	require.NoError(t, err)
	require.True(t, entries[0].IIDLoaded)
	require.True(t, entries[0].SegLoaded)
}

func TestLookForFindsAddress(t *testing.T) {
	path, keys := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	entries, err := r.LookFor([][]byte{[]byte("addr-1")}, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, keys[1], entries[0].Key)
}

func TestLookForConstrainedByDomain(t *testing.T) {
	path, _ := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	entries, err := r.LookFor([][]byte{[]byte("addr-2")}, []byte("images"))
	require.NoError(t, err)
	require.Empty(t, entries, "addr-2 belongs to the videos domain, not images")
}

func TestLookForDomainMatchUsesIndex(t *testing.T) {
	path, keys := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	// Both addr-0 and addr-1 live in the images domain; a domain-scoped
	// lookup should resolve each one via the (domain, address) index.
	entries, err := r.LookFor([][]byte{[]byte("addr-0"), []byte("addr-1")}, []byte("images"))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	gotKeys := map[uint32]bool{}
	for _, e := range entries {
		gotKeys[e.Key] = true
	}
	require.True(t, gotKeys[keys[0]])
	require.True(t, gotKeys[keys[1]])
}

func TestLookForNoMatch(t *testing.T) {
	path, _ := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	entries, err := r.LookFor([][]byte{[]byte("nonexistent")}, nil)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestAtFindsCoveringSegments(t *testing.T) {
	path, keys := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	// (1,1) is covered by both seg0 ([0,2)x[0,2)) and seg1 ([1,3)x[1,3)).
	entries, err := r.At(1, 1, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	gotKeys := map[uint32]bool{}
	for _, e := range entries {
		gotKeys[e.Key] = true
	}
	require.True(t, gotKeys[keys[0]])
	require.True(t, gotKeys[keys[1]])
}

func TestAtNoMatch(t *testing.T) {
	path, _ := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	entries, err := r.At(50, 50, nil)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestAtOnlyLoadedReturnsNotLoaded(t *testing.T) {
	path, _ := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	// Nothing has been fetched yet; only_loaded must refuse the query with a
	// NotLoaded error instead of silently loading or silently skipping.
	_, err := r.At(1, 1, queryopts.New(queryopts.OnlyLoaded()))
	require.Error(t, err)
	require.True(t, errors.IsNotLoaded(err))
}

func TestAtOnlyLoadedSucceedsOnceEverythingFetched(t *testing.T) {
	path, keys := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	_, err := r.Fetch(selector.New(selector.Everything()))
	require.NoError(t, err)

	entries, err := r.At(1, 1, queryopts.New(queryopts.OnlyLoaded()))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	gotKeys := map[uint32]bool{}
	for _, e := range entries {
		gotKeys[e.Key] = true
	}
	require.True(t, gotKeys[keys[0]])
	require.True(t, gotKeys[keys[1]])
}

func TestRegionIntersection(t *testing.T) {
	path, keys := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	entries, err := r.Region(region.BBox{MinR: 10, MinC: 10, MaxR: 12, MaxC: 12}, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, keys[2], entries[0].Key)
}

func TestRegionOnlyLoadedSkipsIO(t *testing.T) {
	path, keys := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	// Nothing has been fetched yet; only_loaded must return no results
	// without performing I/O, rather than erroring.
	entries, err := r.Region(region.BBox{MinR: 0, MinC: 0, MaxR: 20, MaxC: 20}, queryopts.New(queryopts.OnlyLoaded()))
	require.NoError(t, err)
	require.Empty(t, entries)

	_, err = r.Fetch(selector.New(selector.Keys(keys[0])))
	require.NoError(t, err)

	entries, err = r.Region(region.BBox{MinR: 0, MinC: 0, MaxR: 20, MaxC: 20}, queryopts.New(queryopts.OnlyLoaded()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, keys[0], entries[0].Key)
}

func TestFilterByGroupRequiresGroupLoaded(t *testing.T) {
	path, keys := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	// A group that was never loaded excludes every entry rather than
	// triggering I/O.
	filtered := r.Filter(FilterOptions{Groups: []string{"group-a"}})
	require.Empty(t, filtered)

	_, err := r.Fetch(selector.New(selector.Groups("group-a"), selector.WithIIDs(false), selector.WithSegs(false)))
	require.NoError(t, err)

	filtered = r.Filter(FilterOptions{Groups: []string{"group-a"}})
	require.Len(t, filtered, 2)
	_ = keys
}

func TestFilterByArea(t *testing.T) {
	path, keys := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	_, err := r.Fetch(selector.New(selector.Everything()))
	require.NoError(t, err)

	min := uint32(1)
	max := uint32(4)
	filtered := r.Filter(FilterOptions{AreaMin: &min, AreaMax: &max})
	gotKeys := map[uint32]bool{}
	for _, e := range filtered {
		gotKeys[e.Key] = true
	}
	require.True(t, gotKeys[keys[0]])
}

func TestComputeOverlapSharedPixel(t *testing.T) {
	path, keys := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	_, err := r.Fetch(selector.New(selector.Everything()))
	require.NoError(t, err)

	edges := r.ComputeOverlap()
	require.Len(t, edges, 1, "only seg0 and seg1 share a pixel")
	require.Equal(t, keys[0], edges[0].A)
	require.Equal(t, keys[1], edges[0].B)
}

func TestComputeOverlapOnlyConsidersLoadedSegments(t *testing.T) {
	path, _ := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	edges := r.ComputeOverlap()
	require.Empty(t, edges, "no segments loaded yet")
}

func TestCloseIsIdempotentOnce(t *testing.T) {
	path, _ := buildFile(t)
	r, err := Open(&Config{Path: path, Logger: logger.Nop()})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	err = r.Close()
	require.ErrorIs(t, err, ErrReaderClosed)
}

func TestOperationsFailAfterClose(t *testing.T) {
	path, _ := buildFile(t)
	r, err := Open(&Config{Path: path, Logger: logger.Nop()})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = r.Meta()
	require.ErrorIs(t, err, ErrReaderClosed)

	_, err = r.Fetch(selector.New(selector.Everything()))
	require.ErrorIs(t, err, ErrReaderClosed)
}

func TestStrictAreaCheckAcceptsWellFormedFixture(t *testing.T) {
	path, keys := buildFile(t)

	r := openFixture(t, &Config{Path: path, Logger: logger.Nop(), StrictAreaCheck: true})
	_, err := r.Fetch(selector.New(selector.Keys(keys[0])))
	require.NoError(t, err)
}

func TestSnapshotMarksPartialWhenKeysUnloaded(t *testing.T) {
	path, keys := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	// Only key 0 gets fetched; the other two keys stay unmaterialized.
	_, err := r.Fetch(selector.New(selector.Keys(keys[0])))
	require.NoError(t, err)

	snap := r.Snapshot()
	require.False(t, snap.FullyLoaded())
	require.Equal(t, 3, snap.Len())
}

func TestSnapshotFullyLoadedAfterFullFetch(t *testing.T) {
	path, _ := buildFile(t)
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})

	_, err := r.Fetch(selector.New(selector.Everything()))
	require.NoError(t, err)

	snap := r.Snapshot()
	require.True(t, snap.FullyLoaded())
	require.Equal(t, 3, snap.Len())
}

func TestStrictAreaCheckCatchesMismatch(t *testing.T) {
	path := buildFileWithMismatchedArea(t)

	// Non-strict mode tolerates the bogus area field.
	r := openFixture(t, &Config{Path: path, Logger: logger.Nop()})
	_, err := r.Fetch(selector.New(selector.AllKeys()))
	require.NoError(t, err)

	rs := openFixture(t, &Config{Path: path, Logger: logger.Nop(), StrictAreaCheck: true})
	_, err = rs.Fetch(selector.New(selector.AllKeys()))
	require.Error(t, err)
}
