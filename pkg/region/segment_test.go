package region

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func square(minR, minC, maxR, maxC uint32, set func(r, c uint32) bool) Region {
	box := BBox{MinR: minR, MinC: minC, MaxR: maxR, MaxC: maxC}
	mask := EncodeMask(box.Height(), box.Width(), func(r, c uint32) bool { return set(minR+r, minC+c) })
	reg, err := NewRegion(box, mask)
	if err != nil {
		panic(err)
	}
	return reg
}

func TestNewSegmentRejectsEmptyRegionList(t *testing.T) {
	_, err := NewSegment(nil)
	require.Error(t, err)
}

func TestNewSegmentComputesEnvelopeAndArea(t *testing.T) {
	r1 := square(0, 0, 2, 2, func(r, c uint32) bool { return true }) // 4 pixels
	r2 := square(5, 5, 7, 7, func(r, c uint32) bool { return true }) // 4 pixels

	seg, err := NewSegment([]Region{r1, r2})
	require.NoError(t, err)
	require.Equal(t, BBox{MinR: 0, MinC: 0, MaxR: 7, MaxC: 7}, seg.Box)
	require.Equal(t, uint32(8), seg.Area)
}

func TestNewSegmentAreaIsSetUnionNotSum(t *testing.T) {
	// Two fully-overlapping regions covering the same 2x2 box: area must
	// count each pixel once, not twice.
	r1 := square(0, 0, 2, 2, func(r, c uint32) bool { return true })
	r2 := square(0, 0, 2, 2, func(r, c uint32) bool { return true })

	seg, err := NewSegment([]Region{r1, r2})
	require.NoError(t, err)
	require.Equal(t, uint32(4), seg.Area, "overlapping regions must not double-count shared pixels")
}

func TestSegmentValidateStrictCatchesAreaMismatch(t *testing.T) {
	r1 := square(0, 0, 2, 2, func(r, c uint32) bool { return true })
	seg := FromParts(r1.Box, 999, []Region{r1})
	require.Error(t, seg.Validate(true))
	require.NoError(t, seg.Validate(false), "non-strict validation skips the area check")
}

func TestSegmentValidateCatchesBoxMismatch(t *testing.T) {
	r1 := square(0, 0, 2, 2, func(r, c uint32) bool { return true })
	seg := FromParts(BBox{MinR: 0, MinC: 0, MaxR: 99, MaxC: 99}, 4, []Region{r1})
	require.Error(t, seg.Validate(false))
}

func TestSegmentPointIn(t *testing.T) {
	r1 := square(0, 0, 2, 2, func(r, c uint32) bool { return r == 0 && c == 0 })
	seg, err := NewSegment([]Region{r1})
	require.NoError(t, err)

	require.True(t, seg.PointIn(0, 0))
	require.False(t, seg.PointIn(1, 1), "inside box but bit not set")
	require.False(t, seg.PointIn(10, 10), "outside box entirely")
}

func TestSegmentIntersectsRectPrecise(t *testing.T) {
	r1 := square(0, 0, 4, 4, func(r, c uint32) bool { return r == 3 && c == 3 })
	seg, err := NewSegment([]Region{r1})
	require.NoError(t, err)

	// Overlaps the box but not the single set pixel.
	require.False(t, seg.IntersectsRect(BBox{MinR: 0, MinC: 0, MaxR: 2, MaxC: 2}, false))
	require.True(t, seg.IntersectsRect(BBox{MinR: 2, MinC: 2, MaxR: 4, MaxC: 4}, false))
}

func TestSegmentIntersectsRectConservative(t *testing.T) {
	r1 := square(0, 0, 4, 4, func(r, c uint32) bool { return r == 3 && c == 3 })
	seg, err := NewSegment([]Region{r1})
	require.NoError(t, err)

	// Conservative mode only checks the envelope box, so this returns true
	// even though no set pixel falls in the query rect.
	require.True(t, seg.IntersectsRect(BBox{MinR: 0, MinC: 0, MaxR: 2, MaxC: 2}, true))
}

func TestSegmentMaskReconstructsFullBox(t *testing.T) {
	r1 := square(0, 0, 2, 2, func(r, c uint32) bool { return r == c })
	seg, err := NewSegment([]Region{r1})
	require.NoError(t, err)

	grid := seg.Mask(nil)
	require.Len(t, grid, 2)
	require.True(t, grid[0][0])
	require.False(t, grid[0][1])
	require.False(t, grid[1][0])
	require.True(t, grid[1][1])
}

func TestSegmentMaskRestrictsToQuery(t *testing.T) {
	r1 := square(0, 0, 4, 4, func(r, c uint32) bool { return true })
	seg, err := NewSegment([]Region{r1})
	require.NoError(t, err)

	query := BBox{MinR: 1, MinC: 1, MaxR: 3, MaxC: 3}
	grid := seg.Mask(&query)
	require.Len(t, grid, 2)
	require.Len(t, grid[0], 2)
}

func TestSegmentSharesSetPixel(t *testing.T) {
	a := square(0, 0, 4, 4, func(r, c uint32) bool { return r == 1 && c == 1 })
	b := square(0, 0, 4, 4, func(r, c uint32) bool { return r == 1 && c == 1 })
	segA, err := NewSegment([]Region{a})
	require.NoError(t, err)
	segB, err := NewSegment([]Region{b})
	require.NoError(t, err)
	require.True(t, segA.SharesSetPixel(segB))
}

func TestSegmentSharesSetPixelPrunedByBoxDisjoint(t *testing.T) {
	a := square(0, 0, 2, 2, func(r, c uint32) bool { return true })
	b := square(10, 10, 12, 12, func(r, c uint32) bool { return true })
	segA, err := NewSegment([]Region{a})
	require.NoError(t, err)
	segB, err := NewSegment([]Region{b})
	require.NoError(t, err)
	require.False(t, segA.SharesSetPixel(segB))
}

func TestSegmentSharesSetPixelOverlappingBoxNoSharedBit(t *testing.T) {
	a := square(0, 0, 4, 4, func(r, c uint32) bool { return r == 0 && c == 0 })
	b := square(2, 2, 6, 6, func(r, c uint32) bool { return r == 2 && c == 2 })
	segA, err := NewSegment([]Region{a})
	require.NoError(t, err)
	segB, err := NewSegment([]Region{b})
	require.NoError(t, err)
	require.False(t, segA.SharesSetPixel(segB), "boxes overlap but no pixel is shared")
}
