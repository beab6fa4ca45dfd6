// Package region implements the mask decomposition model: a Region is a
// bounding box plus a packed row-major, MSB-first bitmap
// covering that box; a Segment is an ordered, non-empty list of Regions
// together with the envelope bounding box of all of them and the total
// number of set bits. Mask reconstruction, point tests, and rectangle
// intersection are all implemented here; internal/format only knows how to
// get the bytes on and off disk.
package region

import "fmt"

// BBox is an axis-aligned integer bounding box: rows [MinR, MaxR) and
// columns [MinC, MaxC), both half-open, satisfying `minr ≤ maxr`,
// `minc ≤ maxc`.
type BBox struct {
	MinR, MinC, MaxR, MaxC uint32
}

// Height returns the number of rows the box spans.
func (b BBox) Height() uint32 { return b.MaxR - b.MinR }

// Width returns the number of columns the box spans.
func (b BBox) Width() uint32 { return b.MaxC - b.MinC }

// Empty reports whether the box covers zero pixels.
func (b BBox) Empty() bool { return b.Height() == 0 || b.Width() == 0 }

// Valid reports whether the box satisfies the minr<=maxr, minc<=maxc invariant.
func (b BBox) Valid() bool { return b.MinR <= b.MaxR && b.MinC <= b.MaxC }

// Contains reports whether pixel (r, c) falls inside the box.
func (b BBox) Contains(r, c uint32) bool {
	return r >= b.MinR && r < b.MaxR && c >= b.MinC && c < b.MaxC
}

// Intersects reports whether two boxes share at least one pixel.
func (b BBox) Intersects(o BBox) bool {
	return b.MinR < o.MaxR && o.MinR < b.MaxR && b.MinC < o.MaxC && o.MinC < b.MaxC
}

// Intersect returns the overlap of two boxes. The result is empty (Empty()
// returns true) if the boxes don't overlap.
func (b BBox) Intersect(o BBox) BBox {
	r := BBox{
		MinR: max32(b.MinR, o.MinR),
		MinC: max32(b.MinC, o.MinC),
		MaxR: min32(b.MaxR, o.MaxR),
		MaxC: min32(b.MaxC, o.MaxC),
	}
	if r.MaxR < r.MinR {
		r.MaxR = r.MinR
	}
	if r.MaxC < r.MinC {
		r.MaxC = r.MinC
	}
	return r
}

// Union returns the element-wise min/max envelope of two boxes.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		MinR: min32(b.MinR, o.MinR),
		MinC: min32(b.MinC, o.MinC),
		MaxR: max32(b.MaxR, o.MaxR),
		MaxC: max32(b.MaxC, o.MaxC),
	}
}

// Envelope computes the union of a non-empty slice of boxes. It panics if
// boxes is empty; callers must enforce the regions-non-empty invariant
// before calling this.
func Envelope(boxes []BBox) BBox {
	if len(boxes) == 0 {
		panic("region: Envelope called with no boxes")
	}
	env := boxes[0]
	for _, b := range boxes[1:] {
		env = env.Union(b)
	}
	return env
}

func (b BBox) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", b.MinR, b.MinC, b.MaxR, b.MaxC)
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
