package region

import "fmt"

// Segment decomposes a potentially sparse binary mask over an image into an
// ordered, non-empty list of Regions. The decomposition
// algorithm itself is unconstrained; the only on-disk invariants are that
// Box is the envelope of every Region's box and Area is the total number of
// set bits across all regions (set-union semantics — overlapping regions
// don't double-count a pixel both of them set).
type Segment struct {
	Box     BBox
	Area    uint32
	Regions []Region
}

// NewSegment builds a Segment from an already-decoded region list, computing
// Box as their envelope and Area as the true set-union bit count. This is
// the constructor the writer and tests use when building a segment from
// scratch; FromParts is used when decoding one verbatim off disk.
func NewSegment(regions []Region) (Segment, error) {
	if len(regions) == 0 {
		return Segment{}, fmt.Errorf("region: segment must have at least one region")
	}
	boxes := make([]BBox, len(regions))
	for i, r := range regions {
		boxes[i] = r.Box
	}
	box := Envelope(boxes)
	seg := Segment{Box: box, Regions: regions}
	seg.Area = seg.ComputeArea()
	return seg, nil
}

// FromParts builds a Segment from an explicit box, area, and region list as
// read off disk, without recomputing them. Use Validate to check the
// invariants NewSegment guarantees by construction.
func FromParts(box BBox, area uint32, regions []Region) Segment {
	return Segment{Box: box, Area: area, Regions: regions}
}

// Validate checks the invariants required of a decoded segment: a
// non-empty region list, Box equal to the region envelope, and
// (when strict is true) Area equal to the true set-union bit count.
func (s Segment) Validate(strict bool) error {
	if len(s.Regions) == 0 {
		return fmt.Errorf("region: segment has no regions")
	}
	boxes := make([]BBox, len(s.Regions))
	for i, r := range s.Regions {
		boxes[i] = r.Box
	}
	if env := Envelope(boxes); env != s.Box {
		return fmt.Errorf("region: segment bbox %s does not match region envelope %s", s.Box, env)
	}
	if strict {
		if want := s.ComputeArea(); want != s.Area {
			return fmt.Errorf("region: segment area %d does not match bit count %d", s.Area, want)
		}
	}
	return nil
}

// ComputeArea recomputes the total number of set pixels across all regions
// under set-union semantics: a pixel covered by more than one region is
// counted once. It reuses Mask's overlay logic (regions are OR'd together
// onto a grid covering the envelope box) so the two never disagree.
func (s Segment) ComputeArea() uint32 {
	grid := s.Mask(nil)
	var total uint32
	for _, row := range grid {
		for _, set := range row {
			if set {
				total++
			}
		}
	}
	return total
}

// PointIn reports whether pixel (r, c) belongs to the segment: some region's
// box contains it and that region's corresponding mask bit is set.
func (s Segment) PointIn(r, c uint32) bool {
	if !s.Box.Contains(r, c) {
		return false
	}
	for _, reg := range s.Regions {
		if reg.At(r, c) {
			return true
		}
	}
	return false
}

// IntersectsRect reports whether the segment intersects qbox. When
// conservative is true, only the segment's envelope box is compared against
// qbox, a cheap bbox-only test the caller opts into; otherwise a region
// must both have a box overlapping qbox and have a set bit within that
// overlap.
func (s Segment) IntersectsRect(qbox BBox, conservative bool) bool {
	if !s.Box.Intersects(qbox) {
		return false
	}
	if conservative {
		return true
	}
	for _, reg := range s.Regions {
		if reg.Box.Intersects(qbox) && reg.AnySetIn(qbox) {
			return true
		}
	}
	return false
}

// Mask reconstructs the segment's boolean mask. If query is non-nil, only
// the portion of the mask inside *query is built and only regions whose box
// intersects it are visited, the cheaper path; otherwise the mask covers
// the segment's own Box. The result is a
// row-major 2D slice indexed [r-offset][c-offset] from the top-left of the
// area that was built.
func (s Segment) Mask(query *BBox) [][]bool {
	target := s.Box
	if query != nil {
		target = s.Box.Intersect(*query)
	}
	if target.Empty() {
		return nil
	}
	h, w := target.Height(), target.Width()
	out := make([][]bool, h)
	for i := range out {
		out[i] = make([]bool, w)
	}
	for _, reg := range s.Regions {
		overlap := reg.Box.Intersect(target)
		if overlap.Empty() {
			continue
		}
		for r := overlap.MinR; r < overlap.MaxR; r++ {
			for c := overlap.MinC; c < overlap.MaxC; c++ {
				if reg.bitAtLocal(r-reg.Box.MinR, c-reg.Box.MinC) {
					out[r-target.MinR][c-target.MinC] = true
				}
			}
		}
	}
	return out
}

// SharesSetPixel reports whether s and other have at least one set pixel in
// common, pruned by bounding-box overlap first.
func (s Segment) SharesSetPixel(other Segment) bool {
	if !s.Box.Intersects(other.Box) {
		return false
	}
	overlap := s.Box.Intersect(other.Box)
	a := s.Mask(&overlap)
	b := other.Mask(&overlap)
	for r := range a {
		for c := range a[r] {
			if a[r][c] && b[r][c] {
				return true
			}
		}
	}
	return false
}
