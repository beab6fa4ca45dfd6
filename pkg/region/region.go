package region

import "fmt"

// Region pairs a bounding box with a packed row-major, MSB-first bitmap
// covering exactly that box. Bit (r, c) relative to the
// box's top-left corner lives at byte (r*W+c)>>3, bit 7-((r*W+c)&7); any
// trailing bits in the final byte are padding and must read as zero.
type Region struct {
	Box     BBox
	maskBuf []byte
}

// MaskLen returns the number of bytes a packed mask for an H x W box must
// occupy: ceil(H*W/8).
func MaskLen(h, w uint32) int {
	bits := uint64(h) * uint64(w)
	return int((bits + 7) / 8)
}

// NewRegion builds a Region from a box and its packed mask bytes, validating
// that the mask length matches what the box requires: ceil((maxr-minr) x
// (maxc-minc) / 8).
func NewRegion(box BBox, maskBuf []byte) (Region, error) {
	if !box.Valid() {
		return Region{}, fmt.Errorf("region: invalid bbox %s", box)
	}
	want := MaskLen(box.Height(), box.Width())
	if len(maskBuf) != want {
		return Region{}, fmt.Errorf(
			"region: mask length %d does not match bbox %s (want %d)", len(maskBuf), box, want,
		)
	}
	return Region{Box: box, maskBuf: maskBuf}, nil
}

// Mask returns the region's packed mask bytes, borrowed from whatever buffer
// the caller supplied (often a slice of a memory-mapped file). Callers that
// need to retain the bytes past the lifetime of the underlying mapping must
// use MaskCopy instead.
func (r Region) Mask() []byte { return r.maskBuf }

// MaskCopy returns an owned copy of the region's packed mask bytes.
func (r Region) MaskCopy() []byte {
	out := make([]byte, len(r.maskBuf))
	copy(out, r.maskBuf)
	return out
}

// At reports the mask bit for pixel (r, c) in absolute coordinates. It
// returns false for any pixel outside the region's box.
func (reg Region) At(r, c uint32) bool {
	if !reg.Box.Contains(r, c) {
		return false
	}
	return reg.bitAtLocal(r-reg.Box.MinR, c-reg.Box.MinC)
}

func (reg Region) bitAtLocal(localR, localC uint32) bool {
	w := reg.Box.Width()
	bitIdx := uint64(localR)*uint64(w) + uint64(localC)
	byteIdx := bitIdx >> 3
	if int(byteIdx) >= len(reg.maskBuf) {
		return false
	}
	shift := 7 - (bitIdx & 7)
	return reg.maskBuf[byteIdx]&(1<<shift) != 0
}

// PopCount returns the number of set bits in the region, restricted to its
// own box (trailing padding bits are never counted because the loop only
// visits the H*W real bits).
func (reg Region) PopCount() uint32 {
	var n uint32
	h, w := reg.Box.Height(), reg.Box.Width()
	for r := uint32(0); r < h; r++ {
		for c := uint32(0); c < w; c++ {
			if reg.bitAtLocal(r, c) {
				n++
			}
		}
	}
	return n
}

// AnySetIn reports whether the region has any set bit within the overlap of
// its own box and rect. Used by Segment's rectangle-intersection test,
// where the query itself carries no mask and so is implicitly "all set"
// within its own box.
func (reg Region) AnySetIn(rect BBox) bool {
	overlap := reg.Box.Intersect(rect)
	if overlap.Empty() {
		return false
	}
	for r := overlap.MinR; r < overlap.MaxR; r++ {
		for c := overlap.MinC; c < overlap.MaxC; c++ {
			if reg.bitAtLocal(r-reg.Box.MinR, c-reg.Box.MinC) {
				return true
			}
		}
	}
	return false
}

// EncodeMask packs an H x W boolean predicate into the row-major, MSB-first
// byte layout Region expects. It is the inverse of the bit addressing
// At/PopCount use, and is how the writer (and tests) build a Region's
// maskBuf from a logical 2D mask.
func EncodeMask(h, w uint32, set func(r, c uint32) bool) []byte {
	buf := make([]byte, MaskLen(h, w))
	for r := uint32(0); r < h; r++ {
		for c := uint32(0); c < w; c++ {
			if !set(r, c) {
				continue
			}
			bitIdx := uint64(r)*uint64(w) + uint64(c)
			byteIdx := bitIdx >> 3
			shift := 7 - (bitIdx & 7)
			buf[byteIdx] |= 1 << shift
		}
	}
	return buf
}
