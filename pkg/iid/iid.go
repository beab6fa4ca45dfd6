// Package iid implements the Individual IDentifier model: a (domain,
// address) pair of opaque byte strings that names one individual
// across the whole file. Equality and hashing are byte-exact — two IIDs are
// the same entity iff both fields compare equal byte-for-byte — but the
// entry orchestrator (internal/entryset) needs a cheap way to narrow its
// uniqueness check before paying for that comparison, so this package also
// exposes a 64-bit content hash (xxHash64) keyed on the concatenation of
// both fields.
package iid

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
)

// IID is a globally-unique (domain, address) pair. Both fields may be empty;
// only the pair together is required to be unique across a file.
type IID struct {
	Domain  []byte
	Address []byte
}

// New constructs an IID from the given domain and address byte strings.
func New(domain, address []byte) IID {
	return IID{Domain: domain, Address: address}
}

// Equal reports whether two IIDs name the same individual: both fields
// compare equal byte-for-byte.
func (i IID) Equal(other IID) bool {
	return bytes.Equal(i.Domain, other.Domain) && bytes.Equal(i.Address, other.Address)
}

// Hash returns a 64-bit content hash of the IID, suitable for use as a map
// key in the entry orchestrator's uniqueness index. Two IIDs that are Equal
// always hash the same; a hash collision does not imply equality, so
// callers must still confirm with Equal before treating a match as real.
func (i IID) Hash() uint64 {
	h := xxhash.New()
	// Write the domain length first so (domain="a", address="bc") and
	// (domain="ab", address="c") never collapse onto the same byte stream.
	var lenBuf [8]byte
	putUvarint(lenBuf[:], uint64(len(i.Domain)))
	_, _ = h.Write(lenBuf[:])
	_, _ = h.Write(i.Domain)
	_, _ = h.Write(i.Address)
	return h.Sum64()
}

// Key returns a string suitable for use as a plain Go map key that
// round-trips the exact (domain, address) pair without ambiguity, used
// where a map[IID]struct{}-shaped index over a non-comparable struct
// (IID embeds slices, so it cannot be a map key directly) is needed.
func (i IID) Key() string {
	var lenBuf [8]byte
	n := putUvarint(lenBuf[:], uint64(len(i.Domain)))
	return string(lenBuf[:n]) + string(i.Domain) + string(i.Address)
}

func putUvarint(buf []byte, v uint64) int {
	n := 0
	for v >= 0x80 {
		buf[n] = byte(v) | 0x80
		v >>= 7
		n++
	}
	buf[n] = byte(v)
	return n + 1
}
