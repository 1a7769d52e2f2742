package alloppnet

import (
	"cmp"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// newUnion returns an empty species-sequence union with room for n slots.
func newUnion(n int) *bitset.BitSet {
	return bitset.New(uint(n))
}

// singleBit returns the index of the only set bit in u.
// ok is false unless exactly one bit is set.
func singleBit(u *bitset.BitSet) (idx int, ok bool) {
	if u.Count() != 1 {
		return -1, false
	}
	i, _ := u.NextSet(0)
	return int(i), true
}

// compareSetBits orders two bitsets by their set bit indices, smallest
// differing index first. A set that runs out of bits first sorts first.
func compareSetBits(a, b *bitset.BitSet) int {
	ai, aok := a.NextSet(0)
	bi, bok := b.NextSet(0)
	for aok || bok {
		switch {
		case !aok:
			return -1
		case !bok:
			return 1
		case ai != bi:
			return cmp.Compare(ai, bi)
		}
		ai, aok = a.NextSet(ai + 1)
		bi, bok = b.NextSet(bi + 1)
	}
	return 0
}

// compareByCardinality orders by number of set bits, then by compareSetBits.
func compareByCardinality(a, b *bitset.BitSet) int {
	if c := cmp.Compare(a.Count(), b.Count()); c != 0 {
		return c
	}
	return compareSetBits(a, b)
}

// unionText renders a union as {i,j,...}.
func unionText(u *bitset.BitSet) string {
	if u == nil {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	for i, ok := u.NextSet(0); ok; i, ok = u.NextSet(i + 1) {
		if !first {
			sb.WriteByte(',')
		}
		first = false
		sb.WriteString(strconv.Itoa(int(i)))
	}
	sb.WriteByte('}')
	return sb.String()
}
