package permission

// MaskBits is the fixed mask width. 256 permissions is far beyond what
// a single backend needs; a fixed width keeps masks comparable without
// version negotiation.
const MaskBits = 256

// Mask is a fixed-width permission bitset. The zero value is the empty
// set. Masks are small values and are passed by value everywhere.
type Mask [MaskBits / 64]uint64

// Has reports whether the given bit is set.
func (m Mask) Has(bit int) bool {
	if bit < 0 || bit >= MaskBits {
		return false
	}
	return m[bit/64]&(1<<(bit%64)) != 0
}

// Set sets the given bit. Out-of-range bits are ignored.
func (m *Mask) Set(bit int) {
	if bit < 0 || bit >= MaskBits {
		return
	}
	m[bit/64] |= 1 << (bit % 64)
}

// Clear clears the given bit.
func (m *Mask) Clear(bit int) {
	if bit < 0 || bit >= MaskBits {
		return
	}
	m[bit/64] &^= 1 << (bit % 64)
}

// Union returns the set union of m and other.
func (m Mask) Union(other Mask) Mask {
	var out Mask
	for i := range m {
		out[i] = m[i] | other[i]
	}
	return out
}

// Contains reports whether every bit set in other is also set in m.
func (m Mask) Contains(other Mask) bool {
	for i := range m {
		if m[i]&other[i] != other[i] {
			return false
		}
	}
	return true
}

// IsZero reports whether no bit is set.
func (m Mask) IsZero() bool {
	for i := range m {
		if m[i] != 0 {
			return false
		}
	}
	return true
}
