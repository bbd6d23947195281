package similarity

// HammingDistance counts the positions at which the two hex strings differ.
// Comparison is per character, not per bit: "1" and "2" differ by one even
// though they differ in two bits. ok is false when the lengths differ, in
// which case the pair is never similar.
func HammingDistance(a, b string) (distance int, ok bool) {
	if len(a) != len(b) {
		return 0, false
	}
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			distance++
		}
	}
	return distance, true
}

// Similar reports whether two hashes are within threshold of each other.
func Similar(a, b string, threshold int) bool {
	d, ok := HammingDistance(a, b)
	return ok && d <= threshold
}

// ValidHash reports whether h is a non-empty hex string.
func ValidHash(h string) bool {
	if h == "" {
		return false
	}
	for i := 0; i < len(h); i++ {
		c := h[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
