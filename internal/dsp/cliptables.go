package dsp

// Clip8b clips v to the range [0, 255].
// Uses unsigned comparison for single-branch hot path when v is in [0, 255].
func Clip8b(v int) uint8 {
	if uint(v) <= 255 {
		return uint8(v)
	}
	// Arithmetic right shift: v>>63 is 0 for positive, -1 for negative.
	return uint8(^(v >> 63) & 255)
}

// clamp limits v to [lo, hi]. hi must not be below lo.
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
