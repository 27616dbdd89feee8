package enet

// Reliable and unreliable sequence numbers are 16-bit wrapping
// counters (§3); comparisons must use modular distance rather than a
// plain integer less-than so that a counter wrapping from 65535 to 0
// still compares as "newer".

// sequenceGreater reports whether a is strictly newer than b under
// 16-bit wraparound, treating the two halves of the number space as
// "ahead" and "behind" the other (the standard TCP-sequence-number
// comparison trick).
func sequenceGreater(a, b uint16) bool {
	return int16(a-b) > 0
}

// sequenceGreaterEqual reports whether a is not older than b.
func sequenceGreaterEqual(a, b uint16) bool {
	return int16(a-b) >= 0
}

// sequenceLess reports whether a is strictly older than b.
func sequenceLess(a, b uint16) bool {
	return int16(a-b) < 0
}

// sequenceDistance returns the forward distance from b to a, i.e. how
// many increments of b it takes to reach a, under wraparound.
func sequenceDistance(a, b uint16) uint16 {
	return a - b
}
