// Package bits provides low-level bit manipulation primitives.
package bits

import "math/bits"

// FastRange maps a 64-bit hash uniformly to [0, n).
// Uses the "fastrange" technique: multiply and take the high word.
// The high bits of the hash decide the result, so it stays uniform for
// hashes whose low bits are structured. Returns 0 when n <= 0.
func FastRange(hash uint64, n int) int {
	if n <= 0 {
		return 0
	}
	hi, _ := bits.Mul64(hash, uint64(n))
	return int(hi)
}
