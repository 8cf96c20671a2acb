package integrity

import "strconv"

// Checksum computes the 32-bit rolling hash the game client ships
// with its integrity payloads: for each character code c,
// hash = hash*31 + c, wrapping in signed 32-bit arithmetic. The
// result is rendered as lowercase hex and may carry a leading minus
// sign when the wrapped value is negative.
//
// Iteration is over Unicode runes, not UTF-16 code units, so values
// diverge from a charCodeAt-based implementation for characters
// outside the Basic Multilingual Plane. Both the monitor and the
// verification service hash with this function, and the payloads are
// ASCII JSON in practice, so the difference is accepted.
//
// This is a non-cryptographic integrity signal only. It detects
// accidental corruption and naive tampering; it is not a security
// boundary and must never gate anything besides a re-sync prompt.
func Checksum(data string) string {
	var hash int32
	for _, c := range data {
		hash = (hash << 5) - hash + int32(c)
	}
	return strconv.FormatInt(int64(hash), 16)
}
