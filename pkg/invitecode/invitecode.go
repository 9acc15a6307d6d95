package invitecode

import (
	"crypto/rand"
	"fmt"
)

// Alphabet is uppercase alphanumeric with ambiguous characters (0/O, 1/I)
// removed, since codes are shared by voice and handwriting.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// DefaultLength is used when callers pass a non-positive length.
const DefaultLength = 8

// Generate returns a random invite code of the given length drawn from
// Alphabet using crypto/rand. Codes are collision-resistant, not
// collision-proof: callers insert them under a unique index and retry with a
// fresh code on conflict.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(buf), nil
}
