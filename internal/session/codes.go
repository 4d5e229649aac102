package session

import (
	"crypto/rand"
	"fmt"
)

// codeLength matches the digit prefix of the on-disk naming convention.
const codeLength = 6

// generateCode produces a fixed-length digit string from a uniform random
// source. Codes are short-lived capacity tokens, not secrets, so the slight
// modulo bias from mapping bytes onto digits is acceptable. Collision with a
// live session is the caller's problem (the registry retries under its lock).
func generateCode() (string, error) {
	const digits = "0123456789"
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = digits[int(b)%10]
	}
	return string(buf), nil
}
