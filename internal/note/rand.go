// rand.go - Cryptographically secure randomness.

package note

import "crypto/rand"

// RandomBytes generates n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, newError(CodeOperation, "failed to generate random bytes: %v", err)
	}
	return b, nil
}
