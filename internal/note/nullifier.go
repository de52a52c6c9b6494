// nullifier.go - Fixed-size nullifier values and their derivation.
//
// A nullifier is the one-way spend token revealed when a note is consumed.
// It is derived with BLAKE3, a hash algorithmically unrelated to the SHA-256
// used for commitments, so an observer of public commitments cannot
// precompute spend tokens.

package note

import (
	"crypto/subtle"
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Nullifier is a 32-byte spend token. It is pure derived data: freely
// copyable, comparable by exact byte equality, and usable as a map key.
type Nullifier [NullifierLength]byte

// NullifierFor derives the nullifier for a note as
// BLAKE3-256(commitment || secret). Both inputs are fixed by this single
// call site, so no length prefix is needed. Deterministic and pure.
func NullifierFor(n *Note, secret *Secret) Nullifier {
	h := blake3.New(NullifierLength, nil)
	h.Write(n.commitment)
	h.Write(secret.Bytes())

	var out Nullifier
	copy(out[:], h.Sum(nil))
	return out
}

// NullifierFromBytes constructs a Nullifier from exactly 32 bytes. Empty
// input fails with NULLIFIER_EMPTY, any other wrong length with
// NULLIFIER_WRONG_LENGTH.
func NullifierFromBytes(b []byte) (Nullifier, error) {
	if err := ValidateNullifierBytes(b); err != nil {
		return Nullifier{}, err
	}
	var n Nullifier
	copy(n[:], b)
	return n, nil
}

// Bytes returns a copy of the nullifier bytes.
func (n Nullifier) Bytes() []byte {
	b := make([]byte, NullifierLength)
	copy(b, n[:])
	return b
}

// Equal compares all 32 bytes in constant time. Use this when the other
// side is attacker-influenced, e.g. a claimed nullifier from an untrusted
// party, rather than comparing via == on a hot path.
func (n Nullifier) Equal(o Nullifier) bool {
	return subtle.ConstantTimeCompare(n[:], o[:]) == 1
}

// Hex returns the full 64-character lowercase hex encoding.
func (n Nullifier) Hex() string {
	return hex.EncodeToString(n[:])
}

// String returns an abbreviated hex form for logs.
func (n Nullifier) String() string {
	return hex.EncodeToString(n[:8])
}
