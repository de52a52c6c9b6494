// secret.go - Container for sensitive spending secrets.
//
// A Secret owns its bytes exclusively and is overwritten with zeros when
// released. Go has no destructors, so release is an explicit contract:
// callers must invoke Zeroize (typically deferred) after last use. A Secret
// never appears in serialized output; marshaling yields a placeholder and
// unmarshaling fails outright.

package note

import (
	"crypto/subtle"
)

// Secret holds raw secret bytes with a zeroize-on-release contract.
type Secret struct {
	data []byte
}

// NewSecret creates a Secret from a copy of data. The caller remains
// responsible for clearing its own copy.
func NewSecret(data []byte) *Secret {
	d := make([]byte, len(data))
	copy(d, data)
	return &Secret{data: d}
}

// RandomSecret generates a 32-byte secret from crypto/rand.
func RandomSecret() (*Secret, error) {
	return RandomSecretLen(32)
}

// RandomSecretLen generates a secret of the given length from crypto/rand.
func RandomSecretLen(n int) (*Secret, error) {
	b, err := RandomBytes(n)
	if err != nil {
		return nil, err
	}
	return &Secret{data: b}, nil
}

// Bytes returns the underlying secret bytes without copying.
//
// WARNING: this exposes the secret. The returned slice is invalidated by
// Zeroize.
func (s *Secret) Bytes() []byte {
	return s.data
}

// Len returns the secret length in bytes.
func (s *Secret) Len() int {
	return len(s.data)
}

// IsEmpty reports whether the secret holds no bytes.
func (s *Secret) IsEmpty() bool {
	return len(s.data) == 0
}

// Clone returns an independently owned copy. Both copies must be zeroized.
func (s *Secret) Clone() *Secret {
	return NewSecret(s.data)
}

// Equal compares two secrets in constant time.
func (s *Secret) Equal(o *Secret) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.data) != len(o.data) {
		return false
	}
	return subtle.ConstantTimeCompare(s.data, o.data) == 1
}

// Zeroize overwrites the secret bytes with zeros and drops the reference.
// Safe to call more than once; only the first call does work.
func (s *Secret) Zeroize() {
	for i := range s.data {
		s.data[i] = 0
	}
	s.data = nil
}

// String masks the contents so secrets cannot leak through logging.
func (s *Secret) String() string {
	return "Secret(***)"
}

// GoString masks the contents for %#v formatting.
func (s *Secret) GoString() string {
	return "Secret(***)"
}

// MarshalJSON emits a placeholder. Secrets are defined to have an opaque
// wire representation; the real bytes never cross a boundary through
// generic serialization paths.
func (s *Secret) MarshalJSON() ([]byte, error) {
	return []byte(`""`), nil
}

// UnmarshalJSON always fails. Secrets must never be reconstructed from
// untrusted wire data; silently substituting an empty secret would mask
// caller bugs.
func (s *Secret) UnmarshalJSON([]byte) error {
	return newError(CodeSerialization,
		"secrets cannot be deserialized; construct them explicitly")
}
