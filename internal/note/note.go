// note.go - Note entity and commitment derivation.
//
// A Note composes a value, a spending secret and the commitment derived from
// them. Only (value, commitment) are ever exposed publicly; the secret stays
// inside the note and is excluded from every serialized form.

package note

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
)

// commitmentDomainTag domain-separates this scheme and version from any
// other protocol hashing coincidentally identical bytes. Part of the wire
// contract; changing it changes every commitment.
const commitmentDomainTag = "SPARK_COMMITMENT_V1"

// Commit derives the 32-byte commitment to (value, secret).
//
// Layout fed to SHA-256, in order: the ASCII domain tag, the value as
// 8 bytes big-endian, the secret length as 8 bytes big-endian, then the raw
// secret bytes. The length prefix removes concatenation ambiguity ahead of
// the variable-length field. Deterministic and pure; inputs are validated
// before any hashing happens.
func Commit(value uint64, secret []byte) ([]byte, error) {
	if err := ValidateValue(value); err != nil {
		return nil, err
	}
	if err := ValidateSecret(secret); err != nil {
		return nil, err
	}

	var be [8]byte
	h := sha256.New()
	h.Write([]byte(commitmentDomainTag))
	binary.BigEndian.PutUint64(be[:], value)
	h.Write(be[:])
	binary.BigEndian.PutUint64(be[:], uint64(len(secret)))
	h.Write(be[:])
	h.Write(secret)
	return h.Sum(nil), nil
}

// Note is a committed value. The commitment is fixed at construction and
// immutable thereafter.
type Note struct {
	value      uint64
	secret     *Secret
	commitment []byte
}

// New validates the inputs, derives the commitment and returns the note.
// The note takes its own copy of the secret; the caller's Secret remains
// the caller's to zeroize.
func New(value uint64, secret *Secret) (*Note, error) {
	cm, err := Commit(value, secret.Bytes())
	if err != nil {
		return nil, err
	}
	return &Note{
		value:      value,
		secret:     secret.Clone(),
		commitment: cm,
	}, nil
}

// Value returns the note's value.
func (n *Note) Value() uint64 {
	return n.value
}

// Commitment returns a copy of the 32-byte commitment.
func (n *Note) Commitment() []byte {
	cm := make([]byte, len(n.commitment))
	copy(cm, n.commitment)
	return cm
}

// Secret returns the note's secret.
//
// WARNING: this exposes the secret. Use only at spend time.
func (n *Note) Secret() *Secret {
	return n.secret
}

// Equal reports structural equality: value, secret bytes and commitment all
// match. The secret comparison is constant-time.
func (n *Note) Equal(o *Note) bool {
	if n == nil || o == nil {
		return n == o
	}
	return n.value == o.value &&
		n.secret.Equal(o.secret) &&
		subtle.ConstantTimeCompare(n.commitment, o.commitment) == 1
}

// Zeroize releases the note's secret. The note must not be spent afterwards.
func (n *Note) Zeroize() {
	n.secret.Zeroize()
}

// Public returns the note's public projection, the only form in which a
// note may cross a boundary.
func (n *Note) Public() PublicNote {
	return PublicNote{Value: n.value, Commitment: HexBytes(n.Commitment())}
}

// MarshalJSON emits the public projection only; the secret never appears.
func (n *Note) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Public())
}

// UnmarshalJSON always fails: a note cannot be reconstructed without its
// secret, and secrets must never be loaded from untrusted wire data.
func (n *Note) UnmarshalJSON([]byte) error {
	return newError(CodeSerialization,
		"notes cannot be deserialized; reconstruct them with New from an explicit secret")
}

// PublicNote is the cross-boundary projection of a note.
type PublicNote struct {
	Value      uint64   `json:"value"`
	Commitment HexBytes `json:"commitment"`
}

// HexBytes marshals to and from lowercase hex in JSON.
type HexBytes []byte

func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

func (h *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return newError(CodeSerialization, "invalid hex field: %v", err)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return newError(CodeSerialization, "invalid hex encoding: %v", err)
	}
	*h = b
	return nil
}

// String returns the lowercase hex form.
func (h HexBytes) String() string {
	return hex.EncodeToString(h)
}
