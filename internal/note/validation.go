// validation.go - Input constraints for secrets, values and nullifiers.
//
// The length constants are part of the wire-compatibility contract and must
// not change between implementations.

package note

const (
	// MinSecretLength is the minimum secret length in bytes.
	MinSecretLength = 8
	// MaxSecretLength is the maximum secret length in bytes.
	MaxSecretLength = 1024
	// NullifierLength is the exact nullifier length in bytes (BLAKE3 output).
	NullifierLength = 32
)

// ValidateSecret checks the length bounds on raw secret bytes.
func ValidateSecret(secret []byte) error {
	if len(secret) == 0 {
		return newError(CodeSecretEmpty, "secret cannot be empty")
	}
	if len(secret) < MinSecretLength {
		return newError(CodeSecretTooShort,
			"secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	if len(secret) > MaxSecretLength {
		return newError(CodeSecretTooLong,
			"secret must be at most %d bytes, got %d", MaxSecretLength, len(secret))
	}
	return nil
}

// ValidateValue checks that a note value is spendable. Any nonzero uint64
// is valid.
func ValidateValue(value uint64) error {
	if value == 0 {
		return newError(CodeValueZero, "value must be greater than zero")
	}
	return nil
}

// ValidateNullifierBytes checks that raw bytes form a well-sized nullifier.
// Empty input is reported as a distinguished case so callers can tell
// missing input from malformed input.
func ValidateNullifierBytes(b []byte) error {
	if len(b) == 0 {
		return newError(CodeNullifierEmpty, "nullifier cannot be empty")
	}
	if len(b) != NullifierLength {
		return newError(CodeNullifierWrongLength,
			"nullifier must be exactly %d bytes, got %d", NullifierLength, len(b))
	}
	return nil
}
