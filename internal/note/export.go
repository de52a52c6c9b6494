// export.go - Versioned export and import of the spent-set.
//
// Wire format: {"version": 1, "nullifiers": ["<64 lowercase hex chars>", ...]}
// Import rejects payloads from a newer version and fails whole on the first
// malformed entry; a partial import never happens.

package note

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"sort"
)

// ExportVersion is the current spent-set export format version.
const ExportVersion uint32 = 1

// SpentSetExport is the serialized form of a spent-set.
type SpentSetExport struct {
	Version    uint32   `json:"version"`
	Nullifiers []string `json:"nullifiers"`
}

// ExportSpentSet serializes the set's membership to the versioned JSON
// format. Entries are sorted so identical sets produce identical files.
func ExportSpentSet(s *SpentSet) ([]byte, error) {
	members := s.Export()
	nullifiers := make([]string, len(members))
	for i, n := range members {
		nullifiers[i] = n.Hex()
	}
	sort.Strings(nullifiers)

	data, err := json.Marshal(SpentSetExport{
		Version:    ExportVersion,
		Nullifiers: nullifiers,
	})
	if err != nil {
		return nil, newError(CodeSerialization, "failed to serialize spent-set: %v", err)
	}
	return data, nil
}

// ImportSpentSet reconstructs a spent-set from an export payload.
func ImportSpentSet(data []byte) (*SpentSet, error) {
	var export SpentSetExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, newError(CodeSerialization, "failed to deserialize spent-set: %v", err)
	}
	if export.Version > ExportVersion {
		return nil, newError(CodeSerialization,
			"unsupported version: %d (current: %d)", export.Version, ExportVersion)
	}

	s := NewSpentSet()
	for _, h := range export.Nullifiers {
		b, err := hex.DecodeString(h)
		if err != nil {
			return nil, newError(CodeSerialization, "invalid hex encoding: %v", err)
		}
		n, err := NullifierFromBytes(b)
		if err != nil {
			return nil, err
		}
		s.Add(n)
	}
	return s, nil
}

// SaveToFile writes the export payload to path, overwriting any existing
// file.
func (s *SpentSet) SaveToFile(path string) error {
	data, err := ExportSpentSet(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return newError(CodeSerialization, "failed to write spent-set file: %v", err)
	}
	return nil
}

// LoadSpentSetFromFile reads an export payload from path.
func LoadSpentSetFromFile(path string) (*SpentSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(CodeSerialization, "failed to read spent-set file: %v", err)
	}
	return ImportSpentSet(data)
}
