// spentset.go - The append-only set of spent nullifiers.
//
// The SpentSet is the one piece of shared mutable state in the core. All
// check-then-insert sequences run under a single write lock so that two
// callers racing on the same nullifier can never both be told their spend
// succeeded. Membership only ever grows; no unspend operation exists.

package note

import "sync"

// perEntryOverhead approximates the map overhead per stored nullifier,
// used for the memory statistic.
const perEntryOverhead = 8

// SpentSet tracks spent nullifiers and enforces at-most-once spend.
type SpentSet struct {
	mu      sync.RWMutex
	members map[Nullifier]struct{}
}

// NewSpentSet creates an empty spent-set.
func NewSpentSet() *SpentSet {
	return &SpentSet{members: make(map[Nullifier]struct{})}
}

// Contains reports whether n has been spent.
func (s *SpentSet) Contains(n Nullifier) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[n]
	return ok
}

// ContainsBytes reports whether the raw bytes name a spent nullifier.
// Malformed input is simply not a member.
func (s *SpentSet) ContainsBytes(b []byte) bool {
	n, err := NullifierFromBytes(b)
	if err != nil {
		return false
	}
	return s.Contains(n)
}

// Add inserts n and reports whether it was newly inserted. The set is
// unchanged when Add returns false.
func (s *SpentSet) Add(n Nullifier) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[n]; ok {
		return false
	}
	s.members[n] = struct{}{}
	return true
}

// AddOrReject is the safe entry point for spend processing: one atomic
// check-then-insert. A conflict returns NULLIFIER_ALREADY_SPENT and leaves
// the set unchanged.
func (s *SpentSet) AddOrReject(n Nullifier) error {
	if !s.Add(n) {
		return newError(CodeAlreadySpent, "nullifier %s is already spent", n)
	}
	return nil
}

// CheckMany reports the spent status of each nullifier under one read lock.
func (s *SpentSet) CheckMany(ns []Nullifier) []bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]bool, len(ns))
	for i, n := range ns {
		_, out[i] = s.members[n]
	}
	return out
}

// MarkManySpent records a batch of raw nullifiers with all-or-nothing
// semantics: if any entry is malformed, already spent, or duplicated within
// the batch, no entry is recorded.
func (s *SpentSet) MarkManySpent(raw [][]byte) error {
	ns := make([]Nullifier, len(raw))
	for i, b := range raw {
		n, err := NullifierFromBytes(b)
		if err != nil {
			return err
		}
		ns[i] = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[Nullifier]struct{}, len(ns))
	for _, n := range ns {
		if _, ok := s.members[n]; ok {
			return newError(CodeAlreadySpent, "nullifier %s is already spent", n)
		}
		if _, ok := staged[n]; ok {
			return newError(CodeAlreadySpent, "nullifier %s appears twice in batch", n)
		}
		staged[n] = struct{}{}
	}
	for n := range staged {
		s.members[n] = struct{}{}
	}
	return nil
}

// Len returns the number of spent nullifiers.
func (s *SpentSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// Export returns a snapshot of all members. Order is not significant.
func (s *SpentSet) Export() []Nullifier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Nullifier, 0, len(s.members))
	for n := range s.members {
		out = append(out, n)
	}
	return out
}

// Stats is a lightweight observability snapshot of a spent-set.
type Stats struct {
	Count            uint64 `json:"count"`
	MemoryUsageBytes uint64 `json:"memory_usage_bytes"`
}

// Stats estimates the set's footprint as count × (entry size + overhead).
func (s *SpentSet) Stats() Stats {
	count := uint64(s.Len())
	return Stats{
		Count:            count,
		MemoryUsageBytes: count * (NullifierLength + perEntryOverhead),
	}
}
