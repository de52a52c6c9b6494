// registry.go - ID-keyed note bookkeeping over a shared spent-set.
//
// The Registry tracks caller-owned notes through the state machine
// Unspent -> (nullifier generated) -> Unspent-with-nullifier -> Spent.
// Spent is terminal. Marking spent requires a generated nullifier and a
// successful insert into the global spent-set; the AlreadySpent conflict
// surfaces unchanged.

package note

import (
	"crypto/subtle"
	"sync"

	"github.com/google/uuid"
)

// NoteState labels a registry entry's lifecycle position.
type NoteState string

const (
	StateUnspent NoteState = "unspent"
	StateSpent   NoteState = "spent"
)

// Entry is the public projection of a registry entry.
type Entry struct {
	ID        string     `json:"id"`
	Note      PublicNote `json:"note"`
	State     NoteState  `json:"state"`
	Nullifier HexBytes   `json:"nullifier,omitempty"`
}

type registryEntry struct {
	note      *Note
	state     NoteState
	nullifier *Nullifier
}

// Registry maps identifiers to notes and their spend state. All methods are
// safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	notes map[string]*registryEntry
	spent *SpentSet
}

// NewRegistry creates a registry over the given spent-set. Passing nil
// creates a fresh private set; passing a shared set lets multiple
// registries observe the same global spend ledger.
func NewRegistry(spent *SpentSet) *Registry {
	if spent == nil {
		spent = NewSpentSet()
	}
	return &Registry{
		notes: make(map[string]*registryEntry),
		spent: spent,
	}
}

// SpentSet returns the registry's underlying global spent-set.
func (r *Registry) SpentSet() *SpentSet {
	return r.spent
}

// Add registers a note under id and returns the id. An empty id is
// auto-assigned. Duplicate identifiers are rejected.
func (r *Registry) Add(id string, n *Note) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notes[id]; ok {
		return "", newError(CodeOperation, "note with ID %q already exists", id)
	}
	r.notes[id] = &registryEntry{note: n, state: StateUnspent}
	return id, nil
}

// Get returns the public projection of the entry under id.
func (r *Registry) Get(id string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.notes[id]
	if !ok {
		return Entry{}, newError(CodeOperation, "note with ID %q not found", id)
	}
	return e.public(id), nil
}

// List returns public projections of all entries. Order is unspecified.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.notes))
	for id, e := range r.notes {
		out = append(out, e.public(id))
	}
	return out
}

// ListIDs returns all registered identifiers.
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.notes))
	for id := range r.notes {
		ids = append(ids, id)
	}
	return ids
}

// Remove deletes the entry under id, zeroizes its secret, and returns the
// final public projection. Removal does not touch the spent-set: a spent
// nullifier stays spent forever.
func (r *Registry) Remove(id string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.notes[id]
	if !ok {
		return Entry{}, false
	}
	out := e.public(id)
	e.note.Zeroize()
	delete(r.notes, id)
	return out, true
}

// GenerateNullifier derives and records the spend token for the note under
// id. The supplied secret must recompute the stored commitment; a mismatch
// is rejected before anything is derived.
func (r *Registry) GenerateNullifier(id string, secret *Secret) (Nullifier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.notes[id]
	if !ok {
		return Nullifier{}, newError(CodeOperation, "note with ID %q not found", id)
	}

	cm, err := Commit(e.note.value, secret.Bytes())
	if err != nil {
		return Nullifier{}, err
	}
	if subtle.ConstantTimeCompare(cm, e.note.commitment) != 1 {
		return Nullifier{}, newError(CodeOperation,
			"commitment mismatch for note %q: invalid secret", id)
	}

	n := NullifierFor(e.note, secret)
	e.nullifier = &n
	return n, nil
}

// MarkSpent transitions the entry under id to Spent. It fails if no
// nullifier has been generated yet, or with NULLIFIER_ALREADY_SPENT if the
// nullifier is already in the global spent-set. On failure the entry's
// state is unchanged.
func (r *Registry) MarkSpent(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.notes[id]
	if !ok {
		return newError(CodeOperation, "note with ID %q not found", id)
	}
	if e.nullifier == nil {
		return newError(CodeOperation, "nullifier not generated for note %q", id)
	}
	if err := r.spent.AddOrReject(*e.nullifier); err != nil {
		return err
	}
	e.state = StateSpent
	return nil
}

// AddSpentNullifier records an externally observed nullifier in the global
// spent-set.
func (r *Registry) AddSpentNullifier(b []byte) error {
	n, err := NullifierFromBytes(b)
	if err != nil {
		return err
	}
	return r.spent.AddOrReject(n)
}

// IsSpent reports whether the raw bytes name a spent nullifier.
func (r *Registry) IsSpent(b []byte) bool {
	return r.spent.ContainsBytes(b)
}

// NoteCount returns the number of registered notes.
func (r *Registry) NoteCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notes)
}

// SpentCount returns the size of the global spent-set.
func (r *Registry) SpentCount() int {
	return r.spent.Len()
}

// SpentStats returns the global spent-set's observability snapshot.
func (r *Registry) SpentStats() Stats {
	return r.spent.Stats()
}

func (e *registryEntry) public(id string) Entry {
	out := Entry{
		ID:    id,
		Note:  e.note.Public(),
		State: e.state,
	}
	if e.nullifier != nil {
		out.Nullifier = e.nullifier.Bytes()
	}
	return out
}
