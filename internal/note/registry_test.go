package note

import (
	"bytes"
	"testing"
)

func newTestRegistry(t *testing.T) (*Registry, *Secret) {
	t.Helper()
	return NewRegistry(nil), NewSecret([]byte{1, 2, 3, 4, 5, 6, 7, 8})
}

func TestRegistryAddAndGet(t *testing.T) {
	r, secret := newTestRegistry(t)
	n := mustNote(t, 1000, secret.Bytes())

	id, err := r.Add("note1", n)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if id != "note1" {
		t.Errorf("expected id note1, got %q", id)
	}

	entry, err := r.Get("note1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.Note.Value != 1000 {
		t.Errorf("value mismatch: %d", entry.Note.Value)
	}
	if entry.State != StateUnspent {
		t.Errorf("fresh entry should be unspent, got %s", entry.State)
	}
	if entry.Nullifier != nil {
		t.Errorf("fresh entry should have no nullifier")
	}
	if r.NoteCount() != 1 {
		t.Errorf("expected 1 note, got %d", r.NoteCount())
	}
}

func TestRegistryAutoID(t *testing.T) {
	r, secret := newTestRegistry(t)
	id, err := r.Add("", mustNote(t, 1, secret.Bytes()))
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if id == "" {
		t.Errorf("empty id should be auto-assigned")
	}
	if _, err := r.Get(id); err != nil {
		t.Errorf("auto-assigned id should resolve: %v", err)
	}
}

func TestRegistryDuplicateID(t *testing.T) {
	r, secret := newTestRegistry(t)
	n := mustNote(t, 1000, secret.Bytes())
	if _, err := r.Add("note1", n); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	_, err := r.Add("note1", n)
	if CodeOf(err) != CodeOperation {
		t.Errorf("duplicate id should fail with OPERATION_ERROR, got %v", err)
	}
}

func TestRegistryUnknownID(t *testing.T) {
	r, secret := newTestRegistry(t)
	if _, err := r.Get("missing"); CodeOf(err) != CodeOperation {
		t.Errorf("unknown id should fail with OPERATION_ERROR")
	}
	if _, err := r.GenerateNullifier("missing", secret); CodeOf(err) != CodeOperation {
		t.Errorf("unknown id should fail with OPERATION_ERROR")
	}
	if err := r.MarkSpent("missing"); CodeOf(err) != CodeOperation {
		t.Errorf("unknown id should fail with OPERATION_ERROR")
	}
}

func TestRegistrySpendLifecycle(t *testing.T) {
	r, secret := newTestRegistry(t)
	id, _ := r.Add("note1", mustNote(t, 1000, secret.Bytes()))

	// Marking spent before generating the nullifier must fail.
	if err := r.MarkSpent(id); CodeOf(err) != CodeOperation {
		t.Fatalf("mark-spent without nullifier should fail, got %v", err)
	}

	nf, err := r.GenerateNullifier(id, secret)
	if err != nil {
		t.Fatalf("GenerateNullifier failed: %v", err)
	}
	entry, _ := r.Get(id)
	if !bytes.Equal(entry.Nullifier, nf.Bytes()) {
		t.Errorf("entry should record the generated nullifier")
	}
	if entry.State != StateUnspent {
		t.Errorf("generating a nullifier does not spend the note")
	}

	if err := r.MarkSpent(id); err != nil {
		t.Fatalf("MarkSpent failed: %v", err)
	}
	entry, _ = r.Get(id)
	if entry.State != StateSpent {
		t.Errorf("entry should be spent")
	}
	if !r.IsSpent(nf.Bytes()) {
		t.Errorf("nullifier should be in the global spent-set")
	}
	if r.SpentCount() != 1 {
		t.Errorf("expected 1 spent nullifier, got %d", r.SpentCount())
	}

	// Spent is terminal.
	err = r.MarkSpent(id)
	if !IsAlreadySpent(err) {
		t.Errorf("second MarkSpent should report AlreadySpent, got %v", err)
	}
}

func TestRegistryGenerateNullifierWrongSecret(t *testing.T) {
	r, secret := newTestRegistry(t)
	id, _ := r.Add("note1", mustNote(t, 1000, secret.Bytes()))

	wrong := NewSecret([]byte{9, 9, 9, 9, 9, 9, 9, 9})
	_, err := r.GenerateNullifier(id, wrong)
	if CodeOf(err) != CodeOperation {
		t.Errorf("wrong secret should fail with commitment mismatch, got %v", err)
	}
	entry, _ := r.Get(id)
	if entry.Nullifier != nil {
		t.Errorf("failed generation must not record a nullifier")
	}
}

func TestRegistrySharedSpentSet(t *testing.T) {
	shared := NewSpentSet()
	r1 := NewRegistry(shared)
	r2 := NewRegistry(shared)

	secret := NewSecret([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	id, _ := r1.Add("n", mustNote(t, 5, secret.Bytes()))
	nf, _ := r1.GenerateNullifier(id, secret)
	if err := r1.MarkSpent(id); err != nil {
		t.Fatalf("MarkSpent failed: %v", err)
	}

	// The second registry observes the spend through the shared set.
	if !r2.IsSpent(nf.Bytes()) {
		t.Errorf("shared spent-set should make the spend visible everywhere")
	}
	if err := r2.AddSpentNullifier(nf.Bytes()); !IsAlreadySpent(err) {
		t.Errorf("expected AlreadySpent through second registry, got %v", err)
	}
}

func TestRegistryAddSpentNullifier(t *testing.T) {
	r, _ := newTestRegistry(t)
	raw := bytes.Repeat([]byte{3}, 32)
	if err := r.AddSpentNullifier(raw); err != nil {
		t.Fatalf("AddSpentNullifier failed: %v", err)
	}
	if !r.IsSpent(raw) {
		t.Errorf("nullifier should be spent")
	}
	if err := r.AddSpentNullifier([]byte{1}); CodeOf(err) != CodeNullifierWrongLength {
		t.Errorf("malformed nullifier should be rejected, got %v", err)
	}
}

func TestRegistryRemove(t *testing.T) {
	r, secret := newTestRegistry(t)
	id, _ := r.Add("note1", mustNote(t, 1000, secret.Bytes()))
	nf, _ := r.GenerateNullifier(id, secret)
	if err := r.MarkSpent(id); err != nil {
		t.Fatalf("MarkSpent failed: %v", err)
	}

	entry, ok := r.Remove(id)
	if !ok {
		t.Fatalf("Remove should find the entry")
	}
	if entry.State != StateSpent {
		t.Errorf("removed entry should carry its final state")
	}
	if r.NoteCount() != 0 {
		t.Errorf("registry should be empty")
	}
	// Removal never unspends.
	if !r.IsSpent(nf.Bytes()) {
		t.Errorf("spent-set membership must survive note removal")
	}
	if _, ok := r.Remove(id); ok {
		t.Errorf("second Remove should find nothing")
	}
}

func TestRegistryListAndStats(t *testing.T) {
	r, secret := newTestRegistry(t)
	for i := 0; i < 3; i++ {
		if _, err := r.Add("", mustNote(t, uint64(100*(i+1)), secret.Bytes())); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if len(r.List()) != 3 || len(r.ListIDs()) != 3 {
		t.Errorf("expected 3 entries")
	}
	if st := r.SpentStats(); st.Count != 0 {
		t.Errorf("no spends yet, got count %d", st.Count)
	}
}
