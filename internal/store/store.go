// store.go - BadgerDB-backed persistence for the spent-nullifier ledger.
//
// The store is the durable companion of the in-memory note.SpentSet: the
// daemon hydrates the set from here at startup and writes through after each
// successful in-memory spend. Keys are "sn/" + the 32 nullifier bytes;
// values are empty. Badger's single-writer directory lock keeps external
// processes out.

package store

import (
	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"sparknote/internal/note"
)

var keyPrefix = []byte("sn/")

// SpentStore persists spent nullifiers in a Badger database.
type SpentStore struct {
	db     *badger.DB
	logger *zap.Logger
}

// Open opens (or creates) the store under dir.
func Open(dir string) (*SpentStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	opts.SyncWrites = true
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open spent store")
	}
	return &SpentStore{db: db, logger: zap.NewNop()}, nil
}

// SetLogger attaches a logger and returns the store.
func (s *SpentStore) SetLogger(logger *zap.Logger) *SpentStore {
	s.logger = logger
	return s
}

// Close releases the database.
func (s *SpentStore) Close() error {
	return errors.Wrap(s.db.Close(), "failed to close spent store")
}

func storeKey(n note.Nullifier) []byte {
	return append(append(make([]byte, 0, len(keyPrefix)+note.NullifierLength), keyPrefix...), n.Bytes()...)
}

// Add durably records n, failing with NULLIFIER_ALREADY_SPENT if it is
// already present. Check and insert happen inside one transaction.
func (s *SpentStore) Add(n note.Nullifier) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		key := storeKey(n)
		_, err := txn.Get(key)
		if err == nil {
			return &note.Error{
				Code:    note.CodeAlreadySpent,
				Message: "nullifier " + n.String() + " is already spent",
			}
		}
		if err != badger.ErrKeyNotFound {
			return errors.Wrap(err, "spent store lookup failed")
		}
		return errors.Wrap(txn.Set(key, nil), "spent store insert failed")
	})
	if err == nil {
		s.logger.Debug("nullifier persisted", zap.String("nullifier", n.String()))
	}
	return err
}

// AddMany records a batch inside one transaction: if any nullifier is
// already present (or duplicated within the batch), nothing is recorded.
func (s *SpentStore) AddMany(ns []note.Nullifier) error {
	return s.db.Update(func(txn *badger.Txn) error {
		staged := make(map[note.Nullifier]struct{}, len(ns))
		for _, n := range ns {
			if _, ok := staged[n]; ok {
				return &note.Error{
					Code:    note.CodeAlreadySpent,
					Message: "nullifier " + n.String() + " appears twice in batch",
				}
			}
			_, err := txn.Get(storeKey(n))
			if err == nil {
				return &note.Error{
					Code:    note.CodeAlreadySpent,
					Message: "nullifier " + n.String() + " is already spent",
				}
			}
			if err != badger.ErrKeyNotFound {
				return errors.Wrap(err, "spent store lookup failed")
			}
			staged[n] = struct{}{}
		}
		for n := range staged {
			if err := txn.Set(storeKey(n), nil); err != nil {
				return errors.Wrap(err, "spent store insert failed")
			}
		}
		return nil
	})
}

// Contains reports whether n is durably recorded.
func (s *SpentStore) Contains(n note.Nullifier) (bool, error) {
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(storeKey(n))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "spent store lookup failed")
		}
		found = true
		return nil
	})
	return found, err
}

// Count returns the number of persisted nullifiers.
func (s *SpentStore) Count() (uint64, error) {
	var count uint64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Load hydrates an in-memory spent-set with every persisted nullifier.
func (s *SpentStore) Load() (*note.SpentSet, error) {
	set := note.NewSpentSet()
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			n, err := note.NullifierFromBytes(key[len(keyPrefix):])
			if err != nil {
				return errors.Wrapf(err, "corrupt spent store key %x", key)
			}
			set.Add(n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("spent store hydrated", zap.Int("nullifiers", set.Len()))
	return set, nil
}
