package ledger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var bucketRecords = []byte("records")

// BoltStore persists records in a single bbolt bucket.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRecords); err != nil {
			return fmt.Errorf("boltstore: create bucket %q: %w", bucketRecords, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Get retrieves the value stored under key.
func (s *BoltStore) Get(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketRecords).Get([]byte(key))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		// bbolt values are only valid inside the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Has reports whether key is present.
func (s *BoltStore) Has(key string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketRecords).Get([]byte(key)) != nil
		return nil
	})
	return found, err
}

// Set stores value under key.
func (s *BoltStore) Set(key string, value []byte) error {
	return s.Apply([]Write{{Key: key, Value: value}})
}

// Apply stores all writes in one bbolt read-write transaction.
func (s *BoltStore) Apply(writes []Write) error {
	for _, w := range writes {
		if err := validateWrite(w.Key, w.Value); err != nil {
			return err
		}
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		for _, w := range writes {
			if err := b.Put([]byte(w.Key), w.Value); err != nil {
				return fmt.Errorf("boltstore: put %q: %w", w.Key, err)
			}
		}
		return nil
	})
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }
