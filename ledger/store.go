// Package ledger persists the named records of a funding service.
//
// Records are opaque byte values under semantic string keys ("admin",
// "deadline", "associations", ...). Backends guarantee that Apply is atomic:
// either every write of the batch becomes visible or none does.
package ledger

import (
	"fmt"
	"sort"
	"sync"
)

// Reader is the read half of a record store.
type Reader interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Has reports whether a value is stored under key.
	Has(key string) (bool, error)
}

// Writer is the write half of a record store.
type Writer interface {
	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error
}

// ReadWriter combines Reader and Writer.
type ReadWriter interface {
	Reader
	Writer
}

// Write is a single key/value assignment inside an atomic batch.
type Write struct {
	Key   string
	Value []byte
}

// Store is a durable key-value store.
type Store interface {
	ReadWriter

	// Apply stores all writes atomically.
	Apply(writes []Write) error

	// Close releases the underlying resources.
	Close() error
}

func validateWrite(key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	if value == nil {
		return fmt.Errorf("%w: key %q", ErrNilValue, key)
	}
	return nil
}

// MemStore is an in-memory Store for tests and ephemeral deployments.
type MemStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	closed  bool
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (s *MemStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	v, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return append([]byte(nil), v...), nil
}

// Has reports whether key is present.
func (s *MemStore) Has(key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrClosed
	}
	_, ok := s.records[key]
	return ok, nil
}

// Set stores a copy of value under key.
func (s *MemStore) Set(key string, value []byte) error {
	return s.Apply([]Write{{Key: key, Value: value}})
}

// Apply validates every write before storing any of them.
func (s *MemStore) Apply(writes []Write) error {
	for _, w := range writes {
		if err := validateWrite(w.Key, w.Value); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	for _, w := range writes {
		s.records[w.Key] = append([]byte(nil), w.Value...)
	}
	return nil
}

// Keys returns all stored keys in lexical order.
func (s *MemStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close marks the store closed. Further calls return ErrClosed.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// prefixed scopes every key of an underlying store under a fixed prefix.
type prefixed struct {
	inner  Store
	prefix string
}

// Prefixed returns a Store view that stores every key as prefix+key.
// Closing the view closes the underlying store.
func Prefixed(inner Store, prefix string) Store {
	return &prefixed{inner: inner, prefix: prefix}
}

func (p *prefixed) Get(key string) ([]byte, error) { return p.inner.Get(p.prefix + key) }

func (p *prefixed) Has(key string) (bool, error) { return p.inner.Has(p.prefix + key) }

func (p *prefixed) Set(key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	return p.inner.Set(p.prefix+key, value)
}

func (p *prefixed) Apply(writes []Write) error {
	scoped := make([]Write, len(writes))
	for i, w := range writes {
		if w.Key == "" {
			return ErrEmptyKey
		}
		scoped[i] = Write{Key: p.prefix + w.Key, Value: w.Value}
	}
	return p.inner.Apply(scoped)
}

func (p *prefixed) Close() error { return p.inner.Close() }
