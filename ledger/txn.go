package ledger

import (
	"errors"
	"fmt"
)

// Txn stages writes on top of a Store. Reads see the staged writes first.
// Nothing reaches the store until Commit, which applies the whole batch at once.
type Txn struct {
	store  Store
	staged map[string][]byte
	order  []string
	done   bool
}

// Compile-time interface check.
var _ ReadWriter = (*Txn)(nil)

// Begin starts a staged transaction over store.
func Begin(store Store) *Txn {
	return &Txn{store: store, staged: make(map[string][]byte)}
}

// Get returns the staged value for key if any, otherwise the stored one.
func (t *Txn) Get(key string) ([]byte, error) {
	if v, ok := t.staged[key]; ok {
		return append([]byte(nil), v...), nil
	}
	return t.store.Get(key)
}

// Has reports whether key is staged or stored.
func (t *Txn) Has(key string) (bool, error) {
	if _, ok := t.staged[key]; ok {
		return true, nil
	}
	return t.store.Has(key)
}

// Set stages value under key. Later writes to the same key replace earlier ones.
func (t *Txn) Set(key string, value []byte) error {
	if t.done {
		return ErrTxnDone
	}
	if err := validateWrite(key, value); err != nil {
		return err
	}
	if _, ok := t.staged[key]; !ok {
		t.order = append(t.order, key)
	}
	t.staged[key] = append([]byte(nil), value...)
	return nil
}

// Writes returns the staged writes in first-write order.
func (t *Txn) Writes() []Write {
	writes := make([]Write, 0, len(t.order))
	for _, k := range t.order {
		writes = append(writes, Write{Key: k, Value: t.staged[k]})
	}
	return writes
}

// Commit applies all staged writes atomically. A Txn can be committed once.
func (t *Txn) Commit() error {
	if t.done {
		return ErrTxnDone
	}
	t.done = true
	if len(t.order) == 0 {
		return nil
	}
	if err := t.store.Apply(t.Writes()); err != nil {
		return fmt.Errorf("ledger: commit %d writes: %w", len(t.order), err)
	}
	return nil
}

// Discard drops every staged write.
func (t *Txn) Discard() {
	t.staged = make(map[string][]byte)
	t.order = nil
	t.done = true
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
