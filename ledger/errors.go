package ledger

import "errors"

var (
	// ErrNotFound indicates no record is stored under the requested key.
	ErrNotFound = errors.New("ledger: record not found")

	// ErrEmptyKey indicates an empty record key.
	ErrEmptyKey = errors.New("ledger: empty key")

	// ErrNilValue indicates a nil record value.
	ErrNilValue = errors.New("ledger: nil value")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("ledger: store closed")

	// ErrTxnDone indicates a staged transaction was already committed.
	ErrTxnDone = errors.New("ledger: transaction already committed")

	// ErrDecode indicates a stored record could not be decoded.
	ErrDecode = errors.New("ledger: decode record")
)
