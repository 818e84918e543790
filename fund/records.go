package fund

import (
	"fmt"

	"github.com/bitfsorg/matchfund-go/ledger"
)

// Load decodes the record under key into v. A missing record means the
// service was never initialized.
func Load(r ledger.Reader, key string, v interface{}) error {
	err := ledger.GetJSON(r, key, v)
	if ledger.IsNotFound(err) {
		return fmt.Errorf("%w: missing %s", ErrNotInitialized, key)
	}
	return err
}

// Save encodes v under key.
func Save(w ledger.Writer, key string, v interface{}) error {
	return ledger.SetJSON(w, key, v)
}

// Initialized reports whether the admin record exists.
func Initialized(r ledger.Reader) (bool, error) {
	return r.Has(KeyAdmin)
}
