package ledger

import (
	"encoding/json"
	"fmt"
)

// GetJSON decodes the JSON record stored under key into v.
func GetJSON(r Reader, key string, v interface{}) error {
	data, err := r.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, key, err)
	}
	return nil
}

// SetJSON encodes v as JSON and stores it under key.
func SetJSON(w Writer, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ledger: encode %s: %w", key, err)
	}
	return w.Set(key, data)
}
