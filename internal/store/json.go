package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeJSON marshals v for storage in a JSON column. A nil value is stored
// as empty, which callers pass as "[]" or "{}" depending on the column.
func EncodeJSON(v any, empty string) (string, error) {
	if v == nil {
		return empty, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: encode json column: %v", ErrInvalidEntity, err)
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}

// DecodeJSON unmarshals a JSON column into dst. Numbers are decoded as
// json.Number so integer metadata such as epoch milliseconds keeps its precision.
// Empty input leaves dst untouched.
func DecodeJSON(data []byte, dst any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}
