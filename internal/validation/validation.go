// Package validation turns malformed command arguments into validation errors.
package validation

import (
	"bytes"
	"encoding/json"
	"sort"

	"modman/internal/errors"
)

type Validator interface {
	Validate() error
}

// Decode unmarshals command args into v. Empty args decode as {}. When v
// implements Validator its Validate result is returned.
func Decode(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		data = []byte("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.ValidationError("invalid arguments", err.Error())
	}
	if val, ok := v.(Validator); ok {
		return val.Validate()
	}
	return nil
}

// Required fails with the sorted list of fields whose value is empty.
func Required(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return errors.ValidationError("missing required arguments", missing)
}
