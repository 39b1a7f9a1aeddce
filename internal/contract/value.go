package contract

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Value is a raw, unvalidated input field. It decodes from either a JSON
// string or a JSON number so that non-numeric input reaches the validator
// instead of failing the whole request body.
type Value string

// Number formats f as a Value.
func Number(f float64) Value {
	return Value(strconv.FormatFloat(f, 'f', -1, 64))
}

// IsZero reports whether the field was left blank.
func (v Value) IsZero() bool {
	return strings.TrimSpace(string(v)) == ""
}

func (v Value) String() string {
	return strings.TrimSpace(string(v))
}

// UnmarshalJSON accepts strings, numbers and null.
func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Value(s)
		return nil
	}
	*v = Value(b)
	return nil
}
