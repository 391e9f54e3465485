package domain

import (
	"encoding/json"
	"fmt"
)

// MetaKind discriminates the scalar kinds a MetaValue can hold.
type MetaKind int

const (
	MetaNull MetaKind = iota
	MetaString
	MetaNumber
	MetaBool
)

// MetaValue is a tagged scalar: string, number, bool or null. Audit metadata is
// deliberately restricted to flat scalar maps so no raw request content can ride
// along in a nested structure.
type MetaValue struct {
	kind MetaKind
	s    string
	n    float64
	b    bool
}

// Null returns the null MetaValue. The zero value is also null.
func Null() MetaValue { return MetaValue{} }

// String wraps a string scalar.
func String(s string) MetaValue { return MetaValue{kind: MetaString, s: s} }

// Number wraps a numeric scalar.
func Number(n float64) MetaValue { return MetaValue{kind: MetaNumber, n: n} }

// Bool wraps a boolean scalar.
func Bool(b bool) MetaValue { return MetaValue{kind: MetaBool, b: b} }

// Kind reports which scalar the value holds.
func (v MetaValue) Kind() MetaKind { return v.kind }

// StringValue returns the string payload; ok is false for non-string kinds.
func (v MetaValue) StringValue() (string, bool) { return v.s, v.kind == MetaString }

// NumberValue returns the numeric payload; ok is false for non-number kinds.
func (v MetaValue) NumberValue() (float64, bool) { return v.n, v.kind == MetaNumber }

// BoolValue returns the boolean payload; ok is false for non-bool kinds.
func (v MetaValue) BoolValue() (bool, bool) { return v.b, v.kind == MetaBool }

// Truthy reports whether the value is "set" in the loose sense scoring rules
// use: true bools, non-zero numbers and non-empty strings are truthy.
func (v MetaValue) Truthy() bool {
	switch v.kind {
	case MetaBool:
		return v.b
	case MetaNumber:
		return v.n != 0
	case MetaString:
		return v.s != ""
	default:
		return false
	}
}

// MarshalJSON encodes the value as its natural JSON scalar.
func (v MetaValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case MetaString:
		return json.Marshal(v.s)
	case MetaNumber:
		return json.Marshal(v.n)
	case MetaBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar. Arrays and objects are rejected: audit
// metadata must stay flat.
func (v *MetaValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch val := raw.(type) {
	case nil:
		*v = Null()
	case string:
		*v = String(val)
	case float64:
		*v = Number(val)
	case bool:
		*v = Bool(val)
	default:
		return fmt.Errorf("metadata value must be a scalar, got %T", raw)
	}
	return nil
}

// Metadata is a flat string→scalar map attached to an audit entry. It never
// carries raw prompts or content; the server rejects requests that try.
type Metadata map[string]MetaValue

// Flag reports whether key is present and truthy.
func (m Metadata) Flag(key string) bool {
	return m[key].Truthy()
}
