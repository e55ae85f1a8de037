package ir

import (
	"fmt"
	"slices"
	"unicode/utf16"
)

// ValueKind names the attribute types a model may declare.
type ValueKind string

const (
	KindNull   ValueKind = "null"
	KindString ValueKind = "string"
	KindInt    ValueKind = "int"
	KindBool   ValueKind = "bool"
)

// Value is a sealed interface over the attribute value types.
// Only Null, String, Int, and Bool implement it.
// There is no float type: encoded snapshots must compare byte-for-byte.
type Value interface {
	Kind() ValueKind
	irValue()
}

// Null marks an attribute explicitly cleared.
type Null struct{}

func (Null) irValue()        {}
func (Null) Kind() ValueKind { return KindNull }

// String is a string attribute value.
type String string

func (String) irValue()        {}
func (String) Kind() ValueKind { return KindString }

// Int is an integer attribute value. Always int64.
type Int int64

func (Int) irValue()        {}
func (Int) Kind() ValueKind { return KindInt }

// Bool is a boolean attribute value.
type Bool bool

func (Bool) irValue()        {}
func (Bool) Kind() ValueKind { return KindBool }

// ValueOf converts a plain Go value into a Value.
// Accepts nil, string, bool, and the signed integer types.
func ValueOf(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are not supported attribute values: %v", val)
	default:
		return nil, fmt.Errorf("unsupported attribute value type: %T", v)
	}
}

// Attrs is an attribute snapshot keyed by attribute name.
type Attrs map[string]Value

// AttrsOf builds Attrs from plain Go values. See ValueOf.
func AttrsOf(m map[string]any) (Attrs, error) {
	attrs := make(Attrs, len(m))
	for k, v := range m {
		val, err := ValueOf(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		attrs[k] = val
	}
	return attrs, nil
}

// Clone returns a shallow copy. Values are immutable so a shallow copy is a
// full copy. Clone of nil is nil.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Equal reports whether both snapshots hold the same keys and values.
func (a Attrs) Equal(b Attrs) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || v != w {
			return false
		}
	}
	return true
}

// SortedKeys returns keys in canonical order (UTF-16 code units, RFC 8785).
// Go's sort.Strings compares UTF-8 bytes, which orders supplementary-plane
// characters differently.
func (a Attrs) SortedKeys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}
