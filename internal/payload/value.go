// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package payload wraps decoded JSON-like trees (maps, lists, scalars) in a
// Value that can be walked by path without type assertions at the call site.
// Every accessor is total: a missing key, an out-of-range index, or a value
// of the wrong kind yields the zero result instead of a panic.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a node of a decoded tree. The zero Value is absent.
type Value struct {
	raw     any
	present bool
}

// Of wraps an already-decoded tree (map[string]any, []any, string, float64,
// bool, nil, json.Number, int).
func Of(raw any) Value {
	return Value{raw: raw, present: true}
}

// Decode parses JSON into a Value. Numbers are kept as json.Number so that
// large integers and years survive unchanged.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("decoding payload: %w", err)
	}
	return Of(raw), nil
}

// Path is a sequence of map keys (string) and list indices (int).
type Path []any

// P builds a Path from its elements.
func P(elems ...any) Path { return Path(elems) }

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, e := range p {
		parts[i] = fmt.Sprint(e)
	}
	return strings.Join(parts, ".")
}

// Get walks the path and returns the node found there, or an absent Value.
func (v Value) Get(path ...any) Value {
	cur := v
	for _, elem := range path {
		if !cur.present {
			return Value{}
		}
		switch key := elem.(type) {
		case string:
			m, ok := cur.raw.(map[string]any)
			if !ok {
				return Value{}
			}
			next, ok := m[key]
			if !ok {
				return Value{}
			}
			cur = Of(next)
		case int:
			l, ok := cur.raw.([]any)
			if !ok || key < 0 || key >= len(l) {
				return Value{}
			}
			cur = Of(l[key])
		default:
			return Value{}
		}
	}
	return cur
}

// At is Get with a prebuilt Path.
func (v Value) At(p Path) Value { return v.Get(p...) }

// Exists reports whether the node is present, including an explicit null.
func (v Value) Exists() bool { return v.present }

// IsNull reports whether the node is present and an explicit null.
func (v Value) IsNull() bool { return v.present && v.raw == nil }

// Raw returns the underlying decoded value.
func (v Value) Raw() any { return v.raw }

// Str returns the node as a string and whether it was a scalar. Numbers are
// formatted without exponent; integral floats print as integers.
func (v Value) Str() (string, bool) {
	if !v.present || v.raw == nil {
		return "", false
	}
	switch x := v.raw.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10), true
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

// String returns the scalar at path, or "" when absent, null, or not a scalar.
func (v Value) String(path ...any) string {
	s, _ := v.Get(path...).Str()
	return s
}

// List returns the elements of the list at path and whether a list was found.
func (v Value) List(path ...any) ([]Value, bool) {
	n := v.Get(path...)
	l, ok := n.raw.([]any)
	if !n.present || !ok {
		return nil, false
	}
	out := make([]Value, len(l))
	for i, e := range l {
		out[i] = Of(e)
	}
	return out, true
}

// IsMap reports whether the node is an object.
func (v Value) IsMap() bool {
	_, ok := v.raw.(map[string]any)
	return v.present && ok
}

// First returns the first path in paths that resolves to a present,
// non-null node.
func (v Value) First(paths ...Path) (Value, bool) {
	for _, p := range paths {
		n := v.At(p)
		if n.present && n.raw != nil {
			return n, true
		}
	}
	return Value{}, false
}

// MarshalJSON encodes the underlying tree, so Values can be persisted.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.present {
		return []byte("null"), nil
	}
	return json.Marshal(v.raw)
}

// UnmarshalJSON decodes a tree, keeping numbers as json.Number.
func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}
