// Package jsonvalue provides helpers around the dynamically-typed JSON
// values that flow through the MCP core: tool schemas, arguments, and
// payloads are all open-ended, so the idiomatic Go representation is
// interface{}/map[string]interface{} produced by encoding/json rather than
// a hand-rolled tagged union.
package jsonvalue

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Value is a decoded JSON value: nil, bool, float64, string,
// []interface{}, or map[string]interface{}.
type Value = interface{}

// Object is the common case of a JSON value that must be an object.
type Object = map[string]interface{}

// DeepCopy returns an independent copy of v, round-tripping through JSON.
// Every map and slice in the result is freshly allocated.
func DeepCopy(v Value) Value {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out Value
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

// Canonical serializes v with object keys sorted, producing a stable byte
// string suitable as a cache fingerprint. encoding/json already sorts
// map[string]interface{} keys when marshaling, so this mostly documents
// that guarantee and insulates callers from relying on it directly.
func Canonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(sortedCopy(v)); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// sortedCopy rebuilds maps so that iteration order (and therefore the
// json.Marshal key order, which Go already sorts) is deterministic even
// across different map implementations.
func sortedCopy(v Value) Value {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]interface{}, len(t))
		for _, k := range keys {
			out[k] = sortedCopy(t[k])
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = sortedCopy(e)
		}
		return out
	default:
		return t
	}
}

// AsObject asserts that v is a JSON object, returning (nil, false) for any
// other shape including a JSON null.
func AsObject(v Value) (Object, bool) {
	o, ok := v.(map[string]interface{})
	return o, ok
}

// GetString reads a string field from an object, returning "" if absent or
// of the wrong type.
func GetString(obj Object, key string) string {
	if obj == nil {
		return ""
	}
	s, _ := obj[key].(string)
	return s
}

// GetBool reads a bool field, returning false if absent or of the wrong type.
func GetBool(obj Object, key string) bool {
	if obj == nil {
		return false
	}
	b, _ := obj[key].(bool)
	return b
}

// StringSlice reads a []string from a JSON array field, skipping any
// non-string elements.
func StringSlice(v Value) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Equal reports whether two JSON values are structurally equal, ignoring
// map key order (which carries no meaning in JSON).
func Equal(a, b Value) bool {
	ca, err1 := Canonical(a)
	cb, err2 := Canonical(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}
