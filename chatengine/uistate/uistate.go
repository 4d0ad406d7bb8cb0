// Package uistate provides safe accessors over the opaque UI state map
// carried through snapshots. The shell owns the shape of this map; the
// engine only round-trips it, so every read uses the comma-ok idiom and
// never panics on an unexpected type.
package uistate

import (
	"strings"
)

// Map is the persisted UI state, as decoded from a snapshot.
type Map map[string]any

// String safely reads a string value.
// Returns the string and true if present, or empty string and false if not.
func (m Map) String(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	s, ok := m[key].(string)
	return s, ok
}

// StringDefault reads a string value with a default fallback.
func (m Map) StringDefault(key, defaultVal string) string {
	if s, ok := m.String(key); ok {
		return s
	}
	return defaultVal
}

// Int safely reads an int value.
// Also handles float64, which is what JSON unmarshaling produces.
func (m Map) Int(key string) (int, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// IntDefault reads an int value with a default fallback.
func (m Map) IntDefault(key string, defaultVal int) int {
	if i, ok := m.Int(key); ok {
		return i
	}
	return defaultVal
}

// Bool safely reads a bool value.
func (m Map) Bool(key string) (bool, bool) {
	if m == nil {
		return false, false
	}
	b, ok := m[key].(bool)
	return b, ok
}

// BoolDefault reads a bool value with a default fallback.
func (m Map) BoolDefault(key string, defaultVal bool) bool {
	if b, ok := m.Bool(key); ok {
		return b
	}
	return defaultVal
}

// Child safely reads a nested map value.
func (m Map) Child(key string) (Map, bool) {
	if m == nil {
		return nil, false
	}
	c, ok := m[key].(map[string]any)
	return Map(c), ok
}

// Nested reads a value at a dot-separated path, e.g. "shell.activeApp".
func (m Map) Nested(path string) (any, bool) {
	if m == nil || path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	current := m
	for i, part := range parts {
		if i == len(parts)-1 {
			v, ok := current[part]
			return v, ok
		}
		next, ok := current.Child(part)
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// NestedString reads a string at a dot-separated path.
func (m Map) NestedString(path string) (string, bool) {
	v, ok := m.Nested(path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Clone returns a shallow copy, safe to hand to snapshot writers while
// the live map keeps changing.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
