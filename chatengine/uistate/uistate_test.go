package uistate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decoded(t *testing.T, raw string) Map {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return Map(m)
}

func TestStringAccess(t *testing.T) {
	m := decoded(t, `{"activeApp":"messenger","brightness":80}`)

	s, ok := m.String("activeApp")
	assert.True(t, ok)
	assert.Equal(t, "messenger", s)

	_, ok = m.String("brightness")
	assert.False(t, ok)

	assert.Equal(t, "desktop", m.StringDefault("missing", "desktop"))
}

func TestIntHandlesJSONNumbers(t *testing.T) {
	m := decoded(t, `{"brightness":80}`)

	// json.Unmarshal produces float64; Int still reads it.
	i, ok := m.Int("brightness")
	assert.True(t, ok)
	assert.Equal(t, 80, i)

	assert.Equal(t, 50, m.IntDefault("missing", 50))
}

func TestBoolAccess(t *testing.T) {
	m := Map{"muted": true}
	b, ok := m.Bool("muted")
	assert.True(t, ok)
	assert.True(t, b)
	assert.True(t, m.BoolDefault("missing", true))
}

func TestNestedPaths(t *testing.T) {
	m := decoded(t, `{"shell":{"window":{"app":"messenger"}}}`)

	s, ok := m.NestedString("shell.window.app")
	assert.True(t, ok)
	assert.Equal(t, "messenger", s)

	_, ok = m.Nested("shell.missing.app")
	assert.False(t, ok)

	_, ok = m.Nested("")
	assert.False(t, ok)
}

func TestNilMapIsSafe(t *testing.T) {
	var m Map
	_, ok := m.String("x")
	assert.False(t, ok)
	_, ok = m.Nested("a.b")
	assert.False(t, ok)
	assert.Nil(t, m.Clone())
}

func TestCloneIsIndependent(t *testing.T) {
	m := Map{"a": "1"}
	c := m.Clone()
	c["a"] = "2"
	assert.Equal(t, "1", m["a"])
}
