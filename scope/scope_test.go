package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midbel/xform/scope"
)

func TestPopRestoresBindings(t *testing.T) {
	m := scope.New()
	require.NoError(t, m.Declare("", "urn:outer"))
	require.NoError(t, m.Declare("a", "urn:a"))

	m.Push()
	require.NoError(t, m.Declare("", "urn:inner"))
	require.NoError(t, m.Declare("a", "urn:other"))
	require.NoError(t, m.Declare("b", "urn:b"))

	uri, _ := m.Resolve("")
	assert.Equal(t, "urn:inner", uri)
	uri, _ = m.Resolve("a")
	assert.Equal(t, "urn:other", uri)

	require.NoError(t, m.Pop())

	uri, ok := m.Resolve("")
	assert.True(t, ok)
	assert.Equal(t, "urn:outer", uri)
	uri, _ = m.Resolve("a")
	assert.Equal(t, "urn:a", uri)
	_, ok = m.Resolve("b")
	assert.False(t, ok)
}

func TestFindPrefix(t *testing.T) {
	m := scope.New()
	require.NoError(t, m.Declare("a", "urn:a"))
	m.Push()
	require.NoError(t, m.Declare("a", "urn:shadow"))

	_, ok := m.FindPrefix("urn:a")
	assert.False(t, ok, "shadowed prefix must not be reused")

	prefix, ok := m.FindPrefix("urn:shadow")
	assert.True(t, ok)
	assert.Equal(t, "a", prefix)

	prefix, ok = m.FindPrefix(scope.NamespaceXML)
	assert.True(t, ok)
	assert.Equal(t, "xml", prefix)

	require.NoError(t, m.Pop())
	prefix, ok = m.FindPrefix("urn:a")
	assert.True(t, ok)
	assert.Equal(t, "a", prefix)
}

func TestDeclared(t *testing.T) {
	m := scope.New()
	require.NoError(t, m.Declare("p", "urn:p"))
	m.Push()

	_, ok := m.Declared("p")
	assert.False(t, ok)

	require.NoError(t, m.Declare("q", "urn:q"))
	require.NoError(t, m.Declare("q", "urn:q2"))
	uri, ok := m.Declared("q")
	assert.True(t, ok)
	assert.Equal(t, "urn:q2", uri)
	assert.Equal(t, []scope.Binding{{Prefix: "q", Uri: "urn:q2"}}, m.Bindings())
}

func TestReservedPrefixes(t *testing.T) {
	m := scope.New()
	assert.ErrorIs(t, m.Declare("xmlns", "urn:x"), scope.ErrReserved)
	assert.ErrorIs(t, m.Declare("xml", "urn:x"), scope.ErrReserved)
	assert.NoError(t, m.Declare("xml", scope.NamespaceXML))
	assert.Error(t, m.Declare("p", ""))
}

func TestPopEmpty(t *testing.T) {
	m := scope.New()
	require.NoError(t, m.Pop())
	assert.ErrorIs(t, m.Pop(), scope.ErrEmpty)
}
