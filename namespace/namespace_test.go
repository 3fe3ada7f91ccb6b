package namespace_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/endb-go/endb/namespace"
)

func TestWrap(t *testing.T) {
	require.Equal(t, "endb:foo", namespace.Wrap("endb", "foo"))
	require.Equal(t, "a:", namespace.Wrap("a", ""))
	require.Equal(t, "users:1", namespace.Wrap("users", "1"))
}

func TestMatchesAndStrip(t *testing.T) {
	key := namespace.Wrap("a", "k")

	require.True(t, namespace.Matches(key, "a"))
	require.False(t, namespace.Matches(key, "b"))
	// "ab:k" must not be treated as part of namespace "a"
	require.False(t, namespace.Matches(namespace.Wrap("ab", "k"), "a"))

	require.Equal(t, "k", namespace.Strip(key, "a"))
	require.Equal(t, key, namespace.Strip(key, "b"))
}

func TestSideSet(t *testing.T) {
	require.Equal(t, "namespace:endb", namespace.SideSet("endb"))
}
