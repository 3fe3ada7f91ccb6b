package util_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/endb-go/endb"
	"github.com/endb-go/endb/util"
)

func TestCheckKey(t *testing.T) {
	require.ErrorIs(t, util.CheckKey(""), endb.ErrTypeValidation)
	require.NoError(t, util.CheckKey("foo"))
}

func TestCheckKeySize(t *testing.T) {
	require.NoError(t, util.CheckKeySize("äöü", 3))
	require.ErrorIs(t, util.CheckKeySize("abcd", 3), endb.ErrTypeValidation)
	require.NoError(t, util.CheckKeySize("abcd", 0))
}

func TestGuard(t *testing.T) {
	g := new(util.Guard)
	require.NoError(t, g.Check())
	require.True(t, g.Close())
	require.False(t, g.Close())
	require.ErrorIs(t, g.Check(), endb.ErrDestroyed)
}

func TestHandles(t *testing.T) {
	var h util.Handles[*int]
	opened, closed := 0, 0
	open := func() (*int, error) {
		opened++
		v := opened
		return &v, nil
	}
	closeFn := func(*int) error {
		closed++
		return nil
	}

	a, err := h.Acquire("db", open)
	require.NoError(t, err)
	b, err := h.Acquire("db", open)
	require.NoError(t, err)
	require.Same(t, a, b)
	require.Equal(t, 1, opened)

	require.NoError(t, h.Release("db", closeFn))
	require.Equal(t, 0, closed)
	require.NoError(t, h.Release("db", closeFn))
	require.Equal(t, 1, closed)

	_, err = h.Acquire("broken", func() (*int, error) { return nil, errors.New("locked") })
	require.Error(t, err)
	// A failed open leaves nothing behind.
	require.NoError(t, h.Release("broken", closeFn))
	require.Equal(t, 1, closed)
}

func TestCreateAllDirs(t *testing.T) {
	f := filepath.Join(t.TempDir(), "a", "b", "db.sqlite")
	require.NoError(t, util.CreateAllDirs(f, 0o700))
	info, err := os.Stat(filepath.Dir(f))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
