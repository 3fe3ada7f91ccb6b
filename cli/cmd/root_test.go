package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/endb-go/endb"
	"github.com/endb-go/endb/codec"
)

func TestCodecByName(t *testing.T) {
	c, err := codecByName("msgpack")
	require.NoError(t, err)
	require.Equal(t, codec.MsgPack, c)

	_, err = codecByName("yaml")
	require.Error(t, err)
}

func TestSetAndDelete(t *testing.T) {
	run := func(args ...string) error {
		rootCmd.SetArgs(append(args, "--uri", "memory://cli-test", "--namespace", "cli"))
		return rootCmd.Execute()
	}

	require.NoError(t, run("set", "foo", `{"bar":42}`))
	require.NoError(t, run("set", "raw", "42", "--string"))

	check, err := endb.New("memory://cli-test", endb.Options{Namespace: "cli"})
	require.NoError(t, err)
	defer check.Close()

	ctx := context.Background()
	v, found, err := check.Get(ctx, endb.StringKey("foo"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, map[string]any{"bar": float64(42)}, v)

	v, _, err = check.Get(ctx, endb.StringKey("raw"))
	require.NoError(t, err)
	require.Equal(t, "42", v)

	require.NoError(t, run("find", "fo"))
	require.NoError(t, run("get", "foo"))
	require.NoError(t, run("delete", "foo"))
	// A failing command leaves the store open.
	require.Error(t, run("get", "foo"))
	require.NoError(t, db.Close())
}
