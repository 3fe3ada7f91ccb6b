//nolint:paralleltest
package codec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/endb-go/endb/codec"
)

func TestTOMLImplements(t *testing.T) {
	require.Implements(t, (*codec.Codec)(nil), new(codec.TOMLcodec))
}

func TestTOMLEncode(t *testing.T) {
	require := require.New(t)

	tables := []struct {
		name     string
		input    any
		expected string
	}{
		{
			"string",
			"bar",
			"value = \"bar\"\n",
		},
		{
			"string string map",
			map[string]string{"foo": "bar"},
			"[value]\n  foo = \"bar\"\n",
		},
		{
			"struct",
			struct {
				Foo string
				Bar int
			}{
				"foo",
				7,
			},
			"[value]\n  Foo = \"foo\"\n  Bar = 7\n",
		},
	}

	for _, table := range tables {
		table := table
		t.Run(table.name, func(t *testing.T) {
			r, err := codec.TOML.Encode(table.input)
			require.NoError(err)

			require.Equal(table.expected, r)
		})
	}
}

func TestTOMLDecode(t *testing.T) {
	require := require.New(t)

	v, err := codec.TOML.Decode("[value]\n  Foo = \"foo\"\n  Bar = 7\n")
	require.NoError(err)
	require.Equal(map[string]any{"Foo": "foo", "Bar": int64(7)}, v)

	v, err = codec.TOML.Decode("")
	require.NoError(err)
	require.True(codec.IsUndefined(v))

	_, err = codec.TOML.Decode("other = 1\n")
	require.ErrorIs(err, codec.ErrMalformed)

	_, err = codec.TOML.Encode(nil)
	require.Error(err)
}
