//nolint:paralleltest
package codec_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/endb-go/endb/codec"
)

func TestJSONImplements(t *testing.T) {
	require.Implements(t, (*codec.Codec)(nil), new(codec.JSONcodec))
}

func TestJSONRoundTrip(t *testing.T) {
	tables := []struct {
		name  string
		value any
	}{
		{"string", "bar"},
		{"empty string", ""},
		{"number", 1.5},
		{"zero", 0.0},
		{"true", true},
		{"false", false},
		{"null", nil},
		{"empty array", []any{}},
		{"empty object", map[string]any{}},
		{"array", []any{"one", "two", 3.0, "four", nil}},
		{"object", map[string]any{"id": 1234567890.0, "username": "user", "verified": true}},
		{"nested", map[string]any{"a": map[string]any{"b": []any{map[string]any{"c": false}}}}},
		{"string with sentinel", ":foo"},
		{"only sentinels", "::"},
		{"string that looks tagged", ":base64:Zm9v"},
		{"bytes", []byte{0, 1, 2, 254, 255}},
		{"empty bytes", []byte{}},
		{"bytes in object", map[string]any{"payload": []byte("hello"), "name": ":x"}},
	}

	for _, table := range tables {
		table := table
		t.Run(table.name, func(t *testing.T) {
			encoded, err := codec.JSON.Encode(table.value)
			require.NoError(t, err)
			decoded, err := codec.JSON.Decode(encoded)
			require.NoError(t, err)
			require.Equal(t, table.value, decoded)
		})
	}
}

func TestJSONBinaryRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		b := make([]byte, r.Intn(512))
		r.Read(b)

		encoded, err := codec.JSON.Encode(b)
		require.NoError(t, err)
		decoded, err := codec.JSON.Decode(encoded)
		require.NoError(t, err)
		require.Equal(t, b, decoded)
	}
}

func TestJSONEncode(t *testing.T) {
	tables := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "foo", `"foo"`},
		{"escaped string", ":foo", `"::foo"`},
		{"bytes", []byte("hi"), `":base64:aGk="`},
		{"null", nil, `null`},
		{"undefined", codec.Undefined, ``},
		{"undefined field is left out", map[string]any{"a": codec.Undefined, "b": 1}, `{"b":1}`},
		{"undefined element becomes null", []any{codec.Undefined}, `[null]`},
		{"typed map", map[string]int{"a": 1}, `{"a":1}`},
		{"nil map", map[string]any(nil), `null`},
		{"nil typed map", map[string]int(nil), `null`},
		{"nil slice", []any(nil), `null`},
		{"struct", struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		}{7, ":n"}, `{"id":7,"name":"::n"}`},
		{"pointer", func() *string { s := "p"; return &s }(), `"p"`},
	}

	for _, table := range tables {
		table := table
		t.Run(table.name, func(t *testing.T) {
			actual, err := codec.JSON.Encode(table.input)
			require.NoError(t, err)
			require.Equal(t, table.expected, actual)
		})
	}
}

func TestJSONUndefinedIsNotNull(t *testing.T) {
	v, err := codec.JSON.Decode("")
	require.NoError(t, err)
	require.True(t, codec.IsUndefined(v))

	v, err = codec.JSON.Decode("null")
	require.NoError(t, err)
	require.Nil(t, v)
	require.False(t, codec.IsUndefined(v))
}

func TestJSONDecodeMalformed(t *testing.T) {
	for _, input := range []string{"{", `"unterminated`, `":base64:!!!"`, "nul"} {
		_, err := codec.JSON.Decode(input)
		require.ErrorIs(t, err, codec.ErrMalformed, "input: %q", input)
	}
}

func TestJSONEncodeUnsupported(t *testing.T) {
	_, err := codec.JSON.Encode(make(chan int))
	require.Error(t, err)
	_, err = codec.JSON.Encode(func() {})
	require.Error(t, err)
}
