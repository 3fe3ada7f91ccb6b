package codec

import (
	"bytes"
	"errors"

	"github.com/BurntSushi/toml"
)

// tomlField is the key under which the value is stored,
// because a TOML document must be a table.
const tomlField = "value"

// TOMLcodec encodes/decodes Go values to/from TOML.
// It's meant for human readable, config-like values: nil can't be encoded
// and byte slices come back as arrays of integers.
// You can use codec.TOML instead of creating an instance of this struct.
type TOMLcodec struct{}

// TOML is a TOML codec.
var TOML = TOMLcodec{}

// Encode encodes a Go value to TOML.
func (c TOMLcodec) Encode(v any) (string, error) {
	if IsUndefined(v) {
		return "", nil
	}
	if v == nil {
		return "", errors.New("codec: TOML can't encode nil")
	}
	buf := new(bytes.Buffer)
	if err := toml.NewEncoder(buf).Encode(map[string]any{tomlField: v}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Decode decodes a TOML document produced by Encode.
func (c TOMLcodec) Decode(s string) (any, error) {
	if s == "" {
		return Undefined, nil
	}
	var doc map[string]any
	if _, err := toml.Decode(s, &doc); err != nil {
		return nil, malformed(err)
	}
	v, ok := doc[tomlField]
	if !ok {
		return nil, malformed(errors.New("missing value field"))
	}
	return v, nil
}
