package codec

import (
	"encoding/base64"

	"github.com/vmihailenco/msgpack/v4"
)

// MsgPackCodec encodes/decodes Go values to/from MessagePack.
// The binary MessagePack data is transported as standard base64 text.
// Byte slices survive natively, but integers come back in the smallest
// fitting integer type and maps as map[string]interface{}.
// You can use codec.MsgPack instead of creating an instance of this struct.
type MsgPackCodec struct{}

// MsgPack is a MessagePack codec.
var MsgPack = MsgPackCodec{}

// Encode encodes a Go value to MessagePack.
func (c MsgPackCodec) Encode(v any) (string, error) {
	if IsUndefined(v) {
		return "", nil
	}
	data, err := msgpack.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode decodes a MessagePack value.
func (c MsgPackCodec) Decode(s string) (any, error) {
	if s == "" {
		return Undefined, nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, malformed(err)
	}
	var v any
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return nil, malformed(err)
	}
	return v, nil
}
