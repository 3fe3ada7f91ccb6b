package codec

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

const (
	sentinel  = ":"
	binaryTag = ":base64:"
)

// JSONcodec encodes/decodes Go values to/from JSON with binary-safe strings.
// You can use codec.JSON instead of creating an instance of this struct.
//
// Decoded values are the generic Go JSON values (map[string]any, []any, float64,
// string, bool, nil) plus []byte for byte slices that were encoded.
type JSONcodec struct{}

// JSON is the default codec.
var JSON = JSONcodec{}

// Encode encodes a Go value to JSON.
func (c JSONcodec) Encode(v any) (string, error) {
	if IsUndefined(v) {
		return "", nil
	}
	n, err := normalize(v)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(n)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode decodes JSON produced by Encode.
func (c JSONcodec) Decode(s string) (any, error) {
	if s == "" {
		return Undefined, nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, malformed(err)
	}
	return revive(v)
}

// normalize converts v into generic JSON values where strings are escaped
// and byte slices are tagged.
func normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case undefined:
		return nil, nil
	case string:
		return escape(x), nil
	case []byte:
		if x == nil {
			return nil, nil
		}
		return binaryTag + base64.StdEncoding.EncodeToString(x), nil
	case bool, float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return x, nil
	case map[string]any:
		if x == nil {
			return nil, nil
		}
		m := make(map[string]any, len(x))
		for k, elem := range x {
			// Like in JavaScript objects, undefined fields are left out.
			if IsUndefined(elem) {
				continue
			}
			n, err := normalize(elem)
			if err != nil {
				return nil, err
			}
			m[k] = n
		}
		return m, nil
	case []any:
		if x == nil {
			return nil, nil
		}
		s := make([]any, len(x))
		for i, elem := range x {
			n, err := normalize(elem)
			if err != nil {
				return nil, err
			}
			s[i] = n
		}
		return s, nil
	case json.Marshaler, encoding.TextMarshaler:
		return viaJSON(v)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return normalize(rv.Elem().Interface())
	case reflect.String:
		return escape(rv.String()), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return normalize(b)
		}
		s := make([]any, rv.Len())
		for i := range s {
			n, err := normalize(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			s[i] = n
		}
		return s, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return viaJSON(v)
		}
		if rv.IsNil() {
			return nil, nil
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			n, err := normalize(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			m[iter.Key().String()] = n
		}
		return m, nil
	case reflect.Struct:
		return viaJSON(v)
	default:
		return nil, fmt.Errorf("codec: values of type %T can't be encoded", v)
	}
}

// viaJSON lets encoding/json decide the shape of v (struct tags, custom marshallers)
// and then normalizes the generic result.
func viaJSON(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return normalize(generic)
}

func escape(s string) string {
	if strings.HasPrefix(s, sentinel) {
		return sentinel + s
	}
	return s
}

// revive reverses normalize on a decoded generic JSON value.
func revive(v any) (any, error) {
	switch x := v.(type) {
	case string:
		switch {
		case strings.HasPrefix(x, sentinel+sentinel):
			return x[len(sentinel):], nil
		case strings.HasPrefix(x, binaryTag):
			b, err := base64.StdEncoding.DecodeString(x[len(binaryTag):])
			if err != nil {
				return nil, malformed(err)
			}
			return b, nil
		}
		return x, nil
	case map[string]any:
		for k, elem := range x {
			r, err := revive(elem)
			if err != nil {
				return nil, err
			}
			x[k] = r
		}
		return x, nil
	case []any:
		for i, elem := range x {
			r, err := revive(elem)
			if err != nil {
				return nil, err
			}
			x[i] = r
		}
		return x, nil
	}
	return v, nil
}
