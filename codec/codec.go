// Package codec converts values to and from the text form that adapters store.
//
// The default codec, JSON, produces plain JSON and keeps byte slices intact by storing them
// as tagged base64 strings (":base64:<data>"). Strings that start with ":" are escaped with
// one additional ":" so a natural string is never mistaken for a tagged one.
package codec

import (
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by every error that a Decode call returns for text
// that can't have been produced by the codec.
var ErrMalformed = errors.New("codec: malformed encoded value")

// Codec encodes and decodes values to and from text.
type Codec interface {
	// Encode turns v into its text form. Encode(Undefined) returns "".
	Encode(v any) (string, error)
	// Decode turns text produced by Encode back into a value. Decode("") returns Undefined.
	Decode(s string) (any, error)
}

type undefined struct{}

func (undefined) String() string { return "undefined" }

// Undefined is the "no value" marker. It's different from nil, which is the JSON null.
var Undefined any = undefined{}

// IsUndefined reports whether v is the Undefined marker.
func IsUndefined(v any) bool {
	_, ok := v.(undefined)
	return ok
}

// Funcs is a Codec made from a pair of functions,
// for example to plug in a serializer that this package doesn't offer.
// Undefined handling is done by Funcs, the functions never see Undefined or "".
type Funcs struct {
	EncodeFunc func(v any) (string, error)
	DecodeFunc func(s string) (any, error)
}

// FromFuncs returns a Codec that uses the given functions.
func FromFuncs(encode func(v any) (string, error), decode func(s string) (any, error)) Funcs {
	return Funcs{EncodeFunc: encode, DecodeFunc: decode}
}

// Encode calls EncodeFunc.
func (f Funcs) Encode(v any) (string, error) {
	if IsUndefined(v) {
		return "", nil
	}
	return f.EncodeFunc(v)
}

// Decode calls DecodeFunc. Errors are wrapped so that they match ErrMalformed.
func (f Funcs) Decode(s string) (any, error) {
	if s == "" {
		return Undefined, nil
	}
	v, err := f.DecodeFunc(s)
	if err != nil {
		return nil, malformed(err)
	}
	return v, nil
}

func malformed(err error) error {
	if errors.Is(err, ErrMalformed) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}
