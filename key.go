package endb

import (
	"errors"
	"strconv"
)

// Key is a logical key. Only StringKey and IntKey implement it.
type Key interface {
	// keyString returns the text form that is namespaced and stored.
	keyString() string
}

// StringKey is a text key. It must not be empty.
type StringKey string

func (k StringKey) keyString() string { return string(k) }

// IntKey is an integer key. It's stored in its base 10 text form,
// so IntKey(1) and StringKey("1") address the same entry.
type IntKey int64

func (k IntKey) keyString() string { return strconv.FormatInt(int64(k), 10) }

// checkKey returns the text form of k or an ErrTypeValidation error.
func checkKey(op string, k Key) (string, error) {
	if k == nil {
		return "", newError(op, ErrTypeValidation, errors.New("the passed key is nil"))
	}
	s := k.keyString()
	if s == "" {
		return "", newError(op, ErrTypeValidation, errors.New("the passed key is an empty string, which is invalid"))
	}
	return s, nil
}
