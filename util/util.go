package util

import (
	"fmt"
	"sync/atomic"

	"github.com/endb-go/endb"
)

// CheckKey returns an error if k == ""
func CheckKey(k string) error {
	if k == "" {
		return endb.Validationf("the passed key is an empty string, which is invalid")
	}
	return nil
}

// CheckKeySize returns an error if k has more than size characters.
// A size <= 0 means no limit.
func CheckKeySize(k string, size int) error {
	if size > 0 && len([]rune(k)) > size {
		return endb.Validationf("the key %q exceeds the maximum key size of %d characters", k, size)
	}
	return nil
}

// Guard tracks whether an adapter was closed.
// The zero value is an open guard.
type Guard struct {
	closed atomic.Bool
}

// Check returns an error matching endb.ErrDestroyed if the guard was closed.
func (g *Guard) Check() error {
	if g.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Close closes the guard. It returns false if it was already closed.
func (g *Guard) Close() bool {
	return g.closed.CompareAndSwap(false, true)
}

// ErrClosed is returned by adapters that were closed. It matches endb.ErrDestroyed.
var ErrClosed = fmt.Errorf("%w: the client is closed", endb.ErrDestroyed)
