package endb

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is to check which kind an error returned by this module is of.
// A key that doesn't exist is NOT an error, see Endb.Get.
var (
	// ErrConnection means the backend is unreachable or its schema couldn't be created.
	// It's fatal for the Endb instance.
	ErrConnection = errors.New("endb: connection error")
	// ErrNotReady means an operation was given up on before the backend became ready.
	ErrNotReady = errors.New("endb: not ready")
	// ErrDestroyed means an operation was attempted after Close.
	ErrDestroyed = errors.New("endb: destroyed")
	// ErrTypeValidation means a key, value or option is invalid.
	ErrTypeValidation = errors.New("endb: type validation error")
	// ErrSerialization means a stored value couldn't be decoded (or a value couldn't be encoded).
	ErrSerialization = errors.New("endb: serialization error")
	// ErrNotSupported means the adapter doesn't support the operation.
	ErrNotSupported = errors.New("endb: operation not supported")
	// ErrOperation means the backend rejected an individual call, for example a lock timeout.
	ErrOperation = errors.New("endb: backend operation failed")
)

// Error is the error type returned by Endb methods.
// It matches both its Kind and its cause with errors.Is and errors.As.
type Error struct {
	// Op is the operation that failed, for example "get" or "connect".
	Op string
	// Kind is one of the Err* sentinels of this package.
	Kind error
	// Err is the underlying error. Can be nil.
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v (%s)", e.Kind, e.Op)
	}
	return fmt.Sprintf("%v (%s): %v", e.Kind, e.Op, e.Err)
}

// Unwrap returns the kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Validationf returns an error of kind ErrTypeValidation.
// It's meant to be used by adapters when the descriptor contains invalid values.
func Validationf(format string, args ...any) error {
	return &Error{Op: "validate", Kind: ErrTypeValidation, Err: fmt.Errorf(format, args...)}
}

// classify wraps err with the given kind unless it already is an *Error.
// Adapter errors that already carry a kind (for example ErrDestroyed from a closed adapter)
// keep it.
func classify(op string, kind, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	for _, k := range []error{ErrDestroyed, ErrTypeValidation, ErrNotSupported, ErrConnection} {
		if errors.Is(err, k) {
			return newError(op, k, err)
		}
	}
	return newError(op, kind, err)
}
