package endb

import "context"

// Adapter is an abstraction for the different backends that an Endb can be bound to.
// An adapter stores and retrieves already encoded values under already namespaced keys,
// so it never has to know about the codec or the namespace separator.
type Adapter interface {
	// Get retrieves the encoded value for the given physical key.
	// If no value is found it returns ("", false, nil).
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores the encoded value for the given physical key.
	// An existing value is overwritten.
	Set(ctx context.Context, key, value string) error
	// Delete deletes the stored value for the given physical key.
	// It returns true only if a value existed and was removed.
	// Deleting a non-existing key-value pair does NOT lead to an error.
	Delete(ctx context.Context, key string) (deleted bool, err error)
	// Clear deletes all key-value pairs of the adapter's namespace.
	// Key-value pairs of other namespaces sharing the same backend are left untouched.
	Clear(ctx context.Context) error
	// Close releases the connection. Any call after Close fails with ErrDestroyed.
	Close() error
}

// Enumerator is implemented by adapters that can list the entries of their namespace.
type Enumerator interface {
	// All returns the physical keys and encoded values of the adapter's namespace.
	All(ctx context.Context) (map[string]string, error)
}
