package endb

import (
	"context"
	"sort"
	"sync"
)

// Factory creates an Adapter for the given descriptor.
// It must connect and create the backend's table / collection / bucket before returning.
// The context is canceled when the Endb that requested the adapter is closed before
// the factory returns.
type Factory func(ctx context.Context, d Descriptor) (Adapter, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register makes an adapter factory available under the given scheme names.
// It's meant to be called from the init function of an adapter package,
// the same way database/sql drivers register themselves.
// Register panics if a scheme is registered twice or if the factory is nil.
func Register(factory Factory, schemes ...string) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if factory == nil {
		panic("endb: Register factory is nil")
	}
	for _, scheme := range schemes {
		if _, dup := factories[scheme]; dup {
			panic("endb: Register called twice for scheme " + scheme)
		}
		factories[scheme] = factory
	}
}

// Adapters returns a sorted list of the registered scheme names.
func Adapters() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	list := make([]string, 0, len(factories))
	for scheme := range factories {
		list = append(list, scheme)
	}
	sort.Strings(list)
	return list
}

func lookup(scheme string) (Factory, error) {
	factoriesMu.RLock()
	factory, ok := factories[scheme]
	factoriesMu.RUnlock()
	if !ok {
		return nil, Validationf("unknown adapter %q (forgotten import?), registered: %v", scheme, Adapters())
	}
	return factory, nil
}
