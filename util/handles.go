package util

import "sync"

// Handles shares one open database handle per path among all clients of the process.
// File based stores lock their files, so a second client for the same path
// couldn't open it on its own.
type Handles[T any] struct {
	mu sync.Mutex
	m  map[string]*handle[T]
}

type handle[T any] struct {
	v    T
	refs int
}

// Acquire returns the handle for the path, calling open if there's none yet.
func (h *Handles[T]) Acquire(path string, open func() (T, error)) (T, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.m == nil {
		h.m = make(map[string]*handle[T])
	}
	if e, ok := h.m[path]; ok {
		e.refs++
		return e.v, nil
	}
	v, err := open()
	if err != nil {
		return v, err
	}
	h.m[path] = &handle[T]{v: v, refs: 1}
	return v, nil
}

// Release gives up one reference to the handle for the path.
// close is called when the last reference is gone.
func (h *Handles[T]) Release(path string, close func(T) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.m[path]
	if !ok {
		return nil
	}
	e.refs--
	if e.refs > 0 {
		return nil
	}
	delete(h.m, path)
	return close(e.v)
}
