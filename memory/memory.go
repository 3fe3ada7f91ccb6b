// Package memory implements an adapter for a process-local in-memory map.
//
// "memory://" gives every Endb its own private map.
// "memory://<name>" gives all Endbs with the same name in the same process one shared map,
// which is how several namespaces share a backend.
package memory

import (
	"context"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/endb-go/endb"
	"github.com/endb-go/endb/namespace"
	"github.com/endb-go/endb/util"
)

func init() {
	endb.Register(func(_ context.Context, d endb.Descriptor) (endb.Adapter, error) {
		return NewClient(Options{
			Name:      strings.TrimSuffix(d.Location, "/"),
			Namespace: d.Namespace,
		}), nil
	}, "memory")
}

// shared holds the named maps of the process.
var shared = xsync.NewMapOf[string, *xsync.MapOf[string, string]]()

// Client is an endb.Adapter implementation for a concurrent Go map.
type Client struct {
	m         *xsync.MapOf[string, string]
	namespace string
	named     bool
	guard     *util.Guard
}

// Set stores the given value for the given key.
// The key must not be "".
func (c Client) Set(_ context.Context, k, v string) error {
	if err := c.check(k); err != nil {
		return err
	}
	c.m.Store(k, v)
	return nil
}

// Get retrieves the stored value for the given key.
// If no value is found it returns ("", false, nil).
// The key must not be "".
func (c Client) Get(_ context.Context, k string) (string, bool, error) {
	if err := c.check(k); err != nil {
		return "", false, err
	}
	v, found := c.m.Load(k)
	return v, found, nil
}

// Delete deletes the stored value for the given key.
// Deleting a non-existing key-value pair does NOT lead to an error.
// The key must not be "".
func (c Client) Delete(_ context.Context, k string) (bool, error) {
	if err := c.check(k); err != nil {
		return false, err
	}
	_, deleted := c.m.LoadAndDelete(k)
	return deleted, nil
}

// Clear deletes all key-value pairs of the client's namespace.
func (c Client) Clear(_ context.Context) error {
	if err := c.guard.Check(); err != nil {
		return err
	}
	c.m.Range(func(k, _ string) bool {
		if namespace.Matches(k, c.namespace) {
			c.m.Delete(k)
		}
		return true
	})
	return nil
}

// All returns all key-value pairs of the client's namespace.
func (c Client) All(_ context.Context) (map[string]string, error) {
	if err := c.guard.Check(); err != nil {
		return nil, err
	}
	result := make(map[string]string)
	c.m.Range(func(k, v string) bool {
		if namespace.Matches(k, c.namespace) {
			result[k] = v
		}
		return true
	})
	return result, nil
}

// Close closes the client.
// A private map is cleared, a named map is kept for the other clients that use it.
func (c Client) Close() error {
	if c.guard.Close() && !c.named {
		c.m.Clear()
	}
	return nil
}

func (c Client) check(k string) error {
	if err := c.guard.Check(); err != nil {
		return err
	}
	return util.CheckKey(k)
}

// Options are the options for the memory client.
type Options struct {
	// Name of a map that's shared by all clients in the process that use the same name.
	// Optional ("" by default, which means a private map).
	Name string
	// Namespace of the keys, used by Clear and All.
	// Optional ("endb" by default).
	Namespace string
}

// DefaultOptions is an Options object with default values.
// Name: "", Namespace: "endb"
var DefaultOptions = Options{
	Namespace: "endb",
}

// NewClient creates a new memory client.
//
// You should call the Close() method on the client when you're done working with it.
func NewClient(options Options) Client {
	// Set default options
	if options.Namespace == "" {
		options.Namespace = DefaultOptions.Namespace
	}

	var m *xsync.MapOf[string, string]
	if options.Name == "" {
		m = xsync.NewMapOf[string, string]()
	} else {
		m, _ = shared.LoadOrCompute(options.Name, func() *xsync.MapOf[string, string] {
			return xsync.NewMapOf[string, string]()
		})
	}

	return Client{
		m:         m,
		namespace: options.Namespace,
		named:     options.Name != "",
		guard:     new(util.Guard),
	}
}
