package endb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/endb-go/endb/codec"
	"github.com/endb-go/endb/namespace"
)

// State is the lifecycle state of an Endb.
type State int32

const (
	// StateUninitialized means no operation has been issued yet, so there's no connection.
	StateUninitialized State = iota
	// StateConnecting means the adapter is connecting and creating its table / collection.
	StateConnecting
	// StateReady means operations are forwarded to the adapter.
	StateReady
	// StateClosed means the Endb was closed or the connection failed.
	// There's no way back, a new Endb must be created.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Endb is a key-value store bound to one backend and one namespace.
// It's safe for concurrent use.
//
// The connection is established in the background when the first operation is issued
// (or Ready is called). Operations issued while connecting wait until the adapter is ready
// or their context ends.
type Endb struct {
	desc    Descriptor
	factory Factory
	codec   codec.Codec
	logger  *slog.Logger
	onError func(error)
	metrics opMetrics

	state     atomic.Int32
	destroyed atomic.Bool
	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc

	// ready is closed when the connection attempt finished.
	// adapter and connErr are only read after that.
	ready   chan struct{}
	adapter Adapter
	connErr error
}

// New creates a new Endb for the given connection string.
// The scheme of the connection string (or options.Adapter) selects the adapter,
// whose package must have been imported, for example:
//
//	import _ "github.com/endb-go/endb/sqlite"
//
//	db, err := endb.New("sqlite://data/endb.db", endb.DefaultOptions)
//
// An empty connection string selects the in-memory adapter.
// New only validates the options; connection errors are reported by the first operation,
// by Ready and through options.OnError.
//
// You must call the Close() method on the Endb when you're done working with it.
func New(uri string, options Options) (*Endb, error) {
	desc, err := newDescriptor(uri, &options)
	if err != nil {
		return nil, err
	}
	factory, err := lookup(desc.Adapter)
	if err != nil {
		return nil, err
	}

	return &Endb{
		desc:    desc,
		factory: factory,
		codec:   options.Codec,
		logger:  desc.Logger,
		onError: options.OnError,
		metrics: opMetrics{adapter: desc.Adapter},
		ready:   make(chan struct{}),
	}, nil
}

// Multi creates one Endb per name, each using the name as namespace,
// all pointing to the same backend.
func Multi(uri string, names []string, options Options) (map[string]*Endb, error) {
	if len(names) == 0 {
		return nil, Validationf("names must contain at least one name")
	}
	result := make(map[string]*Endb, len(names))
	for _, name := range names {
		opts := options
		opts.Namespace = name
		db, err := New(uri, opts)
		if err != nil {
			for _, created := range result {
				_ = created.Close()
			}
			return nil, err
		}
		result[name] = db
	}
	return result, nil
}

// Namespace returns the namespace of the Endb.
func (db *Endb) Namespace() string {
	return db.desc.Namespace
}

// Adapter returns the name of the adapter, for example "sqlite".
func (db *Endb) Adapter() string {
	return db.desc.Adapter
}

// State returns the current lifecycle state.
func (db *Endb) State() State {
	return State(db.state.Load())
}

// Ready starts connecting if that didn't happen yet and waits until the adapter is ready.
func (db *Endb) Ready(ctx context.Context) error {
	_, err := db.acquire(ctx, "ready")
	return err
}

// Get retrieves the stored value for the given key.
// If no value is found it returns (nil, false, nil). A stored null is returned as (nil, true, nil).
// With the default codec values come back as generic JSON values
// (map[string]any, []any, float64, string, bool, nil) or []byte. See GetAs for typed values.
func (db *Endb) Get(ctx context.Context, key Key) (value any, found bool, err error) {
	k, err := checkKey("get", key)
	if err != nil {
		return nil, false, err
	}
	pk := namespace.Wrap(db.desc.Namespace, k)

	err = db.do(ctx, "get", func(a Adapter) error {
		data, ok, err := a.Get(ctx, pk)
		if err != nil || !ok {
			return err
		}
		v, err := db.codec.Decode(data)
		if err != nil {
			return newError("get", ErrSerialization, err)
		}
		if codec.IsUndefined(v) {
			return nil
		}
		value, found = v, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// GetAs retrieves the stored value for the given key and converts it to T.
// Structs are populated by their json tags. If no value is found it returns the zero value and false.
func GetAs[T any](ctx context.Context, db *Endb, key Key) (T, bool, error) {
	var result T
	v, found, err := db.Get(ctx, key)
	if err != nil || !found {
		return result, found, err
	}
	if typed, ok := v.(T); ok {
		return typed, true, nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &result,
		TagName:    "json",
		DecodeHook: base64Hook,
	})
	if err != nil {
		return result, true, newError("get", ErrSerialization, err)
	}
	if err := decoder.Decode(v); err != nil {
		return result, true, newError("get", ErrSerialization, err)
	}
	return result, true, nil
}

// base64Hook turns the base64 strings that encoding/json produces for []byte struct fields
// back into bytes.
func base64Hook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.String && to == reflect.TypeOf([]byte(nil)) {
		return base64.StdEncoding.DecodeString(data.(string))
	}
	return data, nil
}

// Has reports whether a value is stored for the given key.
func (db *Endb) Has(ctx context.Context, key Key) (bool, error) {
	_, found, err := db.Get(ctx, key)
	return found, err
}

// Set stores the given value for the given key, overwriting any existing value.
// It returns after the backend accepted the write.
// The value must not be codec.Undefined.
func (db *Endb) Set(ctx context.Context, key Key, value any) error {
	k, err := checkKey("set", key)
	if err != nil {
		return err
	}
	if codec.IsUndefined(value) {
		return newError("set", ErrTypeValidation, errors.New("the passed value is undefined, which is not allowed"))
	}
	data, err := db.codec.Encode(value)
	if err != nil {
		return newError("set", ErrSerialization, err)
	}
	pk := namespace.Wrap(db.desc.Namespace, k)

	return db.do(ctx, "set", func(a Adapter) error {
		return a.Set(ctx, pk, data)
	})
}

// Delete deletes the stored value for the given key.
// It returns true if a value existed. Deleting a non-existing key-value pair does NOT lead to an error.
func (db *Endb) Delete(ctx context.Context, key Key) (bool, error) {
	k, err := checkKey("delete", key)
	if err != nil {
		return false, err
	}
	pk := namespace.Wrap(db.desc.Namespace, k)

	var deleted bool
	err = db.do(ctx, "delete", func(a Adapter) error {
		var err error
		deleted, err = a.Delete(ctx, pk)
		return err
	})
	return deleted, err
}

// Clear deletes all key-value pairs of this Endb's namespace.
func (db *Endb) Clear(ctx context.Context) error {
	return db.do(ctx, "clear", func(a Adapter) error {
		return a.Clear(ctx)
	})
}

// All returns all key-value pairs of this Endb's namespace, with logical keys.
// It fails with ErrNotSupported if the adapter can't enumerate its entries.
func (db *Endb) All(ctx context.Context) (map[string]any, error) {
	return db.all(ctx, "all")
}

func (db *Endb) all(ctx context.Context, op string) (map[string]any, error) {
	var result map[string]any
	err := db.do(ctx, op, func(a Adapter) error {
		e, ok := a.(Enumerator)
		if !ok {
			return newError(op, ErrNotSupported, nil)
		}
		entries, err := e.All(ctx)
		if err != nil {
			return err
		}
		result = make(map[string]any, len(entries))
		for pk, data := range entries {
			if !namespace.Matches(pk, db.desc.Namespace) {
				continue
			}
			v, err := db.codec.Decode(data)
			if err != nil {
				return newError(op, ErrSerialization, err)
			}
			if codec.IsUndefined(v) {
				continue
			}
			result[namespace.Strip(pk, db.desc.Namespace)] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Find returns the key-value pairs of this Endb's namespace whose logical key starts with prefix.
// Like All it fails with ErrNotSupported if the adapter can't enumerate its entries.
func (db *Endb) Find(ctx context.Context, prefix string) (map[string]any, error) {
	all, err := db.all(ctx, "find")
	if err != nil {
		return nil, err
	}
	for k := range all {
		if !strings.HasPrefix(k, prefix) {
			delete(all, k)
		}
	}
	return all, nil
}

type export struct {
	Namespace  string         `json:"namespace"`
	Adapter    string         `json:"adapter"`
	ExportDate time.Time      `json:"exportDate"`
	Data       map[string]any `json:"data"`
}

// Export returns all key-value pairs of the namespace as indented JSON document
// with the fields namespace, adapter, exportDate and data.
func (db *Endb) Export(ctx context.Context) ([]byte, error) {
	data, err := db.All(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(export{
		Namespace:  db.desc.Namespace,
		Adapter:    db.desc.Adapter,
		ExportDate: time.Now().UTC(),
		Data:       data,
	}, "", "  ")
}

// Close closes the adapter's connection. It's terminal: all later calls fail with ErrDestroyed.
// Closing an Endb that is still connecting aborts the connection attempt.
func (db *Endb) Close() error {
	var err error = newError("close", ErrDestroyed, nil)
	db.closeOnce.Do(func() {
		err = nil
		db.destroyed.Store(true)
		db.state.Store(int32(StateClosed))
		// If no connection was ever started there's nothing to wait for.
		db.startOnce.Do(func() {
			close(db.ready)
		})
		if db.cancel != nil {
			db.cancel()
		}
		<-db.ready
		if db.adapter != nil {
			err = db.adapter.Close()
			db.logger.Debug("closed")
		}
	})
	return err
}

// Destroy deletes all key-value pairs of this Endb's namespace and closes it.
// The table / collection / bucket itself is kept, other namespaces may still use it.
func (db *Endb) Destroy(ctx context.Context) error {
	if err := db.Clear(ctx); err != nil {
		return err
	}
	return db.Close()
}

// start launches the connection attempt once.
func (db *Endb) start() {
	db.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		db.cancel = cancel
		db.state.Store(int32(StateConnecting))
		go db.connect(ctx)
	})
}

func (db *Endb) connect(ctx context.Context) {
	defer close(db.ready)

	db.logger.Debug("connecting")
	adapter, err := db.factory(ctx, db.desc)
	if err != nil {
		db.connErr = newError("connect", ErrConnection, err)
		db.state.Store(int32(StateClosed))
		// A failure caused by Close isn't worth reporting.
		if !db.destroyed.Load() {
			db.logger.Error("connection failed", "error", err)
			db.notify(db.connErr)
		}
		return
	}
	db.adapter = adapter
	if db.state.CompareAndSwap(int32(StateConnecting), int32(StateReady)) {
		db.logger.Debug("ready")
	}
}

// acquire waits for the adapter.
func (db *Endb) acquire(ctx context.Context, op string) (Adapter, error) {
	if db.destroyed.Load() {
		return nil, newError(op, ErrDestroyed, nil)
	}
	db.start()
	select {
	case <-db.ready:
	case <-ctx.Done():
		return nil, newError(op, ErrNotReady, ctx.Err())
	}
	if db.destroyed.Load() {
		return nil, newError(op, ErrDestroyed, nil)
	}
	if db.connErr != nil {
		return nil, db.connErr
	}
	return db.adapter, nil
}

// do runs fn with the adapter and takes care of error classification, reporting and metrics.
func (db *Endb) do(ctx context.Context, op string, fn func(Adapter) error) error {
	start := time.Now()
	a, err := db.acquire(ctx, op)
	if err == nil {
		if err = fn(a); err != nil {
			err = classify(op, ErrOperation, err)
		}
	}
	db.metrics.observe(op, start, err)
	if err != nil && !errors.Is(err, ErrTypeValidation) {
		// The connection error was already reported by connect.
		if !errors.Is(err, ErrConnection) || err != db.connErr {
			db.logger.Warn("operation failed", "op", op, "error", err)
			db.notify(err)
		}
	}
	return err
}

func (db *Endb) notify(err error) {
	if db.onError != nil {
		db.onError(err)
	}
}
