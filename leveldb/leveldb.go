package leveldb

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	ldbutil "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/endb-go/endb"
	"github.com/endb-go/endb/namespace"
	"github.com/endb-go/endb/util"
)

// handles lets clients with different namespaces use the same directory,
// which LevelDB only allows to be opened once.
var handles util.Handles[*handle]

type handle struct {
	db *leveldb.DB
	// deleteMu makes Has + Delete atomic, so only one of several concurrent deletes reports true.
	deleteMu sync.Mutex
}

func init() {
	endb.Register(func(_ context.Context, d endb.Descriptor) (endb.Adapter, error) {
		return NewStore(Options{
			Path:      d.Location,
			WriteSync: d.Params.Get("sync") == "true",
			Namespace: d.Namespace,
		})
	}, "leveldb")
}

// Store is an endb.Adapter implementation for LevelDB.
type Store struct {
	db        *leveldb.DB
	deleteMu  *sync.Mutex
	path      string
	writeSync bool
	namespace string
	guard     *util.Guard
}

// Set stores the given value for the given key.
// The key must not be "".
func (s Store) Set(_ context.Context, k, v string) error {
	if err := s.check(k); err != nil {
		return err
	}

	return s.db.Put([]byte(k), []byte(v), s.writeOptions())
}

// Get retrieves the stored value for the given key.
// If no value is found it returns ("", false, nil).
// The key must not be "".
func (s Store) Get(_ context.Context, k string) (string, bool, error) {
	if err := s.check(k); err != nil {
		return "", false, err
	}

	data, err := s.db.Get([]byte(k), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

// Delete deletes the stored value for the given key.
// Deleting a non-existing key-value pair does NOT lead to an error.
// The key must not be "".
func (s Store) Delete(_ context.Context, k string) (bool, error) {
	if err := s.check(k); err != nil {
		return false, err
	}

	s.deleteMu.Lock()
	defer s.deleteMu.Unlock()
	found, err := s.db.Has([]byte(k), nil)
	if err != nil || !found {
		return false, err
	}
	return true, s.db.Delete([]byte(k), s.writeOptions())
}

// Clear deletes all key-value pairs of the store's namespace in one batch.
func (s Store) Clear(_ context.Context) error {
	if err := s.guard.Check(); err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	iter := s.db.NewIterator(ldbutil.BytesPrefix([]byte(namespace.Prefix(s.namespace))), nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}
	return s.db.Write(batch, s.writeOptions())
}

// All returns all key-value pairs of the store's namespace.
func (s Store) All(_ context.Context) (map[string]string, error) {
	if err := s.guard.Check(); err != nil {
		return nil, err
	}

	result := make(map[string]string)
	iter := s.db.NewIterator(ldbutil.BytesPrefix([]byte(namespace.Prefix(s.namespace))), nil)
	for iter.Next() {
		result[string(iter.Key())] = string(iter.Value())
	}
	iter.Release()
	return result, iter.Error()
}

// Close closes the store.
// The database is closed when the last store that uses it is closed.
// It must be called to make sure that all open transactions finish and to release all DB resources.
func (s Store) Close() error {
	if !s.guard.Close() {
		return nil
	}
	return handles.Release(s.path, func(h *handle) error {
		return h.db.Close()
	})
}

func (s Store) writeOptions() *opt.WriteOptions {
	if s.writeSync {
		return &opt.WriteOptions{
			Sync: true,
		}
	}
	return nil
}

func (s Store) check(k string) error {
	if err := s.guard.Check(); err != nil {
		return err
	}
	return util.CheckKey(k)
}

// Options are the options for the LevelDB store.
type Options struct {
	// Path of the DB files.
	// Optional ("leveldb" by default).
	Path string
	// If true, the write operations will be synchronously flushed from the operating system buffer cache to disk.
	// Only "true" in the "sync" parameter of the connection string sets it.
	// Optional (false by default).
	WriteSync bool
	// Namespace of the keys, used by Clear and All.
	// Optional ("endb" by default).
	Namespace string
}

// DefaultOptions is an Options object with default values.
// Path: "leveldb", WriteSync: false, Namespace: "endb"
var DefaultOptions = Options{
	Path:      "leveldb",
	Namespace: "endb",
}

// NewStore creates a new LevelDB store.
//
// You must call the Close() method on the store when you're done working with it.
func NewStore(options Options) (Store, error) {
	result := Store{}

	// Set default values
	if options.Path == "" {
		options.Path = DefaultOptions.Path
	}
	if options.Namespace == "" {
		options.Namespace = DefaultOptions.Namespace
	}

	path, err := filepath.Abs(options.Path)
	if err != nil {
		return result, err
	}
	h, err := handles.Acquire(path, func() (*handle, error) {
		db, err := leveldb.OpenFile(path, nil)
		if err != nil {
			return nil, err
		}
		return &handle{db: db}, nil
	})
	if err != nil {
		return result, err
	}

	result.db = h.db
	result.deleteMu = &h.deleteMu
	result.path = path
	result.writeSync = options.WriteSync
	result.namespace = options.Namespace
	result.guard = new(util.Guard)

	return result, nil
}
