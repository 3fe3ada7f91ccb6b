package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"github.com/endb-go/endb"
	"github.com/endb-go/endb/namespace"
	"github.com/endb-go/endb/util"
)

// InMemory is the directory that makes BadgerDB keep all data in memory.
const InMemory = ":memory:"

// handles lets stores with different namespaces use the same directory,
// which BadgerDB only allows to be opened once.
var handles util.Handles[*badger.DB]

func init() {
	endb.Register(func(_ context.Context, d endb.Descriptor) (endb.Adapter, error) {
		return NewStore(Options{
			Dir:       d.Location,
			Namespace: d.Namespace,
			Logger:    d.Logger,
		})
	}, "badger", "badgerdb")
}

// badgerLogger forwards BadgerDB's log output to slog.
type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (bl *badgerLogger) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLogger) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLogger) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLogger) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Store is an endb.Adapter implementation for BadgerDB.
type Store struct {
	db        *badger.DB
	dir       string
	namespace string
	guard     *util.Guard
}

// Set stores the given value for the given key.
// The key must not be "".
func (s Store) Set(_ context.Context, k, v string) error {
	if err := s.check(k); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(k), []byte(v))
	})
}

// Get retrieves the stored value for the given key.
// If no value is found it returns ("", false, nil).
// The key must not be "".
func (s Store) Get(_ context.Context, k string) (string, bool, error) {
	if err := s.check(k); err != nil {
		return "", false, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(k))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	} else if err != nil {
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

	deleted := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(k))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		deleted = true
		return txn.Delete([]byte(k))
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// Clear deletes all key-value pairs of the store's namespace.
func (s Store) Clear(_ context.Context) error {
	if err := s.guard.Check(); err != nil {
		return err
	}

	return s.db.DropPrefix([]byte(namespace.Prefix(s.namespace)))
}

// All returns all key-value pairs of the store's namespace.
func (s Store) All(_ context.Context) (map[string]string, error) {
	if err := s.guard.Check(); err != nil {
		return nil, err
	}

	result := make(map[string]string)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(namespace.Prefix(s.namespace))
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result[string(item.Key())] = string(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Close closes the store.
// The database is closed when the last store that uses it is closed.
// It must be called to make sure that all pending updates make their way to disk.
func (s Store) Close() error {
	if !s.guard.Close() {
		return nil
	}
	if s.dir == "" {
		return s.db.Close()
	}
	return handles.Release(s.dir, func(db *badger.DB) error {
		return db.Close()
	})
}

func (s Store) check(k string) error {
	if err := s.guard.Check(); err != nil {
		return err
	}
	return util.CheckKey(k)
}

// Options are the options for the BadgerDB store.
type Options struct {
	// Directory for storing the DB files.
	// ":memory:" keeps all data in memory, not shared with other stores.
	// Optional ("BadgerDB" by default).
	Dir string
	// Namespace of the keys, used by Clear and All.
	// Optional ("endb" by default).
	Namespace string
	// Logger for BadgerDB's own log output.
	// Optional (slog.Default() by default).
	Logger *slog.Logger
}

// DefaultOptions is an Options object with default values.
// Dir: "BadgerDB", Namespace: "endb"
var DefaultOptions = Options{
	Dir:       "BadgerDB",
	Namespace: "endb",
}

// NewStore creates a new BadgerDB store.
//
// You must call the Close() method on the store when you're done working with it.
func NewStore(options Options) (Store, error) {
	result := Store{}

	// Set default values
	if options.Dir == "" {
		options.Dir = DefaultOptions.Dir
	}
	if options.Namespace == "" {
		options.Namespace = DefaultOptions.Namespace
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	logger := &badgerLogger{logger: options.Logger.With("component", "badger")}

	var db *badger.DB
	var dir string
	var err error
	if options.Dir == InMemory {
		db, err = badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(logger))
	} else {
		dir, err = filepath.Abs(options.Dir)
		if err != nil {
			return result, err
		}
		db, err = handles.Acquire(dir, func() (*badger.DB, error) {
			return badger.Open(badger.DefaultOptions(dir).WithLogger(logger))
		})
	}
	if err != nil {
		return result, err
	}

	result.db = db
	result.dir = dir
	result.namespace = options.Namespace
	result.guard = new(util.Guard)

	return result, nil
}
