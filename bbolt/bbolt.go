package bbolt

import (
	"bytes"
	"context"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/endb-go/endb"
	"github.com/endb-go/endb/namespace"
	"github.com/endb-go/endb/util"
)

// handles lets stores with different namespaces or buckets use the same file,
// which bbolt locks exclusively.
var handles util.Handles[*bolt.DB]

func init() {
	endb.Register(func(_ context.Context, d endb.Descriptor) (endb.Adapter, error) {
		return NewStore(Options{
			Path:       d.Location,
			BucketName: d.Table,
			Namespace:  d.Namespace,
			Timeout:    d.Timeout,
		})
	}, "bolt", "bbolt")
}

// Store is an endb.Adapter implementation for bbolt (formerly known as Bolt / Bolt DB).
type Store struct {
	db         *bolt.DB
	path       string
	bucketName []byte
	namespace  string
	guard      *util.Guard
}

// Set stores the given value for the given key.
// The key must not be "".
func (s Store) Set(_ context.Context, k, v string) error {
	if err := s.check(k); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucketName)
		return b.Put([]byte(k), []byte(v))
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
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucketName)
		txData := b.Get([]byte(k))
		// txData is only valid during the transaction.
		if txData != nil {
			data = make([]byte, len(txData))
			copy(data, txData)
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}

	// If no value was found return false
	if data == nil {
		return "", false, nil
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
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucketName)
		if b.Get([]byte(k)) == nil {
			return nil
		}
		deleted = true
		return b.Delete([]byte(k))
	})
	return deleted, err
}

// Clear deletes all key-value pairs of the store's namespace in one transaction.
func (s Store) Clear(_ context.Context) error {
	if err := s.guard.Check(); err != nil {
		return err
	}

	prefix := []byte(namespace.Prefix(s.namespace))
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucketName)
		// Deleting through the cursor while iterating skips entries, so collect first.
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// All returns all key-value pairs of the store's namespace.
func (s Store) All(_ context.Context) (map[string]string, error) {
	if err := s.guard.Check(); err != nil {
		return nil, err
	}

	prefix := []byte(namespace.Prefix(s.namespace))
	result := make(map[string]string)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucketName).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			result[string(k)] = string(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Close closes the store.
// The file is closed when the last store that uses it is closed.
// It must be called to make sure that all open transactions finish and to release all DB resources.
func (s Store) Close() error {
	if !s.guard.Close() {
		return nil
	}
	return handles.Release(s.path, func(db *bolt.DB) error {
		return db.Close()
	})
}

func (s Store) check(k string) error {
	if err := s.guard.Check(); err != nil {
		return err
	}
	return util.CheckKey(k)
}

// Options are the options for the bbolt store.
type Options struct {
	// Bucket name for storing the key-value pairs.
	// Optional ("endb" by default).
	BucketName string
	// Path of the DB file. Missing parent directories are created.
	// Optional ("bbolt.db" by default).
	Path string
	// Namespace of the keys, used by Clear and All.
	// Optional ("endb" by default).
	Namespace string
	// How long to wait for the file lock if another process has the file open.
	// Optional (5 seconds by default).
	Timeout time.Duration
}

// DefaultOptions is an Options object with default values.
// BucketName: "endb", Path: "bbolt.db", Namespace: "endb", Timeout: 5s
var DefaultOptions = Options{
	BucketName: "endb",
	Path:       "bbolt.db",
	Namespace:  "endb",
	Timeout:    5 * time.Second,
}

// NewStore creates a new bbolt store.
// Note: bbolt uses an exclusive write lock on the database file so it cannot be shared by multiple processes.
// So when creating multiple stores in one process for the same file, the file handle is shared.
//
// You must call the Close() method on the store when you're done working with it.
func NewStore(options Options) (Store, error) {
	result := Store{}

	// Set default values
	if options.BucketName == "" {
		options.BucketName = DefaultOptions.BucketName
	}
	if options.Path == "" {
		options.Path = DefaultOptions.Path
	}
	if options.Namespace == "" {
		options.Namespace = DefaultOptions.Namespace
	}
	if options.Timeout == 0 {
		options.Timeout = DefaultOptions.Timeout
	}

	path, err := filepath.Abs(options.Path)
	if err != nil {
		return result, err
	}
	if err := util.CreateAllDirs(path, 0o700); err != nil {
		return result, err
	}
	db, err := handles.Acquire(path, func() (*bolt.DB, error) {
		return bolt.Open(path, 0o600, &bolt.Options{Timeout: options.Timeout})
	})
	if err != nil {
		return result, err
	}

	// Create a bucket if it doesn't exist yet.
	// In bbolt key/value pairs are stored to and read from buckets.
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(options.BucketName))
		return err
	})
	if err != nil {
		_ = handles.Release(path, func(db *bolt.DB) error { return db.Close() })
		return result, err
	}

	result = Store{
		db:         db,
		path:       path,
		bucketName: []byte(options.BucketName),
		namespace:  options.Namespace,
		guard:      new(util.Guard),
	}

	return result, nil
}
