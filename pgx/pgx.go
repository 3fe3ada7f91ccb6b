// Package pgx implements an adapter for PostgreSQL that uses a native pgx connection pool
// instead of database/sql.
package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/endb-go/endb"
	"github.com/endb-go/endb/namespace"
	"github.com/endb-go/endb/postgresql"
	"github.com/endb-go/endb/sql"
	"github.com/endb-go/endb/util"
)

func init() {
	endb.Register(func(ctx context.Context, d endb.Descriptor) (endb.Adapter, error) {
		connString, err := postgresql.ConnectionURL(d.URI, "postgres", d.Timeout)
		if err != nil {
			return nil, err
		}
		pool, err := pgxpool.New(ctx, connString)
		if err != nil {
			return nil, err
		}
		client, err := NewClient(ctx, Options{
			Pool:      pool,
			TableName: d.Table,
			Namespace: d.Namespace,
			KeySize:   d.KeySize,
		})
		if err != nil {
			pool.Close()
			return nil, err
		}
		return client, nil
	}, "pgx")
}

// Options are the options for the pgx client.
type Options struct {
	// Pool is the connection pool, which the client closes when it's closed.
	// Mandatory.
	Pool *pgxpool.Pool
	// Name of the table in which the key-value pairs are stored.
	// Optional ("endb" by default).
	TableName string
	// Namespace of the keys, used by Clear and All.
	// Optional ("endb" by default).
	Namespace string
	// Maximum length of a key, used as VARCHAR size of the key column.
	// Optional (255 by default).
	KeySize int
}

var defaultOptions = Options{
	TableName: "endb",
	Namespace: "endb",
	KeySize:   255,
}

// Client is an endb.Adapter implementation for PostgreSQL via pgx.
type Client struct {
	pool      *pgxpool.Pool
	tableName string
	namespace string
	keySize   int
	guard     *util.Guard

	upsertStmt string
	getStmt    string
	deleteStmt string
	clearStmt  string
	allStmt    string
}

// NewClient creates a new pgx client and creates its table if it doesn't exist yet.
//
// You must call the Close() method on the client when you're done working with it.
func NewClient(ctx context.Context, options Options) (*Client, error) {
	if options.Pool == nil {
		return nil, errors.New("the Pool in the options must not be nil")
	}

	if options.TableName == "" {
		options.TableName = defaultOptions.TableName
	}
	if options.Namespace == "" {
		options.Namespace = defaultOptions.Namespace
	}
	if options.KeySize == 0 {
		options.KeySize = defaultOptions.KeySize
	}

	t := sql.QuoteDouble(options.TableName)
	k := sql.QuoteDouble(sql.KeyColumn)
	v := sql.QuoteDouble(sql.ValueColumn)
	client := &Client{
		pool:       options.Pool,
		tableName:  options.TableName,
		namespace:  options.Namespace,
		keySize:    options.KeySize,
		guard:      new(util.Guard),
		upsertStmt: postgresql.Dialect.Upsert(t, k, v),
		getStmt:    fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", v, t, k),
		deleteStmt: fmt.Sprintf("DELETE FROM %s WHERE %s = $1", t, k),
		clearStmt:  fmt.Sprintf("DELETE FROM %s WHERE %s LIKE $1 ESCAPE '!'", t, k),
		allStmt:    fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s LIKE $1 ESCAPE '!'", k, v, t, k),
	}

	_, err := client.pool.Exec(ctx, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s VARCHAR(%d) PRIMARY KEY, %s TEXT NOT NULL)",
		t, k, options.KeySize, v))
	if err != nil {
		return nil, err
	}

	return client, nil
}

// TableName returns the name of the table in which the key-value pairs are stored.
func (c *Client) TableName() string {
	return c.tableName
}

// Set stores the given value for the given key.
func (c *Client) Set(ctx context.Context, k, v string) error {
	if err := c.check(k); err != nil {
		return err
	}

	_, err := c.pool.Exec(ctx, c.upsertStmt, k, v)
	return err
}

// Get retrieves the stored value for the given key.
func (c *Client) Get(ctx context.Context, k string) (string, bool, error) {
	if err := c.check(k); err != nil {
		return "", false, err
	}

	var v string
	err := c.pool.QueryRow(ctx, c.getStmt, k).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

// Delete deletes the stored value for the given key.
func (c *Client) Delete(ctx context.Context, k string) (bool, error) {
	if err := c.check(k); err != nil {
		return false, err
	}

	tag, err := c.pool.Exec(ctx, c.deleteStmt, k)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Clear deletes all key-value pairs of the client's namespace.
func (c *Client) Clear(ctx context.Context) error {
	if err := c.guard.Check(); err != nil {
		return err
	}

	_, err := c.pool.Exec(ctx, c.clearStmt, sql.EscapeLike(namespace.Prefix(c.namespace))+"%")
	return err
}

// All returns all key-value pairs of the client's namespace.
func (c *Client) All(ctx context.Context) (map[string]string, error) {
	if err := c.guard.Check(); err != nil {
		return nil, err
	}

	rows, err := c.pool.Query(ctx, c.allStmt, sql.EscapeLike(namespace.Prefix(c.namespace))+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		result[k] = v
	}
	return result, rows.Err()
}

// Close closes the connection pool.
func (c *Client) Close() error {
	if c.guard.Close() {
		c.pool.Close()
	}
	return nil
}

func (c *Client) check(k string) error {
	if err := c.guard.Check(); err != nil {
		return err
	}
	if err := util.CheckKey(k); err != nil {
		return err
	}
	return util.CheckKeySize(k, c.keySize)
}
