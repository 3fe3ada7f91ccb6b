package sqlite

import (
	"context"
	gosql "database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/endb-go/endb"
	"github.com/endb-go/endb/sql"
	"github.com/endb-go/endb/util"
)

const defaultName = "endb"

// InMemory is the path that makes SQLite keep the database in memory.
const InMemory = ":memory:"

func init() {
	endb.Register(func(ctx context.Context, d endb.Descriptor) (endb.Adapter, error) {
		options := Options{
			Path:      d.Location,
			TableName: d.Table,
			Namespace: d.Namespace,
			KeySize:   d.KeySize,
			Timeout:   d.Timeout,
		}
		// The busy timeout can also be set in the URI, in milliseconds.
		if ms := d.Params.Get("timeout"); ms != "" {
			n, err := strconv.Atoi(ms)
			if err != nil || n < 0 {
				return nil, endb.Validationf("invalid timeout %q in connection string", ms)
			}
			options.Timeout = time.Duration(n) * time.Millisecond
		}
		return NewClient(ctx, options)
	}, "sqlite", "sqlite3")
}

// Client is an endb.Adapter implementation for SQLite.
type Client struct {
	*sql.Client
}

// Options are the options for the SQLite client.
type Options struct {
	// Path of the database file. Missing parent directories are created.
	// Optional (":memory:" by default).
	Path string
	// Name of the table in which the key-value pairs are stored.
	// Optional ("endb" by default).
	TableName string
	// Namespace of the keys, used by Clear and All.
	// Optional ("endb" by default).
	Namespace string
	// Maximum length of a key.
	// Optional (255 by default).
	KeySize int
	// How long to wait for a lock held by another connection, for example another process.
	// Optional (5 seconds by default).
	Timeout time.Duration
}

// DefaultOptions is an Options object with default values.
var DefaultOptions = Options{
	Path:      InMemory,
	TableName: defaultName,
	Namespace: defaultName,
	KeySize:   255,
	Timeout:   5 * time.Second,
}

var dialect = sql.Dialect{
	Quote: sql.QuoteDouble,
	Param: sql.QuestionParam,
	Upsert: func(table, key, value string) string {
		return fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?) ON CONFLICT (%s) DO UPDATE SET %s = excluded.%s",
			table, key, value, key, value, value)
	},
	Glob: true,
}

// NewClient creates a new SQLite client and creates its table if it doesn't exist yet.
//
// You must call the Close() method on the client when you're done working with it.
func NewClient(ctx context.Context, options Options) (Client, error) {
	result := Client{}

	// Set default values
	if options.Path == "" {
		options.Path = DefaultOptions.Path
	}
	if options.TableName == "" {
		options.TableName = DefaultOptions.TableName
	}
	if options.Namespace == "" {
		options.Namespace = DefaultOptions.Namespace
	}
	if options.KeySize == 0 {
		options.KeySize = DefaultOptions.KeySize
	}
	if options.Timeout == 0 {
		options.Timeout = DefaultOptions.Timeout
	}

	if options.Path != InMemory {
		if err := util.CreateAllDirs(options.Path, 0o700); err != nil {
			return result, err
		}
	}

	db, err := gosql.Open("sqlite", dsn(options))
	if err != nil {
		return result, err
	}
	// One connection serializes all access, which SQLite does anyway,
	// and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()
		return result, err
	}

	// Create table if it doesn't exist yet.
	// Concurrent creation by several processes is fine thanks to IF NOT EXISTS and the busy timeout.
	q := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s VARCHAR(%d) PRIMARY KEY, %s TEXT NOT NULL)",
		sql.QuoteDouble(options.TableName), sql.QuoteDouble(sql.KeyColumn), options.KeySize, sql.QuoteDouble(sql.ValueColumn))
	_, err = db.ExecContext(ctx, q)
	if err != nil {
		_ = db.Close()
		return result, err
	}

	c, err := sql.NewClient(ctx, db, dialect, options.TableName, options.Namespace, options.KeySize)
	if err != nil {
		_ = db.Close()
		return result, err
	}
	result.Client = c

	return result, nil
}

// dsn returns the data source name with the pragmas every connection needs.
func dsn(options Options) string {
	pragmas := url.Values{}
	pragmas.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", options.Timeout.Milliseconds()))
	pragmas.Add("_pragma", "synchronous(NORMAL)")
	if options.Path != InMemory {
		pragmas.Add("_pragma", "journal_mode(WAL)")
	}
	return "file:" + uriPath.Replace(options.Path) + "?" + pragmas.Encode()
}

// uriPath escapes the characters that end or encode the path of an SQLite URI filename.
var uriPath = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")
