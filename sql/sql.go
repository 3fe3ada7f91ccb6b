// Package sql contains the parts that the adapters for relational databases share.
// It isn't an adapter itself.
package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/endb-go/endb/namespace"
	"github.com/endb-go/endb/util"
)

const (
	// KeyColumn is the name of the column that holds the physical keys.
	KeyColumn = "key"
	// ValueColumn is the name of the column that holds the encoded values.
	ValueColumn = "value"

	// likeEscape is used instead of a backslash because MySQL treats backslashes in string literals specially.
	likeEscape = "!"
)

// Dialect describes how a database spells the statements the client needs.
type Dialect struct {
	// Quote quotes an identifier.
	Quote func(ident string) string
	// Param returns the placeholder of the n-th (1-based) statement parameter.
	Param func(n int) string
	// Upsert returns the statement that inserts or overwrites a key-value pair.
	// The statement's parameters are the key and the value.
	Upsert func(table, key, value string) string
	// Glob makes Clear and All match the namespace prefix with SQLite's GLOB operator,
	// because SQLite's LIKE ignores case.
	Glob bool
}

// Client is an endb.Adapter implementation for SQL databases.
type Client struct {
	C          *sql.DB
	UpsertStmt *sql.Stmt
	GetStmt    *sql.Stmt
	DeleteStmt *sql.Stmt
	ClearStmt  *sql.Stmt
	AllStmt    *sql.Stmt

	namespace string
	keySize   int
	glob      bool
	guard     *util.Guard
}

// NewClient prepares the statements for the given table, which must exist already.
// keySize is the maximum length of a physical key, a value <= 0 means no limit.
// On error the DB is NOT closed.
func NewClient(ctx context.Context, db *sql.DB, d Dialect, table, ns string, keySize int) (*Client, error) {
	t := d.Quote(table)
	k := d.Quote(KeyColumn)
	v := d.Quote(ValueColumn)

	// Prepared statements are reused for every operation.
	// See http://go-database-sql.org/prepared.html for how they work in Go.
	match := fmt.Sprintf("%s LIKE %s ESCAPE '%s'", k, d.Param(1), likeEscape)
	if d.Glob {
		match = fmt.Sprintf("%s GLOB %s", k, d.Param(1))
	}
	queries := []string{
		d.Upsert(t, k, v),
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s", v, t, k, d.Param(1)),
		fmt.Sprintf("DELETE FROM %s WHERE %s = %s", t, k, d.Param(1)),
		fmt.Sprintf("DELETE FROM %s WHERE %s", t, match),
		fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s", k, v, t, match),
	}
	stmts := make([]*sql.Stmt, len(queries))
	for i, q := range queries {
		stmt, err := db.PrepareContext(ctx, q)
		if err != nil {
			for _, prepared := range stmts[:i] {
				_ = prepared.Close()
			}
			return nil, fmt.Errorf("couldn't prepare statement %q: %w", q, err)
		}
		stmts[i] = stmt
	}

	return &Client{
		C:          db,
		UpsertStmt: stmts[0],
		GetStmt:    stmts[1],
		DeleteStmt: stmts[2],
		ClearStmt:  stmts[3],
		AllStmt:    stmts[4],
		namespace:  ns,
		keySize:    keySize,
		glob:       d.Glob,
		guard:      new(util.Guard),
	}, nil
}

// Set stores the given value for the given key.
// The key must not be "" and must not be longer than the key size.
func (c *Client) Set(ctx context.Context, k, v string) error {
	if err := c.check(k); err != nil {
		return err
	}

	_, err := c.UpsertStmt.ExecContext(ctx, k, v)
	return err
}

// Get retrieves the stored value for the given key.
// If no value is found it returns ("", false, nil).
// The key must not be "".
func (c *Client) Get(ctx context.Context, k string) (string, bool, error) {
	if err := c.check(k); err != nil {
		return "", false, err
	}

	var v string
	err := c.GetStmt.QueryRowContext(ctx, k).Scan(&v)
	// If no value was found return false
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Delete deletes the stored value for the given key.
// Deleting a non-existing key-value pair does NOT lead to an error.
// The key must not be "".
func (c *Client) Delete(ctx context.Context, k string) (bool, error) {
	if err := c.check(k); err != nil {
		return false, err
	}

	res, err := c.DeleteStmt.ExecContext(ctx, k)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear deletes all rows whose key starts with the client's namespace prefix.
func (c *Client) Clear(ctx context.Context) error {
	if err := c.guard.Check(); err != nil {
		return err
	}

	_, err := c.ClearStmt.ExecContext(ctx, c.pattern())
	return err
}

// All returns all key-value pairs of the client's namespace.
func (c *Client) All(ctx context.Context) (map[string]string, error) {
	if err := c.guard.Check(); err != nil {
		return nil, err
	}

	rows, err := c.AllStmt.QueryContext(ctx, c.pattern())
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

// Close closes the client.
// It must be called to return all open connections to the connection pool and to release any open resources.
func (c *Client) Close() error {
	if !c.guard.Close() {
		return nil
	}
	for _, stmt := range []*sql.Stmt{c.UpsertStmt, c.GetStmt, c.DeleteStmt, c.ClearStmt, c.AllStmt} {
		_ = stmt.Close()
	}
	return c.C.Close()
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

// pattern returns the LIKE or GLOB pattern that matches all keys of the namespace.
func (c *Client) pattern() string {
	if c.glob {
		return EscapeGlob(namespace.Prefix(c.namespace)) + "*"
	}
	return EscapeLike(namespace.Prefix(c.namespace)) + "%"
}

// EscapeLike escapes the LIKE wildcards in s.
func EscapeLike(s string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(s)
}

// EscapeGlob escapes the GLOB wildcards in s.
func EscapeGlob(s string) string {
	r := strings.NewReplacer("[", "[[]", "*", "[*]", "?", "[?]")
	return r.Replace(s)
}

// QuoteDouble quotes an identifier with double quotes, as in standard SQL.
func QuoteDouble(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// QuoteBacktick quotes an identifier with backticks, as in MySQL.
func QuoteBacktick(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// DollarParam returns "$n", the placeholder style of PostgreSQL and SQLite.
func DollarParam(n int) string {
	return fmt.Sprintf("$%d", n)
}

// QuestionParam returns "?", the placeholder style of MySQL.
func QuestionParam(int) string {
	return "?"
}

// CreateDB creates a database with the given name.
// Note 1: When the DataSourceName already contained a database name
// but it doesn't exist yet (error 1049 occurred during Ping()),
// the same error will occur when trying to create the database.
// So this method is only useful when the DataSourceName did NOT contain a database name.
// Note 2: Prepared statements cannot be used for creating and using databases,
// so dbName is quoted with the given function.
func CreateDB(ctx context.Context, db *sql.DB, dbName string, quote func(string) string) error {
	_, err := db.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+quote(dbName))
	return err
}
