package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/endb-go/endb"
	"github.com/endb-go/endb/redis"
	"github.com/endb-go/endb/test"
)

// uri returns the connection string of the Redis server to test against,
// for example "redis://localhost:6379/1".
func uri(t *testing.T) string {
	u := os.Getenv("ENDB_TEST_REDIS_URI")
	if u == "" {
		t.Skip("ENDB_TEST_REDIS_URI isn't set")
	}
	return u
}

// TestClient tests if reading from, writing to and deleting from the client works properly.
func TestClient(t *testing.T) {
	db := createEndb(t, "endb")
	require.NoError(t, db.Ready(context.Background()))
	test.TestEndb(db, t)
	test.TestTypes(db, t)
}

func TestNamespaces(t *testing.T) {
	test.TestNamespaces(createEndb(t, "users"), createEndb(t, "sessions"), t)
}

func TestConcurrent(t *testing.T) {
	test.TestConcurrent(createEndb(t, "endb"), 200, t)
}

func TestParseURI(t *testing.T) {
	opts, err := redis.ParseURI("redis://:secret@cache.example.com:6380/2?timeout=100", time.Second)
	require.NoError(t, err)
	require.Equal(t, "cache.example.com:6380", opts.Addr)
	require.Equal(t, "secret", opts.Password)
	require.Equal(t, 2, opts.DB)
	require.Equal(t, time.Second, opts.DialTimeout)
}

func TestAdapter(t *testing.T) {
	client := createClient(t, "a")
	other := createClient(t, "b")

	test.TestAdapter(client, "a", t)
	test.TestClear(client, "a", other, "b", t)
	test.TestAll(client, "a", t)
}

func TestClosed(t *testing.T) {
	opts, err := redis.ParseURI(uri(t), 0)
	require.NoError(t, err)
	client, err := redis.NewClient(context.Background(), redis.Options{RedisOptions: opts})
	require.NoError(t, err)
	test.TestClosed(client, "endb", t)
}

func createClient(t *testing.T, ns string) redis.Client {
	opts, err := redis.ParseURI(uri(t), 0)
	require.NoError(t, err)
	client, err := redis.NewClient(context.Background(), redis.Options{
		Namespace:    ns,
		RedisOptions: opts,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func createEndb(t *testing.T, ns string) *endb.Endb {
	options := endb.DefaultOptions
	options.Namespace = ns
	db, err := endb.New(uri(t), options)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
