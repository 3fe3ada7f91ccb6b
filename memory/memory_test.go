package memory_test

import (
	"context"
	"testing"

	"github.com/endb-go/endb"
	"github.com/endb-go/endb/memory"
	"github.com/endb-go/endb/test"
)

// TestClient tests if reading from, writing to and deleting from the client works properly.
func TestClient(t *testing.T) {
	client := memory.NewClient(memory.DefaultOptions)
	defer client.Close()
	test.TestAdapter(client, "endb", t)
}

func TestClear(t *testing.T) {
	client := memory.NewClient(memory.Options{Name: "TestClear", Namespace: "a"})
	defer client.Close()
	other := memory.NewClient(memory.Options{Name: "TestClear", Namespace: "b"})
	defer other.Close()
	test.TestClear(client, "a", other, "b", t)
}

func TestAll(t *testing.T) {
	client := memory.NewClient(memory.Options{Name: "TestAll", Namespace: "a"})
	defer client.Close()
	other := memory.NewClient(memory.Options{Name: "TestAll", Namespace: "ab"})
	defer other.Close()
	if err := other.Set(context.Background(), "ab:foo", `"other"`); err != nil {
		t.Fatal(err)
	}
	test.TestAll(client, "a", t)
}

func TestClosed(t *testing.T) {
	test.TestClosed(memory.NewClient(memory.DefaultOptions), "endb", t)
}

// TestPrivateMaps tests that unnamed clients don't share their maps.
func TestPrivateMaps(t *testing.T) {
	ctx := context.Background()
	client := memory.NewClient(memory.DefaultOptions)
	defer client.Close()
	other := memory.NewClient(memory.DefaultOptions)
	defer other.Close()

	if err := client.Set(ctx, "endb:foo", `"bar"`); err != nil {
		t.Fatal(err)
	}
	_, found, err := other.Get(ctx, "endb:foo")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("A value was found in another private map")
	}
}

// TestEndb runs the facade tests with the memory adapter.
func TestEndb(t *testing.T) {
	db := createEndb(t, "memory://", "endb")
	test.TestEndb(db, t)
	test.TestTypes(db, t)
}

func TestNamespaces(t *testing.T) {
	db := createEndb(t, "memory://TestNamespaces", "users")
	other := createEndb(t, "memory://TestNamespaces", "sessions")
	test.TestNamespaces(db, other, t)
}

// TestConcurrent launches a bunch of goroutines that concurrently work with one Endb.
func TestConcurrent(t *testing.T) {
	db := createEndb(t, "memory://", "endb")
	test.TestConcurrent(db, 1000, t)
}

func createEndb(t *testing.T, uri, ns string) *endb.Endb {
	options := endb.DefaultOptions
	options.Namespace = ns
	db, err := endb.New(uri, options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
