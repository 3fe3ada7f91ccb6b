// Package test contains tests that every adapter and the Endb facade must pass.
// Adapter packages call them from their own _test.go files.
package test

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"testing"

	"github.com/go-test/deep"

	"github.com/endb-go/endb"
	"github.com/endb-go/endb/namespace"
)

// Foo is just some struct for common tests.
type Foo struct {
	Bar string `json:"bar"`
}

func randomKey() string {
	return strconv.FormatInt(rand.Int63(), 10)
}

// TestAdapter tests if reading from, writing to and deleting from the adapter works properly.
func TestAdapter(a endb.Adapter, ns string, t *testing.T) {
	ctx := context.Background()
	key := namespace.Wrap(ns, randomKey())

	// Initially the key shouldn't exist
	_, found, err := a.Get(ctx, key)
	if err != nil {
		t.Error(err)
	}
	if found {
		t.Error("A value was found, but no value was expected")
	}
	before := countEntries(ctx, a, t)

	// Deleting a non-existing key-value pair should NOT lead to an error
	deleted, err := a.Delete(ctx, key)
	if err != nil {
		t.Error(err)
	}
	if deleted {
		t.Error("Delete reported a deletion, but there was nothing to delete")
	}

	// Store a value
	err = a.Set(ctx, key, `{"bar":"baz"}`)
	if err != nil {
		t.Error(err)
	}
	actual, found, err := a.Get(ctx, key)
	handleGetError(t, err, found)
	if actual != `{"bar":"baz"}` {
		t.Errorf("Expected: %v, but was: %v", `{"bar":"baz"}`, actual)
	}

	// Overwrite it
	err = a.Set(ctx, key, `"qux"`)
	if err != nil {
		t.Error(err)
	}
	actual, found, err = a.Get(ctx, key)
	handleGetError(t, err, found)
	if actual != `"qux"` {
		t.Errorf("Expected: %v, but was: %v", `"qux"`, actual)
	}
	// Overwriting must not add a second entry
	if e, ok := a.(endb.Enumerator); ok {
		all, err := e.All(ctx)
		if err != nil {
			t.Error(err)
		}
		if len(all) != before+1 {
			t.Errorf("Expected %v entries after the overwrite, but was: %v", before+1, len(all))
		}
		if all[key] != `"qux"` {
			t.Errorf("Expected: %v, but was: %v", `"qux"`, all[key])
		}
	}

	// Delete
	deleted, err = a.Delete(ctx, key)
	if err != nil {
		t.Error(err)
	}
	if !deleted {
		t.Error("Delete didn't report a deletion, but the key existed")
	}
	// Key-value pair shouldn't exist anymore
	_, found, err = a.Get(ctx, key)
	if err != nil {
		t.Error(err)
	}
	if found {
		t.Error("A value was found, but no value was expected")
	}
}

// countEntries returns the number of entries the adapter enumerates, or 0 if it can't enumerate.
func countEntries(ctx context.Context, a endb.Adapter, t *testing.T) int {
	e, ok := a.(endb.Enumerator)
	if !ok {
		return 0
	}
	all, err := e.All(ctx)
	if err != nil {
		t.Error(err)
	}
	return len(all)
}

// TestClear tests if clearing one namespace leaves the other namespace untouched.
// Both adapters must point to the same backend, one with namespace ns and one with otherNs.
func TestClear(a endb.Adapter, ns string, other endb.Adapter, otherNs string, t *testing.T) {
	ctx := context.Background()
	keys := []string{randomKey(), randomKey()}
	for _, k := range keys {
		if err := a.Set(ctx, namespace.Wrap(ns, k), `"a"`); err != nil {
			t.Fatal(err)
		}
		if err := other.Set(ctx, namespace.Wrap(otherNs, k), `"b"`); err != nil {
			t.Fatal(err)
		}
	}

	if err := a.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	for _, k := range keys {
		_, found, err := a.Get(ctx, namespace.Wrap(ns, k))
		if err != nil {
			t.Error(err)
		}
		if found {
			t.Errorf("Key %v should have been cleared", k)
		}
		actual, found, err := other.Get(ctx, namespace.Wrap(otherNs, k))
		handleGetError(t, err, found)
		if actual != `"b"` {
			t.Errorf("Expected: %v, but was: %v", `"b"`, actual)
		}
	}
}

// TestAll tests if an adapter that implements endb.Enumerator lists exactly the entries of its namespace.
func TestAll(a endb.Adapter, ns string, t *testing.T) {
	e, ok := a.(endb.Enumerator)
	if !ok {
		t.Skip("The adapter doesn't implement endb.Enumerator")
	}
	ctx := context.Background()
	if err := a.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	expected := map[string]string{
		namespace.Wrap(ns, "foo"):   `"bar"`,
		namespace.Wrap(ns, "%_\\x"): `1`,
	}
	for k, v := range expected {
		if err := a.Set(ctx, k, v); err != nil {
			t.Fatal(err)
		}
	}

	actual, err := e.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(actual, expected); diff != nil {
		t.Error(diff)
	}
}

// TestClosed tests if all methods of a closed adapter fail with endb.ErrDestroyed.
func TestClosed(a endb.Adapter, ns string, t *testing.T) {
	ctx := context.Background()
	key := namespace.Wrap(ns, randomKey())
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	_, _, err := a.Get(ctx, key)
	checkDestroyed(t, "Get", err)
	err = a.Set(ctx, key, `"foo"`)
	checkDestroyed(t, "Set", err)
	_, err = a.Delete(ctx, key)
	checkDestroyed(t, "Delete", err)
	err = a.Clear(ctx)
	checkDestroyed(t, "Clear", err)
	if e, ok := a.(endb.Enumerator); ok {
		_, err = e.All(ctx)
		checkDestroyed(t, "All", err)
	}
}

func checkDestroyed(t *testing.T, method string, err error) {
	t.Helper()
	if !errors.Is(err, endb.ErrDestroyed) {
		t.Errorf("%v after Close should have returned endb.ErrDestroyed, but returned: %v", method, err)
	}
}

// TestTypes tests if setting and getting values through an Endb works with all supported types.
func TestTypes(db *endb.Endb, t *testing.T) {
	ctx := context.Background()

	testVals := []struct {
		subTestName string
		val         any
		expected    any
	}{
		{"bool", true, true},
		{"float", 1.2, 1.2},
		{"int", 1, float64(1)},
		{"string", "foo", "foo"},
		{"empty string", "", ""},
		{"string with colon prefix", ":foo", ":foo"},
		{"string that looks like binary", ":base64:AAE=", ":base64:AAE="},
		{"null", nil, nil},
		{"slice of byte", []byte{0, 1, 2, 255}, []byte{0, 1, 2, 255}},
		{"slice of int", []int{1, 2}, []any{float64(1), float64(2)}},
		{"slice of string", []string{"foo", "bar"}, []any{"foo", "bar"}},
		{"map", map[string]any{"a": []byte("x"), "b": map[string]any{"c": ":d"}}, map[string]any{"a": []byte("x"), "b": map[string]any{"c": ":d"}}},
		{"struct", Foo{Bar: "baz"}, map[string]any{"bar": "baz"}},
	}

	for _, testVal := range testVals {
		t.Run(testVal.subTestName, func(t *testing.T) {
			key := endb.StringKey(randomKey())
			err := db.Set(ctx, key, testVal.val)
			if err != nil {
				t.Fatal(err)
			}
			actual, found, err := db.Get(ctx, key)
			handleGetError(t, err, found)
			if diff := deep.Equal(actual, testVal.expected); diff != nil {
				t.Error(diff)
			}
		})
	}

	t.Run("typed", func(t *testing.T) {
		key := endb.StringKey(randomKey())
		if err := db.Set(ctx, key, Foo{Bar: "baz"}); err != nil {
			t.Fatal(err)
		}
		actual, found, err := endb.GetAs[Foo](ctx, db, key)
		handleGetError(t, err, found)
		if actual != (Foo{Bar: "baz"}) {
			t.Errorf("Expected: %v, but was: %v", Foo{Bar: "baz"}, actual)
		}
	})
}

// TestEndb tests the read / write / delete cycle through an Endb, including the difference
// between a missing key and a stored null.
func TestEndb(db *endb.Endb, t *testing.T) {
	ctx := context.Background()
	key := endb.StringKey(randomKey())

	found, err := db.Has(ctx, key)
	if err != nil {
		t.Error(err)
	}
	if found {
		t.Error("A value was found, but no value was expected")
	}
	deleted, err := db.Delete(ctx, key)
	if err != nil {
		t.Error(err)
	}
	if deleted {
		t.Error("Delete reported a deletion, but there was nothing to delete")
	}

	// A stored null is found
	if err = db.Set(ctx, key, nil); err != nil {
		t.Error(err)
	}
	actual, found, err := db.Get(ctx, key)
	handleGetError(t, err, found)
	if actual != nil {
		t.Errorf("Expected nil, but was: %v", actual)
	}

	if err = db.Set(ctx, key, "bar"); err != nil {
		t.Error(err)
	}
	actual, found, err = db.Get(ctx, key)
	handleGetError(t, err, found)
	if actual != "bar" {
		t.Errorf("Expected: %v, but was: %v", "bar", actual)
	}

	deleted, err = db.Delete(ctx, key)
	if err != nil {
		t.Error(err)
	}
	if !deleted {
		t.Error("Delete didn't report a deletion, but the key existed")
	}
	_, found, err = db.Get(ctx, key)
	if err != nil {
		t.Error(err)
	}
	if found {
		t.Error("A value was found, but no value was expected")
	}

	// IntKey and StringKey address the same entry
	if err = db.Set(ctx, endb.IntKey(42), "answer"); err != nil {
		t.Error(err)
	}
	actual, found, err = db.Get(ctx, endb.StringKey("42"))
	handleGetError(t, err, found)
	if actual != "answer" {
		t.Errorf("Expected: %v, but was: %v", "answer", actual)
	}
}

// TestNamespaces tests that two Endbs with different namespaces on the same backend
// don't see each other's entries.
func TestNamespaces(db, other *endb.Endb, t *testing.T) {
	ctx := context.Background()
	key := endb.StringKey(randomKey())

	if err := db.Set(ctx, key, "a"); err != nil {
		t.Fatal(err)
	}
	if err := other.Set(ctx, key, "b"); err != nil {
		t.Fatal(err)
	}

	actual, found, err := db.Get(ctx, key)
	handleGetError(t, err, found)
	if actual != "a" {
		t.Errorf("Expected: %v, but was: %v", "a", actual)
	}
	actual, found, err = other.Get(ctx, key)
	handleGetError(t, err, found)
	if actual != "b" {
		t.Errorf("Expected: %v, but was: %v", "b", actual)
	}

	if err = db.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	_, found, err = db.Get(ctx, key)
	if err != nil {
		t.Error(err)
	}
	if found {
		t.Error("A value was found after Clear, but no value was expected")
	}
	actual, found, err = other.Get(ctx, key)
	handleGetError(t, err, found)
	if actual != "b" {
		t.Errorf("Expected: %v, but was: %v", "b", actual)
	}

	all, err := other.All(ctx)
	if errors.Is(err, endb.ErrNotSupported) {
		return
	}
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(all[string(key)], any("b")); diff != nil {
		t.Error(diff)
	}
	all, err = db.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("Expected no entries after Clear, but got: %v", all)
	}
}

func handleGetError(t *testing.T, err error, found bool) {
	t.Helper()
	if err != nil {
		t.Error(err)
	}
	if !found {
		t.Error("No value was found, but should have been")
	}
}

// InteractWithEndb reads from and writes to the Endb. Meant to be executed in a goroutine.
// Does NOT check if the Endb works correctly (that's done elsewhere),
// only checks for errors that might occur due to concurrent access.
func InteractWithEndb(db *endb.Endb, key string, t *testing.T, waitGroup *sync.WaitGroup) {
	defer waitGroup.Done()
	ctx := context.Background()

	// Read
	_, _, err := db.Get(ctx, endb.StringKey(key))
	if err != nil {
		t.Error(err)
	}
	// Write
	err = db.Set(ctx, endb.StringKey(key), Foo{})
	if err != nil {
		t.Error(err)
	}
	// Read
	_, _, err = db.Get(ctx, endb.StringKey(key))
	if err != nil {
		t.Error(err)
	}
}

// TestConcurrent launches a bunch of goroutines that concurrently work with one Endb
// and checks afterwards that all values were stored.
func TestConcurrent(db *endb.Endb, goroutineCount int, t *testing.T) {
	waitGroup := sync.WaitGroup{}
	waitGroup.Add(goroutineCount) // Must be called before any goroutine is started
	for i := 0; i < goroutineCount; i++ {
		go InteractWithEndb(db, strconv.Itoa(i), t, &waitGroup)
	}
	waitGroup.Wait()

	// Now make sure that all values are in the store
	expected := Foo{}
	for i := 0; i < goroutineCount; i++ {
		actual, found, err := endb.GetAs[Foo](context.Background(), db, endb.StringKey(strconv.Itoa(i)))
		handleGetError(t, err, found)
		if actual != expected {
			t.Errorf("Expected: %v, but was: %v", expected, actual)
		}
	}
}
