package db

import (
	"context"
	"testing"
)

// NewTestDB opens a migrated in-memory database that is closed when the
// test completes.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    d := db.NewTestDB(t)
//	    // use d...
//	}
func NewTestDB(t testing.TB) *DB {
	t.Helper()

	d, err := OpenInMemory()
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})

	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return d
}
