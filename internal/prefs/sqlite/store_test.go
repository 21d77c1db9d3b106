package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"auditview/internal/prefs"
	"auditview/internal/prefs/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.TestStore(t, func(t *testing.T) prefs.Store {
		return newTestStore(t)
	})
}

func TestReopenKeepsValuesAndSkipsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	ctx := context.Background()

	s, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, prefs.KeyFeatured, []byte("[1,2]")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	v, err := s.Get(ctx, prefs.KeyFeatured)
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "[1,2]" {
		t.Errorf("Get = %q", v)
	}

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatal(err)
	}
	migrations, _ := loadMigrations()
	if n != len(migrations) {
		t.Errorf("schema_migrations has %d rows, want %d", n, len(migrations))
	}
}
