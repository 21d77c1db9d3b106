// Package storetest provides a conformance suite for prefs.Store
// implementations. Each backend wires it from its own tests.
package storetest

import (
	"context"
	"errors"
	"slices"
	"testing"

	"auditview/internal/featured"
	"auditview/internal/prefs"
)

// TestStore runs the full suite. newStore must return a fresh, empty store
// for every sub-test.
func TestStore(t *testing.T, newStore func(t *testing.T) prefs.Store) {
	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		v, err := s.Get(context.Background(), "nope")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if v != nil {
			t.Fatalf("expected nil, got %q", v)
		}
	})

	t.Run("PutGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if err := s.Put(ctx, "k", []byte(`{"a":1}`)); err != nil {
			t.Fatalf("Put: %v", err)
		}
		v, err := s.Get(ctx, "k")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !jsonEqual(string(v), `{"a":1}`) {
			t.Errorf("Get = %q", v)
		}
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, v := range []string{"1", "2", "3"} {
			if err := s.Put(ctx, "k", []byte(v)); err != nil {
				t.Fatalf("Put %s: %v", v, err)
			}
		}
		v, _ := s.Get(ctx, "k")
		if string(v) != "3" {
			t.Errorf("Get = %q, want 3", v)
		}
	})

	t.Run("PutRejectsNonJSON", func(t *testing.T) {
		s := newStore(t)
		err := s.Put(context.Background(), "k", []byte("{not json"))
		if !errors.Is(err, prefs.ErrNotJSON) {
			t.Errorf("expected ErrNotJSON, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if err := s.Put(ctx, "k", []byte("true")); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, "k"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if v, _ := s.Get(ctx, "k"); v != nil {
			t.Errorf("expected nil after delete, got %q", v)
		}
		if err := s.Delete(ctx, "never-there"); err != nil {
			t.Errorf("Delete of missing key: %v", err)
		}
	})

	t.Run("Keys", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, k := range []string{"b", "c", "a"} {
			if err := s.Put(ctx, k, []byte("0")); err != nil {
				t.Fatal(err)
			}
		}
		keys, err := s.Keys(ctx)
		if err != nil {
			t.Fatalf("Keys: %v", err)
		}
		if !slices.Equal(keys, []string{"a", "b", "c"}) {
			t.Errorf("Keys = %v", keys)
		}
	})

	t.Run("PreferencesPageSize", func(t *testing.T) {
		p := prefs.New(newStore(t), 0, nil)
		ctx := context.Background()

		n, err := p.PageSize(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if n != prefs.DefaultPageSize {
			t.Errorf("default PageSize = %d, want %d", n, prefs.DefaultPageSize)
		}

		if err := p.SetPageSize(ctx, 15); err != nil {
			t.Fatal(err)
		}
		if n, _ := p.PageSize(ctx); n != 15 {
			t.Errorf("PageSize = %d, want 15", n)
		}

		if err := p.SetPageSize(ctx, 0); !errors.Is(err, prefs.ErrInvalidPageSize) {
			t.Errorf("expected ErrInvalidPageSize, got %v", err)
		}
	})

	t.Run("PreferencesFeatured", func(t *testing.T) {
		p := prefs.New(newStore(t), 10, nil)
		ctx := context.Background()

		on, err := p.ToggleFeatured(ctx, 4)
		if err != nil || !on {
			t.Fatalf("ToggleFeatured(4) = %v, %v", on, err)
		}
		if err := p.AddFeatured(ctx, 2); err != nil {
			t.Fatal(err)
		}
		if err := p.AddFeatured(ctx, 9); err != nil {
			t.Fatal(err)
		}
		if err := p.RemoveFeatured(ctx, 9); err != nil {
			t.Fatal(err)
		}

		set, err := p.Featured(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(set.IDs(), []int64{2, 4}) {
			t.Errorf("Featured = %v, want [2 4]", set.IDs())
		}

		if on, _ := p.ToggleFeatured(ctx, 4); on {
			t.Error("second toggle should unmark")
		}
		if err := p.SetFeatured(ctx, featured.New(7, 8)); err != nil {
			t.Fatal(err)
		}
		set, _ = p.Featured(ctx)
		if !slices.Equal(set.IDs(), []int64{7, 8}) {
			t.Errorf("Featured = %v, want [7 8]", set.IDs())
		}
	})

	t.Run("PreferencesCorruptValue", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if err := s.Put(ctx, prefs.KeyPageSize, []byte(`"forty"`)); err != nil {
			t.Fatal(err)
		}
		p := prefs.New(s, 25, nil)
		n, err := p.PageSize(ctx)
		if err != nil {
			t.Fatalf("PageSize: %v", err)
		}
		if n != 25 {
			t.Errorf("PageSize = %d, want fallback 25", n)
		}
	})
}

// jsonEqual compares JSON text ignoring insignificant whitespace, since
// some backends re-indent documents.
func jsonEqual(a, b string) bool {
	strip := func(s string) string {
		out := make([]rune, 0, len(s))
		inString := false
		for i, r := range s {
			if r == '"' && (i == 0 || s[i-1] != '\\') {
				inString = !inString
			}
			if !inString && (r == ' ' || r == '\n' || r == '\t' || r == '\r') {
				continue
			}
			out = append(out, r)
		}
		return string(out)
	}
	return strip(a) == strip(b)
}
