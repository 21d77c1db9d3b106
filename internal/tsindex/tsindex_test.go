package tsindex

import (
	"errors"
	"slices"
	"testing"

	"auditview/internal/record"
	"auditview/internal/recordtest"
)

func TestLookupExactMatch(t *testing.T) {
	idx := New()
	inserts := []struct {
		id  int64
		key int64
	}{
		{1, 500}, {2, 200}, {3, 500}, {4, 800}, {5, 200}, {6, 500},
	}
	for _, in := range inserts {
		idx.Insert(record.Record{ID: in.id}, in.key)
	}

	recordtest.AssertIDs(t, idx.Lookup(500), 1, 3, 6)
	recordtest.AssertIDs(t, idx.Lookup(200), 2, 5)
	recordtest.AssertIDs(t, idx.Lookup(800), 4)

	for _, miss := range []int64{0, 199, 201, 499, 501, 799, 801} {
		if got := idx.Lookup(miss); len(got) != 0 {
			t.Errorf("Lookup(%d) = %v, want empty", miss, recordtest.IDs(got))
		}
	}

	if idx.Len() != len(inserts) {
		t.Errorf("Len = %d, want %d", idx.Len(), len(inserts))
	}
	if idx.Nodes() != 3 {
		t.Errorf("Nodes = %d, want 3", idx.Nodes())
	}
}

func TestNoFalseMerges(t *testing.T) {
	idx := New()
	for i := range int64(10) {
		idx.Insert(record.Record{ID: i}, 1_672_531_200_000+i)
	}
	for i := range int64(10) {
		recordtest.AssertIDs(t, idx.Lookup(1_672_531_200_000+i), i)
	}
	if idx.Nodes() != 10 {
		t.Errorf("Nodes = %d, want 10", idx.Nodes())
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	idx := New()
	idx.Insert(record.Record{ID: 1}, 7)
	idx.Insert(record.Record{ID: 2}, 7)

	got := idx.Lookup(7)
	slices.Reverse(got)
	got[0].Name = "mutated"

	again := idx.Lookup(7)
	recordtest.AssertIDs(t, again, 1, 2)
	if again[1].Name != "" {
		t.Error("mutating a lookup result leaked into the index")
	}
}

func TestEmptyIndex(t *testing.T) {
	idx := New()
	if got := idx.Lookup(1); len(got) != 0 {
		t.Errorf("expected empty lookup, got %v", got)
	}
	if idx.Height() != 0 || idx.Len() != 0 || idx.Nodes() != 0 {
		t.Errorf("expected zero height/len/nodes, got %d/%d/%d", idx.Height(), idx.Len(), idx.Nodes())
	}
	for range idx.Keys() {
		t.Fatal("expected no keys")
	}
}

func TestKeysInOrder(t *testing.T) {
	idx := New()
	for i, k := range []int64{50, 20, 80, 10, 30, 70, 90, 30, 20} {
		idx.Insert(record.Record{ID: int64(i)}, k)
	}
	got := slices.Collect(idx.Keys())
	want := []int64{10, 20, 30, 50, 70, 80, 90}
	if !slices.Equal(got, want) {
		t.Errorf("Keys = %v, want %v", got, want)
	}
	if h := idx.Height(); h != 3 {
		t.Errorf("Height = %d, want 3", h)
	}

	// Early termination.
	var first []int64
	for k := range idx.Keys() {
		first = append(first, k)
		if len(first) == 2 {
			break
		}
	}
	if !slices.Equal(first, []int64{10, 20}) {
		t.Errorf("first two keys = %v", first)
	}
}

func TestMonotonicInsertDegrades(t *testing.T) {
	const n = 10_000
	idx := New()
	for i := range int64(n) {
		idx.Insert(record.Record{ID: i}, i)
	}
	if h := idx.Height(); h != n {
		t.Errorf("Height = %d, want %d", h, n)
	}
	// Deep lookups still work without recursion.
	recordtest.AssertIDs(t, idx.Lookup(n-1), n-1)
}

func TestBuild(t *testing.T) {
	records := recordtest.Sample()
	idx, errs := Build(records)

	if len(errs) != 1 {
		t.Fatalf("expected 1 build error, got %d: %v", len(errs), errs)
	}
	var pe *ParseError
	if !errors.As(errs[0], &pe) {
		t.Fatalf("expected *ParseError, got %T", errs[0])
	}
	if pe.RecordID != 6 || pe.Value != "not a date" {
		t.Errorf("unexpected ParseError: %+v", pe)
	}
	if !errors.Is(errs[0], record.ErrInvalidDate) {
		t.Error("ParseError should wrap record.ErrInvalidDate")
	}

	if idx.Len() != len(records)-1 {
		t.Errorf("Len = %d, want %d", idx.Len(), len(records)-1)
	}

	recordtest.AssertIDs(t, idx.Lookup(recordtest.MustTimestamp(t, "2023-01-01")), 1, 3)
	recordtest.AssertIDs(t, idx.Lookup(recordtest.MustTimestamp(t, "2023-01-02")), 2)
	recordtest.AssertIDs(t, idx.Lookup(recordtest.MustTimestamp(t, "2023-01-02T12:00:00Z")), 5)
}

func TestBuildAllValid(t *testing.T) {
	_, errs := Build([]record.Record{{ID: 1, Date: "2024-05-05"}})
	if errs != nil {
		t.Errorf("expected nil errors, got %v", errs)
	}
}
