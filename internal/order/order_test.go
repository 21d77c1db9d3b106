package order

import (
	"errors"
	"testing"

	"auditview/internal/record"
	"auditview/internal/recordtest"
)

func TestSortStableAndDescendingReversal(t *testing.T) {
	records := []record.Record{
		{ID: 1, Name: "b"},
		{ID: 2, Name: "a"},
		{ID: 3, Name: "a"},
	}

	asc := Sort(records, Order{Field: record.FieldName, Direction: Ascending})
	recordtest.AssertIDs(t, asc, 2, 3, 1)

	// Reverse of the stable ascending result, so the tied 2 and 3 swap.
	desc := Sort(records, Order{Field: record.FieldName, Direction: Descending})
	recordtest.AssertIDs(t, desc, 1, 3, 2)

	// Input untouched.
	recordtest.AssertIDs(t, records, 1, 2, 3)
}

func TestSortInactiveKeepsOrder(t *testing.T) {
	records := recordtest.Sample()
	for _, o := range []Order{
		{},
		{Field: record.FieldName},
		{Direction: Descending},
		{Field: record.Field(42), Direction: Ascending},
	} {
		got := Sort(records, o)
		recordtest.AssertIDs(t, got, 1, 2, 3, 4, 5, 6)
		if o.Active() {
			t.Errorf("%+v should not be active", o)
		}
	}
}

func TestSortByID(t *testing.T) {
	records := []record.Record{{ID: 10}, {ID: 9}, {ID: 100}}
	recordtest.AssertIDs(t, Sort(records, Order{Field: record.FieldID, Direction: Ascending}), 9, 10, 100)
	recordtest.AssertIDs(t, Sort(records, Order{Field: record.FieldID, Direction: Descending}), 100, 10, 9)
}

func TestSortByDateChronological(t *testing.T) {
	got := Sort(recordtest.Sample(), Order{Field: record.FieldDate, Direction: Ascending})
	// 6 has an unparseable date and goes first; 1 and 3 tie on 2023-01-01.
	recordtest.AssertIDs(t, got, 6, 1, 3, 2, 5, 4)

	got = Sort(recordtest.Sample(), Order{Field: record.FieldDate, Direction: Descending})
	recordtest.AssertIDs(t, got, 4, 5, 2, 3, 1, 6)
}

func TestSortText(t *testing.T) {
	got := Sort(recordtest.Sample(), Order{Field: record.FieldTitle, Direction: Ascending})
	// Blue bicycle, Blue lamp, Broken import, Garden chair, Old phone, Red sofa
	recordtest.AssertIDs(t, got, 1, 4, 6, 5, 3, 2)
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
	}{
		{"asc", Ascending},
		{"ASC", Ascending},
		{"dsc", Descending},
		{"desc", Descending},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseDirection(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseDirection("up"); !errors.Is(err, ErrUnknownDirection) {
		t.Errorf("expected ErrUnknownDirection, got %v", err)
	}
	if Ascending.String() != "asc" || Descending.String() != "dsc" || Unsorted.String() != "" {
		t.Error("unexpected Direction.String values")
	}
}
