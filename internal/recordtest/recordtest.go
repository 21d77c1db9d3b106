// Package recordtest provides shared fixtures for tests that need a small
// change-log dataset. It keeps the same handful of records from being
// re-typed in tsindex, filter, order, query and server tests.
package recordtest

import (
	"testing"

	"auditview/internal/record"
)

// Sample returns a fresh copy of a small dataset. Records 1 and 3 share a
// date; record 6 has an unparseable date.
func Sample() []record.Record {
	return []record.Record{
		{ID: 1, Name: "Ali", Date: "2023-01-01", Title: "Blue bicycle", Field: "price", OldValue: "100", NewValue: "90"},
		{ID: 2, Name: "Reza", Date: "2023-01-02", Title: "Red sofa", Field: "title", OldValue: "Sofa", NewValue: "Red sofa"},
		{ID: 3, Name: "Sara", Date: "2023-01-01", Title: "Old phone", Field: "price", OldValue: "50", NewValue: "45"},
		{ID: 4, Name: "ali", Date: "2023-01-03T08:15:00Z", Title: "Blue lamp", Field: "description", OldValue: "", NewValue: "Brass lamp"},
		{ID: 5, Name: "Mina", Date: "2023-01-02T12:00:00Z", Title: "Garden chair", Field: "status", OldValue: "draft", NewValue: "published"},
		{ID: 6, Name: "Reza", Date: "not a date", Title: "Broken import", Field: "price", OldValue: "1", NewValue: "2"},
	}
}

// IDs projects records to their ids, preserving order.
func IDs(records []record.Record) []int64 {
	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

// MustTimestamp parses s with record.ParseTimestamp or fails the test.
func MustTimestamp(t testing.TB, s string) int64 {
	t.Helper()
	ms, err := record.ParseTimestamp(s)
	if err != nil {
		t.Fatalf("parse timestamp %q: %v", s, err)
	}
	return ms
}

// AssertIDs fails the test if records do not carry exactly want, in order.
func AssertIDs(t testing.TB, records []record.Record, want ...int64) {
	t.Helper()
	got := IDs(records)
	if len(got) != len(want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids = %v, want %v", got, want)
		}
	}
}
