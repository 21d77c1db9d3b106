// Package order sorts record sequences by a single field.
package order

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"auditview/internal/record"
)

// ErrUnknownDirection is returned by ParseDirection.
var ErrUnknownDirection = errors.New("unknown sort direction")

// Direction is the sort direction. The zero value means "not chosen".
type Direction int

const (
	Unsorted Direction = iota
	Ascending
	Descending
)

// String returns the wire form: "asc", "dsc" or "".
func (d Direction) String() string {
	switch d {
	case Ascending:
		return "asc"
	case Descending:
		return "dsc"
	default:
		return ""
	}
}

// ParseDirection accepts "asc", "dsc" and "desc", case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc":
		return Ascending, nil
	case "dsc", "desc":
		return Descending, nil
	default:
		return Unsorted, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}

// Order is a sort choice. It is active only when both parts are set.
type Order struct {
	Field     record.Field
	Direction Direction
}

// Active reports whether o would reorder anything.
func (o Order) Active() bool {
	return o.Field.Valid() && (o.Direction == Ascending || o.Direction == Descending)
}

func (o Order) String() string {
	if !o.Active() {
		return "none"
	}
	return o.Field.String() + " " + o.Direction.String()
}

// Sort returns a new slice holding records ordered by o.
//
// The ascending order is a stable sort, so records that compare equal keep
// their input order. Descending reverses that ascending result as a
// separate pass; equal records therefore come out in reverse input order,
// which is not the same as a stable sort with an inverted comparator.
//
// When o is not active the copy keeps input order.
func Sort(records []record.Record, o Order) []record.Record {
	out := slices.Clone(records)
	if !o.Active() || len(out) < 2 {
		return out
	}

	if o.Field == record.FieldDate {
		sortByDate(out)
	} else {
		slices.SortStableFunc(out, func(a, b record.Record) int {
			return record.Compare(a, b, o.Field)
		})
	}

	if o.Direction == Descending {
		slices.Reverse(out)
	}
	return out
}

// sortByDate parses every date once instead of once per comparison.
func sortByDate(records []record.Record) {
	type keyed struct {
		rec record.Record
		ts  int64
		ok  bool
	}
	ks := make([]keyed, len(records))
	for i, r := range records {
		ts, err := record.ParseTimestamp(r.Date)
		ks[i] = keyed{rec: r, ts: ts, ok: err == nil}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		return record.CompareTimestamps(a.ts, a.ok, b.ts, b.ok, a.rec.Date, b.rec.Date)
	})
	for i := range ks {
		records[i] = ks[i].rec
	}
}
