// Package record defines the change-log record and the closed set of
// field selectors used to filter and sort it.
//
// Records are values. Once a dataset is loaded nothing mutates them; every
// consumer (index buckets, query results) holds its own copy.
package record

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownField is returned by ParseField for names outside the field set.
var ErrUnknownField = errors.New("unknown field")

// Record is a single change-log entry: who (Name) changed which Field of
// which listing (Title) at Date, from OldValue to NewValue.
type Record struct {
	ID       int64  `json:"id" msgpack:"id"`
	Name     string `json:"name" msgpack:"name"`
	Date     string `json:"date" msgpack:"date"`
	Title    string `json:"title" msgpack:"title"`
	Field    string `json:"field" msgpack:"field"`
	OldValue string `json:"old_value" msgpack:"old_value"`
	NewValue string `json:"new_value" msgpack:"new_value"`
}

// Field selects one column of a Record. The zero value means "no field".
type Field int

const (
	FieldUnset Field = iota
	FieldID
	FieldName
	FieldDate
	FieldTitle
	FieldField
	FieldOldValue
	FieldNewValue
)

var fieldNames = [...]string{
	FieldUnset:    "",
	FieldID:       "id",
	FieldName:     "name",
	FieldDate:     "date",
	FieldTitle:    "title",
	FieldField:    "field",
	FieldOldValue: "old_value",
	FieldNewValue: "new_value",
}

// Fields returns every selectable field in column order.
func Fields() []Field {
	return []Field{FieldID, FieldName, FieldDate, FieldTitle, FieldField, FieldOldValue, FieldNewValue}
}

// ParseField resolves a wire name ("name", "old_value", ...) to a Field.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseField(s string) (Field, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, f := range Fields() {
		if fieldNames[f] == name {
			return f, nil
		}
	}
	return FieldUnset, fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// String returns the wire name of the field.
func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return "field(" + strconv.Itoa(int(f)) + ")"
	}
	return fieldNames[f]
}

// Valid reports whether f names an actual column.
func (f Field) Valid() bool {
	return f > FieldUnset && int(f) < len(fieldNames)
}

// Text returns the field's value as text. IDs are rendered in base 10.
func (f Field) Text(r Record) string {
	switch f {
	case FieldID:
		return strconv.FormatInt(r.ID, 10)
	case FieldName:
		return r.Name
	case FieldDate:
		return r.Date
	case FieldTitle:
		return r.Title
	case FieldField:
		return r.Field
	case FieldOldValue:
		return r.OldValue
	case FieldNewValue:
		return r.NewValue
	default:
		return ""
	}
}

// Compare orders a and b by field f using the field's natural ordering:
// numeric for FieldID, chronological for FieldDate and lexicographic for
// the text columns.
//
// Dates that do not parse sort before every parseable date and compare
// lexicographically among themselves, which keeps the ordering total.
func Compare(a, b Record, f Field) int {
	switch f {
	case FieldID:
		return cmp.Compare(a.ID, b.ID)
	case FieldDate:
		ta, errA := ParseTimestamp(a.Date)
		tb, errB := ParseTimestamp(b.Date)
		return CompareTimestamps(ta, errA == nil, tb, errB == nil, a.Date, b.Date)
	default:
		return strings.Compare(f.Text(a), f.Text(b))
	}
}

// CompareTimestamps is the date ordering used by Compare, split out so
// callers that have already parsed the dates can reuse it.
func CompareTimestamps(ta int64, okA bool, tb int64, okB bool, rawA, rawB string) int {
	switch {
	case okA && okB:
		return cmp.Compare(ta, tb)
	case okA:
		return 1
	case okB:
		return -1
	default:
		return strings.Compare(rawA, rawB)
	}
}
