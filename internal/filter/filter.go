// Package filter narrows record sequences with case-insensitive pattern
// predicates over record fields.
//
// A Set maps fields to patterns. Every pattern that is non-blank after
// trimming must match (regexp search, case-insensitive) for a record to
// pass; blank patterns impose nothing. Patterns are RE2 regular
// expressions, so a plain word is a substring match.
//
// Invalid patterns fail open: the field is treated as unconstrained and
// the problem is reported as a *PatternError, so a half-typed pattern such
// as "[ab" never empties a result.
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"auditview/internal/record"
)

// ErrInvalidPattern is wrapped by every PatternError.
var ErrInvalidPattern = errors.New("invalid pattern")

// PatternError reports a pattern that failed to compile.
type PatternError struct {
	Field   record.Field
	Pattern string
	Err     error // compile error from regexp
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("%s filter %q: %v", e.Field, e.Pattern, e.Err)
}

// Unwrap exposes both ErrInvalidPattern and the regexp error.
func (e *PatternError) Unwrap() []error {
	return []error{ErrInvalidPattern, e.Err}
}

// Set maps a field to the pattern it must match. Date filtering is done
// by exact key lookup, never by pattern, so FieldDate entries are ignored
// by Compile and AnyActive.
type Set map[record.Field]string

// AnyActive reports whether at least one non-date field carries a pattern
// with non-blank content. It says nothing about whether that pattern
// compiles.
func AnyActive(set Set) bool {
	for f, p := range set {
		if f == record.FieldDate {
			continue
		}
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

type predicate struct {
	field record.Field
	re    *regexp.Regexp
}

// Matcher is a compiled Set. The zero value matches everything.
type Matcher struct {
	preds []predicate
	errs  []error
}

// Compile turns set into a Matcher. Predicates are ordered by field so
// evaluation and error reporting are deterministic.
func Compile(set Set) *Matcher {
	fields := make([]record.Field, 0, len(set))
	for f := range set {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	m := &Matcher{}
	for _, f := range fields {
		if f == record.FieldDate || !f.Valid() {
			continue
		}
		pattern := strings.TrimSpace(set[f])
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			m.errs = append(m.errs, &PatternError{Field: f, Pattern: pattern, Err: err})
			continue
		}
		m.preds = append(m.preds, predicate{field: f, re: re})
	}
	return m
}

// Active returns the number of predicates that compiled.
func (m *Matcher) Active() int { return len(m.preds) }

// Errors returns the patterns that were dropped because they did not
// compile. Each element is a *PatternError.
func (m *Matcher) Errors() []error { return m.errs }

// Match reports whether r satisfies every compiled predicate.
func (m *Matcher) Match(r record.Record) bool {
	for _, p := range m.preds {
		if !p.re.MatchString(p.field.Text(r)) {
			return false
		}
	}
	return true
}

// Apply returns the records that match, in their original order, as a new
// slice. records is not modified.
func (m *Matcher) Apply(records []record.Record) []record.Record {
	out := make([]record.Record, 0, len(records))
	for _, r := range records {
		if m.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Matches compiles set and tests a single record. Prefer Compile when
// testing many records against the same set.
func Matches(r record.Record, set Set) bool {
	return Compile(set).Match(r)
}
