// Package query evaluates filter/sort requests against a loaded dataset.
//
// An Engine is built once per dataset load: it keeps the records and a
// timestamp index over their dates. Evaluate is a pure function of the
// engine and a State; it never mutates either and never returns slices that
// alias the dataset or the index.
//
// Evaluation order is fixed:
//
//  1. nothing to filter on -> StatusIdle, no records
//  2. date filter -> exact index lookup, else the whole dataset
//  3. text filters -> filter.Matcher (AND, fail-open on bad patterns)
//  4. sort, when a field and direction are both chosen
//
// Pagination is left to the caller (Result.Page).
package query

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"auditview/internal/filter"
	"auditview/internal/logging"
	"auditview/internal/order"
	"auditview/internal/record"
	"auditview/internal/tsindex"
)

// Status distinguishes "nothing asked" from "asked, maybe nothing found".
type Status int

const (
	// StatusIdle means no filter was active; the caller should show a
	// neutral empty state rather than "no records found".
	StatusIdle Status = iota
	// StatusEvaluating means at least one filter was active. Records may
	// still be empty.
	StatusEvaluating
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusEvaluating:
		return "evaluating"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// State is everything the user chose for one evaluation.
type State struct {
	Name  string // pattern over record.Name
	Title string // pattern over record.Title
	Field string // pattern over record.Field

	// Date is the raw date text. When non-blank it is parsed with
	// record.ParseTimestamp and matched exactly against the index.
	Date string

	Sort order.Order

	// PageSize bounds how many results the caller displays. Evaluate
	// ignores it.
	PageSize int
}

// Filters returns the text patterns of s as a filter.Set.
func (s State) Filters() filter.Set {
	return filter.Set{
		record.FieldName:  s.Name,
		record.FieldTitle: s.Title,
		record.FieldField: s.Field,
	}
}

// HasDate reports whether a date filter is present.
func (s State) HasDate() bool {
	return strings.TrimSpace(s.Date) != ""
}

// Active reports whether any filter dimension is set.
func (s State) Active() bool {
	return s.HasDate() || filter.AnyActive(s.Filters())
}

func (s State) String() string {
	var parts []string
	for _, kv := range [][2]string{{"name", s.Name}, {"title", s.Title}, {"field", s.Field}, {"date", s.Date}} {
		if strings.TrimSpace(kv[1]) != "" {
			parts = append(parts, kv[0]+"="+strings.TrimSpace(kv[1]))
		}
	}
	if s.Sort.Active() {
		parts = append(parts, "sort="+s.Sort.Field.String()+":"+s.Sort.Direction.String())
	}
	if s.PageSize > 0 {
		parts = append(parts, fmt.Sprintf("limit=%d", s.PageSize))
	}
	if len(parts) == 0 {
		return "(no filters)"
	}
	return strings.Join(parts, " ")
}

// Result is the outcome of one evaluation.
type Result struct {
	Status  Status
	Records []record.Record // ordered, unsliced; nil when Idle

	// PatternErrors lists patterns that were ignored because they did not
	// compile. Each element is a *filter.PatternError.
	PatternErrors []error
}

// Total returns the number of matching records before pagination.
func (r Result) Total() int { return len(r.Records) }

// Page returns at most n leading records. n <= 0 returns all of them.
func (r Result) Page(n int) []record.Record {
	if n <= 0 || n >= len(r.Records) {
		return r.Records
	}
	return r.Records[:n]
}

// Stats describes the dataset an Engine was built from.
type Stats struct {
	Records int `json:"records"`
	Indexed int `json:"indexed"`
	Keys    int `json:"keys"`
	Height  int `json:"height"`
	Skipped int `json:"skipped"`
}

// Engine evaluates States against a fixed dataset. It is immutable after
// New and safe for concurrent use.
type Engine struct {
	records   []record.Record
	index     *tsindex.Index
	buildErrs []error
	logger    *slog.Logger
}

// New indexes records and returns an Engine over them. Records whose date
// does not parse stay in the dataset (text filters still see them) but are
// left out of the date index; see BuildErrors.
func New(records []record.Record, logger *slog.Logger) *Engine {
	logger = logging.Default(logger).With("component", "query")

	records = slices.Clone(records)
	idx, errs := tsindex.Build(records)

	logger.Info("index built",
		"records", len(records),
		"keys", idx.Nodes(),
		"height", idx.Height(),
		"skipped", len(errs),
	)
	if len(errs) > 0 {
		logger.Warn("records left out of date index", "count", len(errs), "first", errs[0])
	}

	return &Engine{
		records:   records,
		index:     idx,
		buildErrs: errs,
		logger:    logger,
	}
}

// Len returns the number of records in the dataset.
func (e *Engine) Len() int { return len(e.records) }

// BuildErrors returns the *tsindex.ParseError values collected while
// indexing.
func (e *Engine) BuildErrors() []error { return e.buildErrs }

// Stats reports dataset and index shape.
func (e *Engine) Stats() Stats {
	return Stats{
		Records: len(e.records),
		Indexed: e.index.Len(),
		Keys:    e.index.Nodes(),
		Height:  e.index.Height(),
		Skipped: len(e.buildErrs),
	}
}

// Record returns the record with the given id.
func (e *Engine) Record(id int64) (record.Record, bool) {
	i := slices.IndexFunc(e.records, func(r record.Record) bool { return r.ID == id })
	if i < 0 {
		return record.Record{}, false
	}
	return e.records[i], true
}

// Evaluate runs s against the dataset.
func (e *Engine) Evaluate(s State) Result {
	if !s.Active() {
		return Result{Status: StatusIdle}
	}

	var candidates []record.Record
	if s.HasDate() {
		// A date that does not parse can equal no key, so it selects
		// nothing rather than being ignored.
		if key, err := record.ParseTimestamp(s.Date); err == nil {
			candidates = e.index.Lookup(key)
		}
	} else {
		candidates = e.records
	}

	res := Result{Status: StatusEvaluating}

	set := s.Filters()
	if filter.AnyActive(set) {
		m := filter.Compile(set)
		candidates = m.Apply(candidates)
		res.PatternErrors = m.Errors()
	}

	if len(candidates) > 0 && s.Sort.Active() {
		candidates = order.Sort(candidates, s.Sort)
	}

	if candidates == nil {
		candidates = []record.Record{}
	}
	res.Records = candidates
	return res
}
