package repl

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"auditview/internal/featured"
	"auditview/internal/filter"
	"auditview/internal/order"
	"auditview/internal/query"
	"auditview/internal/record"
	"auditview/internal/render"
)

// cmdFilter sets one filter dimension and submits the new state.
func (r *REPL) cmdFilter(which, pattern string) {
	switch which {
	case "name":
		r.state.Name = pattern
	case "title":
		r.state.Title = pattern
	case "field":
		r.state.Field = pattern
	case "date":
		r.state.Date = pattern
	}
	r.submit()
}

func (r *REPL) cmdClear(args []string) {
	what := "all"
	if len(args) > 0 {
		what = args[0]
	}
	switch what {
	case "name":
		r.state.Name = ""
	case "title":
		r.state.Title = ""
	case "field":
		r.state.Field = ""
	case "date":
		r.state.Date = ""
	case "sort":
		r.state.Sort = order.Order{}
	case "all":
		r.state = query.State{}
	default:
		r.printf("Unknown filter: %s (expected name, title, field, date, sort or all)\n", what)
		return
	}
	r.submit()
}

func (r *REPL) cmdSort(args []string) {
	if len(args) == 0 {
		if !r.state.Sort.Active() {
			r.printf("Not sorted.\n")
			return
		}
		r.printf("Sorted by %s\n", r.state.Sort)
		return
	}
	if args[0] == "off" {
		r.state.Sort = order.Order{}
		r.submit()
		return
	}

	f, err := record.ParseField(args[0])
	if err != nil {
		r.printf("%v\n", err)
		return
	}
	dir := order.Ascending
	if len(args) > 1 {
		if dir, err = order.ParseDirection(args[1]); err != nil {
			r.printf("%v\n", err)
			return
		}
	}
	r.state.Sort = order.Order{Field: f, Direction: dir}
	r.submit()
}

func (r *REPL) cmdLimit(args []string) {
	if len(args) == 0 {
		n, err := r.prefs.PageSize(r.ctx)
		if err != nil {
			r.printf("Error: %v\n", err)
			return
		}
		r.printf("Showing up to %d records.\n", n)
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		r.printf("Invalid limit: %s\n", args[0])
		return
	}
	if err := r.prefs.SetPageSize(r.ctx, n); err != nil {
		r.printf("Error: %v\n", err)
		return
	}
	r.printf("Showing up to %d records.\n", n)
}

func (r *REPL) cmdStar(args []string) {
	if len(args) != 1 {
		r.printf("Usage: star <id>\n")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		r.printf("Invalid id: %s\n", args[0])
		return
	}
	on, err := r.prefs.ToggleFeatured(r.ctx, id)
	if err != nil {
		r.printf("Error: %v\n", err)
		return
	}
	if on {
		r.printf("Record %d featured.\n", id)
	} else {
		r.printf("Record %d unfeatured.\n", id)
	}
}

func (r *REPL) cmdFeatured() {
	marks, err := r.prefs.Featured(r.ctx)
	if err != nil {
		r.printf("Error: %v\n", err)
		return
	}
	if marks.Len() == 0 {
		r.printf("No featured records.\n")
		return
	}
	engine := r.engine()
	var recs []record.Record
	var missing []string
	for _, id := range marks.IDs() {
		if rec, ok := engine.Record(id); ok {
			recs = append(recs, rec)
		} else {
			missing = append(missing, strconv.FormatInt(id, 10))
		}
	}
	r.printTable(recs, marks)
	if len(missing) > 0 {
		r.printf("Not in the current dataset: %s\n", strings.Join(missing, ", "))
	}
}

func (r *REPL) cmdShow() {
	r.slot.Cancel()
	r.printResult(r.engine().Evaluate(r.state))
}

func (r *REPL) cmdURL(raw string) {
	if raw == "" {
		enc := r.state.Values().Encode()
		if enc == "" {
			r.printf("(no filters)\n")
			return
		}
		r.printf("%s\n", enc)
		return
	}
	v, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		r.printf("Invalid query string: %v\n", err)
		return
	}
	r.state = query.StateFromValues(v)
	r.printf("State: %s\n", r.state)
	r.submit()
}

func (r *REPL) cmdStats() {
	st := r.engine().Stats()
	marks, err := r.prefs.Featured(r.ctx)
	featuredCount := "?"
	if err == nil {
		featuredCount = strconv.Itoa(marks.Len())
	}
	var buf bytes.Buffer
	render.KV(&buf, [][2]string{
		{"records", strconv.Itoa(st.Records)},
		{"indexed", strconv.Itoa(st.Indexed)},
		{"skipped", strconv.Itoa(st.Skipped)},
		{"index keys", strconv.Itoa(st.Keys)},
		{"index height", strconv.Itoa(st.Height)},
		{"featured", featuredCount},
	})
	r.printf("%s", buf.String())
}

func (r *REPL) submit() {
	r.slot.Submit(r.state)
}

// printResult renders one evaluation. It runs on the slot's goroutine for
// debounced evaluations and on the Run goroutine for show.
func (r *REPL) printResult(res query.Result) {
	var buf bytes.Buffer
	for _, err := range res.PatternErrors {
		var pe *filter.PatternError
		if errors.As(err, &pe) {
			fmt.Fprintf(&buf, "warning: ignoring %s pattern %q: %v\n", pe.Field, pe.Pattern, pe.Err)
		}
	}

	switch {
	case res.Status == query.StatusIdle:
		buf.WriteString("No filters set. Type 'help' for commands.\n")
	case res.Total() == 0:
		buf.WriteString("No matching records.\n")
	default:
		limit, err := r.prefs.PageSize(r.ctx)
		if err != nil {
			limit = 0
		}
		marks, err := r.prefs.Featured(r.ctx)
		if err != nil {
			r.logger.Warn("read featured marks", "error", err)
			marks = nil
		}
		page := res.Page(limit)
		render.Table(&buf, render.RecordHeader, render.RecordRows(page, marks, render.CellWidth(r.width)))
		fmt.Fprintf(&buf, "Showing %d of %d matching records.\n", len(page), res.Total())
	}

	r.printf("\n%s", buf.String())
}

func (r *REPL) printTable(recs []record.Record, marks *featured.Set) {
	var buf bytes.Buffer
	render.Table(&buf, render.RecordHeader, render.RecordRows(recs, marks, render.CellWidth(r.width)))
	r.printf("%s", buf.String())
}
