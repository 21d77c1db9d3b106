// Package render formats records and key-value views for terminals.
package render

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"unicode/utf8"

	"golang.org/x/term"

	"auditview/internal/featured"
	"auditview/internal/record"
)

// DefaultWidth is assumed when the output is not a terminal.
const DefaultWidth = 120

// minCell keeps very narrow terminals readable.
const minCell = 8

// RecordHeader is the header row of Records.
var RecordHeader = []string{"", "ID", "DATE", "NAME", "TITLE", "FIELD", "OLD", "NEW"}

// TerminalWidth returns the column count of w when it is a terminal, and
// DefaultWidth otherwise.
func TerminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return DefaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return width
}

// CellWidth splits a terminal width across the free-text columns.
func CellWidth(termWidth int) int {
	// ID, date and the mark column take roughly 40 columns; the five text
	// columns share the rest.
	return max((termWidth-40)/5, minCell)
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

// RecordRows renders records as table rows. Featured records get a "*" in
// the first column; marks may be nil.
func RecordRows(records []record.Record, marks *featured.Set, cell int) [][]string {
	rows := make([][]string, len(records))
	for i, r := range records {
		star := ""
		if marks != nil && marks.Has(r.ID) {
			star = "*"
		}
		rows[i] = []string{
			star,
			strconv.FormatInt(r.ID, 10),
			r.Date,
			Truncate(r.Name, cell),
			Truncate(r.Title, cell),
			Truncate(r.Field, cell),
			Truncate(r.OldValue, cell),
			Truncate(r.NewValue, cell),
		}
	}
	return rows
}

// Table writes header and rows as aligned columns.
func Table(w io.Writer, header []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	writeRow(tw, header)
	for _, row := range rows {
		writeRow(tw, row)
	}
	_ = tw.Flush()
}

func writeRow(w io.Writer, cols []string) {
	for i, col := range cols {
		if i > 0 {
			_, _ = fmt.Fprint(w, "\t")
		}
		_, _ = fmt.Fprint(w, col)
	}
	_, _ = fmt.Fprintln(w)
}

// KV writes "key: value" lines with aligned values.
func KV(w io.Writer, pairs [][2]string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, pair := range pairs {
		_, _ = fmt.Fprintf(tw, "%s:\t%s\n", pair[0], pair[1])
	}
	_ = tw.Flush()
}
