package main

import (
	"encoding/json"
	"fmt"
	"io"

	"auditview/internal/featured"
	"auditview/internal/record"
	"auditview/internal/render"
)

// printer writes either aligned tables or indented JSON.
type printer struct {
	format string
	w      io.Writer
}

func newPrinter(format string, w io.Writer) (*printer, error) {
	switch format {
	case "table", "json":
		return &printer{format: format, w: w}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (expected table or json)", format)
}

func (p *printer) isJSON() bool { return p.format == "json" }

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) records(recs []record.Record, marks *featured.Set) {
	render.Table(p.w, render.RecordHeader, render.RecordRows(recs, marks, render.CellWidth(render.TerminalWidth(p.w))))
}

func (p *printer) kv(pairs [][2]string) {
	render.KV(p.w, pairs)
}

func (p *printer) line(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}
