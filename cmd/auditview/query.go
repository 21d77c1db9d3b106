package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"auditview/internal/order"
	"auditview/internal/query"
	"auditview/internal/record"
	"auditview/internal/server"
)

func (a *app) newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Evaluate filters once and print the matching records",
		Example: `  auditview query -d 'data/**/*.json' --name reza --sort-key date --sort-type asc
  auditview query -d changes.msgpack.zst --url 'field=price&sort_key=id' -o json`,
		Args: cobra.NoArgs,
		RunE: a.runQuery,
	}
	f := cmd.Flags()
	f.String("name", "", "editor name pattern")
	f.String("title", "", "listing title pattern")
	f.String("field", "", "changed field pattern")
	f.String("date", "", "exact timestamp")
	f.String("sort-key", "", "sort field: "+strings.Join(fieldNames(), ", "))
	f.String("sort-type", "asc", "sort direction: asc or dsc")
	f.String("url", "", "read filters from a URL query string instead of flags")
	f.Int("limit", 0, "records to print (default: stored page size)")
	f.StringP("output", "o", "table", "output format: table or json")
	return cmd
}

func fieldNames() []string {
	var names []string
	for _, f := range record.Fields() {
		names = append(names, f.String())
	}
	return names
}

// stateFromFlags builds the query state from --url or the filter flags.
func stateFromFlags(cmd *cobra.Command) (query.State, error) {
	f := cmd.Flags()
	if raw, _ := f.GetString("url"); raw != "" {
		v, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
		if err != nil {
			return query.State{}, fmt.Errorf("parse --url: %w", err)
		}
		return query.StateFromValues(v), nil
	}

	var s query.State
	s.Name, _ = f.GetString("name")
	s.Title, _ = f.GetString("title")
	s.Field, _ = f.GetString("field")
	s.Date, _ = f.GetString("date")

	if key, _ := f.GetString("sort-key"); key != "" {
		field, err := record.ParseField(key)
		if err != nil {
			return query.State{}, err
		}
		dirName, _ := f.GetString("sort-type")
		dir, err := order.ParseDirection(dirName)
		if err != nil {
			return query.State{}, err
		}
		s.Sort = order.Order{Field: field, Direction: dir}
	}
	return s, nil
}

func (a *app) runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, _ := cmd.Flags().GetString("output")
	p, err := newPrinter(format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	state, err := stateFromFlags(cmd)
	if err != nil {
		return err
	}

	prefs, closePrefs, err := a.openPrefs()
	if err != nil {
		return err
	}
	defer closePrefs()

	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		if limit, err = prefs.PageSize(ctx); err != nil {
			return err
		}
	}
	marks, err := prefs.Featured(ctx)
	if err != nil {
		return err
	}

	engine, err := a.loadEngine(ctx)
	if err != nil {
		return err
	}

	state.PageSize = limit
	res := engine.Evaluate(state)

	if p.isJSON() {
		return p.json(server.NewRecordsResponse(state, res, limit, marks))
	}

	for _, perr := range res.PatternErrors {
		a.logger.Warn("ignoring pattern", "error", perr)
	}
	switch {
	case res.Status == query.StatusIdle:
		p.line("No filters set.")
	case res.Total() == 0:
		p.line("No matching records.")
	default:
		page := res.Page(limit)
		p.records(page, marks)
		p.line("Showing %d of %d matching records.", len(page), res.Total())
	}
	return nil
}
