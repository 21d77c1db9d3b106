package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"auditview/internal/prefs"
	"auditview/internal/record"
)

func (a *app) newFeaturedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "featured",
		Short: "List and edit featured record marks",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List featured ids, with their records when a dataset is configured",
		Args:  cobra.NoArgs,
		RunE:  a.runFeaturedList,
	}
	list.Flags().StringP("output", "o", "table", "output format: table or json")

	cmd.AddCommand(
		list,
		a.featuredEditCmd("add", "Mark a record as featured",
			func(p *prefs.Preferences, ctx context.Context, id int64) (bool, error) {
				return true, p.AddFeatured(ctx, id)
			}),
		a.featuredEditCmd("remove", "Unmark a record",
			func(p *prefs.Preferences, ctx context.Context, id int64) (bool, error) {
				return false, p.RemoveFeatured(ctx, id)
			}),
		a.featuredEditCmd("toggle", "Flip a record's featured mark",
			(*prefs.Preferences).ToggleFeatured),
	)
	return cmd
}

// featuredEditCmd builds a subcommand taking one record id. edit reports
// whether the id is featured afterwards.
func (a *app) featuredEditCmd(use, short string, edit func(*prefs.Preferences, context.Context, int64) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid record id %q", args[0])
			}
			p, closePrefs, err := a.openPrefs()
			if err != nil {
				return err
			}
			defer closePrefs()

			on, err := edit(p, cmd.Context(), id)
			if err != nil {
				return err
			}
			if on {
				cmd.Printf("%d: featured\n", id)
			} else {
				cmd.Printf("%d: not featured\n", id)
			}
			return nil
		},
	}
}

func (a *app) runFeaturedList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, _ := cmd.Flags().GetString("output")
	out, err := newPrinter(format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	p, closePrefs, err := a.openPrefs()
	if err != nil {
		return err
	}
	defer closePrefs()

	marks, err := p.Featured(ctx)
	if err != nil {
		return err
	}

	var recs []record.Record
	if len(a.cfg.Dataset) > 0 {
		engine, err := a.loadEngine(ctx)
		if err != nil {
			return err
		}
		for _, id := range marks.IDs() {
			if r, ok := engine.Record(id); ok {
				recs = append(recs, r)
			}
		}
	}

	if out.isJSON() {
		return out.json(struct {
			IDs     []int64         `json:"ids"`
			Records []record.Record `json:"records,omitempty"`
		}{IDs: marks.IDs(), Records: recs})
	}

	if marks.Len() == 0 {
		out.line("No featured records.")
		return nil
	}
	if recs == nil {
		for _, id := range marks.IDs() {
			out.line("%d", id)
		}
		return nil
	}
	out.records(recs, marks)
	if missing := marks.Len() - len(recs); missing > 0 {
		out.line("%d featured ids are not in the dataset.", missing)
	}
	return nil
}
