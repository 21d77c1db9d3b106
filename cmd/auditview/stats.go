package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

func (a *app) newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Load the dataset and print index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("output")
			p, err := newPrinter(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			engine, err := a.loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			st := engine.Stats()
			if p.isJSON() {
				return p.json(st)
			}
			p.kv([][2]string{
				{"records", strconv.Itoa(st.Records)},
				{"indexed", strconv.Itoa(st.Indexed)},
				{"skipped", strconv.Itoa(st.Skipped)},
				{"index keys", strconv.Itoa(st.Keys)},
				{"index height", strconv.Itoa(st.Height)},
			})
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "table", "output format: table or json")
	return cmd
}
