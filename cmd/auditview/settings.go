package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func (a *app) newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change stored preferences",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "page-size [n]",
		Short: "Print the page size, or store a new one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closePrefs, err := a.openPrefs()
			if err != nil {
				return err
			}
			defer closePrefs()

			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid page size %q", args[0])
				}
				if err := p.SetPageSize(cmd.Context(), n); err != nil {
					return err
				}
			}
			n, err := p.PageSize(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Println(n)
			return nil
		},
	})
	return cmd
}
