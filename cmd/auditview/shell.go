package main

import (
	"github.com/spf13/cobra"

	"auditview/internal/config"
	"auditview/internal/repl"
)

func (a *app) newShellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Explore the dataset interactively",
		Long: `Start an interactive shell over the dataset.

Filter edits are evaluated once typing pauses for the debounce delay.
Type 'help' inside the shell for the command list.`,
		Args: cobra.NoArgs,
		RunE: a.runShell,
	}
	cmd.Flags().Duration(config.KeyDebounce, config.DefaultDebounce, "quiet period before a filter edit is evaluated")
	addReloadFlags(cmd)
	return cmd
}

func (a *app) runShell(cmd *cobra.Command, args []string) error {
	p, closePrefs, err := a.openPrefs()
	if err != nil {
		return err
	}
	defer closePrefs()

	engine, err := a.loadEngine(cmd.Context())
	if err != nil {
		return err
	}
	var holder engineHolder
	holder.Store(engine)

	reloader, err := a.startReloader(holder.Store)
	if err != nil {
		return err
	}
	defer reloader.Close()

	r := repl.New(repl.Config{
		Engine:   holder.Load,
		Prefs:    p,
		Debounce: a.cfg.DebounceDelay,
		In:       cmd.InOrStdin(),
		Out:      cmd.OutOrStdout(),
		Logger:   a.logger,
	})
	defer r.Close()
	return r.Run()
}
