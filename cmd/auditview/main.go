// Command auditview explores a change-log dataset: filter, sort and mark
// records from a one-shot query, an interactive shell or a JSON API.
//
// Logging:
//   - The base logger is built here and injected everywhere
//   - No slog.SetDefault
//   - --log-level sets the default level of the component filter
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"auditview/internal/config"
	"auditview/internal/logging"
	"auditview/internal/prefs"
)

var version = "dev"

func main() {
	baseHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug, // filtering is done by ComponentFilterHandler
	})
	levels := logging.NewComponentFilterHandler(baseHandler, slog.LevelInfo)
	logger := slog.New(levels)

	if err := newRootCmd(logger, levels, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// app is what every subcommand receives after configuration is loaded.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
}

func newRootCmd(logger *slog.Logger, levels *logging.ComponentFilterHandler, out io.Writer) *cobra.Command {
	a := &app{logger: logger, out: out}

	root := &cobra.Command{
		Use:           "auditview",
		Short:         "Filter, sort and mark change-log records",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			lvl, _ := config.ParseLevel(cfg.LogLevel)
			if levels != nil {
				levels.SetDefaultLevel(lvl)
			}
			a.cfg = cfg
			return nil
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.String(config.KeyConfig, "", "config file (default: <home>/config.yaml if present)")
	pf.String(config.KeyHome, "", "home directory (default: platform config dir)")
	pf.StringSliceP(config.KeyDataset, "d", nil, "dataset files or doublestar globs (repeatable)")
	pf.String(config.KeyPrefs, config.PrefsJSON, "preference store: json, sqlite or memory")
	pf.Int(config.KeyPageSize, prefs.DefaultPageSize, "page size used until one is stored")
	pf.String(config.KeyLogLevel, "info", "log level: debug, info, warn or error")

	root.AddCommand(
		a.newServeCmd(),
		a.newQueryCmd(),
		a.newShellCmd(),
		a.newFeaturedCmd(),
		a.newSettingsCmd(),
		a.newStatsCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				cmd.Println(version)
			},
		},
	)
	return root
}
