package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"auditview/internal/config"
	"auditview/internal/server"
)

const shutdownTimeout = 10 * time.Second

func addReloadFlags(cmd *cobra.Command) {
	cmd.Flags().Bool(config.KeyWatch, false, "reload the dataset when matched files change")
	cmd.Flags().String(config.KeyReloadCron, "", "reload the dataset on a 6-field cron schedule (e.g. \"0 */5 * * * *\")")
}

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return a.serve(ctx)
		},
	}
	cmd.Flags().String(config.KeyAddr, "127.0.0.1:8080", "listen address (host:port)")
	cmd.Flags().Float64(config.KeyRateLimit, 20, "requests per second per client IP (0 disables)")
	cmd.Flags().Int(config.KeyRateBurst, 40, "rate limit burst size")
	addReloadFlags(cmd)
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	p, closePrefs, err := a.openPrefs()
	if err != nil {
		return err
	}
	defer closePrefs()

	engine, err := a.loadEngine(ctx)
	if err != nil {
		return err
	}

	var instanceID string
	if a.cfg.Prefs != config.PrefsMemory {
		if instanceID, err = a.cfg.HomeDir().InstanceID(); err != nil {
			return err
		}
	}

	srv := server.New(engine, p, server.Config{
		Logger:     a.logger,
		RateLimit:  a.cfg.RateLimit,
		RateBurst:  a.cfg.RateBurst,
		InstanceID: instanceID,
	})

	reloader, err := a.startReloader(srv.SetEngine)
	if err != nil {
		return err
	}
	defer reloader.Close()

	ln, err := net.Listen("tcp", a.cfg.Addr)
	if err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errCh
}
