package main

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"auditview/internal/config"
	"auditview/internal/dataset"
	"auditview/internal/prefs"
	prefsfile "auditview/internal/prefs/file"
	prefsmem "auditview/internal/prefs/memory"
	prefssqlite "auditview/internal/prefs/sqlite"
	"auditview/internal/query"
	"auditview/internal/record"
)

// openPrefs opens the configured preference store. The returned closer is
// never nil.
func (a *app) openPrefs() (*prefs.Preferences, func() error, error) {
	noop := func() error { return nil }
	hd := a.cfg.HomeDir()

	var store prefs.Store
	switch a.cfg.Prefs {
	case config.PrefsMemory:
		store = prefsmem.NewStore()
	case config.PrefsJSON:
		if err := hd.EnsureExists(); err != nil {
			return nil, noop, err
		}
		store = prefsfile.NewStore(hd.PrefsPath(config.PrefsJSON))
	case config.PrefsSQLite:
		if err := hd.EnsureExists(); err != nil {
			return nil, noop, err
		}
		s, err := prefssqlite.NewStore(hd.PrefsPath(config.PrefsSQLite))
		if err != nil {
			return nil, noop, fmt.Errorf("open prefs: %w", err)
		}
		store = s
	default:
		return nil, noop, fmt.Errorf("unknown prefs store type: %q", a.cfg.Prefs)
	}

	closer := noop
	if c, ok := store.(io.Closer); ok {
		closer = c.Close
	}
	return prefs.New(store, a.cfg.DefaultPageSize, a.logger), closer, nil
}

// loadEngine loads the configured dataset and indexes it.
func (a *app) loadEngine(ctx context.Context) (*query.Engine, error) {
	records, err := dataset.Load(ctx, a.cfg.Dataset, a.logger)
	if err != nil {
		return nil, err
	}
	return query.New(records, a.logger), nil
}

// startReloader publishes a fresh engine whenever the dataset is
// reloaded by the watcher or the schedule. Callers close the Reloader.
func (a *app) startReloader(publish func(*query.Engine)) (*dataset.Reloader, error) {
	r := dataset.NewReloader(a.cfg.Dataset, func(records []record.Record) {
		publish(query.New(records, a.logger))
	}, a.logger)

	if a.cfg.Watch {
		if err := r.Watch(); err != nil {
			_ = r.Close()
			return nil, err
		}
	}
	if err := r.Schedule(a.cfg.ReloadCron); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

// engineHolder is the engine pointer shared by the shell and the reloader.
type engineHolder struct {
	p atomic.Pointer[query.Engine]
}

func (h *engineHolder) Load() *query.Engine   { return h.p.Load() }
func (h *engineHolder) Store(e *query.Engine) { h.p.Store(e) }
