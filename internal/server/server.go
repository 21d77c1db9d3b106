// Package server exposes the query engine and preferences over a JSON HTTP
// API.
//
// The engine is held behind an atomic pointer so a dataset reload swaps it
// without blocking requests already evaluating against the old one.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"auditview/internal/logging"
	"auditview/internal/prefs"
	"auditview/internal/query"
	"auditview/internal/sysmetrics"
)

const (
	limiterCleanupInterval = time.Minute
	limiterStaleAfter      = 10 * time.Minute
)

// Config holds server configuration.
type Config struct {
	Logger *slog.Logger

	// RateLimit is requests per second per client IP on /api/. Zero
	// disables limiting.
	RateLimit float64
	RateBurst int

	// InstanceID is reported by /healthz and in the X-Instance-Id header.
	InstanceID string
}

// Server serves the JSON API.
type Server struct {
	engine     atomic.Pointer[query.Engine]
	prefs      *prefs.Preferences
	limiter    *rateLimiter
	instanceID string
	metrics    *sysmetrics.Sampler
	logger     *slog.Logger

	mu       sync.Mutex
	server   *http.Server
	cancel   context.CancelFunc
	stopped  bool
	wg       sync.WaitGroup
	draining atomic.Bool
}

// New creates a Server over engine and p.
func New(engine *query.Engine, p *prefs.Preferences, cfg Config) *Server {
	s := &Server{
		prefs:      p,
		instanceID: cfg.InstanceID,
		metrics:    sysmetrics.NewSampler(),
		logger:     logging.Default(cfg.Logger).With(logging.ComponentKey, "server"),
	}
	if cfg.RateLimit > 0 {
		s.limiter = newRateLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}
	s.engine.Store(engine)
	return s
}

// SetEngine replaces the engine used by subsequent requests.
func (s *Server) SetEngine(e *query.Engine) {
	s.engine.Store(e)
	st := e.Stats()
	s.logger.Info("engine swapped", "records", st.Records, "indexed", st.Indexed)
}

// Engine returns the current engine.
func (s *Server) Engine() *query.Engine {
	return s.engine.Load()
}

// Handler returns the full middleware chain around the API routes.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.routes()
	h = compressMiddleware(h)
	if s.limiter != nil {
		h = rateLimitMiddleware(s.limiter)(h)
	}
	h = s.logMiddleware(h)
	h = requestIDMiddleware(h)
	h = s.trackingMiddleware(h)
	return h
}

// Serve serves on listener until Stop. It returns nil after a clean stop,
// including when Stop was called before Serve.
func (s *Server) Serve(listener net.Listener) error {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		cancel()
		_ = listener.Close()
		return nil
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.cancel = cancel
	srv := s.server
	s.mu.Unlock()

	if s.limiter != nil {
		s.limiter.startCleanup(ctx, &s.wg, limiterCleanupInterval, limiterStaleAfter)
	}

	s.logger.Info("server starting", "addr", listener.Addr().String())
	err := srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ServeTCP listens on addr and serves.
func (s *Server) ServeTCP(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Stop stops accepting requests, waits for in-flight ones until ctx
// expires, then shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, cancel := s.server, s.cancel
	s.server, s.cancel = nil, nil
	s.stopped = true
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	s.logger.Info("server stopping")
	s.draining.Store(true)
	err := srv.Shutdown(ctx)
	cancel()
	s.wg.Wait()
	return err
}
