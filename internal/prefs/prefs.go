// Package prefs persists user preferences that outlive a session: the page
// size and the featured record ids.
//
// Store is a small key-value interface with memory, JSON file and SQLite
// backends. Values are JSON documents. Preferences layers typed accessors
// over a Store under fixed keys.
//
// Preferences are not on the query path. Evaluation never reads them; the
// caller applies the page size and the featured marks to a finished result.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"auditview/internal/featured"
	"auditview/internal/logging"
)

// Fixed storage keys.
const (
	KeyPageSize = "max-records"
	KeyFeatured = "featured-records"
)

// DefaultPageSize is used until a page size has been stored.
const DefaultPageSize = 40

var (
	ErrInvalidPageSize = errors.New("page size must be at least 1")
	ErrNotJSON         = errors.New("value is not valid JSON")
)

// Store persists preference values by key.
type Store interface {
	// Get returns the value stored under key, or nil if there is none.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, replacing any previous value. value must
	// be a JSON document.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns every stored key in ascending order.
	Keys(ctx context.Context) ([]string, error)
}

// Preferences provides typed access to the fixed preference keys.
// Read-modify-write operations are serialised per Preferences value.
type Preferences struct {
	store           Store
	defaultPageSize int
	logger          *slog.Logger

	mu sync.Mutex
}

// New wraps store. defaultPageSize below 1 falls back to DefaultPageSize.
func New(store Store, defaultPageSize int, logger *slog.Logger) *Preferences {
	if defaultPageSize < 1 {
		defaultPageSize = DefaultPageSize
	}
	return &Preferences{
		store:           store,
		defaultPageSize: defaultPageSize,
		logger:          logging.Default(logger).With(logging.ComponentKey, "prefs"),
	}
}

// PageSize returns the stored page size, or the default when none is set.
func (p *Preferences) PageSize(ctx context.Context) (int, error) {
	var n int
	ok, err := p.get(ctx, KeyPageSize, &n)
	if err != nil {
		return 0, err
	}
	if !ok || n < 1 {
		return p.defaultPageSize, nil
	}
	return n, nil
}

// SetPageSize stores n, which must be at least 1.
func (p *Preferences) SetPageSize(ctx context.Context, n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, n)
	}
	return p.put(ctx, KeyPageSize, n)
}

// Featured returns the stored featured set, empty when none is set.
func (p *Preferences) Featured(ctx context.Context) (*featured.Set, error) {
	set := featured.New()
	if _, err := p.get(ctx, KeyFeatured, set); err != nil {
		return nil, err
	}
	return set, nil
}

// SetFeatured replaces the stored featured set.
func (p *Preferences) SetFeatured(ctx context.Context, set *featured.Set) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.put(ctx, KeyFeatured, set)
}

// ToggleFeatured flips id in the stored set and reports whether it is
// featured afterwards.
func (p *Preferences) ToggleFeatured(ctx context.Context, id int64) (bool, error) {
	var on bool
	err := p.updateFeatured(ctx, func(s *featured.Set) { on = s.Toggle(id) })
	return on, err
}

// AddFeatured marks id.
func (p *Preferences) AddFeatured(ctx context.Context, id int64) error {
	return p.updateFeatured(ctx, func(s *featured.Set) { s.Add(id) })
}

// RemoveFeatured unmarks id.
func (p *Preferences) RemoveFeatured(ctx context.Context, id int64) error {
	return p.updateFeatured(ctx, func(s *featured.Set) { s.Remove(id) })
}

func (p *Preferences) updateFeatured(ctx context.Context, fn func(*featured.Set)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, err := p.Featured(ctx)
	if err != nil {
		return err
	}
	fn(set)
	return p.put(ctx, KeyFeatured, set)
}

func (p *Preferences) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := p.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// A corrupt value is reported but not fatal: callers fall back to
		// the default and the next write repairs it.
		p.logger.Warn("ignoring unreadable preference", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

func (p *Preferences) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := p.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
