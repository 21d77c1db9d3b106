package logging

import (
	"context"
	"log/slog"
	"sync"
)

// ComponentFilterHandler drops records below a per-component minimum
// level. The component is read from the "component" attribute, either
// attached earlier with Logger.With or given on the record itself.
// Components without an override use the default level.
//
// Levels can be changed at any time; every handler derived through
// WithAttrs/WithGroup shares the same level table.
type ComponentFilterHandler struct {
	next      slog.Handler
	levels    *levelTable
	component string
}

type levelTable struct {
	mu         sync.RWMutex
	defaultLvl slog.Level
	overrides  map[string]slog.Level
}

func (t *levelTable) level(component string) slog.Level {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if lvl, ok := t.overrides[component]; ok {
		return lvl
	}
	return t.defaultLvl
}

// lowest is the most permissive level any component may log at.
func (t *levelTable) lowest() slog.Level {
	t.mu.RLock()
	defer t.mu.RUnlock()
	lvl := t.defaultLvl
	for _, l := range t.overrides {
		lvl = min(lvl, l)
	}
	return lvl
}

// NewComponentFilterHandler wraps next. Records from components without
// an override must be at least defaultLevel.
func NewComponentFilterHandler(next slog.Handler, defaultLevel slog.Level) *ComponentFilterHandler {
	return &ComponentFilterHandler{
		next: next,
		levels: &levelTable{
			defaultLvl: defaultLevel,
			overrides:  make(map[string]slog.Level),
		},
	}
}

// SetLevel sets the minimum level for component.
func (h *ComponentFilterHandler) SetLevel(component string, level slog.Level) {
	h.levels.mu.Lock()
	h.levels.overrides[component] = level
	h.levels.mu.Unlock()
}

// ClearLevel removes the override for component.
func (h *ComponentFilterHandler) ClearLevel(component string) {
	h.levels.mu.Lock()
	delete(h.levels.overrides, component)
	h.levels.mu.Unlock()
}

// Level returns the effective minimum level for component.
func (h *ComponentFilterHandler) Level(component string) slog.Level {
	return h.levels.level(component)
}

// DefaultLevel returns the level used by components without an override.
func (h *ComponentFilterHandler) DefaultLevel() slog.Level {
	h.levels.mu.RLock()
	defer h.levels.mu.RUnlock()
	return h.levels.defaultLvl
}

// SetDefaultLevel changes the level used by components without an
// override.
func (h *ComponentFilterHandler) SetDefaultLevel(level slog.Level) {
	h.levels.mu.Lock()
	h.levels.defaultLvl = level
	h.levels.mu.Unlock()
}

// Enabled cannot see the record's attributes yet, so it admits any level
// some component could log at and leaves the exact check to Handle.
func (h *ComponentFilterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.component != "" {
		if level < h.levels.level(h.component) {
			return false
		}
	} else if level < h.levels.lowest() {
		return false
	}
	return h.next == nil || h.next.Enabled(ctx, level)
}

func (h *ComponentFilterHandler) Handle(ctx context.Context, r slog.Record) error {
	component := h.component
	if component == "" {
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == ComponentKey {
				component = a.Value.String()
				return false
			}
			return true
		})
	}
	if r.Level < h.levels.level(component) {
		return nil
	}
	if h.next == nil {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *ComponentFilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.component
	for _, a := range attrs {
		if a.Key == ComponentKey {
			component = a.Value.String()
		}
	}
	var next slog.Handler
	if h.next != nil {
		next = h.next.WithAttrs(attrs)
	}
	return &ComponentFilterHandler{next: next, levels: h.levels, component: component}
}

func (h *ComponentFilterHandler) WithGroup(name string) slog.Handler {
	var next slog.Handler
	if h.next != nil {
		next = h.next.WithGroup(name)
	}
	return &ComponentFilterHandler{next: next, levels: h.levels, component: h.component}
}
