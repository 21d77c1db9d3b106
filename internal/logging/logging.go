// Package logging provides the structured logging conventions used across
// auditview.
//
// Rules:
//   - Loggers are injected, never global. Components take a *slog.Logger
//     and pass it through Default so nil is always safe.
//   - A component scopes its logger once, at construction, with
//     logger.With("component", "<name>").
//   - Output format, level and destination are decided in main only.
//     Nothing else calls slog.SetDefault.
//   - Log lifecycle boundaries (dataset loaded, index built, server
//     started). Never log per record or per comparison.
package logging

import (
	"context"
	"log/slog"
)

// ComponentKey is the attribute that names the emitting component.
const ComponentKey = "component"

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// Default returns logger, or a discard logger when logger is nil:
//
//	func NewThing(logger *slog.Logger) *Thing {
//	    logger = logging.Default(logger)
//	    return &Thing{logger: logger.With(logging.ComponentKey, "thing")}
//	}
func Default(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return Discard()
}
