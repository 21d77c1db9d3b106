// Package repl is an interactive shell over a query engine.
//
// Filter edits do not evaluate immediately. Each edit submits the new
// state to a debounce slot and the result is printed once typing pauses;
// an edit made while an evaluation is pending or running supersedes it.
// "show" bypasses the slot and evaluates right away.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"auditview/internal/debounce"
	"auditview/internal/logging"
	"auditview/internal/prefs"
	"auditview/internal/query"
	"auditview/internal/render"
)

// Config wires a REPL.
type Config struct {
	// Engine returns the engine to evaluate against. It is called for
	// every evaluation so a reloaded dataset is picked up.
	Engine func() *query.Engine

	Prefs    *prefs.Preferences
	Debounce time.Duration

	In  io.Reader
	Out io.Writer

	// Width overrides terminal width detection when positive.
	Width int

	Logger *slog.Logger
}

// REPL holds one interactive session.
type REPL struct {
	engine func() *query.Engine
	prefs  *prefs.Preferences
	logger *slog.Logger

	in    *bufio.Scanner
	out   io.Writer
	outMu sync.Mutex
	width int

	// state is only touched by the Run goroutine.
	state query.State
	slot  *debounce.Slot[query.State, query.Result]

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a REPL. Call Close when done.
func New(cfg Config) *REPL {
	ctx, cancel := context.WithCancel(context.Background())
	width := cfg.Width
	if width <= 0 {
		width = render.TerminalWidth(cfg.Out)
	}
	r := &REPL{
		engine: cfg.Engine,
		prefs:  cfg.Prefs,
		logger: logging.Default(cfg.Logger).With(logging.ComponentKey, "repl"),
		in:     bufio.NewScanner(cfg.In),
		out:    cfg.Out,
		width:  width,
		ctx:    ctx,
		cancel: cancel,
	}
	r.slot = debounce.New(cfg.Debounce, r.evaluate, r.printResult)
	return r
}

// Run reads commands until exit, end of input or Close.
func (r *REPL) Run() error {
	r.printf("auditview shell. Type 'help' for commands.\n")
	r.prompt()

	for r.in.Scan() {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			r.prompt()
			continue
		}
		if exit := r.execute(line); exit {
			return nil
		}
		r.prompt()
	}
	return r.in.Err()
}

// Close drops any pending evaluation and waits for a running one.
func (r *REPL) Close() {
	r.cancel()
	r.slot.Close()
}

func (r *REPL) evaluate(ctx context.Context, s query.State) query.Result {
	if ctx.Err() != nil {
		return query.Result{}
	}
	return r.engine().Evaluate(s)
}

func (r *REPL) execute(line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	switch cmd {
	case "help":
		r.cmdHelp()
	case "name", "title", "field", "date":
		r.cmdFilter(cmd, rest)
	case "clear":
		r.cmdClear(args)
	case "sort":
		r.cmdSort(args)
	case "limit":
		r.cmdLimit(args)
	case "star":
		r.cmdStar(args)
	case "featured":
		r.cmdFeatured()
	case "show":
		r.cmdShow()
	case "url":
		r.cmdURL(rest)
	case "stats":
		r.cmdStats()
	case "exit", "quit":
		return true
	default:
		r.printf("Unknown command: %s. Type 'help' for commands.\n", cmd)
	}
	return false
}

func (r *REPL) cmdHelp() {
	r.printf(`Commands:
  name [pattern]           Filter by editor name (regex, case-insensitive)
  title [pattern]          Filter by listing title
  field [pattern]          Filter by changed field
  date [date]              Exact timestamp match (e.g. 2023-01-01, 2023-01-02T12:00:00Z)
  clear [what]             Clear name, title, field, date, sort or everything
  sort [field] [asc|dsc]   Sort by id, name, date, title, field, old_value or new_value
  sort off                 Keep dataset order
  limit [n]                Get or set how many records are shown
  star <id>                Toggle the featured mark on a record
  featured                 List featured records
  show                     Evaluate now and print the result
  url [query-string]       Print the current state as URL parameters, or load one
  stats                    Show dataset and index statistics
  help                     Show this help
  exit                     Exit the shell

An empty pattern removes that filter. Filters combine with AND. A pattern
that is not a valid regular expression is ignored with a warning.

Examples:
  name ^ali$
  field price
  sort date asc
  url name=reza&sort_key=id&sort_type=dsc
`)
}

func (r *REPL) printf(format string, args ...any) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func (r *REPL) prompt() {
	r.printf("> ")
}
