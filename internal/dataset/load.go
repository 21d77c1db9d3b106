// Package dataset loads change-log records from files on disk.
//
// A dataset is the concatenation of every file matched by a list of
// doublestar patterns, decoded by extension (.json, .jsonl, .msgpack,
// optionally .gz or .zst compressed). Files decode in parallel; the
// result is ordered by file path and then by position in the file.
//
// Reloader keeps a dataset fresh by re-running Load on file changes
// (fsnotify) or on a cron schedule (gocron) and hands each successful
// load to a callback. A failed reload leaves the previous records in
// place.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"auditview/internal/logging"
	"auditview/internal/record"
)

var (
	ErrNoPatterns = errors.New("no dataset patterns configured")
	ErrNoFiles    = errors.New("no dataset files matched")
)

// FileError ties a decode failure to its file.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }
func (e *FileError) Unwrap() error { return e.Err }

// Load discovers and decodes every file matched by patterns. Any file that
// fails to decode fails the whole load.
func Load(ctx context.Context, patterns []string, logger *slog.Logger) ([]record.Record, error) {
	logger = logging.Default(logger).With(logging.ComponentKey, "dataset")

	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}
	paths, err := Discover(patterns)
	if err != nil {
		return nil, fmt.Errorf("discover dataset files: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoFiles, patterns)
	}

	parts := make([][]record.Record, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			recs, err := ReadFile(path)
			if err != nil {
				return &FileError{Path: path, Err: err}
			}
			parts[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	records := make([]record.Record, 0, total)
	for _, p := range parts {
		records = append(records, p...)
	}

	if dups := duplicateIDs(records); dups > 0 {
		logger.Warn("dataset has duplicate record ids", "duplicates", dups)
	}
	logger.Info("dataset loaded", "files", len(paths), "records", len(records))
	return records, nil
}

// ReadFile decodes a single dataset file.
func ReadFile(path string) ([]record.Record, error) {
	format, comp, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) //nolint:gosec // G304: path comes from operator-supplied patterns
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Decode(f, format, comp)
}

func duplicateIDs(records []record.Record) int {
	seen := make(map[int64]struct{}, len(records))
	dups := 0
	for _, r := range records {
		if _, ok := seen[r.ID]; ok {
			dups++
			continue
		}
		seen[r.ID] = struct{}{}
	}
	return dups
}
