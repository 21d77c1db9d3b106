// Package file provides a JSON file prefs.Store.
//
// Preferences are persisted as a versioned envelope:
//
//	{"version": 1, "prefs": {"max-records": 40, "featured-records": [2, 4]}}
//
// Every mutation loads the whole file, changes it in memory and rewrites it
// atomically.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"auditview/internal/prefs"
)

const currentVersion = 1

type envelope struct {
	Version int                        `json:"version"`
	Prefs   map[string]json.RawMessage `json:"prefs"`
}

// Store is a file-backed prefs.Store. Writes go through a temp file and a
// rename, with the temp file re-read and parsed before it replaces the
// original.
type Store struct {
	path string
	mu   sync.Mutex
}

var _ prefs.Store = (*Store)(nil)

// NewStore returns a Store persisting to path. The file is created on the
// first write.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return nil, err
	}
	v, ok := values[key]
	if !ok {
		return nil, nil
	}
	return bytes.Clone(v), nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return prefs.ErrNotJSON
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = json.RawMessage(bytes.Clone(value))
	return s.flush(values)
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.flush(values)
}

func (s *Store) Keys(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// load reads the file. A missing file is an empty map.
func (s *Store) load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("read prefs file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse prefs file: %w", err)
	}
	if env.Version == 0 {
		return nil, fmt.Errorf("unversioned prefs file %s", s.path)
	}
	if env.Version > currentVersion {
		return nil, fmt.Errorf("prefs file version %d is newer than supported version %d", env.Version, currentVersion)
	}
	if env.Prefs == nil {
		env.Prefs = map[string]json.RawMessage{}
	}
	return env.Prefs, nil
}

func (s *Store) flush(values map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create prefs directory: %w", err)
	}

	data, err := json.MarshalIndent(envelope{Version: currentVersion, Prefs: values}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	check, err := os.ReadFile(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("read-back temp file: %w", err)
	}
	var verify envelope
	if err := json.Unmarshal(check, &verify); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("round-trip validation failed: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename prefs file: %w", err)
	}
	return nil
}
