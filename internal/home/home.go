// Package home manages the auditview home directory.
//
// Layout:
//
//	<root>/
//	  config.yaml                     (optional, read by viper)
//	  prefs.json   or  prefs.db       (preference store, type-dependent)
//	  instance_id                     (stable id reported by the server)
package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Dir is an auditview home directory.
type Dir struct {
	root string
}

// New creates a Dir rooted at root.
func New(root string) Dir {
	return Dir{root: root}
}

// Default returns the platform config location:
//   - Linux:   ~/.config/auditview
//   - macOS:   ~/Library/Application Support/auditview
//   - Windows: %APPDATA%/auditview
func Default() (Dir, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return Dir{}, fmt.Errorf("determine config directory: %w", err)
	}
	return Dir{root: filepath.Join(base, "auditview")}, nil
}

func (d Dir) Root() string {
	return d.root
}

// ConfigPath is where viper looks for a config file when none is given.
func (d Dir) ConfigPath() string {
	return filepath.Join(d.root, "config.yaml")
}

// PrefsPath returns the preference store location for a store type:
// prefs.db for "sqlite", prefs.json otherwise. The memory type ignores it.
func (d Dir) PrefsPath(storeType string) string {
	if storeType == "sqlite" {
		return filepath.Join(d.root, "prefs.db")
	}
	return filepath.Join(d.root, "prefs.json")
}

// EnsureExists creates the home directory and its parents.
func (d Dir) EnsureExists() error {
	if err := os.MkdirAll(d.root, 0o750); err != nil {
		return fmt.Errorf("create home directory %s: %w", d.root, err)
	}
	return nil
}

// InstanceID returns the persistent id from <root>/instance_id, generating
// a UUIDv7 on first use.
func (d Dir) InstanceID() (string, error) {
	return d.readOrCreate("instance_id", func() string {
		return uuid.Must(uuid.NewV7()).String()
	})
}

func (d Dir) readOrCreate(filename string, generate func() string) (string, error) {
	p := filepath.Join(d.root, filename)
	data, err := os.ReadFile(p) //nolint:gosec // G304: trusted home dir + constant filename
	if err == nil {
		if v := strings.TrimSpace(string(data)); v != "" {
			return v, nil
		}
	}
	v := generate()
	if err := os.WriteFile(p, []byte(v+"\n"), 0o640); err != nil { //nolint:gosec // G306: not secret
		return "", fmt.Errorf("write %s: %w", filename, err)
	}
	return v, nil
}
