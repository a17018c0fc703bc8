// Package config implements the durable key/value store the tool keeps
// under the user's config root.
//
// Each key is a single text file named <key>.conf. An absent file means
// the key is unset. All writes go through a temp file and a rename so a
// killed process never leaves a partial value behind.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Well-known keys.
const (
	KeyPrefixPath     = "prefix_path"
	KeyGamePath       = "game_path"
	KeyDefaultRuntime = "default_runtime"
	KeyFirstRunDone   = "first_run_done"
	KeyInstallState   = "install_state"
)

// Store owns a config directory. Values are UTF-8 text with trailing
// whitespace trimmed on read.
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory the store owns.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) keyPath(key string) string {
	return filepath.Join(s.dir, key+".conf")
}

// Get reads a key. A missing file is "unset" (empty string, ok=false),
// not an error.
func (s *Store) Get(key string) (string, bool, error) {
	data, err := os.ReadFile(s.keyPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return strings.TrimRight(string(data), " \t\r\n"), true, nil
}

// Set writes a key atomically: write <key>.conf.tmp, then rename.
func (s *Store) Set(key, value string) error {
	final := s.keyPath(key)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, []byte(value+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing %s: %w", key, err)
	}
	return nil
}

// Unset removes a key. Unsetting an absent key is a no-op.
func (s *Store) Unset(key string) error {
	err := os.Remove(s.keyPath(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// Reset removes every *.conf key file. Backups are left alone.
func (s *Store) Reset() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading config dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".conf") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", e.Name(), err)
		}
	}
	return nil
}

// IsFirstRun reports whether the first-run marker has not been written yet.
func (s *Store) IsFirstRun() bool {
	_, ok, err := s.Get(KeyFirstRunDone)
	return err == nil && !ok
}

// MarkFirstRunDone writes the first-run marker.
func (s *Store) MarkFirstRunDone() error {
	return s.Set(KeyFirstRunDone, "true")
}

// Snapshot is a point-in-time read of the well-known keys.
type Snapshot struct {
	PrefixPath     string
	GamePath       string
	DefaultRuntime string
	InstallState   string
	FirstRunDone   bool
}

// Load reads all well-known keys in one pass.
func (s *Store) Load() (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.PrefixPath, _, err = s.Get(KeyPrefixPath); err != nil {
		return snap, err
	}
	if snap.GamePath, _, err = s.Get(KeyGamePath); err != nil {
		return snap, err
	}
	if snap.DefaultRuntime, _, err = s.Get(KeyDefaultRuntime); err != nil {
		return snap, err
	}
	if snap.InstallState, _, err = s.Get(KeyInstallState); err != nil {
		return snap, err
	}
	snap.FirstRunDone = !s.IsFirstRun()
	return snap, nil
}
