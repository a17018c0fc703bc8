package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Backup kinds. Each kind is an independent namespace of timestamped
// backup directories under backups/<kind>/.
const (
	BackupGameConfig = "gameconfig"
	BackupKeybinds   = "keybinds"
)

// backupStampFormat names backup directories. RFC3339 with colons
// replaced so the stamp stays a portable path component.
const backupStampFormat = "2006-01-02T15-04-05Z07-00"

// BackupResult reports what a backup actually captured. The operation
// succeeds as long as at least one source file was copied.
type BackupResult struct {
	ID     string
	Copied int
	Failed int
}

func (s *Store) backupsDir(kind string) string {
	return filepath.Join(s.dir, "backups", kind)
}

// CreateBackup copies the given source files into a fresh timestamped
// directory under backups/<kind>/ and records them in backup_info.txt.
func (s *Store) CreateBackup(kind string, sources []string) (*BackupResult, error) {
	stamp := time.Now().UTC().Format(backupStampFormat)
	dir := filepath.Join(s.backupsDir(kind), stamp)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup dir: %w", err)
	}

	res := &BackupResult{ID: stamp}
	var info strings.Builder
	for _, src := range sources {
		dest := filepath.Join(dir, filepath.Base(src))
		if err := copyFile(src, dest); err != nil {
			log.Warn().Str("source", src).Err(err).Msg("backup: source not copied")
			res.Failed++
			fmt.Fprintf(&info, "failed %s\n", src)
			continue
		}
		res.Copied++
		fmt.Fprintf(&info, "source %s\n", src)
	}
	fmt.Fprintf(&info, "files %d\n", res.Copied)

	infoPath := filepath.Join(dir, "backup_info.txt")
	if err := os.WriteFile(infoPath, []byte(info.String()), 0o644); err != nil {
		return nil, fmt.Errorf("writing backup info: %w", err)
	}

	if res.Copied == 0 {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("backup %s: no source file could be copied", kind)
	}
	return res, nil
}

// ListBackups returns backup ids for a kind, newest first.
func (s *Store) ListBackups(kind string) ([]string, error) {
	entries, err := os.ReadDir(s.backupsDir(kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backups: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// RestoreBackup copies every backed-up file (backup_info.txt excluded)
// from the given backup into destDir.
func (s *Store) RestoreBackup(kind, id, destDir string) error {
	dir := filepath.Join(s.backupsDir(kind), id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading backup %s: %w", id, err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}
	restored := 0
	for _, e := range entries {
		if e.IsDir() || e.Name() == "backup_info.txt" {
			continue
		}
		src := filepath.Join(dir, e.Name())
		if err := copyFile(src, filepath.Join(destDir, e.Name())); err != nil {
			return fmt.Errorf("restoring %s: %w", e.Name(), err)
		}
		restored++
	}
	if restored == 0 {
		return fmt.Errorf("backup %s/%s holds no files", kind, id)
	}
	return nil
}

// GCBackups removes backups of a kind older than the given number of
// days and returns how many were removed.
func (s *Store) GCBackups(kind string, olderThanDays int) (int, error) {
	ids, err := s.ListBackups(kind)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	removed := 0
	for _, id := range ids {
		stamp, err := time.Parse(backupStampFormat, id)
		if err != nil {
			// Not one of ours; leave it alone.
			continue
		}
		if stamp.Before(cutoff) {
			if err := os.RemoveAll(filepath.Join(s.backupsDir(kind), id)); err != nil {
				return removed, fmt.Errorf("removing backup %s: %w", id, err)
			}
			removed++
		}
	}
	return removed, nil
}

// copyFile copies src to dest through a temp file so a half-written
// destination is never observed.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dest + ".tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}
