package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
)

// lockFileName is the sentinel guarding against two concurrent
// instances mutating the same prefix or runtimes directory.
const lockFileName = "instance.lock"

// Lock is a held instance lock. Release it before process exit.
type Lock struct {
	path string
}

// AcquireLock takes the instance lock or fails with domain.ErrConflict
// when another live process holds it. A lock left behind by a dead
// process is broken and re-acquired.
func (s *Store) AcquireLock() (*Lock, error) {
	path := filepath.Join(s.dir, lockFileName)
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating lock: %w", err)
		}
		pid, readErr := readLockPid(path)
		if readErr == nil && processAlive(pid) {
			return nil, fmt.Errorf("%w: another instance is running (pid %d)", domain.ErrConflict, pid)
		}
		log.Debug().Int("pid", pid).Msg("breaking stale instance lock")
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("breaking stale lock: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: could not acquire instance lock", domain.ErrConflict)
}

// Release removes the lock file. Safe to call more than once.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	os.Remove(l.path)
}

func readLockPid(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// processAlive probes a pid with signal 0.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}
