// Package wine runs programs inside a prefix through a catalogued
// runtime, building the environment each runtime kind expects.
package wine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
)

// DefaultTimeout is the bound prefix-maintenance invocations use; the
// interactive launch path runs unbounded.
const DefaultTimeout = 5 * time.Minute

// Session binds a runtime's wine binary to one prefix. All invocations
// through the session share the same environment.
type Session struct {
	// WineBinary is the absolute path to the wine executable.
	WineBinary string
	// PrefixPath is the WINEPREFIX the session operates on.
	PrefixPath string
	// ProtonStyle adds the Steam compat-tool variables the Proton
	// builds expect even when invoked directly.
	ProtonStyle bool
	// InstallRoot is the runtime's install directory, used for
	// STEAM_COMPAT_CLIENT_INSTALL_PATH.
	InstallRoot string
	// Extra entries are appended last and win over the built-ins.
	Extra []string
	// Timeout bounds each invocation when the context has no deadline
	// of its own. Zero means unbounded (interactive programs).
	Timeout time.Duration
}

// Result captures one finished invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Environ returns the process environment for this session: the parent
// environment plus the prefix and runtime variables.
func (s *Session) Environ() []string {
	env := append(os.Environ(),
		"WINEPREFIX="+s.PrefixPath,
		"WINEARCH=win64",
	)
	if s.ProtonStyle {
		env = append(env,
			"STEAM_COMPAT_DATA_PATH="+filepath.Dir(s.PrefixPath),
			"STEAM_COMPAT_CLIENT_INSTALL_PATH="+s.InstallRoot,
		)
	}
	return append(env, s.Extra...)
}

// Run executes the wine binary with args, waiting for completion. A
// non-zero exit status is not an error here; callers decide what a
// failing program means.
func (s *Session) Run(ctx context.Context, args ...string) (Result, error) {
	if s.WineBinary == "" {
		return Result{}, fmt.Errorf("%w: no wine binary configured", domain.ErrDependencyMissing)
	}
	if _, err := os.Stat(s.WineBinary); err != nil {
		return Result{}, fmt.Errorf("%w: wine binary %s: %v", domain.ErrDependencyMissing, s.WineBinary, err)
	}
	return s.runBinary(ctx, s.WineBinary, args...)
}

// RunTool executes a helper found on PATH (winetricks, wineboot from a
// system install) in the session environment.
func (s *Session) RunTool(ctx context.Context, name string, args ...string) (Result, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s not found on PATH", domain.ErrDependencyMissing, name)
	}
	return s.runBinary(ctx, path, args...)
}

// WaitServer blocks until the prefix's wineserver exits, so files the
// server still holds are flushed before the caller moves on. The
// wineserver beside the wine binary is preferred, with PATH as the
// fallback.
func (s *Session) WaitServer(ctx context.Context) error {
	server := filepath.Join(filepath.Dir(s.WineBinary), "wineserver")
	if _, err := os.Stat(server); err != nil {
		var lookErr error
		server, lookErr = exec.LookPath("wineserver")
		if lookErr != nil {
			// No server binary means no server to wait for.
			return nil
		}
	}
	_, err := s.runBinary(ctx, server, "--wait")
	return err
}

func (s *Session) runBinary(ctx context.Context, binary string, args ...string) (Result, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Env = s.Environ()
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			log.Debug().
				Str("binary", filepath.Base(binary)).
				Strs("args", args).
				Int("exit", result.ExitCode).
				Dur("took", result.Duration).
				Msg("command exited non-zero")
			return result, nil
		}
		if ctx.Err() != nil {
			return result, fmt.Errorf("running %s: %w", filepath.Base(binary), ctx.Err())
		}
		return result, fmt.Errorf("running %s: %w", filepath.Base(binary), err)
	}

	log.Debug().
		Str("binary", filepath.Base(binary)).
		Strs("args", args).
		Dur("took", result.Duration).
		Msg("command finished")
	return result, nil
}
