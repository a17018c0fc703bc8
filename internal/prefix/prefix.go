// Package prefix creates and configures the Win32 prefix the launcher
// and game live in: initialisation, fonts, registry tweaks and DLL
// overrides.
package prefix

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/wine"
)

// fontID is the single font winetricks installs; launcher text renders
// as boxes without it.
const fontID = "arial"

// baseOverrides are the DLLs disabled in every prefix. The NVIDIA
// encode/decode stack crashes the launcher under translation layers,
// on any GPU vendor.
var baseOverrides = []string{"nvcuda", "nvcuvid", "nvencodeapi", "nvencodeapi64"}

// Manager drives one prefix through a wine session.
type Manager struct {
	session  *wine.Session
	prompter domain.Prompter
}

// NewManager binds a session to a prompter.
func NewManager(session *wine.Session, prompter domain.Prompter) *Manager {
	return &Manager{session: session, prompter: prompter}
}

// SessionFor builds the wine session a runtime needs for a prefix path.
func SessionFor(rt *domain.Runtime, prefixPath string) *wine.Session {
	return &wine.Session{
		WineBinary:  rt.WineBinary,
		PrefixPath:  prefixPath,
		ProtonStyle: rt.Kind.IsProtonStyle(),
		InstallRoot: rt.InstallRoot,
		Timeout:     wine.DefaultTimeout,
	}
}

// Initialised reports whether a prefix at path has been booted: the
// drive_c tree only appears after a successful init.
func Initialised(path string) bool {
	info, err := os.Stat(filepath.Join(path, "drive_c"))
	return err == nil && info.IsDir()
}

// Create initialises the prefix. An already-initialised prefix is
// destroyed and recreated only after the operator confirms.
func (m *Manager) Create(ctx context.Context) (*domain.Prefix, error) {
	path := m.session.PrefixPath

	if Initialised(path) {
		ok, err := m.prompter.Confirm(fmt.Sprintf("A prefix already exists at %s. Destroy and recreate it?", path))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: prefix creation declined", domain.ErrCancelled)
		}
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("removing old prefix: %w", err)
		}
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating prefix directory: %w", err)
	}

	log.Info().Str("path", path).Msg("initialising prefix")
	result, err := m.session.Run(ctx, "wineboot", "--init")
	if err != nil {
		return nil, fmt.Errorf("booting prefix: %w", err)
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("%w: wineboot exited %d: %s", domain.ErrPrefixCorrupt, result.ExitCode, result.Stderr)
	}
	if err := m.session.WaitServer(ctx); err != nil {
		return nil, fmt.Errorf("waiting for wineserver: %w", err)
	}

	if !Initialised(path) {
		return nil, fmt.Errorf("%w: drive_c missing after init", domain.ErrPrefixCorrupt)
	}
	return &domain.Prefix{Path: path, Initialised: true}, nil
}

// InstallFont pulls the launcher font in via winetricks. Failures are
// cosmetic, so they warn instead of aborting the install.
func (m *Manager) InstallFont(ctx context.Context) {
	result, err := m.session.RunTool(ctx, "winetricks", "-q", fontID)
	switch {
	case errors.Is(err, domain.ErrDependencyMissing):
		m.prompter.Warn("winetricks not found; skipping font install (launcher text may render poorly)")
	case err != nil:
		m.prompter.Warn("font install failed: " + err.Error())
	case result.ExitCode != 0:
		log.Warn().Int("exit", result.ExitCode).Msg("winetricks font install exited non-zero")
		m.prompter.Warn("font install failed; continuing without it")
	}
}

// regAdd writes one registry value through the runtime.
func (m *Manager) regAdd(ctx context.Context, keyPath, name, value string) error {
	result, err := m.session.Run(ctx, "reg", "add", keyPath, "/v", name, "/d", value, "/f")
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("reg add %s\\%s exited %d: %s", keyPath, name, result.ExitCode, result.Stderr)
	}
	return nil
}

// ApplyRegistryTweaks writes the fixed tweak set. The DXVA2 backend
// only exists on staging builds, so that write may fail; the nvapi
// overrides must not.
func (m *Manager) ApplyRegistryTweaks(ctx context.Context) error {
	if err := m.regAdd(ctx, `HKCU\Software\Wine\DXVA2`, "backend", "va"); err != nil {
		log.Warn().Err(err).Msg("DXVA2 backend not set (non-staging runtime)")
	}

	for _, dll := range []string{"nvapi", "nvapi64"} {
		if err := m.regAdd(ctx, `HKCU\Software\Wine\DllOverrides`, dll, "disabled"); err != nil {
			return fmt.Errorf("disabling %s: %w", dll, err)
		}
	}
	return m.session.WaitServer(ctx)
}

// ApplyDLLOverrides disables the base override set plus any extras from
// the operator's settings file.
func (m *Manager) ApplyDLLOverrides(ctx context.Context, extras []string) error {
	for _, dll := range append(append([]string{}, baseOverrides...), extras...) {
		if err := m.regAdd(ctx, `HKCU\Software\Wine\DllOverrides`, dll, "disabled"); err != nil {
			return fmt.Errorf("disabling %s: %w", dll, err)
		}
	}
	return m.session.WaitServer(ctx)
}
