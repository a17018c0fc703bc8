// Package launcher downloads the vendor launcher's setup program, runs
// it silently inside the prefix, and writes the launcher configuration
// the game expects.
package launcher

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/wine"
)

const (
	// DefaultInstallerURL is the vendor's evergreen download endpoint.
	DefaultInstallerURL = "https://downloader.battle.net/download/getInstallerForGame?os=win&gameProgram=BATTLENET_APP&version=Live"

	// installerName is the cached setup program under the data dir.
	installerName = "battle-net-setup.exe"

	// minInstallerSize rejects error pages saved as the installer.
	minInstallerSize = 1 << 20 // 1 MB

	// launcherRelPath is where the silent install lands inside drive_c.
	launcherRelPath = "Program Files (x86)/Battle.net/Battle.net.exe"
)

// Poll cadence and budget for the installer to produce the launcher
// executable. Exposed as variables so tests do not wait five minutes.
var (
	pollInterval = 2 * time.Second
	pollBudget   = 300 * time.Second
)

// launcherConfig is written byte-for-byte: the launcher rewrites its
// config on exit, so the first boot must read exactly this document.
const launcherConfig = `{
  "Client": {
    "GameLaunchWindowBehavior": "2",
    "GameSearch": {
      "BackgroundSearch": "false"
    },
    "HardwareAcceleration": "false",
    "Sound": {
      "Enabled": "false"
    },
    "Streaming": {
      "StreamingEnabled": "false"
    },
    "UserInterface": {
      "CloseToTray": "true"
    }
  }
}
`

// Downloader fetches a URL to a local path. The runtime catalogue's
// HTTP client satisfies this.
type Downloader interface {
	Download(ctx context.Context, url, destPath string) (int64, error)
}

// Installer owns the download/run/configure sequence for one prefix.
type Installer struct {
	downloader Downloader
	// URL overrides DefaultInstallerURL (settings.yaml, tests).
	URL string
}

// NewInstaller wires a downloader. An empty url means the default
// vendor endpoint.
func NewInstaller(downloader Downloader, url string) *Installer {
	if url == "" {
		url = DefaultInstallerURL
	}
	return &Installer{downloader: downloader, URL: url}
}

// DownloadInstaller fetches the setup program into dir, reusing a
// previous download when it looks whole.
func (i *Installer) DownloadInstaller(ctx context.Context, dir string) (string, error) {
	path := filepath.Join(dir, installerName)

	if info, err := os.Stat(path); err == nil && info.Size() >= minInstallerSize {
		log.Info().Str("path", path).Msg("reusing cached installer")
		return path, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating installer dir: %w", err)
	}
	size, err := i.downloader.Download(ctx, i.URL, path)
	if err != nil {
		return "", err
	}
	if size < minInstallerSize {
		os.Remove(path)
		return "", fmt.Errorf("%w: installer is %d bytes, expected at least %d", domain.ErrIntegrity, size, int64(minInstallerSize))
	}
	return path, nil
}

// LauncherPath returns where the launcher executable lives inside a
// prefix.
func LauncherPath(prefixPath string) string {
	return filepath.Join(prefixPath, "drive_c", filepath.FromSlash(launcherRelPath))
}

// RunInstaller runs the setup program silently and waits for it to
// produce the launcher executable, polling on a fixed budget.
func (i *Installer) RunInstaller(ctx context.Context, session *wine.Session, installerPath string) error {
	log.Info().Str("installer", installerPath).Msg("running silent launcher install")
	result, err := session.Run(ctx, installerPath,
		"--lang=enUS",
		`--installpath=C:\Program Files (x86)\Battle.net`,
	)
	if err != nil {
		return fmt.Errorf("running installer: %w", err)
	}
	if result.ExitCode != 0 {
		log.Debug().Int("exit", result.ExitCode).Str("stderr", result.Stderr).Msg("installer exited non-zero, polling anyway")
	}

	target := LauncherPath(session.PrefixPath)
	deadline := time.Now().Add(pollBudget)
	for {
		if _, err := os.Stat(target); err == nil {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("launcher executable did not appear within %s", pollBudget)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for launcher install: %w", ctx.Err())
		case <-time.After(pollInterval):
		}
	}

	return session.WaitServer(ctx)
}

// WriteLauncherConfig places the fixed configuration document under
// the prefix user's roaming profile.
func WriteLauncherConfig(prefixPath string) error {
	u, err := user.Current()
	if err != nil {
		return fmt.Errorf("resolving current user: %w", err)
	}
	return writeLauncherConfigFor(prefixPath, u.Username)
}

func writeLauncherConfigFor(prefixPath, username string) error {
	dir := filepath.Join(prefixPath, "drive_c", "users", username, "AppData", "Roaming", "Battle.net")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating launcher config dir: %w", err)
	}

	path := filepath.Join(dir, "Battle.net.config")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(launcherConfig), 0o644); err != nil {
		return fmt.Errorf("writing launcher config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing launcher config: %w", err)
	}
	log.Info().Str("path", path).Msg("launcher config written")
	return nil
}
