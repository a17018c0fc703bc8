package wine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
)

// fakeWine writes a shell script standing in for the wine binary.
func fakeWine(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "wine")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestRunCapturesOutputAndExit(t *testing.T) {
	binary := fakeWine(t, `echo "out: $1"
echo "err line" >&2
exit 3
`)
	s := &Session{WineBinary: binary, PrefixPath: t.TempDir()}

	result, err := s.Run(context.Background(), "wineboot")
	require.NoError(t, err, "a non-zero exit is reported in the result, not as an error")
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "out: wineboot\n", result.Stdout)
	assert.Equal(t, "err line\n", result.Stderr)
	assert.Greater(t, result.Duration, time.Duration(0))
}

func TestRunSetsPrefixEnvironment(t *testing.T) {
	binary := fakeWine(t, `echo "$WINEPREFIX|$WINEARCH|$STEAM_COMPAT_CLIENT_INSTALL_PATH"
`)
	prefix := filepath.Join(t.TempDir(), "prefix")

	s := &Session{WineBinary: binary, PrefixPath: prefix}
	result, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, prefix+"|win64|\n", result.Stdout)
}

func TestRunProtonStyleAddsCompatVars(t *testing.T) {
	binary := fakeWine(t, `echo "$STEAM_COMPAT_DATA_PATH|$STEAM_COMPAT_CLIENT_INSTALL_PATH"
`)
	prefix := filepath.Join(t.TempDir(), "compatdata", "pfx")

	s := &Session{
		WineBinary:  binary,
		PrefixPath:  prefix,
		ProtonStyle: true,
		InstallRoot: "/runners/ge-proton9-20",
	}
	result, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(prefix)+"|/runners/ge-proton9-20\n", result.Stdout)
}

func TestRunExtraEnvWins(t *testing.T) {
	binary := fakeWine(t, `echo "$WINEDLLOVERRIDES"
`)
	s := &Session{
		WineBinary: binary,
		PrefixPath: t.TempDir(),
		Extra:      []string{"WINEDLLOVERRIDES=nvcuda=d"},
	}
	result, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "nvcuda=d\n", result.Stdout)
}

func TestRunMissingBinary(t *testing.T) {
	s := &Session{WineBinary: filepath.Join(t.TempDir(), "no-such-wine"), PrefixPath: t.TempDir()}
	_, err := s.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrDependencyMissing)

	s = &Session{PrefixPath: t.TempDir()}
	_, err = s.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrDependencyMissing)
}

func TestRunHonoursContextCancellation(t *testing.T) {
	binary := fakeWine(t, "sleep 30\n")
	s := &Session{WineBinary: binary, PrefixPath: t.TempDir()}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunToolLooksUpPath(t *testing.T) {
	bin := t.TempDir()
	script := filepath.Join(bin, "winetricks")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"tricks $*\"\n"), 0o755))
	t.Setenv("PATH", bin)

	s := &Session{WineBinary: fakeWine(t, "exit 0\n"), PrefixPath: t.TempDir()}
	result, err := s.RunTool(context.Background(), "winetricks", "-q", "arial")
	require.NoError(t, err)
	assert.Equal(t, "tricks -q arial\n", result.Stdout)

	_, err = s.RunTool(context.Background(), "definitely-not-installed")
	assert.ErrorIs(t, err, domain.ErrDependencyMissing)
}

func TestWaitServerPrefersSiblingBinary(t *testing.T) {
	dir := t.TempDir()
	wineBin := filepath.Join(dir, "wine")
	serverBin := filepath.Join(dir, "wineserver")
	marker := filepath.Join(dir, "waited")
	require.NoError(t, os.WriteFile(wineBin, []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(serverBin, []byte("#!/bin/sh\ntouch "+marker+"\n"), 0o755))

	s := &Session{WineBinary: wineBin, PrefixPath: t.TempDir()}
	require.NoError(t, s.WaitServer(context.Background()))
	assert.FileExists(t, marker)
}

func TestWaitServerNoServerIsNoop(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	s := &Session{WineBinary: fakeWine(t, "exit 0\n"), PrefixPath: t.TempDir()}
	assert.NoError(t, s.WaitServer(context.Background()))
}
