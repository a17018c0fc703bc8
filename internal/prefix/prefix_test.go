package prefix

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/wine"
)

type notePrompter struct {
	confirmAnswer bool
	confirms      []string
	warnings      []string
}

func (p *notePrompter) Confirm(q string) (bool, error) { p.confirms = append(p.confirms, q); return p.confirmAnswer, nil }
func (p *notePrompter) Info(string)                    {}
func (p *notePrompter) Warn(msg string)                { p.warnings = append(p.warnings, msg) }

// fakeWineRecorder installs a wine stand-in that appends each
// invocation to a log file, and creates drive_c when asked to boot.
func fakeWineRecorder(t *testing.T, failPattern string) (binary, callLog string) {
	t.Helper()
	dir := t.TempDir()
	binary = filepath.Join(dir, "wine")
	callLog = filepath.Join(dir, "calls.log")
	script := `#!/bin/sh
echo "$@" >> ` + callLog + "\n"
	if failPattern != "" {
		script += `case "$*" in
  *` + failPattern + `*) exit 1 ;;
esac
`
	}
	script += `if [ "$1" = "wineboot" ]; then
  mkdir -p "$WINEPREFIX/drive_c"
fi
exit 0
`
	require.NoError(t, os.WriteFile(binary, []byte(script), 0o755))
	return binary, callLog
}

func calls(t *testing.T, callLog string) []string {
	t.Helper()
	data, err := os.ReadFile(callLog)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func newManager(t *testing.T, failPattern string, prompter domain.Prompter) (*Manager, string, string) {
	t.Helper()
	binary, callLog := fakeWineRecorder(t, failPattern)
	prefixPath := filepath.Join(t.TempDir(), "prefix")
	session := &wine.Session{WineBinary: binary, PrefixPath: prefixPath}
	return NewManager(session, prompter), prefixPath, callLog
}

func TestCreateInitialisesPrefix(t *testing.T) {
	m, prefixPath, callLog := newManager(t, "", domain.AutoConfirm{})

	p, err := m.Create(context.Background())
	require.NoError(t, err)
	assert.True(t, p.Initialised)
	assert.Equal(t, prefixPath, p.Path)
	assert.DirExists(t, filepath.Join(prefixPath, "drive_c"))

	got := calls(t, callLog)
	require.NotEmpty(t, got)
	assert.Equal(t, "wineboot --init", got[0])
}

func TestCreateExistingPrefixDeclined(t *testing.T) {
	prompter := &notePrompter{confirmAnswer: false}
	m, prefixPath, _ := newManager(t, "", prompter)
	require.NoError(t, os.MkdirAll(filepath.Join(prefixPath, "drive_c"), 0o755))

	_, err := m.Create(context.Background())
	assert.ErrorIs(t, err, domain.ErrCancelled)
	require.Len(t, prompter.confirms, 1)
	assert.Contains(t, prompter.confirms[0], "Destroy and recreate")
	// The existing prefix was left alone.
	assert.DirExists(t, filepath.Join(prefixPath, "drive_c"))
}

func TestCreateExistingPrefixConfirmedRecreates(t *testing.T) {
	m, prefixPath, _ := newManager(t, "", &notePrompter{confirmAnswer: true})
	require.NoError(t, os.MkdirAll(filepath.Join(prefixPath, "drive_c"), 0o755))
	stale := filepath.Join(prefixPath, "drive_c", "stale.txt")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	p, err := m.Create(context.Background())
	require.NoError(t, err)
	assert.True(t, p.Initialised)
	assert.NoFileExists(t, stale)
}

func TestCreateBootFailureIsFatal(t *testing.T) {
	m, _, _ := newManager(t, "wineboot", domain.AutoConfirm{})

	_, err := m.Create(context.Background())
	assert.ErrorIs(t, err, domain.ErrPrefixCorrupt)
}

func TestApplyRegistryTweaksWritesFixedSet(t *testing.T) {
	m, _, callLog := newManager(t, "", domain.AutoConfirm{})

	require.NoError(t, m.ApplyRegistryTweaks(context.Background()))

	got := calls(t, callLog)
	require.Len(t, got, 3)
	assert.Equal(t, `reg add HKCU\Software\Wine\DXVA2 /v backend /d va /f`, got[0])
	assert.Equal(t, `reg add HKCU\Software\Wine\DllOverrides /v nvapi /d disabled /f`, got[1])
	assert.Equal(t, `reg add HKCU\Software\Wine\DllOverrides /v nvapi64 /d disabled /f`, got[2])
}

func TestApplyRegistryTweaksDXVA2FailureTolerated(t *testing.T) {
	m, _, callLog := newManager(t, "DXVA2", domain.AutoConfirm{})

	require.NoError(t, m.ApplyRegistryTweaks(context.Background()))

	// Both nvapi writes still happened.
	got := calls(t, callLog)
	assert.Len(t, got, 3)
}

func TestApplyRegistryTweaksNvapiFailureFatal(t *testing.T) {
	m, _, _ := newManager(t, "nvapi", domain.AutoConfirm{})

	err := m.ApplyRegistryTweaks(context.Background())
	assert.ErrorContains(t, err, "disabling nvapi")
}

func TestApplyDLLOverridesIncludesExtras(t *testing.T) {
	m, _, callLog := newManager(t, "", domain.AutoConfirm{})

	require.NoError(t, m.ApplyDLLOverrides(context.Background(), []string{"d3d12core"}))

	got := calls(t, callLog)
	require.Len(t, got, 5)
	for i, dll := range []string{"nvcuda", "nvcuvid", "nvencodeapi", "nvencodeapi64", "d3d12core"} {
		assert.Equal(t, `reg add HKCU\Software\Wine\DllOverrides /v `+dll+` /d disabled /f`, got[i])
	}
}

func TestInstallFontMissingWinetricksWarns(t *testing.T) {
	prompter := &notePrompter{}
	m, _, _ := newManager(t, "", prompter)
	t.Setenv("PATH", t.TempDir())

	m.InstallFont(context.Background())

	require.Len(t, prompter.warnings, 1)
	assert.Contains(t, prompter.warnings[0], "winetricks not found")
}

func TestInstallFontRunsWinetricks(t *testing.T) {
	bin := t.TempDir()
	marker := filepath.Join(bin, "ran")
	script := filepath.Join(bin, "winetricks")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"$@\" > "+marker+"\n"), 0o755))
	t.Setenv("PATH", bin)

	prompter := &notePrompter{}
	m, _, _ := newManager(t, "", prompter)

	m.InstallFont(context.Background())

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "-q arial\n", string(data))
	assert.Empty(t, prompter.warnings)
}

func TestInitialised(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Initialised(dir))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "drive_c"), 0o755))
	assert.True(t, Initialised(dir))
}

func TestSessionForProtonStyle(t *testing.T) {
	rt := &domain.Runtime{
		ID:          "ge-proton9-20",
		Kind:        domain.KindProtonGE,
		InstallRoot: "/runners/ge-proton9-20",
		WineBinary:  "/runners/ge-proton9-20/files/bin/wine",
	}
	s := SessionFor(rt, "/prefixes/wow")
	assert.True(t, s.ProtonStyle)
	assert.Equal(t, rt.WineBinary, s.WineBinary)

	rt.Kind = domain.KindWineTKG
	assert.False(t, SessionFor(rt, "/prefixes/wow").ProtonStyle)
}
