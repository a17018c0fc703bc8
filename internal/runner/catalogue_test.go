package runner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/storage/config"
)

// refusePrompter declines every question.
type refusePrompter struct{}

func (refusePrompter) Confirm(string) (bool, error) { return false, nil }
func (refusePrompter) Info(string)                  {}
func (refusePrompter) Warn(string)                  {}

func newTestCatalogue(t *testing.T, client *Client, opts ...CatalogueOption) (*Catalogue, *config.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := config.New(filepath.Join(dir, "config"))
	require.NoError(t, err)
	cat, err := NewCatalogue(filepath.Join(dir, "runners"), store, client, opts...)
	require.NoError(t, err)
	return cat, store
}

// archiveServer serves the given archive file over HTTP and returns a
// client pointed at it plus the archive URL.
func archiveServer(t *testing.T, archivePath string) (*Client, string) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, archivePath)
	}))
	t.Cleanup(server.Close)
	return NewClient(server.Client()), server.URL + "/archive.tar.gz"
}

func protonArchive(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "archive.tar.gz")
	buildTarGz(t, path, []tarEntry{
		{name: "GE-Proton9-20/", dir: true, mode: 0o755},
		{name: "GE-Proton9-20/files/bin/wine", body: "#!/bin/sh\nexec true\n", mode: 0o644},
		{name: "GE-Proton9-20/proton", body: "#!/usr/bin/env python3\n", mode: 0o755},
	}, MinArchiveSize)
	return path
}

func TestInstallEndToEnd(t *testing.T) {
	scratch := t.TempDir()
	client, url := archiveServer(t, protonArchive(t, scratch))
	cat, _ := newTestCatalogue(t, client)

	plan := DownloadPlan{Kind: domain.KindProtonGE, Tag: "GE-Proton9-20", URL: url, Format: FormatGzTar}

	var sawProgress bool
	rt, err := cat.Install(context.Background(), plan, "ge-proton9-20", domain.AutoConfirm{}, func(DownloadProgress) {
		sawProgress = true
	})
	require.NoError(t, err)
	assert.True(t, sawProgress)

	assert.Equal(t, "ge-proton9-20", rt.ID)
	assert.Equal(t, domain.KindProtonGE, rt.Kind)

	// Wine binary landed, is executable, and the manifest resolves to it.
	info, err := os.Stat(rt.WineBinary)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111)

	exe, err := cat.Executable("ge-proton9-20")
	require.NoError(t, err)
	assert.Equal(t, rt.WineBinary, exe)

	// No staging debris left behind.
	entries, err := os.ReadDir(cat.Root())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".staging-")
	}

	installed, err := cat.ListInstalled()
	require.NoError(t, err)
	require.Len(t, installed, 1)
	assert.Equal(t, "ge-proton9-20", installed[0].ID)
}

func TestInstallKeepsTagCasingAsID(t *testing.T) {
	scratch := t.TempDir()
	client, url := archiveServer(t, protonArchive(t, scratch))
	cat, _ := newTestCatalogue(t, client)

	plan := DownloadPlan{Kind: domain.KindProtonGE, Tag: "GE-Proton9-20", URL: url, Format: FormatGzTar}
	rt, err := cat.Install(context.Background(), plan, "GE-Proton9-20", domain.AutoConfirm{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "GE-Proton9-20", rt.ID)

	installed, err := cat.ListInstalled()
	require.NoError(t, err)
	require.Len(t, installed, 1)
	assert.Equal(t, "GE-Proton9-20", installed[0].ID)

	data, err := os.ReadFile(filepath.Join(cat.Root(), "GE-Proton9-20", manifestName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "RUNNER_NAME=GE-Proton9-20\n")
}

func TestInstallRejectsTinyArchive(t *testing.T) {
	scratch := t.TempDir()
	tiny := filepath.Join(scratch, "archive.tar.gz")
	buildTarGz(t, tiny, []tarEntry{
		{name: "GE-Proton9-20/files/bin/wine", body: "stub", mode: 0o755},
	}, 0)
	client, url := archiveServer(t, tiny)
	cat, _ := newTestCatalogue(t, client)

	plan := DownloadPlan{Kind: domain.KindProtonGE, Tag: "GE-Proton9-20", URL: url, Format: FormatGzTar}
	_, err := cat.Install(context.Background(), plan, "ge-proton9-20", domain.AutoConfirm{}, nil)
	require.ErrorIs(t, err, domain.ErrIntegrity)

	// Nothing was committed.
	assert.NoFileExists(t, filepath.Join(cat.Root(), "ge-proton9-20", manifestName))
	entries, err := os.ReadDir(cat.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInstallRollsBackWhenWineBinaryMissing(t *testing.T) {
	scratch := t.TempDir()
	archive := filepath.Join(scratch, "archive.tar.gz")
	buildTarGz(t, archive, []tarEntry{
		{name: "GE-Proton9-20/README", body: "no wine here", mode: 0o644},
	}, MinArchiveSize)
	client, url := archiveServer(t, archive)
	cat, _ := newTestCatalogue(t, client)

	plan := DownloadPlan{Kind: domain.KindProtonGE, Tag: "GE-Proton9-20", URL: url, Format: FormatGzTar}
	_, err := cat.Install(context.Background(), plan, "ge-proton9-20", domain.AutoConfirm{}, nil)
	require.ErrorIs(t, err, domain.ErrIntegrity)
	assert.ErrorContains(t, err, "wine binary not found")

	entries, err := os.ReadDir(cat.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInstallExistingIDNeedsConfirmation(t *testing.T) {
	scratch := t.TempDir()
	client, url := archiveServer(t, protonArchive(t, scratch))
	cat, _ := newTestCatalogue(t, client)

	plan := DownloadPlan{Kind: domain.KindProtonGE, Tag: "GE-Proton9-20", URL: url, Format: FormatGzTar}
	_, err := cat.Install(context.Background(), plan, "ge-proton9-20", domain.AutoConfirm{}, nil)
	require.NoError(t, err)

	// Declining the replacement leaves the original untouched.
	_, err = cat.Install(context.Background(), plan, "ge-proton9-20", refusePrompter{}, nil)
	require.ErrorIs(t, err, domain.ErrConflict)

	// Accepting replaces it.
	_, err = cat.Install(context.Background(), plan, "ge-proton9-20", domain.AutoConfirm{}, nil)
	require.NoError(t, err)

	installed, err := cat.ListInstalled()
	require.NoError(t, err)
	assert.Len(t, installed, 1)
}

func TestDefaultFallsBackToVendor(t *testing.T) {
	cat, _ := newTestCatalogue(t, NewClient(nil))
	assert.Equal(t, domain.VendorExperimentalID, cat.GetDefault())
}

func TestSetDefaultRequiresInstalled(t *testing.T) {
	cat, _ := newTestCatalogue(t, NewClient(nil))
	err := cat.SetDefault("ge-proton9-20")
	assert.ErrorContains(t, err, "not installed")
}

func TestDeleteDefaultPromotesVendor(t *testing.T) {
	scratch := t.TempDir()
	client, url := archiveServer(t, protonArchive(t, scratch))
	cat, store := newTestCatalogue(t, client)

	plan := DownloadPlan{Kind: domain.KindProtonGE, Tag: "GE-Proton9-20", URL: url, Format: FormatGzTar}
	_, err := cat.Install(context.Background(), plan, "ge-proton9-20", domain.AutoConfirm{}, nil)
	require.NoError(t, err)
	require.NoError(t, cat.SetDefault("ge-proton9-20"))
	require.Equal(t, "ge-proton9-20", cat.GetDefault())

	require.NoError(t, cat.Delete("ge-proton9-20"))

	assert.Equal(t, domain.VendorExperimentalID, cat.GetDefault())
	value, ok, err := store.Get(config.KeyDefaultRuntime)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.VendorExperimentalID, value)
}

func TestDeleteNonDefaultKeepsDefault(t *testing.T) {
	scratch := t.TempDir()
	client, url := archiveServer(t, protonArchive(t, scratch))
	cat, _ := newTestCatalogue(t, client)

	plan := DownloadPlan{Kind: domain.KindProtonGE, Tag: "GE-Proton9-20", URL: url, Format: FormatGzTar}
	_, err := cat.Install(context.Background(), plan, "ge-a", domain.AutoConfirm{}, nil)
	require.NoError(t, err)
	_, err = cat.Install(context.Background(), plan, "ge-b", domain.AutoConfirm{}, nil)
	require.NoError(t, err)
	require.NoError(t, cat.SetDefault("ge-a"))

	require.NoError(t, cat.Delete("ge-b"))
	assert.Equal(t, "ge-a", cat.GetDefault())
}

func TestLocateVendorExperimental(t *testing.T) {
	steamDir := filepath.Join(t.TempDir(), "Proton - Experimental")
	require.NoError(t, os.MkdirAll(filepath.Join(steamDir, "files", "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(steamDir, "files", "bin", "wine"), []byte("#!/bin/sh\n"), 0o755))

	cat, _ := newTestCatalogue(t, NewClient(nil), WithVendorSearchPaths([]string{
		filepath.Join(t.TempDir(), "missing"),
		steamDir,
	}))

	rt, err := cat.LocateVendorExperimental()
	require.NoError(t, err)
	assert.Equal(t, domain.VendorExperimentalID, rt.ID)
	assert.Equal(t, filepath.Join(steamDir, "files", "bin", "wine"), rt.WineBinary)

	// Link points at the Steam directory; manifest sits beside it.
	target, err := os.Readlink(filepath.Join(cat.Root(), domain.VendorExperimentalID))
	require.NoError(t, err)
	assert.Equal(t, steamDir, target)

	installed, err := cat.ListInstalled()
	require.NoError(t, err)
	require.Len(t, installed, 1)
	assert.Equal(t, domain.KindVendorExperimental, installed[0].Kind)

	// Deleting the link never touches the Steam install.
	require.NoError(t, cat.Delete(domain.VendorExperimentalID))
	assert.DirExists(t, steamDir)
	assert.NoFileExists(t, filepath.Join(cat.Root(), domain.VendorExperimentalID))
}

func TestLocateVendorExperimentalNotFound(t *testing.T) {
	cat, _ := newTestCatalogue(t, NewClient(nil), WithVendorSearchPaths([]string{
		filepath.Join(t.TempDir(), "nowhere"),
	}))

	_, err := cat.LocateVendorExperimental()
	assert.ErrorIs(t, err, domain.ErrDependencyMissing)
}
