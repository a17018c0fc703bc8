package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/storage/config"
)

// Catalogue owns the runners root directory. All mutation goes through
// its mutex so two installs of the same id cannot interleave.
type Catalogue struct {
	mu     sync.Mutex
	root   string
	store  *config.Store
	client *Client

	// vendorSearchPaths are probed by LocateVendorExperimental.
	// Overridable for tests.
	vendorSearchPaths []string
}

// CatalogueOption tweaks catalogue construction.
type CatalogueOption func(*Catalogue)

// WithVendorSearchPaths overrides the well-known vendor runtime paths.
func WithVendorSearchPaths(paths []string) CatalogueOption {
	return func(c *Catalogue) { c.vendorSearchPaths = paths }
}

// NewCatalogue creates a catalogue rooted at root (created if needed).
// The config store holds the default-runtime pointer.
func NewCatalogue(root string, store *config.Store, client *Client, opts ...CatalogueOption) (*Catalogue, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating runners root: %w", err)
	}
	c := &Catalogue{
		root:              root,
		store:             store,
		client:            client,
		vendorSearchPaths: defaultVendorSearchPaths(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// defaultVendorSearchPaths lists where Steam installs keep the vendor
// runtime, most common layout first.
func defaultVendorSearchPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	const suffix = "steamapps/common/Proton - Experimental"
	return []string{
		filepath.Join(home, ".local/share/Steam", suffix),
		filepath.Join(home, ".steam/steam", suffix),
		filepath.Join(home, ".steam/root", suffix),
		filepath.Join(home, ".var/app/com.valvesoftware.Steam/data/Steam", suffix),
	}
}

// Root returns the runners root directory.
func (c *Catalogue) Root() string {
	return c.root
}

// Install downloads, verifies and installs a runtime under the given
// id. A delegated plan links the vendor runtime instead. Installing an
// existing id asks before replacing it.
func (c *Catalogue) Install(ctx context.Context, plan DownloadPlan, id string, prompter domain.Prompter, progressFn ProgressFunc) (*domain.Runtime, error) {
	if plan.Delegated {
		return c.LocateVendorExperimental()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	finalDir := filepath.Join(c.root, id)
	if _, err := os.Stat(finalDir); err == nil {
		ok, err := prompter.Confirm(fmt.Sprintf("Runtime %q is already installed. Replace it?", id))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: runtime %q already installed", domain.ErrConflict, id)
		}
	}

	staging, err := os.MkdirTemp(c.root, ".staging-*")
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	archivePath := filepath.Join(staging, "archive"+plan.Format.suffix())
	result, err := c.client.download(ctx, plan.URL, archivePath, progressFn)
	if err != nil {
		return nil, err
	}
	if result.Size < MinArchiveSize {
		return nil, fmt.Errorf("%w: archive is %d bytes, below the %d byte floor", domain.ErrIntegrity, result.Size, int64(MinArchiveSize))
	}
	log.Debug().Str("id", id).Int64("bytes", result.Size).Str("sha256", result.Checksum).Msg("archive downloaded")

	extracted := filepath.Join(staging, "extracted")
	if err := extractTar(archivePath, plan.Format, extracted); err != nil {
		return nil, err
	}

	desc, err := DescriptorFor(plan.Kind)
	if err != nil {
		return nil, err
	}
	wineRel, err := findWineBinary(extracted, desc.WineCandidates)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(filepath.Join(extracted, wineRel), 0o755); err != nil {
		return nil, fmt.Errorf("marking wine binary executable: %w", err)
	}

	m := manifest{
		Name:        id,
		Kind:        plan.Kind,
		InstallDate: time.Now(),
		WineBinary:  filepath.Join(finalDir, wineRel),
		SourceURL:   plan.URL,
	}
	if err := writeManifest(filepath.Join(extracted, manifestName), m); err != nil {
		return nil, err
	}

	// Replace any previous install only after the staged tree is complete.
	if err := os.RemoveAll(finalDir); err != nil {
		return nil, fmt.Errorf("removing previous install: %w", err)
	}
	if err := os.Rename(extracted, finalDir); err != nil {
		return nil, fmt.Errorf("committing install: %w", err)
	}

	log.Info().Str("id", id).Str("kind", string(plan.Kind)).Msg("runtime installed")
	return c.runtimeFromManifest(id, m), nil
}

// findWineBinary probes the candidate paths and returns the first that
// exists as a regular file.
func findWineBinary(root string, candidates []string) (string, error) {
	for _, rel := range candidates {
		info, err := os.Stat(filepath.Join(root, rel))
		if err == nil && info.Mode().IsRegular() {
			return rel, nil
		}
	}
	return "", fmt.Errorf("%w: wine binary not found (tried %s)", domain.ErrIntegrity, strings.Join(candidates, ", "))
}

// LocateVendorExperimental searches the well-known Steam paths for the
// vendor runtime and links it into the catalogue by reference.
func (c *Catalogue) LocateVendorExperimental() (*domain.Runtime, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	desc, _ := DescriptorFor(domain.KindVendorExperimental)
	for _, path := range c.vendorSearchPaths {
		wineRel, err := findWineBinary(path, desc.WineCandidates)
		if err != nil {
			continue
		}

		linkPath := filepath.Join(c.root, domain.VendorExperimentalID)
		os.Remove(linkPath)
		if err := os.Symlink(path, linkPath); err != nil {
			return nil, fmt.Errorf("linking vendor runtime: %w", err)
		}

		// The vendor directory belongs to Steam, so the manifest lives
		// next to the link rather than inside it.
		m := manifest{
			Name:        domain.VendorExperimentalID,
			Kind:        domain.KindVendorExperimental,
			InstallDate: time.Now(),
			WineBinary:  filepath.Join(path, wineRel),
			SourceURL:   path,
		}
		if err := writeManifest(c.sideManifestPath(domain.VendorExperimentalID), m); err != nil {
			os.Remove(linkPath)
			return nil, err
		}

		log.Info().Str("path", path).Msg("vendor runtime linked")
		return c.runtimeFromManifest(domain.VendorExperimentalID, m), nil
	}
	return nil, fmt.Errorf("%w: vendor runtime not found in any Steam library", domain.ErrDependencyMissing)
}

// sideManifestPath is the manifest location for linked (not copied)
// runtimes.
func (c *Catalogue) sideManifestPath(id string) string {
	return filepath.Join(c.root, id+manifestName)
}

func (c *Catalogue) runtimeFromManifest(id string, m manifest) *domain.Runtime {
	return &domain.Runtime{
		ID:          id,
		Kind:        m.Kind,
		SourceURL:   m.SourceURL,
		InstallRoot: filepath.Join(c.root, id),
		WineBinary:  m.WineBinary,
		InstalledAt: m.InstallDate,
	}
}

// manifestFor reads the manifest for an id, trying the in-tree location
// first and the side location for linked runtimes.
func (c *Catalogue) manifestFor(id string) (manifest, error) {
	m, err := readManifest(filepath.Join(c.root, id, manifestName))
	if err == nil {
		return m, nil
	}
	return readManifest(c.sideManifestPath(id))
}

// ListInstalled returns all catalogued runtimes, sorted by id.
func (c *Catalogue) ListInstalled() ([]domain.Runtime, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, fmt.Errorf("reading runners root: %w", err)
	}

	var out []domain.Runtime
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, manifestName) {
			continue
		}
		m, err := c.manifestFor(name)
		if err != nil {
			log.Debug().Str("id", name).Err(err).Msg("skipping entry without manifest")
			continue
		}
		out = append(out, *c.runtimeFromManifest(name, m))
	}
	sortRuntimes(out)
	return out, nil
}

// Get returns one installed runtime by id.
func (c *Catalogue) Get(id string) (*domain.Runtime, error) {
	m, err := c.manifestFor(id)
	if err != nil {
		return nil, fmt.Errorf("runtime %q is not installed", id)
	}
	return c.runtimeFromManifest(id, m), nil
}

// Executable returns the verified wine binary path for an id.
func (c *Catalogue) Executable(id string) (string, error) {
	rt, err := c.Get(id)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(rt.WineBinary)
	if err != nil {
		return "", fmt.Errorf("%w: wine binary missing for %q: %v", domain.ErrIntegrity, id, err)
	}
	if info.Mode()&0o111 == 0 {
		return "", fmt.Errorf("%w: wine binary for %q is not executable", domain.ErrIntegrity, id)
	}
	return rt.WineBinary, nil
}

// GetDefault returns the default runtime id, falling back to the
// built-in vendor runtime when unset.
func (c *Catalogue) GetDefault() string {
	id, ok, err := c.store.Get(config.KeyDefaultRuntime)
	if err != nil || !ok || id == "" {
		return domain.VendorExperimentalID
	}
	return id
}

// SetDefault points the default at an installed runtime.
func (c *Catalogue) SetDefault(id string) error {
	if _, err := c.Get(id); err != nil {
		return err
	}
	return c.store.Set(config.KeyDefaultRuntime, id)
}

// Delete removes an installed runtime. Deleting the current default
// promotes the built-in vendor runtime.
func (c *Catalogue) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := filepath.Join(c.root, id)
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("runtime %q is not installed", id)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		// Linked runtime: remove the link and its side manifest, never
		// the target.
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing runtime link: %w", err)
		}
		os.Remove(c.sideManifestPath(id))
	} else {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("removing runtime: %w", err)
		}
	}

	if c.GetDefault() == id {
		if err := c.store.Set(config.KeyDefaultRuntime, domain.VendorExperimentalID); err != nil {
			return fmt.Errorf("promoting fallback default: %w", err)
		}
		log.Info().Str("deleted", id).Msg("default runtime reset to vendor-experimental")
	}
	return nil
}
