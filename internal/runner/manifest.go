package runner

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
)

// manifestName is the per-runtime metadata file.
const manifestName = ".runner-info"

// manifest is the metadata recorded for every catalogued runtime.
type manifest struct {
	Name        string
	Kind        domain.RuntimeKind
	InstallDate time.Time
	WineBinary  string
	SourceURL   string
}

// encode renders the KEY=VALUE manifest format.
func (m manifest) encode() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "RUNNER_NAME=%s\n", m.Name)
	fmt.Fprintf(&b, "RUNNER_TYPE=%s\n", m.Kind)
	fmt.Fprintf(&b, "INSTALL_DATE=%s\n", m.InstallDate.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "WINE_BINARY=%s\n", m.WineBinary)
	if m.SourceURL != "" {
		fmt.Fprintf(&b, "SOURCE_URL=%s\n", m.SourceURL)
	}
	return []byte(b.String())
}

func writeManifest(path string, m manifest) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, m.encode(), 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing manifest: %w", err)
	}
	return nil
}

func readManifest(path string) (manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return manifest{}, err
	}

	var m manifest
	for _, line := range strings.Split(string(data), "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), "=")
		if !found {
			continue
		}
		switch key {
		case "RUNNER_NAME":
			m.Name = value
		case "RUNNER_TYPE":
			m.Kind = domain.ParseRuntimeKind(value)
		case "INSTALL_DATE":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				m.InstallDate = t
			}
		case "WINE_BINARY":
			m.WineBinary = value
		case "SOURCE_URL":
			m.SourceURL = value
		}
	}
	if m.Name == "" {
		return manifest{}, fmt.Errorf("manifest %s missing RUNNER_NAME", path)
	}
	return m, nil
}

// sortRuntimes orders runtimes by id for stable listings.
func sortRuntimes(runtimes []domain.Runtime) {
	sort.Slice(runtimes, func(i, j int) bool { return runtimes[i].ID < runtimes[j].ID })
}
