package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings holds optional user overrides read from settings.yaml in the
// config directory. Everything has a working default; the file does not
// need to exist.
type Settings struct {
	// ReleaseLimit caps how many upstream release tags are listed.
	ReleaseLimit int `yaml:"release_limit"`
	// SkipFontInstall disables the winetricks font step during
	// provisioning (cosmetic only).
	SkipFontInstall bool `yaml:"skip_font_install"`
	// ExtraDLLOverrides are disabled in the prefix on top of the fixed
	// nvapi/nvcuda set.
	ExtraDLLOverrides []string `yaml:"extra_dll_overrides"`
	// InstallerURL overrides the vendor launcher download URL.
	InstallerURL string `yaml:"installer_url"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{ReleaseLimit: 10}
}

// LoadSettings reads settings.yaml from the store directory, returning
// defaults when the file is absent.
func (s *Store) LoadSettings() (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(filepath.Join(s.dir, "settings.yaml"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("reading settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parsing settings: %w", err)
	}
	if settings.ReleaseLimit <= 0 {
		settings.ReleaseLimit = DefaultSettings().ReleaseLimit
	}
	return settings, nil
}

// SaveSettings writes settings.yaml atomically.
func (s *Store) SaveSettings(settings Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	final := filepath.Join(s.dir, "settings.yaml")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing settings: %w", err)
	}
	return nil
}
