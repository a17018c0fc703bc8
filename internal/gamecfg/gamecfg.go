// Package gamecfg edits the game's Config.wtf: a line-oriented file of
// `SET <key> "<value>"` entries the game engine reads at startup.
package gamecfg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// configSubpaths are the places a Config.wtf can live relative to the
// game root, in search order. The retail layout is canonical.
var configSubpaths = []string{
	"WTF/Config.wtf",
	"_retail_/WTF/Config.wtf",
	"_classic_/WTF/Config.wtf",
	"_classic_era_/WTF/Config.wtf",
}

// canonicalSubpath is where a fresh Config.wtf is synthesised.
const canonicalSubpath = "_retail_/WTF/Config.wtf"

// StandardTweaks is the fixed policy applied by ApplyStandardTweaks.
// worldPreloadNonCritical=0 speeds world entry; rawMouseEnable=1 fixes
// cursor resets under the translation layer.
var StandardTweaks = [][2]string{
	{"worldPreloadNonCritical", "0"},
	{"rawMouseEnable", "1"},
}

// FindConfig returns the existing Config.wtf under gamePath, or the
// canonical path for one that does not exist yet.
func FindConfig(gamePath string) string {
	for _, sub := range configSubpaths {
		path := filepath.Join(gamePath, filepath.FromSlash(sub))
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}
	return filepath.Join(gamePath, filepath.FromSlash(canonicalSubpath))
}

// parseSet extracts the key and quoted value from one `SET` line.
func parseSet(line string) (key, value string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "SET" {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "SET"))
	rest = strings.TrimSpace(strings.TrimPrefix(rest, fields[1]))
	if len(rest) < 2 || rest[0] != '"' || rest[len(rest)-1] != '"' {
		return "", "", false
	}
	return fields[1], rest[1 : len(rest)-1], true
}

// Get returns the value of key in file, if present. A missing file is
// simply "not set".
func Get(file, key string) (string, bool, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading %s: %w", file, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := parseSet(line); ok && k == key {
			return v, true, nil
		}
	}
	return "", false, nil
}

// Set writes `SET key "value"`. Duplicate lines for the key collapse to
// one canonical line at the first occurrence; everything else is kept
// byte-for-byte. Repeated calls with the same value leave the file
// unchanged.
func Set(file, key, value string) error {
	canonical := fmt.Sprintf("SET %s %q", key, value)

	var lines []string
	trailingNewline := true
	if data, err := os.ReadFile(file); err == nil {
		text := string(data)
		trailingNewline = text == "" || strings.HasSuffix(text, "\n")
		lines = strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", file, err)
	}

	var out []string
	replaced := false
	for _, line := range lines {
		if k, _, ok := parseSet(line); ok && k == key {
			if !replaced {
				out = append(out, canonical)
				replaced = true
			}
			// Later duplicates are dropped.
			continue
		}
		out = append(out, line)
	}
	if !replaced {
		out = append(out, canonical)
	}

	content := strings.Join(out, "\n")
	if trailingNewline || !replaced {
		content += "\n"
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", file, err)
	}
	if err := os.Rename(tmp, file); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing %s: %w", file, err)
	}
	return nil
}

// ApplyStandardTweaks writes the fixed tweak set to file.
func ApplyStandardTweaks(file string) error {
	for _, kv := range StandardTweaks {
		if err := Set(file, kv[0], kv[1]); err != nil {
			return err
		}
		log.Debug().Str("key", kv[0]).Str("value", kv[1]).Msg("game setting applied")
	}
	return nil
}
