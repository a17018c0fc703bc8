package gamecfg

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/storage/config"
)

// Backup snapshots the Config.wtf into the store and returns the
// backup id.
func Backup(store *config.Store, file string) (string, error) {
	res, err := store.CreateBackup(config.BackupGameConfig, []string{file})
	if err != nil {
		return "", err
	}
	return res.ID, nil
}

// Restore copies a backed-up Config.wtf back over the live file.
func Restore(store *config.Store, id, file string) error {
	return store.RestoreBackup(config.BackupGameConfig, id, filepath.Dir(file))
}

// keybindGlobs locate per-account binding caches under the game root.
var keybindGlobs = []string{
	"WTF/Account/*/bindings-cache.wtf",
	"_retail_/WTF/Account/*/bindings-cache.wtf",
	"_classic_/WTF/Account/*/bindings-cache.wtf",
	"_classic_era_/WTF/Account/*/bindings-cache.wtf",
}

// BackupKeybinds snapshots every account's binding cache.
func BackupKeybinds(store *config.Store, gamePath string) (string, error) {
	var sources []string
	for _, pattern := range keybindGlobs {
		matches, err := filepath.Glob(filepath.Join(gamePath, filepath.FromSlash(pattern)))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
				sources = append(sources, m)
			}
		}
	}
	if len(sources) == 0 {
		return "", fmt.Errorf("no binding caches found under %s", gamePath)
	}
	res, err := store.CreateBackup(config.BackupKeybinds, sources)
	if err != nil {
		return "", err
	}
	return res.ID, nil
}
