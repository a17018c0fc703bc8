package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/gamecfg"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/storage/config"
)

var backupsKind string

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Manage game-config and keybind backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackupsList()
	},
}

var backupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackupsList()
	},
}

var backupsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Back up the game config (or keybinds with --kind keybinds)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackupsCreate()
	},
}

var backupsRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a backup over the live files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackupsRestore(args[0])
	},
}

var backupsGCDays int

var backupsGCCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove backups older than a number of days",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackupsGC()
	},
}

func init() {
	backupsCmd.PersistentFlags().StringVar(&backupsKind, "kind", config.BackupGameConfig,
		"backup kind: "+config.BackupGameConfig+" or "+config.BackupKeybinds)
	backupsGCCmd.Flags().IntVar(&backupsGCDays, "older-than", 30, "age threshold in days")
	backupsCmd.AddCommand(backupsListCmd, backupsCreateCmd, backupsRestoreCmd, backupsGCCmd)
	rootCmd.AddCommand(backupsCmd)
}

func runBackupsList() error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	for _, kind := range []string{config.BackupGameConfig, config.BackupKeybinds} {
		ids, err := a.store.ListBackups(kind)
		if err != nil {
			return err
		}
		fmt.Printf("%s:\n", kind)
		if len(ids) == 0 {
			fmt.Println("  (none)")
			continue
		}
		for _, id := range ids {
			fmt.Printf("  %s\n", id)
		}
	}
	return nil
}

// requireGamePath resolves the configured game path or fails with a
// pointer at the install flow.
func requireGamePath(a *app) (string, error) {
	gamePath := a.gamePath()
	if gamePath == "" {
		return "", fmt.Errorf("no game path configured; run `winebar install-launcher` or set it during install")
	}
	return gamePath, nil
}

func runBackupsCreate() error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	gamePath, err := requireGamePath(a)
	if err != nil {
		return err
	}

	var id string
	switch backupsKind {
	case config.BackupKeybinds:
		id, err = gamecfg.BackupKeybinds(a.store, gamePath)
	case config.BackupGameConfig:
		id, err = gamecfg.Backup(a.store, gamecfg.FindConfig(gamePath))
	default:
		return fmt.Errorf("unknown backup kind %q", backupsKind)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Backup created: %s\n", id)
	return nil
}

func runBackupsRestore(id string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	gamePath, err := requireGamePath(a)
	if err != nil {
		return err
	}
	if backupsKind != config.BackupGameConfig {
		return fmt.Errorf("only %s backups can be restored automatically; copy %s files back by hand", config.BackupGameConfig, config.BackupKeybinds)
	}

	if err := gamecfg.Restore(a.store, id, gamecfg.FindConfig(gamePath)); err != nil {
		return err
	}
	fmt.Printf("Restored backup %s.\n", id)
	return nil
}

func runBackupsGC() error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.store.GCBackups(backupsKind, backupsGCDays)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d backup(s) older than %d days.\n", removed, backupsGCDays)
	return nil
}
