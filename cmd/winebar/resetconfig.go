package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
)

var resetConfigCmd = &cobra.Command{
	Use:   "reset-config",
	Short: "Remove all stored configuration keys",
	Long: `Removes every stored key (prefix path, game path, default runtime,
install state). Backups, settings.yaml and installed runtimes are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runResetConfig()
	},
}

func init() {
	rootCmd.AddCommand(resetConfigCmd)
}

func runResetConfig() error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ok, err := a.prompter.Confirm("Remove all stored configuration? The next install starts from scratch.")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: reset declined", domain.ErrCancelled)
	}

	if err := a.store.Reset(); err != nil {
		return err
	}
	fmt.Println("Configuration reset.")
	return nil
}
