package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/provision"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/tui"
)

var installGamePath string

var installLauncherCmd = &cobra.Command{
	Use:   "install-launcher",
	Short: "Run the full provisioning sequence (preflight through launcher install)",
	Long: `Runs the checkpointed install: host preflight, runtime resolution,
prefix creation, silent launcher install, and game/graphics tuning.
An interrupted install resumes from its last completed step.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInstallLauncher(cmd.Context())
	},
}

func init() {
	installLauncherCmd.Flags().StringVar(&installGamePath, "game-path", "", "game install directory (prompted for when unset)")
	rootCmd.AddCommand(installLauncherCmd)
}

func runInstallLauncher(ctx context.Context) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	gamePath := installGamePath
	if gamePath == "" {
		gamePath = a.gamePath()
	}
	if gamePath == "" && !assumeYes {
		entered, ok, err := tui.RunPathPrompt(
			"Where is (or will be) the game installed? Leave empty to skip game tuning.",
			a.prefixPath()+"/drive_c/Program Files (x86)/World of Warcraft",
		)
		if err != nil {
			return err
		}
		if ok {
			gamePath = entered
		}
	}

	deps := provision.Deps{
		Store:      a.store,
		Catalogue:  a.catalogue,
		Client:     a.client,
		Preflight:  a.preflight,
		Elevator:   a.broker,
		Prompter:   a.prompter,
		Settings:   a.settings,
		ListPCI:    listPCI,
		DataDir:    a.dataDir,
		PrefixPath: a.prefixPath(),
		GamePath:   gamePath,
	}

	o := provision.NewOrchestrator(a.store, a.prompter, provision.DefaultSteps(deps))
	if err := o.Run(ctx); err != nil {
		return err
	}
	a.prompter.Info(colorGreen("Provisioning complete.") + " Run `winebar launch` to start the launcher.")
	return nil
}
