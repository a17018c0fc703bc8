package provision

import (
	"context"
	"fmt"
	"os"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/gamecfg"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/graphics"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/launcher"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/preflight"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/prefix"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/runner"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/storage/config"
)

// Deps carries everything the standard install needs; no package-level
// state, so tests can assemble the world from fakes.
type Deps struct {
	Store     *config.Store
	Catalogue *runner.Catalogue
	Client    *runner.Client
	Preflight *preflight.Preflight
	Elevator  preflight.Elevator
	Prompter  domain.Prompter
	Settings  config.Settings
	ListPCI   graphics.ListPCI

	// DataDir caches downloads; PrefixPath is where the prefix goes;
	// GamePath may be empty when the game is not installed yet.
	DataDir    string
	PrefixPath string
	GamePath   string
}

// DefaultSteps assembles the standard install sequence.
func DefaultSteps(d Deps) []Step {
	return []Step{
		{
			Target:      StatePreflightOK,
			Description: "Checking host kernel and resource limits",
			Done: func(context.Context) (bool, error) {
				report, err := d.Preflight.Run()
				return err == nil && report.AllPass, nil
			},
			Run: func(ctx context.Context) error {
				report, err := d.Preflight.RunAndRemediate(ctx, d.Elevator, d.Prompter)
				if err != nil {
					return err
				}
				if !report.AllPass {
					return fmt.Errorf("host still fails preflight after remediation")
				}
				return nil
			},
		},
		{
			Target:      StateRuntimeReady,
			Description: "Resolving the default runtime",
			Done: func(context.Context) (bool, error) {
				_, err := d.Catalogue.Executable(d.Catalogue.GetDefault())
				return err == nil, nil
			},
			Run: func(ctx context.Context) error {
				id := d.Catalogue.GetDefault()
				if id == domain.VendorExperimentalID {
					_, err := d.Catalogue.LocateVendorExperimental()
					return err
				}
				_, err := d.Catalogue.Executable(id)
				if err != nil {
					return fmt.Errorf("default runtime %q is unusable (reinstall it with `winebar runtimes install`): %w", id, err)
				}
				return nil
			},
		},
		{
			Target:      StatePrefixReady,
			Description: "Creating and configuring the prefix",
			Done: func(context.Context) (bool, error) {
				return prefix.Initialised(d.PrefixPath), nil
			},
			Run: func(ctx context.Context) error {
				rt, err := d.Catalogue.Get(d.Catalogue.GetDefault())
				if err != nil {
					return err
				}
				m := prefix.NewManager(prefix.SessionFor(rt, d.PrefixPath), d.Prompter)
				if _, err := m.Create(ctx); err != nil {
					return err
				}
				if !d.Settings.SkipFontInstall {
					m.InstallFont(ctx)
				}
				if err := m.ApplyRegistryTweaks(ctx); err != nil {
					return err
				}
				if err := m.ApplyDLLOverrides(ctx, d.Settings.ExtraDLLOverrides); err != nil {
					return err
				}
				return d.Store.Set(config.KeyPrefixPath, d.PrefixPath)
			},
		},
		{
			Target:      StateLauncherReady,
			Description: "Installing the game launcher",
			Done: func(context.Context) (bool, error) {
				_, err := os.Stat(launcher.LauncherPath(d.PrefixPath))
				return err == nil, nil
			},
			Run: func(ctx context.Context) error {
				rt, err := d.Catalogue.Get(d.Catalogue.GetDefault())
				if err != nil {
					return err
				}
				inst := launcher.NewInstaller(d.Client, d.Settings.InstallerURL)
				installerPath, err := inst.DownloadInstaller(ctx, d.DataDir)
				if err != nil {
					return err
				}
				session := prefix.SessionFor(rt, d.PrefixPath)
				if err := inst.RunInstaller(ctx, session, installerPath); err != nil {
					return err
				}
				return launcher.WriteLauncherConfig(d.PrefixPath)
			},
		},
		{
			Target:      StateGameTuned,
			Description: "Tuning game settings",
			Done: func(context.Context) (bool, error) {
				// Without a game path there is nothing to tune.
				return d.GamePath == "", nil
			},
			Run: func(ctx context.Context) error {
				file := gamecfg.FindConfig(d.GamePath)
				if _, err := os.Stat(file); err == nil {
					if _, err := gamecfg.Backup(d.Store, file); err != nil {
						return err
					}
				}
				if err := gamecfg.ApplyStandardTweaks(file); err != nil {
					return err
				}
				return d.Store.Set(config.KeyGamePath, d.GamePath)
			},
		},
		{
			Target:      StateGraphicsTuned,
			Description: "Writing graphics tuning artefacts",
			Run: func(ctx context.Context) error {
				vendor := graphics.DetectVendor(ctx, d.ListPCI)
				if d.GamePath != "" {
					if err := graphics.WriteDXVKConf(d.GamePath); err != nil {
						return err
					}
				}
				return graphics.WriteEnvScripts(vendor, d.Store.Dir())
			},
		},
		{
			Target:      StateDesktopIntegrated,
			Description: "Desktop integration",
			Run: func(context.Context) error {
				// Handled by an external collaborator (desktop entry and
				// icon); recorded here so the checkpoint sequence is whole.
				return nil
			},
		},
	}
}
