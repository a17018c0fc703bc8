package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/graphics"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/logging"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/preflight"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/privilege"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/runner"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/storage/auditdb"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/storage/config"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/tui"
)

const appName = "azeroth-winebar"

var (
	version = "1.0.0"

	// Global flags
	configDir string
	dataDir   string
	debug     bool
	assumeYes bool
	noColor   bool
)

// rootCmd is the base command; without a subcommand it opens the
// interactive menu.
var rootCmd = &cobra.Command{
	Use:   "winebar",
	Short: "Provision a Linux workstation for the Battle.net launcher and WoW",
	Long: `winebar prepares a Linux host to run the Battle.net launcher and
World of Warcraft under a Wine or Proton compatibility runtime: kernel
preflight checks, runtime download and selection, prefix creation,
silent launcher install, and game/graphics tuning.

Run without arguments for the interactive menu, or use subcommands.`,
	Version:       version,
	SilenceUsage:  true, // Runtime errors should not print usage
	SilenceErrors: true, // We handle error output in Execute()
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMenu(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default: ~/.config/"+appName+")")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default: ~/.local/share/"+appName+")")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug output (also: DEBUG env)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "assume yes on all prompts")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command. Exit codes: 0 = success, 1 = error,
// 2 = user cancelled, 130 = interrupted by signal.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	switch {
	case ctx.Err() != nil:
		os.Exit(130)
	case errors.Is(err, domain.ErrCancelled) || errors.Is(err, domain.ErrElevationCancelled):
		fmt.Fprintln(os.Stderr, "Cancelled.")
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func resolveDirs() (cfg, data string, err error) {
	cfg, data = configDir, dataDir
	if cfg == "" {
		cfg = filepath.Join(xdg.ConfigHome, appName)
	}
	if data == "" {
		data = filepath.Join(xdg.DataHome, appName)
	}
	if err := os.MkdirAll(cfg, 0o755); err != nil {
		return "", "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.MkdirAll(data, 0o755); err != nil {
		return "", "", fmt.Errorf("creating data dir: %w", err)
	}
	return cfg, data, nil
}

// app bundles the wired collaborators for one invocation. No
// package-level singletons: commands build an app, use it, close it.
type app struct {
	store     *config.Store
	settings  config.Settings
	catalogue *runner.Catalogue
	client    *runner.Client
	broker    *privilege.Broker
	preflight *preflight.Preflight
	prompter  domain.Prompter
	dataDir   string

	audit *auditdb.DB
	lock  *config.Lock
}

// initApp wires storage, the catalogue, the privilege broker and
// logging, and takes the single-instance lock.
func initApp() (*app, error) {
	cfg, data, err := resolveDirs()
	if err != nil {
		return nil, err
	}

	if os.Getenv("DEBUG") != "" {
		debug = true
	}
	logging.Setup(debug, data)

	store, err := config.New(cfg)
	if err != nil {
		return nil, err
	}
	lock, err := store.AcquireLock()
	if err != nil {
		return nil, err
	}

	settings, err := store.LoadSettings()
	if err != nil {
		lock.Release()
		return nil, err
	}

	audit, err := auditdb.New(filepath.Join(data, "elevations.db"))
	if err != nil {
		lock.Release()
		return nil, err
	}

	client := runner.NewClient(nil)
	catalogue, err := runner.NewCatalogue(filepath.Join(data, "runners"), store, client)
	if err != nil {
		audit.Close()
		lock.Release()
		return nil, err
	}

	var prompter domain.Prompter = newTerminalPrompter()
	if assumeYes {
		prompter = domain.AutoConfirm{}
	}

	return &app{
		store:     store,
		settings:  settings,
		catalogue: catalogue,
		client:    client,
		broker:    privilege.New(audit),
		preflight: preflight.New(nil),
		prompter:  prompter,
		dataDir:   data,
		audit:     audit,
		lock:      lock,
	}, nil
}

// Close releases the instance lock and the audit database.
func (a *app) Close() {
	if a.audit != nil {
		a.audit.Close()
	}
	a.lock.Release()
}

// prefixPath returns the configured prefix location, defaulting under
// the data dir. WINEPREFIX in the environment wins.
func (a *app) prefixPath() string {
	if env := os.Getenv("WINEPREFIX"); env != "" {
		return env
	}
	if value, ok, err := a.store.Get(config.KeyPrefixPath); err == nil && ok {
		return value
	}
	return filepath.Join(a.dataDir, "prefix")
}

// gamePath returns the configured game location, if any.
func (a *app) gamePath() string {
	value, _, _ := a.store.Get(config.KeyGamePath)
	return value
}

// runMenu drives the no-arguments interactive flow.
func runMenu(ctx context.Context) error {
	for {
		action, chosen, err := tui.RunMenu()
		if err != nil {
			return err
		}
		if !chosen {
			return nil
		}

		var runErr error
		switch action {
		case tui.ActionInstall:
			runErr = runInstallLauncher(ctx)
		case tui.ActionPreflight:
			runErr = runPreflight(ctx)
		case tui.ActionRuntimes:
			runErr = runRuntimesList(ctx)
		case tui.ActionLaunch:
			runErr = runLaunch(ctx)
		case tui.ActionBackups:
			runErr = runBackupsList()
		case tui.ActionResetConfig:
			runErr = runResetConfig()
		default:
			return nil
		}
		if runErr != nil {
			if errors.Is(runErr, domain.ErrCancelled) || ctx.Err() != nil {
				return runErr
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		}
	}
}

// listPCI is swapped in tests.
var listPCI graphics.ListPCI = graphics.LspciList
