package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/launcher"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/prefix"
)

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Start the Battle.net launcher in the provisioned prefix",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLaunch(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(launchCmd)
}

// parseEnvScript extracts KEY=VALUE pairs from the sourceable tuning
// scripts. Quoting is unwrapped; comments and non-export lines are
// ignored.
func parseEnvScript(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var env []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "export ") {
			continue
		}
		kv := strings.TrimPrefix(line, "export ")
		key, value, found := strings.Cut(kv, "=")
		if !found {
			continue
		}
		value = strings.Trim(value, `"`)
		env = append(env, key+"="+value)
	}
	return env
}

func runLaunch(ctx context.Context) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	prefixPath := a.prefixPath()
	if !prefix.Initialised(prefixPath) {
		return fmt.Errorf("no prefix at %s; run `winebar install-launcher` first", prefixPath)
	}
	exePath := launcher.LauncherPath(prefixPath)
	if _, err := os.Stat(exePath); err != nil {
		return fmt.Errorf("launcher not installed in %s; run `winebar install-launcher` first", prefixPath)
	}

	rt, err := a.catalogue.Get(a.catalogue.GetDefault())
	if err != nil {
		return err
	}

	session := prefix.SessionFor(rt, prefixPath)
	session.Timeout = 0 // the launcher runs until the user closes it
	for _, script := range []string{"graphics_env.sh", "wine_env.sh"} {
		session.Extra = append(session.Extra, parseEnvScript(filepath.Join(a.store.Dir(), script))...)
	}

	a.prompter.Info(fmt.Sprintf("Launching with %s...", rt.ID))
	result, err := session.Run(ctx, exePath)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("launcher exited with code %d", result.ExitCode)
	}
	return nil
}
