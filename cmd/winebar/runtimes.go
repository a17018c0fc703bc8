package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/runner"
)

var runtimesCmd = &cobra.Command{
	Use:   "runtimes",
	Short: "Manage compatibility runtimes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRuntimesList(cmd.Context())
	},
}

var runtimesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed runtimes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRuntimesList(cmd.Context())
	},
}

var runtimesReleasesCmd = &cobra.Command{
	Use:   "releases <kind>",
	Short: "List recent upstream releases for a runtime kind",
	Long:  "Kinds: " + kindUsage(),
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRuntimesReleases(cmd.Context(), args[0])
	},
}

var runtimesInstallCmd = &cobra.Command{
	Use:   "install <kind> [tag]",
	Short: "Download and install a runtime release (latest when no tag given)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag := ""
		if len(args) == 2 {
			tag = args[1]
		}
		return runRuntimesInstall(cmd.Context(), args[0], tag)
	},
}

var runtimesSetDefaultCmd = &cobra.Command{
	Use:   "set-default <id>",
	Short: "Make an installed runtime the default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRuntimesSetDefault(args[0])
	},
}

var runtimesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an installed runtime",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRuntimesRemove(args[0])
	},
}

var runtimesLocateVendorCmd = &cobra.Command{
	Use:   "locate-vendor",
	Short: "Find Steam's Proton Experimental and link it into the catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRuntimesLocateVendor()
	},
}

func init() {
	runtimesCmd.AddCommand(runtimesListCmd, runtimesReleasesCmd, runtimesInstallCmd,
		runtimesSetDefaultCmd, runtimesRemoveCmd, runtimesLocateVendorCmd)
	rootCmd.AddCommand(runtimesCmd)
}

func kindUsage() string {
	var kinds []string
	for _, d := range runner.ListSources() {
		kinds = append(kinds, string(d.Kind))
	}
	return strings.Join(kinds, ", ")
}

func runRuntimesList(ctx context.Context) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	installed, err := a.catalogue.ListInstalled()
	if err != nil {
		return err
	}
	if len(installed) == 0 {
		fmt.Println("No runtimes installed. Install one with `winebar runtimes install <kind>`,")
		fmt.Println("or link Steam's copy with `winebar runtimes locate-vendor`.")
		return nil
	}

	defaultID := a.catalogue.GetDefault()
	for _, rt := range installed {
		marker := "  "
		if rt.ID == defaultID {
			marker = colorGreen("* ")
		}
		fmt.Printf("%s%-28s %-20s installed %s\n", marker, rt.ID, rt.Kind, rt.InstalledAt.Format("2006-01-02"))
	}
	fmt.Printf("\ndefault: %s\n", defaultID)
	return nil
}

func runRuntimesReleases(ctx context.Context, kindArg string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	kind := domain.ParseRuntimeKind(kindArg)
	if kind == domain.KindCustom {
		return fmt.Errorf("unknown runtime kind %q (kinds: %s)", kindArg, kindUsage())
	}

	releases, err := a.client.ListRemoteReleases(ctx, kind, a.settings.ReleaseLimit)
	if err != nil {
		return err
	}
	for _, rel := range releases {
		fmt.Println(rel.Tag)
	}
	return nil
}

func runRuntimesInstall(ctx context.Context, kindArg, tag string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	kind := domain.ParseRuntimeKind(kindArg)
	if kind == domain.KindCustom {
		return fmt.Errorf("unknown runtime kind %q (kinds: %s)", kindArg, kindUsage())
	}

	if tag == "" {
		releases, err := a.client.ListRemoteReleases(ctx, kind, 1)
		if err != nil {
			return err
		}
		if len(releases) == 0 {
			return fmt.Errorf("no installable releases in the %s feed", kind)
		}
		tag = releases[0].Tag
	}

	plan, err := a.client.ResolveDownload(ctx, kind, tag)
	if err != nil {
		return err
	}

	// The tag is the runtime id, verbatim, so `list` shows exactly what
	// the operator asked for.
	id := tag
	fmt.Printf("Installing %s %s...\n", kind, tag)
	rt, err := a.catalogue.Install(ctx, plan, id, a.prompter, printProgress)
	if err != nil {
		return err
	}
	fmt.Printf("\n%s installed: %s\n", colorGreen("ok"), rt.ID)

	if _, err := a.catalogue.Executable(a.catalogue.GetDefault()); err != nil {
		if err := a.catalogue.SetDefault(rt.ID); err == nil {
			fmt.Printf("Default runtime set to %s.\n", rt.ID)
		}
	}
	return nil
}

// printProgress renders a single-line download progress meter.
func printProgress(p runner.DownloadProgress) {
	if p.TotalBytes > 0 {
		fmt.Printf("\r  %3d%% (%d/%d MB)", p.Downloaded*100/p.TotalBytes, p.Downloaded>>20, p.TotalBytes>>20)
	} else {
		fmt.Printf("\r  %d MB", p.Downloaded>>20)
	}
}

func runRuntimesSetDefault(id string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.catalogue.SetDefault(id); err != nil {
		return err
	}
	fmt.Printf("Default runtime set to %s.\n", id)
	return nil
}

func runRuntimesRemove(id string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	wasDefault := a.catalogue.GetDefault() == id
	if err := a.catalogue.Delete(id); err != nil {
		return err
	}
	fmt.Printf("Removed %s.\n", id)
	if wasDefault {
		fmt.Printf("Default runtime reset to %s.\n", domain.VendorExperimentalID)
	}
	return nil
}

func runRuntimesLocateVendor() error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rt, err := a.catalogue.LocateVendorExperimental()
	if err != nil {
		return err
	}
	fmt.Printf("Linked %s -> %s\n", rt.ID, rt.SourceURL)
	return nil
}
