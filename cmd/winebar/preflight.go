package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/preflight"
)

var preflightFix bool

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Check host kernel tunables and resource limits",
	Long: `Checks vm.max_map_count, the hard open-file limit, and host memory
against what the game client needs. On remediable failures you are
asked whether to apply fixes through the system's authorisation
mechanism; --fix answers yes without asking.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPreflight(cmd.Context())
	},
}

func init() {
	preflightCmd.Flags().BoolVar(&preflightFix, "fix", false, "apply fixes without asking first")
	rootCmd.AddCommand(preflightCmd)
}

func runPreflight(ctx context.Context) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	prompter := a.prompter
	if preflightFix {
		prompter = domain.AutoConfirm{}
	}
	return preflightFlow(ctx, a.preflight, a.broker, prompter)
}

// preflightFlow prints the report and, when checks fail, offers
// remediation. Declining surfaces as a cancellation.
func preflightFlow(ctx context.Context, pf *preflight.Preflight, elevator preflight.Elevator, prompter domain.Prompter) error {
	report, err := pf.Run()
	if err != nil {
		return err
	}

	for _, check := range report.Checks {
		mark := colorGreen("ok  ")
		if check.Status != domain.CheckOK {
			mark = colorRed("FAIL")
		}
		fmt.Printf("%s  %-22s observed %-28s required %s\n", mark, check.ID, check.Observed, check.Required)
	}

	if report.AllPass {
		fmt.Println(colorGreen("All preflight checks passed."))
		return nil
	}

	fixed, err := pf.RunAndRemediate(ctx, elevator, prompter)
	if err != nil {
		return err
	}
	if !fixed.AllPass {
		return fmt.Errorf("host still fails preflight after remediation")
	}
	fmt.Println(colorGreen("All preflight checks pass after remediation."))
	return nil
}
