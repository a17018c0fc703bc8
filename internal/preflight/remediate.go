package preflight

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/privilege"
)

// Drop-in files this tool owns. Writing them overwrites any previous
// content of ours, which keeps remediation idempotent.
const (
	SysctlDropInPath = "/etc/sysctl.d/99-azeroth-winebar.conf"
	LimitsDropInPath = "/etc/security/limits.d/99-azeroth-winebar.conf"
)

// Elevator is the slice of the privilege broker remediation needs.
type Elevator interface {
	RunElevated(ctx context.Context, argv []string, description string) (privilege.Result, error)
}

// RunAndRemediate runs the checks and, with the operator's consent,
// applies fixes for the remediable failures. It returns the final
// report: callers should treat !AllPass as failure.
func (p *Preflight) RunAndRemediate(ctx context.Context, elevator Elevator, prompter domain.Prompter) (*domain.PreflightReport, error) {
	report, err := p.Run()
	if err != nil {
		return nil, err
	}
	if report.AllPass {
		return report, nil
	}

	var fixable []domain.CheckResult
	for _, c := range report.Failed() {
		if c.Remediable {
			fixable = append(fixable, c)
		} else {
			prompter.Warn(fmt.Sprintf("%s: observed %s, required %s (cannot be fixed automatically)", c.ID, c.Observed, c.Required))
		}
	}

	if len(fixable) == 0 {
		return report, fmt.Errorf("%w: host memory below requirements", domain.ErrInsufficientResources)
	}

	ok, err := prompter.Confirm(fmt.Sprintf("%d preflight check(s) failed. Apply system fixes now? (requires authorisation)", len(fixable)))
	if err != nil {
		return report, err
	}
	if !ok {
		return report, fmt.Errorf("%w: remediation declined", domain.ErrCancelled)
	}

	for _, c := range fixable {
		if err := p.remediate(ctx, elevator, c); err != nil {
			return report, err
		}
	}

	// Re-evaluate with a fresh sample; remediation must have taken hold.
	p.allPass = nil
	return p.Run()
}

func (p *Preflight) remediate(ctx context.Context, elevator Elevator, check domain.CheckResult) error {
	switch check.ID {
	case CheckMapCount:
		return p.remediateMapCount(ctx, elevator)
	case CheckNofile:
		return p.remediateNofile(ctx, elevator)
	default:
		return fmt.Errorf("%w: no remediation for check %s", domain.ErrInternal, check.ID)
	}
}

func (p *Preflight) remediateMapCount(ctx context.Context, elevator Elevator) error {
	content := fmt.Sprintf("vm.max_map_count=%d\n", RequiredMapCount)
	writeCmd := []string{"sh", "-c", fmt.Sprintf("printf '%%s' '%s' > %s", content, SysctlDropInPath)}
	if _, err := elevator.RunElevated(ctx, writeCmd, "Write persistent vm.max_map_count configuration"); err != nil {
		return fmt.Errorf("writing sysctl drop-in: %w", err)
	}

	// Apply at runtime so the fix takes effect without a reboot.
	applyCmd := []string{"sysctl", "-w", fmt.Sprintf("vm.max_map_count=%d", RequiredMapCount)}
	if _, err := elevator.RunElevated(ctx, applyCmd, "Apply vm.max_map_count at runtime"); err != nil {
		return fmt.Errorf("applying sysctl value: %w", err)
	}

	log.Info().Str("file", SysctlDropInPath).Msg("map-count remediation applied")
	return nil
}

func (p *Preflight) remediateNofile(ctx context.Context, elevator Elevator) error {
	content := fmt.Sprintf(
		"* soft nofile %[1]d\n* hard nofile %[1]d\nroot soft nofile %[1]d\nroot hard nofile %[1]d\n",
		RequiredNofileHard,
	)
	writeCmd := []string{"sh", "-c", fmt.Sprintf("printf '%%s' '%s' > %s", content, LimitsDropInPath)}
	if _, err := elevator.RunElevated(ctx, writeCmd, "Raise the open file limit for all users"); err != nil {
		return fmt.Errorf("writing limits drop-in: %w", err)
	}

	log.Info().Str("file", LimitsDropInPath).Msg("nofile remediation applied")
	return nil
}
