// Package provision drives the end-to-end install as a checkpointed
// state machine. Each completed step persists its state to the config
// store, so an interrupted install resumes where it stopped.
package provision

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/storage/config"
)

// State is a provisioning checkpoint persisted under install_state.
type State string

const (
	StateStart             State = "START"
	StatePreflightOK       State = "PREFLIGHT_OK"
	StateRuntimeReady      State = "RUNTIME_READY"
	StatePrefixReady       State = "PREFIX_READY"
	StateLauncherReady     State = "LAUNCHER_READY"
	StateGameTuned         State = "GAME_TUNED"
	StateGraphicsTuned     State = "GRAPHICS_TUNED"
	StateDesktopIntegrated State = "DESKTOP_INTEGRATED"
	StateDone              State = "DONE"
)

// stateOrder fixes the progression. A persisted state not in this list
// (corrupt key, downgrade) restarts from the beginning.
var stateOrder = []State{
	StateStart,
	StatePreflightOK,
	StateRuntimeReady,
	StatePrefixReady,
	StateLauncherReady,
	StateGameTuned,
	StateGraphicsTuned,
	StateDesktopIntegrated,
	StateDone,
}

func stateIndex(s State) int {
	for i, candidate := range stateOrder {
		if candidate == s {
			return i
		}
	}
	return 0
}

// Step advances the install to its Target state.
type Step struct {
	Target      State
	Description string
	// Done reports whether the step's post-conditions already hold, so
	// a resumed install skips completed work. Nil means never.
	Done func(ctx context.Context) (bool, error)
	// Run does the work.
	Run func(ctx context.Context) error
}

// Orchestrator executes steps in order, checkpointing after each.
type Orchestrator struct {
	store    *config.Store
	prompter domain.Prompter
	steps    []Step
}

// NewOrchestrator builds an orchestrator over an ordered step list.
func NewOrchestrator(store *config.Store, prompter domain.Prompter, steps []Step) *Orchestrator {
	return &Orchestrator{store: store, prompter: prompter, steps: steps}
}

// Current returns the persisted checkpoint, defaulting to START.
func (o *Orchestrator) Current() State {
	value, ok, err := o.store.Get(config.KeyInstallState)
	if err != nil || !ok {
		return StateStart
	}
	s := State(value)
	if stateIndex(s) == 0 && s != StateStart {
		log.Warn().Str("state", value).Msg("unrecognised install state, restarting")
		return StateStart
	}
	return s
}

func (o *Orchestrator) persist(s State) error {
	if err := o.store.Set(config.KeyInstallState, string(s)); err != nil {
		return fmt.Errorf("persisting install state: %w", err)
	}
	return nil
}

// Run resumes the install from the current checkpoint and executes
// every remaining step. A failed step keeps its state; the operator
// chooses between retrying and aborting.
func (o *Orchestrator) Run(ctx context.Context) error {
	current := stateIndex(o.Current())

	for _, step := range o.steps {
		if stateIndex(step.Target) <= current {
			continue
		}

		if step.Done != nil {
			done, err := step.Done(ctx)
			if err != nil {
				return fmt.Errorf("checking %s: %w", step.Description, err)
			}
			if done {
				log.Info().Str("step", step.Description).Msg("already satisfied, skipping")
				if err := o.persist(step.Target); err != nil {
					return err
				}
				current = stateIndex(step.Target)
				continue
			}
		}

		for {
			o.prompter.Info(step.Description)
			err := step.Run(ctx)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return fmt.Errorf("%s: %w", step.Description, err)
			}
			log.Error().Str("step", step.Description).Err(err).Msg("step failed")
			retry, promptErr := o.prompter.Confirm(fmt.Sprintf("%s failed: %v. Retry?", step.Description, err))
			if promptErr != nil {
				return promptErr
			}
			if !retry {
				return fmt.Errorf("%s: %w", step.Description, err)
			}
		}

		if err := o.persist(step.Target); err != nil {
			return err
		}
		current = stateIndex(step.Target)
	}

	if err := o.persist(StateDone); err != nil {
		return err
	}
	if err := o.store.MarkFirstRunDone(); err != nil {
		return err
	}
	log.Info().Msg("provisioning complete")
	return nil
}
