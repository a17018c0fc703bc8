package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/storage/config"
)

type scriptedPrompter struct {
	retryAnswers []bool
	infos        []string
}

func (p *scriptedPrompter) Confirm(string) (bool, error) {
	if len(p.retryAnswers) == 0 {
		return false, nil
	}
	answer := p.retryAnswers[0]
	p.retryAnswers = p.retryAnswers[1:]
	return answer, nil
}
func (p *scriptedPrompter) Info(msg string) { p.infos = append(p.infos, msg) }
func (p *scriptedPrompter) Warn(string)     {}

func newStore(t *testing.T) *config.Store {
	t.Helper()
	store, err := config.New(t.TempDir())
	require.NoError(t, err)
	return store
}

// stepSpy builds a step that counts its runs.
type stepSpy struct {
	runs int
	errs []error // consumed per run; nil past the end
	done bool
}

func (s *stepSpy) step(target State, desc string) Step {
	return Step{
		Target:      target,
		Description: desc,
		Done:        func(context.Context) (bool, error) { return s.done, nil },
		Run: func(context.Context) error {
			s.runs++
			if len(s.errs) > 0 {
				err := s.errs[0]
				s.errs = s.errs[1:]
				return err
			}
			return nil
		},
	}
}

func TestRunExecutesAllStepsAndPersists(t *testing.T) {
	store := newStore(t)
	a, b := &stepSpy{}, &stepSpy{}
	o := NewOrchestrator(store, &scriptedPrompter{}, []Step{
		a.step(StatePreflightOK, "preflight"),
		b.step(StateRuntimeReady, "runtime"),
	})

	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, 1, a.runs)
	assert.Equal(t, 1, b.runs)
	assert.Equal(t, StateDone, o.Current())
	assert.False(t, store.IsFirstRun())
}

func TestRunSkipsSatisfiedSteps(t *testing.T) {
	store := newStore(t)
	a := &stepSpy{done: true}
	b := &stepSpy{}
	o := NewOrchestrator(store, &scriptedPrompter{}, []Step{
		a.step(StatePreflightOK, "preflight"),
		b.step(StateRuntimeReady, "runtime"),
	})

	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, 0, a.runs, "a satisfied step is not re-run")
	assert.Equal(t, 1, b.runs)
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set(config.KeyInstallState, string(StateRuntimeReady)))

	a, b, c := &stepSpy{}, &stepSpy{}, &stepSpy{}
	o := NewOrchestrator(store, &scriptedPrompter{}, []Step{
		a.step(StatePreflightOK, "preflight"),
		b.step(StateRuntimeReady, "runtime"),
		c.step(StatePrefixReady, "prefix"),
	})

	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, 0, a.runs)
	assert.Equal(t, 0, b.runs)
	assert.Equal(t, 1, c.runs)
}

func TestRunFailedStepKeepsState(t *testing.T) {
	store := newStore(t)
	a := &stepSpy{}
	b := &stepSpy{errs: []error{errors.New("download failed")}}
	o := NewOrchestrator(store, &scriptedPrompter{retryAnswers: []bool{false}}, []Step{
		a.step(StatePreflightOK, "preflight"),
		b.step(StateRuntimeReady, "runtime"),
	})

	err := o.Run(context.Background())
	require.ErrorContains(t, err, "download failed")

	// The checkpoint stopped at the last completed step.
	assert.Equal(t, StatePreflightOK, o.Current())
	assert.True(t, store.IsFirstRun())
}

func TestRunRetriesOnConsent(t *testing.T) {
	store := newStore(t)
	a := &stepSpy{errs: []error{errors.New("transient"), errors.New("transient again")}}
	o := NewOrchestrator(store, &scriptedPrompter{retryAnswers: []bool{true, true}}, []Step{
		a.step(StatePreflightOK, "preflight"),
	})

	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, 3, a.runs)
	assert.Equal(t, StateDone, o.Current())
}

func TestRunIdempotentOnRerun(t *testing.T) {
	store := newStore(t)
	a := &stepSpy{}
	steps := []Step{a.step(StatePreflightOK, "preflight")}
	o := NewOrchestrator(store, &scriptedPrompter{}, steps)

	require.NoError(t, o.Run(context.Background()))
	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, 1, a.runs, "a DONE install runs nothing")
}

func TestCurrentUnknownStateRestarts(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set(config.KeyInstallState, "BANANAS"))
	o := NewOrchestrator(store, &scriptedPrompter{}, nil)
	assert.Equal(t, StateStart, o.Current())
}

func TestDefaultStepsCoverEveryState(t *testing.T) {
	steps := DefaultSteps(Deps{})
	var targets []State
	for _, s := range steps {
		targets = append(targets, s.Target)
	}
	assert.Equal(t, []State{
		StatePreflightOK,
		StateRuntimeReady,
		StatePrefixReady,
		StateLauncherReady,
		StateGameTuned,
		StateGraphicsTuned,
		StateDesktopIntegrated,
	}, targets)
}
