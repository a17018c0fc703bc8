// Package privilege runs single commands with elevated rights.
//
// The broker itself writes no state: side effects are confined to the
// child process. Every attempt, successful or not, is appended to the
// audit database.
package privilege

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
	"github.com/ColbyWanShinobi/azeroth-winebar/internal/storage/auditdb"
)

// Auditor records elevation attempts. *auditdb.DB satisfies it; tests
// supply fakes.
type Auditor interface {
	Record(auditdb.Elevation) error
}

// Broker executes commands with elevated rights through whichever
// mechanism the host offers: run directly when already privileged, a
// desktop auth agent (pkexec), or sudo. One elevation at a time.
type Broker struct {
	mu         sync.Mutex
	audit      Auditor
	privileged func() bool
}

// Option tweaks broker construction.
type Option func(*Broker)

// WithPrivilegedCheck overrides the already-privileged probe (tests).
func WithPrivilegedCheck(fn func() bool) Option {
	return func(b *Broker) { b.privileged = fn }
}

// New creates a Broker. audit may be nil, in which case attempts are
// only logged.
func New(audit Auditor, opts ...Option) *Broker {
	b := &Broker{
		audit:      audit,
		privileged: func() bool { return os.Geteuid() == 0 },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// pkexec reports "dismissed" and "not authorized" with these codes.
const (
	pkexecCancelled     = 126
	pkexecNotAuthorised = 127
)

// Result is the structured outcome of an elevated command.
type Result struct {
	ExitCode int
	Stderr   string
}

// RunElevated runs argv with elevated rights. The description is shown
// to the user verbatim before the auth prompt and recorded in the audit
// trail. A dismissed auth prompt returns domain.ErrElevationCancelled;
// callers must not retry without new user consent.
func (b *Broker) RunElevated(ctx context.Context, argv []string, description string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, fmt.Errorf("%w: empty elevated command", domain.ErrInternal)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	method, wrapped, err := b.plan(argv)
	if err != nil {
		b.record(method, description, argv, -1, "error", 0)
		return Result{}, err
	}

	log.Info().Str("method", method).Str("description", description).Msg("elevating")
	fmt.Fprintf(os.Stderr, "Authorisation needed: %s\n", description)

	start := time.Now()
	cmd := exec.CommandContext(ctx, wrapped[0], wrapped[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	elapsed := time.Since(start)

	res := Result{ExitCode: 0, Stderr: stderr.String()}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			b.record(method, description, argv, -1, "error", elapsed)
			return res, fmt.Errorf("running elevated command: %w", runErr)
		}
		res.ExitCode = exitErr.ExitCode()
	}

	switch {
	case res.ExitCode == 0:
		b.record(method, description, argv, 0, "ok", elapsed)
		return res, nil
	case method == "pkexec" && (res.ExitCode == pkexecCancelled || res.ExitCode == pkexecNotAuthorised):
		b.record(method, description, argv, res.ExitCode, "cancelled", elapsed)
		return res, fmt.Errorf("%w: authentication prompt dismissed", domain.ErrElevationCancelled)
	default:
		b.record(method, description, argv, res.ExitCode, "denied", elapsed)
		return res, fmt.Errorf("%w: %s exited with code %d", domain.ErrPrivilegeDenied, method, res.ExitCode)
	}
}

// plan picks the escalation mechanism and returns the full argv to run.
func (b *Broker) plan(argv []string) (method string, wrapped []string, err error) {
	if b.privileged() {
		return "direct", argv, nil
	}
	if path, err := exec.LookPath("pkexec"); err == nil {
		return "pkexec", append([]string{path}, argv...), nil
	}
	if path, err := exec.LookPath("sudo"); err == nil {
		return "sudo", append([]string{path}, argv...), nil
	}
	return "none", nil, fmt.Errorf("%w: no elevation mechanism available (install pkexec or sudo)", domain.ErrPrivilegeDenied)
}

func (b *Broker) record(method, description string, argv []string, exitCode int, outcome string, d time.Duration) {
	if b.audit == nil {
		return
	}
	err := b.audit.Record(auditdb.Elevation{
		StartedAt:   time.Now().Add(-d),
		Duration:    d,
		Method:      method,
		Description: description,
		Command:     strings.Join(argv, " "),
		ExitCode:    exitCode,
		Outcome:     outcome,
	})
	if err != nil {
		log.Warn().Err(err).Msg("audit record not written")
	}
}
