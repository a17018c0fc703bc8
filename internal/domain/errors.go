package domain

import "errors"

// Stable error kinds. Components wrap these with fmt.Errorf("...: %w", ...)
// so callers can match on kind while still seeing the failing detail.
var (
	// ErrEnvUnsupported covers hosts the tool cannot run on: non-64-bit,
	// unreadable /proc/meminfo, or an archive format outside xz/gz tar.
	ErrEnvUnsupported = errors.New("environment unsupported")

	// ErrDependencyMissing means a required external binary is absent
	// (wine runtime, winetricks, lspci, pkexec/sudo).
	ErrDependencyMissing = errors.New("required dependency missing")

	// ErrInsufficientResources is a preflight deficit that cannot be
	// auto-fixed, i.e. physical memory or memory+swap below threshold.
	ErrInsufficientResources = errors.New("insufficient host resources")

	// ErrPrivilegeDenied means elevation was required and refused or
	// no elevation mechanism is available.
	ErrPrivilegeDenied = errors.New("privilege escalation denied")

	// ErrElevationCancelled means the user dismissed the auth prompt.
	// Callers must not retry without fresh user consent.
	ErrElevationCancelled = errors.New("elevation cancelled")

	// ErrNetwork covers DNS/TCP/HTTPS failures fetching feeds or archives.
	ErrNetwork = errors.New("network error")

	// ErrIntegrity means a downloaded artefact failed verification:
	// below the size floor, or the expected executable is missing
	// after extraction.
	ErrIntegrity = errors.New("artefact integrity check failed")

	// ErrConflict covers a concurrent instance holding the lock and an
	// already-installed runtime id when reinstall is declined.
	ErrConflict = errors.New("conflict")

	// ErrCancelled is returned when the operator declines a confirmation
	// or cancels a prompt. Commands exit with code 2 on this error.
	ErrCancelled = errors.New("cancelled")

	// ErrPrefixCorrupt means expected files are missing from the prefix
	// after an init or install step.
	ErrPrefixCorrupt = errors.New("prefix corrupt")

	// ErrInternal flags a violated post-condition. It is a bug: the
	// diagnostic goes to stderr and persisted state is left untouched.
	ErrInternal = errors.New("internal invariant violated")
)
