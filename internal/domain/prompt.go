package domain

// Prompter is how long-running operations ask the operator questions.
// The terminal implementation lives in cmd/winebar; tests supply fakes.
type Prompter interface {
	// Confirm asks a yes/no question and returns the answer.
	Confirm(question string) (bool, error)
	// Info shows a short informational line to the operator.
	Info(msg string)
	// Warn shows a non-fatal problem the operator should know about.
	Warn(msg string)
}

// AutoConfirm is a Prompter that answers yes to everything and drops
// output. Used by --yes and by the orchestrator's resume path in tests.
type AutoConfirm struct{}

func (AutoConfirm) Confirm(string) (bool, error) { return true, nil }
func (AutoConfirm) Info(string)                  {}
func (AutoConfirm) Warn(string)                  {}
