package domain

// HostProfile is a read-only snapshot of the host properties the
// preflight inspects. All values are sampled once per preflight run.
type HostProfile struct {
	MaxMapCount     int64
	NofileHard      uint64
	NofileUnlimited bool
	// NofileDropInPresent is true when this tool's limits drop-in file
	// already exists; the raised limit then applies from the next login
	// even though the running session still sees the old value.
	NofileDropInPresent bool
	MemTotalGB          float64
	MemPlusSwapGB       float64
}

// CheckStatus is the outcome of a single preflight check.
type CheckStatus string

const (
	CheckOK   CheckStatus = "ok"
	CheckFail CheckStatus = "fail"
)

// CheckResult pairs a check id with what was observed and required.
type CheckResult struct {
	ID       string
	Status   CheckStatus
	Observed string
	Required string
	// Remediable is false for checks the tool only advises on (memory).
	Remediable bool
}

// PreflightReport is the ordered result of all preflight checks.
type PreflightReport struct {
	Host    HostProfile
	Checks  []CheckResult
	AllPass bool
}

// Failed returns the checks that did not pass.
func (r *PreflightReport) Failed() []CheckResult {
	var out []CheckResult
	for _, c := range r.Checks {
		if c.Status != CheckOK {
			out = append(out, c)
		}
	}
	return out
}
