// Package preflight checks the kernel tunables and resource limits the
// game client needs, and remediates deficits through the privilege
// broker with persistent drop-in files.
package preflight

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
)

// Required thresholds. The map-count floor matches what the client
// needs under Wine with large address space; the nofile floor covers
// esync file descriptor usage.
const (
	RequiredMapCount   = int64(16777216)
	RequiredNofileHard = uint64(524288)
	RequiredMemGB      = 16.0
	RequiredMemSwapGB  = 40.0
)

// Check ids, in report order.
const (
	CheckMapCount = "map-count"
	CheckNofile   = "file-descriptor-limit"
	CheckMemory   = "memory"
)

// HostSampler reads the host properties the checks inspect. The real
// implementation reads procfs and getrlimit; tests supply fixtures.
type HostSampler interface {
	Sample() (domain.HostProfile, error)
}

// ProcSampler samples the live host through procfs and getrlimit.
type ProcSampler struct {
	// ProcRoot is the procfs mount point, "/proc" unless overridden.
	ProcRoot string
}

func (p ProcSampler) root() string {
	if p.ProcRoot == "" {
		return "/proc"
	}
	return p.ProcRoot
}

// Sample reads all host properties once. An unreadable meminfo makes
// the host unusable and surfaces as ErrEnvUnsupported.
func (p ProcSampler) Sample() (domain.HostProfile, error) {
	var profile domain.HostProfile

	mapCount, err := readInt(filepath.Join(p.root(), "sys", "vm", "max_map_count"))
	if err != nil {
		return profile, fmt.Errorf("reading max_map_count: %w", err)
	}
	profile.MaxMapCount = mapCount

	var rlim syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rlim); err != nil {
		return profile, fmt.Errorf("reading nofile limit: %w", err)
	}
	profile.NofileHard = rlim.Max
	profile.NofileUnlimited = rlim.Max == ^uint64(0) // syscall.RLIM_INFINITY
	if _, err := os.Stat(LimitsDropInPath); err == nil {
		profile.NofileDropInPresent = true
	}

	memKB, swapKB, err := readMeminfo(filepath.Join(p.root(), "meminfo"))
	if err != nil {
		return profile, fmt.Errorf("%w: %v", domain.ErrEnvUnsupported, err)
	}
	profile.MemTotalGB = float64(memKB) / (1024 * 1024)
	profile.MemPlusSwapGB = float64(memKB+swapKB) / (1024 * 1024)

	return profile, nil
}

func readInt(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
}

// readMeminfo returns MemTotal and SwapTotal in kilobytes.
func readMeminfo(path string) (memKB, swapKB int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	seen := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			memKB, err = strconv.ParseInt(fields[1], 10, 64)
			seen++
		case "SwapTotal:":
			swapKB, err = strconv.ParseInt(fields[1], 10, 64)
			seen++
		}
		if err != nil {
			return 0, 0, err
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, err
	}
	if seen < 2 {
		return 0, 0, fmt.Errorf("meminfo missing MemTotal/SwapTotal")
	}
	return memKB, swapKB, nil
}

// Preflight runs the fixed check list against a host sample.
type Preflight struct {
	sampler HostSampler

	// allPass memoises a fully passing report so a repeat preflight in
	// the same process never re-samples or re-elevates.
	allPass *domain.PreflightReport
}

// New creates a Preflight over the given sampler. A nil sampler means
// the live host.
func New(sampler HostSampler) *Preflight {
	if sampler == nil {
		sampler = ProcSampler{}
	}
	return &Preflight{sampler: sampler}
}

// Run samples the host and evaluates every check.
func (p *Preflight) Run() (*domain.PreflightReport, error) {
	if p.allPass != nil {
		log.Debug().Msg("preflight: returning memoised all-pass report")
		return p.allPass, nil
	}

	host, err := p.sampler.Sample()
	if err != nil {
		return nil, err
	}

	report := &domain.PreflightReport{Host: host, AllPass: true}
	report.Checks = []domain.CheckResult{
		checkMapCount(host),
		checkNofile(host),
		checkMemory(host),
	}
	for _, c := range report.Checks {
		if c.Status != domain.CheckOK {
			report.AllPass = false
		}
	}

	if report.AllPass {
		p.allPass = report
	}
	return report, nil
}

func checkMapCount(host domain.HostProfile) domain.CheckResult {
	c := domain.CheckResult{
		ID:         CheckMapCount,
		Observed:   strconv.FormatInt(host.MaxMapCount, 10),
		Required:   fmt.Sprintf(">= %d", RequiredMapCount),
		Remediable: true,
		Status:     domain.CheckFail,
	}
	if host.MaxMapCount >= RequiredMapCount {
		c.Status = domain.CheckOK
	}
	return c
}

func checkNofile(host domain.HostProfile) domain.CheckResult {
	c := domain.CheckResult{
		ID:         CheckNofile,
		Observed:   strconv.FormatUint(host.NofileHard, 10),
		Required:   fmt.Sprintf(">= %d", RequiredNofileHard),
		Remediable: true,
		Status:     domain.CheckFail,
	}
	switch {
	case host.NofileUnlimited:
		c.Observed = "unlimited"
		c.Status = domain.CheckOK
	case host.NofileHard >= RequiredNofileHard:
		c.Status = domain.CheckOK
	case host.NofileDropInPresent:
		// The drop-in is written; the limit applies from the next login.
		c.Observed += " (raised, pending re-login)"
		c.Status = domain.CheckOK
	}
	return c
}

func checkMemory(host domain.HostProfile) domain.CheckResult {
	c := domain.CheckResult{
		ID:       CheckMemory,
		Observed: fmt.Sprintf("%.1f GB RAM, %.1f GB RAM+swap", host.MemTotalGB, host.MemPlusSwapGB),
		Required: fmt.Sprintf(">= %.0f GB RAM and >= %.0f GB RAM+swap", RequiredMemGB, RequiredMemSwapGB),
		// Memory cannot be fixed by writing a config file; advise only.
		Remediable: false,
		Status:     domain.CheckFail,
	}
	if host.MemTotalGB >= RequiredMemGB && host.MemPlusSwapGB >= RequiredMemSwapGB {
		c.Status = domain.CheckOK
	}
	return c
}
