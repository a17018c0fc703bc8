package preflight_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/preflight"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeProcFixture lays out a fake procfs with the files the sampler reads.
func writeProcFixture(t *testing.T, mapCount, meminfo string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sys", "vm"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sys", "vm", "max_map_count"), []byte(mapCount), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "meminfo"), []byte(meminfo), 0o644))
	return root
}

func TestProcSampler_Sample(t *testing.T) {
	meminfo := "MemTotal:       32794964 kB\nMemFree:         1000000 kB\nSwapTotal:      33554428 kB\n"
	root := writeProcFixture(t, "65530\n", meminfo)

	profile, err := preflight.ProcSampler{ProcRoot: root}.Sample()
	require.NoError(t, err)

	assert.Equal(t, int64(65530), profile.MaxMapCount)
	assert.InDelta(t, 31.3, profile.MemTotalGB, 0.1)
	assert.InDelta(t, 63.3, profile.MemPlusSwapGB, 0.1)
	assert.Positive(t, profile.NofileHard)
}

func TestProcSampler_MeminfoUnreadable(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sys", "vm"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sys", "vm", "max_map_count"), []byte("65530\n"), 0o644))
	// No meminfo file at all.

	_, err := preflight.ProcSampler{ProcRoot: root}.Sample()
	require.Error(t, err)
}

func TestProcSampler_MeminfoMissingFields(t *testing.T) {
	root := writeProcFixture(t, "65530\n", "MemFree: 12345 kB\n")

	_, err := preflight.ProcSampler{ProcRoot: root}.Sample()
	require.Error(t, err)
}
