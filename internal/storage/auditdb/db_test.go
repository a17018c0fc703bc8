package auditdb_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/storage/auditdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *auditdb.DB {
	t.Helper()
	db, err := auditdb.New(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecord_AndRecent(t *testing.T) {
	db := newDB(t)

	require.NoError(t, db.Record(auditdb.Elevation{
		StartedAt:   time.Now(),
		Duration:    120 * time.Millisecond,
		Method:      "pkexec",
		Description: "Write persistent vm.max_map_count configuration",
		Command:     "sh -c 'printf ... > /etc/sysctl.d/99-azeroth-winebar.conf'",
		ExitCode:    0,
		Outcome:     "ok",
	}))
	require.NoError(t, db.Record(auditdb.Elevation{
		StartedAt:   time.Now(),
		Method:      "pkexec",
		Description: "Apply vm.max_map_count at runtime",
		Command:     "sysctl -w vm.max_map_count=16777216",
		ExitCode:    126,
		Outcome:     "cancelled",
	}))

	recent, err := db.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	// Newest first.
	assert.Equal(t, "cancelled", recent[0].Outcome)
	assert.Equal(t, 126, recent[0].ExitCode)
	assert.Equal(t, "ok", recent[1].Outcome)
	assert.Equal(t, 120*time.Millisecond, recent[1].Duration)
}

func TestRecent_Limit(t *testing.T) {
	db := newDB(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, db.Record(auditdb.Elevation{
			StartedAt: time.Now(),
			Method:    "sudo",
			Outcome:   "ok",
		}))
	}

	recent, err := db.Recent(3)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestNew_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	db, err := auditdb.New(path)
	require.NoError(t, err)
	require.NoError(t, db.Record(auditdb.Elevation{StartedAt: time.Now(), Method: "direct", Outcome: "ok"}))
	require.NoError(t, db.Close())

	db2, err := auditdb.New(path)
	require.NoError(t, err)
	defer db2.Close()

	recent, err := db2.Recent(10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
