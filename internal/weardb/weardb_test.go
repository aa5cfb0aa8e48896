package weardb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wearlab-data/motion.report/internal/wearable/summary"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "motion.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenMigrates(t *testing.T) {
	db := openTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)

	// Re-running on a current schema is a no-op.
	require.NoError(t, db.MigrateUp())
}

func TestSessionRoundTrip(t *testing.T) {
	db := openTestDB(t)

	in := &Session{
		Format:    "cwa",
		Path:      "/data/subject01.cwa",
		DeviceID:  "12345",
		Frequency: 100,
		Samples:   360000,
		BadUnits:  2,
		NDays:     1,
		DecodedAt: time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC),
	}
	id, err := db.InsertSession(in)
	require.NoError(t, err)
	assert.NotEmpty(t, id, "an id is assigned when the caller left it empty")

	sessions, err := db.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	got := sessions[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, in.Format, got.Format)
	assert.Equal(t, in.Path, got.Path)
	assert.Equal(t, in.DeviceID, got.DeviceID)
	assert.Equal(t, in.Frequency, got.Frequency)
	assert.Equal(t, in.Samples, got.Samples)
	assert.Equal(t, in.BadUnits, got.BadUnits)
	assert.Equal(t, in.NDays, got.NDays)
	assert.True(t, got.DecodedAt.Equal(in.DecodedAt))
}

func TestWindowSummariesRoundTrip(t *testing.T) {
	db := openTestDB(t)

	id, err := db.InsertSession(&Session{Format: "bin", Path: "/data/a.bin"})
	require.NoError(t, err)

	rows := []summary.WindowSummary{
		{Pair: 0, Start: 0, Stop: 8639999, N: 8640000, Mean: 1.01, Std: 0.12, P95: 1.4},
		{Pair: 1, Start: 8640000, Stop: 17279999, N: 8640000, Mean: 0.98, Std: 0.08, P95: 1.2},
	}
	require.NoError(t, db.InsertWindowSummaries(id, rows))

	got, err := db.WindowSummaries(id)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	// Other sessions see none of them.
	other, err := db.WindowSummaries("no-such-session")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSessionsOrderedNewestFirst(t *testing.T) {
	db := openTestDB(t)

	older := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	_, err := db.InsertSession(&Session{ID: "old", Format: "cwa", DecodedAt: older})
	require.NoError(t, err)
	_, err = db.InsertSession(&Session{ID: "new", Format: "gt3x", DecodedAt: newer})
	require.NoError(t, err)

	sessions, err := db.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "new", sessions[0].ID)
	assert.Equal(t, "old", sessions[1].ID)
}
