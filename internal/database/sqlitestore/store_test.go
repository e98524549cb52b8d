package sqlitestore

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webmsgr/lurk-chan/internal/moderation"
)

func setupTestStore(t *testing.T) *Store {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := Open(Options{Path: dbPath})
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// testReport returns a valid open report against the given target.
func testReport(targetID string) *moderation.Report {
	return &moderation.Report{
		ReporterID:   "usr_reporter",
		ReporterName: "Reporter",
		ReportedID:   targetID,
		ReportedName: "Target",
		Reason:       "Griefing at spawn",
		Status:       moderation.StatusOpen,
		Server:       "Main",
		Time:         "2026-08-30T12:00:00Z",
		Location:     moderation.LocationSL,
	}
}

func TestOpenLeavesLoggingToCaller(t *testing.T) {
	var buf bytes.Buffer
	original := log.Logger
	defer func() {
		log.Logger = original
	}()
	log.Logger = zerolog.New(&buf)

	store, err := Open(Options{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.Empty(t, buf.String())
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "dir", "test.db")

	store, err := Open(Options{Path: dbPath})
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := Open(Options{Path: dbPath})
	require.NoError(t, err)

	id, err := store.CreateReport(ctx, testReport("usr_persist"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening runs the migrations again; they must be idempotent and the
	// data must survive.
	store, err = Open(Options{Path: dbPath})
	require.NoError(t, err)
	defer store.Close()

	r, err := store.GetReport(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "usr_persist", r.ReportedID)
}
