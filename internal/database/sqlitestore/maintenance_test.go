package sqlitestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webmsgr/lurk-chan/internal/moderation"
)

func TestHealthProbes(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	n, err := store.ForeignKeyCheck(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, store.IntegrityCheck(ctx))

	t.Run("missing message probes", func(t *testing.T) {
		rid, err := store.CreateReport(ctx, testReport("usr_probe"))
		require.NoError(t, err)
		aid, err := store.CreateAction(ctx, standaloneAction())
		require.NoError(t, err)

		missing, err := store.ReportsMissingMessage(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, missing)

		missing, err = store.ActionsMissingMessage(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, missing)

		require.NoError(t, store.LinkReportMessage(ctx, rid, moderation.MessageRef{Channel: 1, Message: 2}))
		require.NoError(t, store.LinkActionMessage(ctx, aid, moderation.MessageRef{Channel: 3, Message: 4}))

		missing, err = store.ReportsMissingMessage(ctx)
		require.NoError(t, err)
		assert.Zero(t, missing)

		missing, err = store.ActionsMissingMessage(ctx)
		require.NoError(t, err)
		assert.Zero(t, missing)
	})
}

func TestMaintenance(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	_, err := store.CreateReport(ctx, testReport("usr_maint"))
	require.NoError(t, err)

	require.NoError(t, store.Optimize(ctx))
	require.NoError(t, store.Vacuum(ctx))
}

func TestBackupTo(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	id, err := store.CreateReport(ctx, testReport("usr_backup"))
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, store.BackupTo(ctx, dest))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	// The snapshot is a complete, openable database.
	snap, err := Open(Options{Path: dest})
	require.NoError(t, err)
	defer snap.Close()

	r, err := snap.GetReport(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "usr_backup", r.ReportedID)
}
