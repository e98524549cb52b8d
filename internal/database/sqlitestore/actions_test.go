package sqlitestore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ptdewey/shutter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webmsgr/lurk-chan/internal/moderation"
)

func standaloneAction() *moderation.Action {
	return &moderation.Action{
		TargetID:   "usr_standalone",
		TargetName: "Standalone",
		Offense:    "Slurs in voice chat",
		Action:     "Timeout 24h",
		Location:   moderation.LocationDiscord,
		Claimant:   42,
	}
}

func TestCreateAndGetAction(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	t.Run("standalone action", func(t *testing.T) {
		id, err := store.CreateAction(ctx, standaloneAction())
		require.NoError(t, err)

		a, err := store.GetAction(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, "usr_standalone", a.TargetID)
		assert.Equal(t, "Timeout 24h", a.Action)
		assert.Equal(t, moderation.LocationDiscord, a.Location)
		assert.Equal(t, uint64(42), a.Claimant)
		assert.Nil(t, a.Report)
	})

	t.Run("get nonexistent", func(t *testing.T) {
		a, err := store.GetAction(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, a)
	})

	t.Run("duplicate report reference", func(t *testing.T) {
		rid := claimedReport(t, store, "usr_dup_ref", 42)
		_, err := store.CloseReportWithAction(ctx, rid, 42, closingAction(rid, 42))
		require.NoError(t, err)

		a := standaloneAction()
		a.Report = &rid
		_, err = store.CreateAction(ctx, a)
		assert.ErrorIs(t, err, moderation.ErrAlreadyActioned)
	})
}

func TestEditAction(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	ts := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)

	t.Run("edit records history", func(t *testing.T) {
		id, err := store.CreateAction(ctx, standaloneAction())
		require.NoError(t, err)

		a, err := store.GetAction(ctx, id)
		require.NoError(t, err)

		updated := *a
		updated.Action = "Ban"
		require.NoError(t, store.EditAction(ctx, id, &updated, 77, ts))

		got, err := store.GetAction(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Ban", got.Action)

		edits, err := store.ListAuditEdits(ctx, id)
		require.NoError(t, err)
		require.Len(t, edits, 1)

		e := edits[0]
		assert.Equal(t, id, e.ActionID)
		assert.Equal(t, uint64(77), e.Who)
		assert.Equal(t, "2026-08-30T15:00:00Z", e.Time)

		// Changes is an RFC 6902 patch with a single replace.
		var patch []map[string]any
		require.NoError(t, json.Unmarshal([]byte(e.Changes), &patch))
		require.Len(t, patch, 1)
		assert.Equal(t, "replace", patch[0]["op"])
		assert.Equal(t, "/action", patch[0]["path"])
		assert.Equal(t, "Ban", patch[0]["value"])

		// Snapshots are full documents, not patches.
		var oldDoc moderation.Action
		require.NoError(t, json.Unmarshal([]byte(e.Old), &oldDoc))
		assert.Equal(t, "Timeout 24h", oldDoc.Action)
		var newDoc moderation.Action
		require.NoError(t, json.Unmarshal([]byte(e.New), &newDoc))
		assert.Equal(t, "Ban", newDoc.Action)
	})

	t.Run("history chains", func(t *testing.T) {
		id, err := store.CreateAction(ctx, standaloneAction())
		require.NoError(t, err)

		a, err := store.GetAction(ctx, id)
		require.NoError(t, err)

		first := *a
		first.Offense = "Harassment"
		require.NoError(t, store.EditAction(ctx, id, &first, 77, ts))

		second := first
		second.Action = "Ban"
		require.NoError(t, store.EditAction(ctx, id, &second, 78, ts.Add(time.Minute)))

		edits, err := store.ListAuditEdits(ctx, id)
		require.NoError(t, err)
		require.Len(t, edits, 2)

		// Oldest first; each old snapshot is the previous new snapshot.
		assert.Less(t, edits[0].ID, edits[1].ID)
		assert.Equal(t, edits[0].New, edits[1].Old)
	})

	t.Run("edit nonexistent", func(t *testing.T) {
		a := standaloneAction()
		err := store.EditAction(ctx, 999999, a, 77, ts)
		assert.ErrorIs(t, err, moderation.ErrActionNotFound)
	})
}

func TestAuditDiffSnapshot(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	id, err := store.CreateAction(ctx, standaloneAction())
	require.NoError(t, err)

	a, err := store.GetAction(ctx, id)
	require.NoError(t, err)

	updated := *a
	updated.Offense = "Harassment"
	updated.Action = "Ban"
	ts := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)
	require.NoError(t, store.EditAction(ctx, id, &updated, 77, ts))

	edits, err := store.ListAuditEdits(ctx, id)
	require.NoError(t, err)
	require.Len(t, edits, 1)

	shutter.SnapJSON(t, "audit_edit_changes", edits[0].Changes)
}
