package sqlitestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webmsgr/lurk-chan/internal/moderation"
)

func TestReportMessages(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	id, err := store.CreateReport(ctx, testReport("usr_msg"))
	require.NoError(t, err)

	// Identifiers above int64 range must round-trip exactly through the
	// text encoding.
	ref := moderation.MessageRef{Channel: 18446744073709551615, Message: 9874563210123456789}
	require.NoError(t, store.LinkReportMessage(ctx, id, ref))

	got, err := store.GetReportMessage(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ref, *got)

	t.Run("second link rejected", func(t *testing.T) {
		err := store.LinkReportMessage(ctx, id, moderation.MessageRef{Channel: 1, Message: 2})
		assert.Error(t, err)

		// Original link untouched
		got, err := store.GetReportMessage(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, ref, *got)
	})

	t.Run("absent link", func(t *testing.T) {
		other, err := store.CreateReport(ctx, testReport("usr_no_msg"))
		require.NoError(t, err)

		got, err := store.GetReportMessage(ctx, other)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("link counts", func(t *testing.T) {
		n, err := store.CountReportMessages(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint32(1), n)

		n, err = store.CountActionMessages(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestActionMessages(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	id, err := store.CreateAction(ctx, standaloneAction())
	require.NoError(t, err)

	ref := moderation.MessageRef{Channel: 111, Message: 222}
	require.NoError(t, store.LinkActionMessage(ctx, id, ref))

	got, err := store.GetActionMessage(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ref, *got)

	t.Run("relink replaces", func(t *testing.T) {
		moved := moderation.MessageRef{Channel: 333, Message: 444}
		require.NoError(t, store.RelinkActionMessage(ctx, id, moved))

		got, err := store.GetActionMessage(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, moved, *got)
	})

	t.Run("relink works without prior link", func(t *testing.T) {
		fresh, err := store.CreateAction(ctx, standaloneAction())
		require.NoError(t, err)

		ref := moderation.MessageRef{Channel: 555, Message: 666}
		require.NoError(t, store.RelinkActionMessage(ctx, fresh, ref))

		got, err := store.GetActionMessage(ctx, fresh)
		require.NoError(t, err)
		assert.Equal(t, ref, *got)
	})
}

func TestGetActionMessageForReport(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	rid := claimedReport(t, store, "usr_resolution", 42)
	aid, err := store.CloseReportWithAction(ctx, rid, 42, closingAction(rid, 42))
	require.NoError(t, err)

	ref := moderation.MessageRef{Channel: 777, Message: 888}
	require.NoError(t, store.LinkActionMessage(ctx, aid, ref))

	got, err := store.GetActionMessageForReport(ctx, rid)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ref, *got)

	t.Run("report without action", func(t *testing.T) {
		other, err := store.CreateReport(ctx, testReport("usr_no_action"))
		require.NoError(t, err)

		got, err := store.GetActionMessageForReport(ctx, other)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
