package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/crm-timeline/internal/model"
	"github.com/nhle/crm-timeline/tests/testutil"
)

func snapshotRecord(kind model.ActivityKind, id string, date time.Time, pinned bool) *model.TimelineRecord {
	rec := &model.TimelineRecord{
		Kind:     kind,
		ID:       id,
		SortDate: date,
		IsPinned: pinned,
	}
	if kind == model.KindNote {
		rec.Note = &model.NotePayload{Content: "note " + id, IsPinned: pinned}
	}
	return rec
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	target := model.Target{ID: "42", Kind: model.TargetAccount}
	records := []*model.TimelineRecord{
		snapshotRecord(model.KindNote, "n1", time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC), true),
		snapshotRecord(model.KindCase, "c1", time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC), false),
	}
	require.NoError(t, s.ReplaceSnapshot(ctx, target, records))

	got, err := s.GetSnapshot(ctx, model.TargetAccount, "42")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "n1", got[0].ID)
	assert.True(t, got[0].IsPinned)
	require.NotNil(t, got[0].Note)
	assert.Equal(t, "note n1", got[0].Note.Content)
	assert.Equal(t, "c1", got[1].ID)
}

func TestReplaceSnapshotDropsPreviousWindow(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	target := model.Target{ID: "42", Kind: model.TargetAccount}
	first := []*model.TimelineRecord{
		snapshotRecord(model.KindNote, "n1", time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC), false),
	}
	require.NoError(t, s.ReplaceSnapshot(ctx, target, first))

	second := []*model.TimelineRecord{
		snapshotRecord(model.KindNote, "n2", time.Date(2024, 3, 21, 10, 0, 0, 0, time.UTC), false),
	}
	require.NoError(t, s.ReplaceSnapshot(ctx, target, second))

	got, err := s.GetSnapshot(ctx, model.TargetAccount, "42")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "n2", got[0].ID)
}

func TestSnapshotsIsolatedPerTarget(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	account := model.Target{ID: "42", Kind: model.TargetAccount}
	contact := model.Target{ID: "42", Kind: model.TargetContact}
	require.NoError(t, s.ReplaceSnapshot(ctx, account, []*model.TimelineRecord{
		snapshotRecord(model.KindNote, "n1", time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC), false),
	}))
	require.NoError(t, s.ReplaceSnapshot(ctx, contact, []*model.TimelineRecord{
		snapshotRecord(model.KindNote, "n2", time.Date(2024, 3, 21, 10, 0, 0, 0, time.UTC), false),
	}))

	got, err := s.GetSnapshot(ctx, model.TargetAccount, "42")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "n1", got[0].ID)
}

func TestGetSnapshotUnknownTargetIsEmpty(t *testing.T) {
	s := testutil.NewTestStore(t)

	got, err := s.GetSnapshot(context.Background(), model.TargetDeal, "nope")
	require.NoError(t, err)
	assert.Empty(t, got)
}
