package note

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/crm-timeline/internal/model"
	"github.com/nhle/crm-timeline/internal/search"
	"github.com/nhle/crm-timeline/internal/source"
)

// stubClient captures the query and answers with canned hits.
type stubClient struct {
	got  search.Params
	hits []string
}

func (c *stubClient) Query(_ context.Context, params search.Params) (*search.Result, error) {
	c.got = params
	result := &search.Result{Total: len(c.hits)}
	for _, h := range c.hits {
		result.Hits = append(result.Hits, json.RawMessage(h))
	}
	return result, nil
}

func TestFetchQueriesOwnNotesOnly(t *testing.T) {
	client := &stubClient{}
	adapter := NewAdapter(client)

	_, err := adapter.Fetch(context.Background(), model.Target{
		ID:   "7",
		Kind: model.TargetContact,
	}, source.Window{Size: 20})

	require.NoError(t, err)
	assert.Equal(t, "note", client.got.Type)
	assert.Equal(t, "gfk_content_type:contact AND gfk_object_id:7", client.got.FilterQuery)
	assert.Equal(t, 20, client.got.Size)
	assert.Equal(t, "-date", client.got.Sort)
}

func TestFetchFoldsContactNotesIntoAccountQuery(t *testing.T) {
	client := &stubClient{}
	adapter := NewAdapter(client)

	_, err := adapter.Fetch(context.Background(), model.Target{
		ID:         "42",
		Kind:       model.TargetAccount,
		ContactIDs: []string{"7", "8"},
	}, source.Window{Size: 20})

	require.NoError(t, err)
	want := "(gfk_content_type:account AND gfk_object_id:42) OR " +
		"(gfk_content_type:contact AND (gfk_object_id:7 OR gfk_object_id:8))"
	assert.Equal(t, want, client.got.FilterQuery)
}

func TestAppliesToEveryTargetKind(t *testing.T) {
	adapter := NewAdapter(nil)
	for _, kind := range []model.TargetKind{
		model.TargetAccount, model.TargetContact, model.TargetCase, model.TargetDeal,
	} {
		assert.True(t, adapter.AppliesTo(model.Target{Kind: kind}))
	}
}

func TestNormalize(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "n1",
		"content": "Called about renewal",
		"author": "u9",
		"date": "2024-03-15T10:30:00Z",
		"modified": "2024-03-16T08:00:00Z",
		"is_pinned": true,
		"gfk_content_type": "contact",
		"gfk_object_id": "7"
	}`)

	rec, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, model.KindNote, rec.Kind)
	assert.Equal(t, "n1", rec.ID)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), rec.SortDate)
	assert.True(t, rec.IsPinned)
	require.NotNil(t, rec.Note)
	assert.Equal(t, "Called about renewal", rec.Note.Content)
	assert.Equal(t, "u9", rec.Note.AuthorID)
	assert.Equal(t, "7", rec.Note.ViaID)
	assert.Equal(t, "contact", rec.Note.ViaKind)
}

func TestNormalizeFallsBackToModified(t *testing.T) {
	raw := json.RawMessage(`{"id": "n1", "modified": "2024-03-16T08:00:00Z"}`)

	rec, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 16, 8, 0, 0, 0, time.UTC), rec.SortDate)
}
