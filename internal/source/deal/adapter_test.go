package deal

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

func TestAppliesToAccountAndContactOnly(t *testing.T) {
	adapter := NewAdapter(nil)

	assert.True(t, adapter.AppliesTo(model.Target{Kind: model.TargetAccount}))
	assert.True(t, adapter.AppliesTo(model.Target{Kind: model.TargetContact}))
	assert.False(t, adapter.AppliesTo(model.Target{Kind: model.TargetDeal}))
}

func TestFetchQuery(t *testing.T) {
	client := &stubClient{hits: []string{`{
		"id": "d1",
		"name": "Enterprise renewal",
		"stage_name": "negotiation",
		"amount_once": 12500.5,
		"assigned_to": "u3",
		"created_by": "u4",
		"created": "2024-02-01T09:00:00Z",
		"modified": "2024-02-20T14:00:00Z"
	}`}}
	adapter := NewAdapter(client)

	records, err := adapter.Fetch(context.Background(), model.Target{
		ID:   "7",
		Kind: model.TargetContact,
	}, source.Window{Size: 20})

	require.NoError(t, err)
	assert.Equal(t, "deal", client.got.Type)
	assert.Equal(t, "contact:7", client.got.FilterQuery)
	assert.Equal(t, "-modified", client.got.Sort)

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, model.KindDeal, rec.Kind)
	assert.Equal(t, time.Date(2024, 2, 20, 14, 0, 0, 0, time.UTC), rec.SortDate)
	require.NotNil(t, rec.Deal)
	assert.Equal(t, "Enterprise renewal", rec.Deal.Name)
	assert.Equal(t, "negotiation", rec.Deal.Stage)
	assert.InDelta(t, 12500.5, rec.Deal.Amount, 0.001)
}
