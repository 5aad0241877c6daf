package email

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

func TestAppliesToRequiresEmailAddresses(t *testing.T) {
	adapter := NewAdapter(nil)

	assert.False(t, adapter.AppliesTo(model.Target{Kind: model.TargetAccount}))
	assert.True(t, adapter.AppliesTo(model.Target{
		Kind:           model.TargetContact,
		EmailAddresses: []string{"a@b.test"},
	}))
}

func TestFetchMatchesSenderAndRecipient(t *testing.T) {
	client := &stubClient{}
	adapter := NewAdapter(client)

	_, err := adapter.Fetch(context.Background(), model.Target{
		ID:             "7",
		Kind:           model.TargetContact,
		EmailAddresses: []string{"a@b.test", "c@d.test"},
	}, source.Window{Size: 20})

	require.NoError(t, err)
	assert.Equal(t, "email_message", client.got.Type)
	assert.Equal(t, "-sent_date", client.got.Sort)
	want := "sender_email:a@b.test OR received_by_email:a@b.test OR " +
		"sender_email:c@d.test OR received_by_email:c@d.test"
	assert.Equal(t, want, client.got.FilterQuery)
}

func TestNormalize(t *testing.T) {
	client := &stubClient{hits: []string{`{
		"id": "e1",
		"subject": "Re: quote",
		"sender_name": "Ada Lovelace",
		"sender_email": "ada@acme.test",
		"received_by_email": ["sales@tenant.test"],
		"body_preview": "Thanks for the quote",
		"message_id": "m1",
		"sent_date": "2024-03-10T16:45:00Z"
	}`}}
	adapter := NewAdapter(client)

	records, err := adapter.Fetch(context.Background(), model.Target{
		ID:             "7",
		Kind:           model.TargetContact,
		EmailAddresses: []string{"ada@acme.test"},
	}, source.Window{Size: 20})

	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, model.KindEmail, rec.Kind)
	assert.Equal(t, time.Date(2024, 3, 10, 16, 45, 0, 0, time.UTC), rec.SortDate)
	require.NotNil(t, rec.Email)
	assert.Equal(t, "Re: quote", rec.Email.Subject)
	assert.Equal(t, "ada@acme.test", rec.Email.SenderEmail)
	assert.Equal(t, []string{"sales@tenant.test"}, rec.Email.ReceivedBy)
	assert.Equal(t, "m1", rec.Email.MessageID)
}
