// Package email fetches email-message records for a timeline target.
package email

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nhle/crm-timeline/internal/model"
	"github.com/nhle/crm-timeline/internal/search"
	"github.com/nhle/crm-timeline/internal/source"
)

// Adapter implements source.Fetcher for email messages.
type Adapter struct {
	client search.Client
}

// NewAdapter creates an email fetcher backed by the given search
// client.
func NewAdapter(client search.Client) *Adapter {
	return &Adapter{client: client}
}

// Kind returns the email activity kind.
func (a *Adapter) Kind() model.ActivityKind {
	return model.KindEmail
}

// AppliesTo reports true when the target carries at least one email
// address to correlate messages against.
func (a *Adapter) AppliesTo(target model.Target) bool {
	return len(target.EmailAddresses) > 0
}

// Fetch retrieves the newest messages sent to or from any of the
// target's email addresses.
func (a *Adapter) Fetch(
	ctx context.Context,
	target model.Target,
	window source.Window,
) ([]*model.TimelineRecord, error) {
	result, err := a.client.Query(ctx, search.Params{
		Type:        "email_message",
		FilterQuery: filterQuery(target),
		Size:        window.Size,
		Sort:        "-sent_date",
	})
	if err != nil {
		return nil, fmt.Errorf("fetching emails for %s %s: %w", target.Kind, target.ID, err)
	}

	records := make([]*model.TimelineRecord, 0, len(result.Hits))
	for _, raw := range result.Hits {
		rec, err := normalize(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// filterQuery matches messages where any of the target's addresses
// appears as sender or recipient.
func filterQuery(target model.Target) string {
	clauses := make([]string, 0, len(target.EmailAddresses)*2)
	for _, addr := range target.EmailAddresses {
		clauses = append(clauses,
			search.Term("sender_email", addr),
			search.Term("received_by_email", addr),
		)
	}
	return search.Or(clauses...)
}

// hit is the wire shape of an email search hit.
type hit struct {
	ID          string   `json:"id"`
	Subject     string   `json:"subject"`
	SenderName  string   `json:"sender_name"`
	SenderEmail string   `json:"sender_email"`
	ReceivedBy  []string `json:"received_by_email"`
	Snippet     string   `json:"body_preview"`
	MessageID   string   `json:"message_id"`
	SentDate    string   `json:"sent_date"`
}

// normalize maps a raw hit into the unified record shape. The sort
// date is the message's sent timestamp.
func normalize(raw json.RawMessage) (*model.TimelineRecord, error) {
	var h hit
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("decoding email hit: %w", err)
	}

	return &model.TimelineRecord{
		Kind:     model.KindEmail,
		ID:       h.ID,
		SortDate: source.ParseTime(h.SentDate),
		Email: &model.EmailPayload{
			Subject:     h.Subject,
			SenderName:  h.SenderName,
			SenderEmail: h.SenderEmail,
			ReceivedBy:  h.ReceivedBy,
			Snippet:     h.Snippet,
			MessageID:   h.MessageID,
		},
	}, nil
}
