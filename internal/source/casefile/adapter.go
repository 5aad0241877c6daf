// Package casefile fetches support-case records for a timeline
// target.
package casefile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nhle/crm-timeline/internal/model"
	"github.com/nhle/crm-timeline/internal/search"
	"github.com/nhle/crm-timeline/internal/source"
)

// Adapter implements source.Fetcher for cases.
type Adapter struct {
	client search.Client
}

// NewAdapter creates a case fetcher backed by the given search
// client.
func NewAdapter(client search.Client) *Adapter {
	return &Adapter{client: client}
}

// Kind returns the case activity kind.
func (a *Adapter) Kind() model.ActivityKind {
	return model.KindCase
}

// AppliesTo reports true for account and contact targets. A case's
// own timeline never recurses into other cases.
func (a *Adapter) AppliesTo(target model.Target) bool {
	return target.Kind == model.TargetAccount || target.Kind == model.TargetContact
}

// Fetch retrieves the most recently modified cases linked to the
// target.
func (a *Adapter) Fetch(
	ctx context.Context,
	target model.Target,
	window source.Window,
) ([]*model.TimelineRecord, error) {
	result, err := a.client.Query(ctx, search.Params{
		Type:        "case",
		FilterQuery: search.Term(string(target.Kind), target.ID),
		Size:        window.Size,
		Sort:        "-modified",
	})
	if err != nil {
		return nil, fmt.Errorf("fetching cases for %s %s: %w", target.Kind, target.ID, err)
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

// hit is the wire shape of a case search hit.
type hit struct {
	ID         string `json:"id"`
	Subject    string `json:"subject"`
	Status     string `json:"status"`
	Priority   string `json:"priority"`
	AssignedTo string `json:"assigned_to"`
	CreatedBy  string `json:"created_by"`
	Created    string `json:"created"`
	Modified   string `json:"modified"`
}

// normalize maps a raw hit into the unified record shape. The sort
// date is the case's last modification, falling back to its creation
// date.
func normalize(raw json.RawMessage) (*model.TimelineRecord, error) {
	var h hit
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("decoding case hit: %w", err)
	}

	return &model.TimelineRecord{
		Kind:     model.KindCase,
		ID:       h.ID,
		SortDate: source.FirstTime(h.Modified, h.Created),
		Case: &model.CasePayload{
			Subject:    h.Subject,
			Status:     h.Status,
			Priority:   h.Priority,
			AssigneeID: h.AssignedTo,
			CreatorID:  h.CreatedBy,
		},
	}, nil
}
