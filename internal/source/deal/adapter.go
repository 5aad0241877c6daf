// Package deal fetches deal records for a timeline target.
package deal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nhle/crm-timeline/internal/model"
	"github.com/nhle/crm-timeline/internal/search"
	"github.com/nhle/crm-timeline/internal/source"
)

// Adapter implements source.Fetcher for deals.
type Adapter struct {
	client search.Client
}

// NewAdapter creates a deal fetcher backed by the given search
// client.
func NewAdapter(client search.Client) *Adapter {
	return &Adapter{client: client}
}

// Kind returns the deal activity kind.
func (a *Adapter) Kind() model.ActivityKind {
	return model.KindDeal
}

// AppliesTo reports true for account and contact targets. A deal's
// own timeline never recurses into other deals.
func (a *Adapter) AppliesTo(target model.Target) bool {
	return target.Kind == model.TargetAccount || target.Kind == model.TargetContact
}

// Fetch retrieves the most recently modified deals linked to the
// target.
func (a *Adapter) Fetch(
	ctx context.Context,
	target model.Target,
	window source.Window,
) ([]*model.TimelineRecord, error) {
	result, err := a.client.Query(ctx, search.Params{
		Type:        "deal",
		FilterQuery: search.Term(string(target.Kind), target.ID),
		Size:        window.Size,
		Sort:        "-modified",
	})
	if err != nil {
		return nil, fmt.Errorf("fetching deals for %s %s: %w", target.Kind, target.ID, err)
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

// hit is the wire shape of a deal search hit.
type hit struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	StageName  string  `json:"stage_name"`
	AmountOnce float64 `json:"amount_once"`
	AssignedTo string  `json:"assigned_to"`
	CreatedBy  string  `json:"created_by"`
	Created    string  `json:"created"`
	Modified   string  `json:"modified"`
}

// normalize maps a raw hit into the unified record shape. The sort
// date is the deal's last modification, falling back to its creation
// date.
func normalize(raw json.RawMessage) (*model.TimelineRecord, error) {
	var h hit
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("decoding deal hit: %w", err)
	}

	return &model.TimelineRecord{
		Kind:     model.KindDeal,
		ID:       h.ID,
		SortDate: source.FirstTime(h.Modified, h.Created),
		Deal: &model.DealPayload{
			Name:       h.Name,
			Stage:      h.StageName,
			Amount:     h.AmountOnce,
			AssigneeID: h.AssignedTo,
			CreatorID:  h.CreatedBy,
		},
	}, nil
}
