// Package note fetches note records for a timeline target.
package note

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nhle/crm-timeline/internal/model"
	"github.com/nhle/crm-timeline/internal/search"
	"github.com/nhle/crm-timeline/internal/source"
)

// Adapter implements source.Fetcher for notes.
type Adapter struct {
	client search.Client
}

// NewAdapter creates a note fetcher backed by the given search
// client.
func NewAdapter(client search.Client) *Adapter {
	return &Adapter{client: client}
}

// Kind returns the note activity kind.
func (a *Adapter) Kind() model.ActivityKind {
	return model.KindNote
}

// AppliesTo always reports true: every target kind carries notes.
func (a *Adapter) AppliesTo(model.Target) bool {
	return true
}

// Fetch retrieves the newest notes attached to the target. For an
// account with linked contacts a single compound query covers the
// account and all of its contacts, so notes logged against a contact
// still surface on the account timeline.
func (a *Adapter) Fetch(
	ctx context.Context,
	target model.Target,
	window source.Window,
) ([]*model.TimelineRecord, error) {
	result, err := a.client.Query(ctx, search.Params{
		Type:        "note",
		FilterQuery: filterQuery(target),
		Size:        window.Size,
		Sort:        "-date",
	})
	if err != nil {
		return nil, fmt.Errorf("fetching notes for %s %s: %w", target.Kind, target.ID, err)
	}

	records := make([]*model.TimelineRecord, 0, len(result.Hits))
	for _, raw := range result.Hits {
		rec, err := Normalize(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// filterQuery builds the note filter for the target, combining the
// account clause with one OR group over its linked contacts.
func filterQuery(target model.Target) string {
	own := search.And(
		search.Term("gfk_content_type", string(target.Kind)),
		search.Term("gfk_object_id", target.ID),
	)

	if target.Kind != model.TargetAccount || len(target.ContactIDs) == 0 {
		return own
	}

	contactIDs := make([]string, 0, len(target.ContactIDs))
	for _, id := range target.ContactIDs {
		contactIDs = append(contactIDs, search.Term("gfk_object_id", id))
	}

	viaContacts := search.And(
		search.Term("gfk_content_type", "contact"),
		search.Group(search.Or(contactIDs...)),
	)

	return search.Or(search.Group(own), search.Group(viaContacts))
}

// hit is the wire shape of a note search hit.
type hit struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	Author      string `json:"author"`
	Date        string `json:"date"`
	Modified    string `json:"modified"`
	IsPinned    bool   `json:"is_pinned"`
	ContentType string `json:"gfk_content_type"`
	ObjectID    string `json:"gfk_object_id"`
}

// Normalize maps a raw hit into the unified record shape. The sort
// date is the note's creation date, falling back to its modification
// date when the backend omits it.
func Normalize(raw json.RawMessage) (*model.TimelineRecord, error) {
	var h hit
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("decoding note hit: %w", err)
	}

	return &model.TimelineRecord{
		Kind:     model.KindNote,
		ID:       h.ID,
		SortDate: source.FirstTime(h.Date, h.Modified),
		IsPinned: h.IsPinned,
		Note: &model.NotePayload{
			Content:  h.Content,
			AuthorID: h.Author,
			ViaID:    h.ObjectID,
			ViaKind:  h.ContentType,
			IsPinned: h.IsPinned,
		},
	}, nil
}
