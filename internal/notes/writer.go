// Package notes wraps the note write API used by the timeline's
// mutation commands.
package notes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/crm-timeline/internal/model"
	"github.com/nhle/crm-timeline/internal/rest"
)

// NewNote is the payload for creating a note against a target.
type NewNote struct {
	Content    string
	TargetID   string
	TargetKind model.TargetKind
	IsPinned   bool
}

// Writer is the note mutation API. Unlike fetch and enrichment
// errors, writer errors surface to the caller so the UI can notify
// the user.
type Writer interface {
	Create(ctx context.Context, note NewNote) (*model.TimelineRecord, error)
	SetPinned(ctx context.Context, id string, pinned bool) error
	Delete(ctx context.Context, id string) error
}

// HTTPWriter implements Writer against the REST backend.
type HTTPWriter struct {
	rc *rest.Client
}

// NewHTTPWriter creates a note writer on top of the shared REST
// client.
func NewHTTPWriter(rc *rest.Client) *HTTPWriter {
	return &HTTPWriter{rc: rc}
}

// createRequest is the wire form of a note create call.
type createRequest struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	ContentType string `json:"gfk_content_type"`
	ObjectID    string `json:"gfk_object_id"`
	IsPinned    bool   `json:"is_pinned"`
}

// createResponse echoes the persisted note.
type createResponse struct {
	ID       string    `json:"id"`
	Content  string    `json:"content"`
	Author   string    `json:"author"`
	Date     time.Time `json:"date"`
	IsPinned bool      `json:"is_pinned"`
}

// Create submits a new note. The id is generated client-side so the
// caller can correlate the record before the next reload.
func (w *HTTPWriter) Create(ctx context.Context, note NewNote) (*model.TimelineRecord, error) {
	req := createRequest{
		ID:          uuid.NewString(),
		Content:     note.Content,
		ContentType: string(note.TargetKind),
		ObjectID:    note.TargetID,
		IsPinned:    note.IsPinned,
	}

	var resp createResponse
	if err := w.rc.Post(ctx, "/api/notes/", req, &resp); err != nil {
		return nil, fmt.Errorf("creating note: %w", err)
	}

	return &model.TimelineRecord{
		Kind:     model.KindNote,
		ID:       resp.ID,
		SortDate: resp.Date,
		IsPinned: resp.IsPinned,
		Note: &model.NotePayload{
			Content:  resp.Content,
			AuthorID: resp.Author,
			ViaID:    note.TargetID,
			ViaKind:  string(note.TargetKind),
			IsPinned: resp.IsPinned,
		},
	}, nil
}

// SetPinned updates a note's pin flag.
func (w *HTTPWriter) SetPinned(ctx context.Context, id string, pinned bool) error {
	body := map[string]bool{"is_pinned": pinned}
	if err := w.rc.Patch(ctx, "/api/notes/"+id+"/", body, nil); err != nil {
		return fmt.Errorf("updating pin state of note %s: %w", id, err)
	}
	return nil
}

// Delete removes a note.
func (w *HTTPWriter) Delete(ctx context.Context, id string) error {
	if err := w.rc.Delete(ctx, "/api/notes/"+id+"/"); err != nil {
		return fmt.Errorf("deleting note %s: %w", id, err)
	}
	return nil
}
