package model

import (
	"fmt"
	"time"
)

// ActivityKind identifies the kind of item appearing on a timeline.
type ActivityKind string

const (
	KindNote  ActivityKind = "note"
	KindCase  ActivityKind = "case"
	KindDeal  ActivityKind = "deal"
	KindEmail ActivityKind = "email"
)

// AllKinds lists every activity kind in display order.
var AllKinds = []ActivityKind{KindNote, KindCase, KindDeal, KindEmail}

// TargetKind identifies the kind of entity a timeline is built for.
type TargetKind string

const (
	TargetAccount TargetKind = "account"
	TargetContact TargetKind = "contact"
	TargetCase    TargetKind = "case"
	TargetDeal    TargetKind = "deal"
)

// Target is the entity whose timeline is being aggregated. It is
// supplied by the hosting view and read-only to the aggregator.
type Target struct {
	// ID is the entity's identifier in the CRM backend.
	ID string

	// Kind is the entity kind (account, contact, case, deal).
	Kind TargetKind

	// Name is the display name used in headers and log context.
	Name string

	// ContactIDs lists linked contact ids whose notes are folded into
	// an account's timeline.
	ContactIDs []string

	// EmailAddresses are the addresses used to scope email fetches.
	// An empty list skips the email fetch entirely.
	EmailAddresses []string

	// ParentID optionally names a parent entity (e.g. the account a
	// case belongs to) that is also excluded from the merged list.
	ParentID string
}

// NotePayload holds the note-specific fields of a timeline record.
type NotePayload struct {
	Content  string `json:"content"`
	AuthorID string `json:"author"`
	ViaID    string `json:"gfk_object_id"`
	ViaKind  string `json:"gfk_content_type"`
	IsPinned bool   `json:"is_pinned"`
}

// CasePayload holds the case-specific fields of a timeline record.
type CasePayload struct {
	Subject    string `json:"subject"`
	Status     string `json:"status"`
	Priority   string `json:"priority"`
	AssigneeID string `json:"assigned_to"`
	CreatorID  string `json:"created_by"`
}

// DealPayload holds the deal-specific fields of a timeline record.
type DealPayload struct {
	Name       string  `json:"name"`
	Stage      string  `json:"stage_name"`
	Amount     float64 `json:"amount_once"`
	AssigneeID string  `json:"assigned_to"`
	CreatorID  string  `json:"created_by"`
}

// EmailPayload holds the email-specific fields of a timeline record.
type EmailPayload struct {
	Subject     string   `json:"subject"`
	SenderName  string   `json:"sender_name"`
	SenderEmail string   `json:"sender_email"`
	ReceivedBy  []string `json:"received_by_email"`
	Snippet     string   `json:"body_preview"`
	MessageID   string   `json:"message_id"`
}

// UserSummary is the resolved display form of a user id.
type UserSummary struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Picture  string `json:"profile_picture"`
	Inactive bool   `json:"is_inactive"`
}

// Attachment describes one email attachment surfaced in a preview.
type Attachment struct {
	Filename string
	MIMEType string
	Size     int64
}

// Enrichment carries secondary display data attached to a record
// after the merge. All fields are best-effort and may stay empty.
type Enrichment struct {
	// Author is the resolved note author or case/deal creator.
	Author *UserSummary

	// Assignee is the resolved case/deal assignee.
	Assignee *UserSummary

	// ViaName is the resolved display name of the contact a note
	// reached an account timeline through.
	ViaName string

	// SubNotes are the most recent notes attached to a case or deal.
	SubNotes []*TimelineRecord

	// IsOutbound is true when an email's sender address belongs to
	// one of the tenant's own email accounts.
	IsOutbound bool

	// Preview is the plain-text body extracted from an email's raw
	// MIME source.
	Preview string

	// Attachments lists attachment metadata from the MIME source.
	Attachments []Attachment
}

// TimelineRecord is the unified representation of one timeline item.
// Exactly one of the payload pointers matching Kind is set.
type TimelineRecord struct {
	Kind     ActivityKind
	ID       string
	SortDate time.Time
	IsPinned bool

	Note  *NotePayload
	Case  *CasePayload
	Deal  *DealPayload
	Email *EmailPayload

	Enrichment Enrichment
}

// Title returns the record's primary display line.
func (r *TimelineRecord) Title() string {
	switch r.Kind {
	case KindNote:
		if r.Note != nil {
			return r.Note.Content
		}
	case KindCase:
		if r.Case != nil {
			return r.Case.Subject
		}
	case KindDeal:
		if r.Deal != nil {
			return r.Deal.Name
		}
	case KindEmail:
		if r.Email != nil {
			return r.Email.Subject
		}
	}
	return ""
}

// AuthorID returns the user id to resolve as the record's author,
// or "" when the kind carries none.
func (r *TimelineRecord) AuthorID() string {
	switch r.Kind {
	case KindNote:
		if r.Note != nil {
			return r.Note.AuthorID
		}
	case KindCase:
		if r.Case != nil {
			return r.Case.CreatorID
		}
	case KindDeal:
		if r.Deal != nil {
			return r.Deal.CreatorID
		}
	}
	return ""
}

// AssigneeID returns the user id to resolve as the record's
// assignee, or "" when the kind carries none.
func (r *TimelineRecord) AssigneeID() string {
	switch r.Kind {
	case KindCase:
		if r.Case != nil {
			return r.Case.AssigneeID
		}
	case KindDeal:
		if r.Deal != nil {
			return r.Deal.AssigneeID
		}
	}
	return ""
}

// MonthKey returns the "YYYY-M" bucket key for the record's sort
// date, e.g. "2024-3" for any instant in March 2024.
func (r *TimelineRecord) MonthKey() string {
	return fmt.Sprintf("%d-%d", r.SortDate.Year(), int(r.SortDate.Month()))
}
