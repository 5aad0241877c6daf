package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonthKey(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{"march", time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC), "2024-3"},
		{"december", time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), "2023-12"},
		{"single_digit_month", time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC), "2024-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &TimelineRecord{SortDate: tt.date}
			assert.Equal(t, tt.want, rec.MonthKey())
		})
	}
}

func TestTitlePerKind(t *testing.T) {
	note := &TimelineRecord{Kind: KindNote, Note: &NotePayload{Content: "call back"}}
	assert.Equal(t, "call back", note.Title())

	c := &TimelineRecord{Kind: KindCase, Case: &CasePayload{Subject: "login broken"}}
	assert.Equal(t, "login broken", c.Title())

	missingPayload := &TimelineRecord{Kind: KindDeal}
	assert.Equal(t, "", missingPayload.Title())
}

func TestAuthorAndAssigneeIDs(t *testing.T) {
	c := &TimelineRecord{Kind: KindCase, Case: &CasePayload{CreatorID: "u1", AssigneeID: "u2"}}
	assert.Equal(t, "u1", c.AuthorID())
	assert.Equal(t, "u2", c.AssigneeID())

	email := &TimelineRecord{Kind: KindEmail, Email: &EmailPayload{}}
	assert.Equal(t, "", email.AuthorID())
	assert.Equal(t, "", email.AssigneeID())
}
