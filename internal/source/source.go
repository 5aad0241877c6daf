// Package source defines the contract implemented by the per-kind
// timeline fetchers and the normalization helpers they share.
package source

import (
	"context"
	"time"

	"github.com/nhle/crm-timeline/internal/model"
)

// Window describes the fetch window computed by the pagination
// controller: every applicable fetcher requests up to Size items.
type Window struct {
	Size int
}

// Fetcher retrieves and normalizes one kind of timeline record.
// A Fetcher issues exactly one search query per Fetch call; it never
// retries, and a failed call contributes zero records to the merge.
type Fetcher interface {
	// Kind returns the activity kind this fetcher produces.
	Kind() model.ActivityKind

	// AppliesTo reports whether this fetcher runs for the target.
	AppliesTo(target model.Target) bool

	// Fetch queries the search backend and returns normalized
	// records, newest first.
	Fetch(ctx context.Context, target model.Target, window Window) ([]*model.TimelineRecord, error)
}

// timeLayouts are the timestamp formats the search backend emits.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses a backend timestamp string, returning the zero
// time when no layout matches.
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FirstTime returns the first parseable timestamp from the given
// candidates. Kinds whose natural sort field can be absent pass their
// fallback fields here so every record ends up with a sort date.
func FirstTime(candidates ...string) time.Time {
	for _, c := range candidates {
		if t := ParseTime(c); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}
