package timeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/crm-timeline/internal/model"
)

// MonthTitle renders a "YYYY-M" bucket key as a human-readable month
// header, e.g. "2024-5" becomes "May 2024". Unparseable keys render
// as-is.
func MonthTitle(key string) string {
	parts := strings.SplitN(key, "-", 2)
	if len(parts) != 2 {
		return key
	}
	year, yearErr := strconv.Atoi(parts[0])
	month, monthErr := strconv.Atoi(parts[1])
	if yearErr != nil || monthErr != nil || month < 1 || month > 12 {
		return key
	}
	return fmt.Sprintf("%s %d", time.Month(month), year)
}

// Bucket groups the non-pinned records of one calendar month.
type Bucket struct {
	// Key is the "YYYY-M" month key, e.g. "2024-3" for March 2024.
	Key string

	// Visible reports whether the bucket passes the active kind
	// filter. An emptied bucket keeps its entry with Visible false so
	// month headers don't flicker on local removals.
	Visible bool

	// Items holds the bucket's records, sort date descending.
	Items []*model.TimelineRecord
}

// State is the aggregator's exposed view model. Each load replaces
// the whole state; nothing is patched incrementally.
type State struct {
	// Pinned holds pinned records, sort date descending. Filtering
	// never hides pinned records.
	Pinned []*model.TimelineRecord

	// Buckets maps month keys to their bucket.
	Buckets map[string]*Bucket

	// BucketOrder lists month keys in insertion order, which is
	// recency order because buckets are created during a single pass
	// over the descending-sorted records.
	BucketOrder []string

	// TotalItems counts every included record, pinned and bucketed.
	// Records excluded as self-referential are not counted.
	TotalItems int

	// ActiveFilter is the selected kind filter; "" shows all kinds.
	ActiveFilter model.ActivityKind

	// TypeVisibility reports, per kind, whether at least one record
	// of that kind was included. Drives which filter tabs are shown.
	TypeVisibility map[model.ActivityKind]bool

	// KindCounts counts included records per kind for tab labels.
	KindCounts map[model.ActivityKind]int
}

// StateFromRecords builds a state from an already-sorted record
// list, used to render a locally cached snapshot before the first
// live load settles.
func StateFromRecords(records []*model.TimelineRecord, filter model.ActivityKind) *State {
	st := newState(filter)
	for _, rec := range records {
		st.add(rec)
	}
	st.applyFilter(filter)
	return st
}

// newState creates an empty state carrying over the active filter.
func newState(filter model.ActivityKind) *State {
	return &State{
		Buckets:        make(map[string]*Bucket),
		ActiveFilter:   filter,
		TypeVisibility: make(map[model.ActivityKind]bool),
		KindCounts:     make(map[model.ActivityKind]int),
	}
}

// add partitions one record into the pinned list or its month
// bucket and updates the counters. Every record lands in exactly one
// of the two.
func (s *State) add(rec *model.TimelineRecord) {
	s.TypeVisibility[rec.Kind] = true
	s.KindCounts[rec.Kind]++
	s.TotalItems++

	if rec.IsPinned {
		s.Pinned = append(s.Pinned, rec)
		return
	}

	bucket := s.bucketFor(rec.MonthKey())
	bucket.Items = append(bucket.Items, rec)
}

// bucketFor returns the bucket for a month key, creating it visible
// on first use.
func (s *State) bucketFor(key string) *Bucket {
	if bucket, ok := s.Buckets[key]; ok {
		return bucket
	}
	bucket := &Bucket{Key: key, Visible: true}
	s.Buckets[key] = bucket
	s.BucketOrder = append(s.BucketOrder, key)
	return bucket
}

// applyFilter recomputes bucket visibility for the given kind
// filter: a bucket stays visible iff it contains at least one
// matching record (or the filter is empty).
func (s *State) applyFilter(kind model.ActivityKind) {
	s.ActiveFilter = kind

	for _, bucket := range s.Buckets {
		if len(bucket.Items) == 0 {
			bucket.Visible = false
			continue
		}
		if kind == "" {
			bucket.Visible = true
			continue
		}

		bucket.Visible = false
		for _, rec := range bucket.Items {
			if rec.Kind == kind {
				bucket.Visible = true
				break
			}
		}
	}
}

// remove deletes a record from the pinned list or from its month
// bucket, located via the record's own sort date. An emptied bucket
// turns invisible but is retained. Reports whether the record was
// found.
func (s *State) remove(rec *model.TimelineRecord) bool {
	if rec.IsPinned {
		for i, p := range s.Pinned {
			if p.ID == rec.ID && p.Kind == rec.Kind {
				s.Pinned = append(s.Pinned[:i], s.Pinned[i+1:]...)
				s.dropCounts(rec)
				return true
			}
		}
		return false
	}

	bucket, ok := s.Buckets[rec.MonthKey()]
	if !ok {
		return false
	}
	for i, item := range bucket.Items {
		if item.ID == rec.ID && item.Kind == rec.Kind {
			bucket.Items = append(bucket.Items[:i], bucket.Items[i+1:]...)
			if len(bucket.Items) == 0 {
				bucket.Visible = false
			}
			s.dropCounts(rec)
			return true
		}
	}
	return false
}

// dropCounts rolls the counters back for one removed record.
func (s *State) dropCounts(rec *model.TimelineRecord) {
	s.TotalItems--
	if s.KindCounts[rec.Kind] > 0 {
		s.KindCounts[rec.Kind]--
	}
	if s.KindCounts[rec.Kind] == 0 {
		s.TypeVisibility[rec.Kind] = false
	}
}

// OrderedBuckets returns the buckets in recency order.
func (s *State) OrderedBuckets() []*Bucket {
	buckets := make([]*Bucket, 0, len(s.BucketOrder))
	for _, key := range s.BucketOrder {
		buckets = append(buckets, s.Buckets[key])
	}
	return buckets
}

// snapshot returns a copy of the state fully detached from the live
// state: collections are rebuilt and every record is copied by
// value, so enrichment writes to the aggregator-owned records never
// touch what a reader holds. Readers pick up enrichment by taking a
// fresh snapshot on the next update notification.
func (s *State) snapshot() *State {
	cp := &State{
		Pinned:         copyRecords(s.Pinned),
		Buckets:        make(map[string]*Bucket, len(s.Buckets)),
		BucketOrder:    append([]string(nil), s.BucketOrder...),
		TotalItems:     s.TotalItems,
		ActiveFilter:   s.ActiveFilter,
		TypeVisibility: make(map[model.ActivityKind]bool, len(s.TypeVisibility)),
		KindCounts:     make(map[model.ActivityKind]int, len(s.KindCounts)),
	}
	for key, bucket := range s.Buckets {
		cp.Buckets[key] = &Bucket{
			Key:     bucket.Key,
			Visible: bucket.Visible,
			Items:   copyRecords(bucket.Items),
		}
	}
	for kind, v := range s.TypeVisibility {
		cp.TypeVisibility[kind] = v
	}
	for kind, n := range s.KindCounts {
		cp.KindCounts[kind] = n
	}
	return cp
}

// copyRecords copies records by value. Enrichment only ever assigns
// whole fields on the originals, so a struct copy taken under the
// aggregator lock is a consistent read.
func copyRecords(records []*model.TimelineRecord) []*model.TimelineRecord {
	out := make([]*model.TimelineRecord, len(records))
	for i, rec := range records {
		cp := *rec
		out[i] = &cp
	}
	return out
}
