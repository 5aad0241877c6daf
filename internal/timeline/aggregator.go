// Package timeline implements the cross-entity activity aggregation
// engine: concurrent per-kind fetches joined by a settle-all
// barrier, a stable descending merge, pinned/month-bucket
// partitioning, kind filtering, and mutation-driven reloads.
package timeline

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nhle/crm-timeline/internal/enrich"
	"github.com/nhle/crm-timeline/internal/model"
	"github.com/nhle/crm-timeline/internal/notes"
	"github.com/nhle/crm-timeline/internal/source"
)

// Aggregator builds and maintains the unified timeline of one
// target. All state mutation happens under its mutex; asynchronous
// continuations carry the load generation they were started for and
// discard themselves when a newer load has superseded them.
type Aggregator struct {
	mu         sync.Mutex
	target     model.Target
	fetchers   []source.Fetcher
	enricher   *enrich.Enricher
	writer     notes.Writer
	pager      *Pager
	generation int64
	state      *State
	updates    chan struct{}
	log        zerolog.Logger
}

// New creates an aggregator for the given target. The enricher and
// writer may be nil, disabling enrichment and mutations.
func New(
	target model.Target,
	fetchers []source.Fetcher,
	enricher *enrich.Enricher,
	writer notes.Writer,
	pageSize int,
	log zerolog.Logger,
) *Aggregator {
	return &Aggregator{
		target:   target,
		fetchers: fetchers,
		enricher: enricher,
		writer:   writer,
		pager:    NewPager(pageSize),
		state:    newState(""),
		updates:  make(chan struct{}, 1),
		log:      log.With().Str("target_kind", string(target.Kind)).Str("target_id", target.ID).Logger(),
	}
}

// Target returns the target this aggregator was built for.
func (a *Aggregator) Target() model.Target {
	return a.target
}

// State returns a snapshot of the current timeline state. Consumers
// take a fresh snapshot after every update notification.
func (a *Aggregator) State() *State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.snapshot()
}

// Updates returns a channel that receives a signal whenever the
// exposed state changes, including when enrichment lands on an
// already-rendered record.
func (a *Aggregator) Updates() <-chan struct{} {
	return a.updates
}

// Load runs one full aggregation cycle with the current fetch
// window: fan out every applicable fetch, wait for all of them to
// settle, then merge, sort, and partition into a fresh state. A
// failed fetch contributes nothing; the rest still merge.
func (a *Aggregator) Load(ctx context.Context) {
	a.mu.Lock()
	a.generation++
	gen := a.generation
	target := a.target
	window := source.Window{Size: a.pager.RequestWindow()}
	filter := a.state.ActiveFilter
	a.mu.Unlock()

	var applicable []source.Fetcher
	for _, f := range a.fetchers {
		if f.AppliesTo(target) {
			applicable = append(applicable, f)
		}
	}

	results := make([][]*model.TimelineRecord, len(applicable))
	errs := make([]error, len(applicable))

	// Join barrier: the merge must not start until every issued
	// fetch has settled, success or failure.
	var wg sync.WaitGroup
	for i, f := range applicable {
		wg.Add(1)
		go func(i int, f source.Fetcher) {
			defer wg.Done()
			results[i], errs[i] = f.Fetch(ctx, target, window)
		}(i, f)
	}
	wg.Wait()

	var working []*model.TimelineRecord
	for i, f := range applicable {
		if errs[i] != nil {
			a.log.Warn().Err(errs[i]).Str("kind", string(f.Kind())).Msg("fetch failed; kind excluded from this load")
			continue
		}
		working = append(working, results[i]...)
	}

	sort.SliceStable(working, func(i, j int) bool {
		return working[i].SortDate.After(working[j].SortDate)
	})

	st := newState(filter)
	var included []*model.TimelineRecord
	for _, rec := range working {
		if a.excluded(rec, target) {
			continue
		}
		st.add(rec)
		included = append(included, rec)
	}
	st.applyFilter(filter)

	a.mu.Lock()
	if a.generation != gen {
		// A newer load superseded this one while it was in flight.
		a.mu.Unlock()
		return
	}
	a.state = st
	a.mu.Unlock()
	a.notify()

	if a.enricher != nil {
		a.enricher.Run(ctx, included, a.applier(gen))
	}
}

// excluded reports whether a record refers to the target itself (or
// its parent) and must not appear on its own timeline.
func (a *Aggregator) excluded(rec *model.TimelineRecord, target model.Target) bool {
	if rec.ID == target.ID {
		return true
	}
	return target.ParentID != "" && rec.ID == target.ParentID
}

// applier returns the enrichment mutation gate for one load
// generation: mutations apply under the aggregator lock and are
// dropped once a newer load owns the state.
func (a *Aggregator) applier(gen int64) enrich.Apply {
	return func(mutate func()) {
		a.mu.Lock()
		if a.generation != gen {
			a.mu.Unlock()
			return
		}
		mutate()
		a.mu.Unlock()
		a.notify()
	}
}

// notify signals state consumers without blocking; a pending signal
// already covers the change.
func (a *Aggregator) notify() {
	select {
	case a.updates <- struct{}{}:
	default:
	}
}

// LoadMore grows the fetch window by one page and reloads.
func (a *Aggregator) LoadMore(ctx context.Context) {
	a.mu.Lock()
	a.pager.Advance()
	a.mu.Unlock()
	a.Load(ctx)
}

// Reload re-fetches the current window without growing it.
func (a *Aggregator) Reload(ctx context.Context) {
	a.Load(ctx)
}

// mutationReload re-fetches after a write so the mutated state shows
// up without growing the visible window: the pager steps back one
// page and LoadMore steps it forward again.
func (a *Aggregator) mutationReload(ctx context.Context) {
	a.mu.Lock()
	a.pager.Retreat()
	a.mu.Unlock()
	a.LoadMore(ctx)
}

// FilterKind sets the active kind filter ("" shows all) and
// recomputes bucket visibility. Pinned records are never hidden.
func (a *Aggregator) FilterKind(kind model.ActivityKind) {
	a.mu.Lock()
	a.state.applyFilter(kind)
	a.mu.Unlock()
	a.notify()
}

// AddNote submits a new note against the target, then reloads so the
// note appears without duplicating already-loaded records. The write
// error surfaces to the caller; nothing is applied optimistically.
func (a *Aggregator) AddNote(ctx context.Context, content string, pinned bool) error {
	if a.writer == nil {
		return nil
	}

	_, err := a.writer.Create(ctx, notes.NewNote{
		Content:    content,
		TargetID:   a.target.ID,
		TargetKind: a.target.Kind,
		IsPinned:   pinned,
	})
	if err != nil {
		return err
	}

	a.mutationReload(ctx)
	return nil
}

// PinNote updates a note's pin state server-side, then reloads the
// current view for a full state recompute.
func (a *Aggregator) PinNote(ctx context.Context, rec *model.TimelineRecord, pinned bool) error {
	if a.writer == nil || rec.Kind != model.KindNote {
		return nil
	}

	if err := a.writer.SetPinned(ctx, rec.ID, pinned); err != nil {
		return err
	}

	a.mutationReload(ctx)
	return nil
}

// DeleteNote deletes a note server-side and, only after the write
// succeeded, removes it from the exposed state.
func (a *Aggregator) DeleteNote(ctx context.Context, rec *model.TimelineRecord) error {
	if a.writer == nil || rec.Kind != model.KindNote {
		return nil
	}

	if err := a.writer.Delete(ctx, rec.ID); err != nil {
		return err
	}

	a.RemoveFromList(rec)
	return nil
}

// RemoveFromList removes a record from the exposed state without
// touching the backend. The hosting UI calls this only after a
// confirmed successful delete.
func (a *Aggregator) RemoveFromList(rec *model.TimelineRecord) {
	a.mu.Lock()
	removed := a.state.remove(rec)
	a.mu.Unlock()
	if removed {
		a.notify()
	}
}
