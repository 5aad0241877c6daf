// Package app hosts the terminal UI around the timeline aggregator:
// it renders the exposed timeline state and translates key presses
// into aggregator commands.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/crm-timeline/internal/model"
	"github.com/nhle/crm-timeline/internal/store"
	"github.com/nhle/crm-timeline/internal/theme"
	"github.com/nhle/crm-timeline/internal/timeline"
	"github.com/nhle/crm-timeline/internal/ui"
	"github.com/nhle/crm-timeline/internal/ui/noteform"
	"github.com/nhle/crm-timeline/internal/ui/timelineview"
)

// ViewState represents the current active view.
type ViewState int

const (
	ViewTimeline ViewState = iota
	ViewNoteForm
)

// filterCycle is the tab order: all kinds first, then each kind.
var filterCycle = append([]model.ActivityKind{""}, model.AllKinds...)

// snapshotMsg carries the locally cached window loaded at startup.
type snapshotMsg struct {
	records []*model.TimelineRecord
}

// loadDoneMsg signals that a full aggregation cycle finished.
type loadDoneMsg struct{}

// timelineUpdatedMsg signals that the exposed state changed.
type timelineUpdatedMsg struct{}

// mutationErrMsg carries a user-visible mutation failure.
type mutationErrMsg struct {
	err error
}

// Model is the root Bubble Tea model.
type Model struct {
	currentView ViewState
	layout      ui.Layout
	aggregator  *timeline.Aggregator
	snapshots   store.Store
	keys        *KeyMap
	timeline    timelineview.Model
	noteForm    noteform.Model
	filterIdx   int
	loading     bool
	errText     string
	ready       bool
}

// New creates the root application model. The snapshot store may be
// nil, disabling offline read-through.
func New(agg *timeline.Aggregator, snapshots store.Store) Model {
	return Model{
		currentView: ViewTimeline,
		aggregator:  agg,
		snapshots:   snapshots,
		keys:        DefaultKeyMap(),
		timeline:    timelineview.New(80, 24),
		noteForm:    noteform.New(80, 24),
		loading:     true,
	}
}

// Init renders the cached snapshot, kicks off the first load, and
// subscribes to aggregator updates.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.timeline.Init(),
		m.loadSnapshot(),
		m.runLoad(func(ctx context.Context) { m.aggregator.Load(ctx) }),
		m.waitForUpdate(),
	)
}

// loadSnapshot reads the locally cached window for the target so the
// view has content before the first network load settles.
func (m Model) loadSnapshot() tea.Cmd {
	if m.snapshots == nil {
		return nil
	}
	target := m.aggregator.Target()
	return func() tea.Msg {
		records, err := m.snapshots.GetSnapshot(context.Background(), target.Kind, target.ID)
		if err != nil || len(records) == 0 {
			return nil
		}
		return snapshotMsg{records: records}
	}
}

// runLoad executes an aggregation cycle off the UI loop.
func (m Model) runLoad(load func(context.Context)) tea.Cmd {
	return func() tea.Msg {
		load(context.Background())
		return loadDoneMsg{}
	}
}

// waitForUpdate waits for the next aggregator state change. It is
// re-issued after every received update to keep the subscription
// alive, the same way a poller subscription is.
func (m Model) waitForUpdate() tea.Cmd {
	updates := m.aggregator.Updates()
	return func() tea.Msg {
		<-updates
		return timelineUpdatedMsg{}
	}
}

// persistSnapshot writes the current merged window back to the local
// cache.
func (m Model) persistSnapshot() tea.Cmd {
	if m.snapshots == nil {
		return nil
	}
	st := m.aggregator.State()
	target := m.aggregator.Target()
	return func() tea.Msg {
		records := make([]*model.TimelineRecord, 0, st.TotalItems)
		records = append(records, st.Pinned...)
		for _, bucket := range st.OrderedBuckets() {
			records = append(records, bucket.Items...)
		}
		_ = m.snapshots.ReplaceSnapshot(context.Background(), target, records)
		return nil
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.timeline.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
		m.noteForm.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
		return m, nil

	case snapshotMsg:
		// Only pre-render the cache while the first load is pending.
		if m.loading && m.aggregator.State().TotalItems == 0 {
			m.timeline.SetState(stateFromSnapshot(msg.records))
		}
		return m, nil

	case loadDoneMsg:
		m.loading = false
		m.timeline.SetLoading(false)
		m.timeline.SetState(m.aggregator.State())
		return m, m.persistSnapshot()

	case timelineUpdatedMsg:
		m.timeline.SetState(m.aggregator.State())
		return m, m.waitForUpdate()

	case noteform.NoteSubmittedMsg:
		m.currentView = ViewTimeline
		agg := m.aggregator
		return m, func() tea.Msg {
			if err := agg.AddNote(context.Background(), msg.Content, msg.Pinned); err != nil {
				return mutationErrMsg{err: err}
			}
			return loadDoneMsg{}
		}

	case noteform.NoteCancelMsg:
		m.currentView = ViewTimeline
		return m, nil

	case mutationErrMsg:
		m.errText = msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		if m.currentView == ViewNoteForm {
			var cmd tea.Cmd
			m.noteForm, cmd = m.noteForm.Update(msg)
			return m, cmd
		}
		return m.handleTimelineKeys(msg)
	}

	var cmd tea.Cmd
	switch m.currentView {
	case ViewNoteForm:
		m.noteForm, cmd = m.noteForm.Update(msg)
	default:
		m.timeline, cmd = m.timeline.Update(msg)
	}
	return m, cmd
}

// handleTimelineKeys processes key input on the timeline view.
func (m Model) handleTimelineKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		m.errText = ""
		return m, m.runLoad(m.aggregator.Reload)

	case key.Matches(msg, m.keys.LoadMore):
		m.loading = true
		m.errText = ""
		return m, m.runLoad(m.aggregator.LoadMore)

	case key.Matches(msg, m.keys.NewNote):
		m.currentView = ViewNoteForm
		return m, m.noteForm.Start()

	case key.Matches(msg, m.keys.Filter):
		m.filterIdx = m.nextFilterIdx()
		m.aggregator.FilterKind(filterCycle[m.filterIdx])
		m.timeline.SetState(m.aggregator.State())
		return m, nil
	}

	var cmd tea.Cmd
	m.timeline, cmd = m.timeline.Update(msg)
	return m, cmd
}

// nextFilterIdx advances the tab cycle to the next selectable entry,
// skipping kinds the currently loaded slice has no records of. "All"
// is always selectable.
func (m Model) nextFilterIdx() int {
	st := m.aggregator.State()
	for step := 1; step <= len(filterCycle); step++ {
		idx := (m.filterIdx + step) % len(filterCycle)
		kind := filterCycle[idx]
		if kind == "" || st.TypeVisibility[kind] {
			return idx
		}
	}
	return 0
}

// View renders the application.
func (m Model) View() string {
	if !m.ready {
		return "initializing..."
	}

	target := m.aggregator.Target()
	title := "Timeline: " + target.Name
	if target.Name == "" {
		title = "Timeline: " + string(target.Kind) + " " + target.ID
	}

	status := ""
	if m.loading {
		status = "syncing..."
	}
	header := m.layout.RenderHeader(title, status)

	var content string
	if m.currentView == ViewNoteForm {
		content = m.noteForm.View()
	} else {
		content = m.timeline.View()
	}

	hints := "q quit · tab filter · n note · m more · r reload"
	if m.errText != "" {
		hints = theme.ErrorStyle.Render("error: " + m.errText)
	}
	statusBar := m.layout.RenderStatusBar(hints)

	return m.layout.RenderWithFrame(header, m.renderTabs(), content, statusBar)
}

// renderTabs renders the filter tab bar with per-kind counts. Tabs
// for kinds with no records stay hidden.
func (m Model) renderTabs() string {
	st := m.aggregator.State()

	var tabs []string
	for i, kind := range filterCycle {
		label := "All"
		if kind != "" {
			if !st.TypeVisibility[kind] {
				continue
			}
			label = fmt.Sprintf("%ss (%d)", kind, st.KindCounts[kind])
		}

		style := theme.TabStyle
		if i == m.filterIdx {
			style = theme.ActiveTabStyle
		}
		tabs = append(tabs, style.Render(label))
	}

	return strings.Join(tabs, " ")
}

// stateFromSnapshot rebuilds a renderable state from cached records.
func stateFromSnapshot(records []*model.TimelineRecord) *timeline.State {
	return timeline.StateFromRecords(records, "")
}
