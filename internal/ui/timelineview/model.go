// Package timelineview renders the merged timeline state: pinned
// records on top, then month sections honoring the active filter.
package timelineview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/nhle/crm-timeline/internal/model"
	"github.com/nhle/crm-timeline/internal/theme"
	"github.com/nhle/crm-timeline/internal/timeline"
)

// Model is the timeline content view.
type Model struct {
	viewport viewport.Model
	spinner  spinner.Model
	state    *timeline.State
	loading  bool
	width    int
	height   int
}

// New creates a timeline view of the given size.
func New(width, height int) Model {
	vp := viewport.New(width, height)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		viewport: vp,
		spinner:  sp,
		loading:  true,
		width:    width,
		height:   height,
	}
}

// Init starts the loading spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// SetSize resizes the view.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.refresh()
}

// SetState replaces the rendered timeline state.
func (m *Model) SetState(st *timeline.State) {
	m.state = st
	m.loading = false
	m.refresh()
}

// SetLoading toggles the loading indicator.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// Update handles scrolling and spinner ticks.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	if _, ok := msg.(spinner.TickMsg); ok && m.loading {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the timeline content.
func (m Model) View() string {
	if m.loading && m.state == nil {
		return lipgloss.NewStyle().Padding(1, 2).Render(
			m.spinner.View() + " loading timeline...",
		)
	}
	return m.viewport.View()
}

// refresh re-renders the state into the viewport.
func (m *Model) refresh() {
	if m.state == nil {
		return
	}
	m.viewport.SetContent(renderState(m.state, m.width))
}

// renderState builds the full scrollable timeline text.
func renderState(st *timeline.State, width int) string {
	var b strings.Builder

	if st.TotalItems == 0 {
		return lipgloss.NewStyle().Padding(1, 2).
			Foreground(theme.ColorGray).
			Render("No activity yet.")
	}

	if len(st.Pinned) > 0 {
		b.WriteString(theme.PinnedHeaderStyle.Render("📌 Pinned"))
		b.WriteString("\n")
		for _, rec := range st.Pinned {
			writeRecord(&b, rec, width)
		}
	}

	for _, bucket := range st.OrderedBuckets() {
		if !bucket.Visible {
			continue
		}
		b.WriteString(theme.MonthHeaderStyle.Render(timeline.MonthTitle(bucket.Key)))
		b.WriteString("\n")
		for _, rec := range bucket.Items {
			if st.ActiveFilter != "" && rec.Kind != st.ActiveFilter {
				continue
			}
			writeRecord(&b, rec, width)
		}
	}

	return b.String()
}

// writeRecord renders one timeline entry with its secondary line.
func writeRecord(b *strings.Builder, rec *model.TimelineRecord, width int) {
	label := theme.KindStyle(rec.Kind).Render("[" + string(rec.Kind) + "]")
	date := rec.SortDate.Format("Jan 02 15:04")

	title := firstLine(rec.Title())
	if maxLen := width - 24; maxLen > 0 {
		title = runewidth.Truncate(title, maxLen, "…")
	}

	b.WriteString(theme.ItemStyle.Render(label + " " + date + "  " + title))
	b.WriteString("\n")

	if meta := metaLine(rec); meta != "" {
		b.WriteString(theme.MetaStyle.Render(meta))
		b.WriteString("\n")
	}
}

// metaLine builds the secondary details line for a record, falling
// back to raw ids and addresses until enrichment lands.
func metaLine(rec *model.TimelineRecord) string {
	var parts []string

	switch rec.Kind {
	case model.KindNote:
		if author := authorName(rec); author != "" {
			parts = append(parts, "by "+author)
		}
		if rec.Note != nil && rec.Note.ViaKind == "contact" {
			via := rec.Enrichment.ViaName
			if via == "" {
				via = "contact " + rec.Note.ViaID
			}
			parts = append(parts, "via "+via)
		}

	case model.KindCase:
		if rec.Case != nil {
			parts = append(parts, rec.Case.Status)
			if rec.Case.Priority != "" {
				parts = append(parts, rec.Case.Priority)
			}
		}
		if assignee := assigneeName(rec); assignee != "" {
			parts = append(parts, "assigned to "+assignee)
		}
		if n := len(rec.Enrichment.SubNotes); n > 0 {
			parts = append(parts, plural(n, "note"))
		}

	case model.KindDeal:
		if rec.Deal != nil {
			parts = append(parts, rec.Deal.Stage)
		}
		if assignee := assigneeName(rec); assignee != "" {
			parts = append(parts, "assigned to "+assignee)
		}
		if n := len(rec.Enrichment.SubNotes); n > 0 {
			parts = append(parts, plural(n, "note"))
		}

	case model.KindEmail:
		if rec.Email != nil {
			direction := "←"
			if rec.Enrichment.IsOutbound {
				direction = "→"
			}
			sender := rec.Email.SenderName
			if sender == "" {
				sender = rec.Email.SenderEmail
			}
			parts = append(parts, direction+" "+sender)
		}
		if n := len(rec.Enrichment.Attachments); n > 0 {
			parts = append(parts, plural(n, "attachment"))
		}
	}

	return strings.Join(parts, " · ")
}

// authorName returns the enriched author name or the raw author id.
func authorName(rec *model.TimelineRecord) string {
	if rec.Enrichment.Author != nil {
		return rec.Enrichment.Author.FullName
	}
	return rec.AuthorID()
}

// assigneeName returns the enriched assignee name or the raw id.
func assigneeName(rec *model.TimelineRecord) string {
	if rec.Enrichment.Assignee != nil {
		return rec.Enrichment.Assignee.FullName
	}
	return rec.AssigneeID()
}

// firstLine returns text up to the first newline.
func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}

// plural formats "N noun(s)".
func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
