// Package noteform is the add-note form shown over the timeline.
package noteform

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/crm-timeline/internal/theme"
)

// NoteSubmittedMsg is dispatched when the user submits the form.
type NoteSubmittedMsg struct {
	Content string
	Pinned  bool
}

// NoteCancelMsg is dispatched when the user cancels the form.
type NoteCancelMsg struct{}

// formBindings holds form field values on the heap so that huh's
// Value() pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	content string
	pinned  bool
}

// Model is the Bubble Tea model for the add-note form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	width  int
	height int
}

// New creates a new note form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// SetSize resizes the form.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Start initializes the form for a new note.
func (m *Model) Start() tea.Cmd {
	m.fb.content = ""
	m.fb.pinned = false

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Note").
				Placeholder("What happened?").
				Value(&m.fb.content),
			huh.NewConfirm().
				Title("Pin this note?").
				Value(&m.fb.pinned),
		),
	).WithWidth(m.width)

	return m.form.Init()
}

// Update handles messages for the note form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		content := m.fb.content
		pinned := m.fb.pinned
		return m, func() tea.Msg {
			return NoteSubmittedMsg{Content: content, Pinned: pinned}
		}
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return NoteCancelMsg{} }
	}

	return m, cmd
}

// View renders the note form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("New Note")

	return lipgloss.NewStyle().Padding(1, 2).Render(title + "\n" + m.form.View())
}
