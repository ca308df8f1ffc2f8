// Package tui is the interactive review screen shown before a statement is
// imported. Rows can be toggled and recategorized; Enter confirms.
package tui

import (
	"github.com/Veraticus/spendwise/internal/ingest"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// chromeLines is the number of lines used by the title, header, summary and help.
const chromeLines = 7

// Model holds the review screen state.
type Model struct {
	review     *ingest.Review
	help       help.Model
	keymap     KeyMap
	categories []model.Category
	names      map[int]string
	width      int
	height     int
	cursor     int
	offset     int
	confirmed  bool
	quitting   bool
}

// NewModel creates a review model over review. The review's rows are
// edited in place.
func NewModel(review *ingest.Review, opts ...Option) Model {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newModel(review, cfg)
}

func newModel(review *ingest.Review, cfg Config) Model {
	names := make(map[int]string, len(cfg.Categories))
	for _, c := range cfg.Categories {
		names[c.ID] = c.Name
	}
	return Model{
		review:     review,
		help:       help.New(),
		keymap:     DefaultKeyMap(),
		categories: cfg.Categories,
		names:      names,
		width:      cfg.Width,
		height:     cfg.Height,
	}
}

// Confirmed reports whether the user accepted the selection.
func (m Model) Confirmed() bool {
	return m.confirmed
}

// Cursor returns the highlighted row.
func (m Model) Cursor() int {
	return m.cursor
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.clampOffset()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := len(m.review.Rows)

	switch {
	case key.Matches(msg, m.keymap.ForceQuit), key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Confirm):
		m.confirmed = true
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.ToggleHelp):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keymap.Up):
		m.moveTo(m.cursor - 1)
	case key.Matches(msg, m.keymap.Down):
		m.moveTo(m.cursor + 1)
	case key.Matches(msg, m.keymap.PageUp):
		m.moveTo(m.cursor - m.pageSize())
	case key.Matches(msg, m.keymap.PageDown):
		m.moveTo(m.cursor + m.pageSize())
	case key.Matches(msg, m.keymap.Home):
		m.moveTo(0)
	case key.Matches(msg, m.keymap.End):
		m.moveTo(rows - 1)

	case key.Matches(msg, m.keymap.ToggleSelect):
		m.review.Toggle(m.cursor)
	case key.Matches(msg, m.keymap.SelectAll):
		m.review.SelectAll()
	case key.Matches(msg, m.keymap.DeselectAll):
		m.review.SelectNone()

	case key.Matches(msg, m.keymap.NextCategory):
		m.cycleCategory(1)
	case key.Matches(msg, m.keymap.PrevCategory):
		m.cycleCategory(-1)
	}
	return m, nil
}

func (m *Model) moveTo(i int) {
	rows := len(m.review.Rows)
	if rows == 0 {
		m.cursor = 0
		return
	}
	m.cursor = max(0, min(i, rows-1))
	m.clampOffset()
}

func (m *Model) clampOffset() {
	page := m.pageSize()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+page {
		m.offset = m.cursor - page + 1
	}
	m.offset = max(0, m.offset)
}

func (m Model) pageSize() int {
	return max(1, m.height-chromeLines)
}

// cycleCategory moves the highlighted row's category by step through the
// category list, wrapping at both ends.
func (m *Model) cycleCategory(step int) {
	if len(m.categories) == 0 || m.cursor >= len(m.review.Rows) {
		return
	}
	row := &m.review.Rows[m.cursor]

	current := -1
	if row.SuggestedCategoryID != nil {
		for i, c := range m.categories {
			if c.ID == *row.SuggestedCategoryID {
				current = i
				break
			}
		}
	}

	next := 0
	switch {
	case current >= 0:
		next = (current + step + len(m.categories)) % len(m.categories)
	case step < 0:
		next = len(m.categories) - 1
	}
	row.SuggestedCategoryID = model.IntPtr(m.categories[next].ID)
}

func (m Model) categoryName(id *int) string {
	if id == nil {
		return "-"
	}
	if name, ok := m.names[*id]; ok {
		return name
	}
	return "?"
}
