package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
)

// OpenFileMsg is sent when the user picks a data file.
type OpenFileMsg struct {
	Path string
}

// closePickerMsg is sent when the picker is dismissed without a choice.
type closePickerMsg struct{}

// FilePickerModel lists tree data files with a fuzzy filter.
type FilePickerModel struct {
	root        string
	paths       []string
	filtered    []int // indices into paths
	cursor      int
	width       int
	height      int
	filterInput textinput.Model
	active      string
	theme       Theme
}

// NewFilePicker creates a picker over paths, shown relative to root.
// active marks the currently loaded file.
func NewFilePicker(root string, paths []string, active string, theme Theme) FilePickerModel {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.CharLimit = 100
	ti.Width = 40
	ti.Prompt = "/ "
	ti.Focus()

	m := FilePickerModel{
		root:        root,
		paths:       paths,
		filterInput: ti,
		active:      active,
		theme:       theme,
	}
	m.applyFilter()
	return m
}

// SetSize updates the picker dimensions.
func (m *FilePickerModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Update handles keyboard input. Enter emits OpenFileMsg, Esc emits
// closePickerMsg.
func (m FilePickerModel) Update(msg tea.Msg) (FilePickerModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		return m, cmd
	}
	switch keyMsg.String() {
	case "esc":
		return m, func() tea.Msg { return closePickerMsg{} }
	case "enter":
		if path, ok := m.Selected(); ok {
			return m, func() tea.Msg { return OpenFileMsg{Path: path} }
		}
		return m, nil
	case "up", "ctrl+p":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "ctrl+n":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.applyFilter()
		return m, cmd
	}
}

func (m *FilePickerModel) display(path string) string {
	if rel, err := filepath.Rel(m.root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// applyFilter ranks paths against the filter text.
func (m *FilePickerModel) applyFilter() {
	query := strings.TrimSpace(m.filterInput.Value())
	m.filtered = make([]int, 0, len(m.paths))
	if query == "" {
		for i := range m.paths {
			m.filtered = append(m.filtered, i)
		}
	} else {
		names := make([]string, len(m.paths))
		for i, p := range m.paths {
			names[i] = m.display(p)
		}
		for _, match := range fuzzy.Find(query, names) {
			m.filtered = append(m.filtered, match.Index)
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

// View renders the filter line, the matching files and a title bar.
func (m *FilePickerModel) View() string {
	t := m.theme
	r := t.Renderer

	var sections []string
	sections = append(sections, r.NewStyle().Foreground(t.Primary).Render(m.filterInput.View()))

	if len(m.filtered) == 0 {
		sections = append(sections, r.NewStyle().Foreground(t.Secondary).Italic(true).
			Render("  No *.tree.json or *.tree.yaml files found."))
	}
	for i, idx := range m.filtered {
		if m.height > 3 && i >= m.height-3 {
			break
		}
		path := m.paths[idx]
		line := "  " + m.display(path)
		switch {
		case i == m.cursor:
			line = t.Selected.Render("> " + m.display(path))
		case path == m.active:
			line = r.NewStyle().Foreground(t.Primary).Bold(true).Render(line)
		}
		sections = append(sections, line)
	}

	sections = append(sections, m.renderTitleBar())
	return strings.Join(sections, "\n")
}

func (m *FilePickerModel) renderTitleBar() string {
	t := m.theme
	w := m.width
	if w == 0 {
		w = 80
	}

	label := "files"
	if q := m.filterInput.Value(); q != "" {
		label = fmt.Sprintf("files(%s)", q)
	}
	count := fmt.Sprintf("[%d]", len(m.filtered))
	title := t.Renderer.NewStyle().Foreground(t.Primary).Bold(true).Render(label) +
		t.Renderer.NewStyle().Foreground(t.Highlight).Render(count)

	titleLen := len(label) + len(count)
	leftPad := (w - titleLen - 4) / 2
	rightPad := w - titleLen - 4 - leftPad
	if leftPad < 1 {
		leftPad = 1
	}
	if rightPad < 1 {
		rightPad = 1
	}
	sep := t.Renderer.NewStyle().Foreground(t.Border)
	return sep.Render(strings.Repeat("─", leftPad)) + " " + title + " " + sep.Render(strings.Repeat("─", rightPad))
}

// Selected returns the highlighted path.
func (m *FilePickerModel) Selected() (string, bool) {
	if len(m.filtered) == 0 || m.cursor >= len(m.filtered) {
		return "", false
	}
	return m.paths[m.filtered[m.cursor]], true
}

// FilteredCount returns the number of matching files.
func (m *FilePickerModel) FilteredCount() int { return len(m.filtered) }
