package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/arbor/pkg/gesture"
	"github.com/vanderheijden86/arbor/pkg/view"
)

const leafIndicator = "•"

// TreeView draws widget rows as an indented terminal tree with a cursor
// and vertical scrolling. Each row is one line.
type TreeView struct {
	theme Theme

	rows     []view.Row
	prefixes []string // unstyled branch characters per row

	cursor int
	offset int
	width  int
	height int

	marked   string // node waiting for a move target
	editView string // rendered rename input, drawn in place of the title
}

// NewTreeView creates an empty tree view.
func NewTreeView(theme Theme) TreeView {
	return TreeView{theme: theme}
}

// SetSize sets the drawable area.
func (t *TreeView) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureVisible()
}

// SetRows replaces the rows. The cursor follows the selected row when
// there is one and is clamped otherwise.
func (t *TreeView) SetRows(rows []view.Row) {
	t.rows = rows
	t.prefixes = branchPrefixes(rows)
	for i, r := range rows {
		if r.Selected {
			t.cursor = i
			break
		}
	}
	if t.cursor >= len(t.rows) {
		t.cursor = len(t.rows) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureVisible()
}

// Rows returns the rows being drawn.
func (t *TreeView) Rows() []view.Row { return t.rows }

// SetMarked highlights the node marked for moving.
func (t *TreeView) SetMarked(id string) { t.marked = id }

// SetEditView sets the rendered rename input.
func (t *TreeView) SetEditView(s string) { t.editView = s }

// branchPrefixes computes the ├──/└──/│ columns for each row by scanning
// bottom-up: a row is the last child when no later row at its depth
// appears before a shallower one.
func branchPrefixes(rows []view.Row) []string {
	out := make([]string, len(rows))
	var seen []bool // seen[d]: a later row at depth d is still in scope
	for i := len(rows) - 1; i >= 0; i-- {
		d := rows[i].Depth
		for len(seen) <= d {
			seen = append(seen, false)
		}
		if d > 1 {
			var sb strings.Builder
			for k := 2; k < d; k++ {
				if seen[k] {
					sb.WriteString("│   ")
				} else {
					sb.WriteString("    ")
				}
			}
			if seen[d] {
				sb.WriteString("├── ")
			} else {
				sb.WriteString("└── ")
			}
			out[i] = sb.String()
		}
		seen[d] = true
		for k := d + 1; k < len(seen); k++ {
			seen[k] = false
		}
	}
	return out
}

// View renders the visible window of rows.
func (t *TreeView) View() string {
	if len(t.rows) == 0 {
		return t.renderEmptyState()
	}

	start, end := t.visibleRange()
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, t.renderRow(i))
	}
	return strings.Join(lines, "\n")
}

func (t *TreeView) renderEmptyState() string {
	r := t.theme.Renderer
	var sb strings.Builder
	sb.WriteString(r.NewStyle().Foreground(t.theme.Primary).Bold(true).Render("Empty tree"))
	sb.WriteString("\n\n")
	sb.WriteString(r.NewStyle().Foreground(t.theme.Muted).Render("Press A to add a top-level node."))
	return sb.String()
}

func (t *TreeView) renderRow(i int) string {
	row := t.rows[i]
	r := t.theme.Renderer
	var sb strings.Builder

	sb.WriteString(r.NewStyle().Foreground(t.theme.Muted).Render(t.prefixes[i]))
	sb.WriteString(r.NewStyle().Foreground(t.theme.Secondary).Render(indicator(row)))
	sb.WriteString(" ")

	if row.Editing && t.editView != "" {
		sb.WriteString(t.theme.Editing.Render(t.editView))
		return sb.String()
	}

	used := runewidth.StringWidth(t.prefixes[i]) + runewidth.StringWidth(indicator(row)) + 1
	label := row.DepthLabel
	maxTitle := t.width - used
	if label != "" {
		maxTitle -= runewidth.StringWidth(label) + 1
	}
	title := truncateTitle(row.Title, maxTitle)

	switch {
	case row.ID == t.marked:
		title = t.theme.Marked.Render(title)
	case i == t.cursor || row.Selected:
		title = t.theme.Selected.Render(title)
	}
	sb.WriteString(title)
	if label != "" {
		sb.WriteString(" ")
		sb.WriteString(r.NewStyle().Foreground(t.theme.Muted).Italic(true).Render(label))
	}
	return sb.String()
}

func indicator(row view.Row) string {
	if row.Leaf || row.Toggle == "" {
		return leafIndicator
	}
	return row.Toggle
}

// truncateTitle shortens a title to maxWidth cells with an ellipsis.
func truncateTitle(title string, maxWidth int) string {
	if maxWidth <= 0 {
		return title
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(title, maxWidth, "")
	}
	return runewidth.Truncate(title, maxWidth, "…")
}

// HitTest maps a position inside the tree area to a pointer target.
// Rows are one line tall; the indicator is the toggle, anything to its
// right on the line is the label.
func (t *TreeView) HitTest(x, y int) gesture.Target {
	i := t.offset + y
	if y < 0 || i < 0 || i >= len(t.rows) {
		return gesture.Target{}
	}
	row := t.rows[i]
	start := runewidth.StringWidth(t.prefixes[i])
	ind := runewidth.StringWidth(indicator(row))
	switch {
	case x < start:
		return gesture.Target{}
	case x < start+ind:
		if row.Leaf {
			return gesture.Target{NodeID: row.ID, Region: gesture.RegionValue}
		}
		return gesture.Target{NodeID: row.ID, Region: gesture.RegionToggle}
	case row.Editing:
		return gesture.Target{NodeID: row.ID, Region: gesture.RegionInput}
	default:
		return gesture.Target{NodeID: row.ID, Region: gesture.RegionValue}
	}
}

// CursorRow returns the row under the cursor.
func (t *TreeView) CursorRow() (view.Row, bool) {
	if t.cursor >= 0 && t.cursor < len(t.rows) {
		return t.rows[t.cursor], true
	}
	return view.Row{}, false
}

// Cursor returns the cursor index.
func (t *TreeView) Cursor() int { return t.cursor }

// Offset returns the index of the first visible row.
func (t *TreeView) Offset() int { return t.offset }

// MoveDown moves the cursor down.
func (t *TreeView) MoveDown() {
	if t.cursor < len(t.rows)-1 {
		t.cursor++
	}
	t.ensureVisible()
}

// MoveUp moves the cursor up.
func (t *TreeView) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
	}
	t.ensureVisible()
}

// JumpToTop moves the cursor to the first row.
func (t *TreeView) JumpToTop() {
	t.cursor = 0
	t.ensureVisible()
}

// JumpToBottom moves the cursor to the last row.
func (t *TreeView) JumpToBottom() {
	if len(t.rows) > 0 {
		t.cursor = len(t.rows) - 1
	}
	t.ensureVisible()
}

// PageDown moves the cursor down by half a screen.
func (t *TreeView) PageDown() {
	t.cursor += t.pageSize()
	if t.cursor >= len(t.rows) {
		t.cursor = len(t.rows) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureVisible()
}

// PageUp moves the cursor up by half a screen.
func (t *TreeView) PageUp() {
	t.cursor -= t.pageSize()
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureVisible()
}

// Scroll shifts the window without moving the cursor.
func (t *TreeView) Scroll(delta int) {
	t.offset += delta
	t.clampOffset()
}

func (t *TreeView) pageSize() int {
	if n := t.visibleCount() / 2; n > 0 {
		return n
	}
	return 1
}

// SelectByID moves the cursor to the row with the given id.
func (t *TreeView) SelectByID(id string) bool {
	if i := view.IndexOf(t.rows, id); i >= 0 {
		t.cursor = i
		t.ensureVisible()
		return true
	}
	return false
}

func (t *TreeView) visibleCount() int {
	if t.height <= 0 {
		return 20
	}
	return t.height
}

// visibleRange returns the [start, end) row indices that fit the window.
func (t *TreeView) visibleRange() (start, end int) {
	start = t.offset
	end = start + t.visibleCount()
	if end > len(t.rows) {
		end = len(t.rows)
	}
	if start > end {
		start = end
	}
	return start, end
}

func (t *TreeView) ensureVisible() {
	n := t.visibleCount()
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	if t.cursor >= t.offset+n {
		t.offset = t.cursor - n + 1
	}
	t.clampOffset()
}

func (t *TreeView) clampOffset() {
	maxOffset := len(t.rows) - t.visibleCount()
	if t.offset > maxOffset {
		t.offset = maxOffset
	}
	if t.offset < 0 {
		t.offset = 0
	}
}

// padLines pads or cuts s to exactly height lines.
func padLines(s string, height int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// overlayLine replaces line y of block with text indented by x cells.
func overlayLine(block string, x, y int, text string) string {
	lines := strings.Split(block, "\n")
	if y < 0 || y >= len(lines) {
		return block
	}
	if x < 0 {
		x = 0
	}
	lines[y] = strings.Repeat(" ", x) + text
	return strings.Join(lines, "\n")
}
