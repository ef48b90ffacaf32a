package ui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/widget"
)

func sampleItems() []model.Item {
	return []model.Item{
		{ID: "a", Title: "Alpha", State: model.StateOpened, Children: []model.Item{
			{ID: "a1", Title: "One"},
			{ID: "a2", Title: "Two"},
		}},
		{ID: "b", Title: "Beta"},
	}
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewModel(sampleItems(), widget.Options{UseDrag: true, UseHelper: true}, "")
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func send(m *Model, keys ...string) {
	for _, k := range keys {
		m.Update(keyMsg(k))
	}
}

// click presses and releases the left button at a screen cell.
func click(m *Model, x, y int) tea.Cmd {
	m.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	_, cmd := m.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonNone})
	return cmd
}

func parentOf(t *testing.T, m *Model, id string) string {
	t.Helper()
	p, err := m.Widget().Model().ParentID(id)
	if err != nil {
		t.Fatalf("ParentID(%s): %v", id, err)
	}
	return p
}

func titleOf(t *testing.T, m *Model, id string) string {
	t.Helper()
	n, err := m.Widget().Model().Node(id)
	if err != nil {
		t.Fatalf("Node(%s): %v", id, err)
	}
	return n.Title
}

func TestModelInitialRows(t *testing.T) {
	m := newTestModel(t)
	rows := m.tree.Rows()
	if len(rows) != 4 {
		t.Fatalf("expected 4 visible rows, got %d", len(rows))
	}
	out := m.View()
	for _, want := range []string{"arbor", "4 nodes", "Alpha", "One", "Beta", "?: help", "q: quit"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in view", want)
		}
	}
	if got := strings.Count(out, "\n") + 1; got != 24 {
		t.Errorf("expected the view to fill 24 lines, got %d", got)
	}
}

func TestModelKeyNavigationSelects(t *testing.T) {
	m := newTestModel(t)
	send(m, "j")
	if got := m.Widget().Model().SelectedID(); got != "a1" {
		t.Errorf("expected a1 selected, got %q", got)
	}
	send(m, "G")
	if got := m.Widget().Model().SelectedID(); got != "b" {
		t.Errorf("expected b selected, got %q", got)
	}
	send(m, "up")
	if got := m.Widget().Model().SelectedID(); got != "a2" {
		t.Errorf("expected a2 selected, got %q", got)
	}
}

func TestModelToggleAndCollapse(t *testing.T) {
	m := newTestModel(t)
	send(m, "enter")
	if len(m.tree.Rows()) != 2 {
		t.Errorf("expected 2 rows after closing Alpha, got %d", len(m.tree.Rows()))
	}
	send(m, "l")
	if len(m.tree.Rows()) != 4 {
		t.Errorf("expected 4 rows after opening Alpha, got %d", len(m.tree.Rows()))
	}

	// left on a leaf jumps to its parent
	send(m, "j", "h")
	if got := m.Widget().Model().SelectedID(); got != "a" {
		t.Errorf("expected the parent selected, got %q", got)
	}
	send(m, "h")
	if len(m.tree.Rows()) != 2 {
		t.Errorf("expected left to close Alpha, got %d rows", len(m.tree.Rows()))
	}
}

func TestModelRename(t *testing.T) {
	m := newTestModel(t)
	send(m, "e")
	if m.mode != modeEdit || m.Widget().Editing() != "a" {
		t.Fatalf("expected rename mode on a, got mode %d editing %q", m.mode, m.Widget().Editing())
	}
	send(m, "!", "enter")

	if m.mode != modeTree {
		t.Errorf("expected to leave rename mode, got %d", m.mode)
	}
	if got := titleOf(t, m, "a"); got != "Alpha!" {
		t.Errorf("expected title Alpha!, got %q", got)
	}
	if !strings.Contains(m.Status(), "Alpha!") {
		t.Errorf("expected a rename status, got %q", m.Status())
	}
}

func TestModelRenameCancel(t *testing.T) {
	m := newTestModel(t)
	send(m, "e", "x", "esc")
	if m.mode != modeTree || m.Widget().Editing() != "" {
		t.Errorf("expected rename to be cancelled")
	}
	if got := titleOf(t, m, "a"); got != "Alpha" {
		t.Errorf("expected title unchanged, got %q", got)
	}
}

func TestModelRenameEmptyIsIgnored(t *testing.T) {
	m := newTestModel(t)
	send(m, "G", "e")
	for range "Beta" {
		m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	}
	send(m, "enter")
	if got := titleOf(t, m, "b"); got != "Beta" {
		t.Errorf("expected title unchanged, got %q", got)
	}
}

func TestModelRemove(t *testing.T) {
	m := newTestModel(t)
	send(m, "G", "d")
	if m.Widget().Model().Has("b") {
		t.Error("expected b to be removed")
	}
	if m.Status() != `removed "Beta"` {
		t.Errorf("unexpected status %q", m.Status())
	}
}

func TestModelMarkAndPut(t *testing.T) {
	m := newTestModel(t)
	send(m, "G", "m")
	if m.Marked() != "b" {
		t.Fatalf("expected b marked, got %q", m.Marked())
	}
	send(m, "g", "p")
	if got := parentOf(t, m, "b"); got != "a" {
		t.Errorf("expected b under a, got %q", got)
	}
	if m.Marked() != "" {
		t.Error("expected the mark to clear after moving")
	}
	if got := m.Widget().Model().SelectedID(); got != "b" {
		t.Errorf("expected the moved node selected, got %q", got)
	}

	send(m, "m", "P")
	if got := parentOf(t, m, "b"); got != m.Widget().Model().RootID() {
		t.Errorf("expected b back at the top level, got %q", got)
	}
}

func TestModelPutIntoOwnSubtreeFails(t *testing.T) {
	m := newTestModel(t)
	send(m, "m", "j", "p")
	if got := parentOf(t, m, "a"); got != m.Widget().Model().RootID() {
		t.Errorf("expected a to stay at the top level, got %q", got)
	}
	if !m.statusErr {
		t.Errorf("expected an error status, got %q", m.Status())
	}
}

func TestModelPutWithoutMark(t *testing.T) {
	m := newTestModel(t)
	send(m, "p")
	if !strings.Contains(m.Status(), "nothing marked") {
		t.Errorf("unexpected status %q", m.Status())
	}
}

func TestModelCopyID(t *testing.T) {
	orig := copyToClipboard
	defer func() { copyToClipboard = orig }()

	var copied string
	copyToClipboard = func(s string) error {
		copied = s
		return nil
	}
	m := newTestModel(t)
	send(m, "j", "y")
	if copied != "a1" {
		t.Errorf("expected a1 copied, got %q", copied)
	}

	copyToClipboard = func(string) error { return errors.New("no clipboard") }
	send(m, "y")
	if !m.statusErr || !strings.Contains(m.Status(), "no clipboard") {
		t.Errorf("expected a clipboard error, got %q", m.Status())
	}
}

func TestModelAddChild(t *testing.T) {
	m := newTestModel(t)
	send(m, "a")
	if m.mode != modeAdd || m.addParent != "a" {
		t.Fatalf("expected the add form for a, got mode %d parent %q", m.mode, m.addParent)
	}
	if !strings.Contains(m.View(), `New child of "Alpha"`) {
		t.Error("expected the form heading in the view")
	}

	m.addTitle = "Three"
	m.finishAdd()

	children, err := m.Widget().Model().Children("a")
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if len(children) != 3 || children[2].Title != "Three" {
		t.Fatalf("expected Three appended under a, got %+v", children)
	}
	if got := m.Widget().Model().SelectedID(); got != children[2].ID {
		t.Errorf("expected the new node selected, got %q", got)
	}
	if m.mode != modeTree {
		t.Errorf("expected tree mode after adding, got %d", m.mode)
	}
}

func TestModelAddCancel(t *testing.T) {
	m := newTestModel(t)
	send(m, "A")
	if m.mode != modeAdd || m.addParent != "" {
		t.Fatalf("expected a top-level add form, got mode %d parent %q", m.mode, m.addParent)
	}
	send(m, "esc")
	if m.mode != modeTree || m.addForm != nil {
		t.Error("expected esc to close the form")
	}
	if m.Widget().Model().Len() != 4 {
		t.Errorf("expected no node added, got %d", m.Widget().Model().Len())
	}
}

func TestModelHelp(t *testing.T) {
	m := newTestModel(t)
	send(m, "?")
	if m.mode != modeHelp {
		t.Fatalf("expected help mode, got %d", m.mode)
	}
	if !strings.Contains(m.View(), "Quick Reference") {
		t.Error("expected the help modal")
	}
	send(m, "esc")
	if m.mode != modeTree {
		t.Errorf("expected esc to close help, got %d", m.mode)
	}

	send(m, "m", "?")
	if m.helpCtx != ContextMove {
		t.Errorf("expected move help while a node is marked, got %s", m.helpCtx)
	}
}

func TestModelToggleClick(t *testing.T) {
	m := newTestModel(t)
	click(m, 0, 1)
	if len(m.tree.Rows()) != 2 {
		t.Errorf("expected the toggle click to close Alpha, got %d rows", len(m.tree.Rows()))
	}
}

func TestModelSingleClickWaitsForTimer(t *testing.T) {
	m := newTestModel(t)
	cmd := click(m, 3, 4)
	if cmd == nil {
		t.Fatal("expected a timer command")
	}
	if got := m.Widget().Model().SelectedID(); got == "b" {
		t.Fatal("expected the selection to wait for the click delay")
	}
	if !m.Widget().PendingClick() {
		t.Fatal("expected a pending click")
	}

	m.Update(timerMsg{id: m.clock.nextID})
	if got := m.Widget().Model().SelectedID(); got != "b" {
		t.Errorf("expected b selected after the timer, got %q", got)
	}
	if r, ok := m.tree.CursorRow(); !ok || r.ID != "b" {
		t.Errorf("expected the cursor on b, got %+v", r)
	}
}

func TestModelDoubleClickRenames(t *testing.T) {
	m := newTestModel(t)
	click(m, 6, 2)
	click(m, 6, 2)
	if m.mode != modeEdit || m.Widget().Editing() != "a1" {
		t.Fatalf("expected rename mode on a1, got mode %d editing %q", m.mode, m.Widget().Editing())
	}
	if m.clock.Pending() != 0 {
		t.Errorf("expected the single-click timer to be cancelled, got %d", m.clock.Pending())
	}

	// clicking another node commits the rename
	send(m, "!")
	click(m, 3, 4)
	if m.mode != modeTree {
		t.Errorf("expected the click outside to end rename mode, got %d", m.mode)
	}
	if got := titleOf(t, m, "a1"); got != "One!" {
		t.Errorf("expected title One!, got %q", got)
	}
}

func TestModelDragMovesNode(t *testing.T) {
	m := newTestModel(t)
	m.Update(tea.MouseMsg{X: 3, Y: 4, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m.Update(tea.MouseMsg{X: 3, Y: 1, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})

	h := m.Widget().DragHelper()
	if !h.Visible || h.Text != "Beta" {
		t.Fatalf("expected the drag helper for Beta, got %+v", h)
	}
	if h.X != 5 || h.Y != 1 {
		t.Errorf("expected the helper at (5,1), got (%d,%d)", h.X, h.Y)
	}

	m.Update(tea.MouseMsg{X: 3, Y: 1, Action: tea.MouseActionRelease, Button: tea.MouseButtonNone})
	if got := parentOf(t, m, "b"); got != "a" {
		t.Errorf("expected b dropped under a, got %q", got)
	}
	if m.Widget().DragHelper().Visible {
		t.Error("expected the helper hidden after the drop")
	}
	if m.Widget().PendingClick() {
		t.Error("expected the release after a drag not to arm a click")
	}
}

func TestModelRightClickIgnored(t *testing.T) {
	m := newTestModel(t)
	m.Update(tea.MouseMsg{X: 0, Y: 1, Action: tea.MouseActionPress, Button: tea.MouseButtonRight})
	m.Update(tea.MouseMsg{X: 0, Y: 1, Action: tea.MouseActionRelease, Button: tea.MouseButtonNone})
	if len(m.tree.Rows()) != 4 {
		t.Errorf("expected right click to do nothing, got %d rows", len(m.tree.Rows()))
	}
}

func TestModelDataReloaded(t *testing.T) {
	m := newTestModel(t)
	send(m, "G")

	items := append(sampleItems(), model.Item{ID: "c", Title: "Gamma"})
	m.Update(DataReloadedMsg{Path: "/tmp/menu.tree.json", Items: items})

	if m.Widget().Model().Len() != 5 {
		t.Errorf("expected 5 nodes after reload, got %d", m.Widget().Model().Len())
	}
	if got := m.Widget().Model().SelectedID(); got != "b" {
		t.Errorf("expected the selection kept, got %q", got)
	}
	if m.Status() != "reloaded menu.tree.json" {
		t.Errorf("unexpected status %q", m.Status())
	}

	m.Update(DataReloadedMsg{Path: "/tmp/menu.tree.json", Err: errors.New("bad json")})
	if !m.statusErr || m.Widget().Model().Len() != 5 {
		t.Errorf("expected the tree kept and an error shown, got %q", m.Status())
	}
}

func TestModelOpenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "other.tree.yaml")
	if err := os.WriteFile(path, []byte("- title: Solo\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m := newTestModel(t)
	m.Update(OpenFileMsg{Path: path})
	if m.Widget().Model().Len() != 1 {
		t.Errorf("expected the new file loaded, got %d nodes", m.Widget().Model().Len())
	}
	if m.title != "other" {
		t.Errorf("expected title other, got %q", m.title)
	}

	m.Update(OpenFileMsg{Path: filepath.Join(dir, "missing.tree.json")})
	if !m.statusErr {
		t.Error("expected an error for a missing file")
	}
}

func TestModelPicker(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"one.tree.json", "two.tree.yaml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	m, err := NewModel(sampleItems(), widget.Options{}, filepath.Join(dir, "one.tree.json"))
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	send(m, "o")
	if m.mode != modePicker {
		t.Fatalf("expected picker mode, got %d", m.mode)
	}
	if m.picker.FilteredCount() != 2 {
		t.Errorf("expected 2 files, got %d", m.picker.FilteredCount())
	}
	_, cmd := m.Update(keyMsg("esc"))
	if cmd == nil {
		t.Fatal("expected esc to close the picker")
	}
	m.Update(cmd())
	if m.mode != modeTree {
		t.Errorf("expected tree mode after closing the picker, got %d", m.mode)
	}
}

func TestTitleFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", "arbor"},
		{"/data/menu.tree.json", "menu"},
		{"outline.tree.yml", "outline"},
		{"plain.json", "plain"},
		{"notes.txt", "notes.txt"},
	}
	for _, tt := range tests {
		if got := titleFor(tt.path); got != tt.want {
			t.Errorf("titleFor(%q): expected %q, got %q", tt.path, tt.want, got)
		}
	}
}
