package ui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/arbor/pkg/gesture"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/view"
)

func newTreeTestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(nil))
}

func flatRows(n int) []view.Row {
	rows := make([]view.Row, n)
	for i := range rows {
		rows[i] = view.Row{ID: fmt.Sprintf("n%d", i), Title: fmt.Sprintf("Node %d", i), Depth: 1, Leaf: true}
	}
	return rows
}

func TestBranchPrefixes(t *testing.T) {
	rows := []view.Row{
		{ID: "a", Depth: 1},
		{ID: "a1", Depth: 2},
		{ID: "a2", Depth: 2},
		{ID: "a2x", Depth: 3},
		{ID: "b", Depth: 1},
	}
	got := branchPrefixes(rows)
	want := []string{"", "├── ", "└── ", "    └── ", ""}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %s: expected prefix %q, got %q", rows[i].ID, want[i], got[i])
		}
	}
}

func TestBranchPrefixesContinuesParentLine(t *testing.T) {
	rows := []view.Row{
		{ID: "a", Depth: 1},
		{ID: "a1", Depth: 2},
		{ID: "a1x", Depth: 3},
		{ID: "a2", Depth: 2},
	}
	got := branchPrefixes(rows)
	if got[2] != "│   └── " {
		t.Errorf("expected the grandchild to continue a1's sibling line, got %q", got[2])
	}
	if got[3] != "└── " {
		t.Errorf("expected a2 to be the last child, got %q", got[3])
	}
}

func TestTreeViewEmptyState(t *testing.T) {
	tv := NewTreeView(newTreeTestTheme())
	tv.SetRows(nil)
	out := tv.View()
	if !strings.Contains(out, "Empty tree") {
		t.Errorf("expected empty state, got %q", out)
	}
	if _, ok := tv.CursorRow(); ok {
		t.Error("expected no cursor row in an empty tree")
	}
}

func TestTreeViewRendersRows(t *testing.T) {
	tv := NewTreeView(newTreeTestTheme())
	tv.SetSize(80, 10)
	tv.SetRows([]view.Row{
		{ID: "a", Title: "Alpha", Depth: 1, Toggle: "-", State: model.StateOpened, DepthLabel: "top"},
		{ID: "a1", Title: "One", Depth: 2, Leaf: true},
	})

	lines := strings.Split(tv.View(), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "- Alpha") || !strings.Contains(lines[0], "top") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "└── "+leafIndicator+" One") {
		t.Errorf("unexpected second line %q", lines[1])
	}
}

func TestTreeViewEditViewReplacesTitle(t *testing.T) {
	tv := NewTreeView(newTreeTestTheme())
	tv.SetRows([]view.Row{{ID: "a", Title: "Alpha", Depth: 1, Leaf: true, Editing: true}})
	tv.SetEditView("Alph|")
	out := tv.View()
	if strings.Contains(out, "Alpha") || !strings.Contains(out, "Alph|") {
		t.Errorf("expected the edit view in place of the title, got %q", out)
	}
}

func TestTreeViewHitTest(t *testing.T) {
	tv := NewTreeView(newTreeTestTheme())
	tv.SetSize(80, 10)
	tv.SetRows([]view.Row{
		{ID: "a", Title: "Alpha", Depth: 1, Toggle: "-", State: model.StateOpened},
		{ID: "a1", Title: "One", Depth: 2, Leaf: true},
		{ID: "b", Title: "Beta", Depth: 1, Toggle: "+", State: model.StateClosed, Editing: true},
	})

	tests := []struct {
		name string
		x, y int
		want gesture.Target
	}{
		{"toggle", 0, 0, gesture.Target{NodeID: "a", Region: gesture.RegionToggle}},
		{"label", 3, 0, gesture.Target{NodeID: "a", Region: gesture.RegionValue}},
		{"branch lines", 1, 1, gesture.Target{}},
		{"leaf label", 7, 1, gesture.Target{NodeID: "a1", Region: gesture.RegionValue}},
		{"edit input", 4, 2, gesture.Target{NodeID: "b", Region: gesture.RegionInput}},
		{"below rows", 0, 5, gesture.Target{}},
		{"above rows", 0, -1, gesture.Target{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tv.HitTest(tt.x, tt.y); got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestTreeViewScrolling(t *testing.T) {
	tv := NewTreeView(newTreeTestTheme())
	tv.SetSize(80, 3)
	tv.SetRows(flatRows(10))

	for i := 0; i < 4; i++ {
		tv.MoveDown()
	}
	if tv.Cursor() != 4 {
		t.Errorf("expected cursor 4, got %d", tv.Cursor())
	}
	if tv.Offset() != 2 {
		t.Errorf("expected offset 2, got %d", tv.Offset())
	}

	tv.JumpToBottom()
	if tv.Cursor() != 9 || tv.Offset() != 7 {
		t.Errorf("expected cursor 9 offset 7, got %d %d", tv.Cursor(), tv.Offset())
	}

	tv.Scroll(-100)
	if tv.Offset() != 0 {
		t.Errorf("expected scroll to clamp at 0, got %d", tv.Offset())
	}
	tv.Scroll(100)
	if tv.Offset() != 7 {
		t.Errorf("expected scroll to clamp at 7, got %d", tv.Offset())
	}

	tv.JumpToTop()
	tv.PageDown()
	if tv.Cursor() != 1 {
		t.Errorf("expected half-page move to 1, got %d", tv.Cursor())
	}
	tv.PageUp()
	if tv.Cursor() != 0 {
		t.Errorf("expected cursor back at 0, got %d", tv.Cursor())
	}
}

func TestTreeViewCursorFollowsSelection(t *testing.T) {
	tv := NewTreeView(newTreeTestTheme())
	tv.SetSize(80, 3)
	rows := flatRows(10)
	rows[6].Selected = true
	tv.SetRows(rows)

	if tv.Cursor() != 6 {
		t.Errorf("expected cursor on the selected row, got %d", tv.Cursor())
	}
	start, end := tv.visibleRange()
	if tv.Cursor() < start || tv.Cursor() >= end {
		t.Errorf("expected cursor %d inside [%d,%d)", tv.Cursor(), start, end)
	}

	tv.SetRows(flatRows(2))
	if tv.Cursor() != 1 {
		t.Errorf("expected cursor clamped to 1, got %d", tv.Cursor())
	}

	if !tv.SelectByID("n0") || tv.Cursor() != 0 {
		t.Errorf("expected SelectByID to move the cursor, got %d", tv.Cursor())
	}
	if tv.SelectByID("missing") {
		t.Error("expected SelectByID to fail for an unknown id")
	}
}

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"abcdefghij", 5, "abcd…"},
		{"abc", 10, "abc"},
		{"abcdef", 3, "abc"},
		{"abcdef", 0, "abcdef"},
	}
	for _, tt := range tests {
		if got := truncateTitle(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateTitle(%q, %d): expected %q, got %q", tt.in, tt.max, tt.want, got)
		}
	}
}

func TestPadAndOverlayLines(t *testing.T) {
	block := padLines("a\nb", 4)
	if got := strings.Count(block, "\n"); got != 3 {
		t.Errorf("expected 4 lines, got %d", got+1)
	}
	if got := padLines("a\nb\nc", 2); got != "a\nb" {
		t.Errorf("expected cut to 2 lines, got %q", got)
	}

	out := overlayLine(block, 2, 1, "X")
	if lines := strings.Split(out, "\n"); lines[1] != "  X" {
		t.Errorf("expected overlay on line 1, got %q", lines[1])
	}
	if overlayLine(block, 0, 9, "X") != block {
		t.Error("expected out-of-range overlay to be ignored")
	}
}
