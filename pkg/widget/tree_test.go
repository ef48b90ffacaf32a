package widget

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/arbor/pkg/gesture"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/view"
)

var sampleData = []model.Item{
	{Title: "hello world", Children: []model.Item{{Title: "foo"}, {Title: "bar"}}},
	{Title: "new world"},
}

type fixture struct {
	t      *testing.T
	doc    *view.Document
	tree   *Tree
	clock  *gesture.ManualClock
	events []Event
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{t: t, doc: view.NewDocument(), clock: gesture.NewManualClock(time.Unix(0, 0))}
	f.doc.CreateRoot("tree", "ul")
	if opts.RootElement == "" {
		opts.RootElement = "tree"
	}
	opts.Clock = f.clock
	tr, err := New(f.doc, sampleData, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	f.tree = tr
	for _, name := range []string{EventSingleClick, EventDoubleClick, EventMove, EventAdd, EventRemove,
		EventRename, EventToggle, EventSelect, EventDragStart, EventDrop} {
		tr.On(name, func(ev Event) { f.events = append(f.events, ev) })
	}
	return f
}

func (f *fixture) ids() []string {
	kids, _ := f.tree.Model().Children("")
	out := make([]string, len(kids))
	for i, k := range kids {
		out[i] = k.ID
	}
	return out
}

func (f *fixture) named(name string) []Event {
	var out []Event
	for _, ev := range f.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fixture) click(id string, region gesture.Region) {
	f.tree.HandlePointer(gesture.PointerEvent{Type: gesture.Click, Button: gesture.ButtonLeft,
		Target: gesture.Target{NodeID: id, Region: region}})
}

func TestNew_InvalidRootElement(t *testing.T) {
	doc := view.NewDocument()
	doc.CreateRoot("other", "ul")

	tests := []struct {
		name string
		doc  *view.Document
		root string
	}{
		{"Missing", doc, "tree"},
		{"Empty", doc, ""},
		{"NilDocument", nil, "tree"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := New(tt.doc, sampleData, Options{RootElement: tt.root})
			if !errors.Is(err, model.ErrInvalidRootElement) {
				t.Errorf("expected ErrInvalidRootElement, got %v", err)
			}
			if tr != nil {
				t.Error("expected no widget on failure")
			}
		})
	}
	if got := doc.HTML(); got != "<ul id=\"other\"></ul>\n" {
		t.Errorf("failed construction touched the document: %q", got)
	}
}

func TestNew_RendersInitialData(t *testing.T) {
	f := newFixture(t, Options{})
	html := f.tree.HTML()
	for _, want := range []string{`class="edge_node close"`, `class="leap_node"`, `>hello world<`, `class="Subtree" style="display:none"`} {
		if !strings.Contains(html, want) {
			t.Errorf("expected markup to contain %s, got %s", want, html)
		}
	}
	if f.tree.Model().Len() != 4 {
		t.Errorf("expected 4 nodes, got %d", f.tree.Model().Len())
	}
}

func TestNew_RejectsBadData(t *testing.T) {
	doc := view.NewDocument()
	doc.CreateRoot("tree", "ul")
	_, err := New(doc, []model.Item{{ID: "x"}, {ID: "x"}}, Options{RootElement: "tree"})
	if !errors.Is(err, model.ErrInvalidOperation) {
		t.Errorf("expected ErrInvalidOperation for duplicate ids, got %v", err)
	}
}

func TestTree_OpenScenario(t *testing.T) {
	f := newFixture(t, Options{})
	a := f.ids()[0]

	if err := f.tree.Open(a); err != nil {
		t.Fatal(err)
	}
	n, _ := f.tree.Model().Node(a)
	if n.State != model.StateOpened {
		t.Errorf("expected opened, got %s", n.State)
	}
	h, _ := f.tree.Handle(a)
	if h.Subtree.Hidden {
		t.Error("expected rendered subtree visible")
	}
	if ev := f.named(EventToggle); len(ev) != 1 || ev[0].State != model.StateOpened {
		t.Errorf("expected one toggle event, got %+v", ev)
	}
}

func TestTree_AddScenario(t *testing.T) {
	f := newFixture(t, Options{})
	a := f.ids()[0]
	h, _ := f.tree.Handle(a)
	before := len(h.Subtree.Children)

	ids, err := f.tree.Add([]model.Item{{Title: "x"}}, a)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 id, got %v", ids)
	}
	h, _ = f.tree.Handle(a)
	if len(h.Subtree.Children) != before+1 {
		t.Errorf("expected rendered child list to grow to %d, got %d", before+1, len(h.Subtree.Children))
	}
	if ev := f.named(EventAdd); len(ev) != 1 || ev[0].ParentID != a || ev[0].IDs[0] != ids[0] {
		t.Errorf("unexpected add events %+v", ev)
	}
}

func TestTree_RemoveScenario(t *testing.T) {
	f := newFixture(t, Options{})
	a := f.ids()[0]
	kids, _ := f.tree.Model().Children(a)

	if err := f.tree.Remove(a); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{a, kids[0].ID, kids[1].ID} {
		if f.tree.Element(id) != nil || f.doc.ElementByID(id) != nil {
			t.Errorf("%s still rendered", id)
		}
	}
	if _, err := f.tree.Model().Node(a); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTree_MoveScenario(t *testing.T) {
	f := newFixture(t, Options{})
	ids := f.ids()
	kids, _ := f.tree.Model().Children(ids[0])
	grand := kids[0].ID

	if err := f.tree.Move(grand, ids[1]); err != nil {
		t.Fatal(err)
	}
	ev := f.named(EventMove)
	if len(ev) != 1 {
		t.Fatalf("expected one move event, got %+v", ev)
	}
	if ev[0].NodeID != grand || ev[0].OriginalParentID != ids[0] || ev[0].NewParentID != ids[1] {
		t.Errorf("unexpected move payload %+v", ev[0])
	}
	if f.tree.Model().IsDescendant(grand, ids[0]) {
		t.Error("node still under its original parent")
	}
}

func TestTree_RejectedMoveLeavesMarkup(t *testing.T) {
	f := newFixture(t, Options{})
	ids := f.ids()
	kids, _ := f.tree.Model().Children(ids[0])
	before := f.tree.HTML()

	for _, target := range []string{ids[0], kids[0].ID} {
		if err := f.tree.Move(ids[0], target); !errors.Is(err, model.ErrInvalidOperation) {
			t.Errorf("Move to %s: expected ErrInvalidOperation, got %v", target, err)
		}
	}
	if f.tree.HTML() != before {
		t.Error("rejected move changed the markup")
	}
	if len(f.named(EventMove)) != 0 {
		t.Error("rejected move fired an event")
	}
}

func TestTree_SingleClickSelects(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.ids()[1]

	f.click(id, gesture.RegionValue)
	if len(f.named(EventSingleClick)) != 0 {
		t.Fatal("single click fired before the delay")
	}
	f.clock.Advance(gesture.DefaultClickDelay)

	if len(f.named(EventSingleClick)) != 1 || len(f.named(EventDoubleClick)) != 0 {
		t.Errorf("expected exactly one singleClick, got %+v", f.events)
	}
	if f.tree.Model().SelectedID() != id || !f.tree.Element(id).HasClass("selected") {
		t.Error("single click should select the node")
	}
}

func TestTree_DoubleClickEditsAndCommits(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.ids()[1]

	f.click(id, gesture.RegionValue)
	f.clock.Advance(100 * time.Millisecond)
	f.click(id, gesture.RegionValue)
	f.clock.Advance(time.Second)

	if len(f.named(EventDoubleClick)) != 1 || len(f.named(EventSingleClick)) != 0 {
		t.Fatalf("expected exactly one doubleClick, got %+v", f.events)
	}
	if f.tree.Editing() != id {
		t.Fatalf("expected %s in edit mode, got %q", id, f.tree.Editing())
	}
	if f.tree.EditValue() != "new world" {
		t.Errorf("expected input prefilled, got %q", f.tree.EditValue())
	}

	// Clicking inside the input keeps editing.
	f.click(id, gesture.RegionInput)
	if f.tree.Editing() == "" {
		t.Fatal("click in the input ended the edit")
	}

	f.tree.SetEditValue("renamed")
	// Clicking elsewhere commits, like blur.
	f.click("", gesture.RegionNone)
	if f.tree.Editing() != "" {
		t.Error("expected edit to end")
	}
	if f.tree.Element(id).Text != "renamed" {
		t.Errorf("expected label renamed, got %q", f.tree.Element(id).Text)
	}
	if ev := f.named(EventRename); len(ev) != 1 || ev[0].Title != "renamed" {
		t.Errorf("unexpected rename events %+v", ev)
	}
}

func TestTree_CancelEdit(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.ids()[1]
	if err := f.tree.BeginEdit(id); err != nil {
		t.Fatal(err)
	}
	f.tree.SetEditValue("discarded")
	f.tree.CancelEdit()

	if f.tree.Element(id).Text != "new world" || f.tree.Element(id).Hidden {
		t.Error("cancel should restore the label unchanged")
	}
	if err := f.tree.BeginEdit("missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTree_ToggleClick(t *testing.T) {
	f := newFixture(t, Options{})
	a := f.ids()[0]
	f.click(a, gesture.RegionToggle)

	n, _ := f.tree.Model().Node(a)
	if n.State != model.StateOpened {
		t.Errorf("expected toggle click to open, got %s", n.State)
	}
	h, _ := f.tree.Handle(a)
	if h.Toggle.Text != "-" {
		t.Errorf("expected '-' label, got %q", h.Toggle.Text)
	}
}

func TestTree_RightClickIgnored(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.ids()[1]
	f.tree.HandlePointer(gesture.PointerEvent{Type: gesture.Click, Button: gesture.ButtonRight,
		Target: gesture.Target{NodeID: id, Region: gesture.RegionValue}})
	f.clock.Advance(time.Second)
	if len(f.events) != 0 {
		t.Errorf("right click fired %+v", f.events)
	}
}

func drag(f *fixture, source, target string) {
	f.tree.HandlePointer(gesture.PointerEvent{Type: gesture.PointerDown, Button: gesture.ButtonLeft,
		Target: gesture.Target{NodeID: source, Region: gesture.RegionValue}, Pos: gesture.Point{X: 5, Y: 5}})
	f.tree.HandlePointer(gesture.PointerEvent{Type: gesture.PointerMove, Button: gesture.ButtonLeft, Pos: gesture.Point{X: 30, Y: 20}})
	f.tree.HandlePointer(gesture.PointerEvent{Type: gesture.PointerUp, Button: gesture.ButtonLeft,
		Target: gesture.Target{NodeID: target, Region: gesture.RegionValue}, Pos: gesture.Point{X: 30, Y: 20}})
}

func TestTree_DragAndDropMoves(t *testing.T) {
	f := newFixture(t, Options{UseDrag: true, UseHelper: true})
	ids := f.ids()

	f.tree.HandlePointer(gesture.PointerEvent{Type: gesture.PointerDown, Button: gesture.ButtonLeft,
		Target: gesture.Target{NodeID: ids[1], Region: gesture.RegionValue}, Pos: gesture.Point{X: 5, Y: 5}})
	f.tree.HandlePointer(gesture.PointerEvent{Type: gesture.PointerMove, Button: gesture.ButtonLeft, Pos: gesture.Point{X: 30, Y: 20}})

	helper := f.tree.DragHelper()
	if !helper.Visible || helper.X != 40 || helper.Y != 30 || helper.Text != "new world" {
		t.Errorf("unexpected helper %+v", helper)
	}

	f.tree.HandlePointer(gesture.PointerEvent{Type: gesture.PointerUp, Button: gesture.ButtonLeft,
		Target: gesture.Target{NodeID: ids[0], Region: gesture.RegionValue}, Pos: gesture.Point{X: 30, Y: 20}})

	if f.tree.DragHelper().Visible {
		t.Error("helper should hide on drop")
	}
	if p, _ := f.tree.Model().ParentID(ids[1]); p != ids[0] {
		t.Errorf("expected %s under %s, got parent %s", ids[1], ids[0], p)
	}
	if len(f.named(EventDragStart)) != 1 || len(f.named(EventDrop)) != 1 || len(f.named(EventMove)) != 1 {
		t.Errorf("expected dragStart, drop and move events, got %+v", f.events)
	}
}

func TestTree_InvalidDropDoesNothing(t *testing.T) {
	f := newFixture(t, Options{UseDrag: true})
	ids := f.ids()
	kids, _ := f.tree.Model().Children(ids[0])
	before := f.tree.HTML()

	drag(f, ids[0], kids[0].ID) // own descendant
	drag(f, kids[0].ID, ids[0]) // current parent
	drag(f, ids[0], ids[0])     // self

	if f.tree.HTML() != before {
		t.Error("invalid drops changed the markup")
	}
	if len(f.named(EventDrop)) != 0 || len(f.named(EventMove)) != 0 {
		t.Errorf("invalid drops fired events: %+v", f.events)
	}
}

func TestTree_NoDragWhileEditing(t *testing.T) {
	f := newFixture(t, Options{UseDrag: true})
	ids := f.ids()
	_ = f.tree.BeginEdit(ids[1])
	drag(f, ids[1], ids[0])
	if len(f.named(EventDragStart)) != 0 {
		t.Error("drag started during edit")
	}
}

func TestTree_OnOff(t *testing.T) {
	f := newFixture(t, Options{})
	var got []string
	off := f.tree.On("custom", func(ev Event) { got = append(got, ev.NodeID) })
	f.tree.Fire("custom", Event{NodeID: "a"})
	off()
	f.tree.Fire("custom", Event{NodeID: "b"})
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("expected only the first fire, got %v", got)
	}
}

func TestTree_DepthLabels(t *testing.T) {
	f := newFixture(t, Options{DepthLabels: []string{"root-level"}})
	h, _ := f.tree.Handle(f.ids()[1])
	if h.Depth.Text != "root-level" {
		t.Errorf("expected depth label, got %q", h.Depth.Text)
	}
	f.tree.SetDepthLabels([]string{"changed"})
	h, _ = f.tree.Handle(f.ids()[1])
	if h.Depth.Text != "changed" {
		t.Errorf("expected updated depth label, got %q", h.Depth.Text)
	}
	// Changes after the re-render still patch the view.
	_ = f.tree.Rename(f.ids()[1], "after")
	if f.tree.Element(f.ids()[1]).Text != "after" {
		t.Error("view stopped syncing after SetDepthLabels")
	}
}

func TestTree_LoggerReceivesWarnings(t *testing.T) {
	var buf bytes.Buffer
	f := newFixture(t, Options{Logger: log.New(&buf, "", 0)})
	f.tree.HandlePointer(gesture.PointerEvent{Type: gesture.Click, Button: gesture.ButtonLeft,
		Target: gesture.Target{NodeID: "ghost", Region: gesture.RegionToggle}})
	if !strings.Contains(buf.String(), "warning: toggle ghost") {
		t.Errorf("expected a toggle warning, got %q", buf.String())
	}
}

func newWallClockTree(t *testing.T, opts Options) (*Tree, string) {
	t.Helper()
	doc := view.NewDocument()
	doc.CreateRoot("tree", "ul")
	opts.RootElement = "tree"
	opts.ClickDelay = time.Millisecond
	tr, err := New(doc, sampleData, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	kids, _ := tr.Model().Children("")
	return tr, kids[0].ID
}

// Run with -race: the expired timer must not touch the tree while the
// owner keeps reading it.
func TestTree_WallClockQueuesSingleClick(t *testing.T) {
	tr, id := newWallClockTree(t, Options{})
	tr.HandlePointer(gesture.PointerEvent{Type: gesture.Click, Button: gesture.ButtonLeft,
		Target: gesture.Target{NodeID: id, Region: gesture.RegionValue}})

	deadline := time.After(2 * time.Second)
	for waiting := true; waiting; {
		_ = tr.Model().SelectedID()
		_ = tr.HTML()
		select {
		case <-tr.Pending():
			waiting = false
		case <-deadline:
			t.Fatal("timed out waiting for the click timer")
		default:
		}
	}

	if got := tr.Model().SelectedID(); got != "" {
		t.Errorf("expected no selection before RunPending, got %q", got)
	}
	if n := tr.RunPending(); n != 1 {
		t.Errorf("expected 1 queued callback, got %d", n)
	}
	if got := tr.Model().SelectedID(); got != id {
		t.Errorf("expected %s selected, got %q", id, got)
	}
	if tr.RunPending() != 0 {
		t.Error("expected the queue to be empty")
	}
}

func TestTree_DispatchOption(t *testing.T) {
	posted := make(chan func(), 1)
	tr, id := newWallClockTree(t, Options{Dispatch: func(fn func()) { posted <- fn }})
	if tr.Pending() != nil {
		t.Error("expected no internal queue with a Dispatch func")
	}
	tr.HandlePointer(gesture.PointerEvent{Type: gesture.Click, Button: gesture.ButtonLeft,
		Target: gesture.Target{NodeID: id, Region: gesture.RegionValue}})

	select {
	case fn := <-posted:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the dispatched callback")
	}
	if got := tr.Model().SelectedID(); got != id {
		t.Errorf("expected %s selected, got %q", id, got)
	}
}
