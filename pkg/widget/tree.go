// Package widget is the embeddable tree widget: a tree model rendered into
// a Document, kept in sync with model changes and driven by pointer input
// or direct calls.
//
// A Tree is single-owner. All calls and pointer input must happen on one
// goroutine. Click timers never touch the tree from another goroutine: they
// go through Options.Dispatch, a loop-bound Clock, or the RunPending queue.
package widget

import (
	"fmt"
	"log"
	"strconv"

	"github.com/vanderheijden86/arbor/pkg/gesture"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/tree"
	"github.com/vanderheijden86/arbor/pkg/view"
)

// HelperState is the drag helper affordance as a surface should draw it.
type HelperState struct {
	Visible bool
	X, Y    int
	Text    string
}

// Tree is a rendered, interactive tree.
type Tree struct {
	opts   Options
	logger *log.Logger

	doc    *view.Document
	root   *view.Element
	helper *view.Element

	model  *tree.Model
	sync   *view.Sync
	router *gesture.Router
	queue  *callbackQueue // nil when the owner supplied a Clock or Dispatch

	handlers    map[string][]handlerEntry
	nextHandler int
}

// New builds a tree from data and renders it into the Document root named
// by opts.RootElement. It fails with model.ErrInvalidRootElement, leaving
// the document untouched, when that root does not exist.
func New(doc *view.Document, data []model.Item, opts Options) (*Tree, error) {
	if doc == nil || opts.RootElement == "" {
		return nil, fmt.Errorf("%w: no root element given", model.ErrInvalidRootElement)
	}
	root, ok := doc.Root(opts.RootElement)
	if !ok {
		return nil, fmt.Errorf("%w: %q not found", model.ErrInvalidRootElement, opts.RootElement)
	}

	m := tree.NewModel(opts.modelOptions()...)
	if _, err := m.Add(data, ""); err != nil {
		return nil, fmt.Errorf("initial data: %w", err)
	}

	t := &Tree{
		opts:     opts,
		logger:   opts.logger(),
		doc:      doc,
		root:     root,
		model:    m,
		handlers: make(map[string][]handlerEntry),
	}
	t.sync = view.NewSync(m, m.RootID(), root, opts.renderConfig(), t.logger)
	dispatch := opts.Dispatch
	if dispatch == nil && opts.Clock == nil {
		t.queue = newCallbackQueue()
		dispatch = t.queue.post
	}
	t.router = gesture.NewRouter(gesture.Config{
		ClickDelay:    opts.ClickDelay,
		Clock:         opts.Clock,
		UseDrag:       opts.UseDrag,
		DragThreshold: opts.DragThreshold,
		HelperOffset:  opts.helperPos(),
		Dispatch:      dispatch,
	}, m, t.onGesture)

	t.sync.RenderAll()
	m.Subscribe(func(c tree.Change) { t.sync.Apply(c) })
	m.Subscribe(func(c tree.Change) { t.Fire(changeEvents[c.Type], eventFromChange(c)) })
	return t, nil
}

// Model returns the underlying tree model. Mutations made through it are
// rendered and fired like those made through the Tree.
func (t *Tree) Model() *tree.Model { return t.model }

// Document returns the document the tree renders into.
func (t *Tree) Document() *view.Document { return t.doc }

// RootElement returns the element the tree renders into.
func (t *Tree) RootElement() *view.Element { return t.root }

// Element returns the label element of a node, or nil.
func (t *Tree) Element(id string) *view.Element { return t.sync.Element(id) }

// Handle returns all rendered elements of a node.
func (t *Tree) Handle(id string) (*view.Handle, bool) { return t.sync.Handle(id) }

// Config returns the effective render configuration.
func (t *Tree) Config() view.Config { return t.sync.Config() }

// HTML renders the tree's root element as markup.
func (t *Tree) HTML() string { return t.root.HTML() }

// Rows returns the visible rows in display order.
func (t *Tree) Rows() []view.Row { return view.Rows(t.root, t.sync.Config()) }

func (t *Tree) Open(id string) error   { return t.model.Open(id) }
func (t *Tree) Close(id string) error  { return t.model.Close(id) }
func (t *Tree) Toggle(id string) error { return t.model.Toggle(id) }
func (t *Tree) Select(id string) error { return t.model.Select(id) }

func (t *Tree) Unselect(id string) error { return t.model.Unselect(id) }

// Add creates nodes under parentID ("" = root) and returns the top-level ids.
func (t *Tree) Add(items []model.Item, parentID string) ([]string, error) {
	return t.model.Add(items, parentID)
}

func (t *Tree) Remove(id string) error               { return t.model.Remove(id) }
func (t *Tree) Move(id, newParentID string) error    { return t.model.Move(id, newParentID) }
func (t *Tree) Rename(id, title string) error        { return t.model.Rename(id, title) }
func (t *Tree) IsMoveAllowed(id, target string) bool { return t.model.IsMoveAllowed(id, target) }

// SetDepthLabels replaces the decorative depth labels and re-renders.
func (t *Tree) SetDepthLabels(labels []string) {
	t.sync.EndEdit()
	t.opts.DepthLabels = labels
	t.sync = view.NewSync(t.model, t.model.RootID(), t.root, t.opts.renderConfig(), t.logger)
	t.sync.RenderAll()
}

// Editing returns the id of the node being renamed, or "".
func (t *Tree) Editing() string { return t.sync.Editing() }

// BeginEdit puts a node into rename mode.
func (t *Tree) BeginEdit(id string) error {
	if !t.model.Has(id) {
		return model.NotFound("edit", id)
	}
	t.router.Reset()
	_, err := t.sync.BeginEdit(id)
	return err
}

// EditValue returns the current text of the rename input.
func (t *Tree) EditValue() string {
	if in := t.sync.EditInput(); in != nil {
		return in.Attr("value")
	}
	return ""
}

// SetEditValue updates the text of the rename input.
func (t *Tree) SetEditValue(v string) {
	if in := t.sync.EditInput(); in != nil {
		in.SetAttr("value", v)
	}
}

// CommitEdit ends rename mode and renames the node to title.
func (t *Tree) CommitEdit(title string) error {
	id := t.sync.Editing()
	if id == "" {
		return nil
	}
	t.sync.EndEdit()
	return t.model.Rename(id, title)
}

// CancelEdit ends rename mode without renaming.
func (t *Tree) CancelEdit() { t.sync.EndEdit() }

// DragHelper reports the drag helper affordance.
func (t *Tree) DragHelper() HelperState {
	if t.helper == nil {
		return HelperState{}
	}
	x, _ := strconv.Atoi(t.helper.Attr("data-x"))
	y, _ := strconv.Atoi(t.helper.Attr("data-y"))
	return HelperState{Visible: !t.helper.Hidden, X: x, Y: y, Text: t.helper.Text}
}

// SetOrigin sets the container origin subtracted from pointer positions.
func (t *Tree) SetOrigin(p gesture.Point) { t.router.SetOrigin(p) }

// HandlePointer feeds a raw pointer event to the widget. Queued timer
// callbacks run first. While a node is being renamed, drags cannot start
// and a click outside the input commits the rename.
func (t *Tree) HandlePointer(ev gesture.PointerEvent) {
	t.RunPending()
	if t.sync.Editing() != "" {
		switch ev.Type {
		case gesture.PointerDown:
			return
		case gesture.Click:
			if ev.Target.Region == gesture.RegionInput || ev.Button == gesture.ButtonRight {
				return
			}
			if err := t.CommitEdit(t.EditValue()); err != nil {
				t.logger.Printf("warning: rename: %v", err)
			}
		}
	}
	t.router.Handle(ev)
}

// ResetGestures drops any pending click or drag.
func (t *Tree) ResetGestures() {
	t.router.Reset()
	t.hideHelper()
}

// PendingClick reports whether a single click is waiting for a follow-up.
func (t *Tree) PendingClick() bool {
	return t.router.State() == gesture.PendingSingleClick
}

func (t *Tree) onGesture(a gesture.Action) {
	switch a.Type {
	case gesture.SingleClick:
		if !t.model.Has(a.NodeID) {
			return
		}
		if err := t.model.Select(a.NodeID); err != nil {
			t.logger.Printf("warning: select %s: %v", a.NodeID, err)
		}
		t.Fire(EventSingleClick, Event{NodeID: a.NodeID})
	case gesture.DoubleClick:
		if err := t.BeginEdit(a.NodeID); err != nil {
			t.logger.Printf("warning: edit %s: %v", a.NodeID, err)
			return
		}
		t.Fire(EventDoubleClick, Event{NodeID: a.NodeID})
	case gesture.ToggleClicked:
		if err := t.model.Toggle(a.NodeID); err != nil {
			t.logger.Printf("warning: toggle %s: %v", a.NodeID, err)
		}
	case gesture.DragStart:
		t.showHelper(a)
		t.Fire(EventDragStart, Event{NodeID: a.NodeID})
	case gesture.DragMove:
		t.placeHelper(a.Pos)
	case gesture.Drop:
		t.hideHelper()
		t.Fire(EventDrop, Event{NodeID: a.NodeID, TargetID: a.TargetID})
		if err := t.model.Move(a.NodeID, a.TargetID); err != nil {
			t.logger.Printf("warning: drop %s on %s: %v", a.NodeID, a.TargetID, err)
		}
	case gesture.DragCancel:
		t.hideHelper()
	}
}

func (t *Tree) showHelper(a gesture.Action) {
	if !t.opts.UseDrag || !t.opts.UseHelper {
		return
	}
	if t.helper == nil {
		t.helper = t.doc.CreateRoot(t.opts.RootElement+"-helper", "span")
		t.helper.AddClass(t.sync.Config().Classes.Helper)
		t.helper.Hidden = true
	}
	if n, err := t.model.Node(a.NodeID); err == nil {
		t.helper.Text = n.Title
	}
	t.placeHelper(a.Pos)
}

func (t *Tree) placeHelper(p gesture.Point) {
	if t.helper == nil {
		return
	}
	t.helper.SetAttr("data-x", strconv.Itoa(p.X))
	t.helper.SetAttr("data-y", strconv.Itoa(p.Y))
	t.helper.SetAttr("style", fmt.Sprintf("position:absolute;left:%dpx;top:%dpx", p.X, p.Y))
	t.helper.Hidden = false
}

func (t *Tree) hideHelper() {
	if t.helper != nil {
		t.helper.Hidden = true
	}
}
