package view

import (
	"fmt"
	"io"
	"log"

	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/tree"
)

// Handle groups the rendered elements of one node.
type Handle struct {
	Item    *Element // li
	Toggle  *Element // button, edge nodes only
	Label   *Element // span carrying the node id
	Depth   *Element // em depth label
	Subtree *Element // ul, edge nodes only
	Input   *Element // rename input while editing
}

type changeHandler func(*Sync, tree.Change)

// Sync keeps a rendered element tree in step with a tree model. It owns the
// id → handle map; nothing else looks elements up by id.
type Sync struct {
	src    Source
	rootID string
	root   *Element
	cfg    Config
	logger *log.Logger

	handles  map[string]*Handle
	dispatch map[tree.ChangeType]changeHandler

	editing string
	input   *Element
}

// NewSync creates a Sync rendering into root. The root element stands in
// for the synthetic root's child list.
func NewSync(src Source, rootID string, root *Element, cfg Config, logger *log.Logger) *Sync {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Sync{
		src:     src,
		rootID:  rootID,
		root:    root,
		cfg:     cfg.WithDefaults(),
		logger:  logger,
		handles: make(map[string]*Handle),
	}
	s.dispatch = map[tree.ChangeType]changeHandler{
		tree.ChangeAdded:     (*Sync).onAdded,
		tree.ChangeRemoved:   (*Sync).onRemoved,
		tree.ChangeRenamed:   (*Sync).onRenamed,
		tree.ChangeToggled:   (*Sync).onToggled,
		tree.ChangeSelection: (*Sync).onSelection,
		tree.ChangeMoved:     (*Sync).onMoved,
	}
	return s
}

// Config returns the effective render configuration.
func (s *Sync) Config() Config { return s.cfg }

// Root returns the element the tree renders into.
func (s *Sync) Root() *Element { return s.root }

// RenderAll rebuilds the whole view from the model.
func (s *Sync) RenderAll() {
	s.root.RemoveChildren()
	s.handles = map[string]*Handle{s.rootID: {Subtree: s.root}}
	n, err := s.src.Node(s.rootID)
	if err != nil {
		s.logger.Printf("warning: render: %v", err)
		return
	}
	for _, li := range Render(s.src, n.ChildIDs, s.cfg) {
		s.root.AppendChild(li)
		s.index(li)
	}
	s.restoreEdit()
}

// Apply patches the view for one committed change.
func (s *Sync) Apply(c tree.Change) {
	h, ok := s.dispatch[c.Type]
	if !ok {
		s.logger.Printf("warning: no view handler for change %q", c.Type)
		return
	}
	h(s, c)
}

// Handle returns the rendered elements for a node.
func (s *Sync) Handle(id string) (*Handle, bool) {
	h, ok := s.handles[id]
	return h, ok
}

// Element returns the label element for a node, or nil.
func (s *Sync) Element(id string) *Element {
	if h, ok := s.handles[id]; ok {
		return h.Label
	}
	return nil
}

// Editing returns the id of the node being renamed, or "".
func (s *Sync) Editing() string { return s.editing }

// EditInput returns the rename input while editing, or nil.
func (s *Sync) EditInput() *Element { return s.input }

// BeginEdit inserts a rename input before the node's label and hides the
// label. Any other edit in progress is ended first.
func (s *Sync) BeginEdit(id string) (*Element, error) {
	h, ok := s.handles[id]
	if !ok || h.Label == nil {
		return nil, fmt.Errorf("begin edit: no rendered node %q", id)
	}
	if s.editing != "" {
		s.EndEdit()
	}
	in := NewElement("input", s.cfg.Classes.Editable)
	in.Key = id
	in.SetAttr("type", "text")
	in.SetAttr("value", h.Label.Text)
	s.editing, s.input = id, in
	s.attachInput(h)
	return in, nil
}

// EndEdit removes the rename input and shows the label again.
func (s *Sync) EndEdit() {
	if s.editing == "" {
		return
	}
	if h, ok := s.handles[s.editing]; ok {
		h.Input = nil
		if h.Label != nil {
			h.Label.Hidden = false
		}
	}
	if s.input != nil {
		s.input.Detach()
	}
	s.editing, s.input = "", nil
}

func (s *Sync) attachInput(h *Handle) {
	h.Item.InsertBefore(s.input, h.Label)
	h.Label.Hidden = true
	h.Input = s.input
}

// restoreEdit re-attaches the rename input after its node was re-rendered,
// or drops the edit if the node is gone.
func (s *Sync) restoreEdit() {
	if s.editing == "" {
		return
	}
	h, ok := s.handles[s.editing]
	if !ok {
		s.input.Detach()
		s.editing, s.input = "", nil
		return
	}
	if h.Input == nil {
		s.attachInput(h)
	}
}

// index records handles for every node rendered under e.
func (s *Sync) index(e *Element) {
	e.Walk(func(x *Element) bool {
		if x.Key == "" {
			return true
		}
		h := s.handles[x.Key]
		if h == nil || (x.Tag == "li" && h.Item != x) {
			h = &Handle{}
			s.handles[x.Key] = h
		}
		switch x.Tag {
		case "li":
			h.Item = x
		case "button":
			h.Toggle = x
		case "span":
			h.Label = x
		case "em":
			h.Depth = x
		case "ul":
			h.Subtree = x
		case "input":
			h.Input = x
		}
		return true
	})
}

// forget drops the handles for every node rendered under e.
func (s *Sync) forget(e *Element) {
	e.Walk(func(x *Element) bool {
		if x.Tag == "li" && x.Key != "" {
			delete(s.handles, x.Key)
		}
		return true
	})
}

// rerender replaces a node's whole item (used when it switches between
// the edge and leaf templates).
func (s *Sync) rerender(id string) {
	h, ok := s.handles[id]
	if !ok || h.Item == nil {
		return
	}
	li := RenderNode(s.src, id, s.cfg)
	if li == nil {
		return
	}
	parent := h.Item.Parent()
	s.forget(h.Item)
	if parent != nil {
		parent.ReplaceChild(li, h.Item)
	}
	s.index(li)
	s.restoreEdit()
}

// childList returns the element that holds id's child items, re-rendering
// id first if it was rendered as a leaf.
func (s *Sync) childList(id string) (*Element, bool) {
	h, ok := s.handles[id]
	if !ok {
		return nil, false
	}
	if h.Subtree == nil {
		s.rerender(id)
		return nil, true
	}
	return h.Subtree, false
}

func (s *Sync) onAdded(c tree.Change) {
	ul, rerendered := s.childList(c.ParentID)
	if rerendered {
		return
	}
	if ul == nil {
		s.logger.Printf("warning: added under unrendered node %s", c.ParentID)
		return
	}
	for _, li := range Render(s.src, c.IDs, s.cfg) {
		ul.AppendChild(li)
		s.index(li)
	}
}

func (s *Sync) onRemoved(c tree.Change) {
	if h, ok := s.handles[c.NodeID]; ok && h.Item != nil {
		h.Item.Detach()
		s.forget(h.Item)
	}
	for _, id := range c.IDs {
		delete(s.handles, id)
	}
	s.leafCheck(c.ParentID)
	s.restoreEdit()
}

// leafCheck re-renders id as a leaf once its last child is gone.
func (s *Sync) leafCheck(id string) {
	if id == s.rootID {
		return
	}
	h, ok := s.handles[id]
	if !ok || h.Subtree == nil {
		return
	}
	if n, err := s.src.Node(id); err == nil && n.IsLeaf() {
		s.rerender(id)
	}
}

func (s *Sync) onRenamed(c tree.Change) {
	h, ok := s.handles[c.NodeID]
	if !ok || h.Label == nil {
		s.logger.Printf("warning: rename of unrendered node %s", c.NodeID)
		return
	}
	h.Label.Text = c.Title
}

func (s *Sync) onToggled(c tree.Change) {
	h, ok := s.handles[c.NodeID]
	if !ok {
		s.logger.Printf("warning: toggle of unrendered node %s", c.NodeID)
		return
	}
	// Leaves carry a state but render no toggle.
	if h.Toggle == nil || h.Subtree == nil {
		return
	}
	st := s.cfg.States
	h.Item.ReplaceClass(st.Class(c.State.Flip()), st.Class(c.State))
	h.Toggle.Text = st.Label(c.State)
	h.Subtree.Hidden = c.State != model.StateOpened
}

func (s *Sync) onSelection(c tree.Change) {
	sel := s.cfg.Classes.Selected
	if h, ok := s.handles[c.PrevSelectedID]; ok && h.Label != nil {
		h.Label.RemoveClass(sel)
	}
	if h, ok := s.handles[c.NodeID]; ok && h.Label != nil {
		h.Label.AddClass(sel)
	}
}

func (s *Sync) onMoved(c tree.Change) {
	h, ok := s.handles[c.NodeID]
	if !ok || h.Item == nil {
		s.logger.Printf("warning: move of unrendered node %s", c.NodeID)
		return
	}
	h.Item.Detach()
	s.forget(h.Item)
	s.leafCheck(c.OriginalParentID)

	ul, rerendered := s.childList(c.NewParentID)
	if !rerendered {
		if ul == nil {
			s.logger.Printf("warning: move under unrendered node %s", c.NewParentID)
			return
		}
		// Depth classes change with the move, so the subtree is rendered anew.
		if li := RenderNode(s.src, c.NodeID, s.cfg); li != nil {
			ul.AppendChild(li)
			s.index(li)
		}
	}
	s.restoreEdit()
}
