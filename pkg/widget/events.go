package widget

import (
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/tree"
)

// Event names fired by a Tree.
const (
	EventSingleClick = "singleClick"
	EventDoubleClick = "doubleClick"
	EventMove        = "move"
	EventAdd         = "add"
	EventRemove      = "remove"
	EventRename      = "rename"
	EventToggle      = "toggle"
	EventSelect      = "select"
	EventDragStart   = "dragStart"
	EventDrop        = "drop"
)

// Event is the payload handed to handlers. Only the fields relevant to
// Name are set.
type Event struct {
	Name     string
	NodeID   string
	ParentID string
	IDs      []string
	Title    string
	State    model.NodeState

	PrevSelectedID   string
	OriginalParentID string
	NewParentID      string
	TargetID         string // drop
}

// Handler receives fired events.
type Handler func(Event)

type handlerEntry struct {
	id int
	fn Handler
}

var changeEvents = map[tree.ChangeType]string{
	tree.ChangeAdded:     EventAdd,
	tree.ChangeRemoved:   EventRemove,
	tree.ChangeRenamed:   EventRename,
	tree.ChangeToggled:   EventToggle,
	tree.ChangeSelection: EventSelect,
	tree.ChangeMoved:     EventMove,
}

func eventFromChange(c tree.Change) Event {
	return Event{
		Name:             changeEvents[c.Type],
		NodeID:           c.NodeID,
		ParentID:         c.ParentID,
		IDs:              c.IDs,
		Title:            c.Title,
		State:            c.State,
		PrevSelectedID:   c.PrevSelectedID,
		OriginalParentID: c.OriginalParentID,
		NewParentID:      c.NewParentID,
	}
}

// On registers a handler for an event name and returns a function that
// removes it.
func (t *Tree) On(name string, h Handler) func() {
	t.nextHandler++
	id := t.nextHandler
	t.handlers[name] = append(t.handlers[name], handlerEntry{id: id, fn: h})
	return func() {
		hs := t.handlers[name]
		for i, e := range hs {
			if e.id == id {
				t.handlers[name] = append(hs[:i:i], hs[i+1:]...)
				return
			}
		}
	}
}

// Fire calls the handlers registered for name, in registration order.
func (t *Tree) Fire(name string, ev Event) {
	ev.Name = name
	hs := append([]handlerEntry(nil), t.handlers[name]...)
	for _, h := range hs {
		h.fn(ev)
	}
}
