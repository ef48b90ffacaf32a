package tree

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/arbor/pkg/model"
)

// ChangeType identifies the kind of committed change a Change describes.
type ChangeType string

const (
	ChangeAdded     ChangeType = "added"
	ChangeRemoved   ChangeType = "removed"
	ChangeRenamed   ChangeType = "renamed"
	ChangeToggled   ChangeType = "toggled"
	ChangeSelection ChangeType = "selectionChanged"
	ChangeMoved     ChangeType = "moved"
)

// Change describes the minimal effect of one committed mutation.
// Only the fields relevant to Type are set.
type Change struct {
	Type   ChangeType
	NodeID string

	// added: parent and the top-level ids created.
	// removed: former parent and every destroyed id (pre-order).
	ParentID string
	IDs      []string

	// removed: the destroyed subtree held the selection.
	WasSelected bool

	// toggled
	State model.NodeState

	// renamed
	Title string

	// selectionChanged: NodeID is the newly selected node ("" after unselect).
	PrevSelectedID string

	// moved
	OriginalParentID string
	NewParentID      string
}

// Observer receives committed changes.
type Observer func(Change)

type observerEntry struct {
	id int
	fn Observer
}

// Option configures a Model.
type Option func(*modelConfig)

type modelConfig struct {
	gen          IDGenerator
	defaultState model.NodeState
}

// WithIDGenerator sets the generator used for ids the caller does not supply.
func WithIDGenerator(gen IDGenerator) Option {
	return func(c *modelConfig) { c.gen = gen }
}

// WithDefaultState sets the state new nodes start in (closed by default).
func WithDefaultState(state model.NodeState) Option {
	return func(c *modelConfig) { c.defaultState = state }
}

// Model wraps a Store with named operations mirroring user intent.
// Each operation that changes the tree notifies observers exactly once,
// after the change is committed.
type Model struct {
	store      *Store
	selectedID string

	observers    []observerEntry
	nextObserver int
}

// NewModel creates an empty model (root only).
func NewModel(opts ...Option) *Model {
	cfg := modelConfig{defaultState: model.StateClosed}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Model{store: NewStore(cfg.gen, cfg.defaultState)}
}

// Subscribe registers an observer. Observers run in registration order.
// The returned function removes the observer.
func (m *Model) Subscribe(fn Observer) func() {
	m.nextObserver++
	id := m.nextObserver
	m.observers = append(m.observers, observerEntry{id: id, fn: fn})
	return func() {
		for i, o := range m.observers {
			if o.id == id {
				m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

func (m *Model) notify(c Change) {
	// Copy so observers may subscribe/unsubscribe while being notified.
	observers := append([]observerEntry(nil), m.observers...)
	for _, o := range observers {
		o.fn(c)
	}
}

// resolveParent maps "" to the root.
func resolveParent(id string) string {
	if id == "" {
		return RootID
	}
	return id
}

// Add creates nodes for items (recursively) under parentID ("" = root)
// and returns the ids of the top-level nodes in input order.
// The whole batch is validated before anything is created.
func (m *Model) Add(items []model.Item, parentID string) ([]string, error) {
	parentID = resolveParent(parentID)
	if !m.store.Has(parentID) {
		return nil, model.NotFound("add", parentID)
	}
	callerIDs, err := m.validateItems(items)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []string{}, nil
	}
	defer m.store.reserve(callerIDs)()

	ids := make([]string, 0, len(items))
	for _, it := range items {
		id, err := m.addItem(it, parentID)
		if err != nil {
			// Unreachable after validation; surface rather than hide it.
			return nil, fmt.Errorf("add %q: %w", it.Title, err)
		}
		ids = append(ids, id)
	}

	m.notify(Change{Type: ChangeAdded, NodeID: parentID, ParentID: parentID, IDs: ids})
	return ids, nil
}

// validateItems checks the whole batch and returns its caller-supplied ids.
func (m *Model) validateItems(items []model.Item) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	var check func([]model.Item) error
	check = func(items []model.Item) error {
		for i := range items {
			it := &items[i]
			if err := it.Validate(); err != nil {
				return &model.TreeError{Op: "add", ID: it.ID, Err: fmt.Errorf("%w: %v", model.ErrInvalidOperation, err)}
			}
			if it.ID != "" {
				if _, dup := seen[it.ID]; dup || m.store.Issued(it.ID) {
					return model.InvalidOperation("add", it.ID, "duplicate id")
				}
				seen[it.ID] = struct{}{}
				ids = append(ids, it.ID)
			}
			if err := check(it.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check(items); err != nil {
		return nil, err
	}
	return ids, nil
}

func (m *Model) addItem(it model.Item, parentID string) (string, error) {
	id := it.ID
	if id == "" {
		id = m.store.nextID()
	}
	state := it.State
	if state == "" {
		state = m.store.defaultState
	}
	if err := m.store.create(id, it.Title, parentID, state); err != nil {
		return "", err
	}
	for _, child := range it.Children {
		if _, err := m.addItem(child, id); err != nil {
			return "", err
		}
	}
	return id, nil
}

// Remove destroys id and its whole subtree.
func (m *Model) Remove(id string) error {
	if id == RootID {
		return model.InvalidOperation("remove", id, "the root cannot be removed")
	}
	n, ok := m.store.get(id)
	if !ok {
		return model.NotFound("remove", id)
	}
	parentID := n.parentID
	wasSelected := m.selectedID != "" && (m.selectedID == id || m.store.IsAncestor(id, m.selectedID))

	removed, err := m.store.DeleteNode(id)
	if err != nil {
		return err
	}
	if wasSelected {
		m.selectedID = ""
	}

	m.notify(Change{Type: ChangeRemoved, NodeID: id, ParentID: parentID, IDs: removed, WasSelected: wasSelected})
	return nil
}

// Rename changes a node's title.
func (m *Model) Rename(id, title string) error {
	n, ok := m.store.get(id)
	if !ok || id == RootID {
		return model.NotFound("rename", id)
	}
	if n.title == title {
		return nil
	}
	n.title = title
	m.notify(Change{Type: ChangeRenamed, NodeID: id, Title: title})
	return nil
}

// Open sets a node to opened. Already-open nodes are left untouched.
func (m *Model) Open(id string) error {
	return m.setState("open", id, model.StateOpened)
}

// Close sets a node to closed. Already-closed nodes are left untouched.
func (m *Model) Close(id string) error {
	return m.setState("close", id, model.StateClosed)
}

// Toggle flips a node between opened and closed.
func (m *Model) Toggle(id string) error {
	n, ok := m.store.get(id)
	if !ok || id == RootID {
		return model.NotFound("toggle", id)
	}
	return m.setState("toggle", id, n.state.Flip())
}

func (m *Model) setState(op, id string, state model.NodeState) error {
	n, ok := m.store.get(id)
	if !ok || id == RootID {
		return model.NotFound(op, id)
	}
	if n.state == state {
		return nil
	}
	n.state = state
	m.notify(Change{Type: ChangeToggled, NodeID: id, State: state})
	return nil
}

// Select marks id as the single selected node, clearing any previous one.
func (m *Model) Select(id string) error {
	n, ok := m.store.get(id)
	if !ok || id == RootID {
		return model.NotFound("select", id)
	}
	if m.selectedID == id {
		return nil
	}
	prev := m.selectedID
	if p, ok := m.store.get(prev); ok {
		p.selected = false
	}
	n.selected = true
	m.selectedID = id
	m.notify(Change{Type: ChangeSelection, NodeID: id, PrevSelectedID: prev})
	return nil
}

// Unselect clears the selection if id holds it.
func (m *Model) Unselect(id string) error {
	n, ok := m.store.get(id)
	if !ok || id == RootID {
		return model.NotFound("unselect", id)
	}
	if !n.selected {
		return nil
	}
	n.selected = false
	m.selectedID = ""
	m.notify(Change{Type: ChangeSelection, NodeID: "", PrevSelectedID: id})
	return nil
}

// IsMoveAllowed reports whether id may be moved under targetID ("" = root):
// both exist, id is not the root, and targetID is neither id nor one of
// its descendants.
func (m *Model) IsMoveAllowed(id, targetID string) bool {
	targetID = resolveParent(targetID)
	if id == RootID || !m.store.Has(id) || !m.store.Has(targetID) {
		return false
	}
	return id != targetID && !m.store.IsAncestor(id, targetID)
}

// Move reparents id under newParentID ("" = root), appending it as the
// last child. Moving a node to its current parent is a no-op.
func (m *Model) Move(id, newParentID string) error {
	newParentID = resolveParent(newParentID)
	if id == RootID {
		return model.InvalidOperation("move", id, "the root cannot be moved")
	}
	n, ok := m.store.get(id)
	if !ok {
		return model.NotFound("move", id)
	}
	if !m.store.Has(newParentID) {
		return model.NotFound("move", newParentID)
	}
	if !m.IsMoveAllowed(id, newParentID) {
		return &model.TreeError{Op: "move", ID: id, Target: newParentID,
			Err: fmt.Errorf("%w: target is the node itself or one of its descendants", model.ErrInvalidOperation)}
	}
	original := n.parentID
	if original == newParentID {
		return nil
	}

	if err := m.store.Reparent(id, newParentID); err != nil {
		if errors.Is(err, model.ErrCycle) {
			return &model.TreeError{Op: "move", ID: id, Target: newParentID,
				Err: fmt.Errorf("%w: %v", model.ErrInvalidOperation, err)}
		}
		return err
	}

	m.notify(Change{Type: ChangeMoved, NodeID: id, OriginalParentID: original, NewParentID: newParentID})
	return nil
}

// RootID returns the id of the synthetic root.
func (m *Model) RootID() string { return RootID }

// Len returns the number of nodes, excluding the root.
func (m *Model) Len() int { return m.store.Len() }

// Has reports whether id is a live node.
func (m *Model) Has(id string) bool { return m.store.Has(id) }

// Node returns a copy of the node.
func (m *Model) Node(id string) (model.Node, error) { return m.store.Node(id) }

// Children returns copies of the node's children in display order.
func (m *Model) Children(id string) ([]model.Node, error) {
	return m.store.Children(resolveParent(id))
}

// ParentID returns the id of the node's parent.
func (m *Model) ParentID(id string) (string, error) { return m.store.ParentID(id) }

// SelectedID returns the selected node id, or "" when nothing is selected.
func (m *Model) SelectedID() string { return m.selectedID }

// IsDescendant reports whether id lies in ancestor's subtree (excluding
// ancestor itself).
func (m *Model) IsDescendant(id, ancestor string) bool {
	return m.store.IsAncestor(ancestor, id)
}

// Walk visits the subtree rooted at id ("" = root) depth-first.
func (m *Model) Walk(id string, fn func(model.Node) bool) error {
	return m.store.Walk(resolveParent(id), fn)
}

// Snapshot exports the tree below the root as nested items, ids and states
// included. Feeding the result to Add on an empty model rebuilds the tree.
func (m *Model) Snapshot() []model.Item {
	var build func(id string) []model.Item
	build = func(id string) []model.Item {
		n, _ := m.store.get(id)
		if len(n.childIDs) == 0 {
			return nil
		}
		items := make([]model.Item, 0, len(n.childIDs))
		for _, cid := range n.childIDs {
			c, _ := m.store.get(cid)
			items = append(items, model.Item{
				ID:       c.id,
				Title:    c.title,
				State:    c.state,
				Children: build(cid),
			})
		}
		return items
	}
	out := build(RootID)
	if out == nil {
		out = []model.Item{}
	}
	return out
}
