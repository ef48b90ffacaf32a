// Package tree holds the in-memory node store and the tree model built on
// top of it.
//
// The Store owns nodes and parent/child adjacency and knows nothing about
// rendering. The Model wraps a Store with named operations, enforces the
// structural invariants and notifies subscribers after each committed
// change.
package tree

import (
	"slices"

	"github.com/vanderheijden86/arbor/pkg/model"
)

// storeNode is the mutable record behind a model.Node.
type storeNode struct {
	id       string
	title    string
	state    model.NodeState
	depth    int
	parentID string
	childIDs []string
	selected bool
}

func (n *storeNode) snapshot() model.Node {
	out := model.Node{
		ID:       n.id,
		Title:    n.title,
		State:    n.state,
		Depth:    n.depth,
		ParentID: n.parentID,
		Selected: n.selected,
	}
	if len(n.childIDs) > 0 {
		out.ChildIDs = slices.Clone(n.childIDs)
	}
	return out
}

// Store owns the id → node mapping and the parent/child adjacency.
type Store struct {
	nodes        map[string]*storeNode
	issued       map[string]struct{} // Every id ever handed out, removed ones included
	reserved     map[string]struct{} // Caller ids of a batch being added
	gen          IDGenerator
	defaultState model.NodeState
}

// NewStore creates a store holding only the synthetic root.
// A nil generator defaults to sequential "node-N" ids.
func NewStore(gen IDGenerator, defaultState model.NodeState) *Store {
	if gen == nil {
		gen = NewSequentialIDs("")
	}
	if !defaultState.IsValid() {
		defaultState = model.StateClosed
	}
	s := &Store{
		nodes:        make(map[string]*storeNode),
		issued:       make(map[string]struct{}),
		reserved:     make(map[string]struct{}),
		gen:          gen,
		defaultState: defaultState,
	}
	s.nodes[RootID] = &storeNode{id: RootID, state: model.StateOpened}
	s.issued[RootID] = struct{}{}
	return s
}

// RootID returns the id of the synthetic root.
func (s *Store) RootID() string { return RootID }

// Len returns the number of nodes, excluding the root.
func (s *Store) Len() int { return len(s.nodes) - 1 }

// Has reports whether id refers to a live node (the root included).
func (s *Store) Has(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

// Issued reports whether id was ever handed out by this store.
func (s *Store) Issued(id string) bool {
	_, ok := s.issued[id]
	return ok
}

// CreateNode creates a node under parentID and returns its generated id.
// The node is appended as the last child.
func (s *Store) CreateNode(title, parentID string) (string, error) {
	id := s.nextID()
	if err := s.create(id, title, parentID, s.defaultState); err != nil {
		return "", err
	}
	return id, nil
}

// CreateNodeWithID creates a node with a caller-supplied id.
func (s *Store) CreateNodeWithID(id, title, parentID string) error {
	if id == "" {
		return model.InvalidOperation("create", id, "empty id")
	}
	if s.Issued(id) {
		return model.InvalidOperation("create", id, "id already issued")
	}
	return s.create(id, title, parentID, s.defaultState)
}

// reserve keeps generated ids away from ids a batch is about to claim.
// The returned func releases them.
func (s *Store) reserve(ids []string) func() {
	for _, id := range ids {
		s.reserved[id] = struct{}{}
	}
	return func() {
		for _, id := range ids {
			delete(s.reserved, id)
		}
	}
}

func (s *Store) nextID() string {
	for {
		id := s.gen.NextID()
		if id == "" || s.Issued(id) {
			continue
		}
		if _, taken := s.reserved[id]; taken {
			continue
		}
		return id
	}
}

func (s *Store) create(id, title, parentID string, state model.NodeState) error {
	parent, ok := s.nodes[parentID]
	if !ok {
		return model.NotFound("create", parentID)
	}
	if _, exists := s.nodes[id]; exists {
		return model.InvalidOperation("create", id, "id in use")
	}
	s.nodes[id] = &storeNode{
		id:       id,
		title:    title,
		state:    state,
		depth:    parent.depth + 1,
		parentID: parentID,
	}
	s.issued[id] = struct{}{}
	parent.childIDs = append(parent.childIDs, id)
	return nil
}

// DeleteNode removes id and all of its descendants. It returns the removed
// ids in pre-order (id first).
func (s *Store) DeleteNode(id string) ([]string, error) {
	n, ok := s.nodes[id]
	if !ok || id == RootID {
		return nil, model.NotFound("delete", id)
	}

	if parent, ok := s.nodes[n.parentID]; ok {
		parent.childIDs = removeID(parent.childIDs, id)
	}

	removed := s.subtreeIDs(id)
	for _, rid := range removed {
		delete(s.nodes, rid)
	}
	return removed, nil
}

// Reparent moves id to the end of newParentID's children and shifts the
// depth of the whole subtree by the same delta.
func (s *Store) Reparent(id, newParentID string) error {
	n, ok := s.nodes[id]
	if !ok || id == RootID {
		return model.NotFound("reparent", id)
	}
	newParent, ok := s.nodes[newParentID]
	if !ok {
		return model.NotFound("reparent", newParentID)
	}
	if id == newParentID || s.IsAncestor(id, newParentID) {
		return &model.TreeError{Op: "reparent", ID: id, Target: newParentID, Err: model.ErrCycle}
	}

	if oldParent, ok := s.nodes[n.parentID]; ok {
		oldParent.childIDs = removeID(oldParent.childIDs, id)
	}
	newParent.childIDs = append(newParent.childIDs, id)
	n.parentID = newParentID

	delta := newParent.depth + 1 - n.depth
	if delta != 0 {
		for _, sid := range s.subtreeIDs(id) {
			s.nodes[sid].depth += delta
		}
	}
	return nil
}

// IsAncestor reports whether ancestor is a proper ancestor of id.
func (s *Store) IsAncestor(ancestor, id string) bool {
	n, ok := s.nodes[id]
	if !ok {
		return false
	}
	for n.parentID != "" {
		if n.parentID == ancestor {
			return true
		}
		n, ok = s.nodes[n.parentID]
		if !ok {
			return false
		}
	}
	return false
}

// Node returns a copy of the node.
func (s *Store) Node(id string) (model.Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return model.Node{}, model.NotFound("get", id)
	}
	return n.snapshot(), nil
}

// Children returns copies of the node's children in display order.
func (s *Store) Children(id string) ([]model.Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, model.NotFound("children", id)
	}
	out := make([]model.Node, 0, len(n.childIDs))
	for _, cid := range n.childIDs {
		out = append(out, s.nodes[cid].snapshot())
	}
	return out, nil
}

// ParentID returns the id of the node's parent ("" for the root).
func (s *Store) ParentID(id string) (string, error) {
	n, ok := s.nodes[id]
	if !ok {
		return "", model.NotFound("parent", id)
	}
	return n.parentID, nil
}

// Walk visits id and its descendants depth-first in display order.
// Returning false from fn prunes that node's subtree.
func (s *Store) Walk(id string, fn func(model.Node) bool) error {
	if _, ok := s.nodes[id]; !ok {
		return model.NotFound("walk", id)
	}
	s.walk(id, fn)
	return nil
}

func (s *Store) walk(id string, fn func(model.Node) bool) {
	n := s.nodes[id]
	if !fn(n.snapshot()) {
		return
	}
	for _, cid := range n.childIDs {
		s.walk(cid, fn)
	}
}

// subtreeIDs returns id and every descendant id in pre-order.
func (s *Store) subtreeIDs(id string) []string {
	var out []string
	var visit func(string)
	visit = func(cur string) {
		out = append(out, cur)
		for _, cid := range s.nodes[cur].childIDs {
			visit(cid)
		}
	}
	visit(id)
	return out
}

// get returns the live record. Callers inside the package only.
func (s *Store) get(id string) (*storeNode, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

func removeID(ids []string, id string) []string {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1)
	}
	return ids
}
