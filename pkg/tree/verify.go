package tree

import (
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Verify checks the structural invariants of the store: parent/child
// adjacency agrees in both directions, depths follow their parents, the
// parent graph is acyclic and at most one node is selected.
// It returns the first violation found.
func (m *Model) Verify() error {
	s := m.store

	// Assign stable int64 ids for gonum.
	gid := make(map[string]int64, len(s.nodes))
	g := simple.NewDirectedGraph()
	for id := range s.nodes {
		n := g.NewNode()
		g.AddNode(n)
		gid[id] = n.ID()
	}

	selected := 0
	for id, n := range s.nodes {
		if n.selected {
			selected++
			if m.selectedID != id {
				return fmt.Errorf("node %s is marked selected but selection is %q", id, m.selectedID)
			}
		}
		if id == RootID {
			if n.parentID != "" || n.depth != 0 {
				return fmt.Errorf("root has parent %q depth %d", n.parentID, n.depth)
			}
		} else {
			parent, ok := s.nodes[n.parentID]
			if !ok {
				return fmt.Errorf("node %s: parent %q missing", id, n.parentID)
			}
			if n.depth != parent.depth+1 {
				return fmt.Errorf("node %s: depth %d, parent depth %d", id, n.depth, parent.depth)
			}
			if count(parent.childIDs, id) != 1 {
				return fmt.Errorf("node %s: listed %d times by parent %s", id, count(parent.childIDs, id), n.parentID)
			}
		}
		for _, cid := range n.childIDs {
			c, ok := s.nodes[cid]
			if !ok {
				return fmt.Errorf("node %s: child %q missing", id, cid)
			}
			if c.parentID != id {
				return fmt.Errorf("node %s lists child %s whose parent is %q", id, cid, c.parentID)
			}
			if gid[id] == gid[cid] {
				return fmt.Errorf("node %s is its own child", id)
			}
			g.SetEdge(g.NewEdge(g.Node(gid[id]), g.Node(gid[cid])))
		}
	}
	if selected > 1 {
		return fmt.Errorf("%d nodes selected", selected)
	}
	if selected == 0 && m.selectedID != "" {
		return fmt.Errorf("selection %q not marked on any node", m.selectedID)
	}

	if _, err := topo.Sort(g); err != nil {
		return fmt.Errorf("parent graph has a cycle: %w", err)
	}
	return nil
}

func count(ids []string, id string) int {
	n := 0
	for _, x := range ids {
		if x == id {
			n++
		}
	}
	return n
}
