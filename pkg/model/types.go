package model

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Node is a single entry in the tree.
//
// Values handed out by the tree package are copies; mutating a Node has no
// effect on the tree it came from.
type Node struct {
	ID       string    `json:"id" yaml:"id"`
	Title    string    `json:"title" yaml:"title"`
	State    NodeState `json:"state" yaml:"state"`
	Depth    int       `json:"depth" yaml:"depth"`
	ParentID string    `json:"parent_id,omitempty" yaml:"parent_id,omitempty"` // Empty only for the synthetic root
	ChildIDs []string  `json:"child_ids,omitempty" yaml:"child_ids,omitempty"` // Display order
	Selected bool      `json:"selected,omitempty" yaml:"selected,omitempty"`
}

// Clone creates a deep copy of the node
func (n Node) Clone() Node {
	clone := n
	if n.ChildIDs != nil {
		clone.ChildIDs = make([]string, len(n.ChildIDs))
		copy(clone.ChildIDs, n.ChildIDs)
	}
	return clone
}

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool {
	return len(n.ChildIDs) == 0
}

// IsRoot reports whether the node is the synthetic root.
func (n Node) IsRoot() bool {
	return n.ParentID == "" && n.Depth == 0
}

// IsOpen reports whether the node is in the opened state.
func (n Node) IsOpen() bool {
	return n.State == StateOpened
}

// NodeState represents whether a node's children are shown
type NodeState string

const (
	StateOpened NodeState = "opened"
	StateClosed NodeState = "closed"
)

// IsValid returns true if the state is a recognized value
func (s NodeState) IsValid() bool {
	switch s {
	case StateOpened, StateClosed:
		return true
	}
	return false
}

// Flip returns the opposite state.
func (s NodeState) Flip() NodeState {
	if s == StateOpened {
		return StateClosed
	}
	return StateOpened
}

// ParseNodeState accepts the canonical names plus the short forms used in
// older fixtures ("open", "close").
func ParseNodeState(s string) (NodeState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "opened", "open":
		return StateOpened, nil
	case "closed", "close":
		return StateClosed, nil
	}
	return "", fmt.Errorf("invalid node state: %q", s)
}

// Item describes a node to be created, optionally with nested children.
type Item struct {
	ID       string    `json:"id,omitempty" yaml:"id,omitempty"` // Optional caller-supplied id
	Title    string    `json:"title" yaml:"title"`
	State    NodeState `json:"state,omitempty" yaml:"state,omitempty"`
	Children []Item    `json:"children,omitempty" yaml:"children,omitempty"`
}

// itemAlias has the same fields as Item; it lets the decoders below
// fall back to the default decoding without recursing.
type itemAlias Item

// itemWire is the decoding shape of an Item. "text" is an older alias for
// "title".
type itemWire struct {
	itemAlias `yaml:",inline"`
	Text      string `json:"text,omitempty" yaml:"text,omitempty"`
}

// normalize fills Title from Text, then validates state names.
func (w itemWire) normalize() (Item, error) {
	it := Item(w.itemAlias)
	if it.Title == "" {
		it.Title = w.Text
	}
	if it.State != "" {
		st, err := ParseNodeState(string(it.State))
		if err != nil {
			return Item{}, err
		}
		it.State = st
	}
	return it, nil
}

// UnmarshalJSON decodes an Item, accepting "text" as an alias of "title".
func (i *Item) UnmarshalJSON(data []byte) error {
	var w itemWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	it, err := w.normalize()
	if err != nil {
		return err
	}
	*i = it
	return nil
}

// UnmarshalYAML decodes an Item, accepting "text" as an alias of "title".
func (i *Item) UnmarshalYAML(value *yaml.Node) error {
	var w itemWire
	if err := value.Decode(&w); err != nil {
		return err
	}
	it, err := w.normalize()
	if err != nil {
		return err
	}
	*i = it
	return nil
}

// Count returns the number of nodes the item describes, itself included.
func (i Item) Count() int {
	n := 1
	for _, c := range i.Children {
		n += c.Count()
	}
	return n
}

// Validate checks if the item data is logically valid
func (i *Item) Validate() error {
	if i.State != "" && !i.State.IsValid() {
		return fmt.Errorf("invalid state: %s", i.State)
	}
	for idx := range i.Children {
		if err := i.Children[idx].Validate(); err != nil {
			return fmt.Errorf("child %d of %q: %w", idx, i.Title, err)
		}
	}
	return nil
}
