package view

import (
	"strconv"

	"github.com/vanderheijden86/arbor/pkg/model"
)

// ClassNames are the class names the rendered markup uses.
type ClassNames struct {
	Edge     string `yaml:"edge"`     // li of a node with children
	Leaf     string `yaml:"leaf"`     // li of a node without children
	Value    string `yaml:"value"`    // Label span, the click/double-click region
	Selected string `yaml:"selected"` // Added to the selected label
	Subtree  string `yaml:"subtree"`  // Nested ul
	Editable string `yaml:"editable"` // Rename input
	Toggle   string `yaml:"toggle"`   // Toggle button; empty renders a bare button
	Helper   string `yaml:"helper"`   // Drag helper span
}

// StateLabels maps each state to the li class and the toggle button label.
type StateLabels struct {
	OpenedClass string `yaml:"opened_class"`
	OpenedLabel string `yaml:"opened_label"`
	ClosedClass string `yaml:"closed_class"`
	ClosedLabel string `yaml:"closed_label"`
}

// Class returns the li class for s.
func (l StateLabels) Class(s model.NodeState) string {
	if s == model.StateOpened {
		return l.OpenedClass
	}
	return l.ClosedClass
}

// Label returns the toggle button label for s.
func (l StateLabels) Label(s model.NodeState) string {
	if s == model.StateOpened {
		return l.OpenedLabel
	}
	return l.ClosedLabel
}

// Config parameterizes rendering.
type Config struct {
	Classes     ClassNames
	States      StateLabels
	DepthLabels []string // DepthLabels[d-1] is shown after labels at depth d
}

// DefaultClassNames returns the stock class names.
func DefaultClassNames() ClassNames {
	return ClassNames{
		Edge:     "edge_node",
		Leaf:     "leap_node",
		Value:    "valueClass",
		Selected: "selected",
		Subtree:  "Subtree",
		Editable: "editableClass",
		Helper:   "helper",
	}
}

// DefaultStateLabels returns the stock state classes and labels.
func DefaultStateLabels() StateLabels {
	return StateLabels{OpenedClass: "open", OpenedLabel: "-", ClosedClass: "close", ClosedLabel: "+"}
}

// DefaultConfig returns the stock render configuration.
func DefaultConfig() Config {
	return Config{Classes: DefaultClassNames(), States: DefaultStateLabels()}
}

// WithDefaults returns c with empty fields filled from the defaults.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&c.Classes.Edge, d.Classes.Edge)
	fill(&c.Classes.Leaf, d.Classes.Leaf)
	fill(&c.Classes.Value, d.Classes.Value)
	fill(&c.Classes.Selected, d.Classes.Selected)
	fill(&c.Classes.Subtree, d.Classes.Subtree)
	fill(&c.Classes.Editable, d.Classes.Editable)
	fill(&c.Classes.Helper, d.Classes.Helper)
	fill(&c.States.OpenedClass, d.States.OpenedClass)
	fill(&c.States.OpenedLabel, d.States.OpenedLabel)
	fill(&c.States.ClosedClass, d.States.ClosedClass)
	fill(&c.States.ClosedLabel, d.States.ClosedLabel)
	return c
}

// DepthLabel returns the decorative label for depth d, or "".
func (c Config) DepthLabel(depth int) string {
	if depth < 1 || depth > len(c.DepthLabels) {
		return ""
	}
	return c.DepthLabels[depth-1]
}

// DepthClass is the per-depth class on a label, e.g. "depth2".
func DepthClass(depth int) string {
	return "depth" + strconv.Itoa(depth)
}

// Source is the read side of a tree model.
type Source interface {
	Node(id string) (model.Node, error)
}

// Render builds the list items for ids, recursing depth-first. Ids the
// source does not know are skipped.
func Render(src Source, ids []string, cfg Config) []*Element {
	cfg = cfg.WithDefaults()
	items := make([]*Element, 0, len(ids))
	for _, id := range ids {
		if li := renderNode(src, id, cfg); li != nil {
			items = append(items, li)
		}
	}
	return items
}

// RenderNode builds the list item for a single node and its subtree.
func RenderNode(src Source, id string, cfg Config) *Element {
	return renderNode(src, id, cfg.WithDefaults())
}

func renderNode(src Source, id string, cfg Config) *Element {
	n, err := src.Node(id)
	if err != nil {
		return nil
	}
	if n.IsLeaf() {
		li := NewElement("li", cfg.Classes.Leaf)
		li.Key = n.ID
		li.AppendChild(renderLabel(n, cfg))
		li.AppendChild(renderDepthLabel(n, cfg))
		return li
	}

	li := NewElement("li", cfg.Classes.Edge, cfg.States.Class(n.State))
	li.Key = n.ID

	btn := NewElement("button", cfg.Classes.Toggle)
	btn.Key = n.ID
	btn.SetAttr("type", "button")
	btn.Text = cfg.States.Label(n.State)
	li.AppendChild(btn)

	li.AppendChild(renderLabel(n, cfg))
	li.AppendChild(renderDepthLabel(n, cfg))

	ul := NewElement("ul", cfg.Classes.Subtree)
	ul.Key = n.ID
	ul.Hidden = !n.IsOpen()
	for _, child := range Render(src, n.ChildIDs, cfg) {
		ul.AppendChild(child)
	}
	li.AppendChild(ul)
	return li
}

func renderLabel(n model.Node, cfg Config) *Element {
	span := NewElement("span", DepthClass(n.Depth), cfg.Classes.Value)
	span.ID = n.ID
	span.Key = n.ID
	span.Text = n.Title
	if n.Selected {
		span.AddClass(cfg.Classes.Selected)
	}
	return span
}

func renderDepthLabel(n model.Node, cfg Config) *Element {
	em := NewElement("em")
	em.Key = n.ID
	em.Text = cfg.DepthLabel(n.Depth)
	return em
}
