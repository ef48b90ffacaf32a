package view

import "github.com/vanderheijden86/arbor/pkg/model"

// Row is one visible line of a rendered tree, read back from its elements.
type Row struct {
	ID         string
	Title      string
	DepthLabel string
	Depth      int // 1 for top-level nodes
	Leaf       bool
	State      model.NodeState
	Toggle     string // toggle button label, empty for leaves
	Selected   bool
	Editing    bool
	EditValue  string
}

// Rows flattens the visible part of a rendered tree into display order.
// Children of closed nodes are skipped because their subtree is hidden.
func Rows(root *Element, cfg Config) []Row {
	cfg = cfg.WithDefaults()
	var rows []Row
	var visit func(list *Element, depth int)
	visit = func(list *Element, depth int) {
		for _, li := range list.Children {
			row, sub := readItem(li, cfg)
			if row.ID == "" {
				continue
			}
			row.Depth = depth
			rows = append(rows, row)
			if sub != nil && !sub.Hidden {
				visit(sub, depth+1)
			}
		}
	}
	if root != nil {
		visit(root, 1)
	}
	return rows
}

func readItem(li *Element, cfg Config) (Row, *Element) {
	row := Row{Leaf: li.HasClass(cfg.Classes.Leaf), State: model.StateClosed}
	if li.HasClass(cfg.States.OpenedClass) {
		row.State = model.StateOpened
	}
	var sub *Element
	for _, c := range li.Children {
		switch {
		case c.Tag == "button":
			row.Toggle = c.Text
		case c.Tag == "input":
			row.Editing = true
			row.EditValue = c.Attr("value")
		case c.Tag == "span" && c.HasClass(cfg.Classes.Value):
			row.ID = c.ID
			row.Title = c.Text
			row.Selected = c.HasClass(cfg.Classes.Selected)
		case c.Tag == "em":
			row.DepthLabel = c.Text
		case c.Tag == "ul":
			sub = c
		}
	}
	return row, sub
}

// IndexOf returns the position of id in rows, or -1.
func IndexOf(rows []Row, id string) int {
	for i, r := range rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}
