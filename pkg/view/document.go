package view

import (
	"io"
	"strings"
)

// Document is a rendering surface: a set of top-level elements addressed
// by id, standing in for the page a widget is mounted into.
type Document struct {
	roots map[string]*Element
	order []string
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{roots: make(map[string]*Element)}
}

// CreateRoot adds an empty top-level element. An existing root with the
// same id is returned unchanged.
func (d *Document) CreateRoot(id, tag string) *Element {
	if e, ok := d.roots[id]; ok {
		return e
	}
	e := NewElement(tag)
	e.ID = id
	d.roots[id] = e
	d.order = append(d.order, id)
	return e
}

// Root returns the top-level element with the given id.
func (d *Document) Root(id string) (*Element, bool) {
	e, ok := d.roots[id]
	return e, ok
}

// Roots returns the top-level elements in creation order.
func (d *Document) Roots() []*Element {
	out := make([]*Element, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.roots[id])
	}
	return out
}

// ElementByID searches every root for an element id.
func (d *Document) ElementByID(id string) *Element {
	for _, r := range d.Roots() {
		if e := r.ByID(id); e != nil {
			return e
		}
	}
	return nil
}

// HTML renders every root in order.
func (d *Document) HTML() string {
	var sb strings.Builder
	_ = d.WriteHTML(&sb)
	return sb.String()
}

// WriteHTML writes every root in order, one per line.
func (d *Document) WriteHTML(w io.Writer) error {
	for _, r := range d.Roots() {
		if err := r.WriteHTML(w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}
