// Package view renders a tree model into a tree of typed elements and keeps
// that tree in step with the model's change notifications.
//
// Elements are plain data: a surface (the terminal UI, an HTML page, an
// SVG) reads them, and markup is only produced at the boundary by HTML.
package view

import (
	"html"
	"io"
	"slices"
	"sort"
	"strings"
)

// Element is a node of the rendered tree.
type Element struct {
	Tag      string
	ID       string            // Element identity (the node id for labels)
	Key      string            // Id of the tree node this element belongs to
	Classes  []string
	Hidden   bool
	Text     string
	Attrs    map[string]string
	Children []*Element

	parent *Element
}

// NewElement creates an element with the given tag and classes.
func NewElement(tag string, classes ...string) *Element {
	e := &Element{Tag: tag}
	for _, c := range classes {
		e.AddClass(c)
	}
	return e
}

// Parent returns the element this one is attached to, or nil.
func (e *Element) Parent() *Element { return e.parent }

// HasClass reports whether the element carries class c.
func (e *Element) HasClass(c string) bool {
	return slices.Contains(e.Classes, c)
}

// AddClass adds c unless it is empty or already present.
func (e *Element) AddClass(c string) {
	if c == "" || e.HasClass(c) {
		return
	}
	e.Classes = append(e.Classes, c)
}

// RemoveClass removes c if present.
func (e *Element) RemoveClass(c string) {
	if i := slices.Index(e.Classes, c); i >= 0 {
		e.Classes = slices.Delete(e.Classes, i, i+1)
	}
}

// SetClass adds or removes c.
func (e *Element) SetClass(c string, on bool) {
	if on {
		e.AddClass(c)
	} else {
		e.RemoveClass(c)
	}
}

// ReplaceClass swaps old for c, keeping c's position where old was.
func (e *Element) ReplaceClass(old, c string) {
	if i := slices.Index(e.Classes, old); i >= 0 && c != "" && !e.HasClass(c) {
		e.Classes[i] = c
		return
	}
	e.RemoveClass(old)
	e.AddClass(c)
}

// SetAttr sets an attribute.
func (e *Element) SetAttr(name, value string) {
	if e.Attrs == nil {
		e.Attrs = make(map[string]string)
	}
	e.Attrs[name] = value
}

// Attr returns an attribute value.
func (e *Element) Attr(name string) string {
	return e.Attrs[name]
}

// AppendChild attaches child as the last child, detaching it first if needed.
func (e *Element) AppendChild(child *Element) {
	child.Detach()
	child.parent = e
	e.Children = append(e.Children, child)
}

// InsertBefore attaches child right before ref. A nil or foreign ref appends.
func (e *Element) InsertBefore(child, ref *Element) {
	child.Detach()
	i := slices.Index(e.Children, ref)
	if ref == nil || i < 0 {
		e.AppendChild(child)
		return
	}
	child.parent = e
	e.Children = slices.Insert(e.Children, i, child)
}

// ReplaceChild puts repl in old's position and detaches old.
func (e *Element) ReplaceChild(repl, old *Element) {
	i := slices.Index(e.Children, old)
	if i < 0 {
		e.AppendChild(repl)
		return
	}
	repl.Detach()
	// Detaching repl may have shifted old.
	i = slices.Index(e.Children, old)
	e.Children[i] = repl
	repl.parent = e
	old.parent = nil
}

// RemoveChild detaches child if it belongs to e.
func (e *Element) RemoveChild(child *Element) {
	if i := slices.Index(e.Children, child); i >= 0 {
		e.Children = slices.Delete(e.Children, i, i+1)
		child.parent = nil
	}
}

// Detach removes the element from its parent.
func (e *Element) Detach() {
	if e.parent != nil {
		e.parent.RemoveChild(e)
	}
}

// RemoveChildren detaches all children.
func (e *Element) RemoveChildren() {
	for _, c := range e.Children {
		c.parent = nil
	}
	e.Children = nil
}

// Walk visits e and its descendants depth-first. Returning false prunes.
func (e *Element) Walk(fn func(*Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// Find returns the first element (e included) that matches.
func (e *Element) Find(match func(*Element) bool) *Element {
	var found *Element
	e.Walk(func(x *Element) bool {
		if found != nil {
			return false
		}
		if match(x) {
			found = x
			return false
		}
		return true
	})
	return found
}

// ByID finds a descendant (or e) by element id.
func (e *Element) ByID(id string) *Element {
	return e.Find(func(x *Element) bool { return x.ID == id })
}

// Visible reports whether neither e nor any ancestor is hidden.
func (e *Element) Visible() bool {
	for x := e; x != nil; x = x.parent {
		if x.Hidden {
			return false
		}
	}
	return true
}

// HTML renders the element as markup.
func (e *Element) HTML() string {
	var sb strings.Builder
	_ = e.WriteHTML(&sb)
	return sb.String()
}

// WriteHTML writes the element as markup. Text and attribute values are
// escaped; hidden elements get display:none.
func (e *Element) WriteHTML(w io.Writer) error {
	var sb strings.Builder
	e.writeHTML(&sb)
	_, err := io.WriteString(w, sb.String())
	return err
}

var voidTags = map[string]bool{"input": true, "br": true, "img": true}

func (e *Element) writeHTML(sb *strings.Builder) {
	sb.WriteString("<")
	sb.WriteString(e.Tag)
	if e.ID != "" {
		writeAttr(sb, "id", e.ID)
	}
	if len(e.Classes) > 0 {
		writeAttr(sb, "class", strings.Join(e.Classes, " "))
	}

	names := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		if k == "style" {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		writeAttr(sb, k, e.Attrs[k])
	}

	style := e.Attrs["style"]
	if e.Hidden {
		style = joinStyle(style, "display:none")
	}
	if style != "" {
		writeAttr(sb, "style", style)
	}
	sb.WriteString(">")

	if voidTags[e.Tag] {
		return
	}
	sb.WriteString(html.EscapeString(e.Text))
	for _, c := range e.Children {
		c.writeHTML(sb)
	}
	sb.WriteString("</")
	sb.WriteString(e.Tag)
	sb.WriteString(">")
}

func writeAttr(sb *strings.Builder, name, value string) {
	sb.WriteString(" ")
	sb.WriteString(name)
	sb.WriteString(`="`)
	sb.WriteString(html.EscapeString(value))
	sb.WriteString(`"`)
}

func joinStyle(a, b string) string {
	a = strings.TrimRight(strings.TrimSpace(a), ";")
	if a == "" {
		return b
	}
	return a + ";" + b
}
