package export

import (
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/arbor/pkg/view"
)

// DiagramOptions controls the geometry of SVG and PNG diagrams.
type DiagramOptions struct {
	Title     string
	RowHeight int
	Indent    int
	CharWidth int // approximate advance of one terminal cell
	Padding   int
	MinWidth  int
}

// DefaultDiagramOptions matches the 7x13 bitmap font used for PNG output.
func DefaultDiagramOptions() DiagramOptions {
	return DiagramOptions{
		RowHeight: 24,
		Indent:    24,
		CharWidth: 7,
		Padding:   6,
		MinWidth:  240,
	}
}

func (o DiagramOptions) withDefaults() DiagramOptions {
	d := DefaultDiagramOptions()
	if o.RowHeight <= 0 {
		o.RowHeight = d.RowHeight
	}
	if o.Indent <= 0 {
		o.Indent = d.Indent
	}
	if o.CharWidth <= 0 {
		o.CharWidth = d.CharWidth
	}
	if o.Padding <= 0 {
		o.Padding = d.Padding
	}
	if o.MinWidth <= 0 {
		o.MinWidth = d.MinWidth
	}
	return o
}

// box is a laid-out row.
type box struct {
	row    view.Row
	x, y   int
	w, h   int
	parent int // index of the parent box, -1 for top level
}

// diagram is a row layout ready for drawing.
type diagram struct {
	boxes  []box
	width  int
	height int
	top    int // y of the first box, below the title
}

// layoutRows places one box per visible row, indented by depth, and links
// every box to the nearest preceding box one level up.
func layoutRows(rows []view.Row, opts DiagramOptions) diagram {
	opts = opts.withDefaults()
	d := diagram{top: opts.Padding}
	if opts.Title != "" {
		d.top += opts.RowHeight
	}

	lastAtDepth := map[int]int{}
	d.width = opts.MinWidth
	for i, r := range rows {
		label := r.Title
		if r.Toggle != "" {
			label = r.Toggle + " " + label
		}
		if r.DepthLabel != "" {
			label += "  " + r.DepthLabel
		}
		b := box{
			row:    r,
			x:      opts.Padding + (r.Depth-1)*opts.Indent,
			y:      d.top + i*opts.RowHeight,
			w:      runewidth.StringWidth(label)*opts.CharWidth + 2*opts.Padding,
			h:      opts.RowHeight - opts.Padding/2,
			parent: -1,
		}
		if p, ok := lastAtDepth[r.Depth-1]; ok && r.Depth > 1 {
			b.parent = p
		}
		lastAtDepth[r.Depth] = i
		d.boxes = append(d.boxes, b)
		if right := b.x + b.w + opts.Padding; right > d.width {
			d.width = right
		}
	}
	d.height = d.top + len(rows)*opts.RowHeight + opts.Padding
	return d
}

// label is the text drawn inside a box.
func (b box) label() string {
	if b.row.Toggle != "" {
		return b.row.Toggle + " " + b.row.Title
	}
	return b.row.Title
}
