package export

import (
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/arbor/pkg/view"
)

const (
	colorBg       = "#282a36"
	colorFg       = "#f8f8f2"
	colorMuted    = "#6272a4"
	colorPurple   = "#bd93f9"
	colorEdge     = "#44475a"
	colorLeaf     = "#21222c"
	colorSelected = "#50fa7b"
)

// WriteSVG draws the visible rows as an indented box diagram with
// connectors from each node to its parent.
func WriteSVG(w io.Writer, rows []view.Row, opts DiagramOptions) error {
	opts = opts.withDefaults()
	d := layoutRows(rows, opts)

	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	canvas.Start(d.width, d.height)
	canvas.Rect(0, 0, d.width, d.height, "fill:"+colorBg)
	if opts.Title != "" {
		canvas.Title(opts.Title)
		canvas.Text(opts.Padding, opts.Padding+opts.RowHeight/2+4, opts.Title,
			fmt.Sprintf("fill:%s;font-family:monospace;font-size:14px;font-weight:bold", colorFg))
	}

	canvas.Gstyle(fmt.Sprintf("stroke:%s;stroke-width:1;fill:none", colorMuted))
	for _, b := range d.boxes {
		if b.parent < 0 {
			continue
		}
		p := d.boxes[b.parent]
		x := p.x + opts.Indent/2
		canvas.Polyline([]int{x, x, b.x}, []int{p.y + p.h, b.y + b.h/2, b.y + b.h/2})
	}
	canvas.Gend()

	for _, b := range d.boxes {
		fill := colorLeaf
		if !b.row.Leaf {
			fill = colorEdge
		}
		stroke := colorEdge
		if b.row.Selected {
			stroke = colorSelected
		}
		canvas.Roundrect(b.x, b.y, b.w, b.h, 3, 3,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.5", fill, stroke))

		textY := b.y + b.h/2 + 4
		label := b.label()
		canvas.Text(b.x+opts.Padding, textY, label,
			fmt.Sprintf("fill:%s;font-family:monospace;font-size:12px", colorFg))
		if b.row.DepthLabel != "" {
			lx := b.x + opts.Padding + (runewidth.StringWidth(label)+2)*opts.CharWidth
			canvas.Text(lx, textY, b.row.DepthLabel,
				fmt.Sprintf("fill:%s;font-family:monospace;font-size:11px;font-style:italic", colorPurple))
		}
	}
	canvas.End()
	return ew.err
}

// errWriter remembers the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return len(p), nil
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}
