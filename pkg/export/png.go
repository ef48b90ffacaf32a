package export

import (
	"io"

	"git.sr.ht/~sbinet/gg"
	"github.com/mattn/go-runewidth"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/arbor/pkg/view"
)

// WritePNG rasterizes the same diagram WriteSVG draws, using the 7x13
// bitmap face so output does not depend on installed fonts.
func WritePNG(w io.Writer, rows []view.Row, opts DiagramOptions) error {
	opts = opts.withDefaults()
	d := layoutRows(rows, opts)

	dc := gg.NewContext(d.width, d.height)
	dc.SetHexColor(colorBg)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	if opts.Title != "" {
		dc.SetHexColor(colorFg)
		dc.DrawString(opts.Title, float64(opts.Padding), float64(opts.Padding+opts.RowHeight/2+4))
	}

	dc.SetHexColor(colorMuted)
	dc.SetLineWidth(1)
	for _, b := range d.boxes {
		if b.parent < 0 {
			continue
		}
		p := d.boxes[b.parent]
		x := float64(p.x + opts.Indent/2)
		midY := float64(b.y + b.h/2)
		dc.DrawLine(x, float64(p.y+p.h), x, midY)
		dc.DrawLine(x, midY, float64(b.x), midY)
		dc.Stroke()
	}

	for _, b := range d.boxes {
		fill := colorLeaf
		if !b.row.Leaf {
			fill = colorEdge
		}
		dc.DrawRoundedRectangle(float64(b.x), float64(b.y), float64(b.w), float64(b.h), 3)
		dc.SetHexColor(fill)
		dc.FillPreserve()
		if b.row.Selected {
			dc.SetHexColor(colorSelected)
		} else {
			dc.SetHexColor(colorEdge)
		}
		dc.SetLineWidth(1.5)
		dc.Stroke()

		textY := float64(b.y + b.h/2 + 4)
		label := b.label()
		dc.SetHexColor(colorFg)
		dc.DrawString(label, float64(b.x+opts.Padding), textY)
		if b.row.DepthLabel != "" {
			lx := b.x + opts.Padding + (runewidth.StringWidth(label)+2)*opts.CharWidth
			dc.SetHexColor(colorPurple)
			dc.DrawString(b.row.DepthLabel, float64(lx), textY)
		}
	}
	return dc.EncodePNG(w)
}
