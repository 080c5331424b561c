package charts

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Dark palette shared with the web page.
var (
	colorBackground = rgb(0x16, 0x1b, 0x22)
	colorPanel      = rgb(0x21, 0x26, 0x2d)
	colorText       = rgb(0xe6, 0xed, 0xf3)
	colorSecondary  = rgb(0x8b, 0x94, 0x9e)
	colorGrid       = rgb(0x30, 0x36, 0x3d)

	accents = []color.Color{
		rgb(0x58, 0xa6, 0xff),
		rgb(0x3f, 0xb9, 0x50),
		rgb(0xa3, 0x71, 0xf7),
		rgb(0xf0, 0x88, 0x3e),
		rgb(0xf8, 0x51, 0x49),
	}
)

// Figure size in inches, matching an 8x5 matplotlib figure.
const (
	figWidth  = 8 * vg.Inch
	figHeight = 5 * vg.Inch
)

func rgb(r, g, b uint8) color.Color { return color.RGBA{R: r, G: g, B: b, A: 0xff} }

func accent(i int) color.Color { return accents[i%len(accents)] }

// newPlot returns a plot styled with the dark theme.
func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.BackgroundColor = colorBackground
	p.Title.Text = title
	p.Title.TextStyle.Color = colorText
	p.Title.Padding = vg.Points(10)

	for _, ax := range []*plot.Axis{&p.X, &p.Y} {
		ax.LineStyle.Color = colorGrid
		ax.Label.TextStyle.Color = colorText
		ax.Tick.Label.Color = colorSecondary
		ax.Tick.LineStyle.Color = colorGrid
	}
	p.Legend.TextStyle.Color = colorText
	return p
}

// panel fills the data area, standing in for the axes face color.
type panel struct{}

func (panel) Plot(c draw.Canvas, _ *plot.Plot) {
	c.FillPolygon(colorPanel, []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Max.X, Y: c.Min.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Min.X, Y: c.Max.Y},
	})
}

// addGrid draws a faint grid behind the data.
func addGrid(p *plot.Plot) {
	p.Add(panel{})
	g := plotter.NewGrid()
	g.Vertical.Color = colorGrid
	g.Horizontal.Color = colorGrid
	p.Add(g)
}
