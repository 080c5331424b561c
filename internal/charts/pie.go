package charts

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

type pieSlice struct {
	label string
	value float64
}

// pieChart draws slices clockwise from twelve o'clock with percentage labels.
type pieChart struct {
	slices []pieSlice
	total  float64
}

func (pc *pieChart) Plot(c draw.Canvas, plt *plot.Plot) {
	w := c.Max.X - c.Min.X
	h := c.Max.Y - c.Min.Y
	r := w
	if h < r {
		r = h
	}
	r = r / 2 * 0.9
	center := vg.Point{X: c.Min.X + w/2, Y: c.Min.Y + h/2}

	label := plt.Legend.TextStyle
	label.Color = color.White
	label.XAlign = draw.XCenter
	label.YAlign = draw.YCenter

	start := math.Pi / 2
	for i, s := range pc.slices {
		if s.value == 0 {
			continue
		}
		sweep := -2 * math.Pi * s.value / pc.total

		var path vg.Path
		path.Move(center)
		path.Line(vg.Point{
			X: center.X + r*vg.Length(math.Cos(start)),
			Y: center.Y + r*vg.Length(math.Sin(start)),
		})
		path.Arc(center, r, start, sweep)
		path.Close()
		c.SetColor(accent(i))
		c.Fill(path)
		c.SetLineStyle(draw.LineStyle{Color: colorBackground, Width: vg.Points(1)})
		c.Stroke(path)

		mid := start + sweep/2
		at := vg.Point{
			X: center.X + 0.8*r*vg.Length(math.Cos(mid)),
			Y: center.Y + 0.8*r*vg.Length(math.Sin(mid)),
		}
		c.FillText(label, at, fmt.Sprintf("%.1f%%", 100*s.value/pc.total))
		start += sweep
	}
}

// swatch is a filled legend thumbnail.
type swatch struct{ c color.Color }

func (s swatch) Thumbnail(c *draw.Canvas) {
	c.FillPolygon(s.c, []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Max.X, Y: c.Min.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Min.X, Y: c.Max.Y},
	})
}
