package charts

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/datalens-cli/internal/analysis"
	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

// Render limits.
const (
	maxBarGroups    = 15
	maxLinePoints   = 100
	histogramBins   = 25
	defaultHistBins = 20
	maxScatter      = 500
	maxPieSlices    = 8
)

// Render draws one chart. Missing columns, wrong types and empty data
// produce a skipped result; a plotting panic is reported the same way.
func (a *Advisor) Render(spec ChartSpec) (res RenderResult) {
	defer func() {
		if r := recover(); r != nil {
			res = skipped(spec, fmt.Sprintf("render failed: %v", r))
		}
	}()

	title := spec.Title
	if title == "" {
		title = "Chart"
	}
	typ := spec.Type
	if typ == "" {
		typ = TypeHistogram
	}
	p := newPlot(title)

	var reason string
	switch typ {
	case TypeBar:
		reason = a.bar(p, spec)
	case TypeLine:
		reason = a.line(p, spec)
	case TypeHistogram:
		reason = a.histogram(p, firstNonEmpty(spec.Column, spec.X), histogramBins, 2)
	case TypeScatter:
		reason = a.scatter(p, spec)
	case TypePie:
		reason = a.pie(p, spec)
	default:
		num := a.ds.NumericColumns()
		if len(num) == 0 {
			reason = fmt.Sprintf("unknown chart type %q and no numeric column to fall back on", spec.Type)
		} else {
			reason = a.histogram(p, num[0], defaultHistBins, 0)
		}
	}
	if reason != "" {
		return skipped(spec, reason)
	}

	png, err := encodePNG(p)
	if err != nil {
		return skipped(spec, fmt.Sprintf("encode png: %v", err))
	}
	return RenderResult{Spec: spec, Chart: &Chart{
		Type:        typ,
		Title:       title,
		Description: spec.Description,
		Image:       "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		PNG:         png,
	}}
}

func encodePNG(p *plot.Plot) ([]byte, error) {
	wt, err := p.WriterTo(figWidth, figHeight, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// column checks that name exists and, when numeric is set, holds numbers.
func (a *Advisor) column(role, name string, numeric bool) (dataset.Kind, string) {
	if name == "" {
		return 0, fmt.Sprintf("no %s column given", role)
	}
	k, ok := a.ds.Kind(name)
	if !ok {
		return 0, fmt.Sprintf("column %q not found", name)
	}
	if numeric && !k.Numeric() {
		return k, fmt.Sprintf("column %q is not numeric", name)
	}
	return k, ""
}

func (a *Advisor) bar(p *plot.Plot, spec ChartSpec) string {
	if _, r := a.column("x", spec.X, false); r != "" {
		return r
	}
	if _, r := a.column("y", spec.Y, true); r != "" {
		return r
	}
	xs, _ := a.ds.Values(spec.X)
	ys, _ := a.ds.Values(spec.Y)

	bars := barMeans(xs, ys)
	if len(bars) == 0 {
		return "no data to plot"
	}

	addGrid(p)
	labels := make([]string, len(bars))
	drawn := 0
	for i, b := range bars {
		labels[i] = b.label
		// a group without y values keeps its slot on the axis but gets no bar
		if !b.ok {
			continue
		}
		bc, err := plotter.NewBarChart(plotter.Values{b.mean}, vg.Points(24))
		if err != nil {
			return fmt.Sprintf("bar chart: %v", err)
		}
		bc.XMin = float64(i)
		bc.Color = accent(0)
		bc.LineStyle.Color = colorGrid
		p.Add(bc)
		drawn++
	}
	if drawn == 0 {
		return "no data to plot"
	}
	p.X.Min, p.X.Max = -0.5, float64(len(bars))-0.5
	p.NominalX(labels...)
	p.X.Label.Text = spec.X
	p.Y.Label.Text = spec.Y
	return ""
}

type barGroup struct {
	label string
	mean  float64
	ok    bool
}

// barMeans averages ys per x value for the first maxBarGroups keys in
// sorted order. A group whose y values are all missing has ok unset.
func barMeans(xs, ys []any) []barGroup {
	groups := groupBy(xs)
	if len(groups) > maxBarGroups {
		groups = groups[:maxBarGroups]
	}
	out := make([]barGroup, len(groups))
	for i, g := range groups {
		out[i].label = g.label
		var sum float64
		var n int
		for _, r := range g.rows {
			if f, ok := dataset.AsFloat(ys[r]); ok && finite(f) {
				sum += f
				n++
			}
		}
		if n > 0 {
			out[i].mean = sum / float64(n)
			out[i].ok = true
		}
	}
	return out
}

func (a *Advisor) line(p *plot.Plot, spec ChartSpec) string {
	xk, r := a.column("x", spec.X, false)
	if r != "" {
		return r
	}
	if _, r := a.column("y", spec.Y, true); r != "" {
		return r
	}
	xs, _ := a.ds.Values(spec.X)
	ys, _ := a.ds.Values(spec.Y)

	var pts plotter.XYs
	for i := range xs {
		if len(pts) == maxLinePoints {
			break
		}
		y, ok := dataset.AsFloat(ys[i])
		if xs[i] == nil || !ok || !finite(y) {
			continue
		}
		var x float64
		switch {
		case xk.Numeric():
			x, _ = dataset.AsFloat(xs[i])
		case xk == dataset.KindTime:
			t, _ := dataset.IsTime(xs[i])
			x = float64(t.Unix())
		default:
			x = float64(len(pts))
		}
		if !finite(x) {
			continue
		}
		pts = append(pts, plotter.XY{X: x, Y: y})
	}
	if len(pts) == 0 {
		return "no data to plot"
	}

	addGrid(p)
	l, s, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Sprintf("line chart: %v", err)
	}
	l.Color = accent(1)
	l.Width = vg.Points(2)
	s.Color = accent(1)
	s.Shape = draw.CircleGlyph{}
	s.Radius = vg.Points(2)
	p.Add(l, s)
	if xk == dataset.KindTime {
		p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02", Time: func(t float64) time.Time {
			return time.Unix(int64(t), 0).UTC()
		}}
	}
	p.X.Label.Text = spec.X
	p.Y.Label.Text = spec.Y
	return ""
}

func (a *Advisor) histogram(p *plot.Plot, col string, bins, colorIdx int) string {
	if _, r := a.column("histogram", col, true); r != "" {
		return r
	}
	raw, _, _ := a.ds.Floats(col)
	vals := make(plotter.Values, 0, len(raw))
	for _, f := range raw {
		if finite(f) {
			vals = append(vals, f)
		}
	}
	if len(vals) == 0 {
		return "no data to plot"
	}

	addGrid(p)
	h, err := plotter.NewHist(vals, bins)
	if err != nil {
		return fmt.Sprintf("histogram: %v", err)
	}
	h.FillColor = accent(colorIdx)
	h.LineStyle.Color = colorGrid
	p.Add(h)
	p.X.Label.Text = col
	p.Y.Label.Text = "Frequency"
	return ""
}

func (a *Advisor) scatter(p *plot.Plot, spec ChartSpec) string {
	if _, r := a.column("x", spec.X, true); r != "" {
		return r
	}
	if _, r := a.column("y", spec.Y, true); r != "" {
		return r
	}
	xs, _ := a.ds.Values(spec.X)
	ys, _ := a.ds.Values(spec.Y)

	var pts plotter.XYs
	for i := range xs {
		if len(pts) == maxScatter {
			break
		}
		x, okx := dataset.AsFloat(xs[i])
		y, oky := dataset.AsFloat(ys[i])
		if okx && oky && finite(x) && finite(y) {
			pts = append(pts, plotter.XY{X: x, Y: y})
		}
	}
	if len(pts) == 0 {
		return "no data to plot"
	}

	addGrid(p)
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Sprintf("scatter: %v", err)
	}
	s.Color = accent(3)
	s.Shape = draw.CircleGlyph{}
	s.Radius = vg.Points(3)
	p.Add(s)
	p.X.Label.Text = spec.X
	p.Y.Label.Text = spec.Y
	return ""
}

func (a *Advisor) pie(p *plot.Plot, spec ChartSpec) string {
	col := firstNonEmpty(spec.Column, spec.X)
	if _, r := a.column("category", col, false); r != "" {
		return r
	}
	keys, _ := a.ds.Values(col)

	var slices []pieSlice
	valCol := firstNonEmpty(spec.Values, spec.Y)
	if k, ok := a.ds.Kind(valCol); ok && valCol != "" {
		if !k.Numeric() {
			return fmt.Sprintf("column %q is not numeric", valCol)
		}
		vals, _ := a.ds.Values(valCol)
		for _, g := range groupBy(keys) {
			var sum float64
			for _, r := range g.rows {
				if f, ok := dataset.AsFloat(vals[r]); ok && finite(f) {
					sum += f
				}
			}
			slices = append(slices, pieSlice{label: g.label, value: sum})
		}
	} else {
		for _, g := range valueCounts(keys) {
			slices = append(slices, pieSlice{label: g.label, value: float64(len(g.rows))})
		}
	}
	if len(slices) > maxPieSlices {
		slices = slices[:maxPieSlices]
	}
	var total float64
	for _, s := range slices {
		if s.value < 0 {
			return "pie values must not be negative"
		}
		total += s.value
	}
	if total <= 0 {
		return "no data to plot"
	}

	pc := &pieChart{slices: slices, total: total}
	p.Add(pc)
	p.HideAxes()
	p.Legend.Top = true
	for i, s := range slices {
		p.Legend.Add(s.label, swatch{accent(i)})
	}
	return ""
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

type group struct {
	key   any
	label string
	rows  []int
}

// collect buckets row indexes by non-null value, in first-seen order.
func collect(vals []any) []group {
	idx := map[string]int{}
	var out []group
	for r, v := range vals {
		if v == nil {
			continue
		}
		label := analysis.FormatValue(v)
		i, ok := idx[label]
		if !ok {
			i = len(out)
			idx[label] = i
			out = append(out, group{key: v, label: label})
		}
		out[i].rows = append(out[i].rows, r)
	}
	return out
}

// groupBy returns groups sorted by key.
func groupBy(vals []any) []group {
	out := collect(vals)
	sort.SliceStable(out, func(i, j int) bool { return lessKey(out[i].key, out[j].key) })
	return out
}

// valueCounts returns groups ordered by size, largest first; equal sizes
// keep first-seen order.
func valueCounts(vals []any) []group {
	out := collect(vals)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].rows) > len(out[j].rows) })
	return out
}

func lessKey(a, b any) bool {
	if fa, ok := dataset.AsFloat(a); ok {
		if fb, ok := dataset.AsFloat(b); ok {
			return fa < fb
		}
	}
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Before(y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			return !x && y
		}
	}
	return strings.Compare(analysis.FormatValue(a), analysis.FormatValue(b)) < 0
}
