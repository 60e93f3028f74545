// Package render draws chart views: as gonum plots saved to PNG, SVG or PDF,
// as a multi-page PDF report, or as plain text for a terminal.
package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/zalepa/roadwatch/chart"
	"github.com/zalepa/roadwatch/records"
)

// Default image size of a saved chart.
const (
	Width  = 8 * vg.Inch
	Height = 5 * vg.Inch
)

// Formats lists the image formats Files and WriteImage accept.
var Formats = []string{"png", "svg", "pdf"}

// Plot builds the gonum plot of v.
func Plot(v chart.View) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = v.Title
	if v.Subtitle != "" {
		p.Title.Text += "\n" + v.Subtitle
	}
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.BackgroundColor = color.White
	p.X.Label.Text = v.XLabel
	p.Y.Label.Text = v.YLabel
	p.Legend.Top = true

	if v.Empty {
		return p, message(p, v.Message)
	}

	var err error
	switch v.Kind {
	case chart.KindBar:
		err = bars(p, v)
	case chart.KindStacked:
		err = stacked(p, v)
	case chart.KindLine, chart.KindMultiLine:
		categoryAxes(p, v)
		err = lines(p, v.Series, 1)
	case chart.KindCombo:
		err = combo(p, v)
	case chart.KindPie, chart.KindDonut:
		err = slices(p, v)
	case chart.KindChoropleth:
		err = choropleth(p, v)
	case chart.KindPanel:
		err = panel(p, v)
	default:
		err = fmt.Errorf("unsupported chart kind %q", v.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("plot %s: %w", v.Chart, err)
	}
	return p, nil
}

// WriteImage writes v to w in format, one of Formats.
func WriteImage(w io.Writer, v chart.View, format string, width, height vg.Length) error {
	p, err := Plot(v)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// Files is a chart.Renderer saving each view to Dir/<chart>.<Format>,
// overwriting the previous drawing of the same chart.
type Files struct {
	Dir    string
	Format string
	Width  vg.Length
	Height vg.Length
}

// Render implements chart.Renderer.
func (f *Files) Render(v chart.View) error {
	format := f.Format
	if format == "" {
		format = "png"
	}
	w, h := f.Width, f.Height
	if w == 0 || h == 0 {
		w, h = Width, Height
	}
	path := filepath.Join(f.Dir, string(v.Chart)+"."+format)
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteImage(out, v, format, w, h); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func message(p *plot.Plot, msg string) error {
	p.HideAxes()
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	l, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: 0.5, Y: 0.5}},
		Labels: []string{msg},
	})
	if err != nil {
		return err
	}
	l.TextStyle[0].XAlign = draw.XCenter
	l.TextStyle[0].Color = textGray
	p.Add(l)
	return nil
}

// categoryTicks labels integer positions with category names, thinning the
// labels to at most twelve.
type categoryTicks []string

func (ct categoryTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	n := len(ct)
	step := 1
	if n > 12 {
		step = (n + 11) / 12
	}
	for i := 0; i < n; i++ {
		t := plot.Tick{Value: float64(i)}
		if i%step == 0 {
			t.Label = ct[i]
		}
		ticks = append(ticks, t)
	}
	return ticks
}

type numTicks struct{}

func (numTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = records.Compact(ticks[i].Value)
		}
	}
	return ticks
}

func categoryAxes(p *plot.Plot, v chart.View) {
	p.X.Tick.Marker = categoryTicks(v.Categories)
	p.X.Min = -0.5
	p.X.Max = float64(len(v.Categories)) - 0.5
	if len(v.Categories) > 6 {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}
	p.Y.Tick.Marker = numTicks{}
	p.Y.Min = 0
	p.Y.Max = v.YMax
	p.Add(plotter.NewGrid())
}

func barWidth(n int) vg.Length {
	w := 5.5 * vg.Inch / vg.Length(max(n, 1)) * 0.7
	return min(w, vg.Points(40))
}

// bars draws one bar per point so that each carries its own emphasis.
func bars(p *plot.Plot, v chart.View) error {
	categoryAxes(p, v)
	for _, s := range v.Series {
		for i, pt := range s.Points {
			b, err := plotter.NewBarChart(plotter.Values{pt.Value}, barWidth(len(v.Categories)))
			if err != nil {
				return err
			}
			b.XMin = float64(i)
			b.Color = fill(pt.Visual.Fill, pt.Visual.Opacity)
			b.LineStyle.Width = vg.Points(pt.Visual.StrokeWidth)
			if pt.Visual.Stroke != "" {
				b.LineStyle.Color = parseColor(pt.Visual.Stroke)
			}
			p.Add(b)
		}
	}
	return nil
}

func stacked(p *plot.Plot, v chart.View) error {
	categoryAxes(p, v)
	var below *plotter.BarChart
	for _, s := range v.Series {
		b, err := plotter.NewBarChart(plotter.Values(s.Values()), barWidth(len(v.Categories)))
		if err != nil {
			return err
		}
		b.Color = parseColor(s.Color)
		b.LineStyle.Width = 0
		if below != nil {
			b.StackOn(below)
		}
		below = b
		p.Add(b)
		p.Legend.Add(s.Name, b)
	}
	return nil
}

// segments splits a series at gap points so the line is not drawn across
// them.
func segments(pts []chart.Point, scale float64) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for i, pt := range pts {
		if pt.Gap {
			if len(cur) > 0 {
				out = append(out, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, plotter.XY{X: float64(i), Y: pt.Value * scale})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func lines(p *plot.Plot, series []chart.Series, scale float64) error {
	for _, s := range series {
		base := s.Color
		opacity := s.Visual.Opacity
		if s.Visual.Emphasis == chart.Dimmed {
			base = s.Visual.Fill
		}
		var legend plot.Thumbnailer
		for _, seg := range segments(s.Points, scale) {
			l, err := plotter.NewLine(seg)
			if err != nil {
				return err
			}
			l.Color = fill(base, opacity)
			l.Width = vg.Points(2)
			if s.Visual.Emphasis == chart.Selected {
				l.Width = vg.Points(3)
			}
			if s.Kind == chart.Area {
				l.FillColor = fill(base, 0.3)
			}
			p.Add(l)
			legend = l
		}
		if s.Kind != chart.Area {
			if err := markers(p, s, scale); err != nil {
				return err
			}
		}
		if legend != nil {
			p.Legend.Add(s.Name, legend)
		}
	}
	return nil
}

func markers(p *plot.Plot, s chart.Series, scale float64) error {
	var pts plotter.XYs
	var styles []draw.GlyphStyle
	for i, pt := range s.Points {
		if pt.Gap {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i), Y: pt.Value * scale})
		styles = append(styles, draw.GlyphStyle{
			Color:  fill(pt.Visual.Fill, pt.Visual.Opacity),
			Radius: vg.Points(pt.Visual.Radius),
			Shape:  draw.CircleGlyph{},
		})
	}
	if len(pts) == 0 {
		return nil
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	sc.GlyphStyleFunc = func(i int) draw.GlyphStyle { return styles[i] }
	p.Add(sc)
	return nil
}

// combo draws the bars on the left axis and the secondary series rescaled
// onto it; gonum plots have a single y axis.
func combo(p *plot.Plot, v chart.View) error {
	var primary, secondary []chart.Series
	for _, s := range v.Series {
		if s.Axis == 1 {
			secondary = append(secondary, s)
		} else {
			primary = append(primary, s)
		}
	}
	if err := bars(p, chart.View{Categories: v.Categories, YMax: v.YMax, Series: primary}); err != nil {
		return err
	}
	for _, s := range primary {
		p.Legend.Add(s.Name, swatch(s.Color))
	}
	scale := 1.0
	if v.Y2Max > 0 {
		scale = v.YMax / v.Y2Max
	}
	for i := range secondary {
		secondary[i].Name += fmt.Sprintf(" (right axis, max %s)", records.Compact(v.Y2Max))
	}
	return lines(p, secondary, scale)
}

type swatch string

func (s swatch) Thumbnail(c *draw.Canvas) {
	c.FillPolygon(parseColor(string(s)), []vg.Point{
		c.Min, {X: c.Min.X, Y: c.Max.Y}, c.Max, {X: c.Max.X, Y: c.Min.Y},
	})
}

// slices draws pie and donut series as polygons on a unit circle. A second
// series is drawn as an outer ring.
func slices(p *plot.Plot, v chart.View) error {
	p.HideAxes()
	p.X.Min, p.X.Max = -1.6, 1.6
	p.Y.Min, p.Y.Max = -1.6, 1.6
	inner := 0.0
	if v.Kind == chart.KindDonut {
		inner = 0.5
	}
	for i, s := range v.Series {
		lo, hi := inner, 1.0
		if i > 0 {
			lo, hi = 1.05, 1.35
		}
		if err := ring(p, s, lo, hi); err != nil {
			return err
		}
	}
	return nil
}

func ring(p *plot.Plot, s chart.Series, lo, hi float64) error {
	start := math.Pi / 2
	for _, pt := range s.Points {
		if pt.Share <= 0 {
			continue
		}
		end := start - 2*math.Pi*pt.Share
		poly, err := plotter.NewPolygon(arc(start, end, lo, hi))
		if err != nil {
			return err
		}
		poly.Color = fill(pt.Visual.Fill, pt.Visual.Opacity)
		poly.LineStyle.Color = color.White
		if pt.Visual.Stroke != "" {
			poly.LineStyle.Color = parseColor(pt.Visual.Stroke)
		}
		poly.LineStyle.Width = vg.Points(max(pt.Visual.StrokeWidth, 0.5))
		p.Add(poly)
		p.Legend.Add(fmt.Sprintf("%s (%s)", pt.Key, records.Percent(pt.Share)), poly)
		start = end
	}
	return nil
}

// arc returns the outline of an annular sector from angle a to b.
func arc(a, b, lo, hi float64) plotter.XYs {
	const steps = 48
	var pts plotter.XYs
	for i := 0; i <= steps; i++ {
		t := a + (b-a)*float64(i)/steps
		pts = append(pts, plotter.XY{X: hi * math.Cos(t), Y: hi * math.Sin(t)})
	}
	if lo == 0 {
		return append(pts, plotter.XY{})
	}
	for i := steps; i >= 0; i-- {
		t := a + (b-a)*float64(i)/steps
		pts = append(pts, plotter.XY{X: lo * math.Cos(t), Y: lo * math.Sin(t)})
	}
	return pts
}

func choropleth(p *plot.Plot, v chart.View) error {
	p.HideAxes()
	var labels plotter.XYLabels
	for _, sh := range v.Shapes {
		for _, poly := range sh.Polygons {
			var rings []plotter.XYer
			for _, r := range poly {
				xys := make(plotter.XYs, len(r))
				for i, pt := range r {
					xys[i] = plotter.XY{X: pt[0], Y: pt[1]}
				}
				rings = append(rings, xys)
			}
			if len(rings) == 0 {
				continue
			}
			pg, err := plotter.NewPolygon(rings...)
			if err != nil {
				return err
			}
			pg.Color = fill(sh.Visual.Fill, sh.Visual.Opacity)
			pg.LineStyle.Color = color.White
			if sh.Visual.Stroke != "" {
				pg.LineStyle.Color = parseColor(sh.Visual.Stroke)
			}
			pg.LineStyle.Width = vg.Points(max(sh.Visual.StrokeWidth, 0.5))
			p.Add(pg)
		}
		labels.XYs = append(labels.XYs, plotter.XY{X: sh.Centroid[0], Y: sh.Centroid[1]})
		labels.Labels = append(labels.Labels, sh.Label)
	}
	if len(labels.XYs) == 0 {
		return nil
	}
	l, err := plotter.NewLabels(labels)
	if err != nil {
		return err
	}
	for i := range l.TextStyle {
		l.TextStyle[i].XAlign = draw.XCenter
	}
	p.Add(l)
	return nil
}

func panel(p *plot.Plot, v chart.View) error {
	p.HideAxes()
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	if len(v.Stats) == 0 {
		return nil
	}
	var labels plotter.XYLabels
	for i, st := range v.Stats {
		y := 0.8 - float64(i)*0.6/float64(max(len(v.Stats)-1, 1))
		labels.XYs = append(labels.XYs, plotter.XY{X: 0.1, Y: y})
		labels.Labels = append(labels.Labels, st.Label+": "+st.Value)
	}
	l, err := plotter.NewLabels(labels)
	if err != nil {
		return err
	}
	for i := range l.TextStyle {
		l.TextStyle[i].Font.Size = vg.Points(14)
	}
	p.Add(l)
	return nil
}

// plainText drops characters the PDF fonts cannot render.
func plainText(s string) string {
	s = strings.ReplaceAll(s, "\u2014", "-")
	return strings.ReplaceAll(s, "\u2013", "-")
}
