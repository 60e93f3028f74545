package render

import (
	"fmt"
	"image/color"
	"math"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"

	"github.com/zalepa/roadwatch/chart"
	"github.com/zalepa/roadwatch/records"
)

const (
	pageWidth  = 11 * vg.Inch
	pageHeight = 8.5 * vg.Inch
	pdfMargin  = 0.6 * vg.Inch

	summaryRowHeight = 0.45 * vg.Inch
	nameColWidth     = 3.6 * vg.Inch
	valueColWidth    = 1.6 * vg.Inch
)

// WriteReport writes a landscape PDF to path: a summary page listing every
// view, then one page per view.
func WriteReport(path, title string, views []chart.View) error {
	c := vgpdf.New(pageWidth, pageHeight)
	drawSummary(c, plainText(title), views)
	for _, v := range views {
		p, err := Plot(v)
		if err != nil {
			return err
		}
		c.NextPage()
		dc := draw.New(c)
		p.Draw(draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func drawSummary(c *vgpdf.Canvas, title string, views []chart.View) {
	dc := draw.New(c)
	area := draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)
	usableW := pageWidth - 2*pdfMargin
	sparkColWidth := usableW - nameColWidth - valueColWidth

	yTop := area.Max.Y
	fillText(area, title, vg.Points(16), area.Min.X, yTop-vg.Points(16), color.Black)
	headerY := yTop - 0.6*vg.Inch
	fillText(area, "Chart", vg.Points(10), area.Min.X, headerY, textGray)
	fillText(area, "Total", vg.Points(10), area.Min.X+nameColWidth, headerY, textGray)
	fillText(area, "Trend", vg.Points(10), area.Min.X+nameColWidth+valueColWidth, headerY, textGray)
	sepY := headerY - vg.Points(6)
	strokeHLine(area, area.Min.X, area.Min.X+usableW, sepY, ruleGray)
	yTop = sepY - vg.Points(4)

	for i, v := range views {
		y := yTop - vg.Length(i)*summaryRowHeight - summaryRowHeight*0.45
		fillText(area, plainText(v.Title), vg.Points(10), area.Min.X, y, color.Black)
		fillText(area, plainText(v.Subtitle), vg.Points(7), area.Min.X, y-vg.Points(10), textGray)

		if v.Empty {
			fillText(area, v.Message, vg.Points(9), area.Min.X+nameColWidth, y, textGray)
			continue
		}
		vals := summaryValues(v)
		total := 0.0
		for _, x := range vals {
			if !math.IsNaN(x) {
				total += x
			}
		}
		label := records.Comma(total)
		if len(vals) == 0 && len(v.Stats) > 0 {
			label = v.Stats[0].Value
		}
		fillText(area, label, vg.Points(10), area.Min.X+nameColWidth, y, color.Black)

		sparkX := area.Min.X + nameColWidth + valueColWidth
		sparkY := yTop - vg.Length(i+1)*summaryRowHeight + vg.Points(2)
		drawSparkline(draw.Canvas{
			Canvas: area.Canvas,
			Rectangle: vg.Rectangle{
				Min: vg.Point{X: sparkX, Y: sparkY},
				Max: vg.Point{X: sparkX + sparkColWidth, Y: sparkY + summaryRowHeight - vg.Points(4)},
			},
		}, vals)
	}
}

// summaryValues is the per-category total over the view's first axis, or
// the slice values for part-of-whole charts.
func summaryValues(v chart.View) []float64 {
	if len(v.Shapes) > 0 {
		out := make([]float64, len(v.Shapes))
		for i, sh := range v.Shapes {
			out[i] = sh.Value
		}
		return out
	}
	if len(v.Series) == 0 {
		return nil
	}
	if v.Kind == chart.KindStacked {
		out := make([]float64, len(v.Categories))
		for _, s := range v.Series {
			for i, p := range s.Points {
				out[i] += p.Value
			}
		}
		return out
	}
	return values(v.Series[0])
}

func drawSparkline(c draw.Canvas, vals []float64) {
	var pts plotter.XYs
	for i, v := range vals {
		if !math.IsNaN(v) {
			pts = append(pts, plotter.XY{X: float64(i), Y: v})
		}
	}
	if len(pts) < 2 {
		return
	}

	p := plot.New()
	p.HideAxes()
	p.BackgroundColor = color.Transparent

	line, err := plotter.NewLine(pts)
	if err != nil {
		return
	}
	line.Color = chartBlue
	line.Width = vg.Points(1.5)
	p.Add(line)

	p.X.Min = 0
	p.X.Max = float64(len(vals) - 1)
	lo, hi := pts[0].Y, pts[0].Y
	for _, pt := range pts {
		lo = math.Min(lo, pt.Y)
		hi = math.Max(hi, pt.Y)
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = 1
	}
	p.Y.Min = lo - pad
	p.Y.Max = hi + pad

	p.Draw(c)
}

func fillText(c draw.Canvas, txt string, size vg.Length, x, y vg.Length, clr color.Color) {
	sty := draw.TextStyle{
		Color:   clr,
		Font:    plot.DefaultFont,
		Handler: plot.DefaultTextHandler,
	}
	sty.Font.Size = size
	c.FillText(sty, vg.Point{X: x, Y: y}, txt)
}

func strokeHLine(c draw.Canvas, x0, x1, y vg.Length, clr color.Color) {
	c.StrokeLine2(draw.LineStyle{
		Color: clr,
		Width: vg.Points(0.5),
	}, x0, y, x1, y)
}

// Merge concatenates the PDFs in into out and validates the result.
func Merge(out string, in ...string) error {
	if len(in) == 0 {
		return fmt.Errorf("merge %s: no input files", out)
	}
	conf := model.NewDefaultConfiguration()
	if err := api.MergeCreateFile(in, out, false, conf); err != nil {
		return fmt.Errorf("merge %s: %w", out, err)
	}
	if err := api.ValidateFile(out, conf); err != nil {
		return fmt.Errorf("validate %s: %w", out, err)
	}
	return nil
}

// PageCount returns the number of pages of the PDF at path.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	ctx, err := pdfcpu.Read(f, model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	return ctx.PageCount, nil
}
