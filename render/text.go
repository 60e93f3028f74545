package render

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/zalepa/roadwatch/chart"
	"github.com/zalepa/roadwatch/records"
)

// Text is a chart.Renderer writing each view as plain text.
type Text struct {
	w io.Writer
}

// NewText returns a Text renderer writing to w.
func NewText(w io.Writer) *Text { return &Text{w: w} }

// Render implements chart.Renderer.
func (t *Text) Render(v chart.View) error {
	var buf bytes.Buffer
	writeView(&buf, v)
	_, err := t.w.Write(buf.Bytes())
	return err
}

func writeView(w *bytes.Buffer, v chart.View) {
	fmt.Fprintf(w, "%s\n", v.Title)
	if v.Subtitle != "" {
		fmt.Fprintf(w, "%s\n", v.Subtitle)
	}
	w.WriteByte('\n')
	if v.Empty {
		fmt.Fprintf(w, "(%s)\n\n", v.Message)
		return
	}

	switch v.Kind {
	case chart.KindBar, chart.KindCombo:
		for _, s := range v.Series {
			if s.Kind == chart.Bars {
				barRows(w, s)
			}
		}
		trendTable(w, v)
	case chart.KindLine:
		if len(v.Series) > 0 {
			lineChart(w, v.Series[len(v.Series)-1])
		}
		trendTable(w, v)
	case chart.KindStacked, chart.KindMultiLine:
		trendTable(w, v)
	case chart.KindPie, chart.KindDonut:
		for _, s := range v.Series {
			shareRows(w, s)
		}
	case chart.KindChoropleth:
		for _, sh := range v.Shapes {
			fmt.Fprintf(w, "%s%-6s %10s\n", marker(sh.Visual), sh.Label, records.Comma(sh.Value))
		}
	}
	if len(v.Stats) > 0 {
		for _, st := range v.Stats {
			fmt.Fprintf(w, "%-18s %s\n", st.Label+":", st.Value)
		}
	}
	w.WriteByte('\n')
}

// marker flags emphasis in the first column: '>' selected, '.' dimmed.
func marker(v chart.Visual) string {
	switch v.Emphasis {
	case chart.Selected:
		return "> "
	case chart.Dimmed:
		return ". "
	}
	return "  "
}

const barCols = 40

func barRows(w *bytes.Buffer, s chart.Series) {
	var top float64
	for _, p := range s.Points {
		top = math.Max(top, p.Value)
	}
	width := 6
	for _, p := range s.Points {
		width = max(width, len(p.Key))
	}
	for _, p := range s.Points {
		n := 0
		if top > 0 {
			n = int(math.Round(p.Value / top * barCols))
		}
		block := "█"
		if p.Visual.Emphasis == chart.Dimmed {
			block = "░"
		}
		fmt.Fprintf(w, "%s%-*s %s %s\n", marker(p.Visual), width, p.Key, strings.Repeat(block, n), records.Comma(p.Value))
	}
	w.WriteByte('\n')
}

// trendTable prints one row per non-bar series with its latest value and a
// sparkline.
func trendTable(w *bytes.Buffer, v chart.View) {
	var rows []chart.Series
	for _, s := range v.Series {
		if s.Kind != chart.Bars {
			rows = append(rows, s)
		}
	}
	if len(rows) == 0 {
		return
	}
	maxName := 10
	for _, s := range rows {
		maxName = max(maxName, len(s.Name))
	}
	n := len(v.Categories)
	if n > 0 {
		fmt.Fprintf(w, "Trend: %s to %s (%d periods)\n", v.Categories[0], v.Categories[n-1], n)
	}
	rowFmt := fmt.Sprintf("%%s%%-%ds  %%10s   %%s\n", maxName)
	fmt.Fprintf(w, rowFmt, "  ", "Series", "Latest", "Trend")
	fmt.Fprintln(w, strings.Repeat("─", 2+maxName+2+10+3+n))
	for _, s := range rows {
		vals := values(s)
		fmt.Fprintf(w, rowFmt, marker(s.Visual), s.Name, records.Comma(lastNonNaN(vals)), sparkline(vals))
	}
	w.WriteByte('\n')
}

// values returns the series values with gap points as NaN.
func values(s chart.Series) []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
		if p.Gap {
			out[i] = math.NaN()
		}
	}
	return out
}

func shareRows(w *bytes.Buffer, s chart.Series) {
	fmt.Fprintf(w, "%s\n", s.Name)
	for _, p := range s.Points {
		fmt.Fprintf(w, "%s%-24s %10s %7s\n", marker(p.Visual), p.Key, records.Comma(p.Value), records.Percent(p.Share))
	}
	w.WriteByte('\n')
}

func lastNonNaN(vals []float64) float64 {
	for i := len(vals) - 1; i >= 0; i-- {
		if !math.IsNaN(vals[i]) {
			return vals[i]
		}
	}
	return math.NaN()
}

func sparkline(values []float64) string {
	blocks := []rune("▁▂▃▄▅▆▇█")
	n := len(blocks)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return strings.Repeat(" ", len(values))
	}

	spread := hi - lo
	var sb strings.Builder
	for _, v := range values {
		if math.IsNaN(v) {
			sb.WriteRune(' ')
			continue
		}
		idx := n / 2
		if spread > 0 {
			idx = min(int((v-lo)/spread*float64(n-1)), n-1)
		}
		sb.WriteRune(blocks[idx])
	}
	return sb.String()
}

// lineChart draws s as a fixed-height dot chart.
func lineChart(w *bytes.Buffer, s chart.Series) {
	pts := s.Points
	if len(pts) == 0 {
		return
	}
	const height = 10
	colWidth := min(max(90/len(pts), 3), 8)

	lo, hi := pts[0].Value, pts[0].Value
	for _, p := range pts {
		lo = math.Min(lo, p.Value)
		hi = math.Max(hi, p.Value)
	}
	span := hi - lo
	if span == 0 {
		span = 1
		lo -= 0.5
	}

	rows := make([]int, len(pts))
	for i, p := range pts {
		rows[i] = min(max(int(math.Round((p.Value-lo)/span*(height-1))), 0), height-1)
	}

	total := len(pts) * colWidth
	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", total))
	}
	for i := range pts {
		col := i*colWidth + colWidth/2
		grid[rows[i]][col] = '●'
		if i == len(pts)-1 {
			continue
		}
		end := (i+1)*colWidth + colWidth/2
		for c := col + 1; c < end; c++ {
			t := float64(c-col) / float64(end-col)
			r := int(math.Round(float64(rows[i]) + t*float64(rows[i+1]-rows[i])))
			if grid[r][c] == ' ' {
				grid[r][c] = '·'
			}
		}
	}

	labels := make(map[int]string)
	for i := 0; i < 5; i++ {
		r := int(math.Round(float64(i) / 4 * (height - 1)))
		labels[r] = records.Compact(lo + float64(r)/(height-1)*span)
	}
	fmt.Fprintf(w, "%s\n", s.Name)
	for r := height - 1; r >= 0; r-- {
		fmt.Fprintf(w, "%8s │%s\n", labels[r], string(grid[r]))
	}
	fmt.Fprintf(w, "%8s └%s\n", "", strings.Repeat("─", total))

	every := 1
	if colWidth < 8 {
		every = (8 + colWidth - 1) / colWidth
	}
	axis := []byte(strings.Repeat(" ", total))
	for i := 0; i < len(pts); i += every {
		pos := max(i*colWidth+colWidth/2-len(pts[i].Key)/2, 0)
		for j := 0; j < len(pts[i].Key) && pos+j < total; j++ {
			axis[pos+j] = pts[i].Key[j]
		}
	}
	fmt.Fprintf(w, "%8s  %s\n\n", "", string(axis))
}
