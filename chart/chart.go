// Package chart owns the interactive half of the dashboard: per-chart
// selection state, the visual emphasis derived from it, the propagation of
// selections between charts, and the view models handed to a Renderer.
package chart

import (
	"errors"
	"slices"
	"time"

	"github.com/paulmach/orb"

	"github.com/zalepa/roadwatch/dataset"
	"github.com/zalepa/roadwatch/filter"
)

// ErrUnknownChart is returned for operations on a chart that is not part of
// the dashboard.
var ErrUnknownChart = errors.New("unknown chart")

// ID names a chart instance.
type ID string

const (
	DrugBar           ID = "drug-bar"
	DrugLine          ID = "drug-line"
	Choropleth        ID = "choropleth"
	JurisdictionPanel ID = "jurisdiction-panel"
	Combo             ID = "combo"
	Donut             ID = "donut"
	StackedBar        ID = "stacked-bar"
	MultiLine         ID = "multi-line"
	Pie               ID = "pie"
)

// PageCharts lists the charts hosted by page p, in drawing order.
func PageCharts(p dataset.Page) []ID {
	switch p {
	case dataset.PageDrug:
		return []ID{Choropleth, DrugBar, DrugLine, JurisdictionPanel}
	case dataset.PageCrash:
		return []ID{Combo, Donut}
	case dataset.PageSeatbelt:
		return []ID{StackedBar, MultiLine, Pie}
	}
	return nil
}

// Renderer draws a view. Render must fully redraw the chart named by
// v.Chart; calling it twice with the same view yields the same output.
type Renderer interface {
	Render(v View) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(View) error

func (f RendererFunc) Render(v View) error { return f(v) }

// Anchor locates a tooltip on an element of a chart.
type Anchor struct {
	Chart ID
	Key   string
}

// Tooltip is the hover collaborator. Content is built by the dashboard.
type Tooltip interface {
	Show(at Anchor, content string)
	Hide()
}

// Kind is the shape of a view.
type Kind string

const (
	KindBar        Kind = "bar"
	KindLine       Kind = "line"
	KindCombo      Kind = "combo"
	KindDonut      Kind = "donut"
	KindPie        Kind = "pie"
	KindStacked    Kind = "stacked-bar"
	KindMultiLine  Kind = "multi-line"
	KindChoropleth Kind = "choropleth"
	KindPanel      Kind = "panel"
)

// SeriesKind tells a renderer how to draw a series.
type SeriesKind string

const (
	Bars   SeriesKind = "bars"
	Line   SeriesKind = "line"
	Area   SeriesKind = "area"
	Slices SeriesKind = "slices"
	Layer  SeriesKind = "layer"
)

// Transition durations a renderer should use when retargeting elements.
const (
	SelectTransition = 200 * time.Millisecond
	GrowTransition   = 800 * time.Millisecond
)

// NoDataMessage is shown in place of a chart whose filters match nothing.
const NoDataMessage = "No data available for current filters"

// View is everything a renderer needs to draw one chart.
type View struct {
	Chart    ID           `json:"chart"`
	Kind     Kind         `json:"kind"`
	Title    string       `json:"title"`
	Subtitle string       `json:"subtitle,omitempty"`
	State    filter.State `json:"state"`

	// Empty views carry only Message.
	Empty   bool   `json:"empty,omitempty"`
	Message string `json:"message,omitempty"`

	XLabel     string   `json:"xLabel,omitempty"`
	YLabel     string   `json:"yLabel,omitempty"`
	Y2Label    string   `json:"y2Label,omitempty"`
	Categories []string `json:"categories,omitempty"`
	// YMax and Y2Max are scale-domain maxima; never 0.
	YMax  float64 `json:"yMax,omitempty"`
	Y2Max float64 `json:"y2Max,omitempty"`

	Series []Series `json:"series,omitempty"`
	Shapes []Shape  `json:"shapes,omitempty"`
	Stats  []Stat   `json:"stats,omitempty"`

	// Dimension is what a click on an element of this view selects; empty
	// when the chart is not selectable.
	Dimension filter.Dimension `json:"dimension,omitempty"`
	Selection Selection        `json:"selection"`
	Duration  time.Duration    `json:"duration"`
}

// Series is one drawn data series.
type Series struct {
	Name   string     `json:"name"`
	Kind   SeriesKind `json:"kind"`
	Color  string     `json:"color"`
	Axis   int        `json:"axis,omitempty"`
	Visual Visual     `json:"visual"`
	Points []Point    `json:"points"`
}

// Values returns the point values of s in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// Point is one element of a series.
type Point struct {
	Key     string  `json:"key"`
	Value   float64 `json:"value"`
	Share   float64 `json:"share,omitempty"`
	Visual  Visual  `json:"visual"`
	Tooltip string  `json:"tooltip,omitempty"`
	// Gap points are not joined by a line.
	Gap bool `json:"gap,omitempty"`
}

// Shape is one choropleth area.
type Shape struct {
	Key      string        `json:"key"`
	Label    string        `json:"label"`
	Value    float64       `json:"value"`
	Polygons []orb.Polygon `json:"-"`
	Centroid orb.Point     `json:"centroid"`
	Visual   Visual        `json:"visual"`
	Tooltip  string        `json:"tooltip,omitempty"`
}

// Stat is a labelled figure shown in a panel.
type Stat struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Selects reports whether key names an element a click on v selects: a
// legend entry of the multi-line chart, otherwise a category or area.
func (v View) Selects(key string) bool {
	if v.Kind == KindMultiLine {
		return slices.ContainsFunc(v.Series, func(s Series) bool { return s.Name == key })
	}
	if slices.Contains(v.Categories, key) {
		return true
	}
	return slices.ContainsFunc(v.Shapes, func(sh Shape) bool { return sh.Key == key })
}

// Find returns the tooltip content of the element with the given key.
func (v View) Find(key string) (string, bool) {
	for _, s := range v.Series {
		for _, p := range s.Points {
			if p.Key == key && p.Tooltip != "" {
				return p.Tooltip, true
			}
		}
	}
	for _, sh := range v.Shapes {
		if sh.Key == key && sh.Tooltip != "" {
			return sh.Tooltip, true
		}
	}
	return "", false
}
