package chart

import (
	"fmt"

	"github.com/zalepa/roadwatch/filter"
)

// Emphasis is the highlight state of one element.
type Emphasis int

const (
	Neutral Emphasis = iota
	Selected
	Dimmed
)

func (e Emphasis) String() string {
	switch e {
	case Selected:
		return "selected"
	case Dimmed:
		return "dimmed"
	}
	return "neutral"
}

func (e Emphasis) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

func (e *Emphasis) UnmarshalText(b []byte) error {
	switch string(b) {
	case "selected":
		*e = Selected
	case "dimmed":
		*e = Dimmed
	case "neutral":
		*e = Neutral
	default:
		return fmt.Errorf("unknown emphasis %q", b)
	}
	return nil
}

// DimOpacity is the opacity of elements that lose to a selection.
const DimOpacity = 0.6

// Palette holds the fills an element uses when neutral or selected, and when
// dimmed.
type Palette struct {
	Base  string
	Muted string
}

var (
	barPalette    = Palette{Base: "rgb(5, 40, 91)", Muted: "rgb(100, 120, 150)"}
	markerPalette = Palette{Base: "#42bcf5", Muted: "#8db9d9"}
)

const (
	noDataFill   = "#ccc"
	noDataStroke = "#999"
)

// Visual is the rendered emphasis of one element.
type Visual struct {
	Emphasis    Emphasis `json:"emphasis"`
	Fill        string   `json:"fill"`
	Opacity     float64  `json:"opacity"`
	Stroke      string   `json:"stroke,omitempty"`
	StrokeWidth float64  `json:"strokeWidth,omitempty"`
	// Radius is the marker size for point elements.
	Radius float64 `json:"radius,omitempty"`
	NoData bool    `json:"noData,omitempty"`
}

// Element is what Project needs to know about one drawn element.
type Element struct {
	Key       string
	Dimension filter.Dimension
	Value     float64
	Palette   Palette
}

// Project computes the emphasis of el. The active key is the chart's own
// selection when it encodes el's dimension, else the filter state's value
// for that dimension. Zero-valued elements take the no-data style whatever
// the selection. Project reads nothing but its arguments.
func Project(el Element, sel Selection, st filter.State) Visual {
	active := ""
	if sel.Active() && sel.Dimension == el.Dimension {
		active = sel.ID
	} else if el.Dimension != "" {
		active = st.Get(el.Dimension)
	}

	v := Visual{Emphasis: Neutral, Fill: el.Palette.Base, Opacity: 1, Radius: 4}
	switch {
	case active == "":
	case el.Key == active:
		v.Emphasis = Selected
		v.Stroke = "#333"
		v.StrokeWidth = 2
	default:
		v.Emphasis = Dimmed
		v.Fill = el.Palette.Muted
		v.Opacity = DimOpacity
	}
	if el.Value == 0 {
		v.NoData = true
		v.Fill = noDataFill
		v.Stroke = noDataStroke
		v.StrokeWidth = 1
		v.Radius = 2
	}
	return v
}
