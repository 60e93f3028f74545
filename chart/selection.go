package chart

import "github.com/zalepa/roadwatch/filter"

// Selection is a chart's local highlight: at most one element, identified by
// the dimension it encodes and its key. The zero value is Unselected.
type Selection struct {
	Dimension filter.Dimension `json:"dimension,omitempty"`
	ID        string           `json:"id,omitempty"`
}

// Active reports whether an element is selected.
func (s Selection) Active() bool { return s.ID != "" }

// Resolver is the per-chart selection state machine. Every transition
// returns the filter delta it implies; an empty delta means nothing changed.
type Resolver struct {
	sel Selection
}

// Selection returns the current selection.
func (r *Resolver) Selection() Selection { return r.sel }

// Click handles a click on the element keyed id along dim. Clicking the
// selected element clears it; clicking another switches directly.
func (r *Resolver) Click(dim filter.Dimension, id string) filter.Delta {
	if id == "" {
		return r.Background()
	}
	if r.sel.Active() && r.sel.Dimension == dim && r.sel.ID == id {
		r.sel = Selection{}
		return filter.Delta{dim: ""}
	}
	r.sel = Selection{Dimension: dim, ID: id}
	return filter.Delta{dim: id}
}

// Background handles a click outside every element.
func (r *Resolver) Background() filter.Delta {
	if !r.sel.Active() {
		return nil
	}
	dim := r.sel.Dimension
	r.sel = Selection{}
	return filter.Delta{dim: ""}
}

// Invalidate drops the selection if it encodes one of dims. It reports
// whether anything was dropped.
func (r *Resolver) Invalidate(dims ...filter.Dimension) bool {
	if !r.sel.Active() {
		return false
	}
	for _, d := range dims {
		if d == r.sel.Dimension {
			r.sel = Selection{}
			return true
		}
	}
	return false
}
