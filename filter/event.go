package filter

// Event is an input to Apply: a Control or a Reset.
type Event interface {
	isEvent()
}

// Control is a change of one explicit filter control.
type Control struct {
	Dimension Dimension
	Value     string
}

// Reset restores every dimension to its default.
type Reset struct{}

func (Control) isEvent() {}
func (Reset) isEvent()   {}

// dependents lists dimensions that lose their meaning when the key
// dimension changes.
var dependents = map[Dimension][]Dimension{
	ViolationType: {DetectionMethod},
}

// Apply computes the state that follows prev under ev. It also returns the
// dimensions whose chart-local selections must be dropped because an
// external control replaced them.
//
// Apply is total: a Control for an unknown dimension leaves prev unchanged
// and invalidates nothing.
func Apply(prev State, ev Event) (State, []Dimension) {
	switch e := ev.(type) {
	case Reset:
		return Default(), append([]Dimension(nil), Dimensions...)
	case Control:
		if _, err := ParseDimension(string(e.Dimension)); err != nil {
			return prev, nil
		}
		next := prev.With(e.Dimension, e.Value)
		invalid := []Dimension{e.Dimension}
		if next.Get(e.Dimension) != prev.Get(e.Dimension) {
			for _, dep := range dependents[e.Dimension] {
				if next.Has(dep) {
					next = next.With(dep, "")
				}
				invalid = append(invalid, dep)
			}
		}
		return next, invalid
	}
	return prev, nil
}
