package chart

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zalepa/roadwatch/filter"
)

var (
	propagationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roadwatch_propagation_total",
		Help: "Chart updates triggered by a selection, by source and target chart",
	}, []string{"source", "target"})

	propagationSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roadwatch_propagation_skipped_total",
		Help: "Propagation targets skipped because the chart is not on the page",
	}, []string{"source", "target"})
)

// Edge is one entry of the propagation table. Exclude lists dimensions of
// the source's delta that the target must not apply to itself.
type Edge struct {
	To      ID
	Exclude []filter.Dimension
}

// Propagation is the static table of which chart's selection updates which
// other charts. It is shared by every page; each page registers only the
// charts it hosts.
var Propagation = map[ID][]Edge{
	DrugBar:    {{To: DrugLine}},
	DrugLine:   nil,
	Choropleth: {{To: DrugBar}, {To: DrugLine}, {To: JurisdictionPanel}},
	Combo:      {{To: Donut}},
	// The multi-line chart redraws on its own legend selection but keeps its
	// scale over every jurisdiction.
	MultiLine: {{To: StackedBar}, {To: Pie}, {To: MultiLine, Exclude: []filter.Dimension{filter.Jurisdiction}}},
}

// Target is a chart's update entry point.
type Target interface {
	Update(st filter.State)
}

// TargetFunc adapts a function to Target.
type TargetFunc func(filter.State)

func (f TargetFunc) Update(st filter.State) { f(st) }

// Bus delivers selection deltas to the charts that depend on them. It keeps
// the last-known control state and each source's active selection delta;
// the state a chart sees is the control state with the deltas of its active
// upstream sources merged on top.
//
// Bus is not safe for concurrent use; callers serialize access.
type Bus struct {
	table   map[ID][]Edge
	targets map[ID]Target
	order   []ID
	state   filter.State
	active  map[ID]filter.Delta
	// sources lists the keys of active in the order they were first
	// published, so later selections win over earlier ones.
	sources []ID
	logger  *slog.Logger
}

// NewBus returns a bus over table with no registered targets.
func NewBus(table map[ID][]Edge, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		table:   table,
		targets: make(map[ID]Target),
		state:   filter.Default(),
		active:  make(map[ID]filter.Delta),
		logger:  logger,
	}
}

// Register makes t the entry point of chart id.
func (b *Bus) Register(id ID, t Target) {
	if _, ok := b.targets[id]; !ok {
		b.order = append(b.order, id)
	}
	b.targets[id] = t
}

// Registered reports whether id has an entry point.
func (b *Bus) Registered(id ID) bool {
	_, ok := b.targets[id]
	return ok
}

// SetState replaces the control state. It does not notify anyone.
func (b *Bus) SetState(st filter.State) { b.state = st }

// State returns the control state.
func (b *Bus) State() filter.State { return b.state }

// Clear forgets the active delta of source without notifying its targets.
func (b *Bus) Clear(source ID) {
	delete(b.active, source)
	for i, id := range b.sources {
		if id == source {
			b.sources = append(b.sources[:i], b.sources[i+1:]...)
			return
		}
	}
}

// Targets returns the charts source's selections propagate to.
func (b *Bus) Targets(source ID) []ID {
	var out []ID
	for _, e := range b.table[source] {
		out = append(out, e.To)
	}
	return out
}

// StateFor returns the state chart id should draw with.
func (b *Bus) StateFor(id ID) filter.State {
	st := b.state
	for _, src := range b.sources {
		d := b.active[src]
		for _, e := range b.table[src] {
			if e.To == id {
				st = st.Merge(without(d, e.Exclude))
			}
		}
	}
	return st
}

// Publish records delta as source's active selection (a clearing delta
// removes it) and synchronously updates every registered target of source.
// Targets missing from the page are skipped. It returns the charts updated.
func (b *Bus) Publish(source ID, delta filter.Delta) []ID {
	if delta.Clears() {
		b.Clear(source)
	} else {
		if _, ok := b.active[source]; !ok {
			b.sources = append(b.sources, source)
		}
		b.active[source] = delta
	}
	var updated []ID
	for _, e := range b.table[source] {
		t, ok := b.targets[e.To]
		if !ok {
			propagationSkipped.WithLabelValues(string(source), string(e.To)).Inc()
			b.logger.Debug("propagation target not present", "source", source, "target", e.To)
			continue
		}
		t.Update(b.StateFor(e.To))
		propagationTotal.WithLabelValues(string(source), string(e.To)).Inc()
		updated = append(updated, e.To)
	}
	return updated
}

// Broadcast updates every registered chart with its current state.
func (b *Bus) Broadcast() {
	for _, id := range b.order {
		b.targets[id].Update(b.StateFor(id))
	}
}

func without(d filter.Delta, dims []filter.Dimension) filter.Delta {
	if len(dims) == 0 {
		return d
	}
	out := make(filter.Delta, len(d))
	for k, v := range d {
		out[k] = v
	}
	for _, dim := range dims {
		delete(out, dim)
	}
	return out
}
