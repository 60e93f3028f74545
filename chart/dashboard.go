package chart

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zalepa/roadwatch/dataset"
	"github.com/zalepa/roadwatch/filter"
)

var renderSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "roadwatch_render_seconds",
	Help:    "Time spent building and rendering one chart view",
	Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
}, []string{"chart"})

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(d *Dashboard) { d.build.cfg = cfg }
}

// WithLogger sets the logger used for propagation and render diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dashboard) { d.logger = l }
}

// WithTooltip sets the hover collaborator.
func WithTooltip(t Tooltip) Option {
	return func(d *Dashboard) { d.tooltip = t }
}

// WithCharts hosts only the given charts instead of every chart of the page.
func WithCharts(ids ...ID) Option {
	return func(d *Dashboard) { d.charts = ids }
}

// Dashboard is one page of charts sharing a filter state. It applies control
// and selection events, keeps every chart's view current and hands each
// redrawn view to the renderer.
//
// A Dashboard is not safe for concurrent use.
type Dashboard struct {
	page      dataset.Page
	build     builder
	renderer  Renderer
	tooltip   Tooltip
	logger    *slog.Logger
	charts    []ID
	bus       *Bus
	resolvers map[ID]*Resolver
	views     map[ID]View
	err       error
}

// New builds the dashboard for page over store and draws every chart once.
// The returned error reports render failures of that first draw; the
// dashboard is usable either way.
func New(store *dataset.Store, page dataset.Page, r Renderer, opts ...Option) (*Dashboard, error) {
	d := &Dashboard{
		page:      page,
		build:     builder{store: store, cfg: DefaultConfig()},
		renderer:  r,
		charts:    PageCharts(page),
		resolvers: make(map[ID]*Resolver),
		views:     make(map[ID]View),
	}
	for _, o := range opts {
		o(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.renderer == nil {
		d.renderer = RendererFunc(func(View) error { return nil })
	}
	d.logger = d.logger.With("page", string(page))

	d.bus = NewBus(Propagation, d.logger)
	for _, id := range d.charts {
		if !knownChart(id) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownChart, id)
		}
		d.resolvers[id] = &Resolver{}
		d.bus.Register(id, TargetFunc(func(st filter.State) { d.draw(id, st) }))
	}
	d.bus.Broadcast()
	return d, d.flush()
}

func knownChart(id ID) bool {
	for _, p := range dataset.Pages {
		if slices.Contains(PageCharts(p), id) {
			return true
		}
	}
	return false
}

// Page returns the page the dashboard hosts.
func (d *Dashboard) Page() dataset.Page { return d.page }

// Charts lists the hosted charts in drawing order.
func (d *Dashboard) Charts() []ID { return slices.Clone(d.charts) }

// State returns the control state.
func (d *Dashboard) State() filter.State { return d.bus.State() }

// StateFor returns the state chart id currently draws with.
func (d *Dashboard) StateFor(id ID) filter.State { return d.bus.StateFor(id) }

// Selection returns chart id's local selection.
func (d *Dashboard) Selection(id ID) Selection {
	if r, ok := d.resolvers[id]; ok {
		return r.Selection()
	}
	return Selection{}
}

// View returns the last view drawn for id.
func (d *Dashboard) View(id ID) (View, bool) {
	v, ok := d.views[id]
	return v, ok
}

// Views returns the current view of every chart in drawing order.
func (d *Dashboard) Views() []View {
	out := make([]View, 0, len(d.charts))
	for _, id := range d.charts {
		out = append(out, d.views[id])
	}
	return out
}

// Options lists the values offered by the page's filter controls.
func (d *Dashboard) Options() dataset.Options { return d.build.store.Options(d.page) }

// Render redraws every chart.
func (d *Dashboard) Render() error {
	d.bus.Broadcast()
	return d.flush()
}

// Control applies a change of one filter control. Every chart redraws;
// selections on the changed dimensions are dropped first.
func (d *Dashboard) Control(dim filter.Dimension, value string) error {
	if _, err := filter.ParseDimension(string(dim)); err != nil {
		return err
	}
	next, invalid := filter.Apply(d.bus.State(), filter.Control{Dimension: dim, Value: value})
	d.logger.Debug("control", "dimension", dim, "value", value, "state", next.Describe())
	d.bus.SetState(next)
	d.invalidate("", invalid)
	d.bus.Broadcast()
	return d.flush()
}

// Reset restores the default state and drops every selection.
func (d *Dashboard) Reset() error {
	next, invalid := filter.Apply(d.bus.State(), filter.Reset{})
	d.bus.SetState(next)
	for _, id := range d.charts {
		d.resolvers[id] = &Resolver{}
		d.bus.Clear(id)
	}
	d.invalidate("", invalid)
	d.bus.Broadcast()
	return d.flush()
}

// Click handles a click on the element keyed key of chart id. An empty key
// is a background click. Charts whose elements do not select anything
// ignore clicks, as do keys the chart does not currently draw.
func (d *Dashboard) Click(id ID, key string) error {
	r, ok := d.resolvers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChart, id)
	}
	v := d.views[id]
	if v.Dimension == "" {
		return nil
	}
	if key != "" && !v.Selects(key) {
		d.logger.Debug("click on unknown element ignored", "chart", id, "key", key)
		return nil
	}
	d.selected(id, r.Click(v.Dimension, key))
	return d.flush()
}

// ClickBackground handles a click on chart id outside every element.
func (d *Dashboard) ClickBackground(id ID) error {
	r, ok := d.resolvers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChart, id)
	}
	d.selected(id, r.Background())
	return d.flush()
}

// Hover shows the tooltip of the element keyed key of chart id.
func (d *Dashboard) Hover(id ID, key string) error {
	v, ok := d.views[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChart, id)
	}
	if d.tooltip == nil {
		return nil
	}
	if content, ok := v.Find(key); ok {
		d.tooltip.Show(Anchor{Chart: id, Key: key}, content)
	}
	return nil
}

// Leave hides the tooltip.
func (d *Dashboard) Leave() {
	if d.tooltip != nil {
		d.tooltip.Hide()
	}
}

// selected propagates the delta produced by source's resolver.
func (d *Dashboard) selected(source ID, delta filter.Delta) {
	if delta == nil {
		return
	}
	d.logger.Debug("selection", "chart", source, "selection", d.resolvers[source].Selection())

	// A legend pick on the multi-line chart replaces any jurisdiction control.
	if source == MultiLine && !delta.Clears() && d.bus.State().Jurisdiction != "" {
		d.bus.SetState(d.bus.State().Without(filter.Jurisdiction))
	}

	redrawn := d.invalidate(source, delta.Dims())
	for _, id := range d.bus.Publish(source, delta) {
		redrawn[id] = true
	}
	if !redrawn[source] && d.bus.Registered(source) {
		d.draw(source, d.bus.StateFor(source))
	}
}

// invalidate drops the selections other than source's that encode one of
// dims. The targets of every dropped selection redraw without it. It returns
// the charts it redrew.
func (d *Dashboard) invalidate(source ID, dims []filter.Dimension) map[ID]bool {
	redrawn := make(map[ID]bool)
	if len(dims) == 0 {
		return redrawn
	}
	for _, id := range d.charts {
		if id == source || !d.resolvers[id].Invalidate(dims...) {
			continue
		}
		d.logger.Debug("selection invalidated", "chart", id)
		d.bus.Clear(id)
		if source == "" {
			// Control events redraw everything afterwards.
			continue
		}
		for _, t := range append(d.bus.Targets(id), id) {
			if !redrawn[t] && d.bus.Registered(t) {
				d.draw(t, d.bus.StateFor(t))
				redrawn[t] = true
			}
		}
	}
	return redrawn
}

func (d *Dashboard) draw(id ID, st filter.State) {
	timer := prometheus.NewTimer(renderSeconds.WithLabelValues(string(id)))
	defer timer.ObserveDuration()

	r := d.resolvers[id]
	v := d.build.build(id, st, r.Selection())
	if sel := r.Selection(); sel.Active() && sel.Dimension != v.Dimension {
		// The chart no longer encodes what its selection names, so the
		// selection can be neither shown nor cleared by the user.
		v = d.drop(id, sel)
	}
	d.views[id] = v
	if err := d.renderer.Render(v); err != nil {
		d.logger.Error("render failed", "chart", id, "error", err)
		d.err = errors.Join(d.err, fmt.Errorf("render %s: %w", id, err))
	}
}

// drop forgets the selection of id after its encoding changed, redraws the
// charts that were filtered by it and returns id's view without it.
func (d *Dashboard) drop(id ID, sel Selection) View {
	d.logger.Debug("selection dropped", "chart", id, "selection", sel)
	d.resolvers[id].Invalidate(sel.Dimension)
	d.bus.Clear(id)
	for _, t := range d.bus.Targets(id) {
		if t != id && d.bus.Registered(t) {
			d.draw(t, d.bus.StateFor(t))
		}
	}
	return d.build.build(id, d.bus.StateFor(id), Selection{})
}

func (d *Dashboard) flush() error {
	err := d.err
	d.err = nil
	return err
}
