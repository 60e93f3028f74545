package render

import (
	"sync"

	"github.com/zalepa/roadwatch/chart"
)

// Recorder is a chart.Renderer that keeps the latest view of every chart in
// first-drawn order and counts redraws. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	order  []chart.ID
	latest map[chart.ID]chart.View
	counts map[chart.ID]int
}

// Render implements chart.Renderer.
func (r *Recorder) Render(v chart.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest == nil {
		r.latest = make(map[chart.ID]chart.View)
		r.counts = make(map[chart.ID]int)
	}
	if _, ok := r.latest[v.Chart]; !ok {
		r.order = append(r.order, v.Chart)
	}
	r.latest[v.Chart] = v
	r.counts[v.Chart]++
	return nil
}

// Views returns the latest view of every chart drawn so far.
func (r *Recorder) Views() []chart.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]chart.View, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.latest[id])
	}
	return out
}

// Count returns how many times id was drawn.
func (r *Recorder) Count(id chart.ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[id]
}

// Reset forgets everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order, r.latest, r.counts = nil, nil, nil
}
