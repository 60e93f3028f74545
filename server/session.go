package server

import (
	"sync"

	"github.com/google/uuid"

	"github.com/zalepa/roadwatch/chart"
	"github.com/zalepa/roadwatch/dataset"
	"github.com/zalepa/roadwatch/filter"
	"github.com/zalepa/roadwatch/render"
)

// tooltip keeps the tooltip currently shown by a session.
type tooltip struct {
	Chart   chart.ID `json:"chart"`
	Key     string   `json:"key"`
	Content string   `json:"content"`
}

type tooltipState struct{ cur *tooltip }

func (t *tooltipState) Show(at chart.Anchor, content string) {
	t.cur = &tooltip{Chart: at.Chart, Key: at.Key, Content: content}
}

func (t *tooltipState) Hide() { t.cur = nil }

// session is one browser's dashboard. A dashboard is not safe for concurrent
// use, so every access goes through mu.
type session struct {
	id    string
	mu    sync.Mutex
	dash  *chart.Dashboard
	drawn *render.Recorder
	tip   *tooltipState
}

// snapshot is the JSON body describing a session after an operation.
type snapshot struct {
	ID       string       `json:"id"`
	Page     dataset.Page `json:"page"`
	Charts   []chart.ID   `json:"charts"`
	Controls filter.State `json:"controls"`
	Views    []chart.View `json:"views"`
	// Redrawn lists the charts drawn by the last operation.
	Redrawn []chart.ID `json:"redrawn"`
	Tooltip *tooltip   `json:"tooltip"`
}

func (s *session) snapshot() snapshot {
	var redrawn []chart.ID
	for _, v := range s.drawn.Views() {
		redrawn = append(redrawn, v.Chart)
	}
	return snapshot{
		ID:       s.id,
		Page:     s.dash.Page(),
		Charts:   s.dash.Charts(),
		Controls: s.dash.State(),
		Views:    s.dash.Views(),
		Redrawn:  redrawn,
		Tooltip:  s.tip.cur,
	}
}

// sessions is the bounded set of live dashboards. When full, the oldest
// session is evicted.
type sessions struct {
	mu    sync.Mutex
	max   int
	byID  map[string]*session
	order []string
}

func newSessions(limit int) *sessions {
	return &sessions{max: limit, byID: make(map[string]*session)}
}

func (ss *sessions) add(dash *chart.Dashboard, drawn *render.Recorder, tip *tooltipState) *session {
	s := &session{
		id:    uuid.NewString(),
		dash:  dash,
		drawn: drawn,
		tip:   tip,
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.max > 0 {
		for len(ss.order) >= ss.max {
			delete(ss.byID, ss.order[0])
			ss.order = ss.order[1:]
			sessionsEvicted.Inc()
		}
	}
	ss.byID[s.id] = s
	ss.order = append(ss.order, s.id)
	sessionsActive.Set(float64(len(ss.byID)))
	return s
}

func (ss *sessions) get(id string) (*session, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	s, ok := ss.byID[id]
	return s, ok
}

func (ss *sessions) remove(id string) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if _, ok := ss.byID[id]; !ok {
		return false
	}
	delete(ss.byID, id)
	for i, o := range ss.order {
		if o == id {
			ss.order = append(ss.order[:i], ss.order[i+1:]...)
			break
		}
	}
	sessionsActive.Set(float64(len(ss.byID)))
	return true
}

func (ss *sessions) len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.byID)
}
