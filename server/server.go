// Package server serves roadwatch dashboards over HTTP. Each browser gets a
// session holding its own dashboard; the page posts control changes, clicks
// and hovers and receives the redrawn views as JSON.
package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gonum.org/v1/plot/vg"

	"github.com/zalepa/roadwatch/chart"
	"github.com/zalepa/roadwatch/dataset"
	"github.com/zalepa/roadwatch/filter"
	"github.com/zalepa/roadwatch/render"
)

//go:embed web.html
var htmlContent embed.FS

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roadwatch_sessions_active",
		Help: "Dashboards currently held in memory.",
	})
	sessionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roadwatch_sessions_evicted_total",
		Help: "Sessions dropped to make room for new ones.",
	})
	requestSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roadwatch_http_request_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

var contentTypes = map[string]string{
	"png": "image/png",
	"svg": "image/svg+xml",
	"pdf": "application/pdf",
}

// Options configures a Server.
type Options struct {
	Charts      chart.Config
	MaxSessions int
	Logger      *slog.Logger
}

// Server owns the session table and the HTTP routes.
type Server struct {
	store    *dataset.Store
	opts     Options
	logger   *slog.Logger
	sessions *sessions
	engine   *gin.Engine
}

// New builds a server over store.
func New(store *dataset.Store, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Charts == (chart.Config{}) {
		opts.Charts = chart.DefaultConfig()
	}
	s := &Server{
		store:    store,
		opts:     opts,
		logger:   logger,
		sessions: newSessions(opts.MaxSessions),
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.observe())
	s.routes(s.engine)
	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("serving", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// routes registers:
//
//	GET    /                                   dashboard page
//	GET    /healthz                            liveness
//	GET    /metrics                            prometheus metrics
//	GET    /api/pages                          pages with their charts and options
//	POST   /api/sessions                       open a dashboard for a page
//	GET    /api/sessions/:id                   current views
//	DELETE /api/sessions/:id                   close a dashboard
//	GET    /api/sessions/:id/options           control values
//	POST   /api/sessions/:id/control           change one control
//	POST   /api/sessions/:id/reset             reset every control
//	POST   /api/sessions/:id/leave             hide the tooltip
//	POST   /api/sessions/:id/charts/:chart/click
//	POST   /api/sessions/:id/charts/:chart/background
//	POST   /api/sessions/:id/charts/:chart/hover
//	GET    /api/sessions/:id/charts/:chart/image
func (s *Server) routes(r *gin.Engine) {
	r.GET("/", s.index)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/pages", s.pages)
	api.POST("/sessions", s.createSession)

	sess := api.Group("/sessions/:id")
	sess.GET("", s.op(func(*gin.Context, *session) error { return nil }))
	sess.DELETE("", s.deleteSession)
	sess.GET("/options", s.options)
	sess.POST("/control", s.op(s.control))
	sess.POST("/reset", s.op(func(_ *gin.Context, ss *session) error { return ss.dash.Reset() }))
	sess.POST("/leave", s.op(func(_ *gin.Context, ss *session) error { ss.dash.Leave(); return nil }))
	sess.POST("/charts/:chart/click", s.op(s.click))
	sess.POST("/charts/:chart/background", s.op(func(c *gin.Context, ss *session) error {
		return ss.dash.ClickBackground(chart.ID(c.Param("chart")))
	}))
	sess.POST("/charts/:chart/hover", s.op(s.hover))
	sess.GET("/charts/:chart/image", s.image)
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		requestSeconds.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		s.logger.Debug("request", "method", c.Request.Method, "route", route, "status", status,
			"elapsed", time.Since(start))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, chart.ErrUnknownChart):
		status = http.StatusNotFound
	case errors.Is(err, filter.ErrUnknownDimension), errors.Is(err, dataset.ErrUnknownPage):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Request.URL.Path, "err", err)
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}

func (s *Server) index(c *gin.Context) {
	data, err := htmlContent.ReadFile("web.html")
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

type pageInfo struct {
	Page    dataset.Page    `json:"page"`
	Charts  []chart.ID      `json:"charts"`
	Options dataset.Options `json:"options"`
}

func (s *Server) pages(c *gin.Context) {
	out := make([]pageInfo, 0, len(dataset.Pages))
	for _, p := range dataset.Pages {
		out = append(out, pageInfo{Page: p, Charts: chart.PageCharts(p), Options: s.store.Options(p)})
	}
	c.JSON(http.StatusOK, out)
}

type createRequest struct {
	Page string `json:"page" binding:"required"`
}

func (s *Server) createSession(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	page, err := dataset.ParsePage(req.Page)
	if err != nil {
		s.fail(c, err)
		return
	}
	drawn := &render.Recorder{}
	tip := &tooltipState{}
	dash, err := chart.New(s.store, page, drawn,
		chart.WithConfig(s.opts.Charts),
		chart.WithLogger(s.logger),
		chart.WithTooltip(tip))
	if err != nil {
		s.fail(c, err)
		return
	}
	ss := s.sessions.add(dash, drawn, tip)
	s.logger.Info("session opened", "session", ss.id, "page", page)
	c.JSON(http.StatusCreated, ss.snapshot())
}

func (s *Server) session(c *gin.Context) (*session, bool) {
	ss, ok := s.sessions.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "no such session"})
	}
	return ss, ok
}

// op runs fn on the session under its lock and answers with the session
// snapshot, whose Redrawn lists what fn drew.
func (s *Server) op(fn func(*gin.Context, *session) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ss, ok := s.session(c)
		if !ok {
			return
		}
		ss.mu.Lock()
		defer ss.mu.Unlock()
		ss.drawn.Reset()
		if err := fn(c, ss); err != nil {
			s.fail(c, err)
			return
		}
		if c.IsAborted() {
			return
		}
		c.JSON(http.StatusOK, ss.snapshot())
	}
}

func (s *Server) deleteSession(c *gin.Context) {
	if !s.sessions.remove(c.Param("id")) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "no such session"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) options(c *gin.Context) {
	ss, ok := s.session(c)
	if !ok {
		return
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	c.JSON(http.StatusOK, ss.dash.Options())
}

type controlRequest struct {
	Dimension string `json:"dimension" binding:"required"`
	Value     string `json:"value"`
}

func (s *Server) control(c *gin.Context, ss *session) error {
	var req controlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil
	}
	dim, err := filter.ParseDimension(req.Dimension)
	if err != nil {
		return err
	}
	return ss.dash.Control(dim, req.Value)
}

type keyRequest struct {
	Key string `json:"key" binding:"required"`
}

func (s *Server) click(c *gin.Context, ss *session) error {
	var req keyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil
	}
	return ss.dash.Click(chart.ID(c.Param("chart")), req.Key)
}

func (s *Server) hover(c *gin.Context, ss *session) error {
	var req keyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil
	}
	return ss.dash.Hover(chart.ID(c.Param("chart")), req.Key)
}

type imageQuery struct {
	Format string  `form:"format"`
	Width  float64 `form:"width"`
	Height float64 `form:"height"`
}

// image draws one chart of the session. Width and height are in inches.
func (s *Server) image(c *gin.Context) {
	q := imageQuery{Format: "png"}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	ctype, ok := contentTypes[q.Format]
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "format must be png, svg or pdf"})
		return
	}
	w, h := render.Width, render.Height
	if q.Width > 0 && q.Height > 0 {
		w, h = vg.Length(q.Width)*vg.Inch, vg.Length(q.Height)*vg.Inch
	}

	ss, ok := s.session(c)
	if !ok {
		return
	}
	ss.mu.Lock()
	v, ok := ss.dash.View(chart.ID(c.Param("chart")))
	ss.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "no such chart on this page"})
		return
	}
	var buf bytes.Buffer
	if err := render.WriteImage(&buf, v, q.Format, w, h); err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, ctype, buf.Bytes())
}
