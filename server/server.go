// Package server exposes the latest dashboard run over a REST API and
// pushes refresh progress and results to websocket subscribers. Runs
// are refreshed on demand through POST /api/v1/refresh and, when
// configured, on a cron schedule.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"

	"github.com/rustyeddy/marketdash/alpaca"
	"github.com/rustyeddy/marketdash/analyze"
	"github.com/rustyeddy/marketdash/config"
	"github.com/rustyeddy/marketdash/dashboard"
	"github.com/rustyeddy/marketdash/journal"
)

// RunLister is the slice of the journal the run-history endpoint
// needs. *journal.SQLite satisfies it; the CSV journal does not, and
// the endpoint says so.
type RunLister interface {
	ListRecent(n int) ([]journal.RunRecord, error)
}

// Options configures a Server. Config and Runner are required.
type Options struct {
	Config *config.Config
	Runner *dashboard.Runner
	Runs   RunLister
	Logf   func(format string, args ...any)
}

// Server holds the latest completed run and the collaborators that
// produce the next one.
type Server struct {
	cfg    *config.Config
	runner *dashboard.Runner
	runs   RunLister
	logf   func(format string, args ...any)

	engine      *gin.Engine
	hub         *Hub
	granularity alpaca.Granularity

	mu      sync.RWMutex
	latest  *Snapshot
	lastRun *dashboard.RunResult
	ctx     context.Context

	refreshing atomic.Bool
	started    time.Time
}

// New builds the router, hub and handlers around a validated config.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("server: Config is required")
	}
	if opts.Runner == nil {
		return nil, fmt.Errorf("server: Runner is required")
	}
	g, err := alpaca.ParseGranularity(opts.Config.Dashboard.Granularity)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		cfg:         opts.Config,
		runner:      opts.Runner,
		runs:        opts.Runs,
		logf:        logf,
		engine:      gin.New(),
		hub:         newHub(logf),
		granularity: g,
		started:     time.Now(),
	}
	s.engine.Use(gin.Recovery())

	// Refresh progress reaches subscribers as it happens.
	if s.runner.OnProgress == nil {
		s.runner.OnProgress = func(completed, total int) {
			s.hub.Broadcast(progressEvent{Type: "progress", Completed: completed, Total: total})
		}
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.getHealth)

	api := s.engine.Group("/api/v1")
	api.GET("/dashboard", s.getDashboard)
	api.GET("/symbols/:symbol", s.getSymbol)
	api.GET("/compare", s.getCompare)
	api.GET("/runs", s.getRuns)
	api.POST("/refresh", s.postRefresh)

	s.engine.GET("/ws", s.handleWebSocket)
}

// Start runs the hub, the optional cron refresher and the HTTP
// listener until ctx is canceled, then drains connections with a
// timeout. One refresh is kicked at startup so the dashboard has data
// without waiting for the first schedule tick.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	go s.hub.Run(ctx)

	if spec := s.cfg.Server.RefreshCron; spec != "" {
		c := cron.New()
		if _, err := c.AddFunc(spec, func() { s.kickRefresh(s.defaultRequest()) }); err != nil {
			return fmt.Errorf("server: refresh schedule: %w", err)
		}
		c.Start()
		defer c.Stop()
		s.logf("auto refresh on schedule %q", spec)
	}

	s.kickRefresh(s.defaultRequest())

	srv := &http.Server{Addr: s.cfg.Server.Addr, Handler: s.engine}
	errc := make(chan error, 1)
	go func() {
		s.logf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// defaultRequest builds the configured run: the dashboard symbols over
// the trailing lookback ending today.
func (s *Server) defaultRequest() dashboard.RunRequest {
	d := s.cfg.Dashboard
	end := time.Now().UTC().Truncate(24 * time.Hour)
	return dashboard.RunRequest{
		Symbols:     d.Symbols,
		Start:       end.AddDate(0, 0, -d.Days),
		End:         end,
		Granularity: s.granularity,
		Window:      d.Window,
	}
}

// kickRefresh starts one refresh in the background. A refresh already
// in flight wins; overlapping runs would double-fetch the same range.
func (s *Server) kickRefresh(req dashboard.RunRequest) bool {
	if !s.refreshing.CompareAndSwap(false, true) {
		s.logf("[WARN] refresh already in progress, skipping")
		return false
	}
	go func() {
		defer s.refreshing.Store(false)
		s.refresh(req)
	}()
	return true
}

func (s *Server) refresh(req dashboard.RunRequest) {
	res, err := s.runner.Run(s.runCtx(), req)
	if err != nil {
		s.logf("[WARN] refresh: %v", err)
		s.hub.Broadcast(refreshFailedEvent{Type: "refresh_failed", Error: err.Error()})
		return
	}

	snap := buildSnapshot(res)
	s.mu.Lock()
	s.lastRun = &res
	s.latest = &snap
	s.mu.Unlock()

	s.logf("refresh %s: %d symbols in %s",
		res.RunID, len(res.Series), res.Elapsed.Round(time.Millisecond))
	s.hub.BroadcastState(snap)
}

func (s *Server) runCtx() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}

func (s *Server) getHealth(c *gin.Context) {
	s.mu.RLock()
	snap := s.latest
	s.mu.RUnlock()

	h := gin.H{
		"status":     "ok",
		"uptime":     time.Since(s.started).Round(time.Second).String(),
		"clients":    s.hub.Clients(),
		"refreshing": s.refreshing.Load(),
	}
	if snap != nil {
		h["last_run"] = snap.RunID
		h["last_refresh"] = snap.GeneratedAt
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) getDashboard(c *gin.Context) {
	s.mu.RLock()
	snap := s.latest
	s.mu.RUnlock()

	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed run yet"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) getSymbol(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))

	s.mu.RLock()
	run := s.lastRun
	s.mu.RUnlock()

	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed run yet"})
		return
	}
	d, ok := run.Derived[symbol]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no data for symbol %q", symbol)})
		return
	}
	c.JSON(http.StatusOK, buildSymbolDetail(d, run.Stats[symbol]))
}

func (s *Server) getCompare(c *gin.Context) {
	s.mu.RLock()
	run := s.lastRun
	s.mu.RUnlock()

	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed run yet"})
		return
	}
	c.JSON(http.StatusOK, buildCompare(*run))
}

func (s *Server) getRuns(c *gin.Context) {
	if s.runs == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "run history requires the sqlite journal"})
		return
	}

	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	recs, err := s.runs.ListRecent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": buildRunSummaries(recs)})
}

// refreshRequest overrides parts of the configured run for one
// on-demand refresh. Zero values keep the config defaults.
type refreshRequest struct {
	Symbols     []string `json:"symbols"`
	Days        int      `json:"days"`
	Granularity string   `json:"granularity"`
	Window      int      `json:"window"`
}

func (s *Server) postRefresh(c *gin.Context) {
	var body refreshRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	req := s.defaultRequest()
	if len(body.Symbols) > 0 {
		req.Symbols = body.Symbols
	}
	if body.Days > 0 {
		req.Start = req.End.AddDate(0, 0, -body.Days)
	}
	if body.Granularity != "" {
		g, err := alpaca.ParseGranularity(body.Granularity)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.Granularity = g
	}
	if body.Window != 0 {
		if body.Window < analyze.MinWindow || body.Window > analyze.MaxWindow {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(
				"window must be between %d and %d, got %d",
				analyze.MinWindow, analyze.MaxWindow, body.Window)})
			return
		}
		req.Window = body.Window
	}

	if !s.kickRefresh(req) {
		c.JSON(http.StatusConflict, gin.H{"error": "refresh already in progress"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "refresh started"})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logf("[WARN] websocket upgrade: %v", err)
		return
	}

	cl := &client{hub: s.hub, conn: conn, send: make(chan any, sendBuffer)}
	select {
	case s.hub.register <- cl:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go cl.writePump()
	go cl.readPump()
}
