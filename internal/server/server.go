package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atikulmunna/logdiagram/internal/aggregator"
	"github.com/atikulmunna/logdiagram/internal/diagram"
	"github.com/atikulmunna/logdiagram/internal/filter"
	"github.com/atikulmunna/logdiagram/internal/hub"
	"github.com/atikulmunna/logdiagram/internal/metrics"
	"github.com/atikulmunna/logdiagram/internal/model"
	"github.com/atikulmunna/logdiagram/internal/pipeline"
)

const shutdownTimeout = 5 * time.Second

// Server exposes diagram generation over HTTP. Hub and Aggregator are only
// set in live mode; their routes are not registered otherwise.
type Server struct {
	engine     *gin.Engine
	gen        *pipeline.Generator
	hub        *hub.Hub
	aggregator *aggregator.Aggregator
	metrics    *metrics.Metrics
	logger     *zap.Logger
	addr       string
	startTime  time.Time
}

// Option configures optional live-mode dependencies.
type Option func(*Server)

// WithLive enables /ws, /api/latest and /api/stats.
func WithLive(h *hub.Hub, agg *aggregator.Aggregator) Option {
	return func(s *Server) {
		s.hub = h
		s.aggregator = agg
	}
}

// New creates the HTTP server.
func New(gen *pipeline.Generator, m *metrics.Metrics, logger *zap.Logger, addr string, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	s := &Server{
		engine:    engine,
		gen:       gen,
		metrics:   m,
		logger:    logger,
		addr:      addr,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	engine.Use(s.requestLogger())
	s.setupRoutes()
	return s
}

// Handler returns the underlying http.Handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	api := s.engine.Group("/api")
	api.POST("/diagram", s.handleDiagram)
	api.POST("/facets", s.handleFacets)

	if s.hub != nil {
		api.GET("/latest", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.hub.Latest())
		})
		s.engine.GET("/ws", s.handleWebSocket)
	}
	if s.aggregator != nil {
		api.GET("/stats", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.aggregator.Snapshot())
		})
	}

	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	// pprof profiling endpoints.
	s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.engine.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.engine.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
	s.engine.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger tags each request with an id and logs its outcome.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)

		start := time.Now()
		c.Next()

		s.logger.Debug("request",
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

type diagramRequest struct {
	Log     string           `json:"log"`
	Type    string           `json:"type"`
	Dialect string           `json:"dialect"`
	Filters filter.Selection `json:"filters"`
}

type diagramResponse struct {
	ID      string              `json:"id"`
	Type    diagram.Type        `json:"type"`
	Dialect model.Dialect       `json:"dialect"`
	Legacy  bool                `json:"legacy"`
	Source  string              `json:"source"`
	URL     string              `json:"url"`
	Entries int                 `json:"entries"`
	Facets  filter.SortedFacets `json:"facets"`
}

type facetsRequest struct {
	Log     string `json:"log"`
	Dialect string `json:"dialect"`
}

type facetsResponse struct {
	filter.SortedFacets
	DefaultSelection filter.Selection `json:"default_selection"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).Truncate(time.Second).String(),
		"live":   s.hub != nil,
	})
}

func (s *Server) handleDiagram(c *gin.Context) {
	var req diagramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	t, err := diagram.ParseType(req.Type)
	if err != nil {
		badRequest(c, err)
		return
	}
	dialect, ok := model.ParseDialect(req.Dialect)
	if !ok {
		badRequest(c, errors.New("unknown dialect "+req.Dialect))
		return
	}

	res, err := s.gen.Generate(c.Request.Context(), pipeline.Request{
		Lines:   pipeline.SplitLines(req.Log),
		Type:    t,
		Dialect: dialect,
		Filters: req.Filters,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, diagramResponse{
		ID:      res.ID,
		Type:    res.Type,
		Dialect: res.Dialect,
		Legacy:  res.Legacy,
		Source:  res.Source,
		URL:     res.URL,
		Entries: len(res.Entries),
		Facets:  res.Facets,
	})
}

func (s *Server) handleFacets(c *gin.Context) {
	var req facetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	dialect, ok := model.ParseDialect(req.Dialect)
	if !ok {
		badRequest(c, errors.New("unknown dialect "+req.Dialect))
		return
	}

	facets, err := s.gen.Facets(pipeline.SplitLines(req.Log), dialect)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, facetsResponse{
		SortedFacets:     facets.Sorted(),
		DefaultSelection: filter.DefaultSelection(facets),
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pipeline.ErrNoContent), errors.Is(err, diagram.ErrUnknownType):
		badRequest(c, err)
	default:
		s.logger.Error("generation failed", zap.Error(err), zap.String("request_id", c.GetString("request_id")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
