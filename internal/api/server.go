package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"xcs/internal/metrics"
	"xcs/internal/model"
	"xcs/internal/stats"
	"xcs/internal/storage"
)

const maxPopulationLimit = 10000

// Server exposes stored runs and populations read-only over HTTP.
type Server struct {
	router  *gin.Engine
	store   storage.Store
	metrics *metrics.Collectors
	logger  *slog.Logger
}

func NewServer(store storage.Store, collectors *metrics.Collectors, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		router:  router,
		store:   store,
		metrics: collectors,
		logger:  logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	runs := s.router.Group("/runs")
	runs.GET("", s.listRuns)
	runs.GET("/:id", s.getRun)
	runs.GET("/:id/performance", s.getPerformance)
	runs.GET("/:id/population", s.getPopulation)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listRuns(c *gin.Context) {
	runs, err := s.store.ListRuns(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}
	if runs == nil {
		runs = []model.RunSummary{}
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) getRun(c *gin.Context) {
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) getPerformance(c *gin.Context) {
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}
	points, found, err := s.store.GetPerformance(c.Request.Context(), run.ID)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if !found {
		points = []model.PerformancePoint{}
	}
	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Status(http.StatusOK)
		if err := stats.WritePerformanceCSV(c.Writer, points); err != nil {
			s.logger.Warn("write performance csv", slog.String("run_id", run.ID), slog.Any("error", err))
		}
		return
	}
	c.JSON(http.StatusOK, points)
}

// getPopulation serves the final snapshot of a run. Query parameters:
// sort (see stats.SortKeys), limit, condensed=true, format=csv.
func (s *Server) getPopulation(c *gin.Context) {
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}
	if run.PopulationID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "run has no stored population"})
		return
	}
	snap, found, err := s.store.GetPopulation(c.Request.Context(), run.PopulationID)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "population not found"})
		return
	}

	if condensed, _ := strconv.ParseBool(c.Query("condensed")); condensed {
		snap = snap.Condensed()
	}
	if err := stats.SortRules(snap.Rules, c.Query("sort")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 || limit > maxPopulationLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer in [0, 10000]"})
			return
		}
		if limit < len(snap.Rules) {
			snap.Rules = snap.Rules[:limit]
		}
	}

	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Status(http.StatusOK)
		if err := stats.WritePopulationCSV(c.Writer, snap.Rules); err != nil {
			s.logger.Warn("write population csv", slog.String("run_id", run.ID), slog.Any("error", err))
		}
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) lookupRun(c *gin.Context) (model.RunSummary, bool) {
	id := c.Param("id")
	run, ok, err := s.store.GetRun(c.Request.Context(), id)
	if err != nil {
		s.internalError(c, err)
		return model.RunSummary{}, false
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return model.RunSummary{}, false
	}
	return run, true
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.Error("api request failed", slog.String("path", c.FullPath()), slog.Any("error", err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("api request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}
