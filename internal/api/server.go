// Package api serves the aggregation engine over a read-only JSON HTTP API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"llm-trade-verifier/internal/analytics"
	"llm-trade-verifier/internal/models"
)

// Engine is the subset of analytics.Service the handlers call.
type Engine interface {
	Ranking(ctx context.Context) ([]analytics.ModelStats, error)
	ChartSummary(ctx context.Context) (analytics.ChartData, error)
	FilterRecords(ctx context.Context, spec analytics.FilterSpec) (analytics.FilteredView, error)
	SummaryStats(ctx context.Context) (analytics.Summary, error)
}

// ModelLister lists every registered model.
type ModelLister interface {
	GetModels(ctx context.Context) ([]models.AIModel, error)
}

// Config holds the listener settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server wires the handlers onto a gin engine.
type Server struct {
	engine  Engine
	models  ModelLister
	logger  zerolog.Logger
	handler *gin.Engine
}

// NewServer creates a Server and registers its routes.
func NewServer(engine Engine, ml ModelLister, logger zerolog.Logger) *Server {
	s := &Server{
		engine: engine,
		models: ml,
		logger: logger.With().Str("component", "api").Logger(),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(s.logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/summary", s.getSummary)
		v1.GET("/ranking", s.getRanking)
		v1.GET("/chart", s.getChart)
		v1.GET("/records", s.getRecords)
		v1.GET("/export.csv", s.exportCSV)
		v1.GET("/models", s.getModels)
	}
	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, cfg Config) error {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", cfg.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("Server exited properly")
	return nil
}
