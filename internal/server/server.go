// Package server exposes report generation over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Afrawles/trackreport/internal/auth"
	"github.com/Afrawles/trackreport/internal/config"
	"github.com/Afrawles/trackreport/internal/metrics"
	"github.com/Afrawles/trackreport/internal/report"
)

// Deps are the collaborators the HTTP layer calls into.
type Deps struct {
	Reports  ReportService
	Exporter *report.Exporter
	Verifier *auth.Verifier
	Metrics  *metrics.Metrics
	Health   HealthChecker
}

type Server struct {
	cfg      *config.Config
	log      zerolog.Logger
	reports  ReportService
	exporter *report.Exporter
	metrics  *metrics.Metrics
	health   HealthChecker
	engine   *gin.Engine
}

func New(cfg *config.Config, log zerolog.Logger, deps Deps) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log.With().Str("component", "http").Logger(),
		reports:  deps.Reports,
		exporter: deps.Exporter,
		metrics:  deps.Metrics,
		health:   deps.Health,
	}
	s.engine = s.routes(deps.Verifier)
	return s
}

func (s *Server) routes(v *auth.Verifier) *gin.Engine {
	if !s.cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(s.log), observe(s.metrics))

	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	lim := newLimiters(s.cfg.RateLimit.RPS, s.cfg.RateLimit.Burst)
	apiGroup := r.Group("/api",
		timeout(s.cfg.Server.RequestTimeout),
		authenticate(v, s.log),
		rateLimit(lim, s.log),
	)
	apiGroup.POST("/reports/export", s.exportReport)
	apiGroup.POST("/reports/download", s.downloadReport)
	apiGroup.GET("/projects/:projectId/reports/:reportType", s.getReport)

	return r
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ServerAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	s.log.Info().Msg("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
