// Package app wires configuration, storage, report generation and the HTTP server together.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Afrawles/trackreport/internal/analytics"
	"github.com/Afrawles/trackreport/internal/auth"
	"github.com/Afrawles/trackreport/internal/config"
	"github.com/Afrawles/trackreport/internal/jobs"
	"github.com/Afrawles/trackreport/internal/logger"
	"github.com/Afrawles/trackreport/internal/metrics"
	"github.com/Afrawles/trackreport/internal/report"
	"github.com/Afrawles/trackreport/internal/server"
	"github.com/Afrawles/trackreport/internal/store/postgres"
)

type Application struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
	Store    *postgres.Postgres
	Reports  *report.Service
	Exporter *report.Exporter
}

func New(cfg *config.Config) *Application {
	log := logger.New(cfg)
	m := metrics.New()
	store := postgres.New(log, cfg.Postgres)

	aggregator := analytics.NewAggregator(analytics.DefaultScorers(nil))
	reports := report.NewService(store, report.NewAssembler(aggregator), log, m)

	return &Application{
		Config:   cfg,
		Logger:   log,
		Metrics:  m,
		Store:    store,
		Reports:  reports,
		Exporter: report.NewExporter(),
	}
}

// Migrate applies the schema migrations.
func (app *Application) Migrate(ctx context.Context) error {
	return app.Store.Migrate(ctx)
}

// Serve runs the HTTP API, and the export scheduler when jobs are configured, until ctx ends.
func (app *Application) Serve(ctx context.Context) error {
	if err := app.Config.ValidateServer(); err != nil {
		return err
	}
	if err := app.Store.Open(ctx); err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer app.Store.Close()

	if len(app.Config.Export.Jobs) > 0 {
		cr, err := jobs.New(app.Config, app.Logger, app.Reports, app.Exporter, app.Store, app.Metrics)
		if err != nil {
			return err
		}
		cr.Start()
		app.Logger.Info().
			Str("schedule", app.Config.Export.Schedule).
			Int("jobs", len(app.Config.Export.Jobs)).
			Msg("scheduled exports enabled")
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
			defer cancel()
			cr.Stop(stopCtx)
		}()
	}

	srv := server.New(app.Config, app.Logger, server.Deps{
		Reports:  app.Reports,
		Exporter: app.Exporter,
		Verifier: auth.NewVerifier(app.Config.Auth.JWTSecret, app.Config.Auth.JWTIssuer),
		Metrics:  app.Metrics,
		Health:   app.Store,
	})

	start := time.Now()
	err := srv.Run(ctx)
	app.Logger.Info().Dur("uptime", time.Since(start)).Msg("server stopped")
	return err
}

// MintToken signs a token for local use against the API.
func (app *Application) MintToken(userID, orgID string, ttl time.Duration) (string, error) {
	if app.Config.Auth.JWTSecret == "" {
		return "", fmt.Errorf("auth.jwt_secret is required")
	}
	if ttl <= 0 {
		ttl = app.Config.Auth.TokenTTL
	}
	issuer := auth.NewIssuer(app.Config.Auth.JWTSecret, app.Config.Auth.JWTIssuer)
	return issuer.Mint(auth.Principal{UserID: userID, OrgID: orgID}, ttl)
}
