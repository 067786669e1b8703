// Package postgres reads tracker records from PostgreSQL for the report pipeline.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/Afrawles/trackreport/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Postgres wraps a pgx pool and its configuration.
type Postgres struct {
	log zerolog.Logger
	db  *pgxpool.Pool
	cfg config.PostgresConfig
}

func New(log zerolog.Logger, cfg config.PostgresConfig) *Postgres {
	return &Postgres{
		log: log.With().Str("component", "store.postgres").Logger(),
		cfg: cfg,
	}
}

// Open establishes the connection pool and pings it.
func (p *Postgres) Open(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(p.cfg.DSN())
	if err != nil {
		return fmt.Errorf("parse pool config: %w", err)
	}
	if p.cfg.MaxConns > 0 {
		poolCfg.MaxConns = p.cfg.MaxConns
	}
	if p.cfg.MinConns > 0 {
		poolCfg.MinConns = p.cfg.MinConns
	}

	connectCtx, cancel := p.queryCtx(ctx)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return fmt.Errorf("ping pool: %w", err)
	}

	p.db = pool
	p.log.Info().Str("host", p.cfg.Host).Int("port", p.cfg.Port).Msg("postgres ready")
	return nil
}

// Migrate applies the embedded goose migrations over a database/sql connection.
func (p *Postgres) Migrate(ctx context.Context) error {
	sqlDB, err := sql.Open("postgres", p.cfg.DSN())
	if err != nil {
		return fmt.Errorf("open sql: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	migrateCtx := ctx
	if p.cfg.MigrateTimeout > 0 {
		var cancel context.CancelFunc
		migrateCtx, cancel = context.WithTimeout(ctx, p.cfg.MigrateTimeout)
		defer cancel()
	}

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate dialect: %w", err)
	}
	if err := goose.UpContext(migrateCtx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	version, err := goose.GetDBVersionContext(migrateCtx, sqlDB)
	if err != nil {
		return fmt.Errorf("migrate version: %w", err)
	}
	p.log.Info().Int64("version", version).Msg("migrations applied")
	return nil
}

func (p *Postgres) Close() {
	if p.db != nil {
		p.db.Close()
	}
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) HealthCheck(ctx context.Context) error {
	if p.db == nil {
		return errors.New("postgres pool is not open")
	}
	ctx, cancel := p.queryCtx(ctx)
	defer cancel()
	return p.db.Ping(ctx)
}

// TryLock takes a session advisory lock on a dedicated connection. ok is false when another
// session holds it; unlock must be called when ok is true.
func (p *Postgres) TryLock(ctx context.Context, key int64) (unlock func(), ok bool, err error) {
	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire conn: %w", err)
	}

	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}

	return func() {
		if _, err := conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, key); err != nil {
			p.log.Error().Err(err).Int64("key", key).Msg("advisory unlock failed")
		}
		conn.Release()
	}, true, nil
}

func (p *Postgres) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.cfg.QueryTimeout)
}
