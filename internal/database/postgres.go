package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"affconsole/internal/config"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
)

var ErrNoDSN = errors.New("postgres dsn is empty")

// PoolConfig translates the application settings into a pgx pool config.
func PoolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	if cfg.DSN == "" {
		return nil, ErrNoDSN
	}
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxOpen > 0 {
		pc.MaxConns = int32(cfg.MaxOpen)
	}
	if cfg.MaxIdle > 0 && cfg.MaxIdle <= cfg.MaxOpen {
		pc.MinConns = int32(cfg.MaxIdle)
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pc.HealthCheckPeriod = 30 * time.Second
	return pc, nil
}

// NewPostgresPool connects and pings, retrying while the database is still
// starting up.
func NewPostgresPool(ctx context.Context, cfg config.PostgresConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	pc, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, err := connect(ctx, pc)
		if err == nil {
			log.Info().Int32("max_conns", pc.MaxConns).Int("attempt", attempt).Msg("postgres connected")
			return pool, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("postgres not ready")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * connectBackoff):
		}
	}
	return nil, fmt.Errorf("connect postgres after %d attempts: %w", connectAttempts, lastErr)
}

func connect(ctx context.Context, pc *pgxpool.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
