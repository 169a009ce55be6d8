package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"affconsole/internal/cache"
	"affconsole/internal/config"
	"affconsole/internal/database"
	"affconsole/internal/handlers"
	"affconsole/internal/jobs"
	"affconsole/internal/log"
	"affconsole/internal/repository"
	"affconsole/internal/security"
	"affconsole/internal/server"
	"affconsole/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := log.New(cfg.Environment)
	ctx := context.Background()

	var (
		store       repository.Store
		dbPool      *pgxpool.Pool
		redisClient *redis.Client
		objects     storage.ObjectStore
	)

	if cfg.Postgres.DSN != "" {
		dbPool, err = database.NewPostgresPool(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect postgres")
		}
		if err := database.Migrate(ctx, dbPool, logger); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		store = repository.NewPostgres(dbPool)
	} else {
		logger.Warn().Msg("postgres dsn not set, using in-memory store")
		store = repository.NewMemory().Store()
	}

	if cfg.Redis.Addr != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		store.Sessions = cache.NewSessionStore(redisClient)
	}

	if cfg.Storage.Endpoint != "" {
		minioStore, err := storage.NewMinioStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := minioStore.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure bucket failed")
		}
		objects = minioStore
	} else {
		objects = storage.NewMemoryStore(fmt.Sprintf("http://%s:%d/files", cfg.HTTP.Host, cfg.HTTP.Port))
	}

	params := security.DefaultParams
	if !cfg.IsProduction() {
		params = security.FastParams
	}
	hasher := security.NewPasswordHasher(params)
	if err := repository.Seed(ctx, store, hasher); err != nil {
		logger.Fatal().Err(err).Msg("seed failed")
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, handlers.Deps{
		Store:   store,
		Objects: objects,
		Hasher:  hasher,
		DB:      dbPool,
		Cache:   redisClient,
	})
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(handlerSet.Auth(), cfg.Security.SessionPurge, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("scheduler did not stop in time")
	}

	if db != nil {
		db.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
