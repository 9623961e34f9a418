package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lessonbin/quizdoc/internal/auth"
	"github.com/lessonbin/quizdoc/internal/config"
	"github.com/lessonbin/quizdoc/internal/db/repository"
	"github.com/lessonbin/quizdoc/internal/logging"
	"github.com/lessonbin/quizdoc/internal/publish"
	"github.com/lessonbin/quizdoc/internal/publish/bin"
	"github.com/lessonbin/quizdoc/internal/registry"
	"github.com/lessonbin/quizdoc/internal/server"
	ws "github.com/lessonbin/quizdoc/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	worker      *publish.Worker
	broadcaster *registry.Broadcaster
	bgCancels   []context.CancelFunc
}

// New bootstraps config, logger, Postgres, Redis, services and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Msg("starting application bootstrap")

	pool, err := pgxpool.New(ctx, cfg.Postgres.ConnString())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	docRepo := repository.NewDocumentRepository(pool)
	registryRepo := repository.NewRegistryRepository(pool)

	tokens := auth.NewTokenManager(auth.TokenConfig{
		Secret: []byte(cfg.Security.TokenSecret),
		Issuer: cfg.Name,
		TTL:    cfg.Security.TokenTTL,
	})

	registryCache := registry.NewCache(redisClient, cfg.Registry.CacheTTL)
	registrySvc := registry.NewService(registryRepo, registryCache, redisClient, registry.ServiceOptions{
		UpdateChannel: cfg.Registry.UpdateChannel,
	}, logger)

	binClient := bin.NewClient(cfg.BinHost.BaseURL, cfg.BinHost.APIToken, &http.Client{
		Timeout: cfg.BinHost.HTTPTimeout,
	})

	publishSvc := publish.NewService(docRepo, binClient, registrySvc, cfg.Publish.QueueSize, logger)
	worker := publish.NewWorker(publishSvc, logger, cfg.Publish.JobTimeout)

	wsHub := ws.NewHub(logger)
	broadcaster := registry.NewBroadcaster(redisClient, wsHub, cfg.Registry.UpdateChannel, logger)

	handlers := server.NewHandlers(
		publishSvc,
		registrySvc,
		wsHub,
		tokens,
		cfg.Security.AdminKeyHash,
		cfg.Security.TokenTTL,
		logger,
	)
	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, tokens, handlers)

	return &Application{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		redis:       redisClient,
		http:        apiServer,
		worker:      worker,
		broadcaster: broadcaster,
		bgCancels:   make([]context.CancelFunc, 0, 1),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.worker.Stop()
	for _, cancel := range a.bgCancels {
		cancel()
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	go a.worker.Run()

	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	go func() {
		if err := a.broadcaster.Run(bgCtx); err != nil && err != context.Canceled {
			a.logger.Warn().Err(err).Msg("registry broadcaster stopped")
		}
	}()
}
