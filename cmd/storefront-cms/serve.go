package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"storefront/cms/internal/app"
	"storefront/cms/internal/blocks"
	"storefront/cms/internal/events"
	"storefront/cms/internal/export"
	"storefront/cms/internal/gitrepo"
	"storefront/cms/internal/metrics"
	"storefront/cms/internal/search"
	"storefront/cms/internal/session"
	"storefront/cms/internal/store"
)

const eventStream = "STOREFRONT"

type ServeCmd struct {
	SkipMigrations bool `name:"skip-migrations" help:"Do not apply pending migrations on startup"`
}

func (c *ServeCmd) Run(g *Global) error {
	cfg, logger := g.Config, g.Logger
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if !c.SkipMigrations {
		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
	}
	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		return fmt.Errorf("create revisions dir: %w", err)
	}

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	dataStore := store.NewPostgresStore(db)
	pgfts := search.NewPgFTS(db)
	var searchService *search.Service
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meili.Close()
		searchService = search.NewService(meili, pgfts, pgfts, logger)
	} else {
		searchService = search.NewService(nil, pgfts, pgfts, logger)
	}

	recorder := metrics.NewPrometheusRecorder(prom.NewRegistry())
	deps := app.Deps{
		Store:     dataStore,
		Revisions: gitrepo.New(cfg.ReposDir),
		Search:    searchService,
		Renderer:  export.NewService(blocks.Default()),
		Events:    events.Nop{},
		Metrics:   recorder,
		Logger:    logger,
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		logger.Info("using redis for previews and revoked sessions")
		redisStore, err := session.NewRedisStore(cfg.RedisURL, cfg.AccessTTL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		closers = append(closers, redisStore)
		deps.Previews = redisStore
	} else {
		logger.Warn("REDIS_URL is empty; previews are kept in process memory")
		deps.Previews = session.NewMemoryStore()
	}

	if strings.TrimSpace(cfg.NATSURL) != "" {
		js, err := events.NewJetStreamPublisher(ctx, cfg.NATSURL, cfg.NATSSubjectPrefix, eventStream, logger)
		if err != nil {
			return fmt.Errorf("nats connection failed: %w", err)
		}
		closers = append(closers, js)
		deps.Events = js
	}

	service := app.New(cfg, deps)
	if !service.SignInEnabled() {
		logger.Warn("no editor or admin password hash configured; sign-in is disabled")
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, logger, recorder, recorder.Handler())
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("storefront cms listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
