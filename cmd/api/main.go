package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/harborfin/contactdesk-backend/api/routes"
	"github.com/harborfin/contactdesk-backend/internal/audit"
	"github.com/harborfin/contactdesk-backend/internal/automation"
	"github.com/harborfin/contactdesk-backend/internal/outbound"
	"github.com/harborfin/contactdesk-backend/internal/providers"
	"github.com/harborfin/contactdesk-backend/pkg/config"
	"github.com/harborfin/contactdesk-backend/pkg/db"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
	"github.com/harborfin/contactdesk-backend/pkg/migrate"
	"github.com/harborfin/contactdesk-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	auditWriter := audit.NewWriter(dbClient.DB(), logg)
	outboundRepo := outbound.NewRepository(dbClient.DB())
	automationRepo := automation.NewRepository(dbClient.DB())

	outbox := automation.NewOutbox(logg, automationRepo)
	dispatcher := automation.NewDispatcher(logg, automationRepo,
		cfg.Automation.DispatchBatchSize, cfg.Automation.MaxDispatchAttempts, cfg.Automation.DispatchBackoff)

	runner := outbound.NewRunner(outbound.RunnerParams{
		Logger:           logg,
		DB:               dbClient,
		Repo:             outboundRepo,
		Senders:          providers.NewRegistryFromConfig(cfg.Providers),
		Outbox:           outbox,
		Audit:            auditWriter,
		Backoff:          outbound.NewRetryPolicy(cfg.Outbound),
		BatchSize:        cfg.Outbound.RunBatchSize,
		PausedRetryDelay: cfg.Outbound.PausedRetryDelay,
	})
	jobService := outbound.NewService(logg, dbClient, outboundRepo, auditWriter)

	router := routes.NewRouter(routes.RouterParams{
		Config:     cfg,
		Logger:     logg,
		DBPinger:   dbClient,
		Redis:      redisClient,
		Jobs:       jobService,
		Runner:     runner,
		Automation: dispatcher,
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "port": cfg.App.Port})

	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "api server shutdown failed", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "api server shut down gracefully")
}
