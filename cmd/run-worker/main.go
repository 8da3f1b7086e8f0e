package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harborfin/contactdesk-backend/internal/audit"
	"github.com/harborfin/contactdesk-backend/internal/automation"
	"github.com/harborfin/contactdesk-backend/internal/cron"
	"github.com/harborfin/contactdesk-backend/internal/outbound"
	"github.com/harborfin/contactdesk-backend/internal/providers"
	"github.com/harborfin/contactdesk-backend/pkg/config"
	"github.com/harborfin/contactdesk-backend/pkg/db"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
	"github.com/harborfin/contactdesk-backend/pkg/metrics"
	"github.com/harborfin/contactdesk-backend/pkg/migrate"
	"github.com/harborfin/contactdesk-backend/pkg/redis"
)

const lockScope = "run-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: "run-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "run-worker",
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

	runJob, err := cron.NewOutboundRunJob(cron.OutboundRunJobParams{
		Logger: logg,
		Runner: runner,
		Limit:  cfg.Outbound.RunBatchSize,
	})
	exitOn(logg, "create outbound run job", err)

	dispatchJob, err := cron.NewEventDispatchJob(cron.EventDispatchJobParams{
		Logger:     logg,
		Dispatcher: dispatcher,
		Limit:      cfg.Automation.DispatchBatchSize,
	})
	exitOn(logg, "create event dispatch job", err)

	stuckJob, err := cron.NewStuckOTPJob(cron.StuckOTPJobParams{
		Logger:    logg,
		Reader:    outboundRepo,
		Outbox:    outbox,
		Threshold: cfg.Outbound.StuckOTPThreshold,
	})
	exitOn(logg, "create stuck otp job", err)

	summaryJob, err := cron.NewDailySummaryJob(cron.DailySummaryJobParams{
		Logger: logg,
		Jobs:   outboundRepo,
		Events: automationRepo,
		Outbox: outbox,
	})
	exitOn(logg, "create daily summary job", err)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockScope), cfg.Worker.LockTTL)
	exitOn(logg, "create worker lock", err)

	workerMetrics := metrics.NewWorkerJobMetrics(prometheus.DefaultRegisterer)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(runJob, dispatchJob, stuckJob, summaryJob),
		Lock:     lock,
		Metrics:  workerMetrics,
		Interval: cfg.Worker.Interval,
	})
	exitOn(logg, "create worker service", err)

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Worker.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(context.Background(), "metrics server stopped unexpectedly", err)
		}
	}()
	defer metricsServer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting run worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "run worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "run worker shutting down gracefully")
}

func exitOn(logg *logger.Logger, msg string, err error) {
	if err != nil {
		logg.Error(context.Background(), msg, err)
		os.Exit(1)
	}
}
