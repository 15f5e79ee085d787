package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/perfiamatic/audit-flash/internal/app"
	"github.com/perfiamatic/audit-flash/internal/audit"
	"github.com/perfiamatic/audit-flash/internal/auditreport"
	jobmetrics "github.com/perfiamatic/audit-flash/internal/jobs"
	"github.com/perfiamatic/audit-flash/internal/leads"
	"github.com/perfiamatic/audit-flash/internal/platform/cache"
	"github.com/perfiamatic/audit-flash/internal/platform/db"
	"github.com/perfiamatic/audit-flash/jobs"
	"github.com/perfiamatic/audit-flash/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var attacher auditreport.ReportAttacher
	if cfg.LeadsEnabled() {
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			logger.Error("connect database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		attacher = leads.NewService(leads.NewRepository(pool))
	}

	metrics := jobmetrics.NewMetrics(nil)

	pdfClient := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
	renderer, err := auditreport.NewRenderer(pdfClient)
	if err != nil {
		logger.Error("init report renderer", slog.Any("error", err))
		os.Exit(1)
	}
	archiveJob := auditreport.NewJob(auditreport.JobConfig{
		Outcomes:   audit.NewRedisStore(redisClient, cfg.ResultTTL),
		Builder:    auditreport.NewBuilder(),
		Renderer:   renderer,
		Leads:      attacher,
		StorageDir: cfg.ReportStorageDir,
		Logger:     logger,
		Metrics:    metrics,
	})
	followUpJob := jobs.NewFollowUpJob(jobs.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom), cfg.ContactEmail, logger, metrics)
	purgeJob := jobs.NewPurgeReportsJob(cfg.ReportStorageDir, logger, metrics)

	purgeTask, err := jobs.NewPurgeReportsTask(cfg.ReportRetention)
	if err != nil {
		logger.Error("build purge task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskArchiveReport, Handler: archiveJob.Handle},
			{Type: jobs.TaskFollowUpMail, Handler: followUpJob.Handle},
			{Type: jobs.TaskPurgeReports, Handler: purgeJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 3 * * *", Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker starting", slog.Int("concurrency", cfg.WorkerConcurrency))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
