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

	"github.com/perfiamatic/audit-flash/internal/app"
	"github.com/perfiamatic/audit-flash/internal/audit"
	audithttp "github.com/perfiamatic/audit-flash/internal/audit/http"
	"github.com/perfiamatic/audit-flash/internal/auditreport"
	"github.com/perfiamatic/audit-flash/internal/leads"
	"github.com/perfiamatic/audit-flash/internal/observability"
	"github.com/perfiamatic/audit-flash/internal/platform/cache"
	"github.com/perfiamatic/audit-flash/internal/platform/db"
	"github.com/perfiamatic/audit-flash/internal/relay"
	"github.com/perfiamatic/audit-flash/internal/shared"
	"github.com/perfiamatic/audit-flash/internal/view"
	"github.com/perfiamatic/audit-flash/jobs"
	"github.com/perfiamatic/audit-flash/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	var (
		leadsService *leads.Service
		leadsHandler *leads.Handler
	)
	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.LeadsEnabled() {
		dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer dbpool.Close()
		repo := leads.NewRepository(dbpool)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Error("leads schema", slog.Any("error", err))
			os.Exit(1)
		}
		leadsService = leads.NewService(repo)
		leadsHandler = leads.NewHandler(logger, leadsService, templates, leads.Credentials{
			User:         cfg.AdminUser,
			PasswordHash: cfg.AdminPasswordHash,
		})
	} else {
		logger.Info("PG_DSN not set, lead register disabled")
	}

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, "auditflash_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	relayClient := relay.NewClient(cfg.WebhookURL, relay.WithTimeout(cfg.RelayTimeout), relay.WithObserver(metrics))

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts, logger)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("close job client", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("close inspector", slog.Any("error", err))
		}
	}()

	serviceCfg := audit.ServiceConfig{
		Store:    audit.NewRedisStore(redisClient, cfg.ResultTTL),
		Analyzer: relayClient,
		Notifier: jobClient,
		Message:  relay.Message,
		Timeout:  cfg.RelayTimeout,
		Logger:   logger,
	}
	if leadsService != nil {
		serviceCfg.Leads = leadsService
	}
	auditService, err := audit.NewService(serviceCfg)
	if err != nil {
		logger.Error("init audit service", slog.Any("error", err))
		os.Exit(1)
	}

	pdfClient := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
	reportRenderer, err := auditreport.NewRenderer(pdfClient)
	if err != nil {
		logger.Error("init report renderer", slog.Any("error", err))
		os.Exit(1)
	}

	auditHandler := audithttp.NewHandler(audithttp.Config{
		Logger:    logger,
		Service:   auditService,
		Builder:   auditreport.NewBuilder(),
		Renderer:  reportRenderer,
		Templates: templates,
		CSRF:      csrfManager,
		MaxWait:   cfg.RelayTimeout + 30*time.Second,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuditHandler:   auditHandler,
		RelayHandler:   relay.NewHandler(relayClient, logger),
		LeadsHandler:   leadsHandler,
		ReportHandler:  report.NewHandler(pdfClient, logger),
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("http server starting", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
	// Let in-flight analyses store their outcome.
	auditService.Wait()
}
