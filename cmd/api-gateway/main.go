package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/noah-isme/userflow-api/api/swagger"
	"github.com/noah-isme/userflow-api/internal/backend"
	"github.com/noah-isme/userflow-api/internal/bootstrap"
	"github.com/noah-isme/userflow-api/internal/handler"
	"github.com/noah-isme/userflow-api/internal/middleware"
	"github.com/noah-isme/userflow-api/internal/repository"
	"github.com/noah-isme/userflow-api/internal/service"
	"github.com/noah-isme/userflow-api/internal/web"
	"github.com/noah-isme/userflow-api/pkg/cache"
	"github.com/noah-isme/userflow-api/pkg/config"
	"github.com/noah-isme/userflow-api/pkg/jobs"
	"github.com/noah-isme/userflow-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/userflow-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/userflow-api/pkg/middleware/requestid"
	"github.com/noah-isme/userflow-api/pkg/storage"
)

// @title UserFlow API
// @version 1.0.0
// @description Account administration and self-service portal over a hosted backend
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, selection, err := backend.Open(ctx, cfg, logr, backend.Options{HashCost: bcrypt.DefaultCost})
	if err != nil {
		logr.Fatal("failed to open backend", zap.Error(err))
	}
	defer store.Close() //nolint:errcheck
	logr.Info("backend selected", zap.String("mode", string(selection.Mode)), zap.String("reason", selection.Reason))

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Stats.CacheTTL, logr, redisClient != nil)
	validate := service.NewValidator()

	recorder := service.NewAuditRecorder(store, metrics, logr)
	client := service.NewAccountClient(store, recorder, cacheSvc, service.NewLogNotifier(logr), metrics, validate, logr, service.AccountClientConfig{
		HashCost:      bcrypt.DefaultCost,
		ResetTokenTTL: cfg.PasswordReset.TokenTTL,
		ResetURL:      cfg.PasswordReset.URL,
		StatsTTL:      cfg.Stats.CacheTTL,
	})
	pending := service.NewPendingActions()
	sessions := service.NewSessionService(store, pending, service.SessionConfig{
		TTL:    cfg.Session.TTL,
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
	}, logr)
	gate := middleware.NewSessionGate(sessions, middleware.NewCookieStore(cfg.Session.Secret, cfg.Session.CookieSecure, cfg.Session.TTL), cfg.Session.CookieName)

	audits := service.NewAuditService(store, recorder, cacheSvc, logr)
	rows := service.NewRowActionService(pending, client)
	bulk := service.NewBulkDispatcher(client, metrics, validate, logr)
	dashboard := service.NewDashboardService(client, audits, selection, logr)
	analytics := service.NewAnalyticsService(client, cacheSvc, metrics, nil, service.AnalyticsConfig{
		Days:     cfg.Analytics.Days,
		Seed:     cfg.Analytics.Seed,
		CacheTTL: cfg.Analytics.CacheTTL,
	}, logr)
	portal := service.NewPortalService(client, store, audits, recorder, validate, logr)
	mfa := service.NewMFAService(store, recorder, cfg.MFA.Issuer, logr)
	setup := service.NewSetupService(store, bootstrap.NewRunner(store, logr), client, recorder, selection, service.SetupConfig{
		AdminEmail:     cfg.Admin.DefaultEmail,
		AdminPassword:  cfg.Admin.DefaultPassword,
		SamplePassword: cfg.Admin.DemoUserPassword,
	}, logr)

	if created, err := setup.EnsureDefaultAdmin(ctx); err != nil {
		logr.Warn("default admin check failed", zap.Error(err))
	} else if created {
		logr.Info("default admin created", zap.String("email", cfg.Admin.DefaultEmail))
	}

	exportJobs, exportQueue, err := buildExports(cfg, client, audits, recorder, metrics, validate, logr)
	if err != nil {
		logr.Fatal("failed to initialise exports", zap.Error(err))
	}
	if exportQueue != nil {
		exportQueue.Start(ctx)
		defer exportQueue.Stop()
	}

	var exportCleaner interface{ CleanupExpired(context.Context) int }
	if exportJobs != nil {
		exportCleaner = exportJobs
	}
	maintenance := service.NewMaintenanceService(audits, exportCleaner, service.MaintenanceConfig{
		AuditRetentionDays: cfg.Audit.RetentionDays,
		AuditSchedule:      cfg.Audit.RetentionSchedule,
		ExportSchedule:     cfg.Exports.CleanupSchedule,
		PendingSchedule:    cfg.Session.SweepSchedule,
		PendingMaxAge:      cfg.Session.TTL,
	}, logr).WithPendingActions(pending)
	if err := maintenance.Start(); err != nil {
		logr.Fatal("failed to start maintenance scheduler", zap.Error(err))
	}

	tmpl, err := web.Templates()
	if err != nil {
		logr.Fatal("failed to parse page templates", zap.Error(err))
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.SetHTMLTemplate(tmpl)

	routes := handler.Routes{
		APIPrefix: cfg.APIPrefix,
		Gate:      gate,
		Auth:      handler.NewAuthHandler(client, sessions, gate, recorder),
		Accounts:  handler.NewAccountHandler(client),
		Bulk:      handler.NewBulkHandler(bulk),
		Pending:   handler.NewPendingHandler(rows),
		Audit:     handler.NewAuditHandler(audits),
		Dashboard: handler.NewDashboardHandler(dashboard),
		Analytics: handler.NewAnalyticsHandler(analytics),
		Portal:    handler.NewPortalHandler(portal, mfa),
		Setup:     handler.NewSetupHandler(setup),
		Metrics:   handler.NewMetricsHandler(metrics, store),
	}
	pageDeps := handler.PageDeps{
		Chrome: handler.PageChrome{
			Title:  cfg.App.PageTitle,
			Icon:   cfg.App.PageIcon,
			Layout: cfg.App.Layout,
			Banner: selection.Banner(),
		},
		Accounts:  client,
		Bulk:      bulk,
		Rows:      rows,
		Audits:    audits,
		Dashboard: dashboard,
		Analytics: analytics,
		Setup:     setup,
		Portal:    portal,
		MFA:       mfa,
		Sessions:  sessions,
		Gate:      gate,
		Recorder:  recorder,
	}
	if exportJobs != nil {
		routes.Exports = handler.NewExportHandler(exportJobs)
		pageDeps.Exports = exportJobs
	}
	routes.Pages = handler.NewPageHandler(pageDeps)
	routes.Register(r)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "backend", selection.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	maintenance.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildExports wires the export pipeline. It returns nils when exports are disabled.
func buildExports(cfg *config.Config, client *service.AccountClient, audits *service.AuditService, recorder *service.AuditRecorder, metrics *service.MetricsService, validate *validator.Validate, logr *zap.Logger) (*service.ExportJobService, *jobs.Queue, error) {
	if !cfg.Exports.Enabled {
		return nil, nil, nil
	}
	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewExportService(client, audits, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr)

	var jobSvc *service.ExportJobService
	queue := jobs.NewQueue("exports", func(ctx context.Context, job jobs.Job) error {
		return jobSvc.Handle(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
		OnExhausted: func(ctx context.Context, job jobs.Job, err error) {
			jobSvc.OnExhausted(ctx, job, err)
		},
	})
	jobSvc = service.NewExportJobService(service.NewExportJobStore(), queue, exporter, recorder, metrics, validate, cfg.Exports.SignedURLTTL, logr)
	return jobSvc, queue, nil
}
