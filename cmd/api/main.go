package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/refreeg/moderation-api/api/swagger"
	"github.com/refreeg/moderation-api/internal/handler"
	"github.com/refreeg/moderation-api/internal/middleware"
	"github.com/refreeg/moderation-api/internal/models"
	"github.com/refreeg/moderation-api/internal/notify"
	"github.com/refreeg/moderation-api/internal/repository"
	"github.com/refreeg/moderation-api/internal/service"
	"github.com/refreeg/moderation-api/pkg/cache"
	"github.com/refreeg/moderation-api/pkg/config"
	"github.com/refreeg/moderation-api/pkg/database"
	"github.com/refreeg/moderation-api/pkg/export"
	"github.com/refreeg/moderation-api/pkg/logger"
	corsmiddleware "github.com/refreeg/moderation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/refreeg/moderation-api/pkg/middleware/requestid"
	"github.com/refreeg/moderation-api/pkg/storage"
)

// @title Refreeg Moderation API
// @version 0.1.0
// @description Moderated lifecycle for causes, petitions, and identity verification
// @BasePath /
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, listing cache disabled", "error", err)
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	blobStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir, cfg.Uploads.PublicBaseURL)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}
	urlSigner := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	var notifier notify.Notifier = notify.Nop{}
	var queueNotifier *notify.QueueNotifier
	if cfg.Notifications.Enabled {
		mailer := notify.NewLogMailer(logr)
		queueNotifier = notify.NewQueueNotifier(ctx, mailer, cfg.Notifications.Workers, cfg.Notifications.Retries, logr)
		notifier = queueNotifier
	}

	submissionRepo := repository.NewSubmissionRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	metricsSvc := service.NewMetricsService()
	auditSvc := service.NewAuditService(auditRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)
	roleSvc := service.NewRoleService(roleRepo, profileRepo, auditSvc, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, blobStore, cacheRepo, notifier, auditSvc, logr, cfg.Moderation.ListingCacheTTL)
	verificationSvc := service.NewVerificationService(verificationRepo, blobStore, urlSigner, notifier, auditSvc, logr, service.VerificationServiceConfig{
		MaxFileSize:  cfg.Uploads.KycMaxFileSize,
		AllowedMIMEs: cfg.Uploads.KycAllowedMIMEs,
	})

	if err := roleSvc.Bootstrap(ctx, cfg.Moderation.BootstrapAdminID); err != nil {
		logr.Sugar().Warnw("admin bootstrap failed", "error", err)
	}

	causeHandler := handler.NewSubmissionHandler(submissionSvc, models.KindCause)
	petitionHandler := handler.NewSubmissionHandler(submissionSvc, models.KindPetition)
	verificationHandler := handler.NewVerificationHandler(verificationSvc)
	roleHandler := handler.NewRoleHandler(roleSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)

	verifier := middleware.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	registerSubmissionRoutes(api.Group("/causes"), causeHandler, verifier, roleRepo)
	registerSubmissionRoutes(api.Group("/petitions"), petitionHandler, verifier, roleRepo)

	verifications := api.Group("/verifications")
	verifications.POST("", middleware.JWT(verifier), verificationHandler.Submit)
	verifications.GET("/me", middleware.JWT(verifier), verificationHandler.Status)
	verifications.GET("/pending", middleware.JWT(verifier), middleware.ResolveRole(roleRepo), middleware.RequireStaff(), verificationHandler.Pending)
	verifications.POST("/:id/review", middleware.JWT(verifier), middleware.ResolveRole(roleRepo), middleware.RequireStaff(), verificationHandler.Review)
	verifications.GET("/:id/document", middleware.JWT(verifier), middleware.ResolveRole(roleRepo), middleware.RequireStaff(), verificationHandler.DocumentLink)
	verifications.GET("/documents/:token", verificationHandler.Download)

	roles := api.Group("/roles")
	roles.GET("/me", middleware.JWT(verifier), middleware.ResolveRole(roleRepo), roleHandler.Me)
	roles.PUT("", middleware.JWT(verifier), middleware.ResolveRole(roleRepo), middleware.RequireRoles(models.RoleAdmin), roleHandler.Set)
	roles.GET("/users", middleware.JWT(verifier), middleware.ResolveRole(roleRepo), middleware.RequireStaff(), roleHandler.Users)
	roles.PUT("/users/:id/block", middleware.JWT(verifier), middleware.ResolveRole(roleRepo), middleware.RequireRoles(models.RoleAdmin), roleHandler.Block)

	audit := api.Group("/audit")
	audit.GET("", middleware.JWT(verifier), middleware.ResolveRole(roleRepo), middleware.RequireStaff(), auditHandler.List)
	audit.GET("/export", middleware.JWT(verifier), middleware.ResolveRole(roleRepo), middleware.RequireRoles(models.RoleAdmin), auditHandler.Export)

	go runExpirySweep(ctx, submissionSvc, metricsSvc, cfg.Moderation.ExpirySweepEvery, logr)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	if queueNotifier != nil {
		queueNotifier.Stop()
	}
}

func registerSubmissionRoutes(rg *gin.RouterGroup, h *handler.SubmissionHandler, verifier *middleware.TokenVerifier, roleRepo *repository.RoleRepository) {
	rg.GET("", middleware.OptionalJWT(verifier), middleware.OptionalResolveRole(roleRepo), h.List)
	rg.GET("/count", middleware.OptionalJWT(verifier), middleware.OptionalResolveRole(roleRepo), h.Count)
	rg.POST("", middleware.JWT(verifier), h.Create)
	rg.GET("/edits/pending", middleware.JWT(verifier), middleware.ResolveRole(roleRepo), middleware.RequireStaff(), h.PendingEdits)
	rg.GET("/:id", middleware.OptionalJWT(verifier), middleware.OptionalResolveRole(roleRepo), h.Get)
	rg.DELETE("/:id", middleware.JWT(verifier), h.Delete)
	rg.POST("/:id/share", h.Share)
	rg.POST("/:id/edits", middleware.JWT(verifier), h.StageEdit)
	rg.POST("/:id/approve", middleware.JWT(verifier), middleware.ResolveRole(roleRepo), middleware.RequireStaff(), h.Approve)
	rg.POST("/:id/reject", middleware.JWT(verifier), middleware.ResolveRole(roleRepo), middleware.RequireStaff(), h.Reject)
}

// runExpirySweep periodically expires approved submissions whose active window
// has elapsed, complementing the lazy expiry done on listing reads.
func runExpirySweep(ctx context.Context, submissions *service.SubmissionService, metrics *service.MetricsService, every time.Duration, logr *zap.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := submissions.ExpireDue(ctx)
			if err != nil {
				logr.Sugar().Warnw("expiry sweep failed", "error", err)
				continue
			}
			if n > 0 {
				metrics.RecordExpired(n)
				logr.Sugar().Infow("expired overdue submissions", "count", n)
			}
		}
	}
}
