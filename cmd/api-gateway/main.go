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

	_ "github.com/tutorlane/tutorlane-api/api/swagger"
	"github.com/tutorlane/tutorlane-api/internal/handler"
	"github.com/tutorlane/tutorlane-api/internal/middleware"
	"github.com/tutorlane/tutorlane-api/internal/repository"
	"github.com/tutorlane/tutorlane-api/internal/service"
	"github.com/tutorlane/tutorlane-api/pkg/cache"
	"github.com/tutorlane/tutorlane-api/pkg/config"
	"github.com/tutorlane/tutorlane-api/pkg/database"
	"github.com/tutorlane/tutorlane-api/pkg/jobs"
	"github.com/tutorlane/tutorlane-api/pkg/logger"
	"github.com/tutorlane/tutorlane-api/pkg/mailer"
	corsmiddleware "github.com/tutorlane/tutorlane-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tutorlane/tutorlane-api/pkg/middleware/requestid"
	"github.com/tutorlane/tutorlane-api/pkg/storage"
)

// @title Tutorlane API
// @version 1.0.0
// @description REST backend for the Tutorlane education marketplace
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()
	metrics := service.NewMetricsService()

	// Redis is optional: the dashboard cache degrades to pass-through when
	// the connection cannot be established.
	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard caching disabled", "error", err)
		redisClient = nil
		cacheSvc = service.NewCacheService(nil, metrics, cfg.Dashboard.CacheTTL, logr, false)
	} else {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, true)
		defer redisClient.Close()
	}

	avatars, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare upload storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	var mail mailer.Mailer
	if cfg.Mail.Domain != "" && cfg.Mail.APIKey != "" {
		mail = mailer.NewMailgun(cfg.Mail.Domain, cfg.Mail.APIKey, cfg.Mail.Sender)
	} else {
		logr.Sugar().Warnw("mailgun not configured, reset mails will be logged only")
		mail = mailer.NewLogMailer(logr)
	}

	mailQueue := jobs.NewQueue("mail", func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(service.ResetMailPayload)
		if !ok {
			return fmt.Errorf("unexpected payload for job %s", job.ID)
		}
		body := fmt.Sprintf(
			"Hi %s,\n\nA password reset was requested for your account. "+
				"Open the link below within %s to choose a new password:\n\n%s\n\n"+
				"If you did not request this, you can ignore this mail.",
			payload.Name, cfg.Mail.ResetTokenTTL, payload.ResetURL,
		)
		return mail.Send(ctx, payload.To, "Reset your password", body)
	}, jobs.QueueConfig{
		Workers:    cfg.Mail.WorkerCount,
		MaxRetries: cfg.Mail.WorkerRetries,
		Logger:     logr,
	})

	fileQueue := jobs.NewQueue("files", func(_ context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(service.AvatarCleanupPayload)
		if !ok {
			return fmt.Errorf("unexpected payload for job %s", job.ID)
		}
		return avatars.Delete(payload.Key)
	}, jobs.QueueConfig{Logger: logr})

	queueCtx, stopQueues := context.WithCancel(context.Background())
	defer stopQueues()
	mailQueue.Start(queueCtx)
	fileQueue.Start(queueCtx)
	defer mailQueue.Stop()
	defer fileQueue.Stop()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	tokenSvc := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	authSvc := service.NewAuthService(userRepo, tokenSvc, avatars, mailQueue, fileQueue, validate, logr, service.AuthConfig{
		ResetTokenTTL: cfg.Mail.ResetTokenTTL,
		FrontendURL:   cfg.Mail.FrontendURL,
		PublicBaseURL: cfg.Uploads.PublicBaseURL,
	})
	courseSvc := service.NewCourseService(courseRepo, enrollmentRepo, cacheSvc, avatars, signer, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, cacheSvc, validate, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, courseRepo, enrollmentSvc, validate, logr, service.PaymentConfig{
		GatewaySecret:   cfg.Payments.GatewaySecret,
		DefaultCurrency: cfg.Payments.DefaultCurrency,
	})
	dashboardSvc := service.NewDashboardService(enrollmentRepo, courseRepo, paymentRepo, cacheSvc, logr, service.DashboardConfig{
		CacheTTL:       cfg.Dashboard.CacheTTL,
		RecentPayments: cfg.Dashboard.RecentPayments,
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.RegisterRoutes(r, handler.RouterDeps{
		Auth:        handler.NewAuthHandler(authSvc, cfg.Uploads.MaxFileSizeBytes),
		Dashboard:   handler.NewDashboardHandler(dashboardSvc),
		Courses:     handler.NewCourseHandler(courseSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		Payments:    handler.NewPaymentHandler(paymentSvc),
		Tokens:      tokenSvc,
		Users:       userRepo,
		Metrics:     metrics,
		DB:          db,
		Redis:       redisClient,
		Files:       avatars,
		Signer:      signer,
		APIPrefix:   cfg.APIPrefix,
		UploadsDir:  cfg.Uploads.StorageDir,
		EnableDocs:  cfg.Env != config.EnvProduction,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
