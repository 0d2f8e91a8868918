package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campusworks/syllabus-api/api/swagger"
	"github.com/campusworks/syllabus-api/internal/handler"
	"github.com/campusworks/syllabus-api/internal/middleware"
	"github.com/campusworks/syllabus-api/internal/repository"
	"github.com/campusworks/syllabus-api/internal/service"
	"github.com/campusworks/syllabus-api/pkg/cache"
	"github.com/campusworks/syllabus-api/pkg/config"
	"github.com/campusworks/syllabus-api/pkg/database"
	"github.com/campusworks/syllabus-api/pkg/jobs"
	"github.com/campusworks/syllabus-api/pkg/logger"
	corsmiddleware "github.com/campusworks/syllabus-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusworks/syllabus-api/pkg/middleware/requestid"
	"github.com/campusworks/syllabus-api/pkg/storage"
)

const shutdownTimeout = 10 * time.Second

// @title Syllabus Portal API
// @version 1.0.0
// @description Teacher-facing API for authoring, searching, and exporting course syllabi
// @BasePath /api
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	validate := validator.New()

	syllabusRepo := repository.NewSyllabusRepository(db)
	userRepo := repository.NewUserRepository(db)
	jobRepo := repository.NewExportJobRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	syllabusSvc := service.NewSyllabusService(syllabusRepo, cacheRepo, validate, logr, metricsSvc, service.SyllabusServiceConfig{
		UniqueCourseCodes: cfg.Syllabus.UniqueCourseCodes,
		ListCacheTTL:      cfg.Syllabus.ListCacheTTL,
	})

	exportSvc := service.NewExportService(syllabusRepo, store, signer, service.ExportConfig{
		APIPrefix:  cfg.APIPrefix,
		ResultTTL:  cfg.Exports.SignedURLTTL,
		Institute:  cfg.Exports.Institute,
		Department: cfg.Exports.Department,
		LogoPath:   cfg.Exports.LogoPath,
	}, logr, nil, nil)

	worker := service.NewExportWorker(jobRepo, exportSvc, cfg.Exports.WorkerRetries, logr)
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	jobSvc := service.NewExportJobService(jobRepo, syllabusRepo, queue, exportSvc, logr, service.ExportJobServiceConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
		MaxRetries:      cfg.Exports.WorkerRetries,
	})
	jobSvc.RecoverPendingJobs(ctx)
	jobSvc.StartCleanup(ctx)

	authHandler := handler.NewAuthHandler(authSvc)
	syllabusHandler := handler.NewSyllabusHandler(syllabusSvc)
	exportHandler := handler.NewExportHandler(exportSvc, jobSvc, metricsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	syllabus := api.Group("/syllabus", middleware.JWT(authSvc))
	syllabus.POST("", syllabusHandler.Create)
	syllabus.GET("", syllabusHandler.List)
	syllabus.GET("/:id", syllabusHandler.Get)
	syllabus.PUT("/:id", syllabusHandler.Update)
	syllabus.DELETE("/:id", syllabusHandler.Delete)
	syllabus.GET("/:id/export/:format", exportHandler.Render)
	syllabus.POST("/:id/exports", exportHandler.CreateJob)

	exports := api.Group("/exports")
	exports.GET("/:id", middleware.JWT(authSvc), exportHandler.JobStatus)
	exports.GET("/download/:token", exportHandler.Download)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}
