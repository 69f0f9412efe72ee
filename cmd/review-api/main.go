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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/feedback-review-api/api/swagger"
	"github.com/noah-isme/feedback-review-api/internal/handler"
	"github.com/noah-isme/feedback-review-api/internal/middleware"
	"github.com/noah-isme/feedback-review-api/internal/repository"
	"github.com/noah-isme/feedback-review-api/internal/service"
	"github.com/noah-isme/feedback-review-api/pkg/cache"
	"github.com/noah-isme/feedback-review-api/pkg/config"
	"github.com/noah-isme/feedback-review-api/pkg/database"
	"github.com/noah-isme/feedback-review-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/feedback-review-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/feedback-review-api/pkg/middleware/requestid"
)

// @title Feedback Review API
// @version 1.0.0
// @description Peer review of written feedback: pending queues, answers and problem tags.
// @BasePath /api/v1
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

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis, cfg.Cache)
	if err != nil {
		logr.Warn("redis unavailable, pending cache disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	metricsSvc := service.NewMetricsService()
	feedbackRepo := repository.NewFeedbackRepository(db, metricsSvc)
	if err := feedbackRepo.EnsureSchema(ctx); err != nil {
		logr.Fatal("failed to ensure schema", zap.Error(err))
	}

	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient), metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)
	reviewSvc := service.NewReviewService(feedbackRepo, service.NewReviewPolicy(cfg.Review), cacheSvc, metricsSvc, validator.New(), logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	tmpl, err := handler.Templates()
	if err != nil {
		logr.Fatal("failed to parse templates", zap.Error(err))
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	pages := handler.NewReviewPageHandler(reviewSvc)
	r.GET("/", pages.Index)
	r.GET("/avaliar", pages.Review)
	r.POST("/submit", pages.Submit)
	r.GET("/fim", pages.Done)

	ops := handler.NewMetricsHandler(metricsSvc, reviewSvc)
	r.GET("/healthz", ops.Health)
	r.GET("/metrics", ops.Prometheus)

	reviews := handler.NewReviewHandler(reviewSvc)
	api := r.Group(cfg.APIPrefix)
	{
		group := api.Group("/reviews")
		group.GET("/pending", reviews.Pending)
		group.GET("/next", reviews.Next)
		group.GET("/items/:id", reviews.Item)
		group.POST("/submit", reviews.Submit)
		group.GET("/problem-tags", reviews.ProblemTags)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env,
			"enforce_slot_owner", cfg.Review.EnforceSlotOwner, "tag_mode", cfg.Review.TagMode, "write_once", cfg.Review.WriteOnce)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
