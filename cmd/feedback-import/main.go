package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/feedback-review-api/internal/dto"
	"github.com/noah-isme/feedback-review-api/internal/repository"
	"github.com/noah-isme/feedback-review-api/internal/service"
	"github.com/noah-isme/feedback-review-api/pkg/cache"
	"github.com/noah-isme/feedback-review-api/pkg/config"
	"github.com/noah-isme/feedback-review-api/pkg/database"
	"github.com/noah-isme/feedback-review-api/pkg/jobs"
	"github.com/noah-isme/feedback-review-api/pkg/logger"
	"github.com/noah-isme/feedback-review-api/pkg/mailer"
)

func main() {
	var (
		path    string
		notify  bool
		timeout time.Duration
	)
	flag.StringVar(&path, "file", "", "CSV or XLSX file with Feedback, Avaliador_1 and Avaliador_2 columns")
	flag.BoolVar(&notify, "notify", false, "Email every reviewer with pending work after the import")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Overall timeout")
	flag.Parse()

	if path == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	rows, err := readRows(path)
	if err != nil {
		logr.Fatal("failed to read import file", zap.String("file", path), zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	repo := repository.NewFeedbackRepository(db, metricsSvc)
	if err := repo.EnsureSchema(ctx); err != nil {
		logr.Fatal("failed to ensure schema", zap.Error(err))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis, cfg.Cache)
	if err != nil {
		logr.Warn("redis unavailable, skipping cache invalidation", zap.Error(err))
		redisClient = nil
	}
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient), metricsSvc, cfg.Cache.TTL, logr, redisClient != nil)

	importer := service.NewImportService(repo, cacheSvc, metricsSvc, validator.New(), logr)
	result, err := importer.Import(ctx, rows)
	if err != nil {
		logr.Fatal("import failed", zap.Error(err))
	}
	for _, issue := range result.Rejected {
		logr.Warn("row rejected", zap.Int("line", issue.Line), zap.String("reason", issue.Reason))
	}
	fmt.Printf("inserted %d rows, rejected %d\n", result.Inserted, len(result.Rejected))

	if !notify {
		return
	}

	invitations := service.NewInvitationService(repo, mailer.NewSMTPSender(cfg.SMTP, logr), metricsSvc, service.InvitationConfig{
		PublicBaseURL: cfg.PublicBaseURL,
		Queue: jobs.QueueConfig{
			Workers:    cfg.Notify.Workers,
			MaxRetries: cfg.Notify.Retries,
			RetryDelay: cfg.Notify.RetryDelay,
		},
	}, logr)
	invitations.Start(ctx)
	defer invitations.Stop()

	sent, err := invitations.SendAll(ctx)
	if err != nil {
		logr.Fatal("failed to send invitations", zap.Error(err))
	}
	if err := invitations.Wait(ctx); err != nil {
		logr.Error("invitations did not finish", zap.Error(err))
	}
	fmt.Printf("invited %d reviewers\n", sent.Enqueued)
}

func readRows(path string) ([]dto.ImportRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return service.ParseXLSX(f)
	case ".csv":
		return service.ParseCSV(f)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}
