package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/feedback-review-api/internal/repository"
	"github.com/noah-isme/feedback-review-api/internal/service"
	"github.com/noah-isme/feedback-review-api/pkg/config"
	"github.com/noah-isme/feedback-review-api/pkg/database"
	"github.com/noah-isme/feedback-review-api/pkg/export"
	"github.com/noah-isme/feedback-review-api/pkg/logger"
	"github.com/noah-isme/feedback-review-api/pkg/storage"
)

func main() {
	var (
		format  string
		dir     string
		retain  time.Duration
		timeout time.Duration
	)
	flag.StringVar(&format, "format", "csv", "Output format: csv, xlsx or pdf")
	flag.StringVar(&dir, "dir", "./exports", "Output directory")
	flag.DurationVar(&retain, "retain", 0, "Delete exports in dir older than this before writing (0 keeps everything)")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	outFormat, err := export.ParseFormat(format)
	if err != nil {
		logr.Fatal("invalid format", zap.Error(err))
	}

	store, err := storage.NewLocalStorage(dir)
	if err != nil {
		logr.Fatal("failed to prepare output directory", zap.Error(err))
	}
	if retain > 0 {
		deleted, err := store.CleanupOlderThan(retain)
		if err != nil {
			logr.Warn("cleanup failed", zap.Error(err))
		}
		if len(deleted) > 0 {
			logr.Info("old exports removed", zap.Strings("files", deleted))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	exporter := service.NewExportService(repository.NewFeedbackRepository(db, nil), store, logr)
	path, err := exporter.Export(ctx, outFormat)
	if err != nil {
		logr.Fatal("export failed", zap.Error(err))
	}
	fmt.Println(path)
}
