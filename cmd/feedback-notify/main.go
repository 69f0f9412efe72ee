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
	"github.com/noah-isme/feedback-review-api/pkg/jobs"
	"github.com/noah-isme/feedback-review-api/pkg/logger"
	"github.com/noah-isme/feedback-review-api/pkg/mailer"
)

func main() {
	var timeout time.Duration
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "Overall timeout")
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

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	sender := mailer.NewSMTPSender(cfg.SMTP, logr)
	if !sender.Configured() {
		logr.Warn("SMTP_HOST is empty, invitations will be logged and skipped")
	}

	metricsSvc := service.NewMetricsService()
	invitations := service.NewInvitationService(repository.NewFeedbackRepository(db, metricsSvc), sender, metricsSvc, service.InvitationConfig{
		PublicBaseURL: cfg.PublicBaseURL,
		Queue: jobs.QueueConfig{
			Workers:    cfg.Notify.Workers,
			MaxRetries: cfg.Notify.Retries,
			RetryDelay: cfg.Notify.RetryDelay,
		},
	}, logr)
	invitations.Start(ctx)
	defer invitations.Stop()

	result, err := invitations.SendAll(ctx)
	if err != nil {
		logr.Fatal("failed to send invitations", zap.Error(err))
	}
	if err := invitations.Wait(ctx); err != nil {
		logr.Error("invitations did not finish", zap.Error(err))
	}
	fmt.Printf("reviewers with pending work: %d, invitations queued: %d\n", result.Reviewers, result.Enqueued)
}
