package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/feedback-review-api/internal/dto"
	"github.com/noah-isme/feedback-review-api/internal/repository"
	appErrors "github.com/noah-isme/feedback-review-api/pkg/errors"
	"github.com/noah-isme/feedback-review-api/pkg/jobs"
	"github.com/noah-isme/feedback-review-api/pkg/mailer"
)

const invitationJobType = "review.invitation"

type workloadReader interface {
	ListReviewerWorkloads(ctx context.Context) ([]repository.ReviewerWorkload, error)
}

// InvitationConfig tunes invitation delivery.
type InvitationConfig struct {
	PublicBaseURL string
	Queue         jobs.QueueConfig
}

// InvitationService emails every reviewer with pending work a link to their queue.
type InvitationService struct {
	repo    workloadReader
	sender  mailer.Sender
	metrics *MetricsService
	logger  *zap.Logger
	baseURL string
	queue   *jobs.Queue
}

// NewInvitationService builds the service and its delivery queue. Call Start before SendAll.
func NewInvitationService(repo workloadReader, sender mailer.Sender, metrics *MetricsService, cfg InvitationConfig, logger *zap.Logger) *InvitationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &InvitationService{
		repo:    repo,
		sender:  sender,
		metrics: metrics,
		logger:  logger,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
	queueCfg := cfg.Queue
	queueCfg.Logger = logger
	queueCfg.OnGiveUp = func(job jobs.Job, err error) {
		s.metrics.ObserveInvitation("failed")
	}
	s.queue = jobs.NewQueue("invitations", s.deliver, queueCfg)
	return s
}

// Start launches the delivery workers.
func (s *InvitationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop halts the delivery workers.
func (s *InvitationService) Stop() {
	s.queue.Stop()
}

// Wait blocks until every enqueued invitation was delivered or gave up.
func (s *InvitationService) Wait(ctx context.Context) error {
	return s.queue.Drain(ctx)
}

// SendAll enqueues one invitation per reviewer that still owes answers.
func (s *InvitationService) SendAll(ctx context.Context) (*dto.InvitationResult, error) {
	workloads, err := s.repo.ListReviewerWorkloads(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list reviewer workloads")
	}

	result := &dto.InvitationResult{Reviewers: len(workloads)}
	for _, workload := range workloads {
		job := jobs.Job{ID: workload.Email, Type: invitationJobType, Payload: workload}
		if err := s.queue.Enqueue(job); err != nil {
			s.metrics.ObserveInvitation("dropped")
			s.logger.Error("failed to enqueue invitation", zap.Error(err))
			continue
		}
		result.Enqueued++
	}
	s.logger.Info("invitations enqueued", zap.Int("reviewers", result.Reviewers), zap.Int("enqueued", result.Enqueued))
	return result, nil
}

func (s *InvitationService) deliver(ctx context.Context, job jobs.Job) error {
	workload, ok := job.Payload.(repository.ReviewerWorkload)
	if !ok {
		s.logger.Error("unexpected invitation payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.sender.Send(ctx, s.Compose(workload)); err != nil {
		return err
	}
	s.metrics.ObserveInvitation("sent")
	return nil
}

// Compose renders the invitation for one reviewer.
func (s *InvitationService) Compose(workload repository.ReviewerWorkload) mailer.Message {
	link := fmt.Sprintf("%s/?email=%s", s.baseURL, url.QueryEscape(workload.Email))
	noun := "avaliações pendentes"
	if workload.Pending == 1 {
		noun = "avaliação pendente"
	}
	body := fmt.Sprintf("Olá,\n\nVocê tem %d %s de feedback.\nAcesse: %s\n\nObrigado!\n", workload.Pending, noun, link)
	return mailer.Message{
		To:      workload.Email,
		Subject: "Avaliação de feedbacks pendente",
		Body:    body,
	}
}
