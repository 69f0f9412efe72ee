package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/feedback-review-api/internal/dto"
	"github.com/noah-isme/feedback-review-api/internal/models"
	"github.com/noah-isme/feedback-review-api/internal/repository"
	"github.com/noah-isme/feedback-review-api/pkg/config"
	appErrors "github.com/noah-isme/feedback-review-api/pkg/errors"
)

type feedbackRepository interface {
	ListPending(ctx context.Context, email string) ([]models.FeedbackRecord, error)
	FindByID(ctx context.Context, id int64) (*models.FeedbackRecord, error)
	UpdateAnswer(ctx context.Context, params repository.UpdateAnswerParams) (*models.FeedbackRecord, error)
	Ping(ctx context.Context) error
}

// ReviewService is the review engine: it resolves pending obligations for a reviewer
// and records their answers.
type ReviewService struct {
	repo      feedbackRepository
	policy    *ReviewPolicy
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewReviewService wires the engine. cache and metrics may be nil.
func NewReviewService(repo feedbackRepository, policy *ReviewPolicy, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if policy == nil {
		policy = NewReviewPolicy(config.ReviewConfig{EnforceSlotOwner: true})
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{
		repo:      repo,
		policy:    policy,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Policy exposes the active review policy.
func (s *ReviewService) Policy() *ReviewPolicy {
	return s.policy
}

// ProblemTags returns the configured tag vocabulary.
func (s *ReviewService) ProblemTags() []string {
	return s.policy.ProblemTags()
}

// ListPending returns every unanswered slot assigned to email, ordered by record id
// ascending and, within a record, slot 1 before slot 2. A blank email owes nothing.
func (s *ReviewService) ListPending(ctx context.Context, email string) ([]models.PendingItem, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return []models.PendingItem{}, nil
	}

	if items, ok := s.cache.GetPending(ctx, email); ok {
		return items, nil
	}

	records, err := s.repo.ListPending(ctx, email)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list pending reviews")
	}

	items := make([]models.PendingItem, 0, len(records))
	for _, record := range records {
		for _, slot := range models.Slots {
			if record.PendingFor(email, slot) {
				items = append(items, models.PendingItem{Record: record, Slot: slot})
			}
		}
	}

	s.cache.SetPending(ctx, email, items)
	return items, nil
}

// NextPending returns the first pending item whose record id exceeds afterID, or the
// first pending item when afterID is nil. Once the cursor passes the tail it wraps
// to the head of the list. It returns nil when nothing is pending.
func (s *ReviewService) NextPending(ctx context.Context, email string, afterID *int64) (*models.PendingItem, error) {
	items, err := s.ListPending(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	if afterID != nil {
		for i := range items {
			if items[i].Record.ID > *afterID {
				return &items[i], nil
			}
		}
	}
	return &items[0], nil
}

// GetRecord loads a single feedback record.
func (s *ReviewService) GetRecord(ctx context.Context, id int64) (*models.FeedbackRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrRecordNotFound
		}
		return nil, appErrors.Storage(err, "failed to load feedback record")
	}
	return record, nil
}

// Authorize checks that email is the reviewer assigned to slot on record.
func (s *ReviewService) Authorize(record *models.FeedbackRecord, email string, slot models.Slot) error {
	if !slot.Valid() {
		return appErrors.ErrInvalidSlot
	}
	if !s.policy.EnforceSlotOwner {
		return nil
	}
	email = models.NormalizeEmail(email)
	if email == "" || record == nil || record.SlotEmail(slot) != email {
		return appErrors.ErrForbidden
	}
	return nil
}

// ReviewItem loads the record behind a review link and applies the slot ownership
// check when the policy enforces it.
func (s *ReviewService) ReviewItem(ctx context.Context, email string, id int64, rawSlot string) (*models.PendingItem, error) {
	slot, ok := models.ParseSlot(rawSlot)
	if !ok {
		return nil, appErrors.ErrInvalidSlot
	}
	record, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Authorize(record, email, slot); err != nil {
		s.logger.Warn("review slot access denied", zap.Int64("id", id), zap.Stringer("slot", slot))
		return nil, err
	}
	return &models.PendingItem{Record: *record, Slot: slot}, nil
}

// UpdateAnswer writes the answer for one slot and applies the tag update. Tags outside
// the vocabulary are dropped; a tag set that filters down to nothing stores NULL.
func (s *ReviewService) UpdateAnswer(ctx context.Context, id int64, slot models.Slot, rawAnswer string, tags models.TagUpdate) (*models.FeedbackRecord, error) {
	if !slot.Valid() {
		return nil, appErrors.ErrInvalidSlot
	}
	answer, ok := models.ParseAnswer(rawAnswer)
	if !ok {
		return nil, appErrors.ErrInvalidAnswer
	}

	params := repository.UpdateAnswerParams{
		ID:             id,
		Slot:           slot,
		Answer:         answer,
		SetProblems:    tags.Present,
		OnlyUnanswered: s.policy.WriteOnce,
		UpdatedAt:      s.now().UTC(),
	}
	if tags.Present {
		params.Problems = s.policy.JoinTags(tags.Values)
	}

	record, err := s.repo.UpdateAnswer(ctx, params)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.ErrRecordNotFound
		case errors.Is(err, repository.ErrSlotAnswered):
			return nil, appErrors.ErrAlreadyAnswered
		default:
			return nil, appErrors.Storage(err, "failed to store answer")
		}
	}

	s.cache.InvalidatePending(ctx, record.SlotEmail(models.SlotReviewer1), record.SlotEmail(models.SlotReviewer2))
	s.metrics.ObserveReviewSubmission(slot, answer)
	s.logger.Info("review answer stored",
		zap.Int64("id", id),
		zap.Stringer("slot", slot),
		zap.String("answer", string(answer)),
		zap.Bool("tags_touched", tags.Present),
	)
	return record, nil
}

// Submit handles one posted review form: it stores the answer and returns the
// reviewer's next pending item after the submitted record, or nil when done.
func (s *ReviewService) Submit(ctx context.Context, req dto.SubmitRequest) (*models.PendingItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission")
	}
	slot, ok := models.ParseSlot(req.Slot)
	if !ok {
		return nil, appErrors.ErrInvalidSlot
	}
	answer, ok := models.ParseAnswer(req.Answer)
	if !ok {
		return nil, appErrors.ErrInvalidAnswer
	}

	if s.policy.EnforceSlotOwner {
		record, err := s.GetRecord(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		if err := s.Authorize(record, req.Email, slot); err != nil {
			s.logger.Warn("review submission denied", zap.Int64("id", req.ID), zap.Stringer("slot", slot))
			return nil, err
		}
	}

	tags := s.policy.ResolveTags(answer, req.Problems, req.ProblemsSubmitted)
	if _, err := s.UpdateAnswer(ctx, req.ID, slot, string(answer), tags); err != nil {
		return nil, err
	}
	s.cache.InvalidatePending(ctx, req.Email)

	id := req.ID
	return s.NextPending(ctx, req.Email, &id)
}

// Health confirms the database is reachable.
func (s *ReviewService) Health(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return appErrors.Storage(err, "database unreachable")
	}
	return nil
}
