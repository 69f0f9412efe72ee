package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/feedback-review-api/internal/models"
	appErrors "github.com/noah-isme/feedback-review-api/pkg/errors"
)

const pendingKeyPrefix = "review:pending:"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService caches pending lists per reviewer. Cache failures are logged and
// never surface to callers; the database stays the source of truth.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// GetPending loads a cached pending list. ok is false on miss or failure.
func (s *CacheService) GetPending(ctx context.Context, email string) ([]models.PendingItem, bool) {
	if !s.Enabled() || email == "" {
		return nil, false
	}
	start := time.Now()
	var items []models.PendingItem
	err := s.repo.Get(ctx, pendingKey(email), &items)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("cache get failed", zap.String("key_prefix", pendingKeyPrefix), zap.Error(err))
		}
		return nil, false
	}
	return items, true
}

// SetPending stores a pending list.
func (s *CacheService) SetPending(ctx context.Context, email string, items []models.PendingItem) {
	if !s.Enabled() || email == "" {
		return
	}
	if items == nil {
		items = []models.PendingItem{}
	}
	start := time.Now()
	err := s.repo.Set(ctx, pendingKey(email), items, s.defaultTTL)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.Error(err))
	}
}

// InvalidatePending drops the cached lists of the given reviewers.
func (s *CacheService) InvalidatePending(ctx context.Context, emails ...string) {
	if !s.Enabled() {
		return
	}
	keys := make([]string, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		email = models.NormalizeEmail(email)
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		keys = append(keys, pendingKey(email))
	}
	if err := s.repo.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidate failed", zap.Error(err))
	}
}

// InvalidateAllPending drops every cached pending list, used after bulk imports.
func (s *CacheService) InvalidateAllPending(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.DeleteByPattern(ctx, pendingKeyPrefix+"*"); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pendingKeyPrefix+"*"), zap.Error(err))
	}
}

func pendingKey(email string) string {
	return pendingKeyPrefix + email
}
