package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/feedback-review-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil)
	ctx := context.Background()

	var dest []string
	assert.ErrorIs(t, repo.Get(ctx, "review:pending:a@x.com", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "review:pending:a@x.com", []string{"x"}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "review:pending:a@x.com"))
	assert.NoError(t, repo.DeleteByPattern(ctx, "review:pending:*"))
}
