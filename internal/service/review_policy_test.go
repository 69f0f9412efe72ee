package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/feedback-review-api/internal/models"
	"github.com/noah-isme/feedback-review-api/pkg/config"
)

func TestReviewPolicyJoinTagsDropsUnknown(t *testing.T) {
	policy := NewReviewPolicy(config.ReviewConfig{ProblemTags: config.DefaultProblemTags})

	joined := policy.JoinTags([]string{"Texto genérico / vago", "NotARealTag"})
	require.NotNil(t, joined)
	assert.Equal(t, "Texto genérico / vago", *joined)

	joined = policy.JoinTags([]string{"Falta de exemplos", "Sem objetivo claro"})
	require.NotNil(t, joined)
	assert.Equal(t, "Falta de exemplos, Sem objetivo claro", *joined)

	assert.Nil(t, policy.JoinTags([]string{"NotARealTag"}))
	assert.Nil(t, policy.JoinTags(nil))
}

func TestReviewPolicyCustomVocabulary(t *testing.T) {
	policy := NewReviewPolicy(config.ReviewConfig{ProblemTags: []string{"Tom agressivo", "Tom agressivo", "Vago"}})
	assert.Equal(t, []string{"Tom agressivo", "Vago"}, policy.ProblemTags())
	assert.Empty(t, policy.FilterTags([]string{"Texto genérico / vago"}))
}

func TestReviewPolicyDefaultsVocabulary(t *testing.T) {
	policy := NewReviewPolicy(config.ReviewConfig{TagMode: "bogus"})
	assert.Equal(t, config.DefaultProblemTags, policy.ProblemTags())
	assert.Equal(t, config.TagModeSubmittedMarker, policy.TagMode)
}

func TestReviewPolicyResolveTagsSubmittedMarker(t *testing.T) {
	policy := NewReviewPolicy(config.ReviewConfig{TagMode: config.TagModeSubmittedMarker})

	assert.Equal(t, models.KeepTags(), policy.ResolveTags(models.AnswerNo, nil, false))
	assert.Equal(t, models.ClearTags(), policy.ResolveTags(models.AnswerNo, nil, true))
	assert.Equal(t, models.SetTags("Vago"), policy.ResolveTags(models.AnswerYes, []string{"Vago"}, false))
}

func TestReviewPolicyResolveTagsNegativeOnly(t *testing.T) {
	policy := NewReviewPolicy(config.ReviewConfig{TagMode: config.TagModeNegativeOnly})

	assert.Equal(t, models.ClearTags(), policy.ResolveTags(models.AnswerYes, []string{"Vago"}, true))
	assert.Equal(t, models.SetTags(), policy.ResolveTags(models.AnswerNo, nil, false))
	assert.Equal(t, models.SetTags("Vago"), policy.ResolveTags(models.AnswerNo, []string{"Vago"}, false))
}
