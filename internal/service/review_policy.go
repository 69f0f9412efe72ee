package service

import (
	"strings"

	"github.com/noah-isme/feedback-review-api/internal/models"
	"github.com/noah-isme/feedback-review-api/pkg/config"
)

// ReviewPolicy holds the deployment-selected review rules: the problem tag
// vocabulary, whether the detail view checks slot ownership, how a submitted form
// maps onto the tags column and whether answered slots may be overwritten.
type ReviewPolicy struct {
	vocabulary       []string
	allowed          map[string]struct{}
	EnforceSlotOwner bool
	TagMode          string
	WriteOnce        bool
}

// NewReviewPolicy builds a policy from configuration.
func NewReviewPolicy(cfg config.ReviewConfig) *ReviewPolicy {
	tags := cfg.ProblemTags
	if len(tags) == 0 {
		tags = config.DefaultProblemTags
	}
	p := &ReviewPolicy{
		allowed:          make(map[string]struct{}, len(tags)),
		EnforceSlotOwner: cfg.EnforceSlotOwner,
		TagMode:          cfg.TagMode,
		WriteOnce:        cfg.WriteOnce,
	}
	for _, tag := range tags {
		if _, dup := p.allowed[tag]; dup {
			continue
		}
		p.allowed[tag] = struct{}{}
		p.vocabulary = append(p.vocabulary, tag)
	}
	if p.TagMode != config.TagModeNegativeOnly {
		p.TagMode = config.TagModeSubmittedMarker
	}
	return p
}

// ProblemTags returns the vocabulary in display order.
func (p *ReviewPolicy) ProblemTags() []string {
	return append([]string(nil), p.vocabulary...)
}

// FilterTags keeps only vocabulary members, preserving submission order.
// Unknown tags are dropped silently so stale forms keep working after a vocabulary change.
func (p *ReviewPolicy) FilterTags(values []string) []string {
	var valid []string
	for _, value := range values {
		if _, ok := p.allowed[value]; ok {
			valid = append(valid, value)
		}
	}
	return valid
}

// JoinTags filters values and joins them for storage. It returns nil when nothing
// valid remains, which stores NULL.
func (p *ReviewPolicy) JoinTags(values []string) *string {
	valid := p.FilterTags(values)
	if len(valid) == 0 {
		return nil
	}
	joined := strings.Join(valid, models.TagSeparator)
	return &joined
}

// ResolveTags turns a submitted form into a tag update according to TagMode.
// submitted reports whether the form carried the problem checkbox section at all.
func (p *ReviewPolicy) ResolveTags(answer models.Answer, values []string, submitted bool) models.TagUpdate {
	if p.TagMode == config.TagModeNegativeOnly {
		if answer != models.AnswerNo {
			return models.ClearTags()
		}
		return models.SetTags(values...)
	}
	if !submitted && len(values) == 0 {
		return models.KeepTags()
	}
	return models.SetTags(values...)
}
