package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/quiz-pipeline/internal/core"
)

// DuplicateFilterOptions groups dependencies for DuplicateFilter.
type DuplicateFilterOptions struct {
	Questions core.QuestionRepository // Required: question repository
	Cache     core.CacheRepository    // Optional: read-through cache for existing texts
	CacheTTL  time.Duration           // Optional: defaults to 10m
	Logger    *slog.Logger            // Optional: structured logger
}

// DuplicateFilter decides whether a freshly generated question duplicates one
// already persisted for the subject. Matching is exact text, per subject.
// Persisted texts are read through an optional cache; cache failures degrade
// to direct repository reads, never to wrong answers.
type DuplicateFilter struct {
	questions core.QuestionRepository
	cache     core.CacheRepository
	ttl       time.Duration
	logger    *slog.Logger
}

// NewDuplicateFilter constructs a new DuplicateFilter.
func NewDuplicateFilter(opts DuplicateFilterOptions) (*DuplicateFilter, error) {
	if opts.Questions == nil {
		return nil, errors.New("QuestionRepository is required")
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DuplicateFilter{
		questions: opts.Questions,
		cache:     opts.Cache,
		ttl:       ttl,
		logger:    logger.With("component", "duplicate_filter"),
	}, nil
}

func cacheKey(subjectID int64) string {
	return fmt.Sprintf("quiz:question_texts:%d", subjectID)
}

// IsDuplicate reports whether this exact text is already persisted for the
// subject.
func (f *DuplicateFilter) IsDuplicate(ctx context.Context, subjectID int64, text string) (bool, error) {
	texts, err := f.ExistingTexts(ctx, subjectID)
	if err != nil {
		return false, err
	}
	for _, existing := range texts {
		if existing == text {
			return true, nil
		}
	}
	return false, nil
}

// ExistingTexts returns all persisted question texts for the subject, reading
// through the cache when one is configured.
func (f *DuplicateFilter) ExistingTexts(ctx context.Context, subjectID int64) ([]string, error) {
	if f.cache != nil {
		if texts, ok := f.cachedTexts(ctx, subjectID); ok {
			return texts, nil
		}
	}

	texts, err := f.questions.ExistingTexts(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("load existing texts for subject %d: %w", subjectID, err)
	}

	if f.cache != nil {
		f.fillCache(ctx, subjectID, texts)
	}
	return texts, nil
}

// Invalidate drops the subject's cached texts. Call after persisting new
// questions so the next read observes them; the filter stays monotonic
// because stale cache entries can only under-report, and the write path
// re-reads after invalidation.
func (f *DuplicateFilter) Invalidate(ctx context.Context, subjectID int64) {
	if f.cache == nil {
		return
	}
	if _, err := f.cache.Delete(ctx, cacheKey(subjectID)); err != nil {
		f.logger.WarnContext(ctx, "failed to invalidate question text cache",
			"err", err, "subject_id", subjectID)
	}
}

func (f *DuplicateFilter) cachedTexts(ctx context.Context, subjectID int64) ([]string, bool) {
	raw, err := f.cache.Get(ctx, cacheKey(subjectID))
	if err != nil {
		f.logger.WarnContext(ctx, "question text cache read failed, falling back to database",
			"err", err, "subject_id", subjectID)
		return nil, false
	}
	if raw == nil {
		return nil, false
	}

	var texts []string
	if err := json.Unmarshal(raw, &texts); err != nil {
		f.logger.WarnContext(ctx, "question text cache entry is corrupt, dropping it",
			"err", err, "subject_id", subjectID)
		f.Invalidate(ctx, subjectID)
		return nil, false
	}
	return texts, true
}

func (f *DuplicateFilter) fillCache(ctx context.Context, subjectID int64, texts []string) {
	raw, err := json.Marshal(texts)
	if err != nil {
		return
	}
	if err := f.cache.Set(ctx, cacheKey(subjectID), raw, f.ttl); err != nil {
		f.logger.WarnContext(ctx, "question text cache write failed",
			"err", err, "subject_id", subjectID)
	}
}
