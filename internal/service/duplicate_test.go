package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFilter(t *testing.T, repo *fakeQuestionRepo, cache *fakeCache) *DuplicateFilter {
	t.Helper()
	opts := DuplicateFilterOptions{Questions: repo}
	if cache != nil {
		opts.Cache = cache
	}
	filter, err := NewDuplicateFilter(opts)
	require.NoError(t, err)
	return filter
}

func TestNewDuplicateFilterRequiresRepo(t *testing.T) {
	_, err := NewDuplicateFilter(DuplicateFilterOptions{})
	require.Error(t, err)
}

func TestDuplicateFilterIsDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := &fakeQuestionRepo{existing: []string{
		"What is photosynthesis?",
		"Which organelle produces ATP?",
	}}
	filter := newTestFilter(t, repo, nil)

	t.Run("exact match is a duplicate", func(t *testing.T) {
		dup, err := filter.IsDuplicate(ctx, 42, "What is photosynthesis?")
		require.NoError(t, err)
		assert.True(t, dup)
	})

	t.Run("matching is case sensitive", func(t *testing.T) {
		dup, err := filter.IsDuplicate(ctx, 42, "what is photosynthesis?")
		require.NoError(t, err)
		assert.False(t, dup)
	})

	t.Run("unseen text is not a duplicate", func(t *testing.T) {
		dup, err := filter.IsDuplicate(ctx, 42, "What is osmosis?")
		require.NoError(t, err)
		assert.False(t, dup)
	})

	t.Run("repository errors propagate", func(t *testing.T) {
		broken := &fakeQuestionRepo{existingErr: errors.New("connection reset")}
		f := newTestFilter(t, broken, nil)
		_, err := f.IsDuplicate(ctx, 42, "anything")
		require.Error(t, err)
	})
}

func TestDuplicateFilterCache(t *testing.T) {
	ctx := context.Background()

	t.Run("second read is served from cache", func(t *testing.T) {
		repo := &fakeQuestionRepo{existing: []string{"What is photosynthesis?"}}
		cache := newFakeCache()
		filter := newTestFilter(t, repo, cache)

		texts, err := filter.ExistingTexts(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, []string{"What is photosynthesis?"}, texts)
		assert.Equal(t, 1, repo.existingCalls)

		texts, err = filter.ExistingTexts(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, []string{"What is photosynthesis?"}, texts)
		assert.Equal(t, 1, repo.existingCalls, "cache hit must not reach the repository")
	})

	t.Run("invalidate forces the next read back to the repository", func(t *testing.T) {
		repo := &fakeQuestionRepo{existing: []string{"What is photosynthesis?"}}
		cache := newFakeCache()
		filter := newTestFilter(t, repo, cache)

		_, err := filter.ExistingTexts(ctx, 42)
		require.NoError(t, err)

		filter.Invalidate(ctx, 42)
		assert.Equal(t, 1, cache.deleteCalls)

		repo.existing = append(repo.existing, "Which organelle produces ATP?")
		texts, err := filter.ExistingTexts(ctx, 42)
		require.NoError(t, err)
		assert.Len(t, texts, 2)
		assert.Equal(t, 2, repo.existingCalls)
	})

	t.Run("cache read failure degrades to the repository", func(t *testing.T) {
		repo := &fakeQuestionRepo{existing: []string{"What is photosynthesis?"}}
		cache := newFakeCache()
		cache.getErr = errors.New("redis down")
		filter := newTestFilter(t, repo, cache)

		texts, err := filter.ExistingTexts(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, []string{"What is photosynthesis?"}, texts)
		assert.Equal(t, 1, repo.existingCalls)
	})

	t.Run("corrupt cache entry is dropped and re-read", func(t *testing.T) {
		repo := &fakeQuestionRepo{existing: []string{"What is photosynthesis?"}}
		cache := newFakeCache()
		cache.store[cacheKey(42)] = []byte("{not json")
		filter := newTestFilter(t, repo, cache)

		texts, err := filter.ExistingTexts(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, []string{"What is photosynthesis?"}, texts)
		assert.Equal(t, 1, repo.existingCalls)
		assert.Equal(t, 1, cache.deleteCalls)
	})

	t.Run("cache write failure does not fail the read", func(t *testing.T) {
		repo := &fakeQuestionRepo{existing: []string{"What is photosynthesis?"}}
		cache := newFakeCache()
		cache.setErr = errors.New("redis down")
		filter := newTestFilter(t, repo, cache)

		texts, err := filter.ExistingTexts(ctx, 42)
		require.NoError(t, err)
		assert.Len(t, texts, 1)
	})

	t.Run("different subjects use different keys", func(t *testing.T) {
		repo := &fakeQuestionRepo{existing: []string{"What is photosynthesis?"}}
		cache := newFakeCache()
		filter := newTestFilter(t, repo, cache)

		_, err := filter.ExistingTexts(ctx, 42)
		require.NoError(t, err)
		_, err = filter.ExistingTexts(ctx, 43)
		require.NoError(t, err)
		assert.Equal(t, 2, repo.existingCalls)
		assert.Contains(t, cache.store, cacheKey(42))
		assert.Contains(t, cache.store, cacheKey(43))
	})
}
