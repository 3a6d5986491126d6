package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/quiz-pipeline/config"
)

func newTestReaper(t *testing.T, repo *fakeRunRepo) *ReaperService {
	t.Helper()
	svc, err := NewReaperService(ReaperServiceOptions{
		Repo: repo,
		Config: config.ReaperConfig{
			Interval:  time.Hour,
			MaxRunAge: 7 * 24 * time.Hour,
			BatchSize: 500,
		},
	})
	require.NoError(t, err)
	return svc
}

func TestNewReaperServiceRequiresRepo(t *testing.T) {
	_, err := NewReaperService(ReaperServiceOptions{})
	require.Error(t, err)
}

func TestReaperSweepDrainsBatches(t *testing.T) {
	repo := &fakeRunRepo{deleteBatches: []int64{500, 500, 137}}
	svc := newTestReaper(t, repo)

	deleted, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1137), deleted)
	// Three full batches plus the empty read that terminates the drain.
	assert.Equal(t, 4, repo.deleteCalls)
	assert.Equal(t, 7*24*time.Hour, repo.deleteMaxAge)
	assert.Equal(t, 500, repo.deleteLimit)
}

func TestReaperSweepNothingToDelete(t *testing.T) {
	repo := &fakeRunRepo{}
	svc := newTestReaper(t, repo)

	deleted, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Equal(t, 1, repo.deleteCalls)
}

func TestReaperSweepPropagatesErrors(t *testing.T) {
	repo := &fakeRunRepo{deleteErr: errors.New("connection reset")}
	svc := newTestReaper(t, repo)

	_, err := svc.Sweep(context.Background())
	require.Error(t, err)
}

func TestReaperRunStopsOnCancel(t *testing.T) {
	repo := &fakeRunRepo{}
	svc := newTestReaper(t, repo)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err, "graceful shutdown must not report an error")
	case <-time.After(5 * time.Second):
		t.Fatal("reaper did not stop after cancellation")
	}
}
