package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/quiz-pipeline/internal/core"
	"github.com/target/quiz-pipeline/internal/domain/generation"
	"github.com/target/quiz-pipeline/internal/domain/model"
)

// LeaseServiceOptions groups dependencies for LeaseService.
type LeaseServiceOptions struct {
	Repo         core.GenerationRunRepository // Required: run repository
	DefaultLease time.Duration                // Optional: defaults to 120s
	Logger       *slog.Logger                 // Optional: structured logger
}

// LeaseService mediates run lease operations: acquiring a subject's lease,
// recording batch progress (which refreshes the lease), and releasing it.
// All duration handling goes through the lease policy so a run can never be
// written with a non-positive lease.
type LeaseService struct {
	repo   core.GenerationRunRepository
	policy *generation.LeasePolicy
	logger *slog.Logger
}

// NewLeaseService constructs a new LeaseService.
func NewLeaseService(opts LeaseServiceOptions) (*LeaseService, error) {
	if opts.Repo == nil {
		return nil, errors.New("GenerationRunRepository is required")
	}

	lease := opts.DefaultLease
	if lease <= 0 {
		lease = 120 * time.Second
	}
	policy, err := generation.NewLeasePolicy(lease)
	if err != nil {
		return nil, fmt.Errorf("lease policy: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &LeaseService{
		repo:   opts.Repo,
		policy: policy,
		logger: logger.With("component", "lease_service"),
	}, nil
}

// Acquire attempts to claim the generation lease for a subject. It returns
// nil when another run holds an unexpired lease.
func (s *LeaseService) Acquire(ctx context.Context, subjectID int64) (*model.GenerationRun, error) {
	decision := s.policy.Resolve(0)

	run, err := s.repo.Acquire(ctx, subjectID, decision.Seconds)
	if err != nil {
		return nil, fmt.Errorf("acquire lease for subject %d: %w", subjectID, err)
	}
	if run == nil {
		return nil, nil
	}

	s.logger.InfoContext(ctx, "lease acquired",
		"subject_id", subjectID,
		"run_id", run.ID,
		"lease_seconds", decision.Seconds,
	)
	return run, nil
}

// Advance records completion of a batch and refreshes the lease.
func (s *LeaseService) Advance(ctx context.Context, runID string, completed, total int) error {
	decision := s.policy.Resolve(0)
	return s.repo.RefreshAndAdvance(ctx, core.AdvanceParams{
		RunID:            runID,
		CompletedBatches: completed,
		TotalBatches:     total,
		LeaseSeconds:     decision.Seconds,
	})
}

// Release marks the run DONE, freeing the subject for future acquisition.
func (s *LeaseService) Release(ctx context.Context, runID string) error {
	return s.repo.MarkDone(ctx, runID)
}

// Latest returns the most recent run for a subject, or nil.
func (s *LeaseService) Latest(ctx context.Context, subjectID int64) (*model.GenerationRun, error) {
	return s.repo.LatestBySubject(ctx, subjectID)
}
