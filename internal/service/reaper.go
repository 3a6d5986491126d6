package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/target/quiz-pipeline/config"
	"github.com/target/quiz-pipeline/internal/core"
	"github.com/target/quiz-pipeline/internal/observability/metrics"
	"github.com/target/quiz-pipeline/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo    core.GenerationRunRepository // Required: run repository
	Config  config.ReaperConfig          // Required: reaper configuration
	Logger  *slog.Logger                 // Optional: structured logger
	Metrics statsd.Sink                  // Optional: metrics sink (StatsD-compatible)
}

// ReaperService deletes old completed generation runs so the runs table does
// not grow without bound. DONE rows are pure history: questions live in their
// own tables and expired leases are handled by the acquire query, so nothing
// reads a DONE run after the fact.
type ReaperService struct {
	repo    core.GenerationRunRepository
	config  config.ReaperConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("GenerationRunRepository is required")
	}

	cfg := opts.Config
	cfg.Sanitize()

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		logger.Debug("reaper configured",
			"interval", cfg.Interval,
			"max_run_age", cfg.MaxRunAge,
			"batch_size", cfg.BatchSize,
		)
	}

	return &ReaperService{
		repo:    opts.Repo,
		config:  cfg,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Run sweeps on the configured interval until the context is cancelled.
// Cancellation is a graceful stop and returns nil.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "reaper loop starting", "interval", s.config.Interval)
	}

	s.waitWithJitter(ctx)
	if ctx.Err() != nil {
		return nil
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reaper loop stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Sweep runs a single cleanup pass, draining in batches until no rows remain.
// Exported for the admin command, which reaps once and exits.
func (s *ReaperService) Sweep(ctx context.Context) (int64, error) {
	var total int64
	for {
		count, err := s.repo.DeleteOldRuns(ctx, s.config.MaxRunAge, s.config.BatchSize)
		if err != nil {
			return total, fmt.Errorf("delete old runs: %w", err)
		}
		total += count
		if count == 0 {
			return total, nil
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
}

// sweep wraps Sweep with logging and metrics; errors never stop the loop.
func (s *ReaperService) sweep(ctx context.Context) {
	start := time.Now()
	deleted, err := s.Sweep(ctx)
	elapsed := time.Since(start)

	metrics.EmitReaperSweep(s.metrics, deleted, elapsed, suppressContextCancellation(err))

	switch {
	case err != nil && isContextCancellation(err):
		// Shutdown mid-sweep, nothing to report
	case err != nil:
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "reaper sweep failed", "err", err, "deleted", deleted)
		}
	case deleted > 0:
		if s.logger != nil {
			s.logger.InfoContext(ctx, "reaper sweep completed", "deleted", deleted, "elapsed", elapsed)
		}
	}
}

// waitWithJitter delays up to 10% of the interval before the first sweep so
// replicas starting together don't sweep in lockstep.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := s.config.Interval / 10
	if maxJitter <= 0 {
		return
	}

	select {
	case <-time.After(rand.N(maxJitter)):
	case <-ctx.Done():
	}
}

func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
