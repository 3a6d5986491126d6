// Package reaper provides adapters for running the generation run reaper.
package reaper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/quiz-pipeline/config"
	"github.com/target/quiz-pipeline/internal/core"
	"github.com/target/quiz-pipeline/internal/data"
	"github.com/target/quiz-pipeline/internal/observability/statsd"
	"github.com/target/quiz-pipeline/internal/service"
)

// Runner wires the reaper service to its repository and runs the sweep loop.
type Runner struct {
	reaper *service.ReaperService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner. Repo overrides
// the default repository built from DB, mainly for tests.
type RunnerOptions struct {
	DB      *sql.DB
	Config  config.ReaperConfig
	Logger  *slog.Logger
	Repo    core.GenerationRunRepository
	Metrics statsd.Sink
}

func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Repo == nil && opts.DB == nil {
		return nil, errors.New("database connection is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	repo := opts.Repo
	if repo == nil {
		repo = data.NewRunRepo(opts.DB, data.RepoConfig{Logger: opts.Logger})
	}

	reaper, err := service.NewReaperService(service.ReaperServiceOptions{
		Repo:    repo,
		Config:  opts.Config,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("wire reaper service: %w", err)
	}

	return &Runner{reaper: reaper, logger: opts.Logger}, nil
}

// Run executes the sweep loop until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	return r.reaper.Run(ctx)
}

// SweepOnce runs a single cleanup pass and returns the number of runs deleted.
func (r *Runner) SweepOnce(ctx context.Context) (int64, error) {
	return r.reaper.Sweep(ctx)
}
