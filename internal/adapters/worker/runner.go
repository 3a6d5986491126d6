// Package worker provides adapters for running the generation worker: the
// queue consumer plus the services it dispatches into.
package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/quiz-pipeline/config"
	"github.com/target/quiz-pipeline/internal/adapters/llm"
	"github.com/target/quiz-pipeline/internal/adapters/lms"
	"github.com/target/quiz-pipeline/internal/adapters/queue"
	"github.com/target/quiz-pipeline/internal/core"
	"github.com/target/quiz-pipeline/internal/data"
	"github.com/target/quiz-pipeline/internal/observability/statsd"
	"github.com/target/quiz-pipeline/internal/service"
)

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Queue  *queue.Client
	Config *config.AppConfig
	Logger *slog.Logger

	// Optional dependency injections for testing/decoupling
	Runs      core.GenerationRunRepository
	Questions core.QuestionRepository
	Cache     core.CacheRepository
	Generator core.QuestionGenerator
	Documents core.DocumentSource
	Metrics   statsd.Sink
}

// Runner wires the generation pipeline behind a queue consumer and runs it.
type Runner struct {
	consumer *queue.Consumer
	logger   *slog.Logger
}

// NewRunner creates a new worker runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	svc, err := wireGenerationService(opts)
	if err != nil {
		return nil, fmt.Errorf("wire generation service: %w", err)
	}

	consumer, err := queue.NewConsumer(queue.ConsumerOptions{
		Client:      opts.Queue,
		Handler:     svc.HandleMessage,
		Prefetch:    opts.Config.Queue.Prefetch,
		Concurrency: opts.Config.Queue.Concurrency,
		Logger:      opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire consumer: %w", err)
	}

	return &Runner{consumer: consumer, logger: opts.Logger}, nil
}

func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.Config == nil {
		return errors.New("config is required")
	}
	if opts.Queue == nil {
		return errors.New("queue client is required")
	}
	if opts.DB == nil && (opts.Runs == nil || opts.Questions == nil) {
		return errors.New("database connection is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

// wireGenerationService wires up all dependencies for the generation service.
func wireGenerationService(opts RunnerOptions) (*service.GenerationService, error) {
	runs := opts.Runs
	if runs == nil {
		runs = data.NewRunRepo(opts.DB, data.RepoConfig{Logger: opts.Logger})
	}
	questions := opts.Questions
	if questions == nil {
		questions = data.NewQuestionRepo(opts.DB, data.RepoConfig{Logger: opts.Logger})
	}

	lease, err := service.NewLeaseService(service.LeaseServiceOptions{
		Repo:         runs,
		DefaultLease: opts.Config.Pipeline.LeaseDuration,
		Logger:       opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("lease service: %w", err)
	}

	filter, err := service.NewDuplicateFilter(service.DuplicateFilterOptions{
		Questions: questions,
		Cache:     opts.Cache,
		CacheTTL:  opts.Config.Cache.QuestionTTL,
		Logger:    opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("duplicate filter: %w", err)
	}

	generator := opts.Generator
	if generator == nil {
		generator = llm.NewGenerator(llm.GeneratorOptions{
			Config: opts.Config.LLM,
			Logger: opts.Logger,
		})
	}

	documents := opts.Documents
	if documents == nil {
		client, cerr := lms.NewClient(lms.ClientOptions{
			Config: opts.Config.LMS,
			Logger: opts.Logger,
		})
		if cerr != nil {
			return nil, fmt.Errorf("lms client: %w", cerr)
		}
		documents = client
	}

	return service.NewGenerationService(service.GenerationServiceOptions{
		Lease:     lease,
		Questions: questions,
		Filter:    filter,
		Generator: generator,
		Documents: documents,
		Publisher: opts.Queue,
		Config:    opts.Config.Pipeline,
		Logger:    opts.Logger,
		Metrics:   opts.Metrics,
	})
}

// Run starts the queue consumer and blocks until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting generation worker")
	return r.consumer.Run(ctx)
}
