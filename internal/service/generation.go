package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/quiz-pipeline/config"
	"github.com/target/quiz-pipeline/internal/core"
	"github.com/target/quiz-pipeline/internal/domain/generation"
	"github.com/target/quiz-pipeline/internal/domain/model"
	"github.com/target/quiz-pipeline/internal/domain/plan"
	apperrors "github.com/target/quiz-pipeline/internal/errors"
	"github.com/target/quiz-pipeline/internal/observability/metrics"
	"github.com/target/quiz-pipeline/internal/observability/statsd"
)

// GenerationServiceOptions groups dependencies for GenerationService.
type GenerationServiceOptions struct {
	Lease     *LeaseService           // Required: lease operations
	Questions core.QuestionRepository // Required: question persistence
	Filter    *DuplicateFilter        // Required: duplicate detection
	Generator core.QuestionGenerator  // Required: question generation
	Documents core.DocumentSource     // Required: subject documents
	Publisher core.QueuePublisher     // Required: step publishing
	Planner   *plan.Planner           // Optional: defaults to default tiers
	Config    config.PipelineConfig   // Policy knobs (threshold, retries, backoff)
	Logger    *slog.Logger            // Optional: structured logger
	Metrics   statsd.Sink             // Optional: metrics sink
}

// GenerationService drives the quiz generation pipeline. Each queue message
// is one batch-sized step; the service re-derives everything it needs from
// the message and the subject's document, performs the step, and enqueues the
// follow-up message. No state lives in the process between steps.
type GenerationService struct {
	lease     *LeaseService
	questions core.QuestionRepository
	filter    *DuplicateFilter
	generator core.QuestionGenerator
	documents core.DocumentSource
	publisher core.QueuePublisher
	planner   *plan.Planner
	backoff   generation.RetryBackoff

	duplicateThreshold float64
	maxRegenerate      int
	maxRetries         int

	logger  *slog.Logger
	metrics statsd.Sink
}

// NewGenerationService constructs a new GenerationService.
func NewGenerationService(opts GenerationServiceOptions) (*GenerationService, error) {
	switch {
	case opts.Lease == nil:
		return nil, errors.New("LeaseService is required")
	case opts.Questions == nil:
		return nil, errors.New("QuestionRepository is required")
	case opts.Filter == nil:
		return nil, errors.New("DuplicateFilter is required")
	case opts.Generator == nil:
		return nil, errors.New("QuestionGenerator is required")
	case opts.Documents == nil:
		return nil, errors.New("DocumentSource is required")
	case opts.Publisher == nil:
		return nil, errors.New("QueuePublisher is required")
	}

	cfg := opts.Config
	cfg.Sanitize()

	planner := opts.Planner
	if planner == nil {
		planner = plan.NewPlanner(plan.Tiers{
			SmallMaxWords:   cfg.SmallDocWords,
			MediumMaxWords:  cfg.MediumDocWords,
			SmallQuestions:  cfg.SmallDocQuestions,
			MediumQuestions: cfg.MediumDocQuestions,
			LargeQuestions:  cfg.LargeDocQuestions,
		}, cfg.BatchSize)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &GenerationService{
		lease:              opts.Lease,
		questions:          opts.Questions,
		filter:             opts.Filter,
		generator:          opts.Generator,
		documents:          opts.Documents,
		publisher:          opts.Publisher,
		planner:            planner,
		backoff:            generation.NewRetryBackoff(cfg.RetryBackoffBase),
		duplicateThreshold: cfg.DuplicateThreshold,
		maxRegenerate:      cfg.MaxRegenerateAttempts,
		maxRetries:         cfg.MaxRetries,
		logger:             logger.With("component", "generation_service"),
		metrics:            opts.Metrics,
	}, nil
}

// HandleMessage is the queue entrypoint: decode, classify, process. Malformed
// payloads are dropped; redelivering them could never succeed and retrying
// without a run id risks duplicate generations.
func (s *GenerationService) HandleMessage(ctx context.Context, payload []byte) error {
	step, err := model.DecodeJobMessage(payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "dropping malformed message", "err", err)
		metrics.EmitBatchOutcome(s.metrics, metrics.BatchMetric{
			Step:   "unknown",
			Result: metrics.ResultError,
			Err:    err,
		})
		return nil
	}
	return s.Process(ctx, step)
}

// Process executes one pipeline step.
func (s *GenerationService) Process(ctx context.Context, step model.Step) error {
	start := time.Now()
	msg := step.Message
	logger := s.logger.With(
		"subject_id", msg.SubjectID,
		"batch_number", msg.BatchNumber,
		"step", step.Kind.String(),
		"retry_count", msg.RetryCount,
		"regenerate_attempt", msg.RegenerateAttempt,
	)

	document, err := s.documents.FetchDocument(ctx, msg.SubjectID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			logger.ErrorContext(ctx, "subject not found, dropping message", "err", err)
			return nil
		}
		return s.recover(ctx, logger, step, fmt.Errorf("fetch document: %w", err))
	}

	if step.Kind == model.StepFresh {
		run, proceed := s.startFresh(ctx, logger, msg.SubjectID)
		if !proceed {
			return nil
		}
		msg.RunID = run.ID
		step.Message.RunID = run.ID
		logger = logger.With("run_id", run.ID)
	} else {
		logger = logger.With("run_id", msg.RunID)
	}

	batchPlan := s.planner.Plan(document)
	batch, ok := batchPlan.Batch(msg.BatchNumber)
	if !ok {
		logger.ErrorContext(ctx, "batch number outside plan, dropping message",
			"batch_count", batchPlan.BatchCount())
		return nil
	}

	avoid, err := s.filter.ExistingTexts(ctx, msg.SubjectID)
	if err != nil {
		return s.recover(ctx, logger, step, err)
	}

	generated, err := s.generator.GenerateBatch(ctx, core.GenerateBatchRequest{
		SubjectID:     msg.SubjectID,
		Document:      document,
		BatchNumber:   msg.BatchNumber,
		QuestionCount: batch.QuestionCount,
		AvoidTexts:    avoid,
	})
	if err != nil {
		return s.recover(ctx, logger, step, fmt.Errorf("generate batch: %w", err))
	}

	saved, duplicates, err := s.persistBatch(ctx, logger, msg.SubjectID, generated)
	if saved > 0 {
		s.filter.Invalidate(ctx, msg.SubjectID)
	}
	if err != nil {
		return s.recover(ctx, logger, step, fmt.Errorf("persist batch: %w", err))
	}

	logger.InfoContext(ctx, "batch persisted", "saved", saved, "duplicates", duplicates)

	// Denominator is the requested count, not the returned count.
	duplicateRate := float64(duplicates) / float64(batch.QuestionCount)

	if duplicateRate >= s.duplicateThreshold && msg.RegenerateAttempt < s.maxRegenerate {
		return s.regenerate(ctx, logger, msg, regenerateParams{
			rate:       duplicateRate,
			saved:      saved,
			duplicates: duplicates,
			kind:       step.Kind,
			start:      start,
		})
	}
	if duplicateRate >= s.duplicateThreshold {
		logger.WarnContext(ctx, "duplicate rate still high but regeneration budget exhausted, continuing",
			"duplicate_rate", duplicateRate)
	}

	if err := s.lease.Advance(ctx, msg.RunID, msg.BatchNumber, batchPlan.BatchCount()); err != nil {
		return s.recover(ctx, logger, step, fmt.Errorf("advance run: %w", err))
	}

	if msg.BatchNumber < batchPlan.BatchCount() {
		next := model.JobMessage{
			SubjectID:   msg.SubjectID,
			BatchNumber: msg.BatchNumber + 1,
			RunID:       msg.RunID,
		}
		if err := s.publisher.Publish(ctx, &next); err != nil {
			return s.recover(ctx, logger, step, fmt.Errorf("enqueue next batch: %w", err))
		}
		logger.InfoContext(ctx, "batch completed, next batch queued",
			"batch_count", batchPlan.BatchCount())
	} else {
		if err := s.lease.Release(ctx, msg.RunID); err != nil {
			return s.recover(ctx, logger, step, fmt.Errorf("mark run done: %w", err))
		}
		logger.InfoContext(ctx, "all batches completed, run done",
			"batch_count", batchPlan.BatchCount())
		metrics.EmitRunDone(s.metrics, false)
	}

	metrics.EmitBatchOutcome(s.metrics, metrics.BatchMetric{
		Step:       step.Kind.String(),
		Result:     metrics.ResultSuccess,
		Duration:   time.Since(start),
		Saved:      saved,
		Duplicates: duplicates,
	})
	return nil
}

// startFresh runs the fresh-step guards: skip subjects that already have
// questions, then claim the lease. Returns proceed=false when this worker
// should silently stop.
func (s *GenerationService) startFresh(ctx context.Context, logger *slog.Logger, subjectID int64) (*model.GenerationRun, bool) {
	has, err := s.questions.HasQuestions(ctx, subjectID)
	if err != nil {
		// No run exists yet, so there is nothing to retry against; the
		// trigger event can simply be re-sent.
		logger.ErrorContext(ctx, "failed to check existing questions, dropping message", "err", err)
		return nil, false
	}
	if has {
		logger.InfoContext(ctx, "subject already has questions, skipping generation")
		metrics.EmitBatchOutcome(s.metrics, metrics.BatchMetric{
			Step:   model.StepFresh.String(),
			Result: metrics.ResultSkipped,
		})
		return nil, false
	}

	run, err := s.lease.Acquire(ctx, subjectID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to acquire lease, dropping message", "err", err)
		return nil, false
	}
	if run == nil {
		logger.InfoContext(ctx, "another run holds the lease, skipping generation")
		metrics.EmitBatchOutcome(s.metrics, metrics.BatchMetric{
			Step:   model.StepFresh.String(),
			Result: metrics.ResultSkipped,
		})
		return nil, false
	}
	return run, true
}

// persistBatch writes non-duplicate questions, one transaction per question.
// Within-batch repeats count as duplicates too; the filter only knows about
// persisted state, so a local set covers texts saved earlier in this loop.
func (s *GenerationService) persistBatch(
	ctx context.Context,
	logger *slog.Logger,
	subjectID int64,
	questions []model.Question,
) (saved, duplicates int, err error) {
	seen := make(map[string]struct{}, len(questions))
	for i := range questions {
		q := questions[i]
		if q.ID == "" || q.Text == "" {
			logger.ErrorContext(ctx, "generated question missing id or text, skipping",
				"question_id", q.ID)
			continue
		}

		if _, ok := seen[q.Text]; ok {
			duplicates++
			continue
		}
		dup, derr := s.filter.IsDuplicate(ctx, subjectID, q.Text)
		if derr != nil {
			return saved, duplicates, derr
		}
		if dup {
			logger.WarnContext(ctx, "duplicate question detected, skipping",
				"text", truncate(q.Text, 50))
			duplicates++
			continue
		}

		if ierr := s.questions.InsertGenerated(ctx, &q); ierr != nil {
			return saved, duplicates, apperrors.MapDBError(ierr)
		}
		seen[q.Text] = struct{}{}
		saved++
	}
	return saved, duplicates, nil
}

type regenerateParams struct {
	rate       float64
	saved      int
	duplicates int
	kind       model.StepKind
	start      time.Time
}

// regenerate re-issues the same batch with a bumped regenerate counter.
// Progress is deliberately not advanced: the batch is not done.
func (s *GenerationService) regenerate(
	ctx context.Context,
	logger *slog.Logger,
	msg model.JobMessage,
	p regenerateParams,
) error {
	regen := model.JobMessage{
		SubjectID:         msg.SubjectID,
		BatchNumber:       msg.BatchNumber,
		RegenerateAttempt: msg.RegenerateAttempt + 1,
		RunID:             msg.RunID,
	}
	if err := s.publisher.Publish(ctx, &regen); err != nil {
		step := model.Step{Kind: p.kind, Message: msg}
		return s.recover(ctx, logger, step, fmt.Errorf("enqueue regeneration: %w", err))
	}

	logger.WarnContext(ctx, "high duplicate rate, regenerating batch",
		"duplicate_rate", p.rate,
		"attempt", regen.RegenerateAttempt,
		"max_attempts", s.maxRegenerate,
	)
	metrics.EmitBatchOutcome(s.metrics, metrics.BatchMetric{
		Step:       p.kind.String(),
		Result:     metrics.ResultRegenerate,
		Duration:   time.Since(p.start),
		Saved:      p.saved,
		Duplicates: p.duplicates,
	})
	return nil
}

// recover applies the retry contract to a failed step: schedule a delayed
// retry while budget remains, otherwise release the run so the subject is
// not stuck behind a lease, keeping whatever questions were already saved.
func (s *GenerationService) recover(ctx context.Context, logger *slog.Logger, step model.Step, cause error) error {
	msg := step.Message

	if msg.RunID == "" {
		logger.ErrorContext(ctx, "step failed before a run was adopted, dropping message", "err", cause)
		metrics.EmitBatchOutcome(s.metrics, metrics.BatchMetric{
			Step:   step.Kind.String(),
			Result: metrics.ResultError,
			Err:    cause,
		})
		return nil
	}

	if msg.RetryCount < s.maxRetries {
		retry := msg
		retry.RetryCount++
		delay := s.backoff.Delay(msg.RetryCount)

		if err := s.publisher.PublishAfter(ctx, &retry, delay); err != nil {
			logger.ErrorContext(ctx, "failed to schedule retry", "err", err, "cause", cause)
			return fmt.Errorf("schedule retry: %w", err)
		}

		logger.WarnContext(ctx, "step failed, retry scheduled",
			"err", cause,
			"retry", retry.RetryCount,
			"max_retries", s.maxRetries,
			"delay", delay,
		)
		metrics.EmitBatchOutcome(s.metrics, metrics.BatchMetric{
			Step:   step.Kind.String(),
			Result: metrics.ResultRetry,
			Err:    cause,
		})
		return nil
	}

	if err := s.lease.Release(ctx, msg.RunID); err != nil {
		logger.ErrorContext(ctx, "failed to release run after retry exhaustion", "err", err, "cause", cause)
		return fmt.Errorf("release run after retries: %w", err)
	}

	logger.ErrorContext(ctx, "retries exhausted, run released with partial question set", "err", cause)
	metrics.EmitBatchOutcome(s.metrics, metrics.BatchMetric{
		Step:   step.Kind.String(),
		Result: metrics.ResultExhausted,
		Err:    cause,
	})
	metrics.EmitRunDone(s.metrics, true)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
