package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/target/quiz-pipeline/internal/core"
	"github.com/target/quiz-pipeline/internal/data/pgxutil"
	"github.com/target/quiz-pipeline/internal/domain/model"
)

// RepoConfig holds configuration options shared by the repositories.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// RunRepo provides database operations for generation runs. The three lease
// operations are each a single conditional statement so concurrent workers can
// never act on stale run state.
type RunRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewRunRepo creates a new RunRepo instance with the given database connection and configuration.
func NewRunRepo(db *sql.DB, cfg RepoConfig) *RunRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &RunRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const runColumns = `
  id,
  subject_id,
  completed_batches,
  total_batches,
  status,
  lock_until,
  created_at,
  updated_at
`

// SQL used by Acquire. The CTE observes any active run and the insert is
// guarded on its absence within the same statement, which is what makes two
// concurrent acquirers for one subject mutually exclusive.
const acquireRunSQL = `
  WITH active AS (
    SELECT 1
    FROM quiz_generations
    WHERE subject_id = $1
      AND status = 'PROCESSING'::quiz_generation_status
      AND lock_until > NOW()
    LIMIT 1
  )
  INSERT INTO quiz_generations (
    id, subject_id, completed_batches, total_batches, status, lock_until, created_at, updated_at
  )
  SELECT
    $2, $1, 0, 0, 'PROCESSING'::quiz_generation_status,
    NOW() + make_interval(secs => $3),
    NOW(), NOW()
  WHERE NOT EXISTS (SELECT 1 FROM active)
  RETURNING ` + runColumns

// Acquire atomically claims the generation lease for a subject. It returns
// nil when another run already holds an unexpired lease; the caller must
// treat that as "someone else owns this subject" and stop.
func (r *RunRepo) Acquire(ctx context.Context, subjectID int64, leaseSeconds int) (*model.GenerationRun, error) {
	if leaseSeconds < 1 {
		return nil, errors.New("lease seconds must be positive")
	}

	id := "generate-" + uuid.NewString()

	row := r.DB.QueryRowContext(ctx, acquireRunSQL, subjectID, id, leaseSeconds)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("acquire generation lease: %w", err)
	}

	return run, nil
}

// RefreshAndAdvance records batch progress and extends the lease in one
// conditional update. Runs that have already transitioned to DONE are left
// untouched, which makes the call idempotent under message redelivery.
func (r *RunRepo) RefreshAndAdvance(ctx context.Context, p core.AdvanceParams) error {
	if p.LeaseSeconds < 1 {
		return errors.New("lease seconds must be positive")
	}

	_, err := r.DB.ExecContext(ctx, `
		UPDATE quiz_generations
		SET completed_batches = $2,
		    total_batches = $3,
		    lock_until = NOW() + make_interval(secs => $4),
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'PROCESSING'::quiz_generation_status
	`, p.RunID, p.CompletedBatches, p.TotalBatches, p.LeaseSeconds)
	if err != nil {
		return fmt.Errorf("advance generation run %s: %w", p.RunID, err)
	}
	return nil
}

// MarkDone transitions a run to DONE and collapses its lease to now, so the
// subject becomes eligible for a future acquire immediately instead of when
// the lease would have expired. A no-op for runs already DONE.
func (r *RunRepo) MarkDone(ctx context.Context, runID string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE quiz_generations
		SET status = 'DONE'::quiz_generation_status,
		    lock_until = NOW(),
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'PROCESSING'::quiz_generation_status
	`, runID)
	if err != nil {
		return fmt.Errorf("mark generation run %s done: %w", runID, err)
	}
	return nil
}

// GetByID returns a run by id, or nil when no such run exists.
func (r *RunRepo) GetByID(ctx context.Context, id string) (*model.GenerationRun, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM quiz_generations WHERE id = $1`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get generation run %s: %w", id, err)
	}
	return run, nil
}

// LatestBySubject returns the most recently created run for a subject, or nil
// when the subject has never had one.
func (r *RunRepo) LatestBySubject(ctx context.Context, subjectID int64) (*model.GenerationRun, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM quiz_generations
		WHERE subject_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, subjectID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest generation run for subject %d: %w", subjectID, err)
	}
	return run, nil
}

// Advisory lock namespace for reaper operations. Major key 2100 is reserved
// for quiz-pipeline run cleanup.
const (
	advisoryLockReaperMajor   = 2100
	advisoryLockReaperOldRuns = 1
)

// DeleteOldRuns deletes DONE runs older than maxAge, up to batchSize rows per
// call to keep sweeps short. An advisory lock prevents concurrent reaper
// instances from stepping on each other. Returns the number of rows removed.
func (r *RunRepo) DeleteOldRuns(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, func(tx *sql.Tx) error {
		var locked bool
		if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)",
			advisoryLockReaperMajor, advisoryLockReaperOldRuns).Scan(&locked); err != nil {
			return fmt.Errorf("acquire advisory lock: %w", err)
		}
		if !locked {
			return nil
		}

		cutoff := r.timeProvider.Now().Add(-maxAge)

		res, err := tx.ExecContext(ctx, `
			DELETE FROM quiz_generations
			WHERE id IN (
				SELECT id FROM quiz_generations
				WHERE status = 'DONE'::quiz_generation_status
				  AND updated_at < $1
				ORDER BY updated_at
				LIMIT $2
			)
		`, cutoff.UTC(), batchSize)
		if err != nil {
			return fmt.Errorf("delete old generation runs: %w", err)
		}

		rowsAffected, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

type runRowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner runRowScanner) (*model.GenerationRun, error) {
	run := &model.GenerationRun{}
	if err := scanner.Scan(
		&run.ID,
		&run.SubjectID,
		&run.CompletedBatches,
		&run.TotalBatches,
		&run.Status,
		&run.LeaseExpiresAt,
		&run.CreatedAt,
		&run.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return run, nil
}
