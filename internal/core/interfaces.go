// Package core defines the ports between the service layer and its
// collaborators: persistence, cache, queue transport, document source, and
// the question generator. Services depend on these interfaces, not on
// concrete implementations.
package core

import (
	"context"
	"time"

	"github.com/target/quiz-pipeline/internal/domain/model"
)

// GenerationRunRepository defines the interface for generation run (lease)
// data operations.
type GenerationRunRepository interface {
	// Acquire atomically claims the generation lease for a subject. Returns
	// nil when another unexpired PROCESSING run already owns the subject.
	Acquire(ctx context.Context, subjectID int64, leaseSeconds int) (*model.GenerationRun, error)

	// RefreshAndAdvance records batch progress and extends the lease.
	RefreshAndAdvance(ctx context.Context, params AdvanceParams) error

	// MarkDone transitions a run to DONE and releases its lease.
	MarkDone(ctx context.Context, runID string) error

	GetByID(ctx context.Context, id string) (*model.GenerationRun, error)
	LatestBySubject(ctx context.Context, subjectID int64) (*model.GenerationRun, error)

	// DeleteOldRuns removes DONE runs older than maxAge, at most batchSize
	// per call. Returns the number of rows removed.
	DeleteOldRuns(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

// AdvanceParams groups parameters for RefreshAndAdvance to keep param count ≤3.
type AdvanceParams struct {
	RunID            string
	CompletedBatches int
	TotalBatches     int
	LeaseSeconds     int
}

// QuestionRepository defines the interface for question data operations.
type QuestionRepository interface {
	// InsertGenerated persists a question with all its options transactionally.
	InsertGenerated(ctx context.Context, q *model.Question) error

	// HasQuestions reports whether the subject already has persisted questions.
	HasQuestions(ctx context.Context, subjectID int64) (bool, error)

	// IsDuplicate reports whether this exact text is already persisted for the subject.
	IsDuplicate(ctx context.Context, subjectID int64, text string) (bool, error)

	// ExistingTexts returns all persisted question texts for the subject, oldest first.
	ExistingTexts(ctx context.Context, subjectID int64) ([]string, error)

	CountBySubject(ctx context.Context, subjectID int64) (int64, error)
	ListBySubject(ctx context.Context, subjectID int64) ([]model.Question, error)
}

// QueuePublisher defines the interface for enqueuing generation step messages.
type QueuePublisher interface {
	// Publish enqueues a message for immediate delivery.
	Publish(ctx context.Context, msg *model.JobMessage) error

	// PublishAfter enqueues a message after the given delay has elapsed.
	// The delay is best-effort: a process crash before it fires loses the
	// message, and the lease expiry is what recovers the subject.
	PublishAfter(ctx context.Context, msg *model.JobMessage, delay time.Duration) error
}

// GenerateBatchRequest groups parameters for QuestionGenerator.GenerateBatch.
type GenerateBatchRequest struct {
	SubjectID     int64
	Document      string
	BatchNumber   int
	QuestionCount int

	// AvoidTexts lists already-persisted question texts the generator should
	// steer away from. Advisory only; the duplicate filter remains the gate.
	AvoidTexts []string
}

// QuestionGenerator defines the interface for producing a batch of candidate
// questions from a source document.
type QuestionGenerator interface {
	GenerateBatch(ctx context.Context, req GenerateBatchRequest) ([]model.Question, error)
}

// DocumentSource defines the interface for fetching the source document a
// subject's questions are generated from.
type DocumentSource interface {
	FetchDocument(ctx context.Context, subjectID int64) (string, error)
}
