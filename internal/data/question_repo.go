package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/target/quiz-pipeline/internal/data/pgxutil"
	"github.com/target/quiz-pipeline/internal/domain/model"
)

// QuestionRepo provides database operations for persisted quiz questions and
// their options.
type QuestionRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewQuestionRepo creates a new QuestionRepo instance with the given database connection and configuration.
func NewQuestionRepo(db *sql.DB, cfg RepoConfig) *QuestionRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &QuestionRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

// InsertGenerated persists a question together with all of its options in one
// transaction. A question is never visible without its options: if any option
// insert fails the whole question is rolled back.
func (r *QuestionRepo) InsertGenerated(ctx context.Context, q *model.Question) error {
	if err := q.ValidateShape(); err != nil {
		return fmt.Errorf("validate question %s: %w", q.ID, err)
	}

	return pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		now := r.timeProvider.Now().UTC()
		if _, err := tx.Exec(ctx, `
			INSERT INTO questions (id, subject_id, text, kind, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, q.ID, q.SubjectID, q.Text, q.Kind, now); err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}

		for _, opt := range q.Options {
			if _, err := tx.Exec(ctx, `
				INSERT INTO question_options (id, question_id, text, reason, is_correct)
				VALUES ($1, $2, $3, $4, $5)
			`, opt.ID, q.ID, opt.Text, opt.Rationale, opt.IsCorrect); err != nil {
				return fmt.Errorf("insert option %s for question %s: %w", opt.ID, q.ID, err)
			}
		}
		return nil
	})
}

// HasQuestions reports whether any questions exist for the subject. Used as
// the idempotence guard before starting a fresh generation.
func (r *QuestionRepo) HasQuestions(ctx context.Context, subjectID int64) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM questions WHERE subject_id = $1)`,
		subjectID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check questions for subject %d: %w", subjectID, err)
	}
	return exists, nil
}

// IsDuplicate reports whether a question with exactly this text is already
// persisted for the subject. Matching is deliberately exact and per-subject:
// once a text is persisted it permanently blocks identical future writes.
func (r *QuestionRepo) IsDuplicate(ctx context.Context, subjectID int64, text string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM questions WHERE subject_id = $1 AND text = $2)`,
		subjectID, text).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check duplicate for subject %d: %w", subjectID, err)
	}
	return exists, nil
}

// ExistingTexts returns the texts of all persisted questions for the subject,
// oldest first. Backs the duplicate filter's cache fill.
func (r *QuestionRepo) ExistingTexts(ctx context.Context, subjectID int64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT text FROM questions
		WHERE subject_id = $1
		ORDER BY created_at, id
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list question texts for subject %d: %w", subjectID, err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan question text: %w", err)
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question texts: %w", err)
	}
	return texts, nil
}

// CountBySubject returns the number of persisted questions for the subject.
func (r *QuestionRepo) CountBySubject(ctx context.Context, subjectID int64) (int64, error) {
	var count int64
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM questions WHERE subject_id = $1`,
		subjectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count questions for subject %d: %w", subjectID, err)
	}
	return count, nil
}

// ListBySubject returns all questions for a subject with their options,
// oldest first.
func (r *QuestionRepo) ListBySubject(ctx context.Context, subjectID int64) ([]model.Question, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, subject_id, text, kind, created_at
		FROM questions
		WHERE subject_id = $1
		ORDER BY created_at, id
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list questions for subject %d: %w", subjectID, err)
	}
	defer rows.Close()

	var questions []model.Question
	byID := map[string]int{}
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.SubjectID, &q.Text, &q.Kind, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		byID[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, nil
	}

	optRows, err := r.DB.QueryContext(ctx, `
		SELECT o.id, o.question_id, o.text, o.reason, o.is_correct
		FROM question_options o
		JOIN questions q ON q.id = o.question_id
		WHERE q.subject_id = $1
		ORDER BY q.created_at, q.id, o.id
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list options for subject %d: %w", subjectID, err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var opt model.Option
		if err := optRows.Scan(&opt.ID, &opt.QuestionID, &opt.Text, &opt.Rationale, &opt.IsCorrect); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		if idx, ok := byID[opt.QuestionID]; ok {
			questions[idx].Options = append(questions[idx].Options, opt)
		}
	}
	if err := optRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options: %w", err)
	}
	return questions, nil
}
