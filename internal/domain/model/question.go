package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// QuestionKind represents the answer structure of a question.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type QuestionKind string

const (
	// KindSingle is a four-option question with exactly one correct answer.
	KindSingle QuestionKind = "SINGLE"
	// KindMultiple is a four-option question with two or three correct answers.
	KindMultiple QuestionKind = "MULTIPLE"
	// KindBoolean is a two-option true/false question with one correct answer.
	KindBoolean QuestionKind = "BOOLEAN"
)

// UnmarshalText implements encoding.TextUnmarshaler so generator output in any
// casing parses into a QuestionKind.
func (k *QuestionKind) UnmarshalText(text []byte) error {
	v := QuestionKind(strings.ToUpper(strings.TrimSpace(string(text))))
	if v.Valid() {
		*k = v
		return nil
	}
	return fmt.Errorf("invalid QuestionKind: %q", string(text))
}

// Valid returns true if the QuestionKind is valid.
func (k QuestionKind) Valid() bool {
	return k == KindSingle || k == KindMultiple || k == KindBoolean
}

// Question is a persisted quiz question. Questions are created only by the
// pipeline and never updated afterwards.
type Question struct {
	ID        string       `json:"id"         db:"id"`
	SubjectID int64        `json:"subject_id" db:"subject_id"`
	Text      string       `json:"text"       db:"question"`
	Kind      QuestionKind `json:"kind"       db:"type"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	Options   []Option     `json:"options,omitempty"`
}

// Option is a persisted answer option owned by a question.
type Option struct {
	ID         string `json:"id"          db:"id"`
	QuestionID string `json:"question_id" db:"question_id"`
	Text       string `json:"text"        db:"option"`
	Rationale  string `json:"rationale"   db:"reason"`
	IsCorrect  bool   `json:"is_correct"  db:"is_correct"`
}

// Shape validation errors returned by ValidateShape.
var (
	ErrMissingQuestionText = errors.New("question text is required")
	ErrWrongOptionCount    = errors.New("wrong number of options for question kind")
	ErrWrongCorrectCount   = errors.New("wrong number of correct options for question kind")
)

// ValidateShape enforces the per-kind option invariants before persistence:
// BOOLEAN questions carry 2 options with exactly 1 correct, SINGLE carry 4
// options with exactly 1 correct, MULTIPLE carry 4 options with 2-3 correct.
// The database schema does not enforce these.
func (q *Question) ValidateShape() error {
	if strings.TrimSpace(q.Text) == "" {
		return ErrMissingQuestionText
	}
	if !q.Kind.Valid() {
		return fmt.Errorf("invalid QuestionKind: %q", q.Kind)
	}

	wantOptions := 4
	if q.Kind == KindBoolean {
		wantOptions = 2
	}
	if len(q.Options) != wantOptions {
		return fmt.Errorf("%w: kind %s has %d options, want %d",
			ErrWrongOptionCount, q.Kind, len(q.Options), wantOptions)
	}

	correct := 0
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			correct++
		}
	}

	switch q.Kind {
	case KindSingle, KindBoolean:
		if correct != 1 {
			return fmt.Errorf("%w: kind %s has %d correct options, want 1",
				ErrWrongCorrectCount, q.Kind, correct)
		}
	case KindMultiple:
		if correct < 2 || correct > 3 {
			return fmt.Errorf("%w: kind %s has %d correct options, want 2-3",
				ErrWrongCorrectCount, q.Kind, correct)
		}
	}

	return nil
}
