package testutil

import (
	"fmt"

	"github.com/target/quiz-pipeline/internal/domain/model"
)

// QuestionBuilder provides a fluent interface for building Question objects for testing.
type QuestionBuilder struct {
	q *model.Question
}

// NewQuestion creates a new QuestionBuilder with a valid SINGLE question.
func NewQuestion() *QuestionBuilder {
	b := &QuestionBuilder{
		q: &model.Question{
			ID:        "question-test-1",
			SubjectID: 1,
			Text:      "What is the capital of France?",
			Kind:      model.KindSingle,
		},
	}
	for i := 0; i < 4; i++ {
		b.q.Options = append(b.q.Options, model.Option{
			ID:         fmt.Sprintf("option-test-%d", i+1),
			QuestionID: b.q.ID,
			Text:       fmt.Sprintf("Answer %d", i+1),
			Rationale:  "Because.",
			IsCorrect:  i == 0,
		})
	}
	return b
}

// WithID sets the question id and updates option references.
func (b *QuestionBuilder) WithID(id string) *QuestionBuilder {
	b.q.ID = id
	for i := range b.q.Options {
		b.q.Options[i].QuestionID = id
	}
	return b
}

// WithSubjectID sets the subject id.
func (b *QuestionBuilder) WithSubjectID(subjectID int64) *QuestionBuilder {
	b.q.SubjectID = subjectID
	return b
}

// WithText sets the question text.
func (b *QuestionBuilder) WithText(text string) *QuestionBuilder {
	b.q.Text = text
	return b
}

// WithKind sets the question kind without touching the options; pair with
// WithOptions when the kind changes the valid shape.
func (b *QuestionBuilder) WithKind(kind model.QuestionKind) *QuestionBuilder {
	b.q.Kind = kind
	return b
}

// WithOptions replaces the options.
func (b *QuestionBuilder) WithOptions(opts ...model.Option) *QuestionBuilder {
	b.q.Options = opts
	return b
}

// Build returns the built question.
func (b *QuestionBuilder) Build() *model.Question {
	return b.q
}

// BooleanQuestion returns a valid BOOLEAN question for a subject.
func BooleanQuestion(id string, subjectID int64) *model.Question {
	return NewQuestion().
		WithID(id).
		WithSubjectID(subjectID).
		WithKind(model.KindBoolean).
		WithOptions(
			model.Option{ID: id + "-opt-1", QuestionID: id, Text: "True", Rationale: "It is so.", IsCorrect: true},
			model.Option{ID: id + "-opt-2", QuestionID: id, Text: "False", Rationale: "It is not so.", IsCorrect: false},
		).
		Build()
}

// MessageBuilder provides a fluent interface for building JobMessage objects for testing.
type MessageBuilder struct {
	msg *model.JobMessage
}

// NewMessage creates a new MessageBuilder describing a fresh batch-1 request.
func NewMessage() *MessageBuilder {
	return &MessageBuilder{
		msg: &model.JobMessage{
			SubjectID:   1,
			BatchNumber: 1,
		},
	}
}

// WithSubjectID sets the subject id.
func (b *MessageBuilder) WithSubjectID(subjectID int64) *MessageBuilder {
	b.msg.SubjectID = subjectID
	return b
}

// WithBatchNumber sets the batch number.
func (b *MessageBuilder) WithBatchNumber(n int) *MessageBuilder {
	b.msg.BatchNumber = n
	return b
}

// WithRunID sets the generation run id.
func (b *MessageBuilder) WithRunID(id string) *MessageBuilder {
	b.msg.RunID = id
	return b
}

// WithRetryCount sets the retry count.
func (b *MessageBuilder) WithRetryCount(n int) *MessageBuilder {
	b.msg.RetryCount = n
	return b
}

// WithRegenerateAttempt sets the regenerate attempt counter.
func (b *MessageBuilder) WithRegenerateAttempt(n int) *MessageBuilder {
	b.msg.RegenerateAttempt = n
	return b
}

// Build returns the built message.
func (b *MessageBuilder) Build() *model.JobMessage {
	return b.msg
}
