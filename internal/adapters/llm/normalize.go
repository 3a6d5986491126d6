package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/target/quiz-pipeline/internal/core"
	"github.com/target/quiz-pipeline/internal/domain/model"
)

// ErrShortBatch indicates the model produced fewer questions than requested.
// The batch is unusable and must be retried whole.
var ErrShortBatch = errors.New("generation returned fewer questions than requested")

const minQuestionTextLen = 10

// Wire shapes of the model's JSON response.
type wireOption struct {
	Option      string `json:"option"`
	Explanation string `json:"explanation"`
	IsCorrect   bool   `json:"isCorrect"`
}

type wireQuestion struct {
	Type     string       `json:"type"`
	Question string       `json:"question"`
	Options  []wireOption `json:"options"`
}

type wireQuiz struct {
	Questions []wireQuestion `json:"questions"`
}

// normalizeResponse parses a raw completion into validated domain questions.
// Over-production is truncated to the requested count; under-production fails
// the batch. Every question gets a fresh id here, never from the model.
func (g *Generator) normalizeResponse(ctx context.Context, raw string, req core.GenerateBatchRequest) ([]model.Question, error) {
	cleaned := stripCodeFences(raw)

	var quiz wireQuiz
	if err := json.Unmarshal([]byte(cleaned), &quiz); err != nil {
		return nil, fmt.Errorf("parse generation response: %w", err)
	}
	if len(quiz.Questions) == 0 {
		return nil, errors.New("generation response has no questions array")
	}

	if len(quiz.Questions) > req.QuestionCount {
		g.logger.WarnContext(ctx, "generation over-produced, trimming excess",
			"subject_id", req.SubjectID,
			"got", len(quiz.Questions),
			"want", req.QuestionCount,
		)
		quiz.Questions = quiz.Questions[:req.QuestionCount]
	}
	if len(quiz.Questions) < req.QuestionCount {
		return nil, fmt.Errorf("%w: got %d, want %d",
			ErrShortBatch, len(quiz.Questions), req.QuestionCount)
	}

	questions := make([]model.Question, 0, len(quiz.Questions))
	for i, wq := range quiz.Questions {
		q, err := normalizeQuestion(wq, req.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func normalizeQuestion(wq wireQuestion, subjectID int64) (model.Question, error) {
	kind := model.KindSingle
	if wq.Type != "" {
		if err := kind.UnmarshalText([]byte(wq.Type)); err != nil {
			return model.Question{}, err
		}
	}

	if utf8.RuneCountInString(strings.TrimSpace(wq.Question)) < minQuestionTextLen {
		return model.Question{}, fmt.Errorf("question text too short: %q", wq.Question)
	}

	q := model.Question{
		ID:        "question-" + uuid.NewString(),
		SubjectID: subjectID,
		Text:      wq.Question,
		Kind:      kind,
	}
	for _, wo := range wq.Options {
		if wo.Option == "" {
			return model.Question{}, errors.New("option text is required")
		}
		q.Options = append(q.Options, model.Option{
			ID:         "option-" + uuid.NewString(),
			QuestionID: q.ID,
			Text:       wo.Option,
			Rationale:  wo.Explanation,
			IsCorrect:  wo.IsCorrect,
		})
	}

	if err := q.ValidateShape(); err != nil {
		return model.Question{}, err
	}
	return q, nil
}

// stripCodeFences removes a markdown code fence wrapper some models emit
// despite the JSON-only instruction.
func stripCodeFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
	} else {
		return cleaned
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}
