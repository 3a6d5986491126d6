package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/quiz-pipeline/config"
	"github.com/target/quiz-pipeline/internal/core"
	"github.com/target/quiz-pipeline/internal/domain/model"
)

type fakeCompletionClient struct {
	content string
	err     error

	lastRequest openai.ChatCompletionRequest
}

func (f *fakeCompletionClient) CreateChatCompletion(
	_ context.Context,
	req openai.ChatCompletionRequest,
) (openai.ChatCompletionResponse, error) {
	f.lastRequest = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func singleQuestionJSON(text string) string {
	return fmt.Sprintf(`{
		"type": "single",
		"question": %q,
		"options": [
			{"option": "A", "isCorrect": true, "explanation": "right"},
			{"option": "B", "isCorrect": false, "explanation": ""},
			{"option": "C", "isCorrect": false, "explanation": ""},
			{"option": "D", "isCorrect": false, "explanation": ""}
		]
	}`, text)
}

func quizJSON(questions ...string) string {
	return `{"questions": [` + strings.Join(questions, ",") + `]}`
}

func newTestGenerator(client CompletionClient) *Generator {
	return NewGenerator(GeneratorOptions{
		Config: config.LLMConfig{Model: "gpt-4o", Temperature: 0.7},
		Client: client,
	})
}

func TestGenerator_GenerateBatch(t *testing.T) {
	req := core.GenerateBatchRequest{
		SubjectID:     42,
		Document:      "Some material about Go.",
		BatchNumber:   2,
		QuestionCount: 2,
		AvoidTexts:    []string{"What is a goroutine used for in Go?"},
	}

	t.Run("normalizes a well-formed response", func(t *testing.T) {
		client := &fakeCompletionClient{content: quizJSON(
			singleQuestionJSON("What does the go keyword do?"),
			singleQuestionJSON("What is a channel used for?"),
		)}

		questions, err := newTestGenerator(client).GenerateBatch(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, questions, 2)

		q := questions[0]
		assert.True(t, strings.HasPrefix(q.ID, "question-"))
		assert.Equal(t, int64(42), q.SubjectID)
		assert.Equal(t, model.KindSingle, q.Kind)
		require.Len(t, q.Options, 4)
		assert.True(t, strings.HasPrefix(q.Options[0].ID, "option-"))
		assert.Equal(t, q.ID, q.Options[0].QuestionID)
		assert.Equal(t, "right", q.Options[0].Rationale)

		// Ids are fresh per question, never reused.
		assert.NotEqual(t, questions[0].ID, questions[1].ID)
	})

	t.Run("request carries prompt with avoid list", func(t *testing.T) {
		client := &fakeCompletionClient{content: quizJSON(
			singleQuestionJSON("What does the go keyword do?"),
			singleQuestionJSON("What is a channel used for?"),
		)}

		_, err := newTestGenerator(client).GenerateBatch(context.Background(), req)
		require.NoError(t, err)

		require.Len(t, client.lastRequest.Messages, 2)
		assert.Equal(t, "gpt-4o", client.lastRequest.Model)
		require.NotNil(t, client.lastRequest.ResponseFormat)
		assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, client.lastRequest.ResponseFormat.Type)

		user := client.lastRequest.Messages[1].Content
		assert.Contains(t, user, "Create EXACTLY 2 UNIQUE questions")
		assert.Contains(t, user, "(Batch 2)")
		assert.Contains(t, user, "Some material about Go.")
		assert.Contains(t, user, "AVOID THESE QUESTIONS")
		assert.Contains(t, user, "What is a goroutine used for in Go?")
	})

	t.Run("strips markdown code fences", func(t *testing.T) {
		client := &fakeCompletionClient{content: "```json\n" + quizJSON(
			singleQuestionJSON("What does the go keyword do?"),
			singleQuestionJSON("What is a channel used for?"),
		) + "\n```"}

		questions, err := newTestGenerator(client).GenerateBatch(context.Background(), req)
		require.NoError(t, err)
		assert.Len(t, questions, 2)
	})

	t.Run("over-production is truncated", func(t *testing.T) {
		client := &fakeCompletionClient{content: quizJSON(
			singleQuestionJSON("Question number one here?"),
			singleQuestionJSON("Question number two here?"),
			singleQuestionJSON("Question number three here?"),
		)}

		questions, err := newTestGenerator(client).GenerateBatch(context.Background(), req)
		require.NoError(t, err)
		assert.Len(t, questions, 2)
	})

	t.Run("under-production fails the batch", func(t *testing.T) {
		client := &fakeCompletionClient{content: quizJSON(
			singleQuestionJSON("Only one question came back?"),
		)}

		_, err := newTestGenerator(client).GenerateBatch(context.Background(), req)
		require.ErrorIs(t, err, ErrShortBatch)
	})

	t.Run("invalid shape fails the batch", func(t *testing.T) {
		bad := `{
			"type": "single",
			"question": "A question with just two options?",
			"options": [
				{"option": "A", "isCorrect": true},
				{"option": "B", "isCorrect": false}
			]
		}`
		client := &fakeCompletionClient{content: quizJSON(
			bad,
			singleQuestionJSON("What is a channel used for?"),
		)}

		_, err := newTestGenerator(client).GenerateBatch(context.Background(), req)
		require.ErrorIs(t, err, model.ErrWrongOptionCount)
	})

	t.Run("missing type defaults to single", func(t *testing.T) {
		var q map[string]any
		require.NoError(t, json.Unmarshal([]byte(singleQuestionJSON("What does the go keyword do?")), &q))
		delete(q, "type")
		raw, err := json.Marshal(map[string]any{"questions": []any{q, q}})
		require.NoError(t, err)

		client := &fakeCompletionClient{content: string(raw)}
		questions, err := newTestGenerator(client).GenerateBatch(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, model.KindSingle, questions[0].Kind)
	})

	t.Run("non-JSON response is an error", func(t *testing.T) {
		client := &fakeCompletionClient{content: "I'm sorry, I cannot do that."}
		_, err := newTestGenerator(client).GenerateBatch(context.Background(), req)
		require.Error(t, err)
	})
}
