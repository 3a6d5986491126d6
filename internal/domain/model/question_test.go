package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func options(correct ...bool) []Option {
	opts := make([]Option, len(correct))
	for i, c := range correct {
		opts[i] = Option{Text: "option", Rationale: "because", IsCorrect: c}
	}
	return opts
}

func TestValidateShape(t *testing.T) {
	tests := []struct {
		name    string
		q       Question
		wantErr error
	}{
		{
			name: "single with one correct",
			q:    Question{Text: "What is the capital of France?", Kind: KindSingle, Options: options(true, false, false, false)},
		},
		{
			name: "multiple with two correct",
			q:    Question{Text: "Which are prime?", Kind: KindMultiple, Options: options(true, true, false, false)},
		},
		{
			name: "multiple with three correct",
			q:    Question{Text: "Which are prime?", Kind: KindMultiple, Options: options(true, true, true, false)},
		},
		{
			name: "boolean with one correct",
			q:    Question{Text: "The sky is blue.", Kind: KindBoolean, Options: options(true, false)},
		},
		{
			name:    "single with two correct",
			q:       Question{Text: "Pick one.", Kind: KindSingle, Options: options(true, true, false, false)},
			wantErr: ErrWrongCorrectCount,
		},
		{
			name:    "multiple with one correct",
			q:       Question{Text: "Pick several.", Kind: KindMultiple, Options: options(true, false, false, false)},
			wantErr: ErrWrongCorrectCount,
		},
		{
			name:    "multiple with four correct",
			q:       Question{Text: "Pick several.", Kind: KindMultiple, Options: options(true, true, true, true)},
			wantErr: ErrWrongCorrectCount,
		},
		{
			name:    "boolean with four options",
			q:       Question{Text: "True or false?", Kind: KindBoolean, Options: options(true, false, false, false)},
			wantErr: ErrWrongOptionCount,
		},
		{
			name:    "single with two options",
			q:       Question{Text: "Pick one.", Kind: KindSingle, Options: options(true, false)},
			wantErr: ErrWrongOptionCount,
		},
		{
			name:    "missing text",
			q:       Question{Text: "   ", Kind: KindSingle, Options: options(true, false, false, false)},
			wantErr: ErrMissingQuestionText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.ValidateShape()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestQuestionKindUnmarshalText(t *testing.T) {
	var k QuestionKind
	require.NoError(t, k.UnmarshalText([]byte("single")))
	assert.Equal(t, KindSingle, k)

	require.NoError(t, k.UnmarshalText([]byte(" Boolean ")))
	assert.Equal(t, KindBoolean, k)

	assert.Error(t, k.UnmarshalText([]byte("essay")))
}
