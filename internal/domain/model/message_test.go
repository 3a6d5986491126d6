package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJobMessage(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantKind StepKind
		wantErr  error
	}{
		{
			name:     "fresh trigger with only a subject",
			payload:  `{"subjectId": 42}`,
			wantKind: StepFresh,
		},
		{
			name:     "explicit fresh counters",
			payload:  `{"subjectId": 42, "batchNumber": 1, "retryCount": 0, "regenerateAttempt": 0}`,
			wantKind: StepFresh,
		},
		{
			name:     "advance to batch two",
			payload:  `{"subjectId": 42, "batchNumber": 2, "generationId": "generate-abc"}`,
			wantKind: StepAdvance,
		},
		{
			name:     "retry of batch one",
			payload:  `{"subjectId": 42, "batchNumber": 1, "retryCount": 2, "generationId": "generate-abc"}`,
			wantKind: StepRetry,
		},
		{
			name:     "retry wins over regenerate counter",
			payload:  `{"subjectId": 42, "batchNumber": 3, "retryCount": 1, "regenerateAttempt": 1, "generationId": "generate-abc"}`,
			wantKind: StepRetry,
		},
		{
			name:     "regenerate batch one",
			payload:  `{"subjectId": 42, "batchNumber": 1, "regenerateAttempt": 1, "generationId": "generate-abc"}`,
			wantKind: StepRegenerate,
		},
		{
			name:    "advance without run id is malformed",
			payload: `{"subjectId": 42, "batchNumber": 2}`,
			wantErr: ErrMissingRunID,
		},
		{
			name:    "retry without run id is malformed",
			payload: `{"subjectId": 42, "retryCount": 1}`,
			wantErr: ErrMissingRunID,
		},
		{
			name:    "missing subject",
			payload: `{"batchNumber": 1}`,
			wantErr: ErrMissingSubject,
		},
		{
			name:    "negative counters",
			payload: `{"subjectId": 42, "retryCount": -1}`,
			wantErr: ErrInvalidCounts,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step, err := DecodeJobMessage([]byte(tt.payload))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, step.Kind)
		})
	}
}

func TestDecodeJobMessageInvalidJSON(t *testing.T) {
	_, err := DecodeJobMessage([]byte("{not json"))
	require.Error(t, err)
}

func TestJobMessageRoundTrip(t *testing.T) {
	msg := JobMessage{SubjectID: 7, BatchNumber: 3, RetryCount: 1, RegenerateAttempt: 1, RunID: "generate-xyz"}
	payload, err := msg.Encode()
	require.NoError(t, err)

	step, err := DecodeJobMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, msg, step.Message)
}

func TestGenerationRunActive(t *testing.T) {
	now := time.Now()
	run := &GenerationRun{Status: RunStatusProcessing, LeaseExpiresAt: now.Add(time.Minute)}
	assert.True(t, run.Active(now))

	run.LeaseExpiresAt = now.Add(-time.Second)
	assert.False(t, run.Active(now))

	run.LeaseExpiresAt = now.Add(time.Minute)
	run.Status = RunStatusDone
	assert.False(t, run.Active(now))

	var nilRun *GenerationRun
	assert.False(t, nilRun.Active(now))
}
