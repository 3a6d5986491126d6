package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// JobMessage is the unit of work passed through the generation queue. Besides
// the GenerationRun row it is the only state threaded across asynchronous
// hops; everything else is recomputed per message.
type JobMessage struct {
	SubjectID         int64  `json:"subjectId"`
	BatchNumber       int    `json:"batchNumber,omitempty"`
	RetryCount        int    `json:"retryCount,omitempty"`
	RegenerateAttempt int    `json:"regenerateAttempt,omitempty"`
	RunID             string `json:"generationId,omitempty"`
}

// StepKind tags the pipeline step a decoded message represents. The state
// machine is implicit in the message fields; DecodeJobMessage makes it an
// explicit variant so handlers can dispatch exhaustively.
type StepKind int

const (
	// StepFresh is the first message of a generation: batch 1, no retries, no
	// regeneration, no run adopted yet.
	StepFresh StepKind = iota
	// StepAdvance continues an in-flight generation with the next batch.
	StepAdvance
	// StepRetry re-runs a failed batch.
	StepRetry
	// StepRegenerate re-runs a batch whose output was mostly duplicates.
	StepRegenerate
)

// String returns the step name for logging.
func (k StepKind) String() string {
	switch k {
	case StepFresh:
		return "fresh"
	case StepAdvance:
		return "advance"
	case StepRetry:
		return "retry"
	case StepRegenerate:
		return "regenerate"
	default:
		return "unknown"
	}
}

// Step is a validated, tagged view of a JobMessage.
type Step struct {
	Kind    StepKind
	Message JobMessage
}

// Message decoding errors.
var (
	ErrMissingSubject = errors.New("message is missing subjectId")
	ErrMissingRunID   = errors.New("non-fresh message is missing generation run id")
	ErrInvalidCounts  = errors.New("message has negative batch or attempt counters")
)

// DecodeJobMessage parses a raw queue payload and classifies it into a Step.
//
// A fresh step is exactly batch 1 with zero retry and regenerate counters. Any
// other message must carry the run id adopted at lease acquisition; without it
// progress cannot be recorded safely, so such messages are malformed and the
// caller must drop them.
func DecodeJobMessage(payload []byte) (Step, error) {
	var msg JobMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Step{}, fmt.Errorf("decode job message: %w", err)
	}

	if msg.BatchNumber == 0 {
		msg.BatchNumber = 1
	}

	if msg.SubjectID <= 0 {
		return Step{}, ErrMissingSubject
	}
	if msg.BatchNumber < 1 || msg.RetryCount < 0 || msg.RegenerateAttempt < 0 {
		return Step{}, ErrInvalidCounts
	}

	step := Step{Message: msg}
	switch {
	case msg.BatchNumber == 1 && msg.RetryCount == 0 && msg.RegenerateAttempt == 0:
		step.Kind = StepFresh
	case msg.RetryCount > 0:
		step.Kind = StepRetry
	case msg.RegenerateAttempt > 0:
		step.Kind = StepRegenerate
	default:
		step.Kind = StepAdvance
	}

	if step.Kind != StepFresh && msg.RunID == "" {
		return Step{}, ErrMissingRunID
	}

	return step, nil
}

// Encode serialises the message for the queue.
func (m JobMessage) Encode() ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode job message: %w", err)
	}
	return payload, nil
}
