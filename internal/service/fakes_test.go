package service

import (
	"context"
	"fmt"
	"time"

	"github.com/target/quiz-pipeline/internal/core"
	"github.com/target/quiz-pipeline/internal/domain/model"
)

type fakeRunRepo struct {
	acquireRun   *model.GenerationRun
	acquireErr   error
	acquireCalls int
	leaseSeconds int

	advanced   []core.AdvanceParams
	advanceErr error

	done    []string
	doneErr error

	latest *model.GenerationRun

	// DeleteOldRuns returns deleteBatches entries in order, then zero.
	deleteBatches []int64
	deleteErr     error
	deleteCalls   int
	deleteMaxAge  time.Duration
	deleteLimit   int
}

func (f *fakeRunRepo) Acquire(_ context.Context, subjectID int64, leaseSeconds int) (*model.GenerationRun, error) {
	f.acquireCalls++
	f.leaseSeconds = leaseSeconds
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	if f.acquireRun == nil {
		return nil, nil
	}
	run := *f.acquireRun
	run.SubjectID = subjectID
	return &run, nil
}

func (f *fakeRunRepo) RefreshAndAdvance(_ context.Context, params core.AdvanceParams) error {
	if f.advanceErr != nil {
		return f.advanceErr
	}
	f.advanced = append(f.advanced, params)
	return nil
}

func (f *fakeRunRepo) MarkDone(_ context.Context, runID string) error {
	if f.doneErr != nil {
		return f.doneErr
	}
	f.done = append(f.done, runID)
	return nil
}

func (f *fakeRunRepo) GetByID(_ context.Context, _ string) (*model.GenerationRun, error) {
	return nil, nil
}

func (f *fakeRunRepo) LatestBySubject(_ context.Context, _ int64) (*model.GenerationRun, error) {
	return f.latest, nil
}

func (f *fakeRunRepo) DeleteOldRuns(_ context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	f.deleteCalls++
	f.deleteMaxAge = maxAge
	f.deleteLimit = batchSize
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	if len(f.deleteBatches) == 0 {
		return 0, nil
	}
	count := f.deleteBatches[0]
	f.deleteBatches = f.deleteBatches[1:]
	return count, nil
}

type fakeQuestionRepo struct {
	has    bool
	hasErr error

	existing      []string
	existingErr   error
	existingCalls int

	inserted  []model.Question
	insertErr error
}

func (f *fakeQuestionRepo) InsertGenerated(_ context.Context, q *model.Question) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, *q)
	return nil
}

func (f *fakeQuestionRepo) HasQuestions(_ context.Context, _ int64) (bool, error) {
	return f.has, f.hasErr
}

func (f *fakeQuestionRepo) IsDuplicate(_ context.Context, _ int64, text string) (bool, error) {
	for _, existing := range f.existing {
		if existing == text {
			return true, nil
		}
	}
	return false, nil
}

// ExistingTexts reflects only the pre-existing texts, not questions inserted
// during the test. That mirrors the real cache-backed read path, which lags
// writes until invalidation.
func (f *fakeQuestionRepo) ExistingTexts(_ context.Context, _ int64) ([]string, error) {
	f.existingCalls++
	if f.existingErr != nil {
		return nil, f.existingErr
	}
	return f.existing, nil
}

func (f *fakeQuestionRepo) CountBySubject(_ context.Context, _ int64) (int64, error) {
	return int64(len(f.inserted)), nil
}

func (f *fakeQuestionRepo) ListBySubject(_ context.Context, _ int64) ([]model.Question, error) {
	return f.inserted, nil
}

type delayedMessage struct {
	msg   model.JobMessage
	delay time.Duration
}

type fakePublisher struct {
	published []model.JobMessage
	delayed   []delayedMessage

	publishErr      error
	publishAfterErr error
}

func (f *fakePublisher) Publish(_ context.Context, msg *model.JobMessage) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, *msg)
	return nil
}

func (f *fakePublisher) PublishAfter(_ context.Context, msg *model.JobMessage, delay time.Duration) error {
	if f.publishAfterErr != nil {
		return f.publishAfterErr
	}
	f.delayed = append(f.delayed, delayedMessage{msg: *msg, delay: delay})
	return nil
}

type fakeGenerator struct {
	questions []model.Question
	err       error
	requests  []core.GenerateBatchRequest

	// generate, when set, overrides the static questions/err pair.
	generate func(req core.GenerateBatchRequest) ([]model.Question, error)
}

func (f *fakeGenerator) GenerateBatch(_ context.Context, req core.GenerateBatchRequest) ([]model.Question, error) {
	f.requests = append(f.requests, req)
	if f.generate != nil {
		return f.generate(req)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.questions, nil
}

type fakeDocumentSource struct {
	document string
	err      error
	calls    int
}

func (f *fakeDocumentSource) FetchDocument(_ context.Context, _ int64) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.document, nil
}

type fakeCache struct {
	store map[string][]byte

	getErr    error
	setErr    error
	deleteErr error

	getCalls    int
	setCalls    int
	deleteCalls int
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: make(map[string][]byte)}
}

func (f *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.store[key] = value
	return nil
}

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	value, ok := f.store[key]
	if !ok {
		return nil, nil
	}
	return value, nil
}

func (f *fakeCache) Delete(_ context.Context, key string) (bool, error) {
	f.deleteCalls++
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	_, ok := f.store[key]
	delete(f.store, key)
	return ok, nil
}

// uniqueQuestions builds n well-formed single-choice questions with distinct
// texts, offset so successive batches never collide.
func uniqueQuestions(n, offset int) []model.Question {
	questions := make([]model.Question, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("question-fake-%d", offset+i)
		q := model.Question{
			ID:        id,
			SubjectID: 42,
			Text:      fmt.Sprintf("What does concept number %d describe?", offset+i),
			Kind:      model.KindSingle,
			Options: []model.Option{
				{ID: id + "-a", QuestionID: id, Text: "first", Rationale: "correct", IsCorrect: true},
				{ID: id + "-b", QuestionID: id, Text: "second", Rationale: "wrong", IsCorrect: false},
				{ID: id + "-c", QuestionID: id, Text: "third", Rationale: "wrong", IsCorrect: false},
				{ID: id + "-d", QuestionID: id, Text: "fourth", Rationale: "wrong", IsCorrect: false},
			},
		}
		questions = append(questions, q)
	}
	return questions
}
