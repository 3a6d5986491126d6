package metrics

import (
	"time"

	obserrors "github.com/target/quiz-pipeline/internal/observability/errors"
	"github.com/target/quiz-pipeline/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess    = "success"
	ResultError      = "error"
	ResultSkipped    = "skipped"
	ResultRetry      = "retry"
	ResultRegenerate = "regenerate"
	ResultExhausted  = "exhausted"
)

// BatchMetric captures one batch-processing outcome for metric emission.
type BatchMetric struct {
	Step       string // fresh, advance, retry, regenerate
	Result     string
	Duration   time.Duration
	Saved      int
	Duplicates int
	Err        error
}

// EmitBatchOutcome emits standardised batch lifecycle metrics.
func EmitBatchOutcome(sink statsd.Sink, in BatchMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"step":   in.Step,
		"result": in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("generation.batch", 1, tags)

	if in.Duration > 0 {
		sink.Timing("generation.batch_duration", in.Duration, CloneTags(tags))
	}
	if in.Saved > 0 {
		sink.Count("generation.questions_saved", int64(in.Saved), CloneTags(tags))
	}
	if in.Duplicates > 0 {
		sink.Count("generation.questions_duplicate", int64(in.Duplicates), CloneTags(tags))
	}
}

// EmitRunDone counts a run reaching DONE, partial or complete.
func EmitRunDone(sink statsd.Sink, partial bool) {
	if sink == nil {
		return
	}
	result := "complete"
	if partial {
		result = "partial"
	}
	sink.Count("generation.run_done", 1, map[string]string{"result": result})
}

// EmitReaperSweep emits metrics for one reaper pass over old runs.
func EmitReaperSweep(sink statsd.Sink, deleted int64, elapsed time.Duration, err error) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	tags := map[string]string{}
	if err != nil {
		result = ResultError
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	tags["result"] = result

	sink.Count("reaper.runs_deleted", deleted, CloneTags(tags))
	sink.Timing("reaper.sweep_duration", elapsed, tags)
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
