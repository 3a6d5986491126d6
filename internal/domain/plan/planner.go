// Package plan sizes a generation: how many questions a document should yield
// and how they are split into fixed-size batches.
package plan

import "strings"

// Tiers maps document word counts to question totals. Documents of at most
// SmallMaxWords words yield SmallQuestions questions, of at most
// MediumMaxWords yield MediumQuestions, and longer documents yield
// LargeQuestions. The cut points are policy, not domain law.
type Tiers struct {
	SmallMaxWords   int
	MediumMaxWords  int
	SmallQuestions  int
	MediumQuestions int
	LargeQuestions  int
}

// DefaultTiers returns the tiers the pipeline shipped with.
func DefaultTiers() Tiers {
	return Tiers{
		SmallMaxWords:   500,
		MediumMaxWords:  750,
		SmallQuestions:  10,
		MediumQuestions: 15,
		LargeQuestions:  20,
	}
}

// Batch is one unit of generation work within a plan.
type Batch struct {
	BatchNumber   int
	QuestionCount int
}

// Plan is the full batch layout for a document. The question counts of all
// batches sum to TotalQuestions exactly; every batch requests BatchSize
// questions except possibly the last, which absorbs the remainder.
type Plan struct {
	TotalQuestions int
	BatchSize      int
	Batches        []Batch
}

// BatchCount returns the number of batches in the plan.
func (p Plan) BatchCount() int {
	return len(p.Batches)
}

// Batch returns the 1-based batch with the given number, or false when the
// number is out of range.
func (p Plan) Batch(number int) (Batch, bool) {
	if number < 1 || number > len(p.Batches) {
		return Batch{}, false
	}
	return p.Batches[number-1], true
}

// Planner computes batch plans. It is stateless and deterministic: the same
// document always produces the same plan, which is why plans are recomputed
// per message instead of persisted.
type Planner struct {
	tiers     Tiers
	batchSize int
}

// NewPlanner constructs a Planner. Non-positive batch sizes fall back to 5,
// zero-valued tiers fall back to the defaults.
func NewPlanner(tiers Tiers, batchSize int) *Planner {
	if batchSize <= 0 {
		batchSize = 5
	}
	if tiers == (Tiers{}) {
		tiers = DefaultTiers()
	}
	return &Planner{tiers: tiers, batchSize: batchSize}
}

// Plan maps a document to its total question count and batch layout.
func (p *Planner) Plan(document string) Plan {
	total := p.questionCount(document)

	batchCount := (total + p.batchSize - 1) / p.batchSize
	batches := make([]Batch, 0, batchCount)
	for i := range batchCount {
		remaining := total - i*p.batchSize
		count := p.batchSize
		if remaining < count {
			count = remaining
		}
		batches = append(batches, Batch{BatchNumber: i + 1, QuestionCount: count})
	}

	return Plan{
		TotalQuestions: total,
		BatchSize:      p.batchSize,
		Batches:        batches,
	}
}

func (p *Planner) questionCount(document string) int {
	words := len(strings.Fields(document))
	switch {
	case words <= p.tiers.SmallMaxWords:
		return p.tiers.SmallQuestions
	case words <= p.tiers.MediumMaxWords:
		return p.tiers.MediumQuestions
	default:
		return p.tiers.LargeQuestions
	}
}
