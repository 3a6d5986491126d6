// Package model defines the core data types shared across the quiz generation pipeline.
package model

import "time"

// RunStatus represents the lifecycle status of a generation run.
type RunStatus string

const (
	// RunStatusProcessing indicates a run currently holds its subject's lease.
	RunStatusProcessing RunStatus = "PROCESSING"
	// RunStatusDone indicates a run has finished (fully or with a partial
	// question set after exhausted retries) and its lease is released.
	RunStatusDone RunStatus = "DONE"
)

// Valid returns true if the RunStatus is valid.
func (s RunStatus) Valid() bool {
	return s == RunStatusProcessing || s == RunStatusDone
}

// GenerationRun is the persistent record of one generation process for a
// subject. At most one PROCESSING run with an unexpired lease may exist per
// subject; the conditional-insert acquire enforces that, so a run whose lease
// has lapsed is simply no longer active rather than explicitly failed.
type GenerationRun struct {
	ID               string    `json:"id"                db:"id"`
	SubjectID        int64     `json:"subject_id"        db:"subject_id"`
	CompletedBatches int       `json:"completed_batches" db:"completed_batches"`
	TotalBatches     int       `json:"total_batches"     db:"total_batches"`
	Status           RunStatus `json:"status"            db:"status"`
	LeaseExpiresAt   time.Time `json:"lease_expires_at"  db:"lock_until"`
	CreatedAt        time.Time `json:"created_at"        db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"        db:"updated_at"`
}

// Active reports whether the run still holds its subject's lease at the given
// instant.
func (r *GenerationRun) Active(now time.Time) bool {
	return r != nil && r.Status == RunStatusProcessing && r.LeaseExpiresAt.After(now)
}
