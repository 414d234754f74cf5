package cron

import (
	"context"
	"time"
)

type JobType string

const (
	// JobTypeRecurring at most one record per name, rescheduled after every run
	JobTypeRecurring JobType = "recurring"
	// JobTypeOnce removed after it ran
	JobTypeOnce JobType = "once"
)

// JobRecord persisted state of a queued job
type JobRecord struct {
	ID             string        `bson:"_id" json:"id"`
	Name           string        `bson:"name" json:"name"`
	Type           JobType       `bson:"type" json:"type"`
	Interval       time.Duration `bson:"interval" json:"interval"`
	NextRunAt      *time.Time    `bson:"next_run_at" json:"nextRunAt,omitempty"`
	LockedAt       *time.Time    `bson:"locked_at" json:"lockedAt,omitempty"`
	LastRunAt      *time.Time    `bson:"last_run_at" json:"lastRunAt,omitempty"`
	LastFinishedAt *time.Time    `bson:"last_finished_at" json:"lastFinishedAt,omitempty"`
	FailedAt       *time.Time    `bson:"failed_at" json:"failedAt,omitempty"`
	FailReason     string        `bson:"fail_reason" json:"failReason,omitempty"`
	FailCount      int           `bson:"fail_count" json:"failCount"`
	CreatedAt      time.Time     `bson:"created_at" json:"createdAt"`
}

// Running a claimed job that has not reported back yet
func (j *JobRecord) Running() bool {
	if j.LockedAt == nil {
		return false
	}
	return j.LastFinishedAt == nil || j.LastFinishedAt.Before(*j.LockedAt)
}

// Scheduled waiting for its next run
func (j *JobRecord) Scheduled() bool {
	return j.NextRunAt != nil && j.LockedAt == nil
}

// JobStore durable backing of the job queue
type JobStore interface {
	// Insert adds a new record
	Insert(ctx context.Context, job *JobRecord) error
	// UpsertRecurring creates or reschedules the single recurring record of job.Name
	UpsertRecurring(ctx context.Context, job *JobRecord) (*JobRecord, error)
	// DeleteByName removes every record of name
	DeleteByName(ctx context.Context, name string) (int64, error)
	// FindByName lists the records of name ordered by next run
	FindByName(ctx context.Context, name string) ([]*JobRecord, error)
	// ClaimDue locks the earliest due record whose lock is free or older than staleBefore
	ClaimDue(ctx context.Context, now, staleBefore time.Time) (*JobRecord, error)
	// Complete persists the outcome of a run and releases the lock
	Complete(ctx context.Context, job *JobRecord) error
	// Remove deletes one record
	Remove(ctx context.Context, id string) error
}
