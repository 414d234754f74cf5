package dto

import "time"

// JobActionDTO body of POST /api/cron/generator
type JobActionDTO struct {
	Action string `json:"action" binding:"required" validate:"oneof=start stop run"`
}

type RunStatsDTO struct {
	UsersProcessed  int        `json:"users_processed"`
	TweetsGenerated int        `json:"tweets_generated"`
	Errors          []string   `json:"errors"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
}

type JobStatusDTO struct {
	Running       bool         `json:"running"`
	IsScheduled   bool         `json:"is_scheduled"`
	TotalJobs     int          `json:"total_jobs"`
	RunningJobs   int          `json:"running_jobs"`
	ScheduledJobs int          `json:"scheduled_jobs"`
	NextRunAt     *time.Time   `json:"next_run_at,omitempty"`
	LastRun       *RunStatsDTO `json:"last_run,omitempty"`
}
