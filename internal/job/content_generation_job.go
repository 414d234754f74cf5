package job

import (
	"Postpilot/internal/api/dto"
	"Postpilot/internal/pkg/consts"
	"Postpilot/internal/pkg/cron"
	"Postpilot/internal/pkg/metrics"
	"Postpilot/internal/service"
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"time"
)

// Lease cross-process guard of a cycle
type Lease interface {
	Acquire(ctx context.Context) (release func(context.Context), ok bool, err error)
}

// StatsStore keeps the stats of the last cycle across restarts
type StatsStore interface {
	Save(ctx context.Context, v *RunStats) error
	Load(ctx context.Context) (*RunStats, error)
}

// RunStats outcome of one generation cycle
type RunStats struct {
	UsersProcessed  int        `json:"usersProcessed"`
	TweetsGenerated int        `json:"tweetsGenerated"`
	Errors          []string   `json:"errors"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime,omitempty"`
}

type ContentGenerationJob struct {
	manager     *cron.Manager
	eligibility service.EligibilityService
	generation  service.GenerationService
	lease       Lease
	store       StatsStore
	metrics     *metrics.Metrics
	interval    time.Duration
	now         func() time.Time

	mu      sync.Mutex
	running bool
	lastRun *RunStats
}

func NewContentGenerationJob(
	manager *cron.Manager,
	eligibility service.EligibilityService,
	generation service.GenerationService,
	lease Lease,
	store StatsStore,
	m *metrics.Metrics,
	interval time.Duration,
	now func() time.Time,
) *ContentGenerationJob {
	if interval <= 0 {
		interval = time.Hour
	}
	if now == nil {
		now = time.Now
	}
	j := &ContentGenerationJob{
		manager:     manager,
		eligibility: eligibility,
		generation:  generation,
		lease:       lease,
		store:       store,
		metrics:     m,
		interval:    interval,
		now:         now,
	}
	manager.Define(consts.GenerateContentJob, func(ctx context.Context) error {
		_, err := j.RunCycle(ctx)
		return err
	})
	return j
}

// Start schedules the recurring cycle, first run one interval from now
func (s *ContentGenerationJob) Start(ctx context.Context) error {
	if _, err := s.manager.Cancel(ctx, consts.GenerateContentJob); err != nil {
		return err
	}
	job, err := s.manager.Every(ctx, consts.GenerateContentJob, s.interval, true)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "content generation scheduled", "interval", s.interval.String(), "next_run_at", job.NextRunAt)
	return nil
}

// Stop removes every queued run. A cycle already running finishes.
func (s *ContentGenerationJob) Stop(ctx context.Context) error {
	n, err := s.manager.Cancel(ctx, consts.GenerateContentJob)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "content generation unscheduled", "removed", n)
	return nil
}

// RunNow queues a one-off cycle and returns the stats known so far
func (s *ContentGenerationJob) RunNow(ctx context.Context) (*dto.JobStatusDTO, error) {
	if s.isRunning() {
		return nil, service.ErrCycleRunning
	}
	if _, err := s.manager.Now(ctx, consts.GenerateContentJob); err != nil {
		return nil, err
	}
	return s.Status(ctx)
}

func (s *ContentGenerationJob) Status(ctx context.Context) (*dto.JobStatusDTO, error) {
	stats, err := s.manager.Stats(ctx, consts.GenerateContentJob)
	if err != nil {
		return nil, err
	}
	status := &dto.JobStatusDTO{
		Running:       s.isRunning(),
		IsScheduled:   stats.RecurringJobs > 0,
		TotalJobs:     stats.TotalJobs,
		RunningJobs:   stats.RunningJobs,
		ScheduledJobs: stats.ScheduledJobs,
		NextRunAt:     stats.NextRun,
	}
	if last := s.LastRun(ctx); last != nil {
		status.LastRun = &dto.RunStatsDTO{
			UsersProcessed:  last.UsersProcessed,
			TweetsGenerated: last.TweetsGenerated,
			Errors:          last.Errors,
			StartTime:       last.StartTime,
			EndTime:         last.EndTime,
		}
	}
	return status, nil
}

// LastRun in-memory stats, falling back to the persisted copy after a restart
func (s *ContentGenerationJob) LastRun(ctx context.Context) *RunStats {
	s.mu.Lock()
	last := s.lastRun
	s.mu.Unlock()
	if last != nil || s.store == nil {
		return last
	}

	last, err := s.store.Load(ctx)
	if err != nil {
		log.WarnContext(ctx, "load last run stats failed", "err", err)
		return nil
	}
	return last
}

// RunCycle generates posts for every eligible user. Only one cycle runs at a time, here and across instances.
func (s *ContentGenerationJob) RunCycle(ctx context.Context) (*RunStats, error) {
	if !s.markRunning() {
		s.metrics.ObserveCycle("skipped", 0, 0, 0, 0)
		return nil, service.ErrCycleRunning
	}
	defer s.clearRunning()

	if s.lease != nil {
		release, ok, err := s.lease.Acquire(ctx)
		if err != nil {
			s.metrics.ObserveCycle("failed", 0, 0, 0, 0)
			return nil, err
		}
		if !ok {
			s.metrics.ObserveCycle("skipped", 0, 0, 0, 0)
			return nil, service.ErrCycleRunning
		}
		defer release(context.WithoutCancel(ctx))
	}

	stats := &RunStats{StartTime: s.now().UTC(), Errors: []string{}}
	err := s.cycle(ctx, stats)

	outcome := "completed"
	if err != nil {
		outcome = "failed"
		stats.Errors = append(stats.Errors, fmt.Sprintf("critical error in content generation: %v", err))
	}
	end := s.now().UTC()
	stats.EndTime = &end
	s.record(ctx, stats)

	s.metrics.ObserveCycle(outcome, end.Sub(stats.StartTime), stats.UsersProcessed, stats.TweetsGenerated, len(stats.Errors))
	log.InfoContext(ctx, "content generation finished",
		"users_processed", stats.UsersProcessed,
		"tweets_generated", stats.TweetsGenerated,
		"errors", len(stats.Errors),
		"outcome", outcome,
	)
	return stats, err
}

func (s *ContentGenerationJob) cycle(ctx context.Context, stats *RunStats) error {
	candidates, err := s.eligibility.Evaluate(ctx, s.now())
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "users needing posts", "count", len(candidates))

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := s.generation.GenerateForCandidate(ctx, candidate)
		stats.TweetsGenerated += n
		if err != nil {
			msg := fmt.Sprintf("error processing user %d: %v", candidate.User.ID, err)
			log.ErrorContext(ctx, "generate for user failed", "user_id", candidate.User.ID, "err", err)
			stats.Errors = append(stats.Errors, msg)
			continue
		}
		stats.UsersProcessed++
	}
	return nil
}

func (s *ContentGenerationJob) record(ctx context.Context, stats *RunStats) {
	s.mu.Lock()
	s.lastRun = stats
	s.mu.Unlock()
	if s.store == nil {
		return
	}
	if err := s.store.Save(context.WithoutCancel(ctx), stats); err != nil {
		log.WarnContext(ctx, "persist last run stats failed", "err", err)
	}
}

func (s *ContentGenerationJob) markRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *ContentGenerationJob) clearRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *ContentGenerationJob) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
