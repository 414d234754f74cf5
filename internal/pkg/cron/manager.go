package cron

import (
	"Postpilot/internal/pkg/logger"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

var (
	ErrUndefinedJob    = errors.New("job is not defined")
	ErrInvalidInterval = errors.New("job interval must be positive")
)

// Handler body of a defined job
type Handler func(ctx context.Context) error

type Options struct {
	// ProcessEvery robfig spec of the queue poll, "@every 1m" by default
	ProcessEvery string
	// LockLifetime after which a claimed job is considered abandoned
	LockLifetime time.Duration
	Now          func() time.Time
}

// QueueStats snapshot of the records of one job name
type QueueStats struct {
	TotalJobs     int        `json:"totalJobs"`
	RunningJobs   int        `json:"runningJobs"`
	ScheduledJobs int        `json:"scheduledJobs"`
	RecurringJobs int        `json:"recurringJobs"`
	NextRun       *time.Time `json:"nextRun"`
}

// Manager a durable job queue polled by a cron engine. Due jobs run one at a time.
type Manager struct {
	engine       *cron.Cron
	store        JobStore
	processEvery string
	lockLifetime time.Duration
	now          func() time.Time

	mu       sync.RWMutex
	handlers map[string]Handler
	started  bool

	processing sync.Mutex
	triggered  sync.WaitGroup
}

func NewCronManager(store JobStore, opts Options) *Manager {
	if opts.ProcessEvery == "" {
		opts.ProcessEvery = "@every 1m"
	}
	if opts.LockLifetime <= 0 {
		opts.LockLifetime = 10 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cronLogger := slogCronLogger{}
	return &Manager{
		engine: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		store:        store,
		processEvery: opts.ProcessEvery,
		lockLifetime: opts.LockLifetime,
		now:          opts.Now,
		handlers:     make(map[string]Handler),
	}
}

// Define registers the handler run for records called name
func (s *Manager) Define(name string, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = handler
}

func (s *Manager) handler(name string) Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handlers[name]
}

// AddJob runs job on a plain cron spec, outside of the queue
func (s *Manager) AddJob(spec string, job cron.Job) error {
	_, err := s.engine.AddJob(spec, job)
	return err
}

// Every creates or reschedules the recurring record of name. With skipImmediate the first run is one interval away.
func (s *Manager) Every(ctx context.Context, name string, interval time.Duration, skipImmediate bool) (*JobRecord, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	now := s.now()
	next := now
	if skipImmediate {
		next = now.Add(interval)
	}
	return s.store.UpsertRecurring(ctx, &JobRecord{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      JobTypeRecurring,
		Interval:  interval,
		NextRunAt: &next,
		CreatedAt: now,
	})
}

// Now enqueues a one-off run of name and wakes the queue
func (s *Manager) Now(ctx context.Context, name string) (*JobRecord, error) {
	now := s.now()
	job := &JobRecord{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      JobTypeOnce,
		NextRunAt: &now,
		CreatedAt: now,
	}
	if err := s.store.Insert(ctx, job); err != nil {
		return nil, err
	}

	s.triggered.Add(1)
	go func() {
		defer s.triggered.Done()
		s.ProcessDue(context.Background())
	}()
	return job, nil
}

// Cancel removes every record of name. A run already in progress is not interrupted.
func (s *Manager) Cancel(ctx context.Context, name string) (int64, error) {
	return s.store.DeleteByName(ctx, name)
}

func (s *Manager) Jobs(ctx context.Context, name string) ([]*JobRecord, error) {
	return s.store.FindByName(ctx, name)
}

func (s *Manager) Stats(ctx context.Context, name string) (*QueueStats, error) {
	jobs, err := s.store.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	stats := &QueueStats{TotalJobs: len(jobs)}
	for _, j := range jobs {
		if j.Running() {
			stats.RunningJobs++
		}
		if j.Type == JobTypeRecurring {
			stats.RecurringJobs++
		}
		if j.Scheduled() {
			stats.ScheduledJobs++
			if stats.NextRun == nil || j.NextRunAt.Before(*stats.NextRun) {
				next := *j.NextRunAt
				stats.NextRun = &next
			}
		}
	}
	return stats, nil
}

// ProcessDue runs every due record sequentially and returns how many ran.
// It returns 0 immediately when another call is already processing.
func (s *Manager) ProcessDue(ctx context.Context) int {
	if !s.processing.TryLock() {
		return 0
	}
	defer s.processing.Unlock()

	ran := 0
	for ctx.Err() == nil {
		now := s.now()
		job, err := s.store.ClaimDue(ctx, now, now.Add(-s.lockLifetime))
		if err != nil {
			log.ErrorContext(ctx, "claim due job failed", "err", err)
			return ran
		}
		if job == nil {
			return ran
		}
		s.run(ctx, job)
		ran++
	}
	return ran
}

func (s *Manager) run(ctx context.Context, job *JobRecord) {
	traceID := "job-" + strings.ReplaceAll(job.Name, " ", "-") + "-" + uuid.NewString()
	runCtx := logger.WithTraceID(ctx, traceID)

	log.InfoContext(runCtx, "job starting", "job", job.Name, "id", job.ID, "type", job.Type)

	var err error
	if handler := s.handler(job.Name); handler == nil {
		err = ErrUndefinedJob
	} else {
		err = safeRun(runCtx, handler)
	}

	finished := s.now()
	job.LastFinishedAt = &finished
	if err != nil {
		job.FailReason = err.Error()
		job.FailCount++
		job.FailedAt = &finished
		log.ErrorContext(runCtx, "job failed", "job", job.Name, "id", job.ID, "err", err)
	} else {
		job.FailReason = ""
		log.InfoContext(runCtx, "job completed", "job", job.Name, "id", job.ID)
	}

	if job.Type == JobTypeRecurring && job.Interval > 0 {
		next := finished.Add(job.Interval)
		if job.LastRunAt != nil {
			next = job.LastRunAt.Add(job.Interval)
			for !next.After(finished) {
				next = next.Add(job.Interval)
			}
		}
		job.NextRunAt = &next
		if err = s.store.Complete(ctx, job); err != nil {
			log.ErrorContext(runCtx, "job complete failed", "job", job.Name, "err", err)
		}
		return
	}

	if err = s.store.Remove(ctx, job.ID); err != nil {
		log.ErrorContext(runCtx, "job remove failed", "job", job.Name, "err", err)
	}
}

func safeRun(ctx context.Context, handler Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v", r)
		}
	}()
	return handler(ctx)
}

type processJob struct {
	mgr *Manager
}

func (p processJob) Run() {
	p.mgr.ProcessDue(context.Background())
}

func (s *Manager) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if _, err := s.engine.AddJob(s.processEvery, processJob{mgr: s}); err != nil {
		return err
	}
	s.started = true
	log.Info("Cron engine started", "process_every", s.processEvery)
	s.engine.Start()
	return nil
}

func (s *Manager) Stop() {
	<-s.engine.Stop().Done()
	s.triggered.Wait()
	log.Info("Cron engine stopped")
}

// slogCronLogger adapts slog to cron.Logger
type slogCronLogger struct{}

func (slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug("cron: "+msg, keysAndValues...)
}

func (slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
