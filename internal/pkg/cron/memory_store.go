package cron

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore in-process JobStore, used when no durable store is configured
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]*JobRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*JobRecord)}
}

func clone(j *JobRecord) *JobRecord {
	out := *j
	out.NextRunAt = cloneTime(j.NextRunAt)
	out.LockedAt = cloneTime(j.LockedAt)
	out.LastRunAt = cloneTime(j.LastRunAt)
	out.LastFinishedAt = cloneTime(j.LastFinishedAt)
	out.FailedAt = cloneTime(j.FailedAt)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (s *MemoryStore) Insert(_ context.Context, job *JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = clone(job)
	return nil
}

func (s *MemoryStore) UpsertRecurring(_ context.Context, job *JobRecord) (*JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.jobs {
		if existing.Name == job.Name && existing.Type == JobTypeRecurring {
			existing.Interval = job.Interval
			existing.NextRunAt = job.NextRunAt
			return clone(existing), nil
		}
	}
	s.jobs[job.ID] = clone(job)
	return clone(job), nil
}

func (s *MemoryStore) DeleteByName(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, j := range s.jobs {
		if j.Name == name {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) FindByName(_ context.Context, name string) ([]*JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*JobRecord, 0)
	for _, j := range s.jobs {
		if j.Name == name {
			out = append(out, clone(j))
		}
	}
	sortByNextRun(out)
	return out, nil
}

func (s *MemoryStore) ClaimDue(_ context.Context, now, staleBefore time.Time) (*JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := make([]*JobRecord, 0)
	for _, j := range s.jobs {
		if j.NextRunAt == nil || j.NextRunAt.After(now) {
			continue
		}
		if j.LockedAt != nil && j.LockedAt.After(staleBefore) {
			continue
		}
		candidates = append(candidates, j)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sortByNextRun(candidates)

	claimed := candidates[0]
	lockedAt := now
	claimed.LockedAt = &lockedAt
	claimed.LastRunAt = &lockedAt
	return clone(claimed), nil
}

func (s *MemoryStore) Complete(_ context.Context, job *JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.jobs[job.ID]
	if !ok {
		return nil
	}
	existing.NextRunAt = job.NextRunAt
	existing.LockedAt = nil
	existing.LastFinishedAt = job.LastFinishedAt
	existing.FailedAt = job.FailedAt
	existing.FailReason = job.FailReason
	existing.FailCount = job.FailCount
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

func sortByNextRun(jobs []*JobRecord) {
	sort.SliceStable(jobs, func(i, k int) bool {
		a, b := jobs[i].NextRunAt, jobs[k].NextRunAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}
