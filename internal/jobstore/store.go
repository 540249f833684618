// Package jobstore keeps research jobs in memory with TTL-based expiry
// measured from job creation.
package jobstore

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flin-agency/keyword-research-tool/internal/research"
)

// Store is a mutex-guarded in-memory job table. Reads return copies so
// callers never observe a job mid-update.
type Store struct {
	mu     sync.RWMutex
	jobs   map[string]*research.Job
	ttl    time.Duration
	logger *zap.Logger
}

// New constructs a Store retaining jobs for ttl after creation.
func New(ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{
		jobs:   make(map[string]*research.Job),
		ttl:    ttl,
		logger: logger,
	}
}

// Create inserts the job and prunes anything expired.
func (s *Store) Create(job *research.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(time.Now())
	copied := *job
	s.jobs[job.ID] = &copied
}

// Get returns a copy of the job.
func (s *Store) Get(id string) (research.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return research.Job{}, research.ErrNotFound
	}
	return *job, nil
}

// Delete removes the job outright.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return research.ErrNotFound
	}
	delete(s.jobs, id)
	return nil
}

// Count returns the number of stored jobs.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// UpdateProgress advances the job's progress and step label. Progress is
// monotonic: a smaller value than the current one is ignored.
func (s *Store) UpdateProgress(id string, progress int, step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}
	if progress > job.Progress {
		job.Progress = progress
	}
	if step != "" {
		job.Step = step
	}
	job.UpdatedAt = time.Now().UTC()
}

// SetStatus transitions the job's lifecycle state. Transitions out of a
// terminal state are ignored. Completion forces progress to 100.
func (s *Store) SetStatus(id string, status research.JobStatus, jobErr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}
	now := time.Now().UTC()
	job.Status = status
	job.UpdatedAt = now
	switch status {
	case research.JobStatusCompleted:
		job.Progress = 100
		job.CompletedAt = &now
		job.ProcessingTimeMs = now.Sub(job.CreatedAt).Milliseconds()
	case research.JobStatusFailed:
		job.Error = jobErr
		job.FailedAt = &now
		job.ProcessingTimeMs = now.Sub(job.CreatedAt).Milliseconds()
	case research.JobStatusCancelled:
		job.ProcessingTimeMs = now.Sub(job.CreatedAt).Milliseconds()
	}
}

// AddWarning appends a warning to the job.
func (s *Store) AddWarning(id, warning string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Warnings = append(job.Warnings, warning)
		job.UpdatedAt = time.Now().UTC()
	}
}

// SetData attaches the final result payload.
func (s *Store) SetData(id string, data *research.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Data = data
		job.UpdatedAt = time.Now().UTC()
	}
}

// SetInternal records operational metadata on the job.
func (s *Store) SetInternal(id string, internal research.InternalMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Internal = internal
		job.UpdatedAt = time.Now().UTC()
	}
}

// Sweep prunes expired jobs until ctx is cancelled.
func (s *Store) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.mu.Lock()
			removed := s.pruneLocked(now)
			s.mu.Unlock()
			if removed > 0 {
				s.logger.Info("expired jobs pruned", zap.Int("count", removed))
			}
		}
	}
}

// pruneLocked removes jobs created more than ttl ago. Retention counts from
// creation, so even a job stuck in processing is eventually dropped.
func (s *Store) pruneLocked(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	removed := 0
	for id, job := range s.jobs {
		if now.Sub(job.CreatedAt) <= s.ttl {
			continue
		}
		if !job.Status.Terminal() {
			s.logger.Warn("pruning job still in flight",
				zap.String("jobId", id), zap.String("status", string(job.Status)))
		}
		delete(s.jobs, id)
		removed++
	}
	return removed
}
