package jobstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flin-agency/keyword-research-tool/internal/research"
)

func newJob(id string) *research.Job {
	now := time.Now().UTC()
	return &research.Job{
		ID:        id,
		URL:       "https://example.com",
		Status:    research.JobStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateAndGet(t *testing.T) {
	s := New(time.Hour, zap.NewNop())
	s.Create(newJob("job-1"))

	job, err := s.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, research.JobStatusProcessing, job.Status)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, research.ErrNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	s := New(time.Hour, zap.NewNop())
	s.Create(newJob("job-1"))

	job, err := s.Get("job-1")
	require.NoError(t, err)
	job.Status = research.JobStatusFailed

	again, err := s.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, research.JobStatusProcessing, again.Status)
}

func TestUpdateProgressMonotonic(t *testing.T) {
	s := New(time.Hour, zap.NewNop())
	s.Create(newJob("job-1"))

	s.UpdateProgress("job-1", 30, "extracting")
	s.UpdateProgress("job-1", 10, "scanning")

	job, err := s.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, 30, job.Progress)
	// Step still updates even when progress does not move backwards.
	assert.Equal(t, "scanning", job.Step)
}

func TestSetStatusCompleted(t *testing.T) {
	s := New(time.Hour, zap.NewNop())
	s.Create(newJob("job-1"))

	s.UpdateProgress("job-1", 90, "finalizing")
	s.SetStatus("job-1", research.JobStatusCompleted, "")

	job, err := s.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, research.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.CompletedAt)
}

func TestSetStatusTerminalIsFinal(t *testing.T) {
	s := New(time.Hour, zap.NewNop())
	s.Create(newJob("job-1"))

	s.SetStatus("job-1", research.JobStatusCancelled, "")
	s.SetStatus("job-1", research.JobStatusCompleted, "")
	s.UpdateProgress("job-1", 99, "late")

	job, err := s.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, research.JobStatusCancelled, job.Status)
	assert.Zero(t, job.Progress)
}

func TestSetStatusFailed(t *testing.T) {
	s := New(time.Hour, zap.NewNop())
	s.Create(newJob("job-1"))

	s.SetStatus("job-1", research.JobStatusFailed, "no seed keywords generated")
	job, err := s.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, "no seed keywords generated", job.Error)
	require.NotNil(t, job.FailedAt)
}

func TestWarningsAndData(t *testing.T) {
	s := New(time.Hour, zap.NewNop())
	s.Create(newJob("job-1"))

	s.AddWarning("job-1", "ai enhancement failed")
	s.SetData("job-1", &research.Result{TotalKeywords: 42})

	job, err := s.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ai enhancement failed"}, job.Warnings)
	require.NotNil(t, job.Data)
	assert.Equal(t, 42, job.Data.TotalKeywords)
}

func TestDelete(t *testing.T) {
	s := New(time.Hour, zap.NewNop())
	s.Create(newJob("job-1"))

	require.NoError(t, s.Delete("job-1"))
	assert.ErrorIs(t, s.Delete("job-1"), research.ErrNotFound)
}

func TestPruneOnCreate(t *testing.T) {
	s := New(time.Hour, zap.NewNop())

	old := newJob("old")
	old.Status = research.JobStatusCompleted
	old.CreatedAt = time.Now().Add(-2 * time.Hour)
	s.Create(old)

	stuck := newJob("stuck")
	stuck.CreatedAt = time.Now().Add(-3 * time.Hour)
	s.Create(stuck)

	recent := newJob("recent")
	recent.Status = research.JobStatusCompleted
	recent.CreatedAt = time.Now().Add(-30 * time.Minute)
	s.Create(recent)

	s.Create(newJob("fresh"))

	_, err := s.Get("old")
	assert.ErrorIs(t, err, research.ErrNotFound)
	// Retention counts from creation, so a stuck processing job goes too.
	_, err = s.Get("stuck")
	assert.ErrorIs(t, err, research.ErrNotFound)
	_, err = s.Get("recent")
	assert.NoError(t, err)
	assert.Equal(t, 2, s.Count())
}
