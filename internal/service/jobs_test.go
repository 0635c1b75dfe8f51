package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycle(t *testing.T) {
	mgr := NewJobManager()

	job := mgr.CreateJob("embed", 10)
	assert.Len(t, job.ID, 8)
	assert.Equal(t, JobStatusPending, job.Snapshot().Status)

	mgr.UpdateProgress(job, 4, 10)
	snap := job.Snapshot()
	assert.Equal(t, JobStatusRunning, snap.Status)
	assert.Equal(t, 4, snap.Progress)

	mgr.Complete(job, &IngestResult{EmbeddingsCreated: 10})
	snap = job.Snapshot()
	assert.Equal(t, JobStatusCompleted, snap.Status)
	require.NotNil(t, snap.CompletedAt)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 10, snap.Result.EmbeddingsCreated)
}

func TestJobFail(t *testing.T) {
	mgr := NewJobManager()
	job := mgr.CreateJob("sync", 0)

	mgr.Fail(job, errors.New("source unreachable"))
	snap := job.Snapshot()
	assert.Equal(t, JobStatusFailed, snap.Status)
	assert.Equal(t, "source unreachable", snap.Error)
}

func TestListJobsMostRecentFirst(t *testing.T) {
	mgr := NewJobManager()
	first := mgr.CreateJob("sync", 0)
	second := mgr.CreateJob("embed", 0)

	jobs := mgr.ListJobs()
	require.Len(t, jobs, 2)
	// StartedAt resolution can collide; both orders are valid then
	ids := []string{jobs[0].ID, jobs[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)

	assert.Equal(t, first.ID, mgr.GetJob(first.ID).ID)
	assert.Nil(t, mgr.GetJob("missing"))
}
