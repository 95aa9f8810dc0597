package models

import (
	"context"
	"testing"
	"time"

	"github.com/mmbizsuite/console_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingJob() *SyncJob {
	key := "biz-1:bank-fees"
	return &SyncJob{
		ID:         42,
		BusinessId: "biz-1",
		Kind:       "bank-fees",
		Scope:      "bank-fees",
		ActiveKey:  &key,
		Status:     SyncJobStatusPending,
		TotalCount: 3,
	}
}

func TestSyncJobLifecycle(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	t.Run("first progress flips pending to running", func(t *testing.T) {
		job := newPendingJob()
		require.NoError(t, job.RecordProgress("TXN-0001", true, now))

		assert.Equal(t, SyncJobStatusRunning, job.Status)
		require.NotNil(t, job.StartedAt)
		assert.Equal(t, now, *job.StartedAt)
		assert.Equal(t, "TXN-0001", job.CurrentItem)
		assert.Equal(t, 1, job.ProcessedCount)
		assert.Equal(t, 1, job.SuccessCount)
		assert.Equal(t, 0, job.FailCount)
	})

	t.Run("counters only increase", func(t *testing.T) {
		job := newPendingJob()
		require.NoError(t, job.RecordProgress("a", true, now))
		require.NoError(t, job.RecordProgress("b", false, now))
		require.NoError(t, job.RecordProgress("c", true, now))

		assert.Equal(t, 3, job.ProcessedCount)
		assert.Equal(t, 2, job.SuccessCount)
		assert.Equal(t, 1, job.FailCount)
		assert.Equal(t, "c", job.CurrentItem)
	})

	t.Run("total grows when an estimate was low", func(t *testing.T) {
		job := newPendingJob()
		job.TotalCount = 1
		require.NoError(t, job.RecordProgress("a", true, now))
		require.NoError(t, job.RecordProgress("b", true, now))
		assert.Equal(t, 2, job.TotalCount)
	})

	t.Run("completion releases the scope claim", func(t *testing.T) {
		job := newPendingJob()
		require.NoError(t, job.RecordProgress("a", true, now))
		require.NoError(t, job.MarkCompleted(now.Add(time.Minute)))

		assert.Equal(t, SyncJobStatusCompleted, job.Status)
		assert.Nil(t, job.ActiveKey)
		assert.Empty(t, job.CurrentItem)
		require.NotNil(t, job.CompletedAt)
		assert.True(t, job.IsTerminal())
	})

	t.Run("failure releases the scope claim and keeps the reason", func(t *testing.T) {
		job := newPendingJob()
		require.NoError(t, job.MarkFailed(now, "datastore unavailable"))

		assert.Equal(t, SyncJobStatusFailed, job.Status)
		assert.Nil(t, job.ActiveKey)
		assert.Equal(t, "datastore unavailable", job.FailReason)
		assert.True(t, job.IsTerminal())
	})

	t.Run("terminal jobs reject further transitions", func(t *testing.T) {
		job := newPendingJob()
		require.NoError(t, job.MarkCompleted(now))

		assert.Error(t, job.RecordProgress("late", true, now))
		assert.Error(t, job.MarkCompleted(now))
		assert.Error(t, job.MarkFailed(now, "nope"))
		assert.Equal(t, 0, job.ProcessedCount)
	})
}

func TestSyncJobVisibility(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	t.Run("non-terminal is always visible", func(t *testing.T) {
		job := newPendingJob()
		assert.True(t, job.VisibleAt(now, SyncJobGraceWindow))

		require.NoError(t, job.RecordProgress("a", true, now))
		assert.True(t, job.VisibleAt(now.Add(24*time.Hour), SyncJobGraceWindow))
	})

	t.Run("terminal stays visible inside the grace window", func(t *testing.T) {
		job := newPendingJob()
		require.NoError(t, job.MarkCompleted(now))

		assert.True(t, job.VisibleAt(now.Add(SyncJobGraceWindow-time.Second), SyncJobGraceWindow))
		assert.True(t, job.VisibleAt(now.Add(SyncJobGraceWindow), SyncJobGraceWindow))
		assert.False(t, job.VisibleAt(now.Add(SyncJobGraceWindow+time.Second), SyncJobGraceWindow))
	})

	t.Run("terminal without a completion stamp is hidden", func(t *testing.T) {
		job := newPendingJob()
		job.Status = SyncJobStatusFailed
		assert.False(t, job.VisibleAt(now, SyncJobGraceWindow))
	})
}

func TestSyncJobStaleness(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	t.Run("fresh claim is not stale", func(t *testing.T) {
		job := newPendingJob()
		job.UpdatedAt = now
		assert.False(t, job.IsStale(now, SyncJobStaleAfter))
		assert.False(t, job.IsStale(now.Add(SyncJobStaleAfter), SyncJobStaleAfter))
	})

	t.Run("claim without writes past the window is stale", func(t *testing.T) {
		// A worker that died after claiming (e.g. a lost push delivery)
		// leaves the row untouched; the next claim must supersede it.
		job := newPendingJob()
		job.UpdatedAt = now.Add(-SyncJobStaleAfter - time.Second)
		assert.True(t, job.IsStale(now, SyncJobStaleAfter))
	})

	t.Run("running job writing progress stays fresh", func(t *testing.T) {
		job := newPendingJob()
		require.NoError(t, job.RecordProgress("a", true, now))
		job.UpdatedAt = now.Add(-time.Minute)
		assert.False(t, job.IsStale(now, SyncJobStaleAfter))
	})

	t.Run("terminal jobs are never stale", func(t *testing.T) {
		job := newPendingJob()
		require.NoError(t, job.MarkCompleted(now))
		job.UpdatedAt = now.Add(-24 * time.Hour)
		assert.False(t, job.IsStale(now, SyncJobStaleAfter))
	})
}

func TestFindSyncJobWithoutDatastore(t *testing.T) {
	// No database in this process: the failure must be distinguishable from
	// a missing row, because the push worker only asks for redelivery on
	// datastore failures.
	_, err := FindSyncJob(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, utils.ErrorRecordNotFound)
}
