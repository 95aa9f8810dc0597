package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/mmbizsuite/console_backend/config"
	"github.com/mmbizsuite/console_backend/models"
	"github.com/mmbizsuite/console_backend/utils"
)

const moduleName = "workflow"

// JobKind returns the sync-job kind label for a fee recalculation variant.
func JobKind(kind models.FeeKind) string {
	return string(kind) + "-fees"
}

// RunFeeRecalc is the batch entry point for one fee recalculation
// invocation. It serializes per-tenant runs with a Redis scope lock, claims
// (or resumes) the authoritative sync job for the scope, and drives the
// walker. Correctness across retries relies on idempotent upserts and the
// monotonic cursor, not on transactional rollback.
func RunFeeRecalc(ctx context.Context, store FeeStore, kind models.FeeKind, cursor *int, opts WalkerOptions) (*BatchResult, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	jobKind := JobKind(kind)
	release, err := utils.BusinessLock(ctx, businessId, jobKind, moduleName, "RunFeeRecalc")
	if err != nil {
		return nil, err
	}
	defer release()

	pairs, err := models.GetActiveFeePairs(ctx, kind)
	if err != nil {
		return nil, err
	}

	total, err := store.CountRemaining(ctx, kind, cursor)
	if err != nil {
		return nil, err
	}

	job, attached, err := models.ClaimSyncJob(ctx, jobKind, jobKind, int(total))
	if err != nil {
		return nil, err
	}
	if attached {
		// We hold the scope lock, so nobody is actively processing: this is
		// a paused resumable job from an earlier invocation. Continue it,
		// adopting its persisted cursor when the caller didn't pass one.
		if cursor == nil && job.Cursor != nil {
			cursor = job.Cursor
		}
		if job.TotalCount == 0 {
			job.TotalCount = int(total)
		}
	}

	progress := func(item string, matched bool) {
		// Unconfigured pairs are skips, not failures; item-level failure
		// does not occur in the pure fee computation.
		_ = job.RecordProgress(item, true, time.Now())
	}

	result, walkErr := WalkFeePages(ctx, store, kind, pairs, cursor, opts, progress)
	result.JobId = job.ID
	job.Cursor = result.NextCursor

	now := time.Now()
	switch {
	case walkErr != nil:
		_ = job.MarkFailed(now, walkErr.Error())
	case result.NeedsMoreRuns:
		// Keep the job authoritative across invocations until exhausted.
	default:
		_ = job.MarkCompleted(now)
	}

	if err := models.SaveSyncJobProgress(ctx, job); err != nil {
		config.LogError(config.GetLogger(), moduleName, "RunFeeRecalc", "persist job progress", job.ID, err)
	}
	publishJobEvent(ctx, job)

	return result, walkErr
}

// publishJobEvent pushes the job state to the realtime feed. Advisory:
// failures are logged, never propagated into the batch outcome.
func publishJobEvent(ctx context.Context, job *models.SyncJob) {
	evt := config.JobEvent{
		JobId:         job.ID,
		BusinessId:    job.BusinessId,
		Kind:          job.Kind,
		Status:        string(job.Status),
		Processed:     job.ProcessedCount,
		Total:         job.TotalCount,
		Successful:    job.SuccessCount,
		Failed:        job.FailCount,
		CurrentItem:   job.CurrentItem,
		EmittedAt:     time.Now(),
		CorrelationId: job.CorrelationId,
	}
	if err := config.PublishJobEvent(ctx, evt); err != nil {
		config.LogError(config.GetLogger(), moduleName, "publishJobEvent", "publish job event", job.ID, err)
	}
}
