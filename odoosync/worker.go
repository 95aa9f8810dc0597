package odoosync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmbizsuite/console_backend/config"
	"github.com/mmbizsuite/console_backend/models"
	"github.com/mmbizsuite/console_backend/utils"
)

const moduleName = "odoosync"

// JobKindCatalogSync is the sync-job kind for full catalog runs.
const JobKindCatalogSync = "odoo-sync"

// progressFlushEvery bounds how often job progress is persisted/published
// during a run.
const progressFlushEvery = 20

// ErrRetryDelivery marks a failure that happened before the run recorded
// anything. The push handler answers 5xx for it so Pub/Sub redelivers the
// message; every other failure is acked because the job tracker owns the
// outcome from the first progress write on.
var ErrRetryDelivery = errors.New("sync run delivery should be retried")

// SyncRunMessage is the unit of work queued for the push worker.
type SyncRunMessage struct {
	BusinessId    string   `json:"business_id"`
	JobId         int      `json:"job_id"`
	EntityTypes   []string `json:"entity_types,omitempty"`
	CorrelationId string   `json:"correlation_id"`
}

// ProcessSyncRun executes one catalog sync run end to end: list the enabled
// entity types, upsert each record against the adapter, record per-record
// failures, and drive the tracked job to a terminal state. Remote calls run
// strictly sequentially; the adapter is not known to be idempotent under
// concurrent requests for the same natural key.
//
// Safe under at-least-once delivery: a redelivered message for a terminal
// job is a no-op, and re-upserting an already-synced record short-circuits
// at the update step.
func ProcessSyncRun(ctx context.Context, msg SyncRunMessage) error {
	if msg.BusinessId == "" || msg.JobId <= 0 {
		return errors.New("business_id and job_id are required")
	}

	ctx = utils.SetBusinessIdInContext(ctx, msg.BusinessId)
	ctx = utils.SetCorrelationIdInContext(ctx, msg.CorrelationId)
	logger := config.GetLogger()

	job, err := models.FindSyncJob(ctx, msg.JobId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			// Poison: the job row is gone, redelivery cannot help.
			return fmt.Errorf("sync job %d: %w", msg.JobId, err)
		}
		return fmt.Errorf("%w: load sync job %d: %v", ErrRetryDelivery, msg.JobId, err)
	}
	if job.BusinessId != msg.BusinessId {
		return fmt.Errorf("sync job %d does not belong to business %s", msg.JobId, msg.BusinessId)
	}
	if job.IsTerminal() {
		// Redelivery of an already-finished run.
		return nil
	}

	conn, err := models.GetOdooConnection(ctx)
	if err != nil || conn.Status != models.OdooConnectionStatusConnected {
		return failRun(ctx, job, errors.New("odoo connection is not active"))
	}
	client := NewClient(conn)

	syncers := SyncersForSettings(conn.Settings(), msg.EntityTypes)
	if len(syncers) == 0 {
		return failRun(ctx, job, errors.New("no entity types enabled for sync"))
	}

	type workUnit struct {
		syncer EntitySyncer
		item   SyncItem
	}
	var units []workUnit
	for _, syncer := range syncers {
		items, lerr := syncer.List(ctx)
		if lerr != nil {
			return failRun(ctx, job, fmt.Errorf("list %s: %w", syncer.EntityType(), lerr))
		}
		for _, item := range items {
			units = append(units, workUnit{syncer: syncer, item: item})
		}
	}

	job.TotalCount = len(units)
	flushProgress(ctx, job)

	for i, unit := range units {
		_, _, uerr := UpsertEntity(ctx, client, unit.syncer, unit.item)
		if uerr != nil {
			// Terminal for this record only; other entities keep going.
			_ = job.RecordProgress(unit.item.Label, false, time.Now())
			code := "upsert_failed"
			var apiErr *APIError
			if errors.As(uerr, &apiErr) && apiErr.Code != "" {
				code = apiErr.Code
			}
			if cerr := models.CreateSyncJobError(ctx, job.ID, unit.syncer.EntityType(), unit.item.NaturalKey, code, uerr.Error(), IsRetryable(uerr)); cerr != nil {
				config.LogError(logger, moduleName, "ProcessSyncRun", "record sync error", unit.item.NaturalKey, cerr)
			}
		} else {
			_ = job.RecordProgress(unit.item.Label, true, time.Now())
		}

		if (i+1)%progressFlushEvery == 0 {
			flushProgress(ctx, job)
		}
	}

	_ = job.MarkCompleted(time.Now())
	flushProgress(ctx, job)

	if err := models.TouchOdooLastSynced(ctx, conn, time.Now()); err != nil {
		config.LogError(logger, moduleName, "ProcessSyncRun", "touch last synced", conn.ID, err)
	}
	return nil
}

// SyncSingleEntity mirrors one record synchronously (change-event path).
func SyncSingleEntity(ctx context.Context, entityType string, localId int) (externalId string, created bool, err error) {
	syncer := SyncerFor(entityType)
	if syncer == nil {
		return "", false, fmt.Errorf("unknown entity type %q", entityType)
	}

	conn, err := models.GetOdooConnection(ctx)
	if err != nil || conn.Status != models.OdooConnectionStatusConnected {
		return "", false, errors.New("odoo connection is not active")
	}

	item, err := syncer.Load(ctx, localId)
	if err != nil {
		return "", false, err
	}
	return UpsertEntity(ctx, NewClient(conn), syncer, *item)
}

func failRun(ctx context.Context, job *models.SyncJob, cause error) error {
	config.LogError(config.GetLogger(), moduleName, "ProcessSyncRun", "sync run failed", job.ID, cause)
	_ = job.MarkFailed(time.Now(), cause.Error())
	flushProgress(ctx, job)
	return cause
}

func flushProgress(ctx context.Context, job *models.SyncJob) {
	logger := config.GetLogger()
	if err := models.SaveSyncJobProgress(ctx, job); err != nil {
		config.LogError(logger, moduleName, "flushProgress", "persist job progress", job.ID, err)
	}
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
		config.LogError(logger, moduleName, "flushProgress", "publish job event", job.ID, err)
	}
}
