package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmbizsuite/console_backend/config"
	"github.com/mmbizsuite/console_backend/utils"
	"gorm.io/gorm"
)

type SyncJobStatus string

const (
	SyncJobStatusPending   SyncJobStatus = "pending"
	SyncJobStatusRunning   SyncJobStatus = "running"
	SyncJobStatusCompleted SyncJobStatus = "completed"
	SyncJobStatusFailed    SyncJobStatus = "failed"
)

// SyncJobGraceWindow is how long a terminal job stays visible in the
// active-job read model before dashboards treat it as inactive.
const SyncJobGraceWindow = 10 * time.Minute

// SyncJobStaleAfter is how long a claimed job may go without a single write
// before a new claim supersedes it. A worker that dies (crash, lost push
// delivery) leaves its claim behind; without this window the scope would
// stay wedged until manual cleanup.
const SyncJobStaleAfter = 15 * time.Minute

// SyncJob records the progress and outcome of one long-running batch run
// (fee recalculation, Odoo catalog sync, treasury recompute). Dashboards
// observe it through the read model, never through in-process state, so
// multiple stateless workers report consistent progress.
//
// ActiveKey holds "<business_id>:<scope>" while the job is pending/running
// and is cleared on the terminal transition. The unique index on it is what
// enforces "at most one authoritative job per scope": a concurrent claim
// hits a duplicate-key error and attaches to the existing job instead.
type SyncJob struct {
	ID             int            `gorm:"primary_key" json:"id"`
	BusinessId     string         `gorm:"size:64;not null;index" json:"business_id"`
	Kind           string         `gorm:"size:50;not null;index" json:"kind"`
	Scope          string         `gorm:"size:191;not null" json:"scope"`
	ActiveKey      *string        `gorm:"size:191;uniqueIndex" json:"-"`
	Status         SyncJobStatus  `gorm:"type:enum('pending','running','completed','failed');size:12;not null;default:'pending';index" json:"status"`
	TotalCount     int            `gorm:"not null;default:0" json:"total_count"`
	ProcessedCount int            `gorm:"not null;default:0" json:"processed_count"`
	SuccessCount   int            `gorm:"not null;default:0" json:"success_count"`
	FailCount      int            `gorm:"not null;default:0" json:"fail_count"`
	CurrentItem    string         `gorm:"size:255" json:"current_item"`
	Cursor         *int           `json:"cursor"`
	FailReason     string         `gorm:"type:text" json:"fail_reason"`
	StartedAt      *time.Time     `json:"started_at"`
	CompletedAt    *time.Time     `gorm:"index" json:"completed_at"`
	Errors         []SyncJobError `gorm:"foreignKey:JobId" json:"errors,omitempty"`
	CorrelationId  string         `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (j SyncJob) IsTerminal() bool {
	return j.Status == SyncJobStatusCompleted || j.Status == SyncJobStatusFailed
}

// IsStale reports whether a non-terminal job has gone the whole staleAfter
// window without any write. Every live run persists progress well inside the
// window (per page, or every progressFlushEvery records), so a stale claim
// belongs to a worker that died.
func (j SyncJob) IsStale(now time.Time, staleAfter time.Duration) bool {
	if j.IsTerminal() {
		return false
	}
	return now.Sub(j.UpdatedAt) > staleAfter
}

// VisibleAt reports whether the job still belongs in active-job views:
// non-terminal always, terminal only within the grace window.
func (j SyncJob) VisibleAt(now time.Time, grace time.Duration) bool {
	if !j.IsTerminal() {
		return true
	}
	if j.CompletedAt == nil {
		return false
	}
	return now.Sub(*j.CompletedAt) <= grace
}

// RecordProgress applies one processed unit to the in-memory job state.
// The first progress write flips pending to running and stamps started_at.
// Counters only ever increase.
func (j *SyncJob) RecordProgress(currentItem string, succeeded bool, now time.Time) error {
	if j.IsTerminal() {
		return fmt.Errorf("sync job %d is %s; no further progress accepted", j.ID, j.Status)
	}
	if j.Status == SyncJobStatusPending {
		j.Status = SyncJobStatusRunning
		started := now
		j.StartedAt = &started
	}
	j.ProcessedCount++
	if succeeded {
		j.SuccessCount++
	} else {
		j.FailCount++
	}
	if j.TotalCount > 0 && j.ProcessedCount > j.TotalCount {
		j.TotalCount = j.ProcessedCount
	}
	j.CurrentItem = currentItem
	return nil
}

// MarkCompleted transitions the job to its successful terminal state and
// releases the scope claim.
func (j *SyncJob) MarkCompleted(now time.Time) error {
	if j.IsTerminal() {
		return fmt.Errorf("sync job %d is already %s", j.ID, j.Status)
	}
	j.Status = SyncJobStatusCompleted
	completed := now
	j.CompletedAt = &completed
	j.ActiveKey = nil
	j.CurrentItem = ""
	return nil
}

// MarkFailed transitions the job to its failed terminal state. Used when a
// fatal, non-item-level error aborts the run.
func (j *SyncJob) MarkFailed(now time.Time, reason string) error {
	if j.IsTerminal() {
		return fmt.Errorf("sync job %d is already %s", j.ID, j.Status)
	}
	j.Status = SyncJobStatusFailed
	completed := now
	j.CompletedAt = &completed
	j.ActiveKey = nil
	j.FailReason = reason
	return nil
}

// ClaimSyncJob creates the authoritative pending job for (businessId, scope),
// or attaches to the already-pending/running one when the scope is claimed.
// attached=true means another invocation owns the run; a caller that also
// holds the scope's Redis lock may treat the attached job as a paused run
// and resume it from the persisted cursor. A claim whose holder has written
// nothing for SyncJobStaleAfter is superseded (marked failed, reclaimed),
// so a dead worker cannot wedge the scope.
func ClaimSyncJob(ctx context.Context, kind string, scope string, totalCount int) (*SyncJob, bool, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, false, errors.New("business id is required")
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	activeKey := fmt.Sprintf("%s:%s", businessId, scope)
	newJob := func() SyncJob {
		return SyncJob{
			BusinessId:    businessId,
			Kind:          kind,
			Scope:         scope,
			ActiveKey:     &activeKey,
			Status:        SyncJobStatusPending,
			TotalCount:    totalCount,
			CorrelationId: correlationId,
		}
	}

	db := config.GetDB()
	job := newJob()
	err := db.WithContext(ctx).Create(&job).Error
	if err == nil {
		return &job, false, nil
	}
	if !isDuplicateKeyErr(err) {
		return nil, false, err
	}

	// Another invocation already holds this scope.
	var existing SyncJob
	ferr := db.WithContext(ctx).
		Where("business_id = ? AND active_key = ?", businessId, activeKey).
		First(&existing).Error
	if ferr != nil {
		return nil, false, ferr
	}
	if !existing.IsStale(time.Now(), SyncJobStaleAfter) {
		return &existing, true, nil
	}

	// The holder wrote nothing for the whole staleness window: its worker
	// died. Fail the abandoned claim and take the scope over.
	_ = existing.MarkFailed(time.Now(), "superseded: no progress within staleness window")
	if serr := SaveSyncJobProgress(ctx, &existing); serr != nil {
		return nil, false, serr
	}

	reclaimed := newJob()
	if cerr := db.WithContext(ctx).Create(&reclaimed).Error; cerr != nil {
		if !isDuplicateKeyErr(cerr) {
			return nil, false, cerr
		}
		// Lost the reclaim race; attach to whoever won it.
		var winner SyncJob
		if werr := db.WithContext(ctx).
			Where("business_id = ? AND active_key = ?", businessId, activeKey).
			First(&winner).Error; werr != nil {
			return nil, false, werr
		}
		return &winner, true, nil
	}
	return &reclaimed, false, nil
}

// FindSyncJob fetches one job by primary key without tenant scoping. The
// push worker resolves the tenant from the job row itself rather than trust
// the message, and needs to tell a missing row (poison message) from a
// datastore failure (worth a redelivery).
func FindSyncJob(ctx context.Context, id int) (*SyncJob, error) {
	db := config.GetDB()
	if db == nil {
		return nil, errors.New("database not ready")
	}

	var job SyncJob
	err := db.WithContext(utils.SetSkipTenantScopeInContext(ctx, true)).First(&job, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// SaveSyncJobProgress persists the mutable job fields after a page (or a
// terminal transition). The full row is written from the in-memory state so
// re-applying the same state is idempotent.
func SaveSyncJobProgress(ctx context.Context, job *SyncJob) error {
	if job == nil || job.ID == 0 {
		return errors.New("sync job is not persisted")
	}
	db := config.GetDB()
	return db.WithContext(ctx).Model(job).Updates(map[string]interface{}{
		"ActiveKey":      job.ActiveKey,
		"Status":         job.Status,
		"TotalCount":     job.TotalCount,
		"ProcessedCount": job.ProcessedCount,
		"SuccessCount":   job.SuccessCount,
		"FailCount":      job.FailCount,
		"CurrentItem":    job.CurrentItem,
		"Cursor":         job.Cursor,
		"FailReason":     job.FailReason,
		"StartedAt":      job.StartedAt,
		"CompletedAt":    job.CompletedAt,
	}).Error
}

// ActiveSyncJobs returns the jobs the dashboard should show: every
// pending/running job plus terminal jobs still inside the grace window.
func ActiveSyncJobs(ctx context.Context) ([]*SyncJob, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	cutoff := time.Now().Add(-SyncJobGraceWindow)
	db := config.GetDB()
	var results []*SyncJob
	err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Where("status IN ? OR completed_at > ?", []SyncJobStatus{SyncJobStatusPending, SyncJobStatusRunning}, cutoff).
		Order("id DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// SyncJobHistory lists recent jobs of one kind, newest first.
func SyncJobHistory(ctx context.Context, kind string, limit int) ([]*SyncJob, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if kind != "" {
		dbCtx = dbCtx.Where("kind = ?", kind)
	}
	var results []*SyncJob
	err := dbCtx.Order("id DESC").Limit(limit).Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetSyncJob fetches one job with its per-record errors.
func GetSyncJob(ctx context.Context, id int) (*SyncJob, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[SyncJob](ctx, businessId, id, "Errors")
}
