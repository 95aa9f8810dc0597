package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmbizsuite/console_backend/config"
	"github.com/mmbizsuite/console_backend/utils"
)

// SyncJobError is one per-record failure captured during a sync job. Item
// failures never abort the run; they are recorded here and surfaced through
// the job detail read model.
type SyncJobError struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"size:64;not null;index" json:"business_id"`
	JobId      int       `gorm:"not null;index" json:"job_id"`
	EntityType string    `gorm:"size:50;not null" json:"entity_type"`
	NaturalKey string    `gorm:"size:191" json:"natural_key"`
	Code       string    `gorm:"size:50" json:"code"`
	Message    string    `gorm:"type:text" json:"message"`
	Retryable  *bool     `gorm:"not null;default:false" json:"retryable"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func CreateSyncJobError(ctx context.Context, jobId int, entityType string, naturalKey string, code string, message string, retryable bool) error {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return errors.New("business id is required")
	}
	if jobId <= 0 {
		return errors.New("job id is required")
	}

	record := SyncJobError{
		BusinessId: businessId,
		JobId:      jobId,
		EntityType: entityType,
		NaturalKey: naturalKey,
		Code:       code,
		Message:    message,
	}
	if retryable {
		record.Retryable = utils.NewTrue()
	} else {
		record.Retryable = utils.NewFalse()
	}

	db := config.GetDB()
	return db.WithContext(ctx).Create(&record).Error
}

func GetSyncJobErrors(ctx context.Context, jobId int) ([]*SyncJobError, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*SyncJobError
	err := db.WithContext(ctx).
		Where("business_id = ? AND job_id = ?", businessId, jobId).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
