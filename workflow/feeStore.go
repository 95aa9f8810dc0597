package workflow

import (
	"context"
	"errors"

	"github.com/mmbizsuite/console_backend/config"
	"github.com/mmbizsuite/console_backend/models"
	"github.com/mmbizsuite/console_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormFeeStore is the MySQL-backed FeeStore. Eligibility: the derived fee
// column for the kind is still zero and the matching counterparty label is
// present. Ordering is id descending so the cursor strictly decreases.
type gormFeeStore struct {
	db *gorm.DB
}

func NewFeeStore() FeeStore {
	return &gormFeeStore{db: config.GetDB()}
}

func (s *gormFeeStore) scope(ctx context.Context, kind models.FeeKind) (*gorm.DB, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	dbCtx := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("business_id = ?", businessId)
	if kind == models.FeeKindGateway {
		dbCtx = dbCtx.Where("gateway_fees = 0 AND gateway_name <> ''")
	} else {
		dbCtx = dbCtx.Where("bank_fees = 0 AND bank_name <> ''")
	}
	return dbCtx, nil
}

func (s *gormFeeStore) FetchPage(ctx context.Context, kind models.FeeKind, cursor *int, pageSize int) ([]*models.Transaction, error) {
	dbCtx, err := s.scope(ctx, kind)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		dbCtx = dbCtx.Where("id < ?", *cursor)
	}

	var rows []*models.Transaction
	err = dbCtx.Order("id DESC").Limit(pageSize).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertPage writes the page back as full-row upserts keyed by primary id,
// never as increments, so re-running the same page with the same inputs
// stores bit-identical values. Batched at the page size to bound write
// amplification.
func (s *gormFeeStore) UpsertPage(ctx context.Context, rows []*models.Transaction) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		CreateInBatches(rows, len(rows)).Error
}

func (s *gormFeeStore) CountRemaining(ctx context.Context, kind models.FeeKind, cursor *int) (int64, error) {
	dbCtx, err := s.scope(ctx, kind)
	if err != nil {
		return 0, err
	}
	if cursor != nil {
		dbCtx = dbCtx.Where("id < ?", *cursor)
	}

	var count int64
	err = dbCtx.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
