package models

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/mmbizsuite/console_backend/config"
	"github.com/mmbizsuite/console_backend/utils"
)

// GetResource fetches a single tenant-scoped record by id.
func GetResource[T any](ctx context.Context, id int) (*T, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[T](ctx, businessId, id)
}

func ToggleActiveModel[T any](ctx context.Context, businessId string, id int, isActive bool) (*T, error) {
	result, err := utils.FetchModel[T](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(result).Update("IsActive", isActive).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

// setOdooId persists the remote id on a synced record. Called only after a
// successful create/update round trip against Odoo; never pre-assigned.
func setOdooId[T any](ctx context.Context, id int, odooId string) error {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return errors.New("business id is required")
	}
	if odooId == "" {
		return errors.New("odoo id is required")
	}

	var model T
	db := config.GetDB()
	return db.WithContext(ctx).Model(&model).
		Where("business_id = ? AND id = ?", businessId, id).
		Update("OdooId", odooId).Error
}

// isDuplicateKeyErr reports whether err is a MySQL duplicate-key violation
// (error 1062). Used to detect a concurrent insert racing on a unique index.
func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
