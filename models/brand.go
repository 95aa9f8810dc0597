package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmbizsuite/console_backend/config"
	"github.com/mmbizsuite/console_backend/utils"
)

// Brand is a canonical catalog record mirrored into Odoo. OdooId is the
// remote-assigned id; it is only ever written after a successful round trip.
type Brand struct {
	ID          int       `gorm:"primary_key" json:"id"`
	BusinessId  string    `gorm:"size:64;not null;index" json:"business_id"`
	BrandCode   string    `gorm:"size:50;not null;index" json:"brand_code" binding:"required"`
	BrandName   string    `gorm:"size:100;not null" json:"brand_name" binding:"required"`
	Description string    `gorm:"type:text" json:"description"`
	OdooId      string    `gorm:"size:64;index" json:"odoo_id"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetBrand(ctx context.Context, id int) (*Brand, error) {
	return GetResource[Brand](ctx, id)
}

func GetActiveBrands(ctx context.Context) ([]*Brand, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Brand
	err := db.WithContext(ctx).
		Where("business_id = ? AND is_active = ?", businessId, true).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func SetBrandOdooId(ctx context.Context, id int, odooId string) error {
	return setOdooId[Brand](ctx, id, odooId)
}
