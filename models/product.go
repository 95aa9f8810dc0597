package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmbizsuite/console_backend/config"
	"github.com/mmbizsuite/console_backend/utils"
	"github.com/shopspring/decimal"
)

// Product is a canonical catalog record mirrored into Odoo, addressed
// remotely by its SKU.
type Product struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"size:64;not null;index" json:"business_id"`
	Sku         string          `gorm:"size:50;not null;index" json:"sku" binding:"required"`
	ProductName string          `gorm:"size:100;not null" json:"product_name" binding:"required"`
	BrandId     int             `gorm:"index;default:0" json:"brand_id"`
	SalesPrice  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sales_price"`
	Description string          `gorm:"type:text" json:"description"`
	OdooId      string          `gorm:"size:64;index" json:"odoo_id"`
	IsActive    *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	return GetResource[Product](ctx, id)
}

func GetActiveProducts(ctx context.Context) ([]*Product, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Product
	err := db.WithContext(ctx).
		Where("business_id = ? AND is_active = ?", businessId, true).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func SetProductOdooId(ctx context.Context, id int, odooId string) error {
	return setOdooId[Product](ctx, id, odooId)
}
