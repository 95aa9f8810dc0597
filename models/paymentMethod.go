package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmbizsuite/console_backend/config"
	"github.com/mmbizsuite/console_backend/utils"
)

// PaymentMethod is a canonical payment-method record mirrored into Odoo.
type PaymentMethod struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"size:64;not null;index" json:"business_id"`
	MethodCode string    `gorm:"size:50;not null;index" json:"method_code" binding:"required"`
	MethodName string    `gorm:"size:100;not null" json:"method_name" binding:"required"`
	OdooId     string    `gorm:"size:64;index" json:"odoo_id"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetPaymentMethod(ctx context.Context, id int) (*PaymentMethod, error) {
	return GetResource[PaymentMethod](ctx, id)
}

func GetActivePaymentMethods(ctx context.Context) ([]*PaymentMethod, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*PaymentMethod
	err := db.WithContext(ctx).
		Where("business_id = ? AND is_active = ?", businessId, true).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func SetPaymentMethodOdooId(ctx context.Context, id int, odooId string) error {
	return setOdooId[PaymentMethod](ctx, id, odooId)
}
