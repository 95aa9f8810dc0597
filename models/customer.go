package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmbizsuite/console_backend/config"
	"github.com/mmbizsuite/console_backend/utils"
)

// Customer is a canonical CRM record mirrored into Odoo, addressed remotely
// by its customer code.
type Customer struct {
	ID           int       `gorm:"primary_key" json:"id"`
	BusinessId   string    `gorm:"size:64;not null;index" json:"business_id"`
	CustomerCode string    `gorm:"size:50;not null;index" json:"customer_code" binding:"required"`
	CustomerName string    `gorm:"size:100;not null" json:"customer_name" binding:"required"`
	Email        string    `gorm:"size:100" json:"email"`
	Phone        string    `gorm:"size:50" json:"phone"`
	OdooId       string    `gorm:"size:64;index" json:"odoo_id"`
	IsActive     *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	return GetResource[Customer](ctx, id)
}

func GetActiveCustomers(ctx context.Context) ([]*Customer, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Customer
	err := db.WithContext(ctx).
		Where("business_id = ? AND is_active = ?", businessId, true).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func SetCustomerOdooId(ctx context.Context, id int, odooId string) error {
	return setOdooId[Customer](ctx, id, odooId)
}
