package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmbizsuite/console_backend/config"
	"github.com/mmbizsuite/console_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionTypeReceipt  TransactionType = "receipt"
	TransactionTypePayment  TransactionType = "payment"
	TransactionTypeTransfer TransactionType = "transfer"
)

// Transaction is a posted money movement owned by the ledger. The
// reconciliation engine may only touch its derived fields (bank_fees,
// gateway_fees, odoo_synced); business fields are immutable once posted.
type Transaction struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	BusinessId          string          `gorm:"size:64;not null;index;index:idx_txn_biz_date,priority:1" json:"business_id"`
	TransactionType     TransactionType `gorm:"type:enum('receipt','payment','transfer');size:12;not null;index" json:"transaction_type" binding:"required"`
	TransactionNumber   string          `gorm:"size:255" json:"transaction_number"`
	BankName            string          `gorm:"size:100;index" json:"bank_name"`
	GatewayName         string          `gorm:"size:100;index" json:"gateway_name"`
	TreasuryAccountId   int             `gorm:"index;default:0" json:"treasury_account_id"`
	DateInt             int             `gorm:"not null;index;index:idx_txn_biz_date,priority:2" json:"date_int"`
	TransactionDateTime time.Time       `gorm:"index;not null" json:"transaction_date_time"`
	Amount              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	// Derived fields, maintained by the reconciliation engine.
	BankFees    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"bank_fees"`
	GatewayFees decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gateway_fees"`
	OdooSynced  *bool           `gorm:"not null;default:false;index" json:"odoo_synced"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Posted transactions are append-only except for derived fields.

func (t *Transaction) BeforeUpdate(tx *gorm.DB) error {
	allowed := map[string]bool{
		"BankFees":    true,
		"GatewayFees": true,
		"OdooSynced":  true,
		"UpdatedAt":   true,
	}
	if tx == nil || tx.Statement == nil || tx.Statement.Schema == nil {
		return nil
	}
	for _, f := range tx.Statement.Schema.Fields {
		if tx.Statement.Changed(f.Name) && !allowed[f.Name] {
			return errors.New("immutable transaction: only derived fields may be updated")
		}
	}
	return nil
}

func (t *Transaction) BeforeDelete(tx *gorm.DB) error {
	return errors.New("immutable transaction: transactions cannot be deleted")
}

// ResetOdooSyncFlags clears the odoo_synced flag for every transaction in the
// inclusive [fromDateInt, toDateInt] range so the next sync run re-pushes them.
// Returns how many rows were flipped and how many rows the range holds.
func ResetOdooSyncFlags(ctx context.Context, fromDateInt int, toDateInt int) (updatedCount int64, totalCount int64, err error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return 0, 0, errors.New("business id is required")
	}
	if fromDateInt <= 0 || toDateInt <= 0 || fromDateInt > toDateInt {
		return 0, 0, errors.New("invalid date range")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&Transaction{}).
		Where("business_id = ? AND date_int >= ? AND date_int <= ?", businessId, fromDateInt, toDateInt).
		Count(&totalCount).Error
	if err != nil {
		return 0, 0, err
	}

	result := db.WithContext(ctx).Model(&Transaction{}).
		Where("business_id = ? AND date_int >= ? AND date_int <= ? AND odoo_synced = ?", businessId, fromDateInt, toDateInt, true).
		Update("OdooSynced", false)
	if result.Error != nil {
		return 0, totalCount, result.Error
	}
	return result.RowsAffected, totalCount, nil
}
