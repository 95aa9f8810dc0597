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

type TreasuryEntryType string

const (
	TreasuryEntryTypeReceipt  TreasuryEntryType = "receipt"
	TreasuryEntryTypePayment  TreasuryEntryType = "payment"
	TreasuryEntryTypeTransfer TreasuryEntryType = "transfer"
)

// TreasuryAccount holds an opening balance plus an incrementally maintained
// current balance. The current balance is derived, never the source of
// truth: the aggregator recomputes it from the full entry set and overwrites
// it when drift exceeds epsilon.
type TreasuryAccount struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"size:64;not null;index" json:"business_id"`
	AccountName    string          `gorm:"index;size:100;not null" json:"account_name" binding:"required"`
	AccountCode    string          `gorm:"size:50" json:"account_code"`
	CurrencyCode   string          `gorm:"size:10;not null;default:'MMK'" json:"currency_code"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"opening_balance"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_balance"`
	IsActive       *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TreasuryEntry is one posted movement against a treasury account, already
// converted to the account's unit. Entries are append-only.
type TreasuryEntry struct {
	ID                  int               `gorm:"primary_key" json:"id"`
	BusinessId          string            `gorm:"size:64;not null;index;index:idx_te_biz_acct,priority:1" json:"business_id"`
	TreasuryAccountId   int               `gorm:"not null;index;index:idx_te_biz_acct,priority:2" json:"treasury_account_id" binding:"required"`
	EntryType           TreasuryEntryType `gorm:"type:enum('receipt','payment','transfer');size:12;not null" json:"entry_type" binding:"required"`
	Amount              decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Charges             decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"charges"`
	Description         string            `gorm:"size:255" json:"description"`
	TransactionDateTime time.Time         `gorm:"index;not null" json:"transaction_date_time"`
	CreatedAt           time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

func (e *TreasuryEntry) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("immutable ledger: treasury_entries cannot be updated")
}

func (e *TreasuryEntry) BeforeDelete(tx *gorm.DB) error {
	return errors.New("immutable ledger: treasury_entries cannot be deleted")
}

// GetTreasuryAccounts returns the accounts the recompute pass walks.
// A nil accountId means all active accounts of the tenant.
func GetTreasuryAccounts(ctx context.Context, accountId *int) ([]*TreasuryAccount, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ? AND is_active = ?", businessId, true)
	if accountId != nil && *accountId > 0 {
		dbCtx = dbCtx.Where("id = ?", *accountId)
	}
	var results []*TreasuryAccount
	err := dbCtx.Order("id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// TreasuryEntrySums is the per-type aggregate over an account's posted
// entries, charges summed alongside each type.
type TreasuryEntrySums struct {
	ReceiptAmount   decimal.Decimal `json:"receipt_amount"`
	PaymentAmount   decimal.Decimal `json:"payment_amount"`
	PaymentCharges  decimal.Decimal `json:"payment_charges"`
	TransferAmount  decimal.Decimal `json:"transfer_amount"`
	TransferCharges decimal.Decimal `json:"transfer_charges"`
}

func SumTreasuryEntries(ctx context.Context, accountId int) (*TreasuryEntrySums, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var sums TreasuryEntrySums
	sql := `
		SELECT
		    COALESCE(SUM(CASE WHEN entry_type = 'receipt' THEN amount ELSE 0 END), 0)   AS receipt_amount,
		    COALESCE(SUM(CASE WHEN entry_type = 'payment' THEN amount ELSE 0 END), 0)   AS payment_amount,
		    COALESCE(SUM(CASE WHEN entry_type = 'payment' THEN charges ELSE 0 END), 0)  AS payment_charges,
		    COALESCE(SUM(CASE WHEN entry_type = 'transfer' THEN amount ELSE 0 END), 0)  AS transfer_amount,
		    COALESCE(SUM(CASE WHEN entry_type = 'transfer' THEN charges ELSE 0 END), 0) AS transfer_charges
		FROM treasury_entries
		WHERE business_id = ? AND treasury_account_id = ?
	`
	if err := db.WithContext(ctx).Raw(sql, businessId, accountId).Scan(&sums).Error; err != nil {
		return nil, err
	}
	return &sums, nil
}

// OverwriteTreasuryBalance stores the recomputed balance. Only the derived
// column is touched.
func OverwriteTreasuryBalance(ctx context.Context, account *TreasuryAccount, newBalance decimal.Decimal) error {
	if account == nil || account.ID == 0 {
		return errors.New("treasury account is not persisted")
	}
	db := config.GetDB()
	err := db.WithContext(ctx).Model(account).Update("CurrentBalance", newBalance).Error
	if err != nil {
		return err
	}
	account.CurrentBalance = newBalance
	return nil
}
