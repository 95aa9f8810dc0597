package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmbizsuite/console_backend/config"
	"github.com/mmbizsuite/console_backend/utils"
	"github.com/shopspring/decimal"
)

type FeeKind string

const (
	FeeKindBank    FeeKind = "bank"
	FeeKindGateway FeeKind = "gateway"
)

// FeePair is the fee configuration for one (transaction type, counterparty)
// label pair. At most one active pair per (kind, type, counterparty) is
// expected; absence means "unconfigured", never "zero fee".
type FeePair struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"size:64;not null;index" json:"business_id"`
	Kind            FeeKind         `gorm:"type:enum('bank','gateway');size:12;not null;index" json:"kind" binding:"required"`
	TransactionType TransactionType `gorm:"type:enum('receipt','payment','transfer');size:12;not null" json:"transaction_type" binding:"required"`
	Counterparty    string          `gorm:"size:100;not null" json:"counterparty" binding:"required"`
	FeePercent      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"fee_percent"`
	FeeFixed        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"fee_fixed"`
	TaxMultiplier   decimal.Decimal `gorm:"type:decimal(20,4);default:1" json:"tax_multiplier"`
	IsActive        *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFeePair struct {
	Kind            FeeKind         `json:"kind" binding:"required"`
	TransactionType TransactionType `json:"transaction_type" binding:"required"`
	Counterparty    string          `json:"counterparty" binding:"required"`
	FeePercent      decimal.Decimal `json:"fee_percent"`
	FeeFixed        decimal.Decimal `json:"fee_fixed"`
	TaxMultiplier   decimal.Decimal `json:"tax_multiplier"`
}

// ErrDuplicateFeePair rejects a second active configuration for labels that
// already have one; the resolver would report it as ambiguous config.
var ErrDuplicateFeePair = errors.New("an active fee pair for these labels already exists")

func CreateFeePair(ctx context.Context, input *NewFeePair) (*FeePair, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	count, err := utils.ResourceCountWhere[FeePair](ctx, businessId,
		"kind = ? AND transaction_type = ? AND counterparty = ? AND is_active = ?",
		input.Kind, input.TransactionType, strings.TrimSpace(input.Counterparty), true)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateFeePair
	}

	taxMultiplier := input.TaxMultiplier
	if taxMultiplier.IsZero() {
		taxMultiplier = decimal.NewFromInt(1)
	}

	pair := FeePair{
		BusinessId:      businessId,
		Kind:            input.Kind,
		TransactionType: input.TransactionType,
		Counterparty:    strings.TrimSpace(input.Counterparty),
		FeePercent:      input.FeePercent,
		FeeFixed:        input.FeeFixed,
		TaxMultiplier:   taxMultiplier,
		IsActive:        utils.NewTrue(),
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Create(&pair).Error
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

func ToggleActiveFeePair(ctx context.Context, id int, isActive bool) (*FeePair, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	return ToggleActiveModel[FeePair](ctx, businessId, id, isActive)
}

// GetFeePairs lists every configured pair for the tenant, active or not.
func GetFeePairs(ctx context.Context) ([]*FeePair, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchAllModels[FeePair](ctx, businessId)
}

// GetActiveFeePairs loads the active fee configurations of one kind for the
// tenant. Batch runs load them once per invocation, not per page.
func GetActiveFeePairs(ctx context.Context, kind FeeKind) ([]*FeePair, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*FeePair
	err := db.WithContext(ctx).
		Where("business_id = ? AND kind = ? AND is_active = ?", businessId, kind, true).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ResolveFeePair finds the active configuration for a (transaction type,
// counterparty) pair. Matching is case-insensitive and whitespace-trimmed on
// both labels. Returns the first match plus the total number of matches;
// matches > 1 is a configuration error the caller should report, not hide.
// A nil result means "unconfigured" and the record must be skipped, not
// defaulted to a zero fee.
func ResolveFeePair(pairs []*FeePair, transactionType TransactionType, counterparty string) (*FeePair, int) {
	wantType := normalizeLabel(string(transactionType))
	wantCounterparty := normalizeLabel(counterparty)

	var match *FeePair
	matches := 0
	for _, pair := range pairs {
		if pair == nil {
			continue
		}
		if normalizeLabel(string(pair.TransactionType)) != wantType {
			continue
		}
		if normalizeLabel(pair.Counterparty) != wantCounterparty {
			continue
		}
		matches++
		if match == nil {
			match = pair
		}
	}
	return match, matches
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
