package workflow

import (
	"github.com/mmbizsuite/console_backend/models"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// FeeConfig is the resolved fee configuration for one counterparty pair.
type FeeConfig struct {
	Percent       decimal.Decimal
	Fixed         decimal.Decimal
	TaxMultiplier decimal.Decimal
}

func FeeConfigFromPair(pair *models.FeePair) FeeConfig {
	return FeeConfig{
		Percent:       pair.FeePercent,
		Fixed:         pair.FeeFixed,
		TaxMultiplier: pair.TaxMultiplier,
	}
}

// CalculateFee computes fee = (amount × percent/100 + fixed) × taxMultiplier.
//
// Deterministic and total: zero and negative amounts are passed through the
// formula, never rejected. The caller decides what "no configuration" means;
// this function is only ever called with a resolved config and never
// substitutes defaults.
func CalculateFee(amount decimal.Decimal, cfg FeeConfig) decimal.Decimal {
	return amount.Mul(cfg.Percent).Div(oneHundred).Add(cfg.Fixed).Mul(cfg.TaxMultiplier)
}
