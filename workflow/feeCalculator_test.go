package workflow

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestCalculateFee(t *testing.T) {
	cfg := FeeConfig{
		Percent:       dec(t, "2.5"),
		Fixed:         dec(t, "1.0"),
		TaxMultiplier: dec(t, "1.15"),
	}

	t.Run("reference vector", func(t *testing.T) {
		// (1000 × 0.025 + 1) × 1.15 = 29.9
		fee := CalculateFee(dec(t, "1000"), cfg)
		assert.True(t, fee.Equal(dec(t, "29.9")), "got %s", fee)
	})

	t.Run("zero amount", func(t *testing.T) {
		// Only the fixed component remains.
		fee := CalculateFee(decimal.Zero, cfg)
		assert.True(t, fee.Equal(dec(t, "1.15")), "got %s", fee)
	})

	t.Run("negative amount passes through", func(t *testing.T) {
		fee := CalculateFee(dec(t, "-1000"), cfg)
		assert.True(t, fee.Equal(dec(t, "-27.6")), "got %s", fee)
	})

	t.Run("deterministic", func(t *testing.T) {
		a := CalculateFee(dec(t, "123.4567"), cfg)
		b := CalculateFee(dec(t, "123.4567"), cfg)
		assert.True(t, a.Equal(b))
		assert.Equal(t, a.String(), b.String())
	})

	t.Run("zero-rate config is still a config", func(t *testing.T) {
		// A configured pair with zero components yields a zero fee; only a
		// MISSING pair means "no fee computed" and that is the caller's
		// decision, never this function's.
		zero := FeeConfig{Percent: decimal.Zero, Fixed: decimal.Zero, TaxMultiplier: decimal.NewFromInt(1)}
		fee := CalculateFee(dec(t, "500"), zero)
		assert.True(t, fee.IsZero())
	})
}
