package models

import (
	"testing"

	"github.com/mmbizsuite/console_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pair(id int, transactionType TransactionType, counterparty string) *FeePair {
	return &FeePair{
		ID:              id,
		Kind:            FeeKindBank,
		TransactionType: transactionType,
		Counterparty:    counterparty,
		FeePercent:      decimal.NewFromFloat(2.5),
		TaxMultiplier:   decimal.NewFromInt(1),
		IsActive:        utils.NewTrue(),
	}
}

func TestResolveFeePair(t *testing.T) {
	pairs := []*FeePair{
		pair(1, TransactionTypeReceipt, "KBZ Bank"),
		pair(2, TransactionTypePayment, "KBZ Bank"),
		pair(3, TransactionTypeReceipt, "Wave Pay"),
	}

	t.Run("exact match", func(t *testing.T) {
		match, n := ResolveFeePair(pairs, TransactionTypeReceipt, "KBZ Bank")
		require.NotNil(t, match)
		assert.Equal(t, 1, match.ID)
		assert.Equal(t, 1, n)
	})

	t.Run("case insensitive", func(t *testing.T) {
		match, n := ResolveFeePair(pairs, TransactionTypeReceipt, "kbz bank")
		require.NotNil(t, match)
		assert.Equal(t, 1, match.ID)
		assert.Equal(t, 1, n)

		match, _ = ResolveFeePair(pairs, "RECEIPT", "WAVE PAY")
		require.NotNil(t, match)
		assert.Equal(t, 3, match.ID)
	})

	t.Run("whitespace trimmed", func(t *testing.T) {
		match, _ := ResolveFeePair(pairs, TransactionTypeReceipt, "  KBZ Bank  ")
		require.NotNil(t, match)
		assert.Equal(t, 1, match.ID)
	})

	t.Run("both labels must match", func(t *testing.T) {
		match, n := ResolveFeePair(pairs, TransactionTypeTransfer, "KBZ Bank")
		assert.Nil(t, match)
		assert.Equal(t, 0, n)
	})

	t.Run("unconfigured counterparty", func(t *testing.T) {
		match, n := ResolveFeePair(pairs, TransactionTypeReceipt, "AYA Bank")
		assert.Nil(t, match)
		assert.Equal(t, 0, n)
	})

	t.Run("duplicates return the first match and the real count", func(t *testing.T) {
		dup := append([]*FeePair{}, pairs...)
		dup = append(dup, pair(4, TransactionTypeReceipt, "KBZ BANK "))

		match, n := ResolveFeePair(dup, TransactionTypeReceipt, "KBZ Bank")
		require.NotNil(t, match)
		assert.Equal(t, 1, match.ID, "first match wins")
		assert.Equal(t, 2, n, "duplicate is surfaced, not hidden")
	})

	t.Run("nil entries are ignored", func(t *testing.T) {
		withNil := []*FeePair{nil, pairs[0]}
		match, n := ResolveFeePair(withNil, TransactionTypeReceipt, "KBZ Bank")
		require.NotNil(t, match)
		assert.Equal(t, 1, n)
	})

	t.Run("empty config", func(t *testing.T) {
		match, n := ResolveFeePair(nil, TransactionTypeReceipt, "KBZ Bank")
		assert.Nil(t, match)
		assert.Equal(t, 0, n)
	})
}
