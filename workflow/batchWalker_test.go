package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/mmbizsuite/console_backend/models"
	"github.com/mmbizsuite/console_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFeeStore keeps transactions in memory with the same contract as the
// MySQL store: id-descending pages below the cursor, eligibility = derived
// fee still zero and counterparty label present.
type fakeFeeStore struct {
	rows map[int]*models.Transaction

	fetchCalls  int
	failOnFetch int // fail the Nth fetch (1-based); 0 disables
}

func newFakeFeeStore(rows []*models.Transaction) *fakeFeeStore {
	m := make(map[int]*models.Transaction, len(rows))
	for _, r := range rows {
		cp := *r
		m[r.ID] = &cp
	}
	return &fakeFeeStore{rows: m}
}

func (s *fakeFeeStore) eligible(kind models.FeeKind, r *models.Transaction) bool {
	if kind == models.FeeKindGateway {
		return r.GatewayFees.IsZero() && r.GatewayName != ""
	}
	return r.BankFees.IsZero() && r.BankName != ""
}

func (s *fakeFeeStore) matching(kind models.FeeKind, cursor *int) []*models.Transaction {
	var out []*models.Transaction
	for _, r := range s.rows {
		if !s.eligible(kind, r) {
			continue
		}
		if cursor != nil && r.ID >= *cursor {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *fakeFeeStore) FetchPage(ctx context.Context, kind models.FeeKind, cursor *int, pageSize int) ([]*models.Transaction, error) {
	s.fetchCalls++
	if s.failOnFetch > 0 && s.fetchCalls == s.failOnFetch {
		return nil, errors.New("datastore unavailable")
	}

	rows := s.matching(kind, cursor)
	if len(rows) > pageSize {
		rows = rows[:pageSize]
	}
	// Hand out copies so the walker's mutations only land via UpsertPage.
	out := make([]*models.Transaction, len(rows))
	for i, r := range rows {
		cp := *r
		out[i] = &cp
	}
	return out, nil
}

func (s *fakeFeeStore) UpsertPage(ctx context.Context, rows []*models.Transaction) error {
	for _, r := range rows {
		cp := *r
		s.rows[r.ID] = &cp // full-row replace keyed by id
	}
	return nil
}

func (s *fakeFeeStore) CountRemaining(ctx context.Context, kind models.FeeKind, cursor *int) (int64, error) {
	return int64(len(s.matching(kind, cursor))), nil
}

func bankPair(t *testing.T, transactionType models.TransactionType, counterparty string) *models.FeePair {
	t.Helper()
	return &models.FeePair{
		Kind:            models.FeeKindBank,
		TransactionType: transactionType,
		Counterparty:    counterparty,
		FeePercent:      dec(t, "2.5"),
		FeeFixed:        dec(t, "1.0"),
		TaxMultiplier:   dec(t, "1.15"),
		IsActive:        utils.NewTrue(),
	}
}

func seedTransactions(n int, bankName string) []*models.Transaction {
	rows := make([]*models.Transaction, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, &models.Transaction{
			ID:                i,
			TransactionType:   models.TransactionTypeReceipt,
			TransactionNumber: fmt.Sprintf("TXN-%04d", i),
			BankName:          bankName,
			Amount:            decimal.NewFromInt(1000),
		})
	}
	return rows
}

func TestWalkFeePages_ExhaustsInOneInvocation(t *testing.T) {
	store := newFakeFeeStore(seedTransactions(25, "KBZ Bank"))
	pairs := []*models.FeePair{bankPair(t, models.TransactionTypeReceipt, "KBZ Bank")}

	result, err := WalkFeePages(context.Background(), store, models.FeeKindBank, pairs, nil,
		WalkerOptions{PageSize: 10, MaxPages: 10}, nil)
	require.NoError(t, err)

	assert.Equal(t, 25, result.UpdatedCount)
	assert.Equal(t, 0, result.SkippedCount)
	assert.False(t, result.NeedsMoreRuns)
	assert.Nil(t, result.NextCursor)
	assert.EqualValues(t, 0, result.RemainingCount)

	for _, r := range store.rows {
		assert.Equal(t, "29.9", r.BankFees.String(), "id=%d", r.ID)
	}
}

func TestWalkFeePages_ResumesAcrossInvocations(t *testing.T) {
	store := newFakeFeeStore(seedTransactions(25, "KBZ Bank"))
	pairs := []*models.FeePair{bankPair(t, models.TransactionTypeReceipt, "KBZ Bank")}
	opts := WalkerOptions{PageSize: 10, MaxPages: 1}

	var cursor *int
	var cursors []int
	totalUpdated := 0
	for i := 0; i < 10; i++ {
		result, err := WalkFeePages(context.Background(), store, models.FeeKindBank, pairs, cursor, opts, nil)
		require.NoError(t, err)
		totalUpdated += result.UpdatedCount
		if !result.NeedsMoreRuns {
			assert.Nil(t, result.NextCursor)
			break
		}
		require.NotNil(t, result.NextCursor)
		cursors = append(cursors, *result.NextCursor)
		cursor = result.NextCursor
	}

	// The sum across invocations is the full eligible set, each row once.
	assert.Equal(t, 25, totalUpdated)
	// The resumption cursor strictly decreases.
	for i := 1; i < len(cursors); i++ {
		assert.Less(t, cursors[i], cursors[i-1])
	}
	for _, r := range store.rows {
		assert.Equal(t, "29.9", r.BankFees.String())
	}
}

func TestWalkFeePages_UnconfiguredPairIsSkippedNotZeroed(t *testing.T) {
	rows := seedTransactions(6, "KBZ Bank")
	// Two rows point at a counterparty with no active config.
	rows[1].BankName = "AYA Bank"
	rows[4].BankName = "AYA Bank"
	store := newFakeFeeStore(rows)
	pairs := []*models.FeePair{bankPair(t, models.TransactionTypeReceipt, "KBZ Bank")}

	var matchedFlags []bool
	progress := func(item string, matched bool) { matchedFlags = append(matchedFlags, matched) }

	result, err := WalkFeePages(context.Background(), store, models.FeeKindBank, pairs, nil,
		WalkerOptions{PageSize: 10, MaxPages: 10}, progress)
	require.NoError(t, err)

	assert.Equal(t, 4, result.UpdatedCount)
	assert.Equal(t, 2, result.SkippedCount)
	assert.Len(t, matchedFlags, 6)

	// Skipped rows are left untouched, not written with a zero fee.
	assert.True(t, store.rows[2].BankFees.IsZero())
	assert.True(t, store.rows[5].BankFees.IsZero())
	assert.Equal(t, "29.9", store.rows[1].BankFees.String())
}

func TestWalkFeePages_Idempotent(t *testing.T) {
	seed := seedTransactions(12, "KBZ Bank")
	first := newFakeFeeStore(seed)
	second := newFakeFeeStore(seed)
	pairs := []*models.FeePair{bankPair(t, models.TransactionTypeReceipt, "KBZ Bank")}
	opts := WalkerOptions{PageSize: 5, MaxPages: 10}

	_, err := WalkFeePages(context.Background(), first, models.FeeKindBank, pairs, nil, opts, nil)
	require.NoError(t, err)
	_, err = WalkFeePages(context.Background(), second, models.FeeKindBank, pairs, nil, opts, nil)
	require.NoError(t, err)

	// Same inputs, bit-identical stored values.
	for id, r := range first.rows {
		assert.Equal(t, r.BankFees.String(), second.rows[id].BankFees.String())
	}

	// Re-applying an already-written page changes nothing.
	var page []*models.Transaction
	for _, r := range first.rows {
		cp := *r
		page = append(page, &cp)
	}
	require.NoError(t, first.UpsertPage(context.Background(), page))
	for id, r := range first.rows {
		assert.Equal(t, second.rows[id].BankFees.String(), r.BankFees.String())
	}
}

func TestWalkFeePages_FetchErrorReturnsPartialProgress(t *testing.T) {
	store := newFakeFeeStore(seedTransactions(25, "KBZ Bank"))
	store.failOnFetch = 2
	pairs := []*models.FeePair{bankPair(t, models.TransactionTypeReceipt, "KBZ Bank")}

	result, err := WalkFeePages(context.Background(), store, models.FeeKindBank, pairs, nil,
		WalkerOptions{PageSize: 10, MaxPages: 10}, nil)
	require.Error(t, err)
	require.NotNil(t, result)

	// The first page committed and the caller got a cursor to resume from.
	assert.Equal(t, 10, result.UpdatedCount)
	require.NotNil(t, result.NextCursor)
	assert.Equal(t, 16, *result.NextCursor)

	// Resuming from the returned cursor finishes the walk.
	store.failOnFetch = 0
	resumed, err := WalkFeePages(context.Background(), store, models.FeeKindBank, pairs, result.NextCursor,
		WalkerOptions{PageSize: 10, MaxPages: 10}, nil)
	require.NoError(t, err)
	assert.Equal(t, 15, resumed.UpdatedCount)
	assert.False(t, resumed.NeedsMoreRuns)
}
