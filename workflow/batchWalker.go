package workflow

import (
	"context"
	"fmt"

	"github.com/mmbizsuite/console_backend/config"
	"github.com/mmbizsuite/console_backend/models"
)

const (
	// DefaultPageSize bounds each read and each upsert batch.
	DefaultPageSize = 100
	// DefaultMaxPages caps one invocation; execution environments impose a
	// wall-clock limit per invocation, so the walker bounds work by page
	// count and reports a resumption cursor instead of polling the clock.
	DefaultMaxPages = 10
)

// BatchResult is the outcome of one walker invocation. Counts are partial
// progress: they are returned even when the run aborts early so operators
// can resume from NextCursor rather than restart from zero.
type BatchResult struct {
	JobId          int   `json:"jobId,omitempty"`
	UpdatedCount   int   `json:"updatedCount"`
	SkippedCount   int   `json:"skippedCount"`
	RemainingCount int64 `json:"remainingCount"`
	NeedsMoreRuns  bool  `json:"needsMoreRuns"`
	NextCursor     *int  `json:"nextCursor"`
}

// FeeStore is the walker's datastore seam. FetchPage must return rows
// ordered by id descending, strictly below the cursor when one is given,
// filtered to rows whose derived fee is still unset. UpsertPage must be a
// full-row upsert keyed by primary id, safe to apply more than once.
type FeeStore interface {
	FetchPage(ctx context.Context, kind models.FeeKind, cursor *int, pageSize int) ([]*models.Transaction, error)
	UpsertPage(ctx context.Context, rows []*models.Transaction) error
	CountRemaining(ctx context.Context, kind models.FeeKind, cursor *int) (int64, error)
}

// WalkerOptions tunes one invocation. Zero values take the defaults.
type WalkerOptions struct {
	PageSize int
	MaxPages int
}

func (o WalkerOptions) withDefaults() WalkerOptions {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	return o
}

// ProgressFunc is invoked once per processed record so the caller can feed
// the sync job tracker. matched=false means the record had no active pair
// configuration and was skipped, which is counted separately from failures.
type ProgressFunc func(item string, matched bool)

// WalkFeePages drives the cursor-paginated fee recalculation. Pages are
// processed strictly sequentially: the cursor only ever decreases, which
// guarantees forward progress and keeps rows inserted by concurrent writers
// (always with higher ids) out of this walk.
//
// The walk terminates on an empty page or on the page ceiling. A datastore
// error aborts the invocation and is returned together with the partial
// result; pages already upserted stay committed and are idempotent to
// reapply, so re-invoking from the returned cursor is always safe.
func WalkFeePages(ctx context.Context, store FeeStore, kind models.FeeKind, pairs []*models.FeePair, cursor *int, opts WalkerOptions, progress ProgressFunc) (*BatchResult, error) {
	opts = opts.withDefaults()
	logger := config.GetLogger()

	result := &BatchResult{NextCursor: cursor}
	warnedPairs := map[string]bool{}
	exhausted := false

	for page := 0; page < opts.MaxPages; page++ {
		rows, err := store.FetchPage(ctx, kind, result.NextCursor, opts.PageSize)
		if err != nil {
			return result, fmt.Errorf("fetch page: %w", err)
		}
		if len(rows) == 0 {
			exhausted = true
			break
		}

		updated := make([]*models.Transaction, 0, len(rows))
		for _, txn := range rows {
			counterparty := txn.BankName
			if kind == models.FeeKindGateway {
				counterparty = txn.GatewayName
			}

			pair, matches := models.ResolveFeePair(pairs, txn.TransactionType, counterparty)
			if matches > 1 {
				// Ambiguous config is a data issue to report, not hide;
				// first match wins, warn once per pair per run.
				key := fmt.Sprintf("%s|%s", txn.TransactionType, counterparty)
				if !warnedPairs[key] {
					warnedPairs[key] = true
					config.LogWarn(logger, "workflow", "WalkFeePages",
						"multiple active fee pairs for the same labels", key)
				}
			}
			if pair == nil {
				// Unconfigured: skip, never default to zero.
				result.SkippedCount++
				if progress != nil {
					progress(txn.TransactionNumber, false)
				}
				continue
			}

			fee := CalculateFee(txn.Amount, FeeConfigFromPair(pair))
			if kind == models.FeeKindGateway {
				txn.GatewayFees = fee
			} else {
				txn.BankFees = fee
			}
			updated = append(updated, txn)
			if progress != nil {
				progress(txn.TransactionNumber, true)
			}
		}

		if len(updated) > 0 {
			if err := store.UpsertPage(ctx, updated); err != nil {
				return result, fmt.Errorf("upsert page: %w", err)
			}
			result.UpdatedCount += len(updated)
		}

		// Rows come back id-descending; the last row is the new boundary.
		last := rows[len(rows)-1].ID
		result.NextCursor = &last

		if len(rows) < opts.PageSize {
			exhausted = true
			break
		}
	}

	if exhausted {
		result.NextCursor = nil
		result.RemainingCount = 0
		result.NeedsMoreRuns = false
		return result, nil
	}

	remaining, err := store.CountRemaining(ctx, kind, result.NextCursor)
	if err != nil {
		return result, fmt.Errorf("count remaining: %w", err)
	}
	result.RemainingCount = remaining
	result.NeedsMoreRuns = remaining > 0
	if remaining == 0 {
		result.NextCursor = nil
	}
	return result, nil
}
