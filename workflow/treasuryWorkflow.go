package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mmbizsuite/console_backend/config"
	"github.com/mmbizsuite/console_backend/models"
	"github.com/mmbizsuite/console_backend/utils"
	"github.com/shopspring/decimal"
)

// defaultTreasuryEpsilon is the drift threshold below which the stored
// balance is left alone. Override with TREASURY_EPSILON.
var defaultTreasuryEpsilon = decimal.NewFromFloat(0.01)

func treasuryEpsilon() decimal.Decimal {
	if v := os.Getenv("TREASURY_EPSILON"); v != "" {
		if eps, err := utils.ParseDecimal(v); err == nil && eps.IsPositive() {
			return eps
		}
	}
	return defaultTreasuryEpsilon
}

// TreasuryDriftReport is the per-account outcome of one recompute pass.
type TreasuryDriftReport struct {
	AccountId      int             `json:"accountId"`
	AccountName    string          `json:"accountName"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	OldBalance     decimal.Decimal `json:"oldBalance"`
	NewBalance     decimal.Decimal `json:"newBalance"`
	Difference     decimal.Decimal `json:"difference"`
	Adjusted       bool            `json:"adjusted"`
}

// ComputeTreasuryBalance recomputes a balance from scratch: opening plus
// receipts, minus payments and transfers each with their charges.
func ComputeTreasuryBalance(opening decimal.Decimal, sums models.TreasuryEntrySums) decimal.Decimal {
	return opening.
		Add(sums.ReceiptAmount).
		Sub(sums.PaymentAmount).Sub(sums.PaymentCharges).
		Sub(sums.TransferAmount).Sub(sums.TransferCharges)
}

// RunTreasuryRecompute reconciles stored balances against a from-scratch
// recomputation over the full posted entry set. Drift beyond epsilon is
// overwritten and logged, never treated as an error. The pass is safe to
// run at any time; the best-effort scope lock only narrows the window in
// which a concurrent posting can make the snapshot slightly stale, and a
// re-run self-heals whatever that race left behind.
func RunTreasuryRecompute(ctx context.Context, accountId *int) ([]*TreasuryDriftReport, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if accountId != nil {
		if err := utils.ValidateResourceId[models.TreasuryAccount](ctx, businessId, *accountId); err != nil {
			return nil, err
		}
	}
	logger := config.GetLogger()

	release, err := utils.BusinessLock(ctx, businessId, "treasury-recompute", moduleName, "RunTreasuryRecompute")
	if err == nil {
		defer release()
	}

	accounts, err := models.GetTreasuryAccounts(ctx, accountId)
	if err != nil {
		return nil, err
	}

	job, attached, err := models.ClaimSyncJob(ctx, "treasury-recompute", "treasury-recompute", len(accounts))
	if err != nil {
		return nil, err
	}
	if attached {
		return nil, fmt.Errorf("treasury recompute already in progress (job %d)", job.ID)
	}

	epsilon := treasuryEpsilon()
	reports := make([]*TreasuryDriftReport, 0, len(accounts))

	for _, account := range accounts {
		sums, serr := models.SumTreasuryEntries(ctx, account.ID)
		if serr != nil {
			_ = job.MarkFailed(time.Now(), serr.Error())
			if perr := models.SaveSyncJobProgress(ctx, job); perr != nil {
				config.LogError(logger, moduleName, "RunTreasuryRecompute", "persist job progress", job.ID, perr)
			}
			publishJobEvent(ctx, job)
			return reports, serr
		}

		computed := ComputeTreasuryBalance(account.OpeningBalance, *sums)
		report := &TreasuryDriftReport{
			AccountId:      account.ID,
			AccountName:    account.AccountName,
			OpeningBalance: account.OpeningBalance,
			OldBalance:     account.CurrentBalance,
			NewBalance:     computed,
			Difference:     computed.Sub(account.CurrentBalance),
		}

		if report.Difference.Abs().GreaterThan(epsilon) {
			if werr := models.OverwriteTreasuryBalance(ctx, account, computed); werr != nil {
				_ = job.MarkFailed(time.Now(), werr.Error())
				if perr := models.SaveSyncJobProgress(ctx, job); perr != nil {
					config.LogError(logger, moduleName, "RunTreasuryRecompute", "persist job progress", job.ID, perr)
				}
				publishJobEvent(ctx, job)
				return reports, werr
			}
			report.Adjusted = true
			config.LogWarn(logger, moduleName, "RunTreasuryRecompute",
				"treasury balance drift corrected",
				map[string]interface{}{
					"account_id": account.ID,
					"old":        report.OldBalance,
					"new":        report.NewBalance,
					"difference": report.Difference,
				})
		}

		reports = append(reports, report)
		_ = job.RecordProgress(account.AccountName, true, time.Now())
	}

	_ = job.MarkCompleted(time.Now())
	if err := models.SaveSyncJobProgress(ctx, job); err != nil {
		config.LogError(logger, moduleName, "RunTreasuryRecompute", "persist job progress", job.ID, err)
	}
	publishJobEvent(ctx, job)

	return reports, nil
}
