package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mmbizsuite/console_backend/config"
	"github.com/mmbizsuite/console_backend/utils"
	"github.com/mmbizsuite/console_backend/workflow"
)

// One-off ops tool: recompute treasury balances for a tenant without going
// through the HTTP surface. Redis is optional here; without it the scope
// lock is skipped and the pass is merely advisory, which it is anyway.
//
// Usage:
//
//	treasury-recompute -business <business_id> [-account <id>] [-redis]
func main() {
	businessId := flag.String("business", "", "business id to recompute (required)")
	accountId := flag.Int("account", 0, "treasury account id (0 = all accounts)")
	withRedis := flag.Bool("redis", false, "connect redis for the scope lock")
	flag.Parse()

	if *businessId == "" {
		flag.Usage()
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	if *withRedis {
		config.ConnectRedisWithRetry()
	}

	ctx := utils.SetBusinessIdInContext(context.Background(), *businessId)

	var account *int
	if *accountId > 0 {
		account = accountId
	}

	reports, err := workflow.RunTreasuryRecompute(ctx, account)
	if err != nil {
		log.Fatalf("treasury recompute failed: %v", err)
	}

	for _, r := range reports {
		status := "ok"
		if r.Adjusted {
			status = "adjusted"
		}
		fmt.Printf("account=%d name=%q opening=%s old=%s new=%s diff=%s %s\n",
			r.AccountId, r.AccountName, r.OpeningBalance, r.OldBalance, r.NewBalance, r.Difference, status)
	}
	fmt.Printf("%d account(s) checked\n", len(reports))
}
