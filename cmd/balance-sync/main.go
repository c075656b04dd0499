package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/duitrumah/household_backend/config"
	"github.com/duitrumah/household_backend/models"
	"github.com/duitrumah/household_backend/utils"
	"github.com/duitrumah/household_backend/workflow"
	"github.com/joho/godotenv"
)

func main() {
	householdID := flag.String("household-id", "", "Household to check (uuid string). Required.")
	accountID := flag.Int("account-id", 0, "Optional: check only one account. If 0, checks all accounts of the household.")
	fix := flag.Bool("fix", false, "Rewrite stored balances that disagree with the ledger fold.")
	flag.Parse()

	if strings.TrimSpace(*householdID) == "" {
		fmt.Fprintln(os.Stderr, "-household-id is required")
		os.Exit(1)
	}

	_ = godotenv.Load()
	logger := config.NewLogger()
	db := config.ConnectDatabaseWithRetry()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	ctx := utils.SetHouseholdIdInContext(context.Background(), strings.TrimSpace(*householdID))
	ctx = utils.SetUserNameInContext(ctx, "BalanceSync")

	svc := workflow.NewLedgerService(db, logger)

	var accounts []*models.Account
	if *accountID != 0 {
		account, err := models.GetAccount(ctx, db, *accountID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load account %d: %v\n", *accountID, err)
			os.Exit(1)
		}
		accounts = append(accounts, account)
	} else {
		all, err := models.GetAccounts(ctx, db, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list accounts: %v\n", err)
			os.Exit(1)
		}
		accounts = all
	}

	drifted := 0
	for _, account := range accounts {
		ok, err := svc.ValidateIntegrity(ctx, account.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "account %d (%s): integrity check failed: %v\n", account.ID, account.Name, err)
			continue
		}
		if ok {
			continue
		}
		drifted++
		computed, err := svc.CalculateBalance(ctx, account.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "account %d (%s): fold failed: %v\n", account.ID, account.Name, err)
			continue
		}
		fmt.Printf("account %d (%s): stored=%d computed=%d\n", account.ID, account.Name, account.StoredBalance, computed)
		if *fix {
			if _, err := svc.SyncBalance(ctx, account.ID); err != nil {
				fmt.Fprintf(os.Stderr, "account %d (%s): sync failed: %v\n", account.ID, account.Name, err)
				continue
			}
			fmt.Printf("account %d (%s): stored balance rewritten to %d\n", account.ID, account.Name, computed)
		}
	}

	if drifted == 0 {
		fmt.Printf("checked %d account(s); all stored balances match the ledger\n", len(accounts))
		return
	}
	if !*fix {
		fmt.Printf("%d account(s) drifted; re-run with -fix to rewrite stored balances\n", drifted)
	}
}
