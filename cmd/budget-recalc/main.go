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
	householdID := flag.String("household-id", "", "Household to recalculate (uuid string). Required.")
	budgetID := flag.Int("budget-id", 0, "Optional: recalculate only one budget. If 0, recalculates every active budget of the household.")
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

	rdb, _ := config.ConnectRedisWithRetry()
	defer func() {
		if rdb != nil {
			_ = rdb.Close()
		}
	}()

	hid := strings.TrimSpace(*householdID)
	ctx := utils.SetHouseholdIdInContext(context.Background(), hid)
	ctx = utils.SetUserNameInContext(ctx, "BudgetRecalc")

	tracker := workflow.NewSpendTracker(db, logger, rdb)

	var budgetIds []int
	if *budgetID != 0 {
		budgetIds = append(budgetIds, *budgetID)
	} else {
		budgets, err := models.GetActiveBudgets(ctx, db, hid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list active budgets: %v\n", err)
			os.Exit(1)
		}
		for _, b := range budgets {
			budgetIds = append(budgetIds, b.ID)
		}
	}
	if len(budgetIds) == 0 {
		fmt.Println("no budgets to recalculate")
		return
	}

	failed := 0
	for _, id := range budgetIds {
		if err := tracker.Recalculate(ctx, id); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "budget %d: recalculate failed: %v\n", id, err)
			continue
		}
		fmt.Printf("budget %d: spent amounts recalculated\n", id)
	}
	if failed > 0 {
		os.Exit(1)
	}
}
