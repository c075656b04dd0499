package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/duitrumah/household_backend/config"
	"github.com/duitrumah/household_backend/models/reports"
	"github.com/duitrumah/household_backend/utils"
	"github.com/joho/godotenv"
)

func main() {
	householdID := flag.String("household-id", "", "Household owning the budget (uuid string). Required.")
	budgetID := flag.Int("budget-id", 0, "Budget to summarize. Required.")
	out := flag.String("out", "", "Optional: write the summary to this xlsx file instead of stdout only.")
	flag.Parse()

	if strings.TrimSpace(*householdID) == "" || *budgetID == 0 {
		fmt.Fprintln(os.Stderr, "-household-id and -budget-id are required")
		os.Exit(1)
	}

	_ = godotenv.Load()
	db := config.ConnectDatabaseWithRetry()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	ctx := utils.SetHouseholdIdInContext(context.Background(), strings.TrimSpace(*householdID))
	ctx = utils.SetUserNameInContext(ctx, "BudgetReport")

	summary, err := reports.GetBudgetSummary(ctx, db, *budgetID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build summary for budget %d: %v\n", *budgetID, err)
		os.Exit(1)
	}

	fmt.Printf("%s [%s] %s - %s (%s)\n", summary.BudgetName, summary.Period, summary.StartDate, summary.EndDate, summary.Currency)
	for _, d := range summary.BudgetSummaryDetail {
		fmt.Printf("  %-20s allocated=%d carry_over=%d spent=%d remaining=%d utilization=%s%%\n",
			d.CategoryName, d.Allocated, d.CarryOver, d.Spent, d.Remaining, d.Utilization.String())
	}
	fmt.Printf("  total: allocated=%d spent=%d remaining=%d\n",
		summary.TotalAllocated, summary.TotalSpent, summary.TotalRemaining)

	if strings.TrimSpace(*out) != "" {
		if err := reports.ExportBudgetSummaryExcel(summary, strings.TrimSpace(*out)); err != nil {
			fmt.Fprintf(os.Stderr, "failed to export %s: %v\n", *out, err)
			os.Exit(1)
		}
		fmt.Printf("written %s\n", *out)
	}
}
