package workflow

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/duitrumah/household_backend/config"
	"github.com/duitrumah/household_backend/models"
	"github.com/duitrumah/household_backend/utils"
	"github.com/google/uuid"
)

// DB-backed spend tracker harness.
//
// Usage (requires MySQL): INTEGRATION_TESTS=1 go test ./workflow -run SpendTrackerDB -v
// Connection comes from the usual DB_* env vars (config.ConnectDatabaseWithRetry).

func requireIntegrationDB(t *testing.T) *SpendTracker {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run DB-backed tests")
	}
	db := config.ConnectDatabaseWithRetry()
	models.MigrateTable(db)
	return NewSpendTracker(db, config.NewLogger(), nil)
}

func createMarchBudget(t *testing.T, tracker *SpendTracker, householdId string) *models.Budget {
	t.Helper()
	budget := models.Budget{
		HouseholdId:    householdId,
		Name:           "March",
		Period:         models.BudgetPeriodMonthly,
		TotalAllocated: 500_000,
		Currency:       "IDR",
		StartDate:      date(2024, time.March, 1),
		EndDate:        date(2024, time.March, 31),
		IsActive:       utils.NewTrue(),
		Categories: []models.BudgetCategory{
			{HouseholdId: householdId, CategoryId: 1, CategoryName: "Groceries", Allocated: 500_000},
		},
	}
	if err := tracker.DB.Create(&budget).Error; err != nil {
		t.Fatalf("create budget: %v", err)
	}
	return &budget
}

func categorySpent(t *testing.T, tracker *SpendTracker, ctx context.Context, budgetId int) int64 {
	t.Helper()
	budget, err := models.GetBudget(ctx, tracker.DB, budgetId)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	return budget.Categories[0].Spent
}

func TestSpendTrackerDB_Lifecycle(t *testing.T) {
	tracker := requireIntegrationDB(t)

	householdId := uuid.NewString()
	ctx := utils.SetHouseholdIdInContext(context.Background(), householdId)
	budget := createMarchBudget(t, tracker, householdId)

	categoryId := 1
	inPeriod := &TransactionSnapshot{CategoryId: &categoryId, Amount: -200_000, Date: date(2024, time.March, 15), Currency: "IDR"}
	if err := tracker.OnTransactionCreated(ctx, TransactionEvent{HouseholdId: householdId, New: inPeriod}); err != nil {
		t.Fatalf("created: %v", err)
	}
	if got := categorySpent(t, tracker, ctx, budget.ID); got != 200_000 {
		t.Fatalf("spent after create = %d, want 200000", got)
	}

	// A spend dated outside [start, end] must not touch this budget.
	outOfPeriod := &TransactionSnapshot{CategoryId: &categoryId, Amount: -50_000, Date: date(2024, time.April, 2), Currency: "IDR"}
	if err := tracker.OnTransactionCreated(ctx, TransactionEvent{HouseholdId: householdId, New: outOfPeriod}); err != nil {
		t.Fatalf("out-of-period created: %v", err)
	}
	if got := categorySpent(t, tracker, ctx, budget.ID); got != 200_000 {
		t.Fatalf("spent after out-of-period create = %d, want 200000", got)
	}

	resized := &TransactionSnapshot{CategoryId: &categoryId, Amount: -150_000, Date: date(2024, time.March, 15), Currency: "IDR"}
	if err := tracker.OnTransactionUpdated(ctx, TransactionEvent{HouseholdId: householdId, Old: inPeriod, New: resized}); err != nil {
		t.Fatalf("updated: %v", err)
	}
	if got := categorySpent(t, tracker, ctx, budget.ID); got != 150_000 {
		t.Fatalf("spent after update = %d, want 150000", got)
	}

	if err := tracker.OnTransactionDeleted(ctx, TransactionEvent{HouseholdId: householdId, Old: resized}); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	if got := categorySpent(t, tracker, ctx, budget.ID); got != 0 {
		t.Fatalf("spent after delete = %d, want 0", got)
	}
}

func TestSpendTrackerDB_Recalculate(t *testing.T) {
	tracker := requireIntegrationDB(t)

	householdId := uuid.NewString()
	ctx := utils.SetHouseholdIdInContext(context.Background(), householdId)
	budget := createMarchBudget(t, tracker, householdId)

	categoryId := 1
	rows := []models.Transaction{
		{HouseholdId: householdId, CategoryId: &categoryId, Amount: -120_000, Date: date(2024, time.March, 15), Currency: "IDR"},
		{HouseholdId: householdId, CategoryId: &categoryId, Amount: -30_000, Date: date(2024, time.March, 20), Currency: "IDR"},
		// Income and out-of-period rows are excluded from the sums.
		{HouseholdId: householdId, CategoryId: &categoryId, Amount: 500_000, Date: date(2024, time.March, 21), Currency: "IDR"},
		{HouseholdId: householdId, CategoryId: &categoryId, Amount: -40_000, Date: date(2024, time.April, 2), Currency: "IDR"},
	}
	for i := range rows {
		if err := tracker.DB.Create(&rows[i]).Error; err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	// Drift the incremental state; recalculation must replace it.
	if err := tracker.DB.Model(&models.BudgetCategory{}).
		Where("budget_id = ?", budget.ID).
		Update("spent", 999_999).Error; err != nil {
		t.Fatalf("seed drift: %v", err)
	}

	if err := tracker.Recalculate(ctx, budget.ID); err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if got := categorySpent(t, tracker, ctx, budget.ID); got != 150_000 {
		t.Fatalf("spent after recalculate = %d, want 150000", got)
	}

	if err := tracker.Recalculate(ctx, budget.ID); err != nil {
		t.Fatalf("second recalculate: %v", err)
	}
	if got := categorySpent(t, tracker, ctx, budget.ID); got != 150_000 {
		t.Fatalf("recalculate must be idempotent, got %d", got)
	}
}
