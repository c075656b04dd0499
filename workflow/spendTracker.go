package workflow

import (
	"context"
	"errors"

	"github.com/duitrumah/household_backend/config"
	"github.com/duitrumah/household_backend/models"
	"github.com/duitrumah/household_backend/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SpendTracker applies transaction lifecycle events to budget category spent
// amounts. Incremental updates are a best-effort fast path: the worker guards
// them with durable idempotency keys, and Recalculate is the correctness
// backstop (replace-from-scratch, idempotent by construction).
//
// Sign convention, applied uniformly: a transaction is spend iff its signed
// amount is strictly negative; zero and positive amounts are ignored.
type SpendTracker struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	Redis  *redis.Client
}

func NewSpendTracker(db *gorm.DB, logger *logrus.Logger, rdb *redis.Client) *SpendTracker {
	return &SpendTracker{DB: db, Logger: logger, Redis: rdb}
}

// Process applies one transaction event inside the caller's DB transaction.
// An update is a revert of the old effect followed by an apply of the new one,
// each scoped to whichever budgets match the old vs. new category/date.
func (t *SpendTracker) Process(ctx context.Context, tx *gorm.DB, ev TransactionEvent) error {
	if ev.HouseholdId == "" {
		return errors.New("household id is required")
	}

	switch ev.Action {
	case models.EventActionCreate:
		return t.applyEffect(ctx, tx, ev.HouseholdId, ev.New, +1)
	case models.EventActionUpdate:
		if err := t.applyEffect(ctx, tx, ev.HouseholdId, ev.Old, -1); err != nil {
			return err
		}
		return t.applyEffect(ctx, tx, ev.HouseholdId, ev.New, +1)
	case models.EventActionDelete:
		return t.applyEffect(ctx, tx, ev.HouseholdId, ev.Old, -1)
	}
	return errors.New("unknown transaction event action " + string(ev.Action))
}

// OnTransactionCreated/Updated/Deleted wrap Process in a DB transaction for
// callers outside the worker (direct invocation, tests, backfills).
func (t *SpendTracker) OnTransactionCreated(ctx context.Context, ev TransactionEvent) error {
	ev.Action = models.EventActionCreate
	return t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return t.Process(ctx, tx, ev)
	})
}

func (t *SpendTracker) OnTransactionUpdated(ctx context.Context, ev TransactionEvent) error {
	ev.Action = models.EventActionUpdate
	return t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return t.Process(ctx, tx, ev)
	})
}

func (t *SpendTracker) OnTransactionDeleted(ctx context.Context, ev TransactionEvent) error {
	ev.Action = models.EventActionDelete
	return t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return t.Process(ctx, tx, ev)
	})
}

// SpendDelta is the tracking gate: a snapshot contributes to spent amounts
// iff it is categorized and its signed amount is strictly negative. The
// returned delta is the spend magnitude in minor units.
func SpendDelta(snap *TransactionSnapshot) (int64, bool) {
	if snap == nil || snap.CategoryId == nil || snap.Amount >= 0 {
		return 0, false
	}
	return utils.AbsInt64(snap.Amount), true
}

// matchCategory finds the budget's line item for a transaction category.
func matchCategory(budget *models.Budget, categoryId int) *models.BudgetCategory {
	for j := range budget.Categories {
		if budget.Categories[j].CategoryId == categoryId {
			return &budget.Categories[j]
		}
	}
	return nil
}

// alertRank orders the threshold states so crossings can be detected from a
// before/after pair: 0 none, 1 warning, 2 critical, 3 overspent.
func alertRank(spent, totalAllocated int64) int {
	switch {
	case spent > totalAllocated:
		return 3
	case crossedThreshold(spent, totalAllocated, ThresholdCriticalPercent):
		return 2
	case crossedThreshold(spent, totalAllocated, ThresholdWarningPercent):
		return 1
	}
	return 0
}

// applyEffect adds sign * |amount| to the spent amount of every matching
// active budget category. The increment is a single atomic row update; no
// read-modify-write. A transaction with no matching budget is a silent no-op.
func (t *SpendTracker) applyEffect(ctx context.Context, tx *gorm.DB, householdId string, snap *TransactionSnapshot, sign int64) error {
	amount, tracked := SpendDelta(snap)
	if !tracked {
		return nil
	}

	budgets, err := models.GetActiveBudgetsCovering(ctx, tx, householdId, snap.Date)
	if err != nil {
		return err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	for i := range budgets {
		budget := &budgets[i]
		if !budget.CoversDate(snap.Date) {
			continue
		}

		before := matchCategory(budget, *snap.CategoryId)
		if before == nil {
			continue
		}

		result := tx.Model(&models.BudgetCategory{}).
			Where("budget_id = ? AND category_id = ?", budget.ID, *snap.CategoryId).
			Update("spent", gorm.Expr("spent + ?", sign*amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}

		if err := t.emitCrossingEvents(tx, householdId, budget.ID, before, before.Spent+sign*amount, correlationId); err != nil {
			return err
		}

		if err := config.RemoveRedisKey(ctx, t.Redis, progressCacheKey(householdId, budget.ID)); err != nil {
			config.LogError(t.Logger, "spendTracker.go", "applyEffect", "RemoveRedisKey", budget.ID, err)
		}
	}
	return nil
}

// emitCrossingEvents writes overspend/threshold events when the mutation
// crossed a boundary upward. The alert set itself stays derived-on-demand
// (EvaluateBudgetAlerts); these events only feed the notification sink.
func (t *SpendTracker) emitCrossingEvents(tx *gorm.DB, householdId string, budgetId int, category *models.BudgetCategory, spentAfter int64, correlationId string) error {
	total := category.TotalAllocated()
	beforeRank := alertRank(category.Spent, total)
	afterRank := alertRank(spentAfter, total)
	if afterRank <= beforeRank {
		return nil
	}

	if afterRank == 3 {
		return insertEventRecord(tx, householdId, models.EventBudgetOverspent, BudgetOverspentEvent{
			BudgetId:        budgetId,
			CategoryId:      category.CategoryId,
			CategoryName:    category.CategoryName,
			OverspentAmount: spentAfter - total,
		}, correlationId)
	}

	level := models.AlertLevelWarning
	if afterRank == 2 {
		level = models.AlertLevelCritical
	}
	return insertEventRecord(tx, householdId, models.EventBudgetThresholdReached, BudgetThresholdEvent{
		BudgetId:     budgetId,
		CategoryId:   category.CategoryId,
		CategoryName: category.CategoryName,
		Level:        level,
		Utilization:  UtilizationPercent(spentAfter, total),
		Remaining:    total - spentAfter,
	}, correlationId)
}

// Recalculate re-derives every category's spent amount from the transaction
// store, replacing the stored values. It takes the budget's posting lock for
// the whole read-then-replace window, so concurrent incremental updates
// cannot be lost under it.
func (t *SpendTracker) Recalculate(ctx context.Context, budgetId int) error {

	householdId, ok := utils.GetHouseholdIdFromContext(ctx)
	if !ok || householdId == "" {
		return errors.New("household id is required")
	}

	budget, err := models.GetBudget(ctx, t.DB, budgetId)
	if err != nil {
		return err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	err = t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireBudgetPostingLock(tx, householdId, budget.ID); err != nil {
			return err
		}
		defer ReleaseBudgetPostingLock(tx, householdId, budget.ID)

		sums, err := models.SumSpentByCategory(ctx, tx, householdId, budget.StartDate, budget.EndDate)
		if err != nil {
			return err
		}

		for i := range budget.Categories {
			category := &budget.Categories[i]
			spent := sums[category.CategoryId]
			if err := tx.Model(&models.BudgetCategory{}).
				Where("id = ?", category.ID).
				Update("spent", spent).Error; err != nil {
				return err
			}
			if err := t.emitCrossingEvents(tx, householdId, budget.ID, category, spent, correlationId); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := config.RemoveRedisKey(ctx, t.Redis, progressCacheKey(householdId, budget.ID)); err != nil {
		config.LogError(t.Logger, "spendTracker.go", "Recalculate", "RemoveRedisKey", budget.ID, err)
	}
	return nil
}
