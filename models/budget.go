package models

import (
	"context"
	"errors"
	"time"

	"github.com/duitrumah/household_backend/utils"
	"gorm.io/gorm"
)

type Budget struct {
	ID          int          `gorm:"primary_key" json:"id"`
	HouseholdId string       `gorm:"size:64;index;not null;index:idx_budget_active,priority:1" json:"household_id"`
	Name        string       `gorm:"size:100;not null" json:"name" binding:"required"`
	Period      BudgetPeriod `gorm:"type:enum('WEEKLY','MONTHLY','YEARLY');size:10;not null" json:"period" binding:"required"`
	// TotalAllocated is derived: sum of category allocated + carry-over.
	TotalAllocated int64            `gorm:"not null;default:0" json:"total_allocated"`
	Currency       string           `gorm:"size:3;not null" json:"currency"`
	StartDate      time.Time        `gorm:"index;not null" json:"start_date"`
	EndDate        time.Time        `gorm:"index;not null" json:"end_date"`
	IsActive       *bool            `gorm:"not null;default:true;index:idx_budget_active,priority:2" json:"is_active"`
	Categories     []BudgetCategory `gorm:"foreignKey:BudgetId" json:"categories"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type BudgetCategory struct {
	ID           int    `gorm:"primary_key" json:"id"`
	HouseholdId  string `gorm:"size:64;index;not null" json:"household_id"`
	BudgetId     int    `gorm:"not null;index:uniq_budget_category,unique,priority:1" json:"budget_id"`
	CategoryId   int    `gorm:"not null;index;index:uniq_budget_category,unique,priority:2" json:"category_id"`
	CategoryName string `gorm:"size:100" json:"category_name"`
	Allocated    int64  `gorm:"not null;default:0" json:"allocated"`
	// CarryOver is the extra allowance rolled over from the prior period.
	CarryOver int64 `gorm:"not null;default:0" json:"carry_over"`
	// Spent is mutated only by the spend tracker (incremental deltas) and
	// by full recalculation; never set directly by callers.
	Spent     int64     `gorm:"not null;default:0" json:"spent"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *BudgetCategory) TotalAllocated() int64 {
	return c.Allocated + c.CarryOver
}

func (c *BudgetCategory) Remaining() int64 {
	return c.TotalAllocated() - c.Spent
}

func (c *BudgetCategory) OverspentAmount() int64 {
	if over := c.Spent - c.TotalAllocated(); over > 0 {
		return over
	}
	return 0
}

func GetBudget(ctx context.Context, db *gorm.DB, id int) (*Budget, error) {

	householdId, ok := utils.GetHouseholdIdFromContext(ctx)
	if !ok || householdId == "" {
		return nil, errors.New("household id is required")
	}

	var budget Budget
	err := db.WithContext(ctx).
		Preload("Categories").
		Where("household_id = ?", householdId).
		First(&budget, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &budget, nil
}

func GetActiveBudgets(ctx context.Context, db *gorm.DB, householdId string) ([]Budget, error) {
	var budgets []Budget
	err := db.WithContext(ctx).
		Preload("Categories").
		Where("household_id = ? AND is_active = ?", householdId, true).
		Order("start_date").
		Find(&budgets).Error
	if err != nil {
		return nil, err
	}
	return budgets, nil
}

// CoversDate reports whether the date falls inside the budget's
// [start_date, end_date] interval. Both bounds are inclusive.
func (b *Budget) CoversDate(date time.Time) bool {
	return !b.StartDate.After(date) && !b.EndDate.Before(date)
}

// GetActiveBudgetsCovering returns the household's active budgets whose
// [start_date, end_date] interval (inclusive bounds) contains the given date.
// The SQL filter mirrors Budget.CoversDate.
func GetActiveBudgetsCovering(ctx context.Context, db *gorm.DB, householdId string, date time.Time) ([]Budget, error) {
	var budgets []Budget
	err := db.WithContext(ctx).
		Preload("Categories").
		Where("household_id = ? AND is_active = ?", householdId, true).
		Where("start_date <= ? AND end_date >= ?", date, date).
		Find(&budgets).Error
	if err != nil {
		return nil, err
	}
	return budgets, nil
}

// MarkBudgetInactive is invoked by the external scheduler when a budget's
// period elapses; the aggregate itself never deactivates budgets.
func MarkBudgetInactive(ctx context.Context, db *gorm.DB, id int) error {
	result := db.WithContext(ctx).Model(&Budget{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}
