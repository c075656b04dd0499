package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/duitrumah/household_backend/config"
	"github.com/duitrumah/household_backend/models"
	"github.com/duitrumah/household_backend/utils"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// BudgetService is the single write path for budget lifecycle. Every state
// change is validated first, persisted in one DB transaction together with
// its outbox event, and followed by a progress-cache invalidation.
//
// Concurrency: there is no per-budget optimistic locking; concurrent updates
// to the same budget are last-write-wins at the storage layer (household-scale
// write volume). Spent-amount increments use atomic row updates, see SpendTracker.
type BudgetService struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	// Redis caches progress snapshots under BudgetProgress:{household}:{budget}.
	// Nil disables caching.
	Redis *redis.Client
}

func NewBudgetService(db *gorm.DB, logger *logrus.Logger, rdb *redis.Client) *BudgetService {
	return &BudgetService{DB: db, Logger: logger, Redis: rdb}
}

const progressCacheTTL = 10 * time.Minute

func progressCacheKey(householdId string, budgetId int) string {
	return fmt.Sprintf("BudgetProgress:%s:%d", householdId, budgetId)
}

type CategoryProgress struct {
	CategoryId      int     `json:"category_id"`
	CategoryName    string  `json:"category_name"`
	Allocated       int64   `json:"allocated"`
	CarryOver       int64   `json:"carry_over"`
	TotalAllocated  int64   `json:"total_allocated"`
	Spent           int64   `json:"spent"`
	Remaining       int64   `json:"remaining"`
	Utilization     float64 `json:"utilization"`
	IsOverspent     bool    `json:"is_overspent"`
	OverspentAmount int64   `json:"overspent_amount"`
}

type BudgetProgress struct {
	BudgetId        int                 `json:"budget_id"`
	Name            string              `json:"name"`
	Period          models.BudgetPeriod `json:"period"`
	StartDate       time.Time           `json:"start_date"`
	EndDate         time.Time           `json:"end_date"`
	TotalAllocated  int64               `json:"total_allocated"`
	TotalSpent      int64               `json:"total_spent"`
	TotalRemaining  int64               `json:"total_remaining"`
	Utilization     float64             `json:"utilization"`
	IsOverspent     bool                `json:"is_overspent"`
	OverspentAmount int64               `json:"overspent_amount"`
	Categories      []CategoryProgress  `json:"categories"`
}

type CarryOverItem struct {
	CategoryId      int    `json:"category_id"`
	CategoryName    string `json:"category_name"`
	CarryOverAmount int64  `json:"carry_over_amount"`
}

// UtilizationPercent is spent over total allocated, rounded to 2 decimal
// places. Display only: alert thresholds compare integer amounts instead.
func UtilizationPercent(spent, totalAllocated int64) float64 {
	if totalAllocated <= 0 {
		return 0
	}
	return decimal.NewFromInt(spent).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(totalAllocated)).
		Round(2).
		InexactFloat64()
}

// BuildBudgetProgress computes progress from the persisted category rows.
// It never reaches back to raw transactions; that reconciliation is the
// spend tracker's Recalculate.
func BuildBudgetProgress(budget *models.Budget) *BudgetProgress {
	progress := &BudgetProgress{
		BudgetId:   budget.ID,
		Name:       budget.Name,
		Period:     budget.Period,
		StartDate:  budget.StartDate,
		EndDate:    budget.EndDate,
		Categories: make([]CategoryProgress, 0, len(budget.Categories)),
	}

	for i := range budget.Categories {
		c := &budget.Categories[i]
		total := c.TotalAllocated()
		cp := CategoryProgress{
			CategoryId:      c.CategoryId,
			CategoryName:    c.CategoryName,
			Allocated:       c.Allocated,
			CarryOver:       c.CarryOver,
			TotalAllocated:  total,
			Spent:           c.Spent,
			Remaining:       c.Remaining(),
			Utilization:     UtilizationPercent(c.Spent, total),
			IsOverspent:     c.Spent > total,
			OverspentAmount: c.OverspentAmount(),
		}
		progress.Categories = append(progress.Categories, cp)
		progress.TotalAllocated += total
		progress.TotalSpent += c.Spent
	}

	progress.TotalRemaining = progress.TotalAllocated - progress.TotalSpent
	progress.Utilization = UtilizationPercent(progress.TotalSpent, progress.TotalAllocated)
	progress.IsOverspent = progress.TotalSpent > progress.TotalAllocated
	if progress.IsOverspent {
		progress.OverspentAmount = progress.TotalSpent - progress.TotalAllocated
	}
	return progress
}

// GenerateCarryOverData emits, for every category with positive remaining
// allowance, the carry-over tuple that seeds the next period's budget.
func GenerateCarryOverData(budget *models.Budget) []CarryOverItem {
	items := make([]CarryOverItem, 0, len(budget.Categories))
	for i := range budget.Categories {
		c := &budget.Categories[i]
		if remaining := c.Remaining(); remaining > 0 {
			items = append(items, CarryOverItem{
				CategoryId:      c.CategoryId,
				CategoryName:    c.CategoryName,
				CarryOverAmount: remaining,
			})
		}
	}
	return items
}

// BuildCarryOverBudget derives the CreationData for the next period: same
// category set, same base allocations, carry-over amounts populated from the
// source budget's remaining allowances. The source budget is not touched.
func BuildCarryOverBudget(source *models.Budget, nextStart, nextEnd time.Time) *NewBudget {
	carryOvers := make(map[int]int64)
	for _, item := range GenerateCarryOverData(source) {
		carryOvers[item.CategoryId] = item.CarryOverAmount
	}

	next := &NewBudget{
		Name:       source.Name,
		Period:     source.Period,
		Currency:   source.Currency,
		StartDate:  nextStart,
		EndDate:    nextEnd,
		Categories: make([]NewBudgetCategory, 0, len(source.Categories)),
	}
	for i := range source.Categories {
		c := &source.Categories[i]
		next.Categories = append(next.Categories, NewBudgetCategory{
			CategoryId:   c.CategoryId,
			CategoryName: c.CategoryName,
			Allocated:    c.Allocated,
			CarryOver:    carryOvers[c.CategoryId],
		})
	}
	return next
}

func (s *BudgetService) Create(ctx context.Context, input *NewBudget) (*models.Budget, error) {

	householdId, ok := utils.GetHouseholdIdFromContext(ctx)
	if !ok || householdId == "" {
		return nil, errors.New("household id is required")
	}

	existing, err := models.GetActiveBudgets(ctx, s.DB, householdId)
	if err != nil {
		return nil, err
	}

	if err := ValidateNewBudget(input, existing); err != nil {
		return nil, err
	}

	budget := models.Budget{
		HouseholdId:    householdId,
		Name:           input.Name,
		Period:         input.Period,
		TotalAllocated: input.totalAllocated(),
		Currency:       input.Currency,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		IsActive:       utils.NewTrue(),
	}
	for _, c := range input.Categories {
		budget.Categories = append(budget.Categories, models.BudgetCategory{
			HouseholdId:  householdId,
			CategoryId:   c.CategoryId,
			CategoryName: c.CategoryName,
			Allocated:    c.Allocated,
			CarryOver:    c.CarryOver,
			Spent:        0,
		})
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&budget).Error; err != nil {
			return err
		}
		return insertEventRecord(tx, householdId, models.EventBudgetCreated, BudgetCreatedEvent{
			BudgetId:       budget.ID,
			Name:           budget.Name,
			TotalAllocated: budget.TotalAllocated,
			Period:         budget.Period,
			StartDate:      budget.StartDate,
			EndDate:        budget.EndDate,
		}, correlationId)
	})
	if err != nil {
		return nil, err
	}

	return &budget, nil
}

// UpdateBudget carries the partial update: nil fields keep their current
// values; a non-nil Categories fully replaces the line-item set.
type UpdateBudget struct {
	Name       *string              `json:"name"`
	Period     *models.BudgetPeriod `json:"period"`
	Currency   *string              `json:"currency"`
	StartDate  *time.Time           `json:"start_date"`
	EndDate    *time.Time           `json:"end_date"`
	Categories []NewBudgetCategory  `json:"categories"`
}

func (s *BudgetService) Update(ctx context.Context, budgetId int, input *UpdateBudget) (*models.Budget, error) {

	householdId, ok := utils.GetHouseholdIdFromContext(ctx)
	if !ok || householdId == "" {
		return nil, errors.New("household id is required")
	}

	budget, err := models.GetBudget(ctx, s.DB, budgetId)
	if err != nil {
		return nil, err
	}

	// Merged view: existing values overridden by supplied fields.
	merged := NewBudget{
		Name:      budget.Name,
		Period:    budget.Period,
		Currency:  budget.Currency,
		StartDate: budget.StartDate,
		EndDate:   budget.EndDate,
	}
	if input.Name != nil {
		merged.Name = *input.Name
	}
	if input.Period != nil {
		merged.Period = *input.Period
	}
	if input.Currency != nil {
		merged.Currency = *input.Currency
	}
	if input.StartDate != nil {
		merged.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		merged.EndDate = *input.EndDate
	}
	if input.Categories != nil {
		merged.Categories = input.Categories
	} else {
		for i := range budget.Categories {
			c := &budget.Categories[i]
			merged.Categories = append(merged.Categories, NewBudgetCategory{
				CategoryId:   c.CategoryId,
				CategoryName: c.CategoryName,
				Allocated:    c.Allocated,
				CarryOver:    c.CarryOver,
			})
		}
	}

	// No overlap re-check when the dates are not being changed.
	datesChanged := input.StartDate != nil || input.EndDate != nil
	var otherActive []models.Budget
	if datesChanged {
		active, err := models.GetActiveBudgets(ctx, s.DB, householdId)
		if err != nil {
			return nil, err
		}
		for i := range active {
			if active[i].ID != budget.ID {
				otherActive = append(otherActive, active[i])
			}
		}
	}

	if err := ValidateNewBudget(&merged, otherActive); err != nil {
		return nil, err
	}

	previous := BudgetSnapshot{
		Name:           budget.Name,
		TotalAllocated: budget.TotalAllocated,
		Period:         budget.Period,
		StartDate:      budget.StartDate,
		EndDate:        budget.EndDate,
	}

	// Carry spent forward for category ids that survive the replace; spent
	// amounts of removed categories are discarded (categories are redefined,
	// not patched).
	priorSpent := make(map[int]int64, len(budget.Categories))
	for i := range budget.Categories {
		priorSpent[budget.Categories[i].CategoryId] = budget.Categories[i].Spent
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"Name":           merged.Name,
			"Period":         merged.Period,
			"Currency":       merged.Currency,
			"StartDate":      merged.StartDate,
			"EndDate":        merged.EndDate,
			"TotalAllocated": merged.totalAllocated(),
		}
		if err := tx.Model(&models.Budget{}).Where("id = ?", budget.ID).Updates(updates).Error; err != nil {
			return err
		}

		if input.Categories != nil {
			if err := tx.Where("budget_id = ?", budget.ID).Delete(&models.BudgetCategory{}).Error; err != nil {
				return err
			}
			for _, c := range merged.Categories {
				row := models.BudgetCategory{
					HouseholdId:  householdId,
					BudgetId:     budget.ID,
					CategoryId:   c.CategoryId,
					CategoryName: c.CategoryName,
					Allocated:    c.Allocated,
					CarryOver:    c.CarryOver,
					Spent:        priorSpent[c.CategoryId],
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
		}

		return insertEventRecord(tx, householdId, models.EventBudgetUpdated, BudgetUpdatedEvent{
			BudgetId: budget.ID,
			Previous: previous,
			Current: BudgetSnapshot{
				Name:           merged.Name,
				TotalAllocated: merged.totalAllocated(),
				Period:         merged.Period,
				StartDate:      merged.StartDate,
				EndDate:        merged.EndDate,
			},
		}, correlationId)
	})
	if err != nil {
		return nil, err
	}

	if err := s.invalidateProgressCache(ctx, householdId, budget.ID); err != nil {
		config.LogError(s.Logger, "budgetWorkflow.go", "Update", "invalidateProgressCache", budget.ID, err)
	}

	return models.GetBudget(ctx, s.DB, budget.ID)
}

func (s *BudgetService) Delete(ctx context.Context, budgetId int) error {

	householdId, ok := utils.GetHouseholdIdFromContext(ctx)
	if !ok || householdId == "" {
		return errors.New("household id is required")
	}

	budget, err := models.GetBudget(ctx, s.DB, budgetId)
	if err != nil {
		return err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("budget_id = ?", budget.ID).Delete(&models.BudgetCategory{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Budget{}, budget.ID).Error; err != nil {
			return err
		}
		return insertEventRecord(tx, householdId, models.EventBudgetDeleted, BudgetDeletedEvent{
			BudgetId: budget.ID,
			Name:     budget.Name,
		}, correlationId)
	})
	if err != nil {
		return err
	}

	if err := s.invalidateProgressCache(ctx, householdId, budget.ID); err != nil {
		config.LogError(s.Logger, "budgetWorkflow.go", "Delete", "invalidateProgressCache", budget.ID, err)
	}
	return nil
}

func (s *BudgetService) GetProgress(ctx context.Context, budgetId int) (*BudgetProgress, error) {

	householdId, ok := utils.GetHouseholdIdFromContext(ctx)
	if !ok || householdId == "" {
		return nil, errors.New("household id is required")
	}

	key := progressCacheKey(householdId, budgetId)
	var cached BudgetProgress
	hit, err := config.GetRedisObject(ctx, s.Redis, key, &cached)
	if err != nil {
		config.LogError(s.Logger, "budgetWorkflow.go", "GetProgress", "GetRedisObject", key, err)
	}
	if hit {
		return &cached, nil
	}

	budget, err := models.GetBudget(ctx, s.DB, budgetId)
	if err != nil {
		return nil, err
	}

	progress := BuildBudgetProgress(budget)
	if err := config.SetRedisObject(ctx, s.Redis, key, progress, progressCacheTTL); err != nil {
		config.LogError(s.Logger, "budgetWorkflow.go", "GetProgress", "SetRedisObject", key, err)
	}
	return progress, nil
}

// GetBudgetAlerts derives the alert set from current progress. The same
// evaluation runs after each spend mutation; both paths must agree for
// identical state.
func (s *BudgetService) GetBudgetAlerts(ctx context.Context, budgetId int) ([]BudgetAlert, error) {
	progress, err := s.GetProgress(ctx, budgetId)
	if err != nil {
		return nil, err
	}
	return EvaluateBudgetAlerts(progress), nil
}

// CreateCarryOverBudget builds and creates the next-period budget from the
// source's unused allowances. The source budget is left untouched; its
// deactivation is the scheduler's job.
func (s *BudgetService) CreateCarryOverBudget(ctx context.Context, sourceBudgetId int, nextStart, nextEnd time.Time) (*models.Budget, error) {

	householdId, ok := utils.GetHouseholdIdFromContext(ctx)
	if !ok || householdId == "" {
		return nil, errors.New("household id is required")
	}

	source, err := models.GetBudget(ctx, s.DB, sourceBudgetId)
	if err != nil {
		return nil, err
	}

	input := BuildCarryOverBudget(source, nextStart, nextEnd)
	next, err := s.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	var totalCarryOver int64
	for _, item := range GenerateCarryOverData(source) {
		totalCarryOver += item.CarryOverAmount
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertEventRecord(tx, householdId, models.EventBudgetCarryOverCreated, BudgetCarryOverCreatedEvent{
			SourceBudgetId: source.ID,
			BudgetId:       next.ID,
			TotalCarryOver: totalCarryOver,
		}, correlationId)
	})
	if err != nil {
		config.LogError(s.Logger, "budgetWorkflow.go", "CreateCarryOverBudget", "insertEventRecord", next.ID, err)
	}

	return next, nil
}

func (s *BudgetService) invalidateProgressCache(ctx context.Context, householdId string, budgetId int) error {
	return config.RemoveRedisKey(ctx, s.Redis, progressCacheKey(householdId, budgetId))
}
